// Package probe round-trips a handful of randomly sampled questions through
// several candidate languages so the results can be compared by hand.
package probe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"

	"github.com/valpere/rttaug/internal/dataset"
	"github.com/valpere/rttaug/internal/detector"
)

type Sampler interface {
	Sample(path string) (id, text string, err error)
}

type RoundTripper interface {
	RoundTrip(ctx context.Context, text, middleLang string) (string, error)
}

type RowWriter interface {
	WriteRow(fields ...string) error
}

type Config struct {
	InputPath  string
	Langs      []string
	Samples    int
	SourceLang string
}

// LangReport summarizes the round trips through one language.
type LangReport struct {
	Lang string
	// Changed counts round trips whose result differs from the normalized
	// original.
	Changed int
	// SourceDetected counts results recognized as the source language.
	// Undecided counts results the detector could not classify.
	SourceDetected int
	Undecided      int
}

type Report struct {
	Samples int
	Langs   []LangReport
}

type Prober struct {
	sampler Sampler
	rt      RoundTripper
	det     detector.LanguageDetector
	cfg     Config
	logger  *log.Logger
}

func New(s Sampler, rt RoundTripper, cfg Config, logger *log.Logger) *Prober {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Prober{sampler: s, rt: rt, cfg: cfg, logger: logger}
}

// WithDetector enables the source-language column of the report.
func (p *Prober) WithDetector(d detector.LanguageDetector) *Prober {
	p.det = d
	return p
}

// Run writes one row per sample: id, text, then one round trip per
// configured language in order. The report covers the samples written
// before any error.
func (p *Prober) Run(ctx context.Context, out RowWriter) (*Report, error) {
	report := &Report{Langs: make([]LangReport, len(p.cfg.Langs))}
	for i, lang := range p.cfg.Langs {
		report.Langs[i].Lang = lang
	}

	for i := 0; i < p.cfg.Samples; i++ {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		p.logger.Info("probing sample", "n", i)

		id, text, err := p.sampler.Sample(p.cfg.InputPath)
		if err != nil {
			return report, fmt.Errorf("sample %d: %w", i, err)
		}

		row := make([]string, 0, len(p.cfg.Langs)+2)
		row = append(row, id, text)
		normalized := dataset.Normalize(text)
		for j, lang := range p.cfg.Langs {
			translation, err := p.rt.RoundTrip(ctx, text, lang)
			if err != nil {
				return report, fmt.Errorf("sample %d (%s): %w", i, id, err)
			}
			row = append(row, translation)
			p.tally(&report.Langs[j], normalized, translation)
		}

		if err := out.WriteRow(row...); err != nil {
			return report, fmt.Errorf("sample %d: failed to write: %w", i, err)
		}
		report.Samples++
	}
	return report, nil
}

func (p *Prober) tally(r *LangReport, original, translation string) {
	if translation != original {
		r.Changed++
	}
	if p.det == nil {
		return
	}
	match, decided := detector.IsLanguage(p.det, translation, p.cfg.SourceLang)
	switch {
	case !decided:
		r.Undecided++
	case match:
		r.SourceDetected++
	}
}

// RunFile writes the probe rows to path using delimiter.
func (p *Prober) RunFile(ctx context.Context, path string, delimiter rune) (report *Report, err error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}()

	w := dataset.NewWriter(f, delimiter)
	report, err = p.Run(ctx, w)
	if ferr := w.Flush(); ferr != nil {
		err = errors.Join(err, fmt.Errorf("failed to flush %s: %w", path, ferr))
	}
	return report, err
}

// Log prints the report through logger, one line per language.
func (r *Report) Log(logger *log.Logger) {
	for _, l := range r.Langs {
		logger.Info("probe result",
			"lang", l.Lang,
			"samples", r.Samples,
			"changed", l.Changed,
			"source_detected", l.SourceDetected,
			"undecided", l.Undecided)
	}
}
