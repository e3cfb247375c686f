// Package augment generates paraphrased training records by round-trip
// translation.
//
// Every input record is written, normalized, to both output sinks. The text
// is then round-tripped through the primary language; when that returns the
// text unchanged the fallback language is tried, and when that also returns
// it unchanged the record gets no augmentation. Augmentations from the
// primary language go to both sinks, augmentations from the fallback
// language only to the fallback-inclusive sink.
package augment

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"github.com/valpere/rttaug/internal/dataset"
	"github.com/valpere/rttaug/internal/store"
)

// Stats are the run counters. They always reflect fully processed rows only.
type Stats struct {
	RowsProcessed int
	FallbackUsage int
	FallbackFail  int
}

// Outcome is what happened to a single input record.
type Outcome string

const (
	OutcomePrimary   Outcome = store.OutcomePrimary
	OutcomeFallback  Outcome = store.OutcomeFallback
	OutcomeDiscarded Outcome = store.OutcomeDiscarded
)

type RoundTripper interface {
	RoundTrip(ctx context.Context, text, middleLang string) (string, error)
}

// RecordReader returns io.EOF after the last record.
type RecordReader interface {
	Read() (dataset.Record, error)
}

type RecordWriter interface {
	Write(rec dataset.Record) error
}

type StatsWriter interface {
	WriteStats(stats Stats) error
}

// Ledger receives one entry per processed record. Failures are logged and
// do not stop the run.
type Ledger interface {
	RecordOutcome(ctx context.Context, e store.OutcomeEntry) error
}

type Config struct {
	PrimaryLang  string
	FallbackLang string
	Layout       dataset.Layout
}

type Pipeline struct {
	rt     RoundTripper
	cfg    Config
	logger *log.Logger
	ledger Ledger
}

func New(rt RoundTripper, cfg Config, logger *log.Logger) *Pipeline {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Pipeline{rt: rt, cfg: cfg, logger: logger}
}

// WithLedger makes the pipeline record per-row outcomes in l.
func (p *Pipeline) WithLedger(l Ledger) *Pipeline {
	p.ledger = l
	return p
}

// Run processes src in order until io.EOF or the first error. The stats are
// written to statsOut exactly once on every exit path, including a panic
// unwinding through the loop. Errors from the loop are returned after the
// stats have been written.
func (p *Pipeline) Run(ctx context.Context, src RecordReader, primary, withFallback RecordWriter, statsOut StatsWriter) (stats Stats, err error) {
	defer func() {
		if werr := statsOut.WriteStats(stats); werr != nil {
			err = errors.Join(err, fmt.Errorf("failed to write stats: %w", werr))
		}
	}()

	for {
		if err := ctx.Err(); err != nil {
			return stats, fmt.Errorf("stopped before row %d: %w", stats.RowsProcessed, err)
		}

		rec, err := src.Read()
		if err == io.EOF {
			return stats, nil
		}
		if err != nil {
			return stats, fmt.Errorf("row %d: failed to read: %w", stats.RowsProcessed, err)
		}

		if err := p.processRecord(ctx, stats.RowsProcessed, rec, primary, withFallback, &stats); err != nil {
			return stats, err
		}
		stats.RowsProcessed++
	}
}

func (p *Pipeline) processRecord(ctx context.Context, row int, rec dataset.Record, primary, withFallback RecordWriter, stats *Stats) error {
	l := p.cfg.Layout
	if err := rec.Check(l); err != nil {
		return fmt.Errorf("row %d: %w", row, err)
	}

	rec = rec.Normalized(l)
	if err := primary.Write(rec); err != nil {
		return fmt.Errorf("row %d: failed to write original: %w", row, err)
	}
	if err := withFallback.Write(rec); err != nil {
		return fmt.Errorf("row %d: failed to write original: %w", row, err)
	}

	id, text := rec.ID(l), rec.Text(l)
	p.logger.Info("attempting row", "row", row, "id", id)

	lang, outcome := p.cfg.PrimaryLang, OutcomePrimary
	translation, err := p.rt.RoundTrip(ctx, text, lang)
	if err != nil {
		return fmt.Errorf("row %d (%s): %w", row, id, err)
	}

	if translation == text {
		p.logger.Info("running fallback", "row", row, "id", id, "lang", p.cfg.FallbackLang)
		stats.FallbackUsage++
		lang, outcome = p.cfg.FallbackLang, OutcomeFallback

		translation, err = p.rt.RoundTrip(ctx, text, lang)
		if err != nil {
			return fmt.Errorf("row %d (%s): %w", row, id, err)
		}
		if translation == text {
			p.logger.Info("discarding row", "row", row, "id", id)
			stats.FallbackFail++
			p.record(ctx, row, id, OutcomeDiscarded, "", text, "")
			return nil
		}
	}

	derived := rec.Derive(l, dataset.DerivedID(id, lang), translation)
	if outcome == OutcomePrimary {
		if err := primary.Write(derived); err != nil {
			return fmt.Errorf("row %d: failed to write augmentation: %w", row, err)
		}
	}
	if err := withFallback.Write(derived); err != nil {
		return fmt.Errorf("row %d: failed to write augmentation: %w", row, err)
	}

	p.record(ctx, row, id, outcome, lang, text, translation)
	return nil
}

func (p *Pipeline) record(ctx context.Context, row int, id string, outcome Outcome, lang, source, output string) {
	if p.ledger == nil {
		return
	}
	err := p.ledger.RecordOutcome(ctx, store.OutcomeEntry{
		RowIdx:     row,
		RecordID:   id,
		Outcome:    string(outcome),
		Lang:       lang,
		SourceText: source,
		OutputText: output,
	})
	if err != nil {
		p.logger.Warn("failed to record outcome", "row", row, "id", id, "err", err)
	}
}
