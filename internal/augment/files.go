package augment

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/valpere/rttaug/internal/dataset"
)

// Stats file row labels.
const (
	LabelRowsProcessed = "current row number"
	LabelFallbackUsage = "fallback usage"
	LabelFallbackFail  = "fallback fail"
)

// Paths are the files a file-backed run reads and writes.
type Paths struct {
	Input        string
	Primary      string
	WithFallback string
	Stats        string
}

// StatsFile writes the three counters as label,value rows, replacing the
// file each time.
type StatsFile string

func (f StatsFile) WriteStats(stats Stats) (err error) {
	out, err := os.Create(string(f))
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	w := dataset.NewWriter(out, ',')
	rows := [][2]string{
		{LabelRowsProcessed, strconv.Itoa(stats.RowsProcessed)},
		{LabelFallbackUsage, strconv.Itoa(stats.FallbackUsage)},
		{LabelFallbackFail, strconv.Itoa(stats.FallbackFail)},
	}
	for _, r := range rows {
		if err := w.WriteRow(r[0], r[1]); err != nil {
			return err
		}
	}
	return w.Flush()
}

// RunFiles opens the input and both outputs, runs the pipeline and releases
// every file on every exit path. Outputs use the input's delimiter.
func (p *Pipeline) RunFiles(ctx context.Context, paths Paths) (stats Stats, err error) {
	in, err := os.Open(paths.Input)
	if err != nil {
		return stats, fmt.Errorf("failed to open input: %w", err)
	}
	defer in.Close()

	primaryFile, err := os.Create(paths.Primary)
	if err != nil {
		return stats, fmt.Errorf("failed to create output: %w", err)
	}
	defer closeInto(&err, primaryFile)

	fallbackFile, err := os.Create(paths.WithFallback)
	if err != nil {
		return stats, fmt.Errorf("failed to create output: %w", err)
	}
	defer closeInto(&err, fallbackFile)

	delim := p.cfg.Layout.Delimiter
	primary := dataset.NewWriter(primaryFile, delim)
	withFallback := dataset.NewWriter(fallbackFile, delim)

	// Runs before the closes above.
	defer func() {
		if ferr := primary.Flush(); ferr != nil {
			err = errors.Join(err, fmt.Errorf("failed to flush %s: %w", paths.Primary, ferr))
		}
		if ferr := withFallback.Flush(); ferr != nil {
			err = errors.Join(err, fmt.Errorf("failed to flush %s: %w", paths.WithFallback, ferr))
		}
	}()

	return p.Run(ctx, dataset.NewReader(in, p.cfg.Layout), primary, withFallback, StatsFile(paths.Stats))
}

func closeInto(err *error, f *os.File) {
	if cerr := f.Close(); cerr != nil {
		*err = errors.Join(*err, fmt.Errorf("failed to close %s: %w", f.Name(), cerr))
	}
}
