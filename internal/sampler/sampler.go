// Package sampler picks a random record from a delimited file without
// reading the whole file.
//
// A random byte offset is chosen, the (probably partial) line under it is
// discarded and the next full line is returned. When that read hits the end
// of the file, the first line is returned instead. The result is biased:
// line i (i >= 2) is chosen with probability proportional to the byte length
// of line i-1, and line 1 is chosen exactly when the offset falls inside the
// last line. The behaviour is kept as is.
package sampler

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"strings"

	"github.com/valpere/rttaug/internal/dataset"
)

var ErrEmptyFile = errors.New("file is empty")

type Sampler struct {
	layout dataset.Layout
	rng    *rand.Rand
}

// New returns a sampler drawing offsets from rng. A nil rng is seeded from
// the runtime's random source.
func New(layout dataset.Layout, rng *rand.Rand) *Sampler {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Sampler{layout: layout, rng: rng}
}

// Sample returns the id and text of one pseudo-random record in path.
// Double quotes are stripped from the text.
func (s *Sampler) Sample(path string) (string, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", "", fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.Size() == 0 {
		return "", "", fmt.Errorf("%s: %w", path, ErrEmptyFile)
	}

	line, err := lineAt(f, s.rng.Int64N(info.Size()))
	if err != nil {
		return "", "", fmt.Errorf("failed to read %s: %w", path, err)
	}

	rec, err := dataset.ParseLine(line, s.layout)
	if err != nil {
		return "", "", fmt.Errorf("%s: %w", path, err)
	}
	return rec.ID(s.layout), strings.ReplaceAll(rec.Text(s.layout), `"`, ""), nil
}

// lineAt returns the first full line starting after offset, or the first
// line of the file when there is none.
func lineAt(f io.ReadSeeker, offset int64) (string, error) {
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return "", err
	}
	r := bufio.NewReader(f)
	if _, err := r.ReadString('\n'); err != nil {
		if err != io.EOF {
			return "", err
		}
		return firstLine(f)
	}

	line, err := r.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	if line == "" {
		return firstLine(f)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func firstLine(f io.ReadSeeker) (string, error) {
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	line, err := bufio.NewReader(f).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
