package augment

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/valpere/rttaug/internal/dataset"
	"github.com/valpere/rttaug/internal/store"
)

// fakeRoundTripper answers from a lang → text → result table. Texts missing
// from the table come back unchanged.
type fakeRoundTripper struct {
	results map[string]map[string]string
	failOn  map[string]error
	calls   []string
}

func (f *fakeRoundTripper) RoundTrip(ctx context.Context, text, lang string) (string, error) {
	f.calls = append(f.calls, lang+":"+text)
	if err, ok := f.failOn[lang+":"+text]; ok {
		return "", err
	}
	if out, ok := f.results[lang][text]; ok {
		return out, nil
	}
	return text, nil
}

type sliceReader struct {
	records []dataset.Record
	pos     int
}

func (r *sliceReader) Read() (dataset.Record, error) {
	if r.pos >= len(r.records) {
		return nil, io.EOF
	}
	rec := r.records[r.pos]
	r.pos++
	return rec, nil
}

type sliceWriter struct {
	records []dataset.Record
}

func (w *sliceWriter) Write(rec dataset.Record) error {
	w.records = append(w.records, rec)
	return nil
}

type statsRecorder struct {
	writes []Stats
}

func (s *statsRecorder) WriteStats(stats Stats) error {
	s.writes = append(s.writes, stats)
	return nil
}

type ledgerRecorder struct {
	entries []store.OutcomeEntry
	err     error
}

func (l *ledgerRecorder) RecordOutcome(ctx context.Context, e store.OutcomeEntry) error {
	l.entries = append(l.entries, e)
	return l.err
}

func testConfig() Config {
	return Config{PrimaryLang: "de", FallbackLang: "ja", Layout: dataset.DefaultLayout()}
}

type harness struct {
	rt       *fakeRoundTripper
	primary  *sliceWriter
	fallback *sliceWriter
	stats    *statsRecorder
	ledger   *ledgerRecorder
}

func run(t *testing.T, rt *fakeRoundTripper, records ...dataset.Record) (harness, Stats, error) {
	t.Helper()
	h := harness{
		rt:       rt,
		primary:  &sliceWriter{},
		fallback: &sliceWriter{},
		stats:    &statsRecorder{},
		ledger:   &ledgerRecorder{},
	}
	p := New(rt, testConfig(), nil).WithLedger(h.ledger)
	stats, err := p.Run(context.Background(), &sliceReader{records: records}, h.primary, h.fallback, h.stats)
	return h, stats, err
}

func assertRecords(t *testing.T, name string, got []dataset.Record, want ...dataset.Record) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("%s: expected %d records, got %d: %v", name, len(want), len(got), got)
	}
	for i := range want {
		if strings.Join(got[i], "|") != strings.Join(want[i], "|") {
			t.Errorf("%s[%d]: expected %v, got %v", name, i, want[i], got[i])
		}
	}
}

func TestRun_EndToEndFallbackExample(t *testing.T) {
	rt := &fakeRoundTripper{results: map[string]map[string]string{
		"de": {"what color is the sky?": "what color is the sky?"},
		"ja": {"what color is the sky?": "what is the sky's color?"},
	}}

	h, stats, err := run(t, rt, dataset.Record{"Q1", "What color is the sky?", "decomp1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	original := dataset.Record{"Q1", "what color is the sky?", "decomp1"}
	assertRecords(t, "primary", h.primary.records, original)
	assertRecords(t, "fallback", h.fallback.records, original,
		dataset.Record{"Q1_ja", "what is the sky's color?", "decomp1"})

	want := Stats{RowsProcessed: 1, FallbackUsage: 1, FallbackFail: 0}
	if stats != want {
		t.Errorf("expected stats %+v, got %+v", want, stats)
	}
}

func TestRun_PrimarySucceeds(t *testing.T) {
	rt := &fakeRoundTripper{results: map[string]map[string]string{
		"de": {"who wrote hamlet?": "who is the author of hamlet?"},
	}}

	h, stats, err := run(t, rt, dataset.Record{"Q2", "  Who wrote Hamlet?  ", "d2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	original := dataset.Record{"Q2", "who wrote hamlet?", "d2"}
	derived := dataset.Record{"Q2_de", "who is the author of hamlet?", "d2"}
	assertRecords(t, "primary", h.primary.records, original, derived)
	assertRecords(t, "fallback", h.fallback.records, original, derived)

	if stats != (Stats{RowsProcessed: 1}) {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if len(rt.calls) != 1 {
		t.Errorf("expected only the primary round trip, got %v", rt.calls)
	}
}

func TestRun_BothUnchangedDiscards(t *testing.T) {
	rt := &fakeRoundTripper{}

	h, stats, err := run(t, rt, dataset.Record{"Q3", "Yes", "d3"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	original := dataset.Record{"Q3", "yes", "d3"}
	assertRecords(t, "primary", h.primary.records, original)
	assertRecords(t, "fallback", h.fallback.records, original)

	want := Stats{RowsProcessed: 1, FallbackUsage: 1, FallbackFail: 1}
	if stats != want {
		t.Errorf("expected stats %+v, got %+v", want, stats)
	}
	if len(rt.calls) != 2 || rt.calls[0] != "de:yes" || rt.calls[1] != "ja:yes" {
		t.Errorf("expected primary then fallback attempt, got %v", rt.calls)
	}
}

func TestRun_ComparesAgainstNormalizedText(t *testing.T) {
	// The service returns the normalized text; the raw input differs only in case.
	rt := &fakeRoundTripper{results: map[string]map[string]string{
		"de": {"hello there": "hello there"},
		"ja": {"hello there": "hi there"},
	}}

	h, stats, err := run(t, rt, dataset.Record{"Q4", "Hello There", "d"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.FallbackUsage != 1 {
		t.Errorf("expected fallback to be used, got %+v", stats)
	}
	assertRecords(t, "fallback", h.fallback.records,
		dataset.Record{"Q4", "hello there", "d"},
		dataset.Record{"Q4_ja", "hi there", "d"})
}

func TestRun_MixedRowsAccounting(t *testing.T) {
	rt := &fakeRoundTripper{results: map[string]map[string]string{
		"de": {"a?": "a changed?", "c?": "c changed?"},
		"ja": {"b?": "b changed?"},
	}}

	records := []dataset.Record{
		{"1", "A?", "x"},
		{"2", "B?", "x"},
		{"3", "C?", "x"},
		{"4", "D?", "x"},
	}
	h, stats, err := run(t, rt, records...)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if stats.RowsProcessed != len(records) {
		t.Errorf("expected %d rows processed, got %d", len(records), stats.RowsProcessed)
	}
	if stats.FallbackUsage != 2 || stats.FallbackFail != 1 {
		t.Errorf("unexpected fallback counters: %+v", stats)
	}

	assertRecords(t, "primary", h.primary.records,
		dataset.Record{"1", "a?", "x"},
		dataset.Record{"1_de", "a changed?", "x"},
		dataset.Record{"2", "b?", "x"},
		dataset.Record{"3", "c?", "x"},
		dataset.Record{"3_de", "c changed?", "x"},
		dataset.Record{"4", "d?", "x"},
	)
	assertRecords(t, "fallback", h.fallback.records,
		dataset.Record{"1", "a?", "x"},
		dataset.Record{"1_de", "a changed?", "x"},
		dataset.Record{"2", "b?", "x"},
		dataset.Record{"2_ja", "b changed?", "x"},
		dataset.Record{"3", "c?", "x"},
		dataset.Record{"3_de", "c changed?", "x"},
		dataset.Record{"4", "d?", "x"},
	)

	for _, rec := range h.primary.records {
		if strings.HasSuffix(rec[0], "_ja") {
			t.Errorf("fallback-derived record %v leaked into the primary sink", rec)
		}
	}

	if len(h.stats.writes) != 1 {
		t.Fatalf("expected stats to be written once, got %d", len(h.stats.writes))
	}
	if h.stats.writes[0] != stats {
		t.Errorf("written stats %+v differ from returned %+v", h.stats.writes[0], stats)
	}

	wantOutcomes := []string{store.OutcomePrimary, store.OutcomeFallback, store.OutcomePrimary, store.OutcomeDiscarded}
	if len(h.ledger.entries) != len(wantOutcomes) {
		t.Fatalf("expected %d ledger entries, got %d", len(wantOutcomes), len(h.ledger.entries))
	}
	for i, want := range wantOutcomes {
		e := h.ledger.entries[i]
		if e.Outcome != want || e.RowIdx != i {
			t.Errorf("ledger[%d]: expected %s at row %d, got %+v", i, want, i, e)
		}
	}
	if h.ledger.entries[1].Lang != "ja" || h.ledger.entries[1].OutputText != "b changed?" {
		t.Errorf("unexpected fallback ledger entry: %+v", h.ledger.entries[1])
	}
}

func TestRun_PreservesExtraFields(t *testing.T) {
	rt := &fakeRoundTripper{results: map[string]map[string]string{
		"de": {"why?": "for what reason?"},
	}}

	h, _, err := run(t, rt, dataset.Record{"Q5", "Why?", "return #1", "extra", ""})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertRecords(t, "primary", h.primary.records,
		dataset.Record{"Q5", "why?", "return #1", "extra", ""},
		dataset.Record{"Q5_de", "for what reason?", "return #1", "extra", ""})
}

func TestRun_ServiceErrorFlushesStatsAndPropagates(t *testing.T) {
	cause := errors.New("service unavailable")
	rt := &fakeRoundTripper{
		results: map[string]map[string]string{"de": {"first?": "first one?"}},
		failOn:  map[string]error{"de:second?": cause},
	}

	h, stats, err := run(t, rt,
		dataset.Record{"1", "First?", "x"},
		dataset.Record{"2", "Second?", "x"},
		dataset.Record{"3", "Third?", "x"},
	)
	if !errors.Is(err, cause) {
		t.Fatalf("expected the service error to propagate, got %v", err)
	}
	if !strings.Contains(err.Error(), "row 1") {
		t.Errorf("expected row number in error, got %v", err)
	}

	if stats.RowsProcessed != 1 {
		t.Errorf("expected 1 fully processed row, got %d", stats.RowsProcessed)
	}
	if len(h.stats.writes) != 1 || h.stats.writes[0].RowsProcessed != 1 {
		t.Errorf("expected stats flushed once with 1 row, got %+v", h.stats.writes)
	}
	// The failing row's original was already written before the attempt.
	if len(h.primary.records) != 3 {
		t.Errorf("expected 3 primary records, got %d", len(h.primary.records))
	}
	for _, c := range rt.calls {
		if strings.Contains(c, "third?") {
			t.Error("rows after the failure must not be attempted")
		}
	}
}

func TestRun_FallbackErrorCountsUsage(t *testing.T) {
	cause := errors.New("quota")
	rt := &fakeRoundTripper{failOn: map[string]error{"ja:same": cause}}

	_, stats, err := run(t, rt, dataset.Record{"1", "same", "x"})
	if !errors.Is(err, cause) {
		t.Fatalf("expected fallback error, got %v", err)
	}
	if stats.FallbackUsage != 1 || stats.RowsProcessed != 0 || stats.FallbackFail != 0 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestRun_MalformedRecord(t *testing.T) {
	rt := &fakeRoundTripper{}

	h, stats, err := run(t, rt, dataset.Record{"1", "ok", "x"}, dataset.Record{"2"})
	if !errors.Is(err, dataset.ErrMalformedRecord) {
		t.Fatalf("expected ErrMalformedRecord, got %v", err)
	}
	if stats.RowsProcessed != 1 {
		t.Errorf("expected 1 processed row, got %d", stats.RowsProcessed)
	}
	if len(h.stats.writes) != 1 {
		t.Errorf("expected stats to be flushed, got %d writes", len(h.stats.writes))
	}
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stats := &statsRecorder{}
	p := New(&fakeRoundTripper{}, testConfig(), nil)
	_, err := p.Run(ctx, &sliceReader{records: []dataset.Record{{"1", "a", "x"}}}, &sliceWriter{}, &sliceWriter{}, stats)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(stats.writes) != 1 || stats.writes[0].RowsProcessed != 0 {
		t.Errorf("expected zero stats flushed once, got %+v", stats.writes)
	}
}

func TestRun_PanicStillFlushesStats(t *testing.T) {
	stats := &statsRecorder{}
	p := New(&panickingRoundTripper{}, testConfig(), nil)

	func() {
		defer func() {
			if recover() == nil {
				t.Error("expected panic to propagate")
			}
		}()
		p.Run(context.Background(), &sliceReader{records: []dataset.Record{{"1", "a", "x"}}}, &sliceWriter{}, &sliceWriter{}, stats)
	}()

	if len(stats.writes) != 1 {
		t.Errorf("expected stats flushed during unwinding, got %d writes", len(stats.writes))
	}
}

type panickingRoundTripper struct{}

func (panickingRoundTripper) RoundTrip(ctx context.Context, text, lang string) (string, error) {
	panic("boom")
}

func TestRun_StatsWriteErrorIsReported(t *testing.T) {
	p := New(&fakeRoundTripper{}, testConfig(), nil)
	_, err := p.Run(context.Background(), &sliceReader{}, &sliceWriter{}, &sliceWriter{}, failingStats{})
	if err == nil || !strings.Contains(err.Error(), "failed to write stats") {
		t.Errorf("expected stats write error, got %v", err)
	}
}

type failingStats struct{}

func (failingStats) WriteStats(Stats) error { return errors.New("disk full") }

func TestRun_LedgerErrorIsNotFatal(t *testing.T) {
	rt := &fakeRoundTripper{results: map[string]map[string]string{"de": {"a": "b"}}}
	ledger := &ledgerRecorder{err: errors.New("database is locked")}

	p := New(rt, testConfig(), nil).WithLedger(ledger)
	stats, err := p.Run(context.Background(), &sliceReader{records: []dataset.Record{{"1", "a", "x"}}}, &sliceWriter{}, &sliceWriter{}, &statsRecorder{})
	if err != nil {
		t.Fatalf("ledger failures must not stop the run: %v", err)
	}
	if stats.RowsProcessed != 1 {
		t.Errorf("expected 1 row, got %d", stats.RowsProcessed)
	}
}

func TestRunFiles(t *testing.T) {
	dir := t.TempDir()
	paths := Paths{
		Input:        filepath.Join(dir, "original_train.csv"),
		Primary:      filepath.Join(dir, "new_samples_full.csv"),
		WithFallback: filepath.Join(dir, "new_samples_full_with_fallback.csv"),
		Stats:        filepath.Join(dir, "stats.csv"),
	}
	input := "Q1,What color is the sky?,decomp1\nQ2,Who?,decomp2\n"
	if err := os.WriteFile(paths.Input, []byte(input), 0644); err != nil {
		t.Fatalf("failed to write input: %v", err)
	}

	rt := &fakeRoundTripper{results: map[string]map[string]string{
		"ja": {"what color is the sky?": "what is the sky's color?"},
	}}
	stats, err := New(rt, testConfig(), nil).RunFiles(context.Background(), paths)
	if err != nil {
		t.Fatalf("RunFiles failed: %v", err)
	}
	if stats != (Stats{RowsProcessed: 2, FallbackUsage: 2, FallbackFail: 1}) {
		t.Errorf("unexpected stats: %+v", stats)
	}

	expectFile(t, paths.Primary, "Q1,what color is the sky?,decomp1\nQ2,who?,decomp2\n")
	expectFile(t, paths.WithFallback, "Q1,what color is the sky?,decomp1\nQ1_ja,what is the sky's color?,decomp1\nQ2,who?,decomp2\n")
	expectFile(t, paths.Stats, "current row number,2\nfallback usage,2\nfallback fail,1\n")
}

func TestRunFiles_ErrorStillWritesStats(t *testing.T) {
	dir := t.TempDir()
	paths := Paths{
		Input:        filepath.Join(dir, "in.csv"),
		Primary:      filepath.Join(dir, "p.csv"),
		WithFallback: filepath.Join(dir, "f.csv"),
		Stats:        filepath.Join(dir, "stats.csv"),
	}
	os.WriteFile(paths.Input, []byte("Q1,Hi,d\nQ2,Bye,d\n"), 0644)

	rt := &fakeRoundTripper{
		results: map[string]map[string]string{"de": {"hi": "hello"}},
		failOn:  map[string]error{"de:bye": errors.New("network down")},
	}
	_, err := New(rt, testConfig(), nil).RunFiles(context.Background(), paths)
	if err == nil {
		t.Fatal("expected error")
	}

	expectFile(t, paths.Stats, "current row number,1\nfallback usage,0\nfallback fail,0\n")
	// Buffered rows written before the failure are flushed on the way out.
	expectFile(t, paths.Primary, "Q1,hi,d\nQ1_de,hello,d\nQ2,bye,d\n")
}

func TestRunFiles_MissingInput(t *testing.T) {
	dir := t.TempDir()
	_, err := New(&fakeRoundTripper{}, testConfig(), nil).RunFiles(context.Background(), Paths{
		Input:        filepath.Join(dir, "missing.csv"),
		Primary:      filepath.Join(dir, "p.csv"),
		WithFallback: filepath.Join(dir, "f.csv"),
		Stats:        filepath.Join(dir, "stats.csv"),
	})
	if err == nil {
		t.Fatal("expected error for missing input")
	}
}

func TestStatsFile_WriteStats(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.csv")
	if err := StatsFile(path).WriteStats(Stats{RowsProcessed: 7, FallbackUsage: 2, FallbackFail: 1}); err != nil {
		t.Fatalf("WriteStats failed: %v", err)
	}
	expectFile(t, path, "current row number,7\nfallback usage,2\nfallback fail,1\n")
}

func expectFile(t *testing.T, path, want string) {
	t.Helper()
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	if string(got) != want {
		t.Errorf("%s:\nexpected %q\ngot      %q", filepath.Base(path), want, string(got))
	}
}
