package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"provenance/internal/core/patterns"
	"provenance/internal/core/record"
	"provenance/internal/services/classify/domain"
	recdom "provenance/internal/services/records/domain"
)

type fakeReader struct {
	mu      sync.Mutex
	records []record.Record
	calls   int
}

func (f *fakeReader) ListUnclassified(_ context.Context, flt recdom.Filter) ([]record.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	limit := flt.Limit
	var out []record.Record
	for _, r := range f.records {
		if r.ID <= flt.AfterID {
			continue
		}
		out = append(out, r)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeReader) ListByIDs(_ context.Context, ids []string) ([]record.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []record.Record
	for _, r := range f.records {
		if want[r.ID] {
			out = append(out, r)
		}
	}
	return out, nil
}

type fakeWriter struct {
	mu      sync.Mutex
	written map[string]domain.SignalWrite
}

func (f *fakeWriter) WriteBatch(_ context.Context, xs []domain.SignalWrite) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.written == nil {
		f.written = map[string]domain.SignalWrite{}
	}
	n := 0
	for _, x := range xs {
		if _, ok := f.written[x.RecordID]; ok {
			continue // ON CONFLICT DO NOTHING
		}
		f.written[x.RecordID] = x
		n++
	}
	return n, nil
}

func mustRegistry(t *testing.T) *patterns.Registry {
	t.Helper()
	reg, err := patterns.Load(patterns.Latest())
	if err != nil {
		t.Fatal(err)
	}
	return reg
}

func seedRecords(n int, assistedEvery int) []record.Record {
	base := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	out := make([]record.Record, 0, n)
	for i := 0; i < n; i++ {
		body := "routine maintenance change"
		if assistedEvery > 0 && i%assistedEvery == 0 {
			body = "paired with claude on this one"
		}
		out = append(out, record.Record{
			ID:        fmt.Sprintf("rec-%03d", i),
			Title:     "change",
			Body:      body,
			CreatedAt: base,
		})
	}
	return out
}

func TestRunScansAndWrites(t *testing.T) {
	reader := &fakeReader{records: seedRecords(25, 5)}
	writer := &fakeWriter{}
	svc := New(reader, writer, mustRegistry(t), Config{Workers: 4, PageSize: 10})

	rep, err := svc.Run(context.Background(), domain.Input{
		Since: time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
		Until: time.Date(2025, 5, 2, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if rep.Scanned != 25 || rep.Written != 25 {
		t.Fatalf("report = %+v", rep)
	}
	if rep.Assisted != 5 {
		t.Fatalf("assisted = %d", rep.Assisted)
	}
	// every record got exactly one signal at the loaded registry version
	if len(writer.written) != 25 {
		t.Fatalf("%d signals written", len(writer.written))
	}
	for id, w := range writer.written {
		if w.RegistryVersion != patterns.Latest() {
			t.Fatalf("record %s stamped %s", id, w.RegistryVersion)
		}
		if w.DetectedAt.IsZero() {
			t.Fatalf("record %s missing timestamp", id)
		}
	}
	sig := writer.written["rec-000"]
	if !sig.Assisted || len(sig.Tools) == 0 || sig.Tools[0] != "claude" {
		t.Fatalf("assisted signal = %+v", sig)
	}
	if writer.written["rec-001"].Assisted {
		t.Fatal("plain record flagged assisted")
	}
}

func TestRunDryRunWritesNothing(t *testing.T) {
	reader := &fakeReader{records: seedRecords(8, 2)}
	writer := &fakeWriter{}
	svc := New(reader, writer, mustRegistry(t), Config{})

	rep, err := svc.Run(context.Background(), domain.Input{
		Until:  time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		DryRun: true,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if rep.Scanned != 8 || rep.Assisted != 4 {
		t.Fatalf("report = %+v", rep)
	}
	if rep.Written != 0 || len(writer.written) != 0 {
		t.Fatal("dry run wrote signals")
	}
}

func TestRunEmptyWindow(t *testing.T) {
	svc := New(&fakeReader{}, &fakeWriter{}, mustRegistry(t), Config{})
	rep, err := svc.Run(context.Background(), domain.Input{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if rep.Scanned != 0 || rep.Written != 0 {
		t.Fatalf("report = %+v", rep)
	}
}

func TestRunRejectsInvertedWindow(t *testing.T) {
	svc := New(&fakeReader{}, &fakeWriter{}, mustRegistry(t), Config{})
	_, err := svc.Run(context.Background(), domain.Input{
		Since: time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC),
		Until: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	})
	if err == nil {
		t.Fatal("expected error for inverted window")
	}
}

func TestRerunSuppressedByConflict(t *testing.T) {
	reader := &fakeReader{records: seedRecords(6, 3)}
	writer := &fakeWriter{}
	svc := New(reader, writer, mustRegistry(t), Config{})

	until := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	if _, err := svc.Run(context.Background(), domain.Input{Until: until}); err != nil {
		t.Fatal(err)
	}
	rep, err := svc.Run(context.Background(), domain.Input{Until: until})
	if err != nil {
		t.Fatal(err)
	}
	// the reader in production would already filter these out; even when it
	// does not, the conflict key guarantees zero new writes
	if rep.Written != 0 {
		t.Fatalf("rerun wrote %d signals", rep.Written)
	}
}
