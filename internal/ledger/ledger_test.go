package ledger

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/gravitas-games/logistics/internal/stash"
)

func sampleReport(id string, finished time.Time, states ...stash.LegState) stash.Report {
	r := stash.Report{
		RunID:        id,
		Unit:         "sv-1",
		Source:       "sv-1/inventory",
		StartedAt:    finished.Add(-time.Millisecond),
		FinishedAt:   finished,
		IndexedItems: 2,
		Overflow:     &stash.Destination{Container: "spoils", Inventory: "spoils/main"},
		Legs:         make([]stash.Leg, 0),
	}
	for i, s := range states {
		r.Legs = append(r.Legs, stash.Leg{
			Item:        "wood",
			Source:      "sv-1/inventory",
			Destination: stash.Destination{Container: "chest", Inventory: "chest/storage-0"},
			Overflow:    i%2 == 1,
			Amount:      10 + i,
			State:       s,
		})
	}
	return r
}

func TestSQLiteRecordAndLoad(t *testing.T) {
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "ledger", "stash.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()
	ctx := context.Background()

	at := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	want := sampleReport("run-1", at, stash.LegAdded, stash.LegRolledBack, stash.LegRemovalFailed)
	if err := db.Record(ctx, want); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := db.Record(ctx, want); err == nil {
		t.Fatalf("expected duplicate run id to fail")
	}

	got, err := db.Run(ctx, "run-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Unit != want.Unit || !got.FinishedAt.Equal(at) || got.Overflow == nil || got.Overflow.Container != "spoils" {
		t.Fatalf("unexpected run %+v", got)
	}
	if len(got.Legs) != 3 {
		t.Fatalf("expected 3 legs, got %d", len(got.Legs))
	}
	for i := range want.Legs {
		if got.Legs[i] != want.Legs[i] {
			t.Fatalf("leg %d: expected %+v, got %+v", i, want.Legs[i], got.Legs[i])
		}
	}

	if _, err := db.Run(ctx, "missing"); !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
}

func TestSQLiteLostLegs(t *testing.T) {
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "stash.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()
	ctx := context.Background()

	base := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	reports := []stash.Report{
		sampleReport("old", base, stash.LegLost),
		sampleReport("clean", base.Add(time.Minute), stash.LegAdded),
		sampleReport("new", base.Add(2*time.Minute), stash.LegAdded, stash.LegLost),
	}
	for _, r := range reports {
		if err := db.Record(ctx, r); err != nil {
			t.Fatalf("record %s: %v", r.RunID, err)
		}
	}

	lost, err := db.LostLegs(ctx, 10)
	if err != nil {
		t.Fatalf("lost legs: %v", err)
	}
	if len(lost) != 2 || lost[0].RunID != "new" || lost[1].RunID != "old" {
		t.Fatalf("expected new then old, got %+v", lost)
	}
	if lost[0].Leg.Amount != 11 || lost[0].Leg.State != stash.LegLost {
		t.Fatalf("unexpected leg %+v", lost[0].Leg)
	}
	if lost, _ := db.LostLegs(ctx, 1); len(lost) != 1 {
		t.Fatalf("expected limit to apply")
	}
}

func TestAuditLogWritesCompressedLines(t *testing.T) {
	dir := t.TempDir()
	audit := NewAuditLog(dir)
	hour := time.Date(2024, 6, 1, 10, 15, 0, 0, time.UTC)
	audit.w.now = func() time.Time { return hour }

	if err := audit.Record(context.Background(), sampleReport("a", hour, stash.LegAdded)); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := audit.Record(context.Background(), sampleReport("b", hour, stash.LegLost)); err != nil {
		t.Fatalf("record: %v", err)
	}
	hour = hour.Add(time.Hour)
	if err := audit.Record(context.Background(), sampleReport("c", hour)); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := audit.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	first := readEntries(t, filepath.Join(dir, "stash-2024-06-01-10.jsonl.zst"))
	if len(first) != 2 || first[0].Report.RunID != "a" || first[1].Totals.Lost != 10 {
		t.Fatalf("unexpected first hour entries %+v", first)
	}
	second := readEntries(t, filepath.Join(dir, "stash-2024-06-01-11.jsonl.zst"))
	if len(second) != 1 || second[0].Report.RunID != "c" {
		t.Fatalf("unexpected second hour entries %+v", second)
	}
}

func readEntries(t *testing.T, path string) []AuditEntry {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		t.Fatalf("zstd reader: %v", err)
	}
	defer dec.Close()

	var out []AuditEntry
	sc := bufio.NewScanner(dec)
	for sc.Scan() {
		var e AuditEntry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			t.Fatalf("decode line: %v", err)
		}
		out = append(out, e)
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}
	return out
}
