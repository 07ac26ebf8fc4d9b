package trace

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/nstehr/saltbot/saltbot-core/ipc"
)

func TestStepWriterRoundTrip(t *testing.T) {
	path := TracePath(t.TempDir(), "ep-1")
	w, err := CreateStepWriter(path)
	if err != nil {
		t.Fatalf("CreateStepWriter: %v", err)
	}
	recs := []StepRecord{
		{Episode: "ep-1", Seq: 1, Phase: "macro", Call: ipc.NewCall(2, ipc.NotQueued, []int{42, 32})},
		{Episode: "ep-1", Seq: 2, Phase: "macro", Call: ipc.NewCall(485, ipc.Queued), Events: []string{"probe trained"}},
	}
	for _, r := range recs {
		if err := w.Write(r); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if err := w.Write(recs[0]); err == nil {
		t.Error("write after close should fail")
	}

	got, err := ReadSteps(path)
	if err != nil {
		t.Fatalf("ReadSteps: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("read %d records, want 2", len(got))
	}
	if got[0].Call.Function != 2 || got[0].Call.Arguments[1][0] != 42 {
		t.Errorf("first call = %+v", got[0].Call)
	}
	if got[1].Seq != 2 || len(got[1].Events) != 1 {
		t.Errorf("second record = %+v", got[1])
	}
}

func TestStepWriterFlushesBeforeClose(t *testing.T) {
	path := TracePath(t.TempDir(), "crashed")
	w, err := CreateStepWriter(path)
	if err != nil {
		t.Fatalf("CreateStepWriter: %v", err)
	}
	defer w.Close()

	// a quiet record stays buffered, one with events is flushed with it
	w.Write(StepRecord{Episode: "crashed", Seq: 1, Call: ipc.NewCall(0)})
	w.Write(StepRecord{Episode: "crashed", Seq: 2, Call: ipc.NewCall(70), Events: []string{"structure_ordered: pylon"}})

	got, err := ReadSteps(path)
	if err != nil {
		t.Logf("reading an unfinished trace: %v", err)
	}
	if len(got) != 2 || got[1].Seq != 2 {
		t.Fatalf("recovered %d records before Close, want 2", len(got))
	}

	// quiet records are flushed in batches
	for i := 3; i < 3+flushEvery; i++ {
		w.Write(StepRecord{Episode: "crashed", Seq: i, Call: ipc.NewCall(0)})
	}
	got, _ = ReadSteps(path)
	if len(got) < flushEvery {
		t.Errorf("recovered %d records, want at least %d", len(got), flushEvery)
	}
}

func TestDecodeStepsBadLine(t *testing.T) {
	var buf bytes.Buffer
	enc, err := zstd.NewWriter(&buf)
	if err != nil {
		t.Fatal(err)
	}
	enc.Write([]byte(`{"seq":1}` + "\n" + `not json` + "\n"))
	enc.Close()

	got, err := DecodeSteps(&buf)
	if err == nil {
		t.Fatal("expected error for malformed line")
	}
	if len(got) != 1 {
		t.Errorf("records before the bad line = %d, want 1", len(got))
	}
}

func TestIndexLifecycle(t *testing.T) {
	ctx := context.Background()
	idx, err := OpenIndex(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("OpenIndex: %v", err)
	}
	defer idx.Close()

	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b"} {
		ep := Episode{ID: id, Player: "p1", Race: "protoss", Profile: "macro", StartedAt: start.Add(time.Duration(i) * time.Minute)}
		if err := idx.Begin(ctx, ep); err != nil {
			t.Fatalf("Begin %s: %v", id, err)
		}
	}
	if err := idx.Begin(ctx, Episode{ID: "a", Player: "p1", Profile: "macro", StartedAt: start}); err == nil {
		t.Error("duplicate episode id should fail")
	}

	if err := idx.End(ctx, "a", "victory", 120, 80, start.Add(5*time.Minute)); err != nil {
		t.Fatalf("End: %v", err)
	}
	if err := idx.End(ctx, "missing", "", 0, 0, start); err == nil {
		t.Error("ending an unknown episode should fail")
	}

	ep, ok, err := idx.Get(ctx, "a")
	if err != nil || !ok {
		t.Fatalf("Get(a) = %v, %v", ok, err)
	}
	if !ep.Ended() || ep.Outcome != "victory" || ep.Steps != 120 || ep.Actions != 80 {
		t.Errorf("episode a = %+v", ep)
	}
	if !ep.StartedAt.Equal(start) {
		t.Errorf("started_at = %v, want %v", ep.StartedAt, start)
	}

	recent, err := idx.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recent) != 2 || recent[0].ID != "b" {
		t.Errorf("Recent = %+v, want b first", recent)
	}
	if recent[0].Ended() {
		t.Error("episode b should still be open")
	}

	if _, ok, _ := idx.Get(ctx, "nope"); ok {
		t.Error("Get(nope) should miss")
	}
}

func TestRecorder(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	idx, err := OpenIndex(filepath.Join(dir, "index.db"))
	if err != nil {
		t.Fatalf("OpenIndex: %v", err)
	}
	rec := NewRecorder(filepath.Join(dir, "traces"), idx)
	defer rec.Close()

	if err := rec.BeginEpisode(ctx, Episode{ID: "ep", Player: "p1", Profile: "macro"}); err != nil {
		t.Fatalf("BeginEpisode: %v", err)
	}
	for i := 1; i <= 3; i++ {
		if err := rec.RecordStep(StepRecord{Episode: "ep", Seq: i, Call: ipc.NewCall(0)}); err != nil {
			t.Fatalf("RecordStep: %v", err)
		}
	}
	// Steps for an episode that was never begun are dropped.
	if err := rec.RecordStep(StepRecord{Episode: "other"}); err != nil {
		t.Errorf("RecordStep for unknown episode: %v", err)
	}
	if err := rec.EndEpisode(ctx, "ep", "defeat", 3, 0); err != nil {
		t.Fatalf("EndEpisode: %v", err)
	}

	ep, ok, err := idx.Get(ctx, "ep")
	if err != nil || !ok {
		t.Fatalf("Get: %v %v", ok, err)
	}
	if ep.TracePath != TracePath(filepath.Join(dir, "traces"), "ep") {
		t.Errorf("trace path = %q", ep.TracePath)
	}
	steps, err := ReadSteps(ep.TracePath)
	if err != nil {
		t.Fatalf("ReadSteps: %v", err)
	}
	if len(steps) != 3 {
		t.Errorf("trace has %d steps, want 3", len(steps))
	}
}

func TestRecorderWithoutSinks(t *testing.T) {
	rec := NewRecorder("", nil)
	ctx := context.Background()
	if err := rec.BeginEpisode(ctx, Episode{ID: "x"}); err != nil {
		t.Fatal(err)
	}
	if err := rec.RecordStep(StepRecord{Episode: "x"}); err != nil {
		t.Fatal(err)
	}
	if err := rec.EndEpisode(ctx, "x", "", 0, 0); err != nil {
		t.Fatal(err)
	}
	if err := rec.Close(); err != nil {
		t.Fatal(err)
	}
}
