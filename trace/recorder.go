package trace

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Recorder writes step traces under dir and catalogues episodes in index.
// Either may be absent; a Recorder with neither records nothing.
// One Recorder is shared by every connection.
type Recorder struct {
	dir   string
	index *Index

	mu      sync.Mutex
	writers map[string]*StepWriter
}

func NewRecorder(dir string, index *Index) *Recorder {
	return &Recorder{
		dir:     dir,
		index:   index,
		writers: make(map[string]*StepWriter),
	}
}

// BeginEpisode opens the episode's trace file and index row.
func (r *Recorder) BeginEpisode(ctx context.Context, ep Episode) error {
	if ep.StartedAt.IsZero() {
		ep.StartedAt = time.Now()
	}
	if r.dir != "" {
		ep.TracePath = TracePath(r.dir, ep.ID)
		w, err := CreateStepWriter(ep.TracePath)
		if err != nil {
			return fmt.Errorf("trace: open %s: %w", ep.TracePath, err)
		}
		r.mu.Lock()
		if old, ok := r.writers[ep.ID]; ok {
			_ = old.Close()
		}
		r.writers[ep.ID] = w
		r.mu.Unlock()
	}
	if r.index != nil {
		return r.index.Begin(ctx, ep)
	}
	return nil
}

// RecordStep appends rec to its episode's trace.
func (r *Recorder) RecordStep(rec StepRecord) error {
	r.mu.Lock()
	w, ok := r.writers[rec.Episode]
	r.mu.Unlock()
	if !ok {
		return nil
	}
	return w.Write(rec)
}

// EndEpisode flushes the trace and stamps the index row.
func (r *Recorder) EndEpisode(ctx context.Context, id, outcome string, steps, actions int) error {
	r.mu.Lock()
	w, ok := r.writers[id]
	delete(r.writers, id)
	r.mu.Unlock()

	var errs []error
	if ok {
		errs = append(errs, w.Close())
	}
	if r.index != nil {
		errs = append(errs, r.index.End(ctx, id, outcome, steps, actions, time.Now()))
	}
	return errors.Join(errs...)
}

// Close flushes any open traces and closes the index.
func (r *Recorder) Close() error {
	r.mu.Lock()
	writers := r.writers
	r.writers = make(map[string]*StepWriter)
	r.mu.Unlock()

	var errs []error
	for _, w := range writers {
		errs = append(errs, w.Close())
	}
	if r.index != nil {
		errs = append(errs, r.index.Close())
	}
	return errors.Join(errs...)
}
