package trace

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"
)

const traceSuffix = ".jsonl.zst"

// flushEvery bounds how many records a crash can lose.
const flushEvery = 32

// TracePath is where the step log of episode id lives under dir.
func TracePath(dir, id string) string {
	return filepath.Join(dir, id+traceSuffix)
}

// StepWriter appends step records to a zstd-compressed JSONL file.
type StepWriter struct {
	path string

	mu  sync.Mutex
	f   *os.File
	enc *zstd.Encoder
	w   *bufio.Writer
	n   int
}

// CreateStepWriter opens path for writing, creating parent directories.
func CreateStepWriter(path string) (*StepWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &StepWriter{
		path: path,
		f:    f,
		enc:  enc,
		w:    bufio.NewWriterSize(enc, 64*1024),
	}, nil
}

// Write appends one record. The file is flushed every flushEvery records
// and after any record that carries events.
func (w *StepWriter) Write(rec StepRecord) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.w == nil {
		return fmt.Errorf("trace: write to closed %s", w.path)
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	w.n++
	if len(rec.Events) > 0 || w.n%flushEvery == 0 {
		return w.flushLocked()
	}
	return nil
}

// Flush pushes buffered records through the compressor to the file.
func (w *StepWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.w == nil {
		return nil
	}
	return w.flushLocked()
}

func (w *StepWriter) flushLocked() error {
	if err := w.w.Flush(); err != nil {
		return err
	}
	return w.enc.Flush()
}

// Close flushes and finishes the zstd frame. Safe to call twice.
func (w *StepWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.w == nil {
		return nil
	}
	var errs []error
	errs = append(errs, w.w.Flush())
	errs = append(errs, w.enc.Close())
	errs = append(errs, w.f.Close())
	w.w, w.enc, w.f = nil, nil, nil
	return errors.Join(errs...)
}

// ReadSteps decodes every record of a trace file.
func ReadSteps(path string) ([]StepRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return DecodeSteps(f)
}

// DecodeSteps reads zstd-compressed JSONL step records from r. A stream that
// ends mid-frame, as left by a sidecar that died before Close, yields the
// records flushed so far.
func DecodeSteps(r io.Reader) ([]StepRecord, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	var out []StepRecord
	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for line := 1; sc.Scan(); line++ {
		if len(sc.Bytes()) == 0 {
			continue
		}
		var rec StepRecord
		if err := json.Unmarshal(sc.Bytes(), &rec); err != nil {
			return out, fmt.Errorf("trace: line %d: %w", line, err)
		}
		out = append(out, rec)
	}
	if err := sc.Err(); err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return out, fmt.Errorf("trace: %w", err)
	}
	return out, nil
}
