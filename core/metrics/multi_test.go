package metrics

import (
	"errors"
	"testing"
)

// TestMultiSink ensures events are forwarded to all sinks.

type recordSink struct {
	count  int
	closed bool
}

func (r *recordSink) RecordStage(StageEvent) error {
	r.count++
	return nil
}

func (r *recordSink) RecordRun(RunSummary) error {
	r.count++
	return nil
}

func (r *recordSink) Close() error {
	r.closed = true
	return nil
}

type stageOnly struct{ err error }

func (s stageOnly) RecordStage(StageEvent) error { return s.err }

func TestMultiSink(t *testing.T) {
	s1 := &recordSink{}
	s2 := &recordSink{}
	m := NewMultiSink(s1, stageOnly{}, s2)
	if err := m.RecordStage(StageEvent{Stage: "backfill"}); err != nil {
		t.Fatalf("record stage: %v", err)
	}
	if err := m.RecordRun(RunSummary{}); err != nil {
		t.Fatalf("record run: %v", err)
	}
	if s1.count != 2 || s2.count != 2 {
		t.Fatalf("events not forwarded")
	}
	if err := m.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !s1.closed || !s2.closed {
		t.Fatalf("sinks not closed")
	}
}

func TestMultiSinkFirstError(t *testing.T) {
	boom := errors.New("boom")
	s := &recordSink{}
	m := NewMultiSink(stageOnly{err: boom}, s)
	if err := m.RecordStage(StageEvent{}); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if s.count != 0 {
		t.Fatalf("sink after failing one should not be called")
	}
}
