package buildpipeline

import (
	"testing"
	"time"
)

func TestTimingsSum(t *testing.T) {
	var tm Timings
	tm.Set(StageParse, 2*time.Millisecond)
	tm.Set(StageEmit, 3*time.Millisecond)

	if !tm.Has(StageParse) || tm.Has(StageWrite) {
		t.Fatalf("Has reports wrong stages")
	}
	if got := tm.Sum(); got != 5*time.Millisecond {
		t.Fatalf("want 5ms, got %v", got)
	}
	if got := tm.Sum(StageEmit); got != 3*time.Millisecond {
		t.Fatalf("want 3ms, got %v", got)
	}
}

func TestChannelSink(t *testing.T) {
	ch := make(chan Event, 1)
	Emit(ChannelSink{Ch: ch}, Event{File: "a.go", Stage: StageLoad, Status: StatusWorking})
	evt := <-ch
	if evt.File != "a.go" || evt.Stage != StageLoad {
		t.Fatalf("unexpected event %+v", evt)
	}
	Emit(nil, Event{})
	ChannelSink{}.OnEvent(Event{})
}

func TestRecordingSink(t *testing.T) {
	var s RecordingSink
	s.OnEvent(Event{File: "a.go", Status: StatusDone})
	s.OnEvent(Event{File: "b.go", Status: StatusError})
	got := s.Events()
	if len(got) != 2 || got[1].Status != StatusError {
		t.Fatalf("unexpected events %+v", got)
	}
}
