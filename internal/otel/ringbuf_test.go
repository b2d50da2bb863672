package otel

import (
	"sync"
	"testing"
)

func TestLastInOrder(t *testing.T) {
	r := NewRingBuffer(8)
	for i := 0; i < 5; i++ {
		r.Push(Event{Kind: KindStreamFrame, Count: i})
	}

	got := r.Last(3)
	if len(got) != 3 {
		t.Fatalf("expected 3 events, got %d", len(got))
	}
	for i, e := range got {
		if e.Count != i+2 {
			t.Errorf("got[%d].Count=%d, want %d", i, e.Count, i+2)
		}
	}
}

func TestWrapAround(t *testing.T) {
	r := NewRingBuffer(4)
	for i := 0; i < 10; i++ {
		r.Push(Event{Kind: KindStreamFrame, Count: i})
	}

	got := r.Last(10)
	if len(got) != 4 {
		t.Fatalf("expected 4 events, got %d", len(got))
	}
	for i, e := range got {
		if e.Count != i+6 {
			t.Errorf("got[%d].Count=%d, want %d", i, e.Count, i+6)
		}
	}
	if r.Total(KindStreamFrame) != 10 {
		t.Errorf("Total should include evicted events, got %d", r.Total(KindStreamFrame))
	}
}

func TestLastEdgeCases(t *testing.T) {
	r := NewRingBuffer(4)
	if r.Last(2) != nil {
		t.Error("empty buffer should return nil")
	}
	r.Push(Event{Kind: KindStartup})
	if r.Last(0) != nil || r.Last(-1) != nil {
		t.Error("non-positive n should return nil")
	}
	if NewRingBuffer(0).Len() != 0 {
		t.Error("new buffer should be empty")
	}
}

func TestPushCopiesExtra(t *testing.T) {
	r := NewRingBuffer(4)
	extra := map[string]any{"line": "data: {"}
	r.Push(Event{Kind: KindStreamMalformed, Extra: extra})
	extra["line"] = "changed"

	if got := r.Last(1)[0].Extra["line"]; got != "data: {" {
		t.Errorf("Extra aliased caller map: %v", got)
	}
}

func TestConcurrentPushLast(t *testing.T) {
	r := NewRingBuffer(16)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				r.Push(Event{Kind: KindStreamFrame})
				_ = r.Last(4)
			}
		}()
	}
	wg.Wait()
	if r.Len() != 16 || r.Total(KindStreamFrame) != 800 {
		t.Errorf("len=%d total=%d", r.Len(), r.Total(KindStreamFrame))
	}
}
