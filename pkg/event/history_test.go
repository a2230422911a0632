package event

import (
	"context"
	"testing"
	"time"
)

var base = time.Date(2026, time.October, 17, 12, 0, 0, 0, time.UTC)

func at(offset time.Duration, typ string) Event {
	return Event{ID: typ + offset.String(), Type: typ, Timestamp: base.Add(offset)}
}

func TestHistory_KeepsTimestampOrder(t *testing.T) {
	h := NewHistory(10)
	h.Append(at(0, "a"))
	h.Append(at(2*time.Second, "c"))
	h.Append(at(time.Second, "b"))

	got := h.Last(3)
	if len(got) != 3 || got[0].Type != "a" || got[1].Type != "b" || got[2].Type != "c" {
		t.Errorf("Last(3) = %v", got)
	}
}

func TestHistory_EvictsOldest(t *testing.T) {
	h := NewHistory(3)
	for i := 0; i < 5; i++ {
		h.Append(at(time.Duration(i)*time.Second, "e"))
	}

	if h.Len() != 3 {
		t.Fatalf("Len = %d, want 3", h.Len())
	}
	if first := h.Last(3)[0]; !first.Timestamp.Equal(base.Add(2 * time.Second)) {
		t.Errorf("oldest kept = %v, want base+2s", first.Timestamp)
	}
}

func TestHistory_SinceAndLastBounds(t *testing.T) {
	h := NewHistory(10)
	for i := 0; i < 4; i++ {
		h.Append(at(time.Duration(i)*time.Second, "e"))
	}

	if n := len(h.Since(base.Add(2 * time.Second))); n != 2 {
		t.Errorf("Since(base+2s) = %d events, want 2", n)
	}
	if n := len(h.Last(100)); n != 4 {
		t.Errorf("Last(100) = %d events, want 4", n)
	}
	if h.Last(0) != nil {
		t.Error("Last(0) should be nil")
	}
}

func TestHistory_Record(t *testing.T) {
	bus := NewInMemoryBus()
	sub, _ := bus.Subscribe(context.Background(), Filter{Types: []string{"display.*"}})

	h := NewHistory(8)
	done := make(chan struct{})
	go func() {
		h.Record(sub)
		close(done)
	}()

	ctx := context.Background()
	_ = bus.Publish(ctx, at(0, TypeVisibilityChanged))
	_ = bus.Publish(ctx, at(time.Second, TypeTimezoneChanged))
	_ = bus.Publish(ctx, at(2*time.Second, TypeModeChanged))
	_ = bus.Close()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Record did not return after bus close")
	}
	if h.Len() != 2 {
		t.Errorf("Len = %d, want 2", h.Len())
	}
}
