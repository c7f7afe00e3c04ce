package gateway

import "testing"

func TestHub_BroadcastReachesAllSubscribers(t *testing.T) {
	h := newHub[int]()
	a := h.Subscribe(4)
	b := h.Subscribe(4)

	h.Broadcast(7)

	if got := <-a.ch; got != 7 {
		t.Errorf("subscriber a got %d", got)
	}
	if got := <-b.ch; got != 7 {
		t.Errorf("subscriber b got %d", got)
	}
	if h.Len() != 2 {
		t.Errorf("expected 2 subscribers, got %d", h.Len())
	}
}

func TestHub_SlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	h := newHub[int]()
	sub := h.Subscribe(1)

	h.Broadcast(1)
	h.Broadcast(2) // buffer full, must not block

	if got := <-sub.ch; got != 1 {
		t.Errorf("expected first message kept, got %d", got)
	}
	select {
	case extra := <-sub.ch:
		t.Errorf("second message should have been dropped, got %d", extra)
	default:
	}
}

func TestHub_Unsubscribe(t *testing.T) {
	h := newHub[int]()
	sub := h.Subscribe(1)

	h.Unsubscribe(sub)
	h.Unsubscribe(sub) // idempotent, no double close panic

	if h.Len() != 0 {
		t.Errorf("expected no subscribers, got %d", h.Len())
	}
	if _, open := <-sub.ch; open {
		t.Error("channel should be closed after unsubscribe")
	}

	h.Broadcast(9) // must not panic with no subscribers
}
