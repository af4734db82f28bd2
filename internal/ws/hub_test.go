package ws

import (
	"errors"
	"sync"
	"testing"
	"time"
)

type recordingSubscriber struct {
	mu       sync.Mutex
	payloads [][]byte
	fail     bool
	closed   bool
}

func (s *recordingSubscriber) Send(payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("send failed")
	}
	s.payloads = append(s.payloads, payload)
	return nil
}

func (s *recordingSubscriber) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

func (s *recordingSubscriber) received() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]byte(nil), s.payloads...)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestBroadcastReachesOnlyTopicSubscribers(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	a := &recordingSubscriber{}
	b := &recordingSubscriber{}
	hub.Register("deploy-1", a)
	hub.Register("deploy-2", b)

	hub.Broadcast("deploy-1", []byte("line one"))

	waitFor(t, func() bool { return len(a.received()) == 1 })
	if got := len(b.received()); got != 0 {
		t.Fatalf("subscriber of another topic received %d payloads", got)
	}
}

func TestLateSubscriberMissesEarlierEvents(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	early := &recordingSubscriber{}
	hub.Register("deploy-1", early)
	hub.Broadcast("deploy-1", []byte("before join"))
	waitFor(t, func() bool { return len(early.received()) == 1 })

	late := &recordingSubscriber{}
	hub.Register("deploy-1", late)
	hub.Broadcast("deploy-1", []byte("after join"))

	waitFor(t, func() bool { return len(late.received()) == 1 })
	if string(late.received()[0]) != "after join" {
		t.Fatalf("late subscriber saw %q", late.received()[0])
	}
}

func TestFailingSubscriberIsEvicted(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	bad := &recordingSubscriber{fail: true}
	good := &recordingSubscriber{}
	hub.Register("deploy-1", bad)
	hub.Register("deploy-1", good)

	hub.Broadcast("deploy-1", []byte("first"))
	hub.Broadcast("deploy-1", []byte("second"))

	waitFor(t, func() bool { return len(good.received()) == 2 })
	bad.mu.Lock()
	closed := bad.closed
	bad.mu.Unlock()
	if !closed {
		t.Fatal("failing subscriber was not closed")
	}
}

func TestOrderingPreservedWithinTopic(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	sub := &recordingSubscriber{}
	hub.Register("deploy-1", sub)

	for i := byte('a'); i < 'a'+10; i++ {
		hub.Broadcast("deploy-1", []byte{i})
	}

	waitFor(t, func() bool { return len(sub.received()) == 10 })
	for i, payload := range sub.received() {
		if payload[0] != byte('a'+i) {
			t.Fatalf("payload %d out of order: %q", i, payload)
		}
	}
}
