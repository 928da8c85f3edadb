package realtime

import (
	"sync"
)

// fakeConn records every event sent to it
type fakeConn struct {
	id     ConnID
	mu     sync.Mutex
	events []Event
	closed bool
}

func newFakeConn(id string) *fakeConn {
	return &fakeConn{id: ConnID(id)}
}

func (f *fakeConn) ID() ConnID {
	return f.id
}

func (f *fakeConn) Send(event Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrConnClosed
	}
	f.events = append(f.events, event)
	return nil
}

func (f *fakeConn) close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *fakeConn) names() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.events))
	for i, e := range f.events {
		out[i] = e.Name
	}
	return out
}

func (f *fakeConn) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, e := range f.events {
		if e.Name == name {
			n++
		}
	}
	return n
}

// last returns the most recent event called name
func (f *fakeConn) last(name string) (Event, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.events) - 1; i >= 0; i-- {
		if f.events[i].Name == name {
			return f.events[i], true
		}
	}
	return Event{}, false
}

func (f *fakeConn) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = nil
}
