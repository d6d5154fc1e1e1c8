package chat

import (
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// recorder is a Deliverer that keeps every event per target connection.
type recorder struct {
	mu     sync.Mutex
	events map[ConnectionID][]Event
	err    error
}

func newRecorder() *recorder {
	return &recorder{events: make(map[ConnectionID][]Event)}
}

func (r *recorder) Deliver(targets []ConnectionID, ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	for _, conn := range targets {
		r.events[conn] = append(r.events[conn], ev)
	}
	return nil
}

func (r *recorder) received(conn ConnectionID) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events[conn]...)
}

func (r *recorder) total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, evs := range r.events {
		n += len(evs)
	}
	return n
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = make(map[ConnectionID][]Event)
}

var fixedNow = time.Date(2024, 3, 1, 12, 30, 45, 123000000, time.UTC)

func newTestService(t *testing.T) (*Service, *recorder) {
	t.Helper()
	rec := newRecorder()
	svc := NewService(Options{
		Deliverer: rec,
		Verifier:  NewBcryptVerifier(bcrypt.MinCost),
		LinkBase:  "https://chat.example.com/",
		Now:       func() time.Time { return fixedNow },
	})
	return svc, rec
}

func connect(svc *Service, ids ...ConnectionID) {
	for _, id := range ids {
		svc.Connect(id)
	}
}
