package chat

import (
	"fmt"
	"sync"
)

// Deliverer hands an event to the transport for every target connection.
type Deliverer interface {
	Deliver(targets []ConnectionID, ev Event) error
}

// Relay fans events out to the current members of a channel. Issuance is
// serialized so members of a channel see its events in the same order.
type Relay struct {
	mu       sync.Mutex
	registry *Registry
	sessions *Tracker
	out      Deliverer
}

// NewRelay creates a Relay reading membership from registry and sessions.
func NewRelay(registry *Registry, sessions *Tracker, out Deliverer) *Relay {
	return &Relay{
		registry: registry,
		sessions: sessions,
		out:      out,
	}
}

// BroadcastToChannel delivers ev to every member of ch. Broadcasting to a
// room that no longer exists is a no-op.
func (r *Relay) BroadcastToChannel(ch Channel, ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	targets := r.membersOf(ch)
	if len(targets) == 0 {
		return nil
	}
	if err := r.out.Deliver(targets, ev); err != nil {
		return fmt.Errorf("delivering %s to %s: %w", ev.Name, ch, err)
	}
	return nil
}

// NotifyJoin announces name to the members of ch.
func (r *Relay) NotifyJoin(ch Channel, name string) error {
	return r.BroadcastToChannel(ch, Event{Name: EventUserJoined, Data: name})
}

// NotifyLeave announces that name left ch. Nothing is sent for an empty
// name.
func (r *Relay) NotifyLeave(ch Channel, name string) error {
	if name == "" {
		return nil
	}
	return r.BroadcastToChannel(ch, Event{Name: EventUserLeft, Data: name})
}

func (r *Relay) membersOf(ch Channel) []ConnectionID {
	if ch.IsPublic() {
		return r.sessions.PublicMembers()
	}
	members, _ := r.registry.MembersOf(ch.Room)
	return members
}

// notifyLeaveTo announces a departure to an explicit member snapshot, used
// when the snapshot was taken together with the removal.
func (r *Relay) notifyLeaveTo(ch Channel, name string, targets []ConnectionID) error {
	if name == "" || len(targets) == 0 {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	ev := Event{Name: EventUserLeft, Data: name}
	if err := r.out.Deliver(targets, ev); err != nil {
		return fmt.Errorf("delivering %s to %s: %w", ev.Name, ch, err)
	}
	return nil
}
