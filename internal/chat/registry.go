package chat

import (
	"fmt"
	"strings"
	"sync"
)

// room is owned by the Registry; nothing outside it holds a reference.
type room struct {
	id      RoomID
	name    string
	hash    PasswordHash
	members map[ConnectionID]struct{}
}

// LeaveResult describes the outcome of Registry.Leave.
type LeaveResult struct {
	// Removed is true when the connection was a member before the call.
	Removed bool
	// Deleted is true when the call emptied the room and deleted it.
	Deleted bool
	// Remaining holds the members left after removal.
	Remaining []ConnectionID
}

// Registry tracks every private room and its membership. All membership
// reads and writes are serialized by a single mutex; password hashing and
// verification always run with the mutex released.
type Registry struct {
	mu       sync.Mutex
	rooms    map[RoomID]*room
	verifier PasswordVerifier
	newID    func() RoomID
}

// NewRegistry creates an empty Registry that checks room secrets with
// verifier.
func NewRegistry(verifier PasswordVerifier) *Registry {
	return &Registry{
		rooms:    make(map[RoomID]*room),
		verifier: verifier,
		newID:    NewRoomID,
	}
}

// CreateRoom stores a new room with no members and returns its id. The
// secret is hashed exactly as given, so JoinRoom must be called with the
// same string.
func (r *Registry) CreateRoom(name, secret string) (RoomID, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.TrimSpace(secret) == "" {
		return "", fmt.Errorf("%w: room name and password are required", ErrInvalidInput)
	}

	hash, err := r.verifier.Hash(secret)
	if err != nil {
		return "", fmt.Errorf("hashing room password: %w", err)
	}

	rm := &room{
		id:      r.newID(),
		name:    name,
		hash:    hash,
		members: make(map[ConnectionID]struct{}),
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.rooms[rm.id]; exists {
		panic(fmt.Sprintf("chat: room id collision on %s", rm.id))
	}
	r.rooms[rm.id] = rm
	return rm.id, nil
}

// JoinRoom adds conn to the room after checking secret and returns the
// room's display name. Joining a room twice leaves membership unchanged.
func (r *Registry) JoinRoom(id RoomID, conn ConnectionID, secret string) (string, error) {
	r.mu.Lock()
	rm, ok := r.rooms[id]
	var hash PasswordHash
	if ok {
		hash = rm.hash
	}
	r.mu.Unlock()

	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	if !r.verifier.Verify(secret, hash) {
		return "", fmt.Errorf("%w: room %s", ErrBadPassword, id)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// The room may have been emptied and deleted while the secret was
	// being verified.
	if current, ok := r.rooms[id]; !ok || current != rm {
		return "", fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	rm.members[conn] = struct{}{}
	return rm.name, nil
}

// Leave removes conn from the room. A room left without members is
// deleted before the lock is released.
func (r *Registry) Leave(id RoomID, conn ConnectionID) LeaveResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[id]
	if !ok {
		return LeaveResult{}
	}
	if _, member := rm.members[conn]; !member {
		return LeaveResult{Remaining: memberList(rm)}
	}

	delete(rm.members, conn)
	if len(rm.members) > 0 {
		return LeaveResult{Removed: true, Remaining: memberList(rm)}
	}

	r.deleteLocked(id)
	return LeaveResult{Removed: true, Deleted: true}
}

func (r *Registry) deleteLocked(id RoomID) {
	if _, ok := r.rooms[id]; !ok {
		panic(fmt.Sprintf("chat: room %s deleted twice", id))
	}
	delete(r.rooms, id)
}

// MembersOf returns a snapshot of the room's members. The second return
// value is false when the room does not exist.
func (r *Registry) MembersOf(id RoomID) ([]ConnectionID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[id]
	if !ok {
		return nil, false
	}
	return memberList(rm), true
}

// IsMember reports whether conn currently belongs to the room.
func (r *Registry) IsMember(id RoomID, conn ConnectionID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[id]
	if !ok {
		return false
	}
	_, member := rm.members[conn]
	return member
}

// RoomsOf scans every room and returns those conn belongs to.
func (r *Registry) RoomsOf(conn ConnectionID) []RoomID {
	r.mu.Lock()
	defer r.mu.Unlock()

	var ids []RoomID
	for id, rm := range r.rooms {
		if _, member := rm.members[conn]; member {
			ids = append(ids, id)
		}
	}
	return ids
}

// Name returns the display name of the room.
func (r *Registry) Name(id RoomID) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[id]
	if !ok {
		return "", false
	}
	return rm.name, true
}

// Len returns the number of live rooms.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms)
}

func memberList(rm *room) []ConnectionID {
	members := make([]ConnectionID, 0, len(rm.members))
	for conn := range rm.members {
		members = append(members, conn)
	}
	return members
}
