package chat

import "sync"

// Channel is a broadcast scope. The zero value is the public channel.
type Channel struct {
	Room RoomID
}

// PublicChannel is the single well-known channel every connection may join.
var PublicChannel = Channel{}

// RoomChannel addresses the private room with the given id.
func RoomChannel(id RoomID) Channel {
	return Channel{Room: id}
}

// IsPublic reports whether c is the public channel.
func (c Channel) IsPublic() bool {
	return c.Room == ""
}

func (c Channel) String() string {
	if c.IsPublic() {
		return "public"
	}
	return "room " + string(c.Room)
}

// Session is the per-connection state kept by the Tracker.
type Session struct {
	ID ConnectionID

	names       map[Channel]string
	memberships map[Channel]struct{}
}

// Name returns the display name recorded for ch.
func (s *Session) Name(ch Channel) (string, bool) {
	name, ok := s.names[ch]
	return name, ok
}

// Rooms returns the private rooms recorded for the session.
func (s *Session) Rooms() []RoomID {
	var ids []RoomID
	for ch := range s.memberships {
		if !ch.IsPublic() {
			ids = append(ids, ch.Room)
		}
	}
	return ids
}

// InPublic reports whether the session joined the public channel.
func (s *Session) InPublic() bool {
	_, ok := s.memberships[PublicChannel]
	return ok
}

// Tracker associates connections with their display names and channel
// memberships.
type Tracker struct {
	mu        sync.RWMutex
	sessions  map[ConnectionID]*Session
	sanitizer Sanitizer
}

// NewTracker creates an empty Tracker.
func NewTracker(sanitizer Sanitizer) *Tracker {
	return &Tracker{
		sessions:  make(map[ConnectionID]*Session),
		sanitizer: sanitizer,
	}
}

// OnConnect registers a session with no name and no memberships. Calling it
// again for a live connection keeps the existing session.
func (t *Tracker) OnConnect(conn ConnectionID) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.sessions[conn]; ok {
		return
	}
	t.sessions[conn] = &Session{
		ID:          conn,
		names:       make(map[Channel]string),
		memberships: make(map[Channel]struct{}),
	}
}

// SetName sanitizes rawName, stores it as the connection's name for ch and
// returns the stored value. Empty names are stored as given.
func (t *Tracker) SetName(conn ConnectionID, ch Channel, rawName string) string {
	name := t.sanitizer.Sanitize(rawName)

	t.mu.Lock()
	defer t.mu.Unlock()

	if s, ok := t.sessions[conn]; ok {
		s.names[ch] = name
	}
	return name
}

// Name returns the connection's display name for ch.
func (t *Tracker) Name(conn ConnectionID, ch Channel) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	s, ok := t.sessions[conn]
	if !ok {
		return "", false
	}
	return s.Name(ch)
}

// RecordMembership notes that conn joined ch.
func (t *Tracker) RecordMembership(conn ConnectionID, ch Channel) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.sessions[conn]
	if !ok {
		return false
	}
	s.memberships[ch] = struct{}{}
	return true
}

// ClearMembership forgets that conn joined ch, along with its name there.
func (t *Tracker) ClearMembership(conn ConnectionID, ch Channel) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if s, ok := t.sessions[conn]; ok {
		delete(s.memberships, ch)
		delete(s.names, ch)
	}
}

// Memberships returns every channel conn is recorded in.
func (t *Tracker) Memberships(conn ConnectionID) []Channel {
	t.mu.RLock()
	defer t.mu.RUnlock()

	s, ok := t.sessions[conn]
	if !ok {
		return nil
	}
	channels := make([]Channel, 0, len(s.memberships))
	for ch := range s.memberships {
		channels = append(channels, ch)
	}
	return channels
}

// IsMember reports whether conn is recorded in ch.
func (t *Tracker) IsMember(conn ConnectionID, ch Channel) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	s, ok := t.sessions[conn]
	if !ok {
		return false
	}
	_, member := s.memberships[ch]
	return member
}

// PublicMembers returns the connections that joined the public channel.
func (t *Tracker) PublicMembers() []ConnectionID {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var members []ConnectionID
	for id, s := range t.sessions {
		if s.InPublic() {
			members = append(members, id)
		}
	}
	return members
}

// Remove deletes the session and returns it. Only the first call for a
// connection reports true.
func (t *Tracker) Remove(conn ConnectionID) (*Session, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.sessions[conn]
	if !ok {
		return nil, false
	}
	delete(t.sessions, conn)
	return s, true
}

// Len returns the number of live sessions.
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.sessions)
}
