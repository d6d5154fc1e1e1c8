package chat

import (
	"fmt"
	"log"
	"strings"
	"time"
)

// Options configures a Service. Zero-valued fields get working defaults,
// except Deliverer which is required.
type Options struct {
	Deliverer Deliverer
	Verifier  PasswordVerifier
	Sanitizer Sanitizer
	// LinkBase prefixes shareable room links, e.g. "https://chat.example.com".
	LinkBase string
	Now      func() time.Time
}

// CreateResult is returned by a successful CreatePrivate.
type CreateResult struct {
	RoomID   RoomID
	RoomName string
	RoomLink string
}

// Stats is a point-in-time view of the relay's state.
type Stats struct {
	Rooms    int `json:"rooms"`
	Sessions int `json:"sessions"`
}

// Service handles the inbound events of every connection. All methods are
// safe for concurrent use.
type Service struct {
	registry  *Registry
	sessions  *Tracker
	relay     *Relay
	sanitizer Sanitizer
	linkBase  string
	now       func() time.Time
}

// NewService wires a Registry, Tracker and Relay together.
func NewService(opts Options) *Service {
	if opts.Deliverer == nil {
		panic("chat: NewService requires a Deliverer")
	}
	if opts.Verifier == nil {
		opts.Verifier = NewBcryptVerifier(DefaultBcryptCost)
	}
	if opts.Sanitizer == nil {
		opts.Sanitizer = NewHTMLSanitizer()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	registry := NewRegistry(opts.Verifier)
	sessions := NewTracker(opts.Sanitizer)
	return &Service{
		registry:  registry,
		sessions:  sessions,
		relay:     NewRelay(registry, sessions, opts.Deliverer),
		sanitizer: opts.Sanitizer,
		linkBase:  strings.TrimRight(opts.LinkBase, "/"),
		now:       opts.Now,
	}
}

// Registry exposes the room registry.
func (s *Service) Registry() *Registry {
	return s.registry
}

// Sessions exposes the session tracker.
func (s *Service) Sessions() *Tracker {
	return s.sessions
}

// Stats reports the number of live rooms and sessions.
func (s *Service) Stats() Stats {
	return Stats{Rooms: s.registry.Len(), Sessions: s.sessions.Len()}
}

// Connect starts tracking a new connection.
func (s *Service) Connect(conn ConnectionID) {
	s.sessions.OnConnect(conn)
}

// JoinPublic adds conn to the public channel under username and announces
// it. Empty usernames are accepted.
func (s *Service) JoinPublic(conn ConnectionID, username string) {
	if !s.sessions.RecordMembership(conn, PublicChannel) {
		log.Printf("Ignoring public join from unknown connection %s", conn)
		return
	}
	name := s.sessions.SetName(conn, PublicChannel, username)

	if err := s.relay.NotifyJoin(PublicChannel, name); err != nil {
		log.Printf("Error announcing %q in public chat: %v", name, err)
	}
	log.Printf("%s joined public chat.", name)
}

// PublicMessage broadcasts text to the public channel. Connections that
// have not joined the public channel are ignored.
func (s *Service) PublicMessage(conn ConnectionID, text string) {
	if !s.sessions.IsMember(conn, PublicChannel) {
		log.Printf("Dropping public message from %s: not in public chat", conn)
		return
	}
	sender, _ := s.sessions.Name(conn, PublicChannel)
	msg := NewMessage(sender, s.sanitizer.Sanitize(text), s.now())

	if err := s.relay.BroadcastToChannel(PublicChannel, Event{Name: EventPublicMessage, Data: msg}); err != nil {
		log.Printf("Error broadcasting public message from %s: %v", conn, err)
		return
	}
	log.Printf("[Public] %s: %s", sender, msg.Body)
}

// CreatePrivate creates a password-protected room. The creator is not made
// a member; it joins like everyone else.
func (s *Service) CreatePrivate(conn ConnectionID, roomName, password string) (CreateResult, error) {
	name := s.sanitizer.Sanitize(roomName)
	id, err := s.registry.CreateRoom(name, s.sanitizer.Sanitize(password))
	if err != nil {
		return CreateResult{}, err
	}

	log.Printf("%s created private room: %s (%s)", conn, name, id)
	return CreateResult{
		RoomID:   id,
		RoomName: name,
		RoomLink: s.RoomLink(id),
	}, nil
}

// RoomLink returns the shareable link for a room.
func (s *Service) RoomLink(id RoomID) string {
	return s.linkBase + "/private/" + string(id)
}

// JoinPrivate checks password and adds conn to the room under username. A
// connection belongs to at most one private room, so any room it was in
// before is left first.
func (s *Service) JoinPrivate(conn ConnectionID, roomID, password, username string) (string, error) {
	if s.sanitizer.Sanitize(username) == "" {
		return "", fmt.Errorf("%w: username is required", ErrInvalidInput)
	}
	id := RoomID(s.sanitizer.Sanitize(roomID))

	roomName, err := s.registry.JoinRoom(id, conn, s.sanitizer.Sanitize(password))
	if err != nil {
		return "", err
	}

	// The name is in place before the membership so a disconnect from this
	// point on always announces the departure.
	ch := RoomChannel(id)
	name := s.sessions.SetName(conn, ch, username)
	if !s.sessions.RecordMembership(conn, ch) {
		// The connection went away while the password was being checked
		// and reconciliation has already run.
		s.registry.Leave(id, conn)
		return "", fmt.Errorf("connection %s closed while joining %s", conn, id)
	}

	for _, prev := range s.sessions.Memberships(conn) {
		if prev.IsPublic() || prev == ch {
			continue
		}
		s.leaveRoom(conn, prev.Room)
	}

	if err := s.relay.NotifyJoin(ch, name); err != nil {
		log.Printf("Error announcing %q in room %s: %v", name, id, err)
	}
	log.Printf("%s joined private room: %s (%s)", name, roomName, id)
	return roomName, nil
}

// PrivateMessage broadcasts text to the members of a room. Messages for an
// unknown room, or from a connection outside it, are dropped.
func (s *Service) PrivateMessage(conn ConnectionID, roomID, text string) {
	id := RoomID(s.sanitizer.Sanitize(roomID))
	if !s.registry.IsMember(id, conn) {
		log.Printf("Dropping private message from %s: not a member of %s", conn, id)
		return
	}
	ch := RoomChannel(id)
	sender, _ := s.sessions.Name(conn, ch)
	msg := NewMessage(sender, s.sanitizer.Sanitize(text), s.now())

	if err := s.relay.BroadcastToChannel(ch, Event{Name: EventPrivateMessage, Data: msg}); err != nil {
		log.Printf("Error broadcasting private message from %s: %v", conn, err)
		return
	}
	log.Printf("[Private][%s] %s: %s", id, sender, msg.Body)
}

// LeavePrivate removes conn from a room it joined earlier.
func (s *Service) LeavePrivate(conn ConnectionID, roomID string) {
	id := RoomID(s.sanitizer.Sanitize(roomID))
	if !s.sessions.IsMember(conn, RoomChannel(id)) {
		return
	}
	s.leaveRoom(conn, id)
}

// leaveRoom drops the connection's membership in id from both the tracker
// and the registry.
func (s *Service) leaveRoom(conn ConnectionID, id RoomID) {
	ch := RoomChannel(id)
	name, _ := s.sessions.Name(conn, ch)
	s.sessions.ClearMembership(conn, ch)
	s.removeFromRoom(conn, id, name)
}

// removeFromRoom leaves the registry room and tells the members still in
// it. Deleted rooms have nobody left to tell.
func (s *Service) removeFromRoom(conn ConnectionID, id RoomID, name string) {
	res := s.registry.Leave(id, conn)
	if !res.Removed {
		return
	}
	log.Printf("%s left private room %s", name, id)

	if res.Deleted {
		log.Printf("Private room deleted: %s", id)
		return
	}
	if err := s.relay.notifyLeaveTo(RoomChannel(id), name, res.Remaining); err != nil {
		log.Printf("Error announcing departure of %q from room %s: %v", name, id, err)
	}
}
