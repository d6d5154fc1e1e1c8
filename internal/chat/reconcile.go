package chat

import "log"

// Disconnect reconciles the state of a lost connection: it leaves every
// room the connection was in, deleting rooms it empties, and announces the
// departure to whoever remains. Only the first call for a connection has any
// effect. Notification failures are logged; state removal always completes.
func (s *Service) Disconnect(conn ConnectionID) {
	sess, ok := s.sessions.Remove(conn)
	if !ok {
		return
	}
	log.Printf("Client disconnected: %s", conn)

	for _, id := range roomsToLeave(sess, s.registry.RoomsOf(conn)) {
		name, _ := sess.Name(RoomChannel(id))
		s.removeFromRoom(conn, id, name)
	}

	if !sess.InPublic() {
		return
	}
	name, _ := sess.Name(PublicChannel)
	if name == "" {
		return
	}
	if err := s.relay.NotifyLeave(PublicChannel, name); err != nil {
		log.Printf("Error announcing departure of %q from public chat: %v", name, err)
		return
	}
	log.Printf("%s left public chat.", name)
}

// roomsToLeave merges the tracked rooms of a session with the rooms a
// registry scan found, without duplicates.
func roomsToLeave(sess *Session, scanned []RoomID) []RoomID {
	seen := make(map[RoomID]struct{})
	var ids []RoomID
	for _, id := range append(sess.Rooms(), scanned...) {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}
