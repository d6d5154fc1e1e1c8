// Package chat implements the room registry and broadcast relay behind the
// relaychat server.
//
// Connections are tracked by a Tracker, private rooms are owned by a
// Registry, and every broadcast goes through a Relay so that members of one
// channel observe its events in the same order. The Service type binds these
// pieces to the inbound events of the wire protocol and performs disconnect
// reconciliation.
package chat
