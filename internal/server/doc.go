// Package server implements the HTTP and WebSocket transport for relaychat.
//
// A Hub owns the live connections and delivers events produced by the chat
// package; each Client decodes JSON envelopes from its connection and hands
// them to the chat service. The implementation is organized into files for
// configuration, origin checks, the hub, clients, the wire protocol, routing,
// and HTTP handlers.
package server
