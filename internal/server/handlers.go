// Package server exposes HTTP handlers, including WebSocket upgrades and
// health checks.
package server

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/Tyrowin/relaychat/internal/chat"
	"github.com/gorilla/websocket"
)

const healthText = "Multiplayer Chat Server is Running."

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     checkOrigin,
}

// WebSocketHandler returns a handler that upgrades requests to WebSocket
// connections and registers them with hub. Only GET requests are accepted.
func WebSocketHandler(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("WebSocket upgrade failed: %v", err)
			return
		}

		client := NewClient(conn, hub, r.RemoteAddr)

		// The hub launches the pump goroutines once the client is registered.
		if !hub.Register(client) {
			log.Printf("Rejecting connection from %s: hub is shutting down", r.RemoteAddr)
			_ = conn.Close()
		}
	}
}

// HealthHandler provides a simple health check endpoint that returns server status.
// It responds with a plain text message indicating the server is running.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprint(w, healthText)
}

// healthStatus is the body served by StatsHandler.
type healthStatus struct {
	Status  string `json:"status"`
	Clients int    `json:"clients"`
	chat.Stats
}

// StatsHandler reports connection, session and room counts as JSON.
func StatsHandler(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		status := healthStatus{
			Status:  "ok",
			Clients: hub.ClientCount(),
			Stats:   hub.Service().Stats(),
		}
		if err := json.NewEncoder(w).Encode(status); err != nil {
			log.Printf("Error writing stats response: %v", err)
		}
	}
}
