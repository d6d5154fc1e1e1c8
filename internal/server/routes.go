// Package server wires HTTP handlers into a ServeMux for the relaychat
// application via routing helpers.
package server

import "net/http"

// SetupRoutes configures and returns an HTTP ServeMux with all application routes.
// It sets up handlers for the health check, stats, and the WebSocket endpoint.
func SetupRoutes(hub *Hub) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", HealthHandler)
	mux.HandleFunc("/healthz", StatsHandler(hub))
	mux.HandleFunc("/ws", WebSocketHandler(hub))
	return mux
}
