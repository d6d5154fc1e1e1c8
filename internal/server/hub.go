// Package server coordinates client registration, event delivery, and
// connection cleanup for the relaychat WebSocket system via the Hub type.
package server

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/Tyrowin/relaychat/internal/chat"
)

// errHubStopped is returned by Deliver once the hub has shut down.
var errHubStopped = errors.New("hub stopped")

// Hub manages all WebSocket client connections and delivers relay events to
// them. A single run loop performs every delivery, so events queued in order
// reach each client's send buffer in that order.
type Hub struct {
	clients    map[chat.ConnectionID]*Client
	broadcast  chan BroadcastMessage
	register   chan *Client
	unregister chan *Client
	mutex      sync.RWMutex
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}

	service *chat.Service
	conceal bool
}

// NewHub creates a Hub and the chat service it delivers for, configured from
// the active configuration. The returned Hub is ready to manage WebSocket
// connections once Run is started.
func NewHub() *Hub {
	cfg := currentConfig()
	ctx, cancel := context.WithCancel(context.Background())
	h := &Hub{
		clients:    make(map[chat.ConnectionID]*Client),
		broadcast:  make(chan BroadcastMessage),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
		conceal:    cfg.ConcealRoomExistence,
	}
	h.service = chat.NewService(chat.Options{
		Deliverer: h,
		Verifier:  chat.NewBcryptVerifier(cfg.BcryptCost),
		Sanitizer: chat.NewHTMLSanitizer(),
		LinkBase:  cfg.FrontendURL,
	})
	return h
}

// Service returns the chat service driven by this hub.
func (h *Hub) Service() *chat.Service {
	return h.service
}

// ClientCount returns the number of registered clients.
func (h *Hub) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// Deliver queues ev for the given connections. It implements chat.Deliverer.
func (h *Hub) Deliver(targets []chat.ConnectionID, ev chat.Event) error {
	payload, err := encodeEvent(ev)
	if err != nil {
		return err
	}

	select {
	case h.broadcast <- BroadcastMessage{Targets: targets, Payload: payload}:
		return nil
	case <-h.ctx.Done():
		return errHubStopped
	}
}

// Register hands a new client to the run loop. It returns false once the
// hub has shut down.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.ctx.Done():
		return false
	}
}

// Unregister removes a client from the hub. It is a no-op after shutdown.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.ctx.Done():
	}
}

// sendTo queues a payload for a single client outside the run loop, used
// for request acknowledgements.
func (h *Hub) sendTo(client *Client, payload []byte) bool {
	return h.safeSend(client, payload)
}

func (h *Hub) safeSend(client *Client, message []byte) bool {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic in safeSend: %v", r)
		}
	}()

	// Hold the lock during the entire send operation to prevent race conditions
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	if registered, exists := h.clients[client.id]; !exists || registered != client || client.closed {
		return false
	}

	select {
	case client.send <- message:
		return true
	default:
		return false
	}
}

// Run starts the hub's main event loop, handling client registration,
// unregistration, and event delivery. This method should be called in a
// separate goroutine as it runs until Shutdown.
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.shutdownClients()
			return

		case client := <-h.register:
			if client == nil {
				log.Printf("Received nil client registration; skipping")
				continue
			}

			h.service.Connect(client.id)
			h.mutex.Lock()
			client.closed = false
			h.clients[client.id] = client
			clientCount := len(h.clients)
			h.mutex.Unlock()
			log.Printf("New client connected: %s from %s. Total clients: %d", client.id, client.addr, clientCount)

			h.wg.Add(2)
			go func() {
				defer h.wg.Done()
				client.writePump()
			}()
			go func() {
				defer h.wg.Done()
				client.readPump()
			}()

		case client := <-h.unregister:
			h.mutex.Lock()
			if registered, ok := h.clients[client.id]; ok && registered == client {
				delete(h.clients, client.id)
				client.closed = true
				clientCount := len(h.clients)
				h.mutex.Unlock()
				// Close the channel after releasing the lock
				close(client.send)
				log.Printf("Client unregistered: %s. Total clients: %d", client.id, clientCount)
			} else {
				h.mutex.Unlock()
			}

		case msg := <-h.broadcast:
			h.handleBroadcast(msg)
		}
	}
}

// handleBroadcast delivers a queued payload to every targeted client that is
// still registered.
func (h *Hub) handleBroadcast(msg BroadcastMessage) {
	clients := h.lookupClients(msg.Targets)
	clientsToRemove := h.broadcastToClients(clients, msg.Payload)
	h.removeFailedClients(clientsToRemove)
}

// lookupClients resolves connection ids to registered clients, skipping
// connections that are already gone.
func (h *Hub) lookupClients(ids []chat.ConnectionID) []*Client {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	clients := make([]*Client, 0, len(ids))
	for _, id := range ids {
		if client, ok := h.clients[id]; ok {
			clients = append(clients, client)
		}
	}
	return clients
}

// broadcastToClients sends the payload to each client and returns the ones
// whose send buffer was full
func (h *Hub) broadcastToClients(clients []*Client, payload []byte) []*Client {
	var clientsToRemove []*Client

	for _, client := range clients {
		if !h.safeSend(client, payload) {
			clientsToRemove = append(clientsToRemove, client)
		}
	}

	return clientsToRemove
}

// removeFailedClients removes clients that failed to receive messages and closes their channels.
// Closing the channel ends the write pump, whose connection close ends the
// read pump, which runs disconnect reconciliation.
func (h *Hub) removeFailedClients(clientsToRemove []*Client) {
	if len(clientsToRemove) == 0 {
		return
	}

	h.mutex.Lock()
	var channelsToClose []chan []byte
	for _, client := range clientsToRemove {
		if registered, exists := h.clients[client.id]; exists && registered == client {
			delete(h.clients, client.id)
			client.closed = true
			channelsToClose = append(channelsToClose, client.send)
			log.Printf("Client %s removed due to full send buffer", client.id)
		}
	}
	h.mutex.Unlock()

	// Close channels after releasing the lock
	for _, ch := range channelsToClose {
		close(ch)
	}
}

// shutdownClients gracefully closes all active client connections
func (h *Hub) shutdownClients() {
	log.Println("Shutting down all client connections...")

	h.mutex.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for id, client := range h.clients {
		clients = append(clients, client)
		delete(h.clients, id)
		client.closed = true
	}
	h.mutex.Unlock()

	for _, client := range clients {
		close(client.send)
		if client.conn != nil {
			if err := client.conn.Close(); err != nil {
				if !isExpectedCloseError(err) {
					log.Printf("Error closing client connection %s: %v", client.id, err)
				}
			}
		}
	}

	log.Printf("Closed %d client connections", len(clients))
}

// Shutdown initiates graceful shutdown of the hub and waits for all goroutines to complete.
// It returns after all client connections are closed and goroutines have finished,
// or when the timeout is reached.
func (h *Hub) Shutdown(timeout time.Duration) error {
	log.Println("Initiating hub shutdown...")

	h.cancel()
	<-h.done

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Println("Hub shutdown completed successfully")
		return nil
	case <-time.After(timeout):
		log.Println("Hub shutdown timeout reached, some goroutines may still be running")
		return context.DeadlineExceeded
	}
}
