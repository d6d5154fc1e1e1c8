package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/crypto/bcrypt"
)

const testOrigin = "http://localhost:3000"

// startTestServer applies cfg, starts a hub and serves its routes. Both are
// torn down when the test ends.
func startTestServer(t *testing.T, cfg Config) (*Hub, *httptest.Server) {
	t.Helper()

	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.MinCost
	}
	SetConfig(&cfg)
	t.Cleanup(func() { SetConfig(nil) })

	hub := NewHub()
	StartHub(hub)
	testServer := httptest.NewServer(SetupRoutes(hub))
	t.Cleanup(func() {
		testServer.Close()
		if err := hub.Shutdown(2 * time.Second); err != nil {
			t.Logf("hub shutdown: %v", err)
		}
	})
	return hub, testServer
}

func wsURL(serverURL string) string {
	return "ws" + strings.TrimPrefix(serverURL, "http") + "/ws"
}

func defaultDialer() *websocket.Dialer {
	return &websocket.Dialer{HandshakeTimeout: 5 * time.Second}
}

func dial(t *testing.T, serverURL string) *websocket.Conn {
	t.Helper()

	headers := http.Header{}
	headers.Set("Origin", testOrigin)

	conn, resp, err := defaultDialer().Dial(wsURL(serverURL), headers)
	if resp != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		t.Fatalf("Failed to connect WebSocket: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// send writes one request envelope. A zero id sends no id.
func send(t *testing.T, conn *websocket.Conn, event string, id int64, data any) {
	t.Helper()

	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("Failed to marshal %s payload: %v", event, err)
	}
	env := Envelope{Event: event, Data: raw}
	if id != 0 {
		env.ID = &id
	}
	if err := conn.WriteJSON(env); err != nil {
		t.Fatalf("Failed to send %s: %v", event, err)
	}
}

func readEnvelope(t *testing.T, conn *websocket.Conn, timeout time.Duration) (Envelope, bool) {
	t.Helper()

	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		t.Fatalf("Failed to set read deadline: %v", err)
	}
	var env Envelope
	if err := conn.ReadJSON(&env); err != nil {
		return Envelope{}, false
	}
	return env, true
}

// expectEvent reads frames until an event with the given name satisfies
// match. Other frames are skipped.
func expectEvent(t *testing.T, conn *websocket.Conn, event string, match func(Envelope) bool) Envelope {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		env, ok := readEnvelope(t, conn, time.Until(deadline))
		if !ok {
			break
		}
		if env.Event == event && (match == nil || match(env)) {
			return env
		}
	}
	t.Fatalf("Did not receive %s event in time", event)
	return Envelope{}
}

func expectAck(t *testing.T, conn *websocket.Conn, id int64) AckResponse {
	t.Helper()

	env := expectEvent(t, conn, eventAck, func(env Envelope) bool {
		return env.ID != nil && *env.ID == id
	})
	var resp AckResponse
	if err := json.Unmarshal(env.Data, &resp); err != nil {
		t.Fatalf("Failed to decode ack: %v", err)
	}
	return resp
}

func stringData(t *testing.T, env Envelope) string {
	t.Helper()

	var s string
	if err := json.Unmarshal(env.Data, &s); err != nil {
		t.Fatalf("Expected string data in %s, got %s", env.Event, env.Data)
	}
	return s
}

func withName(t *testing.T, name string) func(Envelope) bool {
	return func(env Envelope) bool { return stringData(t, env) == name }
}

// expectNoEvent must be the last read on conn: a read timeout leaves the
// connection unusable.
func expectNoEvent(t *testing.T, conn *websocket.Conn, timeout time.Duration) {
	t.Helper()

	if env, ok := readEnvelope(t, conn, timeout); ok {
		t.Errorf("Expected no message but received %s: %s", env.Event, env.Data)
	}
}

// waitFor polls cond until it holds or the timeout expires.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("Condition not met before timeout")
}

func newRoutesServer(hub *Hub) *httptest.Server {
	return httptest.NewServer(SetupRoutes(hub))
}
