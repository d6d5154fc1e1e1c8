package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// TestHealthHandler verifies the plain text health endpoint for several
// HTTP methods.
func TestHealthHandler(t *testing.T) {
	for _, method := range []string{"GET", "POST", "HEAD"} {
		t.Run(method, func(t *testing.T) {
			req := httptest.NewRequest(method, "/", http.NoBody)
			rr := httptest.NewRecorder()

			HealthHandler(rr, req)

			if rr.Code != http.StatusOK {
				t.Errorf("handler returned wrong status code: got %v want %v", rr.Code, http.StatusOK)
			}
			if got := rr.Header().Get("Content-Type"); got != "text/plain" {
				t.Errorf("Expected content type text/plain, got %s", got)
			}
			if rr.Body.String() != healthText {
				t.Errorf("handler returned unexpected body: got %v want %v", rr.Body.String(), healthText)
			}
		})
	}
}

// TestSetupRoutes verifies the routes registered on the mux.
func TestSetupRoutes(t *testing.T) {
	hub, testServer := startTestServer(t, Config{})
	_ = dial(t, testServer.URL)
	waitFor(t, time.Second, func() bool { return hub.ClientCount() == 1 })

	resp, err := http.Get(testServer.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200 from /healthz, got %d", resp.StatusCode)
	}
	var status struct {
		Status   string `json:"status"`
		Clients  int    `json:"clients"`
		Rooms    int    `json:"rooms"`
		Sessions int    `json:"sessions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		t.Fatalf("Failed to decode stats: %v", err)
	}
	if status.Status != "ok" || status.Clients != 1 || status.Sessions != 1 || status.Rooms != 0 {
		t.Errorf("Unexpected stats: %+v", status)
	}
}

// TestCreateServer verifies address, handler and timeout settings.
func TestCreateServer(t *testing.T) {
	port := ":3000"
	mux := http.NewServeMux()

	srv := CreateServer(port, mux)

	if srv.Addr != port {
		t.Errorf("Expected server addr %s, got %s", port, srv.Addr)
	}
	if srv.Handler != mux {
		t.Error("Server handler not set correctly")
	}
	if srv.ReadTimeout != 15*time.Second {
		t.Errorf("Expected ReadTimeout 15s, got %v", srv.ReadTimeout)
	}
	if srv.WriteTimeout != 15*time.Second {
		t.Errorf("Expected WriteTimeout 15s, got %v", srv.WriteTimeout)
	}
	if srv.IdleTimeout != 60*time.Second {
		t.Errorf("Expected IdleTimeout 60s, got %v", srv.IdleTimeout)
	}
}
