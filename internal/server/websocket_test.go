package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/Tyrowin/relaychat/internal/chat"
	"github.com/gorilla/websocket"
)

// TestPrivateRoomLifecycle walks a room from creation to deletion over real
// WebSocket connections.
func TestPrivateRoomLifecycle(t *testing.T) {
	hub, testServer := startTestServer(t, Config{FrontendURL: "https://chat.example.com"})

	alice := dial(t, testServer.URL)
	bob := dial(t, testServer.URL)
	carol := dial(t, testServer.URL)

	send(t, alice, eventCreatePrivate, 1, CreatePrivateRequest{RoomName: "Team", Password: "secret123"})
	created := expectAck(t, alice, 1)
	if !created.Success || created.RoomID == "" {
		t.Fatalf("Expected successful create, got %+v", created)
	}
	if want := "https://chat.example.com/private/" + created.RoomID; created.RoomLink != want {
		t.Errorf("Expected room link %q, got %q", want, created.RoomLink)
	}

	send(t, alice, eventJoinPrivate, 2, JoinPrivateRequest{RoomID: created.RoomID, Password: "secret123", Username: "alice"})
	joined := expectAck(t, alice, 2)
	if !joined.Success || joined.RoomName != "Team" {
		t.Fatalf("Expected join of Team, got %+v", joined)
	}

	send(t, bob, eventJoinPrivate, 3, JoinPrivateRequest{RoomID: created.RoomID, Password: "wrong", Username: "bob"})
	if resp := expectAck(t, bob, 3); resp.Success || resp.Message != msgBadPassword {
		t.Errorf("Expected bad password failure, got %+v", resp)
	}

	if err := alice.Close(); err != nil {
		t.Fatalf("Failed to close alice: %v", err)
	}
	waitFor(t, 2*time.Second, func() bool { return hub.Service().Stats().Rooms == 0 })

	send(t, carol, eventJoinPrivate, 4, JoinPrivateRequest{RoomID: created.RoomID, Password: "secret123", Username: "carol"})
	if resp := expectAck(t, carol, 4); resp.Success || resp.Message != msgRoomMissing {
		t.Errorf("Expected missing room failure, got %+v", resp)
	}
}

func TestCreatePrivateValidation(t *testing.T) {
	_, testServer := startTestServer(t, Config{})
	conn := dial(t, testServer.URL)

	send(t, conn, eventCreatePrivate, 7, CreatePrivateRequest{RoomName: "  ", Password: "pw"})
	resp := expectAck(t, conn, 7)
	if resp.Success || resp.Message != msgCreateRequired {
		t.Errorf("Expected validation failure, got %+v", resp)
	}
}

func TestPrivateMessagesReachMembersOnly(t *testing.T) {
	_, testServer := startTestServer(t, Config{})
	alice := dial(t, testServer.URL)
	bob := dial(t, testServer.URL)
	eve := dial(t, testServer.URL)

	send(t, alice, eventCreatePrivate, 1, CreatePrivateRequest{RoomName: "Team", Password: "pw"})
	roomID := expectAck(t, alice, 1).RoomID

	send(t, alice, eventJoinPrivate, 2, JoinPrivateRequest{RoomID: roomID, Password: "pw", Username: "alice"})
	expectAck(t, alice, 2)
	send(t, bob, eventJoinPrivate, 3, JoinPrivateRequest{RoomID: roomID, Password: "pw", Username: "bob"})
	expectAck(t, bob, 3)
	expectEvent(t, alice, chat.EventUserJoined, withName(t, "bob"))

	send(t, eve, eventPrivateMessage, 0, PrivateMessageRequest{RoomID: roomID, Text: "sneaky"})
	send(t, bob, eventPrivateMessage, 0, PrivateMessageRequest{RoomID: roomID, Text: "<b>hi</b> team"})

	for name, conn := range map[string]*websocket.Conn{"alice": alice, "bob": bob} {
		env := expectEvent(t, conn, chat.EventPrivateMessage, nil)
		var msg chat.Message
		if err := json.Unmarshal(env.Data, &msg); err != nil {
			t.Fatalf("Failed to decode message for %s: %v", name, err)
		}
		if msg.Sender != "bob" || msg.Body != "hi team" {
			t.Errorf("%s received unexpected message %+v", name, msg)
		}
		if _, err := time.Parse(time.RFC3339, msg.Timestamp); err != nil {
			t.Errorf("Timestamp %q is not ISO-8601: %v", msg.Timestamp, err)
		}
	}
	expectNoEvent(t, eve, 200*time.Millisecond)
}

func TestPublicChatOrderingAndLeave(t *testing.T) {
	_, testServer := startTestServer(t, Config{})
	alice := dial(t, testServer.URL)
	bob := dial(t, testServer.URL)

	send(t, alice, eventJoinPublic, 0, JoinPublicRequest{Username: "alice"})
	expectEvent(t, alice, chat.EventUserJoined, withName(t, "alice"))
	send(t, bob, eventJoinPublic, 0, JoinPublicRequest{Username: "bob"})
	expectEvent(t, alice, chat.EventUserJoined, withName(t, "bob"))
	expectEvent(t, bob, chat.EventUserJoined, withName(t, "bob"))

	const n = 20
	for i := 0; i < n; i++ {
		send(t, alice, eventPublicMessage, 0, PublicMessageRequest{Text: fmt.Sprintf("message %d", i)})
	}

	for name, conn := range map[string]*websocket.Conn{"alice": alice, "bob": bob} {
		for i := 0; i < n; i++ {
			env := expectEvent(t, conn, chat.EventPublicMessage, nil)
			var msg chat.Message
			if err := json.Unmarshal(env.Data, &msg); err != nil {
				t.Fatalf("Failed to decode message: %v", err)
			}
			if want := fmt.Sprintf("message %d", i); msg.Body != want || msg.Sender != "alice" {
				t.Fatalf("%s: expected %q from alice at position %d, got %+v", name, want, i, msg)
			}
		}
	}

	if err := alice.Close(); err != nil {
		t.Fatalf("Failed to close alice: %v", err)
	}
	expectEvent(t, bob, chat.EventUserLeft, withName(t, "alice"))
}

func TestConcealRoomExistence(t *testing.T) {
	_, testServer := startTestServer(t, Config{ConcealRoomExistence: true})
	conn := dial(t, testServer.URL)

	send(t, conn, eventJoinPrivate, 1, JoinPrivateRequest{RoomID: "missing", Password: "pw", Username: "alice"})
	if resp := expectAck(t, conn, 1); resp.Message != msgJoinFailed {
		t.Errorf("Expected concealed failure, got %+v", resp)
	}

	send(t, conn, eventCreatePrivate, 2, CreatePrivateRequest{RoomName: "Team", Password: "pw"})
	roomID := expectAck(t, conn, 2).RoomID
	send(t, conn, eventJoinPrivate, 3, JoinPrivateRequest{RoomID: roomID, Password: "nope", Username: "alice"})
	if resp := expectAck(t, conn, 3); resp.Message != msgJoinFailed {
		t.Errorf("Expected concealed failure, got %+v", resp)
	}
}

func TestMalformedFramesAreIgnored(t *testing.T) {
	_, testServer := startTestServer(t, Config{})
	conn := dial(t, testServer.URL)

	if err := conn.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatalf("Failed to write: %v", err)
	}
	send(t, conn, "noSuchEvent", 0, map[string]string{})
	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"joinPrivate","id":5,"data":"oops"}`)); err != nil {
		t.Fatalf("Failed to write: %v", err)
	}
	if resp := expectAck(t, conn, 5); resp.Success {
		t.Errorf("Expected failure for invalid payload, got %+v", resp)
	}

	send(t, conn, eventCreatePrivate, 6, CreatePrivateRequest{RoomName: "Still", Password: "works"})
	if resp := expectAck(t, conn, 6); !resp.Success {
		t.Errorf("Connection unusable after malformed frames: %+v", resp)
	}
}

func TestWebSocketRejectsDisallowedOrigin(t *testing.T) {
	_, testServer := startTestServer(t, Config{AllowedOrigins: []string{"https://chat.example.com"}})

	headers := http.Header{}
	headers.Set("Origin", "https://evil.example.com")
	_, resp, err := defaultDialer().Dial(wsURL(testServer.URL), headers)
	if resp != nil {
		_ = resp.Body.Close()
	}
	if err == nil {
		t.Fatal("Expected handshake to fail for disallowed origin")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Errorf("Expected 403 response, got %v", resp)
	}
}

func TestWebSocketRejectsNonGet(t *testing.T) {
	_, testServer := startTestServer(t, Config{})

	resp, err := http.Post(testServer.URL+"/ws", "application/json", strings.NewReader("{}"))
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("Expected status %d, got %d", http.StatusMethodNotAllowed, resp.StatusCode)
	}
}
