package server

import (
	"encoding/json"
	"log"
)

// processMessage decodes one inbound envelope and routes it to the chat
// service. Malformed frames are logged and dropped.
func (c *Client) processMessage(rawMessage []byte) {
	var env Envelope
	if err := json.Unmarshal(rawMessage, &env); err != nil {
		log.Printf("Invalid message from %s: %v", c.id, err)
		return
	}

	svc := c.hub.service
	switch env.Event {
	case eventJoinPublic:
		var req JoinPublicRequest
		if !c.decode(env, &req) {
			return
		}
		svc.JoinPublic(c.id, req.Username)

	case eventPublicMessage:
		var req PublicMessageRequest
		if !c.decode(env, &req) {
			return
		}
		svc.PublicMessage(c.id, req.Text)

	case eventCreatePrivate:
		var req CreatePrivateRequest
		if !c.decode(env, &req) {
			return
		}
		res, err := svc.CreatePrivate(c.id, req.RoomName, req.Password)
		if err != nil {
			log.Printf("Create private room by %s failed: %v", c.id, err)
			c.reply(env.ID, AckResponse{Message: failureMessage(env.Event, err, c.hub.conceal)})
			return
		}
		c.reply(env.ID, AckResponse{
			Success:  true,
			RoomID:   string(res.RoomID),
			RoomLink: res.RoomLink,
		})

	case eventJoinPrivate:
		var req JoinPrivateRequest
		if !c.decode(env, &req) {
			return
		}
		roomName, err := svc.JoinPrivate(c.id, req.RoomID, req.Password, req.Username)
		if err != nil {
			log.Printf("Join private room %q by %s failed: %v", req.RoomID, c.id, err)
			c.reply(env.ID, AckResponse{Message: failureMessage(env.Event, err, c.hub.conceal)})
			return
		}
		c.reply(env.ID, AckResponse{Success: true, RoomName: roomName})

	case eventPrivateMessage:
		var req PrivateMessageRequest
		if !c.decode(env, &req) {
			return
		}
		svc.PrivateMessage(c.id, req.RoomID, req.Text)

	case eventLeavePrivate:
		var req LeavePrivateRequest
		if !c.decode(env, &req) {
			return
		}
		svc.LeavePrivate(c.id, req.RoomID)

	default:
		log.Printf("Unknown event %q from %s", env.Event, c.id)
	}
}

// decode unmarshals the envelope payload into v. A missing payload decodes
// to the zero value.
func (c *Client) decode(env Envelope, v any) bool {
	if len(env.Data) == 0 {
		return true
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		log.Printf("Invalid %s payload from %s: %v", env.Event, c.id, err)
		c.reply(env.ID, AckResponse{Message: "Invalid request payload."})
		return false
	}
	return true
}
