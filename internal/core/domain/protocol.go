package domain

import (
	"time"

	"github.com/google/uuid"
)

// Event types pushed to user-scoped topics.
const (
	TypeMessage      = "message"
	TypeReadReceipt  = "read_receipt"
	TypeCallOffer    = "call_offer"
	TypeCallAnswer   = "call_answer"
	TypeCallStatus   = "call_status"
	TypeCallEnd      = "call_end"
	TypeIceCandidate = "ice_candidate"
	TypeError        = "error"
)

// Frame types accepted from clients over the websocket.
const (
	FrameSendMessage  = "send_message"
	FrameMarkRead     = "mark_read"
	FrameCallInitiate = "call_initiate"
	FrameCallRespond  = "call_respond"
	FrameCallConfirm  = "call_confirm"
	FrameCallEnd      = "call_end"
	FrameIceCandidate = "ice_candidate"
)

// Call response actions carried by FrameCallRespond.
const (
	RespondAccept = "ACCEPT"
	RespondReject = "REJECT"
	RespondBusy   = "BUSY"
)

// MessageEvent is pushed to the receiver's topic and echoed to the sender's
// own topic for multi-tab self-sync.
type MessageEvent struct {
	Type       string        `json:"type"` // "message"
	ID         uuid.UUID     `json:"id"`
	SenderID   string        `json:"sender_id"`
	ReceiverID string        `json:"receiver_id"`
	Content    string        `json:"content"`
	Status     MessageStatus `json:"status"`
	Seq        int64         `json:"seq"`
	CreatedAt  time.Time     `json:"created_at"`
}

// ReadReceiptEvent tells the original sender their messages were read.
type ReadReceiptEvent struct {
	Type     string    `json:"type"` // "read_receipt"
	ReaderID string    `json:"reader_id"`
	ReadAt   time.Time `json:"read_at"`
}

// CallOfferEvent carries the caller SDP to the callee.
type CallOfferEvent struct {
	Type     string   `json:"type"` // "call_offer"
	CallID   string   `json:"call_id"`
	CallerID string   `json:"caller_id"`
	CallType CallType `json:"call_type"`
	SDP      string   `json:"sdp"`
}

// CallAnswerEvent carries the callee SDP back to the caller on ACCEPT.
type CallAnswerEvent struct {
	Type     string `json:"type"` // "call_answer"
	CallID   string `json:"call_id"`
	CalleeID string `json:"callee_id"`
	SDP      string `json:"sdp"`
}

// CallStatusEvent is pushed to both parties on state changes
// (e.g. CONNECTED).
type CallStatusEvent struct {
	Type   string    `json:"type"` // "call_status"
	CallID string    `json:"call_id"`
	State  CallState `json:"state"`
}

// CallEndEvent is pushed to both parties on terminal transitions.
type CallEndEvent struct {
	Type    string    `json:"type"` // "call_end"
	CallID  string    `json:"call_id"`
	State   CallState `json:"state"`
	Reason  string    `json:"reason"`
	EndedBy string    `json:"ended_by,omitempty"`
}

// IceCandidateEvent relays a connectivity candidate to the other party.
type IceCandidateEvent struct {
	Type      string `json:"type"` // "ice_candidate"
	CallID    string `json:"call_id"`
	SenderID  string `json:"sender_id"`
	Candidate string `json:"candidate"`
}

// ErrorEvent is a WS-safe error
type ErrorEvent struct {
	Type    string `json:"type"` // "error"
	Code    string `json:"code"`
	Message string `json:"message"`
}
