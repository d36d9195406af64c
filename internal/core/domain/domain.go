package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is the identity issued by the auth collaborator (email as stable id).
// This core only reads users; the verify flow is the single writer.
type User struct {
	ID          string
	DisplayName string
	AvatarURL   string
	CreatedAt   time.Time
}

// Contact is one directed edge of the bidirectional messaging graph.
// Edges always exist in mirrored pairs: (A,B) implies (B,A).
type Contact struct {
	OwnerID       string
	ContactID     string
	LastMessageAt time.Time
	CreatedAt     time.Time
}

// ContactPreview is one row of the inbox view: the contact joined with the
// most recent message, the unread count and the live presence flag.
type ContactPreview struct {
	ContactID     string    `json:"contact_id"`
	DisplayName   string    `json:"display_name"`
	AvatarURL     string    `json:"avatar_url"`
	LastMessage   string    `json:"last_message"`
	LastMessageAt time.Time `json:"last_message_at"`
	UnreadCount   int       `json:"unread_count"`
	Online        bool      `json:"online"`
}

type MessageStatus string

const (
	StatusPending   MessageStatus = "PENDING"
	StatusDelivered MessageStatus = "DELIVERED"
	StatusRead      MessageStatus = "READ"
)

// Message is immutable once created except for Status, which only moves
// forward: PENDING -> DELIVERED -> READ. Seq is assigned by the database and
// breaks ordering ties between messages sharing a timestamp.
type Message struct {
	ID         uuid.UUID
	SenderID   string
	ReceiverID string
	Content    string
	Status     MessageStatus
	Seq        int64
	CreatedAt  time.Time
}

func NewMessage(sender, receiver, content string) *Message {
	return &Message{
		ID:         uuid.New(),
		SenderID:   sender,
		ReceiverID: receiver,
		Content:    content,
		Status:     StatusPending,
		CreatedAt:  time.Now(),
	}
}

type CallType string

const (
	CallVoice CallType = "VOICE"
	CallVideo CallType = "VIDEO"
)

type CallState string

const (
	CallInitiating CallState = "INITIATING"
	CallRinging    CallState = "RINGING"
	CallConnecting CallState = "CONNECTING"
	CallConnected  CallState = "CONNECTED"
	CallEnded      CallState = "ENDED"
	CallFailed     CallState = "FAILED"
)

// IsTerminal reports whether no further transition may leave the state.
func (s CallState) IsTerminal() bool {
	return s == CallEnded || s == CallFailed
}

// End reasons recorded on terminal call states.
const (
	ReasonHangup   = "USER_HANGUP"
	ReasonRejected = "REJECTED"
	ReasonBusy     = "BUSY"
	ReasonTimeout  = "TIMEOUT"
)

// CallSession is one call attempt between two contacts. Created by the
// caller's offer, terminated exactly once.
type CallSession struct {
	ID        uuid.UUID
	CallerID  string
	CalleeID  string
	Type      CallType
	State     CallState
	Reason    string
	OfferSDP  string
	AnswerSDP string
	StartedAt time.Time
	EndedAt   *time.Time
}

func NewCallSession(caller, callee string, callType CallType, offerSDP string) *CallSession {
	return &CallSession{
		ID:        uuid.New(),
		CallerID:  caller,
		CalleeID:  callee,
		Type:      callType,
		State:     CallInitiating,
		OfferSDP:  offerSDP,
		StartedAt: time.Now(),
	}
}

// OtherParty returns the peer of userID within the session, or "" when the
// user is not a party to the call.
func (c *CallSession) OtherParty(userID string) string {
	switch userID {
	case c.CallerID:
		return c.CalleeID
	case c.CalleeID:
		return c.CallerID
	}
	return ""
}

// HasParty reports whether userID is the caller or callee of record.
func (c *CallSession) HasParty(userID string) bool {
	return userID == c.CallerID || userID == c.CalleeID
}
