package domain

import "time"

type MessageID string

type MessageType string

const (
	MessageTypeChat        MessageType = "message"
	MessageTypeTip         MessageType = "tip"
	MessageTypeGift        MessageType = "gift"
	MessageTypeCallRequest MessageType = "call_request"
)

// CallStatus tracks the lifecycle of a call-request message. It is the only
// mutable field of a Message once created.
type CallStatus string

const (
	CallPending   CallStatus = "pending"
	CallAccepted  CallStatus = "accepted"
	CallDeclined  CallStatus = "declined"
	CallCancelled CallStatus = "cancelled"
)

type Message struct {
	ID        MessageID   `json:"id"`
	ChannelID ChannelID   `json:"channel_id"`
	Text      string      `json:"text"`
	Sender    string      `json:"sender"`
	SenderID  UserID      `json:"sender_id"`
	Timestamp time.Time   `json:"timestamp"`
	Type      MessageType `json:"type"`
	Amount    int         `json:"amount,omitempty"`
	Status    CallStatus  `json:"status,omitempty"`
}

// MaxChannelMessages bounds the per-channel history; the oldest message is
// evicted first once the bound is exceeded.
const MaxChannelMessages = 500

// IncomingCall occupies the single incoming-call slot while a call request is
// ringing.
type IncomingCall struct {
	CallID    string    `json:"call_id"`
	ChannelID ChannelID `json:"channel_id"`
	Caller    string    `json:"caller"`
	CallerID  UserID    `json:"caller_id"`
	Kind      string    `json:"kind"` // "video" or "voice"
	Rate      int       `json:"rate"` // tokens per minute
	At        time.Time `json:"at"`
}
