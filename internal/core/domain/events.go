package domain

import "encoding/json"

// EventName tags a frame on the real-time channel. Inbound and outbound
// vocabularies are closed sets; anything outside them is logged and dropped.
type EventName string

// Inbound events (server -> client).
const (
	EventMessageNew    EventName = "message:new"
	EventTypingStart   EventName = "typing:start"
	EventTypingStop    EventName = "typing:stop"
	EventUserOnline    EventName = "user:online"
	EventUserOffline   EventName = "user:offline"
	EventUsersOnline   EventName = "users:online"
	EventNotification  EventName = "notification:new"
	EventCallIncoming  EventName = "call:incoming"
	EventCallAccepted  EventName = "call:accepted"
	EventCallDeclined  EventName = "call:declined"
	EventCallCancelled EventName = "call:cancelled"
	EventCallEnded     EventName = "call:ended"
	EventStreamStarted EventName = "stream:started"
	EventStreamEnded   EventName = "stream:ended"
	EventStreamViewers EventName = "stream:viewers"
	EventStreamTip     EventName = "stream:tip"
	EventTokensUpdated EventName = "tokens:updated"
	EventTokensRecved  EventName = "tokens:received"
)

// Outbound events (client -> server). Typing, stream:viewers and stream:tip
// use the same names in both directions and are declared above.
const (
	EventMessageSend  EventName = "message:send"
	EventChannelJoin  EventName = "channel:join"
	EventChannelLeave EventName = "channel:leave"
	EventStreamStart  EventName = "stream:start"
	EventStreamEnd    EventName = "stream:end"
	EventCallInitiate EventName = "call:initiate"
	EventCallAccept   EventName = "call:accept"
	EventCallDecline  EventName = "call:decline"
	EventCallEnd      EventName = "call:end"
)

// Envelope is the wire frame for every event in both directions.
type Envelope struct {
	Event EventName       `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type TypingPayload struct {
	ChannelID ChannelID `json:"channel_id"`
	UserID    UserID    `json:"user_id"`
	Username  string    `json:"username,omitempty"`
}

type PresencePayload struct {
	UserID UserID `json:"user_id"`
}

type BulkPresencePayload struct {
	UserIDs []UserID `json:"user_ids"`
}

// CallStatusPayload carries call lifecycle transitions that mutate the
// originating call-request message in place.
type CallStatusPayload struct {
	CallID    string    `json:"call_id"`
	ChannelID ChannelID `json:"channel_id"`
	MessageID MessageID `json:"message_id"`
}

type StreamEndedPayload struct {
	StreamID StreamID `json:"stream_id"`
}

type StreamViewersPayload struct {
	StreamID StreamID `json:"stream_id"`
	Count    int      `json:"count"`
}

// StreamTipPayload travels both directions: clients tip with channel and
// message id set, the server fans it back out stamped with the tipper's
// identity and the resolved stream id.
type StreamTipPayload struct {
	StreamID  StreamID  `json:"stream_id,omitempty"`
	ChannelID ChannelID `json:"channel_id,omitempty"`
	MessageID MessageID `json:"message_id,omitempty"`
	From      string    `json:"from,omitempty"`
	FromID    UserID    `json:"from_id,omitempty"`
	Amount    int       `json:"amount"`
	Message   string    `json:"message,omitempty"`
}

// TokensPayload carries both balance overwrites (tokens:updated) and received
// transfers (tokens:received); Reason surfaces an optional notification.
type TokensPayload struct {
	Balance int    `json:"balance"`
	Amount  int    `json:"amount,omitempty"`
	From    string `json:"from,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

type SendMessagePayload struct {
	ChannelID ChannelID   `json:"channel_id"`
	MessageID MessageID   `json:"message_id"`
	Text      string      `json:"text"`
	Type      MessageType `json:"type"`
	Amount    int         `json:"amount,omitempty"`
}

type ChannelPayload struct {
	ChannelID ChannelID `json:"channel_id"`
}

type CallActionPayload struct {
	CallID    string    `json:"call_id"`
	ChannelID ChannelID `json:"channel_id"`
	MessageID MessageID `json:"message_id,omitempty"`
	TargetID  UserID    `json:"target_id,omitempty"`
	Kind      string    `json:"kind,omitempty"`
}

// NewEnvelope marshals data into a tagged wire frame.
func NewEnvelope(event EventName, data interface{}) (Envelope, error) {
	if data == nil {
		return Envelope{Event: event}, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Event: event, Data: raw}, nil
}
