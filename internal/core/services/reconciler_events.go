package services

import (
	"fmt"

	"github.com/digisapp/digis-app-sub003/internal/core/domain"
	"github.com/digisapp/digis-app-sub003/pkg/utils"
)

// handleInbound maps one wire event onto store mutations. The event
// vocabulary is a closed set; unknown tags are rejected so the caller can log
// and drop them.
func (r *Reconciler) handleInbound(env domain.Envelope) error {
	switch env.Event {
	case domain.EventMessageNew:
		return r.handleMessageNew(env)
	case domain.EventTypingStart:
		return r.handleTyping(env, true)
	case domain.EventTypingStop:
		return r.handleTyping(env, false)
	case domain.EventUserOnline:
		return r.handlePresence(env, true)
	case domain.EventUserOffline:
		return r.handlePresence(env, false)
	case domain.EventUsersOnline:
		return r.handleBulkPresence(env)
	case domain.EventNotification:
		return r.handleNotification(env)
	case domain.EventCallIncoming:
		return r.handleCallIncoming(env)
	case domain.EventCallAccepted:
		return r.handleCallStatus(env, domain.CallAccepted)
	case domain.EventCallDeclined:
		return r.handleCallStatus(env, domain.CallDeclined)
	case domain.EventCallCancelled:
		return r.handleCallStatus(env, domain.CallCancelled)
	case domain.EventCallEnded:
		r.store.ClearIncomingCall()
		return nil
	case domain.EventStreamStarted:
		return r.handleStreamStarted(env)
	case domain.EventStreamEnded:
		return r.handleStreamEnded(env)
	case domain.EventStreamViewers:
		return r.handleStreamViewers(env)
	case domain.EventStreamTip:
		return r.handleStreamTip(env)
	case domain.EventTokensUpdated, domain.EventTokensRecved:
		return r.handleTokens(env)
	default:
		return fmt.Errorf("%w: %s", domain.ErrUnknownEvent, env.Event)
	}
}

func (r *Reconciler) handleMessageNew(env domain.Envelope) error {
	var msg domain.Message
	if err := decode(env.Data, &msg); err != nil {
		return fmt.Errorf("invalid message payload: %w", err)
	}
	if msg.ChannelID == "" || msg.ID == "" {
		return fmt.Errorf("message missing channel or id")
	}

	// Optimistically sent messages echo back with the same id.
	if r.store.HasMessage(msg.ChannelID, msg.ID) {
		return nil
	}

	r.store.AddMessage(msg)

	// Messages in the joined stream's channel count toward session stats.
	if sess := r.store.CurrentStream(); sess != nil && string(msg.ChannelID) == sess.ChannelName {
		r.store.RecordStreamMessage(sess.ID)
	}
	return nil
}

func (r *Reconciler) handleTyping(env domain.Envelope, start bool) error {
	var p domain.TypingPayload
	if err := decode(env.Data, &p); err != nil {
		return fmt.Errorf("invalid typing payload: %w", err)
	}
	if start {
		r.store.SetTyping(p.ChannelID, p.UserID)
	} else {
		r.store.ClearTyping(p.ChannelID, p.UserID)
	}
	return nil
}

func (r *Reconciler) handlePresence(env domain.Envelope, online bool) error {
	var p domain.PresencePayload
	if err := decode(env.Data, &p); err != nil {
		return fmt.Errorf("invalid presence payload: %w", err)
	}
	if online {
		r.store.SetOnline(p.UserID)
	} else {
		r.store.SetOffline(p.UserID)
	}
	return nil
}

func (r *Reconciler) handleBulkPresence(env domain.Envelope) error {
	var p domain.BulkPresencePayload
	if err := decode(env.Data, &p); err != nil {
		return fmt.Errorf("invalid bulk presence payload: %w", err)
	}
	r.store.ReplaceOnline(p.UserIDs)
	return nil
}

func (r *Reconciler) handleNotification(env domain.Envelope) error {
	var n domain.Notification
	if err := decode(env.Data, &n); err != nil {
		return fmt.Errorf("invalid notification payload: %w", err)
	}
	if n.ID == "" {
		n.ID = domain.NotificationID(utils.GenerateNotificationID())
	}
	if n.Timestamp.IsZero() {
		n.Timestamp = utils.Now()
	}
	r.store.AddNotification(n)
	return nil
}

func (r *Reconciler) handleCallIncoming(env domain.Envelope) error {
	var call domain.IncomingCall
	if err := decode(env.Data, &call); err != nil {
		return fmt.Errorf("invalid incoming call payload: %w", err)
	}
	if call.At.IsZero() {
		call.At = utils.Now()
	}
	r.store.SetIncomingCall(call)

	r.mu.Lock()
	ringer := r.ringer
	r.mu.Unlock()
	if ringer != nil {
		ringer(call)
	}
	return nil
}

func (r *Reconciler) handleCallStatus(env domain.Envelope, status domain.CallStatus) error {
	var p domain.CallStatusPayload
	if err := decode(env.Data, &p); err != nil {
		return fmt.Errorf("invalid call status payload: %w", err)
	}
	r.store.UpdateCallStatus(p.ChannelID, p.MessageID, status)
	if status == domain.CallCancelled {
		r.store.ClearIncomingCall()
	}
	return nil
}

func (r *Reconciler) handleStreamStarted(env domain.Envelope) error {
	var stream domain.ActiveStream
	if err := decode(env.Data, &stream); err != nil {
		return fmt.Errorf("invalid stream started payload: %w", err)
	}
	if stream.ID == "" {
		return fmt.Errorf("stream started missing id")
	}
	r.store.AddActiveStream(stream)
	r.store.AddNotification(domain.Notification{
		ID:        domain.NotificationID(utils.GenerateNotificationID()),
		Type:      domain.NotificationStreamAlert,
		Title:     "Live Now",
		Message:   fmt.Sprintf("%s just went live: %s", stream.Creator, stream.Title),
		Timestamp: utils.Now(),
		Data:      map[string]interface{}{"stream_id": string(stream.ID)},
	})
	return nil
}

func (r *Reconciler) handleStreamEnded(env domain.Envelope) error {
	var p domain.StreamEndedPayload
	if err := decode(env.Data, &p); err != nil {
		return fmt.Errorf("invalid stream ended payload: %w", err)
	}
	r.store.RemoveActiveStream(p.StreamID)
	return nil
}

func (r *Reconciler) handleStreamViewers(env domain.Envelope) error {
	var p domain.StreamViewersPayload
	if err := decode(env.Data, &p); err != nil {
		return fmt.Errorf("invalid stream viewers payload: %w", err)
	}
	// The store ignores counts for any stream other than the joined one.
	r.store.SetViewerCount(p.StreamID, p.Count)
	return nil
}

func (r *Reconciler) handleStreamTip(env domain.Envelope) error {
	var p domain.StreamTipPayload
	if err := decode(env.Data, &p); err != nil {
		return fmt.Errorf("invalid stream tip payload: %w", err)
	}

	sess := r.store.CurrentStream()
	if sess == nil || sess.ID != p.StreamID {
		return nil
	}

	r.store.RecordStreamTip(p.StreamID, p.Amount)

	channelID := domain.ChannelID(sess.ChannelName)
	// The tip message may already be present from the message:new broadcast.
	if p.MessageID != "" && r.store.HasMessage(channelID, p.MessageID) {
		return nil
	}
	msgID := p.MessageID
	if msgID == "" {
		msgID = domain.MessageID(utils.GenerateMessageID())
	}
	r.store.AddMessage(domain.Message{
		ID:        msgID,
		ChannelID: channelID,
		Text:      fmt.Sprintf("%s tipped %d tokens", p.From, p.Amount),
		Sender:    p.From,
		SenderID:  p.FromID,
		Timestamp: utils.Now(),
		Type:      domain.MessageTypeTip,
		Amount:    p.Amount,
	})
	return nil
}

func (r *Reconciler) handleTokens(env domain.Envelope) error {
	var p domain.TokensPayload
	if err := decode(env.Data, &p); err != nil {
		return fmt.Errorf("invalid tokens payload: %w", err)
	}
	r.store.SetTokenBalance(p.Balance)

	if env.Event == domain.EventTokensRecved && p.Amount > 0 {
		r.store.AddNotification(domain.Notification{
			ID:        domain.NotificationID(utils.GenerateNotificationID()),
			Type:      domain.NotificationTokens,
			Title:     "Tokens Received",
			Message:   fmt.Sprintf("You received %d tokens from %s", p.Amount, p.From),
			Timestamp: utils.Now(),
		})
	} else if p.Reason != "" {
		r.store.AddNotification(domain.Notification{
			ID:        domain.NotificationID(utils.GenerateNotificationID()),
			Type:      domain.NotificationTokens,
			Title:     "Balance Updated",
			Message:   p.Reason,
			Timestamp: utils.Now(),
		})
	}
	return nil
}
