package mockbackend

import (
	"encoding/json"
	"time"

	"github.com/digisapp/digis-app-sub003/internal/core/domain"
	"github.com/digisapp/digis-app-sub003/pkg/utils"
)

// handleEvent dispatches one client frame. Unknown or malformed frames are
// logged and dropped; a misbehaving client never takes the hub down.
func (h *Hub) handleEvent(c *hubClient, env domain.Envelope) {
	var err error
	switch env.Event {
	case domain.EventChannelJoin:
		err = h.onChannelJoin(c, env.Data)
	case domain.EventChannelLeave:
		err = h.onChannelLeave(c, env.Data)
	case domain.EventMessageSend:
		err = h.onMessageSend(c, env.Data)
	case domain.EventTypingStart:
		err = h.onTyping(c, env.Data, domain.EventTypingStart)
	case domain.EventTypingStop:
		err = h.onTyping(c, env.Data, domain.EventTypingStop)
	case domain.EventCallInitiate:
		err = h.onCallInitiate(c, env.Data)
	case domain.EventCallAccept:
		err = h.onCallAnswer(c, env.Data, domain.EventCallAccepted)
	case domain.EventCallDecline:
		err = h.onCallAnswer(c, env.Data, domain.EventCallDeclined)
	case domain.EventCallEnd:
		err = h.onCallEnd(c, env.Data)
	case domain.EventStreamStart:
		err = h.onStreamStart(c, env.Data)
	case domain.EventStreamEnd:
		err = h.onStreamEnd(c, env.Data)
	case domain.EventStreamViewers:
		err = h.onStreamViewers(c, env.Data)
	case domain.EventStreamTip:
		err = h.onStreamTip(c, env.Data)
	default:
		h.logger.Warnw("unknown client event", "event", env.Event, "user_id", c.userID)
		return
	}

	if err != nil {
		h.logger.Warnw("dropping client event",
			"event", env.Event, "user_id", c.userID, "error", err)
	}
}

func (h *Hub) onChannelJoin(c *hubClient, data json.RawMessage) error {
	var p domain.ChannelPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	h.mu.Lock()
	c.channels[p.ChannelID] = true
	h.mu.Unlock()
	h.publishViewerCount(p.ChannelID)
	return nil
}

func (h *Hub) onChannelLeave(c *hubClient, data json.RawMessage) error {
	var p domain.ChannelPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	h.mu.Lock()
	delete(c.channels, p.ChannelID)
	h.mu.Unlock()
	h.publishViewerCount(p.ChannelID)
	return nil
}

// publishViewerCount broadcasts the member count when the channel belongs to
// a live stream.
func (h *Hub) publishViewerCount(channelID domain.ChannelID) {
	h.mu.Lock()
	var streamID domain.StreamID
	for id, s := range h.streams {
		if domain.ChannelID(s.ChannelName) == channelID {
			streamID = id
			break
		}
	}
	if streamID == "" {
		h.mu.Unlock()
		return
	}

	count := 0
	for c := range h.clients {
		if c.channels[channelID] {
			count++
		}
	}
	h.mu.Unlock()

	h.broadcastExcept(nil, domain.EventStreamViewers, domain.StreamViewersPayload{
		StreamID: streamID,
		Count:    count,
	})
}

func (h *Hub) onMessageSend(c *hubClient, data json.RawMessage) error {
	var p domain.SendMessagePayload
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	if p.MessageID == "" {
		p.MessageID = domain.MessageID(utils.GenerateMessageID())
	}

	msg := domain.Message{
		ID:        p.MessageID,
		ChannelID: p.ChannelID,
		Text:      p.Text,
		Sender:    c.username,
		SenderID:  c.userID,
		Timestamp: time.Now(),
		Type:      p.Type,
		Amount:    p.Amount,
	}
	// Echo to the sender too so optimistic sends reconcile by id.
	h.broadcastChannel(p.ChannelID, nil, domain.EventMessageNew, msg)
	return nil
}

// onStreamTip settles a tip sent on the stream vocabulary: the tip message
// fans out to the channel (echoing the tipper's optimistic id) and tokens
// move from the tipper to the stream owner.
func (h *Hub) onStreamTip(c *hubClient, data json.RawMessage) error {
	var p domain.StreamTipPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	if p.ChannelID == "" || p.Amount <= 0 {
		return nil
	}
	if p.MessageID == "" {
		p.MessageID = domain.MessageID(utils.GenerateMessageID())
	}

	h.broadcastChannel(p.ChannelID, nil, domain.EventMessageNew, domain.Message{
		ID:        p.MessageID,
		ChannelID: p.ChannelID,
		Sender:    c.username,
		SenderID:  c.userID,
		Timestamp: time.Now(),
		Type:      domain.MessageTypeTip,
		Amount:    p.Amount,
	})

	h.settleTip(c, p.ChannelID, p.Amount, p.MessageID)
	return nil
}

// onStreamViewers accepts broadcaster-reported viewer counts and relays them.
// Reports from anyone but the stream owner are ignored.
func (h *Hub) onStreamViewers(c *hubClient, data json.RawMessage) error {
	var p domain.StreamViewersPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}

	h.mu.Lock()
	stream, ok := h.streams[p.StreamID]
	h.mu.Unlock()
	if !ok || stream.CreatorID != c.userID {
		return nil
	}

	h.broadcastExcept(c, domain.EventStreamViewers, p)
	return nil
}

// settleTip moves tokens from the tipper to the owner of the stream the
// channel belongs to, then pushes authoritative balances to both.
func (h *Hub) settleTip(c *hubClient, channelID domain.ChannelID, amount int, msgID domain.MessageID) {
	h.mu.Lock()
	var stream *domain.ActiveStream
	for _, s := range h.streams {
		if domain.ChannelID(s.ChannelName) == channelID {
			copyS := s
			stream = &copyS
			break
		}
	}

	h.balances[c.userID] -= amount
	senderBalance := h.balances[c.userID]

	var ownerID domain.UserID
	var ownerBalance int
	if stream != nil {
		ownerID = stream.CreatorID
		h.balances[ownerID] += amount
		ownerBalance = h.balances[ownerID]
	}
	h.mu.Unlock()

	h.sendToUser(c.userID, domain.EventTokensUpdated, domain.TokensPayload{
		Balance: senderBalance,
	})

	if stream != nil {
		h.broadcastExcept(nil, domain.EventStreamTip, domain.StreamTipPayload{
			StreamID:  stream.ID,
			ChannelID: channelID,
			MessageID: msgID,
			From:      c.username,
			FromID:    c.userID,
			Amount:    amount,
		})
		h.sendToUser(ownerID, domain.EventTokensRecved, domain.TokensPayload{
			Balance: ownerBalance,
			Amount:  amount,
			From:    c.username,
		})
	}
}

func (h *Hub) onTyping(c *hubClient, data json.RawMessage, event domain.EventName) error {
	var p domain.TypingPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	p.UserID = c.userID
	p.Username = c.username
	h.broadcastChannel(p.ChannelID, c, event, p)
	return nil
}

func (h *Hub) onCallInitiate(c *hubClient, data json.RawMessage) error {
	var p domain.CallActionPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	if p.CallID == "" {
		p.CallID = utils.GenerateCallID()
	}

	h.mu.Lock()
	h.calls[p.CallID] = &callRecord{
		callerID:  c.userID,
		targetID:  p.TargetID,
		channelID: p.ChannelID,
		messageID: p.MessageID,
	}
	h.mu.Unlock()

	delivered := h.sendToUser(p.TargetID, domain.EventCallIncoming, domain.IncomingCall{
		CallID:    p.CallID,
		ChannelID: p.ChannelID,
		Caller:    c.username,
		CallerID:  c.userID,
		Kind:      p.Kind,
		At:        time.Now(),
	})
	if !delivered {
		// Callee offline: cancel straight back to the caller.
		c.trySend(mustEnvelope(domain.EventCallCancelled, domain.CallStatusPayload{
			CallID:    p.CallID,
			ChannelID: p.ChannelID,
			MessageID: p.MessageID,
		}))
		h.mu.Lock()
		delete(h.calls, p.CallID)
		h.mu.Unlock()
	}
	return nil
}

func (h *Hub) onCallAnswer(c *hubClient, data json.RawMessage, event domain.EventName) error {
	var p domain.CallActionPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}

	h.mu.Lock()
	record, ok := h.calls[p.CallID]
	if ok && event != domain.EventCallAccepted {
		delete(h.calls, p.CallID)
	}
	h.mu.Unlock()
	if !ok {
		return nil
	}

	h.sendToUser(record.callerID, event, domain.CallStatusPayload{
		CallID:    p.CallID,
		ChannelID: record.channelID,
		MessageID: record.messageID,
	})
	return nil
}

func (h *Hub) onCallEnd(c *hubClient, data json.RawMessage) error {
	var p domain.CallActionPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}

	h.mu.Lock()
	record, ok := h.calls[p.CallID]
	delete(h.calls, p.CallID)
	h.mu.Unlock()
	if !ok {
		return nil
	}

	// Notify whichever side did not hang up.
	other := record.callerID
	if c.userID == record.callerID {
		other = record.targetID
	}
	h.sendToUser(other, domain.EventCallEnded, domain.CallStatusPayload{
		CallID:    p.CallID,
		ChannelID: record.channelID,
		MessageID: record.messageID,
	})
	return nil
}

func (h *Hub) onStreamStart(c *hubClient, data json.RawMessage) error {
	var sess domain.StreamSession
	if err := json.Unmarshal(data, &sess); err != nil {
		return err
	}
	if sess.ID == "" {
		sess.ID = domain.StreamID(utils.GenerateID("stream"))
	}

	stream := domain.ActiveStream{
		ID:          sess.ID,
		Title:       sess.Title,
		ChannelName: sess.ChannelName,
		Creator:     c.username,
		CreatorID:   c.userID,
		StartedAt:   time.Now(),
	}

	h.mu.Lock()
	h.streams[stream.ID] = stream
	h.mu.Unlock()

	h.broadcastExcept(c, domain.EventStreamStarted, stream)
	return nil
}

func (h *Hub) onStreamEnd(c *hubClient, data json.RawMessage) error {
	var p domain.StreamEndedPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}

	h.mu.Lock()
	stream, ok := h.streams[p.StreamID]
	if ok && stream.CreatorID != c.userID {
		// Only the broadcaster can end their stream.
		h.mu.Unlock()
		return nil
	}
	delete(h.streams, p.StreamID)
	h.mu.Unlock()
	if !ok {
		return nil
	}

	h.broadcastExcept(nil, domain.EventStreamEnded, p)
	return nil
}
