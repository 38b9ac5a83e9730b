package services

import (
	"github.com/digisapp/digis-app-sub003/internal/core/domain"
	"github.com/digisapp/digis-app-sub003/pkg/utils"
)

// SendMessage applies the message to the local channel immediately and then
// emits it. The server echoes it back under the same id, which AddMessage's
// caller recognizes and skips.
func (r *Reconciler) SendMessage(channelID domain.ChannelID, text string) domain.MessageID {
	text = utils.SanitizeString(text)
	if text == "" || channelID == "" {
		return ""
	}

	msg := r.localMessage(channelID, text, domain.MessageTypeChat, 0)
	r.store.AddMessage(msg)
	r.emit(domain.EventMessageSend, domain.SendMessagePayload{
		ChannelID: channelID,
		MessageID: msg.ID,
		Text:      text,
		Type:      domain.MessageTypeChat,
	})
	return msg.ID
}

// SendTip records a tip message optimistically and emits it on the stream
// vocabulary. The authoritative balance change arrives later as a
// tokens:updated event; nothing is debited locally.
func (r *Reconciler) SendTip(channelID domain.ChannelID, amount int) domain.MessageID {
	if channelID == "" || amount <= 0 {
		return ""
	}

	msg := r.localMessage(channelID, "", domain.MessageTypeTip, amount)
	r.store.AddMessage(msg)
	r.emit(domain.EventStreamTip, domain.StreamTipPayload{
		ChannelID: channelID,
		MessageID: msg.ID,
		Amount:    amount,
	})
	return msg.ID
}

// StartTyping emits a typing indicator, rate limited so keystroke bursts do
// not flood the channel. StopTyping always goes through.
func (r *Reconciler) StartTyping(channelID domain.ChannelID) {
	if !r.typingLimiter.Allow() {
		return
	}
	r.emit(domain.EventTypingStart, r.typingPayload(channelID))
}

func (r *Reconciler) StopTyping(channelID domain.ChannelID) {
	r.emit(domain.EventTypingStop, r.typingPayload(channelID))
}

// JoinChannel makes a channel active locally (resetting its unread counter)
// and subscribes to it on the server.
func (r *Reconciler) JoinChannel(channelID domain.ChannelID) {
	r.store.SetActiveChannel(channelID)
	r.emit(domain.EventChannelJoin, domain.ChannelPayload{ChannelID: channelID})
}

func (r *Reconciler) LeaveChannel(channelID domain.ChannelID) {
	if r.store.ActiveChannel() == channelID {
		r.store.SetActiveChannel("")
	}
	r.emit(domain.EventChannelLeave, domain.ChannelPayload{ChannelID: channelID})
}

// InitiateCall posts a call-request message into the channel and signals the
// callee. The request starts pending and is mutated in place as lifecycle
// events arrive.
func (r *Reconciler) InitiateCall(channelID domain.ChannelID, targetID domain.UserID, kind string) domain.MessageID {
	callID := utils.GenerateCallID()
	msg := r.localMessage(channelID, "Call request", domain.MessageTypeCallRequest, 0)
	msg.Status = domain.CallPending
	r.store.AddMessage(msg)

	r.emit(domain.EventCallInitiate, domain.CallActionPayload{
		CallID:    callID,
		ChannelID: channelID,
		MessageID: msg.ID,
		TargetID:  targetID,
		Kind:      kind,
	})
	return msg.ID
}

// AcceptCall answers the ringing call and clears the incoming slot. It is a
// no-op when nothing is ringing.
func (r *Reconciler) AcceptCall() {
	call := r.store.IncomingCall()
	if call == nil {
		return
	}
	r.store.ClearIncomingCall()
	r.emit(domain.EventCallAccept, domain.CallActionPayload{
		CallID:    call.CallID,
		ChannelID: call.ChannelID,
	})
}

func (r *Reconciler) DeclineCall() {
	call := r.store.IncomingCall()
	if call == nil {
		return
	}
	r.store.ClearIncomingCall()
	r.emit(domain.EventCallDecline, domain.CallActionPayload{
		CallID:    call.CallID,
		ChannelID: call.ChannelID,
	})
}

func (r *Reconciler) EndCall(callID string, channelID domain.ChannelID) {
	r.store.ClearIncomingCall()
	r.emit(domain.EventCallEnd, domain.CallActionPayload{
		CallID:    callID,
		ChannelID: channelID,
	})
}

// StartStream opens a broadcast session locally with fresh stats and announces
// it to the server.
func (r *Reconciler) StartStream(title, channelName string) domain.StreamID {
	id := domain.StreamID(utils.GenerateID("stream"))
	r.store.StartStreamSession(domain.StreamSession{
		ID:          id,
		Title:       title,
		ChannelName: channelName,
		StartedAt:   utils.Now(),
	})
	r.emit(domain.EventStreamStart, domain.StreamSession{
		ID:          id,
		Title:       title,
		ChannelName: channelName,
		StartedAt:   utils.Now(),
	})
	return id
}

// ReportViewerCount publishes the viewer count the media SDK reports on the
// broadcasting side. No-op unless a stream session is running.
func (r *Reconciler) ReportViewerCount(count int) {
	sess := r.store.CurrentStream()
	if sess == nil || count < 0 {
		return
	}
	r.store.SetViewerCount(sess.ID, count)
	r.emit(domain.EventStreamViewers, domain.StreamViewersPayload{
		StreamID: sess.ID,
		Count:    count,
	})
}

// EndStream closes the broadcast session and returns the final stats. The
// stats are gone from the store after this call.
func (r *Reconciler) EndStream() (domain.StreamStats, bool) {
	sess := r.store.CurrentStream()
	stats, ok := r.store.EndStreamSession()
	if !ok {
		return stats, false
	}
	r.emit(domain.EventStreamEnd, domain.StreamEndedPayload{StreamID: sess.ID})
	return stats, true
}

func (r *Reconciler) localMessage(channelID domain.ChannelID, text string, kind domain.MessageType, amount int) domain.Message {
	msg := domain.Message{
		ID:        domain.MessageID(utils.GenerateMessageID()),
		ChannelID: channelID,
		Text:      text,
		Timestamp: utils.Now(),
		Type:      kind,
		Amount:    amount,
	}
	if user := r.store.CurrentUser(); user != nil {
		msg.Sender = user.Username
		msg.SenderID = user.ID
	}
	return msg
}

func (r *Reconciler) typingPayload(channelID domain.ChannelID) domain.TypingPayload {
	p := domain.TypingPayload{ChannelID: channelID}
	if user := r.store.CurrentUser(); user != nil {
		p.UserID = user.ID
		p.Username = user.Username
	}
	return p
}
