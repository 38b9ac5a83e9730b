package store

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/digisapp/digis-app-sub003/internal/core/domain"
)

func msg(id, channel, sender string) domain.Message {
	return domain.Message{
		ID:        domain.MessageID(id),
		ChannelID: domain.ChannelID(channel),
		SenderID:  domain.UserID(sender),
		Text:      "hi",
		Type:      domain.MessageTypeChat,
	}
}

func TestMessageHistoryBound(t *testing.T) {
	s := newTestStore(t)

	for i := 0; i < domain.MaxChannelMessages+20; i++ {
		s.AddMessage(msg(fmt.Sprintf("m-%d", i), "chan-1", "other"))
	}

	msgs := s.Messages("chan-1")
	require.Len(t, msgs, domain.MaxChannelMessages)
	// Oldest entries are evicted first.
	assert.Equal(t, domain.MessageID("m-20"), msgs[0].ID)
	assert.Equal(t, domain.MessageID(fmt.Sprintf("m-%d", domain.MaxChannelMessages+19)), msgs[len(msgs)-1].ID)
}

func TestUnreadCounting(t *testing.T) {
	s := newTestStore(t)
	s.FinishReady(&domain.SessionClaims{User: domain.User{ID: "me"}, Role: domain.RoleFan})

	s.AddMessage(msg("m-1", "chan-1", "other"))
	s.AddMessage(msg("m-2", "chan-1", "other"))
	assert.Equal(t, 2, s.UnreadCount("chan-1"))

	// Own messages never count as unread.
	s.AddMessage(msg("m-3", "chan-1", "me"))
	assert.Equal(t, 2, s.UnreadCount("chan-1"))

	// Entering the channel clears its counter; messages arriving while it is
	// active do not accrue.
	s.SetActiveChannel("chan-1")
	assert.Equal(t, 0, s.UnreadCount("chan-1"))
	s.AddMessage(msg("m-4", "chan-1", "other"))
	assert.Equal(t, 0, s.UnreadCount("chan-1"))

	// Other channels still accrue.
	s.AddMessage(msg("m-5", "chan-2", "other"))
	assert.Equal(t, 1, s.UnreadCount("chan-2"))

	s.SetActiveChannel("chan-2")
	assert.Equal(t, 0, s.UnreadCount("chan-2"))
	s.AddMessage(msg("m-6", "chan-1", "other"))
	assert.Equal(t, 1, s.UnreadCount("chan-1"))
}

func TestHasMessage(t *testing.T) {
	s := newTestStore(t)
	s.AddMessage(msg("m-1", "chan-1", "other"))

	assert.True(t, s.HasMessage("chan-1", "m-1"))
	assert.False(t, s.HasMessage("chan-1", "m-2"))
	assert.False(t, s.HasMessage("chan-9", "m-1"))
}

func TestUpdateCallStatus(t *testing.T) {
	s := newTestStore(t)

	call := msg("m-1", "chan-1", "other")
	call.Type = domain.MessageTypeCallRequest
	call.Status = domain.CallPending
	s.AddMessage(call)
	s.AddMessage(msg("m-2", "chan-1", "other"))

	assert.True(t, s.UpdateCallStatus("chan-1", "m-1", domain.CallAccepted))
	msgs := s.Messages("chan-1")
	assert.Equal(t, domain.CallAccepted, msgs[0].Status)

	// Only call-request messages carry a status.
	assert.False(t, s.UpdateCallStatus("chan-1", "m-2", domain.CallAccepted))
	assert.False(t, s.UpdateCallStatus("chan-1", "m-404", domain.CallDeclined))
}

func TestIncomingCallSlot(t *testing.T) {
	s := newTestStore(t)

	assert.Nil(t, s.IncomingCall())

	first := domain.IncomingCall{CallID: "c-1", ChannelID: "chan-1", Caller: "alice"}
	s.SetIncomingCall(first)
	got := s.IncomingCall()
	require.NotNil(t, got)
	assert.Equal(t, "c-1", got.CallID)

	// A second ring replaces the slot; there is only ever one.
	s.SetIncomingCall(domain.IncomingCall{CallID: "c-2", ChannelID: "chan-2"})
	got = s.IncomingCall()
	require.NotNil(t, got)
	assert.Equal(t, "c-2", got.CallID)

	s.ClearIncomingCall()
	assert.Nil(t, s.IncomingCall())
}

func TestTypingUsersSorted(t *testing.T) {
	s := newTestStore(t)

	s.SetTyping("chan-1", "zoe")
	s.SetTyping("chan-1", "alice")
	s.SetTyping("chan-1", "bob")

	assert.Equal(t, []domain.UserID{"alice", "bob", "zoe"}, s.TypingUsers("chan-1"))

	s.ClearTyping("chan-1", "bob")
	assert.Equal(t, []domain.UserID{"alice", "zoe"}, s.TypingUsers("chan-1"))
}
