package chat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService() *Service {
	return NewService(500, 100)
}

func postMessage(t *testing.T, s *Service, roomID, sender, body string) *Message {
	t.Helper()
	msg := NewMessage(sender, sender, body, KindChat, "")
	s.Append(roomID, msg)
	return msg
}

func TestServiceAppendAndFind(t *testing.T) {
	s := newTestService()
	msg := postMessage(t, s, "room-a", "s1", "hello")

	found, err := s.Find("room-a", msg.ID)
	require.NoError(t, err)
	assert.Same(t, msg, found)

	_, err = s.Find("room-a", "missing")
	assert.ErrorIs(t, err, ErrMessageNotFound)

	_, err = s.Find("room-b", msg.ID)
	assert.ErrorIs(t, err, ErrMessageNotFound, "logs are room-scoped")
}

func TestReactAddAndRemoveRoundTrip(t *testing.T) {
	s := newTestService()
	msg := postMessage(t, s, "room-a", "s1", "hello")

	_, err := s.React("room-a", msg.ID, "👍", "s2", true)
	require.NoError(t, err)
	require.Contains(t, msg.Reactions, "👍")
	assert.Equal(t, 1, msg.Reactions["👍"].Count)
	assert.True(t, msg.Reactions["👍"].Users["s2"])

	_, err = s.React("room-a", msg.ID, "👍", "s2", false)
	require.NoError(t, err)
	assert.NotContains(t, msg.Reactions, "👍", "empty reaction entries are deleted")
}

func TestReactAddTwiceIsIdempotent(t *testing.T) {
	s := newTestService()
	msg := postMessage(t, s, "room-a", "s1", "hello")

	_, err := s.React("room-a", msg.ID, "🎉", "s2", true)
	require.NoError(t, err)
	_, err = s.React("room-a", msg.ID, "🎉", "s2", true)
	require.NoError(t, err)
	assert.Equal(t, 1, msg.Reactions["🎉"].Count)
}

func TestReactMultipleActors(t *testing.T) {
	s := newTestService()
	msg := postMessage(t, s, "room-a", "s1", "hello")

	_, _ = s.React("room-a", msg.ID, "👍", "s2", true)
	_, _ = s.React("room-a", msg.ID, "👍", "s3", true)
	assert.Equal(t, 2, msg.Reactions["👍"].Count)

	_, _ = s.React("room-a", msg.ID, "👍", "s2", false)
	assert.Equal(t, 1, msg.Reactions["👍"].Count)
	assert.True(t, msg.Reactions["👍"].Users["s3"])
}

func TestReactRemoveMissingIsNoop(t *testing.T) {
	s := newTestService()
	msg := postMessage(t, s, "room-a", "s1", "hello")

	_, err := s.React("room-a", msg.ID, "👍", "s2", false)
	require.NoError(t, err)
	assert.Empty(t, msg.Reactions)

	_, err = s.React("room-a", "missing", "👍", "s2", false)
	assert.ErrorIs(t, err, ErrMessageNotFound)
}

func TestEditByAuthor(t *testing.T) {
	s := newTestService()
	msg := postMessage(t, s, "room-a", "s1", "hello @bob")

	edited, err := s.Edit("room-a", msg.ID, "s1", "hi @carol")
	require.NoError(t, err)
	assert.Equal(t, "hi @carol", edited.Body)
	assert.Equal(t, []string{"carol"}, edited.Mentions, "mentions re-extracted")
	assert.True(t, edited.Edited)
}

func TestEditByNonAuthorRejected(t *testing.T) {
	s := newTestService()
	msg := postMessage(t, s, "room-a", "s1", "hello")

	_, err := s.Edit("room-a", msg.ID, "s2", "hijacked")
	assert.ErrorIs(t, err, ErrNotAllowed)
	assert.Equal(t, "hello", msg.Body)

	// Moderators may delete but not edit.
	s.AddModerator("s2")
	_, err = s.Edit("room-a", msg.ID, "s2", "hijacked")
	assert.ErrorIs(t, err, ErrNotAllowed)
}

func TestDeleteByAuthorAndModerator(t *testing.T) {
	s := newTestService()
	msg := postMessage(t, s, "room-a", "s1", "one")

	require.NoError(t, s.Delete("room-a", msg.ID, "s1"))
	_, err := s.Find("room-a", msg.ID)
	assert.ErrorIs(t, err, ErrMessageNotFound, "hard delete")

	msg2 := postMessage(t, s, "room-a", "s1", "two")
	assert.ErrorIs(t, s.Delete("room-a", msg2.ID, "s3"), ErrNotAllowed)

	s.AddModerator("s3")
	require.NoError(t, s.Delete("room-a", msg2.ID, "s3"))
}

func TestClear(t *testing.T) {
	s := newTestService()
	postMessage(t, s, "room-a", "s1", "one")
	postMessage(t, s, "room-a", "s2", "two")

	s.Clear("room-a")
	assert.Equal(t, 0, s.LogLen("room-a"))

	s.Clear("never-seen") // no-op
}

func TestHistoryExcludesMutedSenders(t *testing.T) {
	s := newTestService()
	postMessage(t, s, "room-a", "s1", "from s1")
	postMessage(t, s, "room-a", "s2", "from s2")
	postMessage(t, s, "room-a", "s1", "more s1")

	s.Mute("viewer", "s1")
	msgs, _ := s.History("room-a", "viewer", 10, time.Time{})
	require.Len(t, msgs, 1)
	assert.Equal(t, "from s2", msgs[0].Body)

	// System messages survive mute filtering.
	s.Append("room-a", NewSystemMessage("notice"))
	msgs, _ = s.History("room-a", "viewer", 10, time.Time{})
	assert.Len(t, msgs, 2)
}

func TestHistoryClampsLimit(t *testing.T) {
	s := NewService(500, 2)
	for i := 0; i < 5; i++ {
		postMessage(t, s, "room-a", "s1", "msg")
	}

	msgs, hasMore := s.History("room-a", "viewer", 100, time.Time{})
	assert.Len(t, msgs, 2)
	assert.True(t, hasMore)

	msgs, _ = s.History("room-a", "viewer", 0, time.Time{})
	assert.Len(t, msgs, 2)
}

func TestHistoryUnknownRoom(t *testing.T) {
	s := newTestService()
	msgs, hasMore := s.History("nowhere", "viewer", 10, time.Time{})
	assert.Empty(t, msgs)
	assert.False(t, hasMore)
}

func TestMuteAndFilterRecipients(t *testing.T) {
	s := newTestService()
	members := []string{"s1", "s2", "s3"}

	assert.Equal(t, members, s.FilterRecipients("s1", members))

	s.Mute("s2", "s1")
	assert.True(t, s.IsMuted("s2", "s1"))
	assert.False(t, s.IsMuted("s1", "s2"), "mute is one-directional")

	recipients := s.FilterRecipients("s1", members)
	assert.ElementsMatch(t, []string{"s1", "s3"}, recipients)

	s.Unmute("s2", "s1")
	assert.Equal(t, members, s.FilterRecipients("s1", members))
}

func TestForgetHandle(t *testing.T) {
	s := newTestService()
	s.Mute("s1", "s2")
	s.Mute("s3", "s1")
	s.AddModerator("s1")
	s.SetTyping("room-a", "s1", true)

	s.ForgetHandle("s1")

	assert.False(t, s.IsMuted("s1", "s2"), "own mute set deleted")
	assert.False(t, s.IsMuted("s3", "s1"), "removed from other actors' sets")
	assert.False(t, s.IsModerator("s1"))
	assert.Empty(t, s.TypingIn("room-a"))
}

func TestModerators(t *testing.T) {
	s := newTestService()
	assert.False(t, s.IsModerator("s1"))
	s.AddModerator("s1")
	assert.True(t, s.IsModerator("s1"))
	s.RemoveModerator("s1")
	assert.False(t, s.IsModerator("s1"))
}

func TestTypingToggles(t *testing.T) {
	s := newTestService()

	assert.True(t, s.SetTyping("room-a", "s1", true))
	assert.False(t, s.SetTyping("room-a", "s1", true), "already typing")
	assert.Equal(t, []string{"s1"}, s.TypingIn("room-a"))

	assert.True(t, s.SetTyping("room-a", "s1", false))
	assert.False(t, s.SetTyping("room-a", "s1", false), "already stopped")
	assert.Empty(t, s.TypingIn("room-a"))
}
