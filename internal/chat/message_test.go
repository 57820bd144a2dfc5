package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractMentions(t *testing.T) {
	cases := []struct {
		body string
		want []string
	}{
		{"hello @S2", []string{"S2"}},
		{"@alice @bob check this", []string{"alice", "bob"}},
		{"email me at a@b won't match fully", []string{"b"}},
		{"no mentions here", nil},
		{"@", nil},
		{"trailing @name!", []string{"name"}},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ExtractMentions(tc.body), "body %q", tc.body)
	}
}

func TestNewMessage(t *testing.T) {
	msg := NewMessage("s1", "Alice", "hi @bob", KindChat, "parent-id")
	assert.NotEmpty(t, msg.ID)
	assert.Equal(t, "s1", msg.Sender)
	assert.Equal(t, "Alice", msg.SenderName)
	assert.Equal(t, KindChat, msg.Kind)
	assert.Equal(t, []string{"bob"}, msg.Mentions)
	assert.Equal(t, "parent-id", msg.ReplyTo)
	assert.False(t, msg.Timestamp.IsZero())
	assert.NotNil(t, msg.Reactions)
	assert.False(t, msg.Edited)
}

func TestNewMessageUniqueIDs(t *testing.T) {
	a := NewMessage("s1", "Alice", "one", KindChat, "")
	b := NewMessage("s1", "Alice", "two", KindChat, "")
	assert.NotEqual(t, a.ID, b.ID)
}

func TestNewSystemMessage(t *testing.T) {
	msg := NewSystemMessage("room cleared")
	assert.Equal(t, KindSystem, msg.Kind)
	assert.Empty(t, msg.Sender)
	assert.Equal(t, "system", msg.SenderName)
}

func TestReactionUserList(t *testing.T) {
	r := &Reaction{Users: map[string]bool{"s1": true, "s2": true}, Count: 2}
	users := r.UserList()
	require.Len(t, users, 2)
	assert.ElementsMatch(t, []string{"s1", "s2"}, users)
}
