package chat

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func makeMessage(n int) *Message {
	msg := NewMessage(fmt.Sprintf("s%d", n), fmt.Sprintf("User%d", n), fmt.Sprintf("message %d", n), KindChat, "")
	// Force strictly increasing timestamps for deterministic ordering.
	msg.Timestamp = time.Unix(int64(1000+n), 0)
	return msg
}

func TestLogAppendAndFind(t *testing.T) {
	l := NewLog(10)
	msg := makeMessage(1)
	l.Append(msg)

	found, ok := l.Find(msg.ID)
	require.True(t, ok)
	assert.Same(t, msg, found)

	_, ok = l.Find("missing")
	assert.False(t, ok)
}

func TestLogEvictsOldestAtCapacity(t *testing.T) {
	l := NewLog(3)
	first := makeMessage(0)
	l.Append(first)
	for i := 1; i < 4; i++ {
		l.Append(makeMessage(i))
	}

	assert.Equal(t, 3, l.Len())
	_, ok := l.Find(first.ID)
	assert.False(t, ok, "oldest entry evicted")
	assert.Equal(t, "message 1", l.Oldest().Body)
}

func TestPropertyLogNeverExceedsCapacity(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		capacity := rapid.IntRange(1, 50).Draw(t, "capacity")
		l := NewLog(capacity)
		appends := rapid.IntRange(0, 200).Draw(t, "appends")
		for i := 0; i < appends; i++ {
			l.Append(makeMessage(i))
		}
		if l.Len() > capacity {
			t.Fatalf("log grew to %d, capacity %d", l.Len(), capacity)
		}
		if appends > capacity {
			// The surviving oldest entry is exactly the one after the evicted run.
			want := fmt.Sprintf("message %d", appends-capacity)
			if l.Oldest().Body != want {
				t.Fatalf("oldest is %q, want %q", l.Oldest().Body, want)
			}
		}
	})
}

func TestLogRemove(t *testing.T) {
	l := NewLog(10)
	a, b := makeMessage(1), makeMessage(2)
	l.Append(a)
	l.Append(b)

	assert.True(t, l.Remove(a.ID))
	assert.Equal(t, 1, l.Len())
	assert.False(t, l.Remove(a.ID))
}

func TestLogClear(t *testing.T) {
	l := NewLog(10)
	l.Append(makeMessage(1))
	l.Clear()
	assert.Equal(t, 0, l.Len())
	assert.Nil(t, l.Oldest())
}

func TestLogHistoryNewestLast(t *testing.T) {
	l := NewLog(10)
	for i := 0; i < 5; i++ {
		l.Append(makeMessage(i))
	}

	msgs, hasMore := l.History(3, time.Time{}, nil)
	require.Len(t, msgs, 3)
	assert.True(t, hasMore)
	assert.Equal(t, "message 2", msgs[0].Body)
	assert.Equal(t, "message 4", msgs[2].Body)
}

func TestLogHistoryBeforeIsStrict(t *testing.T) {
	l := NewLog(10)
	for i := 0; i < 5; i++ {
		l.Append(makeMessage(i))
	}

	// before == timestamp of message 3: only strictly older qualify.
	msgs, hasMore := l.History(10, time.Unix(1003, 0), nil)
	require.Len(t, msgs, 3)
	assert.False(t, hasMore)
	assert.Equal(t, "message 2", msgs[len(msgs)-1].Body)
}

func TestLogHistorySkipFilter(t *testing.T) {
	l := NewLog(10)
	for i := 0; i < 6; i++ {
		l.Append(makeMessage(i))
	}

	msgs, hasMore := l.History(2, time.Time{}, func(m *Message) bool {
		return m.Sender == "s5"
	})
	require.Len(t, msgs, 2)
	assert.True(t, hasMore)
	assert.Equal(t, "message 3", msgs[0].Body)
	assert.Equal(t, "message 4", msgs[1].Body)
}

func TestLogHistoryEmpty(t *testing.T) {
	l := NewLog(10)
	msgs, hasMore := l.History(5, time.Time{}, nil)
	assert.Empty(t, msgs)
	assert.False(t, hasMore)
}
