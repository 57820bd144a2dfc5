package chat

import "time"

// Log is one room's bounded message log: an append-only FIFO of at most
// capacity entries. Insertion beyond capacity evicts the oldest entry.
// Log is not safe for concurrent use; the Service serializes access.
type Log struct {
	capacity int
	messages []*Message
}

// NewLog creates an empty log with the given capacity.
//
// Precondition: capacity must be >= 1.
func NewLog(capacity int) *Log {
	return &Log{
		capacity: capacity,
		messages: make([]*Message, 0, capacity),
	}
}

// Append adds a message, evicting the oldest entry when full.
//
// Postcondition: Len() <= capacity; the newest message is last.
func (l *Log) Append(msg *Message) {
	if len(l.messages) >= l.capacity {
		evict := len(l.messages) - l.capacity + 1
		l.messages = append(l.messages[:0], l.messages[evict:]...)
	}
	l.messages = append(l.messages, msg)
}

// Find returns the message with the given ID.
//
// Postcondition: Returns (message, true) if found, or (nil, false) otherwise.
func (l *Log) Find(id string) (*Message, bool) {
	for _, m := range l.messages {
		if m.ID == id {
			return m, true
		}
	}
	return nil, false
}

// Remove deletes the message with the given ID.
//
// Postcondition: Returns true if a message was removed.
func (l *Log) Remove(id string) bool {
	for i, m := range l.messages {
		if m.ID == id {
			l.messages = append(l.messages[:i], l.messages[i+1:]...)
			return true
		}
	}
	return false
}

// Clear discards all messages.
func (l *Log) Clear() {
	l.messages = l.messages[:0]
}

// Len returns the number of stored messages.
func (l *Log) Len() int {
	return len(l.messages)
}

// Oldest returns the oldest stored message, or nil when empty.
func (l *Log) Oldest() *Message {
	if len(l.messages) == 0 {
		return nil
	}
	return l.messages[0]
}

// History returns up to limit messages, newest last, optionally restricted
// to messages strictly older than before, excluding any for which skip
// returns true.
//
// Precondition: limit must be >= 1; skip may be nil.
// Postcondition: hasMore reports whether older qualifying messages remain.
func (l *Log) History(limit int, before time.Time, skip func(*Message) bool) (messages []*Message, hasMore bool) {
	// Walk backwards from the newest qualifying message.
	collected := make([]*Message, 0, limit)
	for i := len(l.messages) - 1; i >= 0; i-- {
		m := l.messages[i]
		if !before.IsZero() && !m.Timestamp.Before(before) {
			continue
		}
		if skip != nil && skip(m) {
			continue
		}
		if len(collected) == limit {
			hasMore = true
			break
		}
		collected = append(collected, m)
	}

	// Reverse into chronological order.
	for i, j := 0, len(collected)-1; i < j; i, j = i+1, j-1 {
		collected[i], collected[j] = collected[j], collected[i]
	}
	return collected, hasMore
}
