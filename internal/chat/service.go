package chat

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// Sentinel errors for chat operations.
var (
	ErrMessageNotFound = errors.New("message not found")
	ErrNotAllowed      = errors.New("not allowed")
)

// Service owns all per-room chat state: bounded logs, reactions, mutes,
// moderators, and typing indicators. All methods are safe for concurrent
// use, though the world controller serializes calls through the dispatcher.
type Service struct {
	mu         sync.RWMutex
	capacity   int
	pageLimit  int
	logs       map[string]*Log            // roomID → log
	mutes      map[string]map[string]bool // actor → set of muted handles
	moderators map[string]bool            // handle → is moderator
	typing     map[string]map[string]bool // roomID → set of typing handles
}

// NewService creates a Service.
//
// Precondition: capacity >= 1; pageLimit >= 1 and <= capacity.
func NewService(capacity, pageLimit int) *Service {
	return &Service{
		capacity:   capacity,
		pageLimit:  pageLimit,
		logs:       make(map[string]*Log),
		mutes:      make(map[string]map[string]bool),
		moderators: make(map[string]bool),
		typing:     make(map[string]map[string]bool),
	}
}

func (s *Service) logFor(roomID string) *Log {
	l, ok := s.logs[roomID]
	if !ok {
		l = NewLog(s.capacity)
		s.logs[roomID] = l
	}
	return l
}

// Append adds a message to a room's log.
//
// Postcondition: The room's log holds the message; the oldest entry is
// evicted if the log was full.
func (s *Service) Append(roomID string, msg *Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logFor(roomID).Append(msg)
}

// LogLen returns the number of messages in a room's log.
func (s *Service) LogLen(roomID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if l, ok := s.logs[roomID]; ok {
		return l.Len()
	}
	return 0
}

// Find returns a message from a room's log.
//
// Postcondition: Returns the message, or ErrMessageNotFound.
func (s *Service) Find(roomID, messageID string) (*Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if l, ok := s.logs[roomID]; ok {
		if m, found := l.Find(messageID); found {
			return m, nil
		}
	}
	return nil, fmt.Errorf("message %q in room %q: %w", messageID, roomID, ErrMessageNotFound)
}

// React adds or removes one actor's reaction on a message. Adding twice is
// a no-op; removing the last reaction of an emoji deletes its entry, so no
// zero-count entries persist.
//
// Postcondition: Returns the updated message, or ErrMessageNotFound.
func (s *Service) React(roomID, messageID, emoji, actor string, add bool) (*Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.logs[roomID]
	if !ok {
		return nil, fmt.Errorf("message %q in room %q: %w", messageID, roomID, ErrMessageNotFound)
	}
	msg, found := l.Find(messageID)
	if !found {
		return nil, fmt.Errorf("message %q in room %q: %w", messageID, roomID, ErrMessageNotFound)
	}

	if add {
		r, ok := msg.Reactions[emoji]
		if !ok {
			r = &Reaction{Users: make(map[string]bool)}
			msg.Reactions[emoji] = r
		}
		if !r.Users[actor] {
			r.Users[actor] = true
			r.Count = len(r.Users)
		}
	} else {
		if r, ok := msg.Reactions[emoji]; ok {
			delete(r.Users, actor)
			r.Count = len(r.Users)
			if r.Count == 0 {
				delete(msg.Reactions, emoji)
			}
		}
	}
	return msg, nil
}

// Edit replaces a message body. Only the original author may edit; mentions
// are re-extracted from the new body.
//
// Postcondition: Returns the updated message, ErrMessageNotFound, or
// ErrNotAllowed for a non-author.
func (s *Service) Edit(roomID, messageID, actor, newBody string) (*Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.logs[roomID]
	if !ok {
		return nil, fmt.Errorf("message %q in room %q: %w", messageID, roomID, ErrMessageNotFound)
	}
	msg, found := l.Find(messageID)
	if !found {
		return nil, fmt.Errorf("message %q in room %q: %w", messageID, roomID, ErrMessageNotFound)
	}
	if msg.Sender != actor {
		return nil, fmt.Errorf("only the author may edit: %w", ErrNotAllowed)
	}

	msg.Body = newBody
	msg.Mentions = ExtractMentions(newBody)
	msg.Edited = true
	return msg, nil
}

// Delete removes a message from a room's log entirely. The author or a
// moderator may delete.
//
// Postcondition: The message is gone from the log, or ErrMessageNotFound /
// ErrNotAllowed is returned.
func (s *Service) Delete(roomID, messageID, actor string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.logs[roomID]
	if !ok {
		return fmt.Errorf("message %q in room %q: %w", messageID, roomID, ErrMessageNotFound)
	}
	msg, found := l.Find(messageID)
	if !found {
		return fmt.Errorf("message %q in room %q: %w", messageID, roomID, ErrMessageNotFound)
	}
	if msg.Sender != actor && !s.moderators[actor] {
		return fmt.Errorf("only the author or a moderator may delete: %w", ErrNotAllowed)
	}
	l.Remove(messageID)
	return nil
}

// ForceDelete removes a message without permission checks. Reserved for the
// administrative surface; in-world deletion goes through Delete.
func (s *Service) ForceDelete(roomID, messageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.logs[roomID]
	if !ok || !l.Remove(messageID) {
		return fmt.Errorf("message %q in room %q: %w", messageID, roomID, ErrMessageNotFound)
	}
	return nil
}

// Clear discards a room's whole log.
func (s *Service) Clear(roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.logs[roomID]; ok {
		l.Clear()
	}
}

// History returns up to limit messages strictly older than before (zero =
// no bound), newest last, excluding messages whose sender the requester has
// muted. Limits above the configured page limit are clamped.
//
// Postcondition: hasMore reports whether older qualifying messages remain.
func (s *Service) History(roomID, requester string, limit int, before time.Time) ([]*Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit < 1 || limit > s.pageLimit {
		limit = s.pageLimit
	}
	l, ok := s.logs[roomID]
	if !ok {
		return nil, false
	}

	muted := s.mutes[requester]
	return l.History(limit, before, func(m *Message) bool {
		return m.Sender != "" && muted[m.Sender]
	})
}

// Mute suppresses future deliveries from target to actor.
//
// Postcondition: IsMuted(actor, target) is true.
func (s *Service) Mute(actor, target string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mutes[actor] == nil {
		s.mutes[actor] = make(map[string]bool)
	}
	s.mutes[actor][target] = true
}

// Unmute removes a mute. Only future deliveries are affected; messages the
// actor missed while the mute was active are not redelivered.
func (s *Service) Unmute(actor, target string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if set, ok := s.mutes[actor]; ok {
		delete(set, target)
		if len(set) == 0 {
			delete(s.mutes, actor)
		}
	}
}

// IsMuted reports whether actor has muted target.
func (s *Service) IsMuted(actor, target string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mutes[actor][target]
}

// FilterRecipients returns the members that should receive a message from
// sender: mute is evaluated per-recipient at delivery time.
//
// Postcondition: Returns members minus those who muted the sender.
func (s *Service) FilterRecipients(sender string, members []string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	recipients := make([]string, 0, len(members))
	for _, m := range members {
		if s.mutes[m][sender] {
			continue
		}
		recipients = append(recipients, m)
	}
	return recipients
}

// ForgetHandle removes a disconnecting handle from all mute bookkeeping:
// its own mute set, every other actor's mute set, the moderator set, and
// all typing sets.
func (s *Service) ForgetHandle(handle string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.mutes, handle)
	for actor, set := range s.mutes {
		delete(set, handle)
		if len(set) == 0 {
			delete(s.mutes, actor)
		}
	}
	delete(s.moderators, handle)
	for roomID, set := range s.typing {
		delete(set, handle)
		if len(set) == 0 {
			delete(s.typing, roomID)
		}
	}
}

// AddModerator grants moderator status to a handle.
func (s *Service) AddModerator(handle string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.moderators[handle] = true
}

// RemoveModerator revokes moderator status.
func (s *Service) RemoveModerator(handle string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.moderators, handle)
}

// IsModerator reports whether a handle holds moderator status.
func (s *Service) IsModerator(handle string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.moderators[handle]
}

// SetTyping toggles a handle's typing indicator in a room.
//
// Postcondition: Returns true if the set changed.
func (s *Service) SetTyping(roomID, handle string, typing bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.typing[roomID]
	if typing {
		if !ok {
			set = make(map[string]bool)
			s.typing[roomID] = set
		}
		if set[handle] {
			return false
		}
		set[handle] = true
		return true
	}
	if !ok || !set[handle] {
		return false
	}
	delete(set, handle)
	if len(set) == 0 {
		delete(s.typing, roomID)
	}
	return true
}

// TypingIn returns the handles currently typing in a room.
func (s *Service) TypingIn(roomID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	set, ok := s.typing[roomID]
	if !ok {
		return nil
	}
	handles := make([]string, 0, len(set))
	for h := range set {
		handles = append(handles, h)
	}
	return handles
}
