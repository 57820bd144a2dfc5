// Package chat provides per-room bounded message logs, reactions,
// moderation, muting, and the chat command registry.
package chat

import (
	"regexp"
	"time"

	"github.com/google/uuid"
)

// Kind classifies a chat message.
type Kind string

// Message kinds.
const (
	KindChat    Kind = "chat"
	KindSystem  Kind = "system"
	KindAction  Kind = "action"
	KindWhisper Kind = "whisper"
)

// mentionPattern matches @name tokens: word characters following an @.
var mentionPattern = regexp.MustCompile(`@(\w+)`)

// ExtractMentions returns the names mentioned in a message body.
//
// Postcondition: Returns the @-prefixed word tokens in order of appearance,
// without the @; may be empty.
func ExtractMentions(body string) []string {
	matches := mentionPattern.FindAllStringSubmatch(body, -1)
	if len(matches) == 0 {
		return nil
	}
	mentions := make([]string, 0, len(matches))
	for _, m := range matches {
		mentions = append(mentions, m[1])
	}
	return mentions
}

// Reaction records one emoji's reactions on a message.
type Reaction struct {
	// Count mirrors len(Users).
	Count int `json:"count"`
	// Users is the set of handles that reacted with this emoji.
	Users map[string]bool `json:"-"`
}

// UserList returns the reacting handles as a slice for payloads.
func (r *Reaction) UserList() []string {
	users := make([]string, 0, len(r.Users))
	for u := range r.Users {
		users = append(users, u)
	}
	return users
}

// Message is one chat log entry. Mutated in place only by edit, reaction,
// and delete operations on the owning room's log; never moved between rooms.
type Message struct {
	// ID uniquely identifies the message.
	ID string `json:"id"`
	// Sender is the authoring session handle.
	Sender string `json:"senderHandle"`
	// SenderName is the author's display name at post time.
	SenderName string `json:"senderName"`
	// Body is the message text.
	Body string `json:"body"`
	// Timestamp is the server-assigned post time.
	Timestamp time.Time `json:"timestamp"`
	// Kind classifies the message.
	Kind Kind `json:"kind"`
	// Reactions maps emoji to reaction records. No zero-count entries persist.
	Reactions map[string]*Reaction `json:"-"`
	// Mentions lists names extracted from the body.
	Mentions []string `json:"mentions,omitempty"`
	// ReplyTo is the ID of the message this replies to, if any.
	ReplyTo string `json:"repliedTo,omitempty"`
	// Edited is true once the body has been edited.
	Edited bool `json:"edited,omitempty"`
}

// NewMessage creates a message with a fresh ID, the current time, and
// mentions extracted from the body.
//
// Precondition: sender and body should be non-empty for participant messages.
func NewMessage(sender, senderName, body string, kind Kind, replyTo string) *Message {
	return &Message{
		ID:         uuid.NewString(),
		Sender:     sender,
		SenderName: senderName,
		Body:       body,
		Timestamp:  time.Now(),
		Kind:       kind,
		Reactions:  make(map[string]*Reaction),
		Mentions:   ExtractMentions(body),
		ReplyTo:    replyTo,
	}
}

// NewSystemMessage creates a system message with no sender.
func NewSystemMessage(body string) *Message {
	return &Message{
		ID:         uuid.NewString(),
		SenderName: "system",
		Body:       body,
		Timestamp:  time.Now(),
		Kind:       KindSystem,
		Reactions:  make(map[string]*Reaction),
	}
}
