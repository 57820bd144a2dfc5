package worldserver

import (
	"encoding/json"
	"time"

	"github.com/hollowroot/verse/internal/chat"
	"github.com/hollowroot/verse/internal/progress"
	"github.com/hollowroot/verse/internal/session"
	"github.com/hollowroot/verse/internal/world"
)

// Envelope is the wire frame for every event in either direction.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Inbound event names.
const (
	EventJoinWorld          = "join-world"
	EventTeleport           = "teleport"
	EventInteract           = "interact"
	EventPositionUpdate     = "position-update"
	EventAvatarUpdate       = "avatar-update"
	EventChat               = "chat"
	EventWhisper            = "whisper"
	EventTypingStart        = "typing-start"
	EventTypingStop         = "typing-stop"
	EventReact              = "react"
	EventEditMessage        = "edit-message"
	EventDeleteMessage      = "delete-message"
	EventRequestChatHistory = "request-chat-history"
)

// Outbound event names.
const (
	EventRoomData             = "room-data"
	EventUserData             = "user-data"
	EventUsersUpdate          = "users-update"
	EventUserJoined           = "user-joined"
	EventUserLeft             = "user-left"
	EventUserMoved            = "user-moved"
	EventChatMessage          = "chat-message"
	EventChatHistory          = "chat-history"
	EventReactionUpdated      = "message-reaction-updated"
	EventMessageEdited        = "message-edited"
	EventMessageDeleted       = "message-deleted"
	EventObjectStateChanged   = "object-state-changed"
	EventTypingUpdate         = "typing-update"
	EventAchievementsUnlocked = "achievements-unlocked"
	EventKicked               = "kicked"
	EventError                = "error"
)

// JoinWorldRequest asks to enter a room. An empty RoomID selects the
// configured default room.
type JoinWorldRequest struct {
	RoomID      string `json:"roomId,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
}

// TeleportRequest activates a teleporter in the sender's current room.
type TeleportRequest struct {
	TeleporterID string `json:"teleporterId"`
}

// InteractRequest triggers an interactive object in the sender's room.
type InteractRequest struct {
	ObjectID string `json:"objectId"`
}

// PositionUpdate reports the sender's new transform.
type PositionUpdate struct {
	Position world.Vec3 `json:"position"`
	Rotation world.Vec3 `json:"rotation"`
}

// AvatarUpdate merges customization key/value pairs into the sender's
// session.
type AvatarUpdate struct {
	Customization map[string]string `json:"customization"`
}

// ChatRequest posts a message (or a slash command) to the sender's room.
type ChatRequest struct {
	Body    string `json:"body"`
	ReplyTo string `json:"replyTo,omitempty"`
}

// WhisperRequest sends a private message to another user by display name.
type WhisperRequest struct {
	Target  string `json:"target"`
	Message string `json:"message"`
}

// ReactRequest adds or removes an emoji reaction on a message.
type ReactRequest struct {
	MessageID string `json:"messageId"`
	Emoji     string `json:"emoji"`
	Action    string `json:"action"`
}

// EditRequest rewrites the body of one of the sender's own messages.
type EditRequest struct {
	MessageID string `json:"messageId"`
	NewBody   string `json:"newBody"`
}

// DeleteRequest removes a message from the room log.
type DeleteRequest struct {
	MessageID string `json:"messageId"`
}

// HistoryRequest pages backward through the room's chat log. Before is a
// millisecond Unix timestamp; zero means "from the newest".
type HistoryRequest struct {
	Limit  int   `json:"limit,omitempty"`
	Before int64 `json:"before,omitempty"`
}

// SessionView is the client-facing projection of a session.
type SessionView struct {
	Handle        string            `json:"handle"`
	DisplayName   string            `json:"displayName"`
	Position      world.Vec3        `json:"position"`
	Rotation      world.Vec3        `json:"rotation"`
	RoomID        string            `json:"roomId"`
	Customization map[string]string `json:"customization,omitempty"`
}

// TeleporterView is the client-facing projection of a teleporter.
type TeleporterView struct {
	ID         string     `json:"id"`
	TargetRoom string     `json:"targetRoom"`
	Position   world.Vec3 `json:"targetPosition"`
	Active     bool       `json:"active"`
	MinLevel   int        `json:"minLevel,omitempty"`
}

// ObjectView is the client-facing projection of a world object.
type ObjectView struct {
	ID           string           `json:"id"`
	Type         world.ObjectType `json:"type"`
	Name         string           `json:"name"`
	Position     world.Vec3       `json:"position"`
	Interactable bool             `json:"interactable"`
	State        map[string]any   `json:"state"`
}

// RoomView is the client-facing projection of a room.
type RoomView struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Theme       string            `json:"theme,omitempty"`
	SpawnPoint  world.Vec3        `json:"spawnPoint"`
	Size        world.Size        `json:"size"`
	Environment world.Environment `json:"environment"`
	Teleporters []TeleporterView  `json:"teleporters"`
	Objects     []ObjectView      `json:"objects"`
}

// AchievementView is the client-facing projection of an achievement.
type AchievementView struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	RewardXP    int    `json:"rewardXp,omitempty"`
}

// ProgressView is the client-facing projection of a progress record.
type ProgressView struct {
	Level        int            `json:"level"`
	XP           int            `json:"xp"`
	XPToNext     int            `json:"xpToNext"`
	Achievements []string       `json:"achievements"`
	Stats        progress.Stats `json:"stats"`
}

// RoomData is sent to a user entering a room.
type RoomData struct {
	Room     RoomView     `json:"room"`
	Progress ProgressView `json:"progress"`
}

// UserData carries the recipient's own session view.
type UserData struct {
	Session SessionView `json:"session"`
}

// UsersUpdate carries the full member roster of a room.
type UsersUpdate struct {
	RoomID   string        `json:"roomId"`
	Sessions []SessionView `json:"sessions"`
}

// UserJoined announces a new room member.
type UserJoined struct {
	Session SessionView `json:"session"`
}

// UserLeft announces a departed room member.
type UserLeft struct {
	Handle string `json:"handle"`
}

// UserMoved carries another member's transform update.
type UserMoved struct {
	Handle   string     `json:"handle"`
	Position world.Vec3 `json:"position"`
	Rotation world.Vec3 `json:"rotation"`
}

// MessageView is the client-facing projection of a chat message.
type MessageView struct {
	ID        string                  `json:"id"`
	Sender    string                  `json:"senderHandle"`
	Name      string                  `json:"senderName"`
	Body      string                  `json:"body"`
	Timestamp time.Time               `json:"timestamp"`
	Kind      chat.Kind               `json:"kind"`
	Reactions map[string]ReactionView `json:"reactions,omitempty"`
	Mentions  []string                `json:"mentions,omitempty"`
	ReplyTo   string                  `json:"repliedTo,omitempty"`
	Edited    bool                    `json:"edited,omitempty"`
}

// ReactionView summarizes one emoji's reactions on a message.
type ReactionView struct {
	Count int      `json:"count"`
	Users []string `json:"users"`
}

// ChatMessageEvent delivers a single message.
type ChatMessageEvent struct {
	Message MessageView `json:"message"`
}

// ChatHistory delivers one page of the room log, oldest first.
type ChatHistory struct {
	Messages []MessageView `json:"messages"`
	HasMore  bool          `json:"hasMore"`
}

// ReactionUpdated announces a reaction change on a message.
type ReactionUpdated struct {
	MessageID string   `json:"messageId"`
	Emoji     string   `json:"emoji"`
	Count     int      `json:"count"`
	Users     []string `json:"users"`
}

// MessageEdited announces an edited message.
type MessageEdited struct {
	Message MessageView `json:"message"`
}

// MessageDeleted announces a removed message.
type MessageDeleted struct {
	MessageID string `json:"messageId"`
}

// ObjectStateChanged announces an object state transition in a room.
type ObjectStateChanged struct {
	ObjectID string         `json:"objectId"`
	State    map[string]any `json:"state"`
}

// TypingUpdate carries the set of room members currently typing.
type TypingUpdate struct {
	RoomID  string   `json:"roomId"`
	Handles []string `json:"handles"`
}

// AchievementsUnlocked announces newly granted achievements to their owner.
type AchievementsUnlocked struct {
	Achievements []AchievementView `json:"achievements"`
}

// Kicked tells a user they were removed by a moderator.
type Kicked struct {
	Reason string `json:"reason,omitempty"`
}

// ErrorEvent reports a recoverable failure back to the sender.
type ErrorEvent struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

func sessionView(s *session.Session) SessionView {
	return SessionView{
		Handle:        s.Handle,
		DisplayName:   s.DisplayName,
		Position:      s.Position,
		Rotation:      s.Rotation,
		RoomID:        s.RoomID,
		Customization: s.Customization,
	}
}

func roomView(r *world.Room) RoomView {
	v := RoomView{
		ID:          r.ID,
		Name:        r.Name,
		Theme:       r.Theme,
		SpawnPoint:  r.SpawnPoint,
		Size:        r.Size,
		Environment: r.Environment,
		Teleporters: make([]TeleporterView, 0, len(r.Teleporters)),
		Objects:     make([]ObjectView, 0, len(r.Objects)),
	}
	for _, t := range r.Teleporters {
		v.Teleporters = append(v.Teleporters, TeleporterView{
			ID:         t.ID,
			TargetRoom: t.TargetRoom,
			Position:   t.TargetPosition,
			Active:     t.Active,
			MinLevel:   t.MinLevel,
		})
	}
	for _, o := range r.Objects {
		v.Objects = append(v.Objects, objectView(o))
	}
	return v
}

func objectView(o *world.Object) ObjectView {
	return ObjectView{
		ID:           o.ID,
		Type:         o.Type,
		Name:         o.Name,
		Position:     o.Position,
		Interactable: o.Interactable,
		State:        o.State.Fields(),
	}
}

func progressView(p *progress.Progress) ProgressView {
	achievements := make([]string, len(p.Achievements))
	copy(achievements, p.Achievements)
	return ProgressView{
		Level:        p.Level,
		XP:           p.XP,
		XPToNext:     p.XPToNext,
		Achievements: achievements,
		Stats:        p.Stats,
	}
}

func achievementView(a progress.Achievement) AchievementView {
	return AchievementView{
		ID:          a.ID,
		Name:        a.Name,
		Description: a.Description,
		RewardXP:    a.RewardXP,
	}
}

func messageView(m *chat.Message) MessageView {
	v := MessageView{
		ID:        m.ID,
		Sender:    m.Sender,
		Name:      m.SenderName,
		Body:      m.Body,
		Timestamp: m.Timestamp,
		Kind:      m.Kind,
		Mentions:  m.Mentions,
		ReplyTo:   m.ReplyTo,
		Edited:    m.Edited,
	}
	if len(m.Reactions) > 0 {
		v.Reactions = make(map[string]ReactionView, len(m.Reactions))
		for emoji, r := range m.Reactions {
			v.Reactions[emoji] = ReactionView{Count: r.Count, Users: r.UserList()}
		}
	}
	return v
}
