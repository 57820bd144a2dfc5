package worldserver

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/hollowroot/verse/internal/chat"
	"github.com/hollowroot/verse/internal/session"
)

// PostChat posts a message to the sender's room, or runs it as a command if
// it starts with the command prefix. Delivery skips recipients who have
// muted the sender; the message still lands in the room log.
func (c *Controller) PostChat(handle, body, replyTo string) error {
	sess, ok := c.sessions.Get(handle)
	if !ok {
		return E(KindUserNotFound, "no session for handle %q", handle)
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return E(KindInvalidArgument, "message body must not be empty")
	}

	if chat.IsCommand(body, c.commandPrefix) {
		return c.runCommand(sess, body)
	}

	if replyTo != "" {
		if _, err := c.chat.Find(sess.RoomID, replyTo); err != nil {
			replyTo = ""
		}
	}

	msg := chat.NewMessage(handle, sess.DisplayName, body, chat.KindChat, replyTo)
	c.chat.Append(sess.RoomID, msg)
	c.progress.RecordMessage(handle)
	c.deliver(sess.RoomID, msg)
	return nil
}

// Whisper sends a private message to another user, addressed by display
// name (falling back to handle). If the target has muted the sender,
// delivery is blocked and the sender is told so; the reverse direction does
// not block.
func (c *Controller) Whisper(handle, target, text string) error {
	sess, ok := c.sessions.Get(handle)
	if !ok {
		return E(KindUserNotFound, "no session for handle %q", handle)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return E(KindInvalidArgument, "whisper message must not be empty")
	}

	dest, ok := c.resolveUser(target)
	if !ok {
		return E(KindUserNotFound, "user %q not found", target)
	}
	if dest.Handle == handle {
		return E(KindInvalidArgument, "you cannot whisper to yourself")
	}

	if c.chat.IsMuted(dest.Handle, handle) {
		c.notice(handle, fmt.Sprintf("%s has muted you.", dest.DisplayName))
		return nil
	}

	msg := chat.NewMessage(handle, sess.DisplayName, text, chat.KindWhisper, "")
	view := ChatMessageEvent{Message: messageView(msg)}
	c.send(dest, EventChatMessage, view)
	c.send(sess, EventChatMessage, view)
	return nil
}

// React adds or removes an emoji reaction and broadcasts the new tally.
func (c *Controller) React(handle, messageID, emoji, action string) error {
	sess, ok := c.sessions.Get(handle)
	if !ok {
		return E(KindUserNotFound, "no session for handle %q", handle)
	}
	if emoji == "" {
		return E(KindInvalidArgument, "emoji must not be empty")
	}

	add := action != "remove"
	msg, err := c.chat.React(sess.RoomID, messageID, emoji, handle, add)
	if err != nil {
		return chatError(err)
	}

	upd := ReactionUpdated{MessageID: messageID, Emoji: emoji, Users: []string{}}
	if r, ok := msg.Reactions[emoji]; ok {
		upd.Count = r.Count
		upd.Users = r.UserList()
	}
	c.broadcast(sess.RoomID, "", EventReactionUpdated, upd)
	return nil
}

// EditMessage rewrites one of the sender's own messages and broadcasts the
// edited version.
func (c *Controller) EditMessage(handle, messageID, newBody string) error {
	sess, ok := c.sessions.Get(handle)
	if !ok {
		return E(KindUserNotFound, "no session for handle %q", handle)
	}
	newBody = strings.TrimSpace(newBody)
	if newBody == "" {
		return E(KindInvalidArgument, "message body must not be empty")
	}

	msg, err := c.chat.Edit(sess.RoomID, messageID, handle, newBody)
	if err != nil {
		return chatError(err)
	}
	c.broadcast(sess.RoomID, "", EventMessageEdited, MessageEdited{Message: messageView(msg)})
	return nil
}

// DeleteMessage removes a message. The author may delete their own;
// moderators may delete anyone's.
func (c *Controller) DeleteMessage(handle, messageID string) error {
	sess, ok := c.sessions.Get(handle)
	if !ok {
		return E(KindUserNotFound, "no session for handle %q", handle)
	}
	if err := c.chat.Delete(sess.RoomID, messageID, handle); err != nil {
		return chatError(err)
	}
	c.broadcast(sess.RoomID, "", EventMessageDeleted, MessageDeleted{MessageID: messageID})
	return nil
}

// History sends the requester one page of their room's chat log, oldest
// first, already filtered by the requester's mutes.
func (c *Controller) History(handle string, limit int, beforeMillis int64) error {
	sess, ok := c.sessions.Get(handle)
	if !ok {
		return E(KindUserNotFound, "no session for handle %q", handle)
	}

	var before time.Time
	if beforeMillis > 0 {
		before = time.UnixMilli(beforeMillis)
	}

	msgs, hasMore := c.chat.History(sess.RoomID, handle, limit, before)
	views := make([]MessageView, 0, len(msgs))
	for _, m := range msgs {
		views = append(views, messageView(m))
	}
	c.send(sess, EventChatHistory, ChatHistory{Messages: views, HasMore: hasMore})
	return nil
}

// SetTyping toggles the sender's typing indicator; the room is notified
// only when the state actually changed.
func (c *Controller) SetTyping(handle string, typing bool) error {
	sess, ok := c.sessions.Get(handle)
	if !ok {
		return E(KindUserNotFound, "no session for handle %q", handle)
	}
	if c.chat.SetTyping(sess.RoomID, handle, typing) {
		c.broadcastTyping(sess.RoomID)
	}
	return nil
}

// deliver pushes a logged message to every room member the sender isn't
// muted by. Mutes are evaluated at delivery time only.
func (c *Controller) deliver(roomID string, msg *chat.Message) {
	view := ChatMessageEvent{Message: messageView(msg)}
	for _, handle := range c.chat.FilterRecipients(msg.Sender, c.membership.Members(roomID)) {
		c.sendTo(handle, EventChatMessage, view)
	}
}

// resolveUser finds a session by display name, falling back to handle.
func (c *Controller) resolveUser(name string) (*session.Session, bool) {
	if sess, ok := c.sessions.GetByDisplayName(name); ok {
		return sess, true
	}
	return c.sessions.Get(name)
}

// chatError maps chat service sentinels to kinded errors.
func chatError(err error) error {
	switch {
	case errors.Is(err, chat.ErrMessageNotFound):
		return E(KindInvalidArgument, "%v", err)
	case errors.Is(err, chat.ErrNotAllowed):
		return E(KindPermissionDenied, "%v", err)
	default:
		return E(KindInvalidArgument, "%v", err)
	}
}

// runCommand parses and executes a slash command. Command failures are
// reported to the actor as private system messages, not error events.
func (c *Controller) runCommand(sess *session.Session, body string) error {
	parsed := chat.Parse(body, c.commandPrefix)
	cmd, ok := c.commands.Resolve(parsed.Command)
	if !ok {
		c.notice(sess.Handle, fmt.Sprintf("Unknown command %q. Try %shelp.", parsed.Command, c.commandPrefix))
		return nil
	}
	if cmd.ModOnly && !c.chat.IsModerator(sess.Handle) {
		c.notice(sess.Handle, fmt.Sprintf("%s%s is restricted to moderators.", c.commandPrefix, cmd.Name))
		return nil
	}

	switch cmd.Name {
	case chat.CmdHelp:
		c.cmdHelp(sess)

	case chat.CmdUsers:
		c.cmdUsers(sess)

	case chat.CmdWhisper:
		if len(parsed.Args) < 2 {
			c.notice(sess.Handle, "Usage: "+cmd.Usage)
			return nil
		}
		target := parsed.Args[0]
		text := strings.TrimSpace(strings.TrimPrefix(parsed.RawArgs, target))
		if err := c.Whisper(sess.Handle, target, text); err != nil {
			c.notice(sess.Handle, err.Error())
		}

	case chat.CmdMute, chat.CmdUnmute:
		if len(parsed.Args) < 1 {
			c.notice(sess.Handle, "Usage: "+cmd.Usage)
			return nil
		}
		c.cmdMute(sess, parsed.Args[0], cmd.Name == chat.CmdMute)

	case chat.CmdMe:
		if parsed.RawArgs == "" {
			c.notice(sess.Handle, "Usage: "+cmd.Usage)
			return nil
		}
		msg := chat.NewMessage(sess.Handle, sess.DisplayName, parsed.RawArgs, chat.KindAction, "")
		c.chat.Append(sess.RoomID, msg)
		c.deliver(sess.RoomID, msg)

	case chat.CmdClear:
		c.chat.Clear(sess.RoomID)
		c.systemBroadcast(sess.RoomID, fmt.Sprintf("Chat cleared by %s.", sess.DisplayName))

	case chat.CmdAnnounce:
		if parsed.RawArgs == "" {
			c.notice(sess.Handle, "Usage: "+cmd.Usage)
			return nil
		}
		c.systemBroadcast(sess.RoomID, fmt.Sprintf("Announcement: %s", parsed.RawArgs))

	case chat.CmdKick:
		if len(parsed.Args) < 1 {
			c.notice(sess.Handle, "Usage: "+cmd.Usage)
			return nil
		}
		c.cmdKick(sess, parsed.Args[0])
	}

	return nil
}

func (c *Controller) cmdHelp(sess *session.Session) {
	cmds := c.commands.Commands()
	sort.Slice(cmds, func(i, j int) bool { return cmds[i].Name < cmds[j].Name })

	var b strings.Builder
	b.WriteString("Available commands:")
	for _, cmd := range cmds {
		b.WriteString(fmt.Sprintf("\n%s — %s", cmd.Usage, cmd.Description))
		if cmd.ModOnly {
			b.WriteString(" (moderators)")
		}
	}
	c.notice(sess.Handle, b.String())
}

func (c *Controller) cmdUsers(sess *session.Session) {
	members := c.membership.Members(sess.RoomID)
	names := make([]string, 0, len(members))
	for _, handle := range members {
		if s, ok := c.sessions.Get(handle); ok {
			names = append(names, s.DisplayName)
		}
	}
	sort.Strings(names)
	c.notice(sess.Handle, fmt.Sprintf("In this room (%d): %s", len(names), strings.Join(names, ", ")))
}

func (c *Controller) cmdMute(sess *session.Session, target string, mute bool) {
	dest, ok := c.resolveUser(target)
	if !ok {
		c.notice(sess.Handle, fmt.Sprintf("User %q not found.", target))
		return
	}
	if dest.Handle == sess.Handle {
		c.notice(sess.Handle, "You cannot mute yourself.")
		return
	}
	if mute {
		c.chat.Mute(sess.Handle, dest.Handle)
		c.notice(sess.Handle, fmt.Sprintf("You muted %s.", dest.DisplayName))
	} else {
		c.chat.Unmute(sess.Handle, dest.Handle)
		c.notice(sess.Handle, fmt.Sprintf("You unmuted %s.", dest.DisplayName))
	}
}

func (c *Controller) cmdKick(sess *session.Session, target string) {
	dest, ok := c.resolveUser(target)
	if !ok {
		c.notice(sess.Handle, fmt.Sprintf("User %q not found.", target))
		return
	}
	if dest.Handle == sess.Handle {
		c.notice(sess.Handle, "You cannot kick yourself.")
		return
	}
	c.send(dest, EventKicked, Kicked{Reason: fmt.Sprintf("Removed by %s.", sess.DisplayName)})
	c.Disconnect(dest.Handle)
	c.notice(sess.Handle, fmt.Sprintf("You kicked %s.", dest.DisplayName))
}
