package worldserver

import (
	"errors"

	"go.uber.org/zap"

	"github.com/hollowroot/verse/internal/world"
)

// The administrative surface mutates the world catalog and moderation state
// at runtime. Like every other operation it must run on the Dispatcher
// goroutine; the HTTP layer calls these through Dispatcher.Do.

// AdminAddObject places a new object in a room and pushes refreshed room
// data to its members.
func (c *Controller) AdminAddObject(roomID string, obj *world.Object) error {
	if err := c.catalog.AddObject(roomID, obj); err != nil {
		return catalogError(err)
	}
	c.logger.Info("object added",
		zap.String("room", roomID),
		zap.String("object", obj.ID))
	c.refreshRoom(roomID)
	return nil
}

// AdminUpdateObject applies a partial update to an object.
func (c *Controller) AdminUpdateObject(roomID, objID string, upd world.ObjectUpdate) error {
	if _, err := c.catalog.UpdateObject(roomID, objID, upd); err != nil {
		return catalogError(err)
	}
	c.logger.Info("object updated",
		zap.String("room", roomID),
		zap.String("object", objID))
	c.refreshRoom(roomID)
	return nil
}

// AdminRemoveObject deletes an object from a room.
func (c *Controller) AdminRemoveObject(roomID, objID string) error {
	if err := c.catalog.RemoveObject(roomID, objID); err != nil {
		return catalogError(err)
	}
	c.logger.Info("object removed",
		zap.String("room", roomID),
		zap.String("object", objID))
	c.refreshRoom(roomID)
	return nil
}

// AdminSetModerator grants or revokes moderator status for a connected user.
func (c *Controller) AdminSetModerator(target string, moderator bool) error {
	sess, ok := c.resolveUser(target)
	if !ok {
		return E(KindUserNotFound, "user %q not found", target)
	}
	if moderator {
		c.chat.AddModerator(sess.Handle)
		c.notice(sess.Handle, "You are now a moderator.")
	} else {
		c.chat.RemoveModerator(sess.Handle)
		c.notice(sess.Handle, "You are no longer a moderator.")
	}
	c.logger.Info("moderator status changed",
		zap.String("handle", sess.Handle),
		zap.Bool("moderator", moderator))
	return nil
}

// AdminDeleteMessage removes a message from a room log without permission
// checks and announces the deletion.
func (c *Controller) AdminDeleteMessage(roomID, messageID string) error {
	if err := c.chat.ForceDelete(roomID, messageID); err != nil {
		return chatError(err)
	}
	c.broadcast(roomID, "", EventMessageDeleted, MessageDeleted{MessageID: messageID})
	return nil
}

// AdminClearChat discards a room's chat log and announces it.
func (c *Controller) AdminClearChat(roomID string) error {
	if _, ok := c.catalog.Room(roomID); !ok {
		return E(KindRoomNotFound, "room %q not found", roomID)
	}
	c.chat.Clear(roomID)
	c.systemBroadcast(roomID, "Chat was cleared by an administrator.")
	return nil
}

// AdminKick disconnects a user by handle or display name.
func (c *Controller) AdminKick(target, reason string) error {
	sess, ok := c.resolveUser(target)
	if !ok {
		return E(KindUserNotFound, "user %q not found", target)
	}
	if reason == "" {
		reason = "Removed by an administrator."
	}
	c.send(sess, EventKicked, Kicked{Reason: reason})
	c.Disconnect(sess.Handle)
	return nil
}

// RoomStats summarizes one room for the admin status endpoint.
type RoomStats struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Members int    `json:"members"`
	Objects int    `json:"objects"`
	ChatLen int    `json:"chatLength"`
}

// Stats snapshots server occupancy for the admin status endpoint.
type Stats struct {
	Sessions int         `json:"sessions"`
	Rooms    []RoomStats `json:"rooms"`
}

// AdminStats reports current occupancy per room.
func (c *Controller) AdminStats() Stats {
	rooms := c.catalog.Rooms()
	st := Stats{
		Sessions: c.sessions.Count(),
		Rooms:    make([]RoomStats, 0, len(rooms)),
	}
	for _, room := range rooms {
		st.Rooms = append(st.Rooms, RoomStats{
			ID:      room.ID,
			Name:    room.Name,
			Members: c.membership.MemberCount(room.ID),
			Objects: len(room.Objects),
			ChatLen: c.chat.LogLen(room.ID),
		})
	}
	return st
}

// refreshRoom resends full room data to every member, each with their own
// progress snapshot.
func (c *Controller) refreshRoom(roomID string) {
	room, ok := c.catalog.Room(roomID)
	if !ok {
		return
	}
	view := roomView(room)
	for _, handle := range c.membership.Members(roomID) {
		sess, ok := c.sessions.Get(handle)
		if !ok {
			continue
		}
		c.send(sess, EventRoomData, RoomData{
			Room:     view,
			Progress: progressView(c.progress.Get(handle)),
		})
	}
}

// catalogError maps world catalog sentinels to kinded errors.
func catalogError(err error) error {
	switch {
	case errors.Is(err, world.ErrRoomNotFound):
		return E(KindRoomNotFound, "%v", err)
	case errors.Is(err, world.ErrObjectNotFound):
		return E(KindObjectNotFound, "%v", err)
	default:
		return E(KindInvalidArgument, "%v", err)
	}
}
