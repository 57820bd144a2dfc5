package worldserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/hollowroot/verse/internal/chat"
	"github.com/hollowroot/verse/internal/config"
	"github.com/hollowroot/verse/internal/progress"
	"github.com/hollowroot/verse/internal/scripting"
	"github.com/hollowroot/verse/internal/session"
	"github.com/hollowroot/verse/internal/world"
)

// Controller implements every world operation: join, teleport, interact,
// movement, chat, and the administrative surface. It mutates state first,
// then emits events to affected sessions.
//
// Controller methods are not safe for concurrent use; all calls must run on
// the Dispatcher goroutine.
type Controller struct {
	catalog    *world.Catalog
	sessions   *session.Registry
	membership *session.Membership
	progress   *progress.Engine
	chat       *chat.Service
	commands   *chat.Registry
	scripts    *scripting.Manager
	logger     *zap.Logger

	defaultRoom    string
	spawnJitter    float64
	spawnJitterCap float64
	commandPrefix  string

	rng *rand.Rand
}

// NewController wires a Controller over the given subsystems. scripts may be
// nil, which disables interaction hooks.
func NewController(
	catalog *world.Catalog,
	sessions *session.Registry,
	membership *session.Membership,
	progressEngine *progress.Engine,
	chatService *chat.Service,
	scripts *scripting.Manager,
	worldCfg config.WorldConfig,
	chatCfg config.ChatConfig,
	logger *zap.Logger,
) *Controller {
	c := &Controller{
		catalog:        catalog,
		sessions:       sessions,
		membership:     membership,
		progress:       progressEngine,
		chat:           chatService,
		commands:       chat.DefaultRegistry(),
		scripts:        scripts,
		logger:         logger,
		defaultRoom:    worldCfg.DefaultRoom,
		spawnJitter:    worldCfg.SpawnJitter,
		spawnJitterCap: worldCfg.SpawnJitterCap,
		commandPrefix:  chatCfg.CommandPrefix,
		rng:            rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	if scripts != nil {
		scripts.Broadcast = func(roomID, msg string) {
			c.systemBroadcast(roomID, msg)
		}
		scripts.GrantXP = func(handle string, amount int) {
			if _, ok := c.sessions.Get(handle); !ok {
				return
			}
			c.progress.AddXP(handle, amount)
			c.notifyAchievements(handle, c.progress.CheckAchievements(handle))
		}
		scripts.RoomName = func(roomID string) string {
			if room, ok := c.catalog.Room(roomID); ok {
				return room.Name
			}
			return ""
		}
	}

	return c
}

// JoinWorld places a session in a room: on a first join the session is
// created, on a later join the existing session is moved. An empty roomID
// selects the configured default room.
//
// Postcondition: On success the session is a member of exactly the target
// room, positioned at its jittered spawn point, and room-data/user-data have
// been sent to the joiner and user-joined to the other members.
func (c *Controller) JoinWorld(handle, displayName, roomID string) error {
	if roomID == "" {
		roomID = c.defaultRoom
	}
	room, ok := c.catalog.Room(roomID)
	if !ok {
		return E(KindRoomNotFound, "room %q not found", roomID)
	}

	sess, ok := c.sessions.Get(handle)
	if !ok {
		var err error
		sess, err = c.sessions.Create(handle, displayName)
		if err != nil {
			if errors.Is(err, session.ErrDuplicateSession) {
				return E(KindDuplicateSession, "%v", err)
			}
			return E(KindInvalidArgument, "%v", err)
		}
	} else if displayName != "" {
		// The transport pre-registers sessions before the first join; the
		// display name arrives with it. It is fixed once the user is in a room.
		if _, inRoom := c.membership.RoomOf(handle); !inRoom {
			sess.DisplayName = displayName
		}
	}

	c.moveToRoom(sess, room, c.spawnPosition(room))
	return nil
}

// Teleport moves a session through a teleporter in its current room.
//
// Postcondition: On success the session is a member of exactly the target
// room at the teleporter's landing position. On any error the session's room
// and position are untouched.
func (c *Controller) Teleport(handle, teleporterID string) error {
	sess, ok := c.sessions.Get(handle)
	if !ok {
		return E(KindUserNotFound, "no session for handle %q", handle)
	}

	tel, err := c.catalog.Teleporter(sess.RoomID, teleporterID)
	if err != nil || !tel.Active {
		return E(KindTeleporterNotFound, "teleporter %q not available in room %q", teleporterID, sess.RoomID)
	}
	if tel.MinLevel > 0 && c.progress.Get(handle).Level < tel.MinLevel {
		return E(KindPermissionDenied, "teleporter %q requires level %d", teleporterID, tel.MinLevel)
	}
	target, ok := c.catalog.Room(tel.TargetRoom)
	if !ok {
		return E(KindTargetRoomNotFound, "teleporter %q targets unknown room %q", teleporterID, tel.TargetRoom)
	}

	c.progress.RecordTeleport(handle)
	c.moveToRoom(sess, target, tel.TargetPosition)
	return nil
}

// Interact triggers an interactive object in the session's current room.
// Collect and enter objects consume exactly once; repeat interactions
// succeed without effect. Toggle objects flip on every interaction.
func (c *Controller) Interact(handle, objectID string) error {
	sess, ok := c.sessions.Get(handle)
	if !ok {
		return E(KindUserNotFound, "no session for handle %q", handle)
	}
	obj, err := c.catalog.Object(sess.RoomID, objectID)
	if err != nil || !obj.Interactable {
		return E(KindObjectNotFound, "object %q not available in room %q", objectID, sess.RoomID)
	}

	c.progress.InteractObject(handle, objectID)

	switch st := obj.State.(type) {
	case *world.CollectState:
		if st.Consumed {
			c.notice(handle, fmt.Sprintf("%s has already been collected.", obj.Name))
			break
		}
		st.Consumed = true
		c.progress.RecordCollect(handle, len(obj.Reward.Items))
		c.grantReward(handle, obj.Reward, fmt.Sprintf("You collected %s.", obj.Name))
		c.broadcast(sess.RoomID, "", EventObjectStateChanged, ObjectStateChanged{ObjectID: obj.ID, State: obj.State.Fields()})

	case *world.ToggleState:
		st.Powered = !st.Powered
		c.broadcast(sess.RoomID, "", EventObjectStateChanged, ObjectStateChanged{ObjectID: obj.ID, State: obj.State.Fields()})

	case *world.DialogueState:
		for _, line := range obj.Dialogue {
			c.notice(handle, fmt.Sprintf("%s: %s", obj.Name, line))
		}

	case *world.EnterState:
		if !st.Entered {
			st.Entered = true
			c.grantReward(handle, obj.Reward, fmt.Sprintf("You entered %s.", obj.Name))
			c.broadcast(sess.RoomID, "", EventObjectStateChanged, ObjectStateChanged{ObjectID: obj.ID, State: obj.State.Fields()})
		} else {
			c.notice(handle, fmt.Sprintf("You entered %s.", obj.Name))
		}
	}

	if obj.Script != "" && c.scripts != nil {
		if reply, ran := c.scripts.CallInteract(sess.RoomID, obj.Script, handle, obj.ID); ran && reply != "" {
			c.notice(handle, reply)
		}
	}

	c.notifyAchievements(handle, c.progress.CheckAchievements(handle))
	return nil
}

// MoveTo records a session's new transform and relays it to the room.
func (c *Controller) MoveTo(handle string, pos, rot world.Vec3) error {
	sess, ok := c.sessions.Get(handle)
	if !ok {
		return E(KindUserNotFound, "no session for handle %q", handle)
	}
	if err := c.sessions.UpdatePosition(handle, pos, rot); err != nil {
		return E(KindUserNotFound, "%v", err)
	}
	c.broadcast(sess.RoomID, handle, EventUserMoved, UserMoved{Handle: handle, Position: pos, Rotation: rot})
	return nil
}

// UpdateAvatar merges customization data into a session and refreshes the
// room roster so other members pick up the change.
func (c *Controller) UpdateAvatar(handle string, data map[string]string) error {
	sess, ok := c.sessions.Get(handle)
	if !ok {
		return E(KindUserNotFound, "no session for handle %q", handle)
	}
	if err := c.sessions.UpdateCustomization(handle, data); err != nil {
		return E(KindUserNotFound, "%v", err)
	}
	c.broadcastRoster(sess.RoomID)
	return nil
}

// Disconnect tears a session down: room membership, typing state, the
// departure announcement, chat bookkeeping, and finally the session record.
// Safe to call for unknown handles.
func (c *Controller) Disconnect(handle string) {
	sess, ok := c.sessions.Get(handle)
	if !ok {
		return
	}

	if roomID, inRoom := c.membership.RoomOf(handle); inRoom {
		c.membership.Leave(roomID, handle)
		typingChanged := c.chat.SetTyping(roomID, handle, false)
		c.broadcast(roomID, handle, EventUserLeft, UserLeft{Handle: handle})
		c.systemBroadcast(roomID, fmt.Sprintf("%s left the room.", sess.DisplayName))
		c.broadcastRoster(roomID)
		if typingChanged {
			c.broadcastTyping(roomID)
		}
	}

	c.chat.ForgetHandle(handle)
	if err := c.sessions.Remove(handle); err != nil {
		c.logger.Warn("removing session", zap.String("handle", handle), zap.Error(err))
	}
	c.logger.Info("session disconnected", zap.String("handle", handle))
}

// Sweep disconnects every session whose entity has closed. Run periodically
// by the dispatcher as a backstop for connections that died without a
// disconnect event.
func (c *Controller) Sweep() {
	for _, handle := range c.sessions.Handles() {
		if sess, ok := c.sessions.Get(handle); ok && sess.Entity.IsClosed() {
			c.Disconnect(handle)
		}
	}
}

// moveToRoom performs the shared join/teleport transition: membership swap,
// departure events in the old room, arrival events in the new one.
func (c *Controller) moveToRoom(sess *session.Session, room *world.Room, pos world.Vec3) {
	prev := c.membership.Join(room.ID, sess.Handle)
	sess.RoomID = room.ID
	sess.Position = pos
	sess.Rotation = world.Vec3{}

	if prev != "" && prev != room.ID {
		typingChanged := c.chat.SetTyping(prev, sess.Handle, false)
		c.broadcast(prev, sess.Handle, EventUserLeft, UserLeft{Handle: sess.Handle})
		c.systemBroadcast(prev, fmt.Sprintf("%s left the room.", sess.DisplayName))
		c.broadcastRoster(prev)
		if typingChanged {
			c.broadcastTyping(prev)
		}
	}

	prog := c.progress.VisitRoom(sess.Handle, room.ID)

	c.broadcast(room.ID, sess.Handle, EventUserJoined, UserJoined{Session: sessionView(sess)})
	c.send(sess, EventRoomData, RoomData{Room: roomView(room), Progress: progressView(prog)})
	c.send(sess, EventUserData, UserData{Session: sessionView(sess)})
	c.broadcastRoster(room.ID)
	c.systemBroadcast(room.ID, fmt.Sprintf("%s joined the room.", sess.DisplayName))

	c.notifyAchievements(sess.Handle, c.progress.CheckAchievements(sess.Handle))
}

// spawnPosition jitters the room spawn point on the X/Z plane so
// simultaneous joiners don't stack.
func (c *Controller) spawnPosition(room *world.Room) world.Vec3 {
	span := math.Min(room.Size.Width, room.Size.Depth) * c.spawnJitter
	if span > c.spawnJitterCap {
		span = c.spawnJitterCap
	}
	pos := room.SpawnPoint
	pos.X += (c.rng.Float64()*2 - 1) * span
	pos.Z += (c.rng.Float64()*2 - 1) * span
	return pos
}

func (c *Controller) grantReward(handle string, r world.Reward, text string) {
	if r.XP > 0 {
		c.progress.AddXP(handle, r.XP)
		text = fmt.Sprintf("%s (+%d XP)", text, r.XP)
	}
	for _, item := range r.Items {
		text = fmt.Sprintf("%s [%s]", text, item)
	}
	c.notice(handle, text)
}

func (c *Controller) notifyAchievements(handle string, unlocked []progress.Achievement) {
	if len(unlocked) == 0 {
		return
	}
	views := make([]AchievementView, 0, len(unlocked))
	for _, a := range unlocked {
		views = append(views, achievementView(a))
		c.logger.Info("achievement unlocked",
			zap.String("handle", handle),
			zap.String("achievement", a.ID))
	}
	c.sendTo(handle, EventAchievementsUnlocked, AchievementsUnlocked{Achievements: views})
}

// send marshals payload into an Envelope and pushes it to one session.
// Delivery failure (closed or saturated entity) is logged, never fatal; the
// sweep reclaims dead sessions.
func (c *Controller) send(sess *session.Session, event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		c.logger.Error("marshaling event payload", zap.String("event", event), zap.Error(err))
		return
	}
	raw, err := json.Marshal(Envelope{Event: event, Data: data})
	if err != nil {
		c.logger.Error("marshaling envelope", zap.String("event", event), zap.Error(err))
		return
	}
	if err := sess.Entity.Push(raw); err != nil {
		c.logger.Warn("dropping event",
			zap.String("handle", sess.Handle),
			zap.String("event", event),
			zap.Error(err))
	}
}

func (c *Controller) sendTo(handle, event string, payload any) {
	if sess, ok := c.sessions.Get(handle); ok {
		c.send(sess, event, payload)
	}
}

// broadcast sends an event to every member of a room, minus exclude
// (empty = nobody excluded).
func (c *Controller) broadcast(roomID, exclude, event string, payload any) {
	for _, handle := range c.membership.Members(roomID) {
		if handle == exclude {
			continue
		}
		c.sendTo(handle, event, payload)
	}
}

// broadcastRoster sends the room's full member list to every member.
func (c *Controller) broadcastRoster(roomID string) {
	members := c.membership.Members(roomID)
	views := make([]SessionView, 0, len(members))
	for _, handle := range members {
		if sess, ok := c.sessions.Get(handle); ok {
			views = append(views, sessionView(sess))
		}
	}
	c.broadcast(roomID, "", EventUsersUpdate, UsersUpdate{RoomID: roomID, Sessions: views})
}

func (c *Controller) broadcastTyping(roomID string) {
	c.broadcast(roomID, "", EventTypingUpdate, TypingUpdate{RoomID: roomID, Handles: c.chat.TypingIn(roomID)})
}

// notice sends a private system message to one user. It is not appended to
// any room log.
func (c *Controller) notice(handle, text string) {
	msg := chat.NewSystemMessage(text)
	c.sendTo(handle, EventChatMessage, ChatMessageEvent{Message: messageView(msg)})
}

// systemBroadcast appends a system message to the room log and delivers it
// to every member.
func (c *Controller) systemBroadcast(roomID, text string) {
	msg := chat.NewSystemMessage(text)
	c.chat.Append(roomID, msg)
	c.broadcast(roomID, "", EventChatMessage, ChatMessageEvent{Message: messageView(msg)})
}
