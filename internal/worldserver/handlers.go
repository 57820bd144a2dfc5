package worldserver

import (
	"encoding/json"

	"go.uber.org/zap"
)

// HandleEvent routes one inbound envelope from a connection. Operation
// failures are reported back to the sender as error events; they never
// affect other sessions.
//
// Precondition: Must run on the Dispatcher goroutine.
func (c *Controller) HandleEvent(handle string, env Envelope) {
	if err := c.routeEvent(handle, env); err != nil {
		kind, _ := KindOf(err)
		c.sendTo(handle, EventError, ErrorEvent{Kind: kind, Message: err.Error()})
		c.logger.Debug("event rejected",
			zap.String("handle", handle),
			zap.String("event", env.Event),
			zap.String("kind", string(kind)),
			zap.Error(err))
	}
}

func (c *Controller) routeEvent(handle string, env Envelope) error {
	switch env.Event {
	case EventJoinWorld:
		var req JoinWorldRequest
		if err := decode(env.Data, &req); err != nil {
			return err
		}
		return c.JoinWorld(handle, req.DisplayName, req.RoomID)

	case EventTeleport:
		var req TeleportRequest
		if err := decode(env.Data, &req); err != nil {
			return err
		}
		return c.Teleport(handle, req.TeleporterID)

	case EventInteract:
		var req InteractRequest
		if err := decode(env.Data, &req); err != nil {
			return err
		}
		return c.Interact(handle, req.ObjectID)

	case EventPositionUpdate:
		var req PositionUpdate
		if err := decode(env.Data, &req); err != nil {
			return err
		}
		return c.MoveTo(handle, req.Position, req.Rotation)

	case EventAvatarUpdate:
		var req AvatarUpdate
		if err := decode(env.Data, &req); err != nil {
			return err
		}
		return c.UpdateAvatar(handle, req.Customization)

	case EventChat:
		var req ChatRequest
		if err := decode(env.Data, &req); err != nil {
			return err
		}
		return c.PostChat(handle, req.Body, req.ReplyTo)

	case EventWhisper:
		var req WhisperRequest
		if err := decode(env.Data, &req); err != nil {
			return err
		}
		return c.Whisper(handle, req.Target, req.Message)

	case EventTypingStart:
		return c.SetTyping(handle, true)

	case EventTypingStop:
		return c.SetTyping(handle, false)

	case EventReact:
		var req ReactRequest
		if err := decode(env.Data, &req); err != nil {
			return err
		}
		return c.React(handle, req.MessageID, req.Emoji, req.Action)

	case EventEditMessage:
		var req EditRequest
		if err := decode(env.Data, &req); err != nil {
			return err
		}
		return c.EditMessage(handle, req.MessageID, req.NewBody)

	case EventDeleteMessage:
		var req DeleteRequest
		if err := decode(env.Data, &req); err != nil {
			return err
		}
		return c.DeleteMessage(handle, req.MessageID)

	case EventRequestChatHistory:
		var req HistoryRequest
		if err := decode(env.Data, &req); err != nil {
			return err
		}
		return c.History(handle, req.Limit, req.Before)

	default:
		return E(KindInvalidArgument, "unknown event %q", env.Event)
	}
}

func decode(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return E(KindInvalidArgument, "malformed payload: %v", err)
	}
	return nil
}
