// Package worldserver orchestrates join/leave/teleport/interact operations
// and the chat subsystem over the session, world, chat, and progress layers,
// under a single-goroutine event dispatch discipline.
package worldserver

import (
	"errors"
	"fmt"
)

// Kind is the machine-readable error category reported to clients. Every
// kind is recoverable: it is reported back to the originating session and
// never terminates the process or other sessions' state.
type Kind string

// Error kinds.
const (
	KindRoomNotFound       Kind = "RoomNotFound"
	KindTeleporterNotFound Kind = "TeleporterNotFound"
	KindTargetRoomNotFound Kind = "TargetRoomNotFound"
	KindObjectNotFound     Kind = "ObjectNotFound"
	KindUserNotFound       Kind = "UserNotFound"
	KindPermissionDenied   Kind = "PermissionDenied"
	KindInvalidArgument    Kind = "InvalidArgument"
	KindDuplicateSession   Kind = "DuplicateSession"
)

// Error is a domain error carrying a Kind.
type Error struct {
	Kind Kind
	msg  string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.msg
}

// E creates a kinded Error.
func E(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, msg: fmt.Sprintf(format, args...)}
}

// KindOf extracts the Kind from an error chain.
//
// Postcondition: Returns (kind, true) for kinded errors, or
// (KindInvalidArgument, false) for everything else.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return KindInvalidArgument, false
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
