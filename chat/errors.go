package chat

import "errors"

var (
	// ErrInvalidCounterpart means the requested counterpart is missing,
	// unknown, or the requester themself.
	ErrInvalidCounterpart = errors.New("invalid counterpart user")

	// ErrRoomNotFound means no room exists with the given id.
	ErrRoomNotFound = errors.New("room not found")

	// ErrRoomAccess means the requesting user holds no entry for the room.
	ErrRoomAccess = errors.New("user is not a member of this room")

	// ErrRoomCorrupt means the room's membership count is not exactly two.
	ErrRoomCorrupt = errors.New("room does not have exactly two members")

	// ErrEmptyMessage means a message was posted with no content.
	ErrEmptyMessage = errors.New("message content is empty")
)
