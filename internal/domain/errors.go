package domain

import "errors"

var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrInvalidSong     = errors.New("invalid song: a numeric song id is required")
	ErrSongNotFound    = errors.New("song not found")
	ErrUserNotFound    = errors.New("user not found")

	ErrMissingCommentID      = errors.New("comment id is required")
	ErrMissingSender         = errors.New("sender id and sender name are required")
	ErrMissingMessageContent = errors.New("message content is required")
	ErrCommentNotFound       = errors.New("comment not found")

	ErrInvalidID            = errors.New("invalid notification id")
	ErrNotificationNotFound = errors.New("notification not found")
)
