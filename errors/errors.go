package errors

import "fmt"

var (
	ErrWorkerPanic         = fmt.Errorf("worker panic")
	ErrEmptyWords          = fmt.Errorf("no words have been found")
	ErrAuthRequired        = fmt.Errorf("identify yourself first")
	ErrAlreadyInRoom       = fmt.Errorf("already in a room")
	ErrNotInRoom           = fmt.Errorf("not in a room")
	ErrInvalidTicket       = fmt.Errorf("invalid ticket")
	ErrUserNotFound        = fmt.Errorf("user not found")
	ErrNotModerator        = fmt.Errorf("moderator privilege required")
	ErrUnrecognizedCommand = fmt.Errorf("unrecognized command")
)
