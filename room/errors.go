package room

import "errors"

var (
	ErrCreateFailed  = errors.New("room could not be created")
	ErrNotFound      = errors.New("room not found")
	ErrRoomFull      = errors.New("room is full")
	ErrNoRoom        = errors.New("connection is not in a room")
	ErrNotInProgress = errors.New("game is not in progress")
	ErrNotYourTurn   = errors.New("not your turn")
	ErrBadIndex      = errors.New("cell index out of range")
	ErrCellTaken     = errors.New("cell already taken")
)
