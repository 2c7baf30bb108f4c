package session

import (
	"errors"
	"fmt"

	"github.com/GrEarl/CloverBINGO-sub000/bingo"
)

var (
	ErrNotInitialized = errors.New("session not initialized")
	ErrEnded          = errors.New("session ended")
	ErrForbidden      = errors.New("forbidden")
	ErrInvalidInput   = errors.New("invalid input")
	ErrNoPendingDraw  = errors.New("no pending draw")
	ErrClosed         = errors.New("session coordinator closed")

	ErrInvalidName = fmt.Errorf("%w: display name is required", ErrInvalidInput)
	ErrBadRequest  = fmt.Errorf("%w: bad request", ErrInvalidInput)

	ErrPoolExhausted = bingo.ErrPoolExhausted
)

func badRequest(err error) error {
	return fmt.Errorf("%w: %v", ErrBadRequest, err)
}
