package bingo

import "errors"

var (
	ErrPoolExhausted = errors.New("draw pool exhausted")
	ErrInvalidNumber = errors.New("number out of range")
	ErrInvalidDigit  = errors.New("invalid digit")
	ErrInvalidAction = errors.New("invalid reel action")
)

type InvalidStateError string

func (e InvalidStateError) Error() string { return "invalid state: " + string(e) }

func ErrInvalidState(msg string) error { return InvalidStateError(msg) }
