package bingo

import (
	"fmt"
	"strings"

	"github.com/GrEarl/CloverBINGO-sub000/card"
)

// MaxNumber is the size of the draw pool.
const MaxNumber = card.MaxNumber

// Digit selects one half of the two-digit reveal.
type Digit string

const (
	DigitTen Digit = "ten"
	DigitOne Digit = "one"
)

// ParseDigit accepts "ten" or "one" (case-insensitive).
func ParseDigit(raw string) (Digit, error) {
	switch Digit(strings.ToLower(strings.TrimSpace(raw))) {
	case DigitTen:
		return DigitTen, nil
	case DigitOne:
		return DigitOne, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidDigit, raw)
	}
}

// ReelStatus is the reveal state of one digit.
type ReelStatus string

const (
	ReelIdle     ReelStatus = "idle"
	ReelSpinning ReelStatus = "spinning"
	ReelStopped  ReelStatus = "stopped"
)

// ReelAction is an operator command on a reel.
type ReelAction string

const (
	ReelStart ReelAction = "start"
	ReelStop  ReelAction = "stop"
)

// ParseReelAction accepts "start" or "stop" (case-insensitive).
func ParseReelAction(raw string) (ReelAction, error) {
	switch ReelAction(strings.ToLower(strings.TrimSpace(raw))) {
	case ReelStart:
		return ReelStart, nil
	case ReelStop:
		return ReelStop, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidAction, raw)
	}
}

// ValidNumber reports whether n can be drawn.
func ValidNumber(n int) bool {
	return n >= 1 && n <= MaxNumber
}
