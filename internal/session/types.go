package session

import (
	"fmt"
	"strings"
	"time"

	"github.com/GrEarl/CloverBINGO-sub000/bingo"
	"github.com/GrEarl/CloverBINGO-sub000/card"
)

const (
	MaxNameLength    = 24
	MaxSpotlight     = 6
	LastNumbersCount = 10

	maxSpotlightIDLength = 128
)

// Role fixes what a connection is allowed to see.
type Role string

const (
	RoleParticipant Role = "participant"
	RoleDisplay     Role = "display"
	RoleAdmin       Role = "admin"
	RoleMod         Role = "mod"
	RoleObserver    Role = "observer"
)

func ParseRole(raw string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(raw))); r {
	case RoleParticipant, RoleDisplay, RoleAdmin, RoleMod, RoleObserver:
		return r, nil
	default:
		return "", fmt.Errorf("unknown role %q", raw)
	}
}

// Privileged reports whether the role needs a secret.
func (r Role) Privileged() bool {
	return r == RoleAdmin || r == RoleMod
}

type Status string

const (
	StatusActive Status = "active"
	StatusEnded  Status = "ended"
)

type PlayerStatus string

const (
	PlayerActive   PlayerStatus = "active"
	PlayerDisabled PlayerStatus = "disabled"
)

// Player is one joined participant. Progress is derived and never persisted.
type Player struct {
	ID          string         `json:"id"`
	DisplayName string         `json:"displayName"`
	JoinedAt    time.Time      `json:"joinedAt"`
	Card        card.Card      `json:"card"`
	Status      PlayerStatus   `json:"status"`
	Progress    bingo.Progress `json:"-"`
}

// Impact is what the pending number would do to the roster if it committed.
type Impact struct {
	ReachPlayers int `json:"reachPlayers"`
	BingoPlayers int `json:"bingoPlayers"`
}

// ReelState is the reveal state of one digit. Value is set only while stopped.
type ReelState struct {
	Status bingo.ReelStatus `json:"status"`
	Value  *int             `json:"value,omitempty"`
}

func (r ReelState) clone() ReelState {
	if r.Value != nil {
		v := *r.Value
		r.Value = &v
	}
	return r
}

// PendingDraw exists only between prepare and commit.
type PendingDraw struct {
	Number     int       `json:"number"`
	Impact     Impact    `json:"impact"`
	Ten        ReelState `json:"ten"`
	One        ReelState `json:"one"`
	PreparedAt time.Time `json:"preparedAt"`
}

func newPendingDraw(n int, impact Impact, at time.Time) *PendingDraw {
	return &PendingDraw{
		Number:     n,
		Impact:     impact,
		Ten:        ReelState{Status: bingo.ReelIdle},
		One:        ReelState{Status: bingo.ReelIdle},
		PreparedAt: at,
	}
}

func (p *PendingDraw) reel(d bingo.Digit) *ReelState {
	if d == bingo.DigitTen {
		return &p.Ten
	}
	return &p.One
}

func (p *PendingDraw) bothStopped() bool {
	return p.Ten.Status == bingo.ReelStopped && p.One.Status == bingo.ReelStopped
}

func (p *PendingDraw) clone() *PendingDraw {
	if p == nil {
		return nil
	}
	cp := *p
	cp.Ten = p.Ten.clone()
	cp.One = p.One.clone()
	return &cp
}

type Spotlight struct {
	IDs       []string  `json:"ids"`
	UpdatedAt time.Time `json:"updatedAt"`
	UpdatedBy string    `json:"updatedBy"`
}

// ConnMeta is fixed when a connection registers and never changes afterwards.
type ConnMeta struct {
	Role     Role
	PlayerID string
	Screen   bingo.Digit
}

func (m ConnMeta) validate() error {
	switch m.Role {
	case RoleParticipant:
		if strings.TrimSpace(m.PlayerID) == "" {
			return badRequest(fmt.Errorf("participant connection needs a player id"))
		}
	case RoleDisplay:
		if m.Screen != bingo.DigitTen && m.Screen != bingo.DigitOne {
			return badRequest(fmt.Errorf("display connection needs screen ten or one, got %q", m.Screen))
		}
	case RoleAdmin, RoleMod, RoleObserver:
	default:
		return badRequest(fmt.Errorf("unknown role %q", m.Role))
	}
	return nil
}

// Secrets are handed out once, on the call that creates the session.
type Secrets struct {
	Admin string `json:"adminSecret"`
	Mod   string `json:"modSecret"`
}

type JoinResult struct {
	PlayerID string    `json:"playerId"`
	Card     card.Card `json:"card"`
}

type ReelResult struct {
	Pending   *PendingDraw `json:"pending"`
	Committed bool         `json:"committed"`
	Number    int          `json:"number,omitempty"`
	DrawCount int          `json:"drawCount"`
}
