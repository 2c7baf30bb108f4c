package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const ticketIssuer = "cloverbingo"

var (
	ErrInvalidTicket = errors.New("invalid ticket")
	ErrTicketExpired = errors.New("ticket expired")
)

// Ticket grants one connection to a session channel with a fixed role.
type Ticket struct {
	Code      string
	Role      string
	PlayerID  string
	Screen    string
	ExpiresAt time.Time
}

type ticketClaims struct {
	jwt.RegisteredClaims
	Code     string `json:"code"`
	Role     string `json:"role"`
	PlayerID string `json:"player_id,omitempty"`
	Screen   string `json:"screen,omitempty"`
}

// Tickets signs and verifies channel tickets with HMAC-SHA256.
type Tickets struct {
	key []byte
	ttl time.Duration
	Now func() time.Time
}

// NewTickets builds an issuer. An empty key gets a random one, which means tickets
// do not survive a restart.
func NewTickets(key string, ttl time.Duration) *Tickets {
	if strings.TrimSpace(key) == "" {
		key = mustToken()
	}
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Tickets{key: []byte(key), ttl: ttl, Now: time.Now}
}

// Issue signs a ticket for t. ExpiresAt is filled from the configured TTL.
func (tk *Tickets) Issue(t Ticket) (string, error) {
	if t.Code == "" || t.Role == "" {
		return "", fmt.Errorf("%w: code and role are required", ErrInvalidTicket)
	}
	now := tk.Now().UTC()
	claims := ticketClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ticketIssuer,
			Subject:   t.Code,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tk.ttl)),
		},
		Code:     t.Code,
		Role:     t.Role,
		PlayerID: t.PlayerID,
		Screen:   t.Screen,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(tk.key)
}

// Verify checks the signature and expiry of raw.
func (tk *Tickets) Verify(raw string) (Ticket, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Ticket{}, ErrInvalidTicket
	}
	var parsed ticketClaims
	_, err := jwt.ParseWithClaims(raw, &parsed, func(token *jwt.Token) (any, error) {
		return tk.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return Ticket{}, fmt.Errorf("%w: %v", ErrInvalidTicket, err)
	}
	if parsed.Issuer != ticketIssuer || parsed.Code == "" || parsed.Role == "" || parsed.ExpiresAt == nil {
		return Ticket{}, ErrInvalidTicket
	}
	exp := parsed.ExpiresAt.Time.UTC()
	if !exp.After(tk.Now().UTC()) {
		return Ticket{}, ErrTicketExpired
	}
	return Ticket{
		Code:      parsed.Code,
		Role:      parsed.Role,
		PlayerID:  parsed.PlayerID,
		Screen:    parsed.Screen,
		ExpiresAt: exp,
	}, nil
}
