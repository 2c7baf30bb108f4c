package ledger

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/GrEarl/CloverBINGO-sub000/bingo"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrOwnedElsewhere = errors.New("session is owned by another instance")
)

// Store is the durable side of a session: one state slot, an append-only commit log
// and an owner lease. All methods are safe for concurrent use.
type Store interface {
	Close() error
	// LoadSession returns the last saved state or ErrNotFound.
	LoadSession(ctx context.Context, code string) ([]byte, error)
	SaveSession(ctx context.Context, code string, state []byte) error
	// AppendCommit is idempotent on (code, seq).
	AppendCommit(ctx context.Context, code string, c bingo.Commit) error
	// ListCommits returns the log ordered by seq.
	ListCommits(ctx context.Context, code string) ([]bingo.Commit, error)
	// ClaimOwner takes or renews the lease for owner. It fails with ErrOwnedElsewhere
	// while another owner holds an unexpired lease.
	ClaimOwner(ctx context.Context, code, owner string, ttl time.Duration) error
	ReleaseOwner(ctx context.Context, code, owner string) error
}

// Options selects and configures a backend.
type Options struct {
	Mode              string
	DatabaseDSN       string
	LocalDatabasePath string
}

// NewStore opens the backend named by opts.Mode and returns it together with the
// normalized mode name.
func NewStore(opts Options) (Store, string, error) {
	mode := strings.ToLower(strings.TrimSpace(opts.Mode))
	switch mode {
	case "memory":
		return NewMemoryStore(), "memory", nil
	case "", "local", "sqlite":
		path := opts.LocalDatabasePath
		if strings.TrimSpace(path) == "" {
			p, err := defaultLocalDatabasePath()
			if err != nil {
				return nil, "", err
			}
			path = p
		}
		store, err := NewSQLiteStore(path)
		if err != nil {
			return nil, "", err
		}
		return store, "sqlite", nil
	case "postgres":
		store, err := NewPostgresStore(opts.DatabaseDSN)
		if err != nil {
			return nil, "", err
		}
		return store, "postgres", nil
	default:
		return nil, "", errors.New("unknown store mode: " + opts.Mode)
	}
}

func msToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
