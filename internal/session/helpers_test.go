package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/GrEarl/CloverBINGO-sub000/internal/ledger"
	"golang.org/x/crypto/bcrypt"
)

type recordingSender struct {
	mu     sync.Mutex
	snaps  []Snapshot
	fail   bool
	closed bool
}

func (s *recordingSender) Send(snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("buffer full")
	}
	s.snaps = append(s.snaps, snap)
	return nil
}

func (s *recordingSender) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

func (s *recordingSender) last() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.snaps) == 0 {
		return nil
	}
	return s.snaps[len(s.snaps)-1]
}

func (s *recordingSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.snaps)
}

func (s *recordingSender) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func testConfig(store ledger.Store, owner string) Config {
	return Config{
		Store:    store,
		OwnerID:  owner,
		LeaseTTL: time.Minute,
		HashCost: bcrypt.MinCost,
		Seed:     42,
	}
}

func newTestCoordinator(t *testing.T) (*Coordinator, ledger.Store) {
	t.Helper()
	store := ledger.NewMemoryStore()
	c := New("TEST", testConfig(store, "node-a"))
	t.Cleanup(c.Stop)
	return c, store
}

func initialize(t *testing.T, c *Coordinator) *Secrets {
	t.Helper()
	secrets, err := c.Initialize(context.Background())
	if err != nil {
		t.Fatalf("Initialize err: %v", err)
	}
	if secrets == nil {
		t.Fatalf("expected secrets from first Initialize")
	}
	return secrets
}

func join(t *testing.T, c *Coordinator, name string) JoinResult {
	t.Helper()
	res, err := c.Join(context.Background(), name)
	if err != nil {
		t.Fatalf("Join(%q) err: %v", name, err)
	}
	return res
}

// drawOne runs a full prepare/reveal/commit cycle and returns the committed number.
func drawOne(t *testing.T, c *Coordinator, admin string) int {
	t.Helper()
	ctx := context.Background()
	pd, err := c.Prepare(ctx, admin)
	if err != nil {
		t.Fatalf("Prepare err: %v", err)
	}
	for _, step := range [][2]string{{"ten", "start"}, {"ten", "stop"}, {"one", "start"}, {"one", "stop"}} {
		res, err := c.Reel(ctx, admin, step[0], step[1])
		if err != nil {
			t.Fatalf("Reel(%s,%s) err: %v", step[0], step[1], err)
		}
		if step == [2]string{"one", "stop"} {
			if !res.Committed || res.Number != pd.Number {
				t.Fatalf("expected commit of %d, got %+v", pd.Number, res)
			}
		}
	}
	return pd.Number
}
