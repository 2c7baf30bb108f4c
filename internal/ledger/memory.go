package ledger

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/GrEarl/CloverBINGO-sub000/bingo"
)

type lease struct {
	owner     string
	expiresAt time.Time
}

// MemoryStore keeps everything in process. Nothing survives a restart of the process,
// but it does survive a restart of a coordinator, which is what tests rely on.
type MemoryStore struct {
	mu      sync.Mutex
	states  map[string][]byte
	commits map[string]map[int]bingo.Commit
	owners  map[string]lease
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		states:  make(map[string][]byte),
		commits: make(map[string]map[int]bingo.Commit),
		owners:  make(map[string]lease),
		now:     time.Now,
	}
}

func (m *MemoryStore) Close() error { return nil }

func (m *MemoryStore) LoadSession(_ context.Context, code string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.states[code]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), raw...), nil
}

func (m *MemoryStore) SaveSession(_ context.Context, code string, state []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[code] = append([]byte(nil), state...)
	return nil
}

func (m *MemoryStore) AppendCommit(_ context.Context, code string, c bingo.Commit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entries, ok := m.commits[code]
	if !ok {
		entries = make(map[int]bingo.Commit)
		m.commits[code] = entries
	}
	if _, exists := entries[c.Seq]; exists {
		return nil
	}
	entries[c.Seq] = c
	return nil
}

func (m *MemoryStore) ListCommits(_ context.Context, code string) ([]bingo.Commit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]bingo.Commit, 0, len(m.commits[code]))
	for _, c := range m.commits[code] {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, nil
}

func (m *MemoryStore) ClaimOwner(_ context.Context, code, owner string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	if cur, ok := m.owners[code]; ok && cur.owner != owner && now.Before(cur.expiresAt) {
		return ErrOwnedElsewhere
	}
	m.owners[code] = lease{owner: owner, expiresAt: now.Add(ttl)}
	return nil
}

func (m *MemoryStore) ReleaseOwner(_ context.Context, code, owner string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.owners[code]; ok && cur.owner == owner {
		delete(m.owners, code)
	}
	return nil
}
