package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/GrEarl/CloverBINGO-sub000/bingo"
	"github.com/GrEarl/CloverBINGO-sub000/card"
	"github.com/GrEarl/CloverBINGO-sub000/internal/ledger"
	"github.com/GrEarl/CloverBINGO-sub000/replay"
)

const persistTimeout = 3 * time.Second

// state is the persisted document. Bag is refreshed from the live bag on every save.
type state struct {
	Code            string         `json:"code"`
	Status          Status         `json:"status"`
	CreatedAt       time.Time      `json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`
	AdminSecretHash string         `json:"adminSecretHash"`
	ModSecretHash   string         `json:"modSecretHash"`
	Bag             []int          `json:"bag"`
	Commits         []bingo.Commit `json:"commits"`
	Players         []*Player      `json:"players"`
	Pending         *PendingDraw   `json:"pending,omitempty"`
	Spotlight       Spotlight      `json:"spotlight"`
}

func (s *state) cards() map[string]card.Card {
	out := make(map[string]card.Card, len(s.Players))
	for _, p := range s.Players {
		out[p.ID] = p.Card
	}
	return out
}

func drawnFromCommits(commits []bingo.Commit) []int {
	out := make([]int, len(commits))
	for i, c := range commits {
		out[i] = c.Number
	}
	return out
}

// load claims the owner lease and restores any saved state. It runs once, in the
// actor goroutine, before the first event.
func (c *Coordinator) load() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.store.ClaimOwner(ctx, c.Code, c.cfg.OwnerID, c.cfg.LeaseTTL); err != nil {
		return fmt.Errorf("claim owner: %w", err)
	}
	raw, err := c.store.LoadSession(ctx, c.Code)
	if errors.Is(err, ledger.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}

	var st state
	if err := json.Unmarshal(raw, &st); err != nil {
		return fmt.Errorf("decode session: %w", err)
	}
	if err := c.restore(&st); err != nil {
		return err
	}
	logCommits, err := c.store.ListCommits(ctx, c.Code)
	if err != nil {
		return fmt.Errorf("list commits: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.reconcileLocked(ctx, logCommits)
	log.Printf("[Session %s] Restored (status=%s players=%d drawn=%d pending=%v)",
		c.Code, c.state.Status, len(c.state.Players), len(c.drawn), c.state.Pending != nil)
	return nil
}

func (c *Coordinator) restore(st *state) error {
	byID := make(map[string]*Player, len(st.Players))
	for _, p := range st.Players {
		if err := p.Card.Validate(); err != nil {
			return fmt.Errorf("player %s: %w", p.ID, err)
		}
		byID[p.ID] = p
	}
	taken := drawnFromCommits(st.Commits)
	if st.Pending != nil {
		taken = append(taken, st.Pending.Number)
	}
	bag, err := bingo.RestoreBag(st.Bag, taken)
	if err != nil {
		return fmt.Errorf("restore bag: %w", err)
	}
	res, err := replay.Rebuild(st.cards(), st.Commits)
	if err != nil {
		return fmt.Errorf("rebuild progress: %w", err)
	}
	for id, p := range byID {
		p.Progress = res.ProgressByID[id]
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = st
	c.byID = byID
	c.bag = bag
	c.drawn = res.DrawnNumbers
	return nil
}

// reconcileLocked lines the slot up with the commit log. The log is written before
// the slot, so a crash in between leaves commits only the log knows about.
func (c *Coordinator) reconcileLocked(ctx context.Context, logCommits []bingo.Commit) {
	st := c.state
	if _, err := replay.Rebuild(nil, logCommits); err != nil {
		log.Printf("[Session %s] commit log unusable, keeping saved state: %v", c.Code, err)
		return
	}
	common := len(st.Commits)
	if len(logCommits) < common {
		common = len(logCommits)
	}
	for i := 0; i < common; i++ {
		if st.Commits[i].Number != logCommits[i].Number {
			log.Printf("[Session %s] commit log diverges at seq %d (saved=%d log=%d), keeping saved state",
				c.Code, i+1, st.Commits[i].Number, logCommits[i].Number)
			return
		}
	}

	adopted := 0
	for _, lc := range logCommits[common:] {
		if !c.bag.Remove(lc.Number) {
			if st.Pending == nil || st.Pending.Number != lc.Number {
				log.Printf("[Session %s] cannot adopt seq %d number %d: not in bag or pending", c.Code, lc.Seq, lc.Number)
				break
			}
			st.Pending = nil
		}
		st.Commits = append(st.Commits, lc)
		adopted++
	}
	if adopted > 0 {
		c.drawn = drawnFromCommits(st.Commits)
		c.recomputeProgressLocked()
		c.persistLocked()
		log.Printf("[Session %s] Adopted %d commit(s) from the log", c.Code, adopted)
	}

	if len(st.Commits) <= len(logCommits) {
		return
	}
	for _, sc := range st.Commits[len(logCommits):] {
		if err := c.store.AppendCommit(ctx, c.Code, sc); err != nil {
			log.Printf("[Session %s] backfill commit seq=%d failed: %v", c.Code, sc.Seq, err)
			return
		}
		log.Printf("[Session %s] Backfilled commit seq=%d into the log", c.Code, sc.Seq)
	}
}

// persistLocked writes the state slot. Failures are logged; memory stays authoritative.
func (c *Coordinator) persistLocked() {
	st := c.state
	st.Bag = c.bag.Numbers()
	raw, err := json.Marshal(st)
	if err != nil {
		log.Printf("[Session %s] encode state failed: %v", c.Code, err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := c.store.SaveSession(ctx, c.Code, raw); err != nil {
		log.Printf("[Session %s] save state failed: %v", c.Code, err)
	}
}

func (c *Coordinator) appendCommitLocked(commit bingo.Commit) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := c.store.AppendCommit(ctx, c.Code, commit); err != nil {
		log.Printf("[Session %s] append commit seq=%d failed: %v", c.Code, commit.Seq, err)
	}
}
