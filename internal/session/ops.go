package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"unicode/utf8"

	"github.com/GrEarl/CloverBINGO-sub000/bingo"
	"github.com/GrEarl/CloverBINGO-sub000/card"
	"github.com/GrEarl/CloverBINGO-sub000/internal/auth"
	"github.com/GrEarl/CloverBINGO-sub000/internal/ledger"
	"github.com/google/uuid"
)

// Initialize creates the session if it does not exist yet. Only the creating call
// gets the secrets back; later calls return nil and no error.
func (c *Coordinator) Initialize(ctx context.Context) (*Secrets, error) {
	if err := c.waitLoaded(ctx); err != nil {
		return nil, err
	}
	c.mu.RLock()
	exists := c.state != nil
	c.mu.RUnlock()
	if exists {
		return nil, nil
	}

	secrets := &Secrets{Admin: auth.NewSecret(), Mod: auth.NewSecret()}
	adminHash, err := auth.HashSecret(secrets.Admin, c.cfg.HashCost)
	if err != nil {
		return nil, fmt.Errorf("hash admin secret: %w", err)
	}
	modHash, err := auth.HashSecret(secrets.Mod, c.cfg.HashCost)
	if err != nil {
		return nil, fmt.Errorf("hash mod secret: %w", err)
	}
	v, err := c.SubmitEvent(ctx, Event{Type: EventInitialize, Secrets: secrets, Hashes: [2]string{adminHash, modHash}})
	if err != nil {
		return nil, err
	}
	out, _ := v.(*Secrets)
	return out, nil
}

func (c *Coordinator) Join(ctx context.Context, displayName string) (JoinResult, error) {
	v, err := c.SubmitEvent(ctx, Event{Type: EventJoin, Name: displayName})
	if err != nil {
		return JoinResult{}, err
	}
	return v.(JoinResult), nil
}

// Prepare pops the next number into a pending draw, or returns the one already pending.
func (c *Coordinator) Prepare(ctx context.Context, adminSecret string) (*PendingDraw, error) {
	if err := c.Authorize(ctx, RoleAdmin, adminSecret); err != nil {
		return nil, err
	}
	v, err := c.SubmitEvent(ctx, Event{Type: EventPrepare})
	if err != nil {
		return nil, err
	}
	return v.(*PendingDraw), nil
}

// Reel starts or stops one digit of the pending draw. Stopping the second digit commits.
func (c *Coordinator) Reel(ctx context.Context, adminSecret, digit, action string) (ReelResult, error) {
	if err := c.Authorize(ctx, RoleAdmin, adminSecret); err != nil {
		return ReelResult{}, err
	}
	d, err := bingo.ParseDigit(digit)
	if err != nil {
		return ReelResult{}, badRequest(err)
	}
	a, err := bingo.ParseReelAction(action)
	if err != nil {
		return ReelResult{}, badRequest(err)
	}
	v, err := c.SubmitEvent(ctx, Event{Type: EventReel, Digit: d, Action: a})
	if err != nil {
		return ReelResult{}, err
	}
	return v.(ReelResult), nil
}

// SetSpotlight replaces the highlight list. Ids are trimmed, deduplicated and cut to
// MaxSpotlight; they are not checked against the roster.
func (c *Coordinator) SetSpotlight(ctx context.Context, modSecret string, ids []string, updatedBy string) (Spotlight, error) {
	if err := c.Authorize(ctx, RoleMod, modSecret); err != nil {
		return Spotlight{}, err
	}
	v, err := c.SubmitEvent(ctx, Event{Type: EventSpotlight, IDs: ids, UpdatedBy: updatedBy})
	if err != nil {
		return Spotlight{}, err
	}
	return v.(Spotlight), nil
}

func (c *Coordinator) End(ctx context.Context, adminSecret string) error {
	if err := c.Authorize(ctx, RoleAdmin, adminSecret); err != nil {
		return err
	}
	_, err := c.SubmitEvent(ctx, Event{Type: EventEnd})
	return err
}

// Connect registers sender and immediately sends it a snapshot. It returns the
// connection id to pass to Disconnect.
func (c *Coordinator) Connect(ctx context.Context, meta ConnMeta, sender Sender) (string, error) {
	if err := meta.validate(); err != nil {
		return "", err
	}
	v, err := c.SubmitEvent(ctx, Event{Type: EventConnect, Meta: meta, Sender: sender})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Disconnect forgets a connection. It never touches session state.
func (c *Coordinator) Disconnect(ctx context.Context, connID string) {
	if _, err := c.SubmitEvent(ctx, Event{Type: EventDisconnect, ConnID: connID}); err != nil && !errors.Is(err, ErrClosed) {
		log.Printf("[Session %s] disconnect %s failed: %v", c.Code, connID, err)
	}
}

// View returns a one-off projection without registering a connection.
func (c *Coordinator) View(ctx context.Context, meta ConnMeta) (Snapshot, error) {
	if err := meta.validate(); err != nil {
		return nil, err
	}
	if err := c.waitLoaded(ctx); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.state == nil {
		return nil, ErrNotInitialized
	}
	return c.projectLocked(meta, c.baseViewLocked(c.serverSeq)), nil
}

// Authorize checks secret against the role's stored hash. Unprivileged roles need no secret.
// The bcrypt comparison runs outside the actor.
func (c *Coordinator) Authorize(ctx context.Context, role Role, secret string) error {
	if err := c.waitLoaded(ctx); err != nil {
		return err
	}
	c.mu.RLock()
	st := c.state
	var hash string
	if st != nil {
		switch role {
		case RoleAdmin:
			hash = st.AdminSecretHash
		case RoleMod:
			hash = st.ModSecretHash
		}
	}
	c.mu.RUnlock()
	if st == nil {
		return ErrNotInitialized
	}
	if !role.Privileged() {
		return nil
	}
	if err := auth.VerifySecret(hash, strings.TrimSpace(secret)); err != nil {
		return ErrForbidden
	}
	return nil
}

func (c *Coordinator) PlayerExists(ctx context.Context, id string) (bool, error) {
	if err := c.waitLoaded(ctx); err != nil {
		return false, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.state == nil {
		return false, ErrNotInitialized
	}
	_, ok := c.byID[id]
	return ok, nil
}

// AuditView exposes cards and drawn numbers to an admin for commit-log checks.
func (c *Coordinator) AuditView(ctx context.Context, adminSecret string) (ledger.LiveView, error) {
	if err := c.Authorize(ctx, RoleAdmin, adminSecret); err != nil {
		return ledger.LiveView{}, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	progress := make(map[string]bingo.Progress, len(c.state.Players))
	for _, p := range c.state.Players {
		progress[p.ID] = p.Progress
	}
	return ledger.LiveView{
		Cards:        c.state.cards(),
		DrawnNumbers: append([]int{}, c.drawn...),
		ProgressByID: progress,
		Stats:        c.statsLocked(),
	}, nil
}

// Commits reads the durable commit log.
func (c *Coordinator) Commits(ctx context.Context) ([]bingo.Commit, error) {
	if err := c.waitLoaded(ctx); err != nil {
		return nil, err
	}
	return c.store.ListCommits(ctx, c.Code)
}

// ConnectionCount is the number of live connections.
func (c *Coordinator) ConnectionCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.registry.Len()
}

// --- actor handlers, all called with c.mu held ---

func (c *Coordinator) handleInitialize(e Event) (any, error) {
	if c.state != nil {
		return (*Secrets)(nil), nil
	}
	now := e.Timestamp
	c.bag = bingo.NewBag(c.rng)
	c.byID = make(map[string]*Player)
	c.drawn = nil
	c.state = &state{
		Code:            c.Code,
		Status:          StatusActive,
		CreatedAt:       now,
		UpdatedAt:       now,
		AdminSecretHash: e.Hashes[0],
		ModSecretHash:   e.Hashes[1],
		Commits:         []bingo.Commit{},
		Players:         []*Player{},
		Spotlight:       Spotlight{IDs: []string{}},
	}
	c.persistLocked()
	c.broadcastLocked()
	log.Printf("[Session %s] Initialized", c.Code)
	return e.Secrets, nil
}

func (c *Coordinator) handleJoin(e Event) (any, error) {
	if c.state == nil {
		return nil, ErrNotInitialized
	}
	if c.state.Status == StatusEnded {
		return nil, ErrEnded
	}
	name := normalizeDisplayName(e.Name)
	if name == "" {
		return nil, ErrInvalidName
	}
	cd, err := card.Generate(c.rng)
	if err != nil {
		return nil, fmt.Errorf("generate card: %w", err)
	}

	p := &Player{
		ID:          uuid.NewString(),
		DisplayName: name,
		JoinedAt:    e.Timestamp,
		Card:        cd,
		Status:      PlayerActive,
		Progress:    bingo.EvaluateProgress(cd, c.drawn),
	}
	c.state.Players = append(c.state.Players, p)
	c.byID[p.ID] = p
	if pd := c.state.Pending; pd != nil {
		pd.Impact = c.impactLocked(pd.Number)
	}
	c.touchLocked(e.Timestamp)
	c.persistLocked()
	c.broadcastLocked()
	log.Printf("[Session %s] Player %s joined as %q", c.Code, p.ID, p.DisplayName)
	return JoinResult{PlayerID: p.ID, Card: cd}, nil
}

func (c *Coordinator) handlePrepare(e Event) (any, error) {
	if c.state == nil {
		return nil, ErrNotInitialized
	}
	if c.state.Status == StatusEnded {
		return nil, ErrEnded
	}
	if pd := c.state.Pending; pd != nil {
		return pd.clone(), nil
	}
	n, err := c.bag.Pop()
	if err != nil {
		return nil, err
	}
	c.state.Pending = newPendingDraw(n, c.impactLocked(n), e.Timestamp)
	c.touchLocked(e.Timestamp)
	c.persistLocked()
	c.broadcastLocked()
	log.Printf("[Session %s] Prepared draw #%d (bag=%d)", c.Code, len(c.drawn)+1, c.bag.Len())
	return c.state.Pending.clone(), nil
}

func (c *Coordinator) handleReel(e Event) (any, error) {
	if c.state == nil {
		return nil, ErrNotInitialized
	}
	if c.state.Status == StatusEnded {
		return nil, ErrEnded
	}
	pd := c.state.Pending
	if pd == nil {
		return nil, ErrNoPendingDraw
	}

	r := pd.reel(e.Digit)
	switch e.Action {
	case bingo.ReelStart:
		r.Status = bingo.ReelSpinning
		r.Value = nil
	case bingo.ReelStop:
		if r.Status == bingo.ReelStopped {
			return ReelResult{Pending: pd.clone(), DrawCount: len(c.drawn)}, nil
		}
		v := bingo.DigitValue(pd.Number, e.Digit)
		r.Status = bingo.ReelStopped
		r.Value = &v
	default:
		return nil, badRequest(fmt.Errorf("unknown action %q", e.Action))
	}

	if pd.bothStopped() {
		commit := c.commitLocked(e)
		return ReelResult{Committed: true, Number: commit.Number, DrawCount: len(c.drawn)}, nil
	}
	c.touchLocked(e.Timestamp)
	c.persistLocked()
	c.broadcastLocked()
	return ReelResult{Pending: pd.clone(), DrawCount: len(c.drawn)}, nil
}

// commitLocked finalizes the pending draw in one step: log, roster, slot, broadcast.
func (c *Coordinator) commitLocked(e Event) bingo.Commit {
	n := c.state.Pending.Number
	commit := bingo.Commit{Seq: len(c.state.Commits) + 1, Number: n, CommittedAt: e.Timestamp}
	c.state.Commits = append(c.state.Commits, commit)
	c.drawn = append(c.drawn, n)
	c.state.Pending = nil
	c.recomputeProgressLocked()
	c.touchLocked(e.Timestamp)

	c.appendCommitLocked(commit)
	c.persistLocked()
	c.broadcastLocked()
	log.Printf("[Session %s] Committed %s", c.Code, commit)
	return commit
}

func (c *Coordinator) handleSpotlight(e Event) (any, error) {
	if c.state == nil {
		return nil, ErrNotInitialized
	}
	ids, err := normalizeSpotlight(e.IDs)
	if err != nil {
		return nil, err
	}
	c.state.Spotlight = Spotlight{
		IDs:       ids,
		UpdatedAt: e.Timestamp,
		UpdatedBy: normalizeDisplayName(e.UpdatedBy),
	}
	c.touchLocked(e.Timestamp)
	c.persistLocked()
	c.broadcastLocked()
	return Spotlight{IDs: append([]string{}, ids...), UpdatedAt: e.Timestamp, UpdatedBy: c.state.Spotlight.UpdatedBy}, nil
}

func (c *Coordinator) handleEnd(e Event) error {
	if c.state == nil {
		return ErrNotInitialized
	}
	if c.state.Status == StatusEnded {
		return nil
	}
	c.state.Status = StatusEnded
	c.touchLocked(e.Timestamp)
	c.persistLocked()
	c.broadcastLocked()
	log.Printf("[Session %s] Ended after %d draws", c.Code, len(c.drawn))
	return nil
}

func (c *Coordinator) handleConnect(e Event) (any, error) {
	if c.state == nil {
		return nil, ErrNotInitialized
	}
	if e.Meta.Role == RoleParticipant {
		if _, ok := c.byID[e.Meta.PlayerID]; !ok {
			return nil, ErrForbidden
		}
	}
	id := c.registry.Add(e.Meta, e.Sender)
	snap := c.projectLocked(e.Meta, c.baseViewLocked(c.nextSeq()))
	if err := e.Sender.Send(snap); err != nil {
		c.registry.Remove(id)
		e.Sender.Close()
		return nil, fmt.Errorf("initial snapshot: %w", err)
	}
	log.Printf("[Session %s] Connection %s registered as %s (total=%d)", c.Code, id, e.Meta.Role, c.registry.Len())
	return id, nil
}

func (c *Coordinator) handleDisconnect(id string) {
	if _, ok := c.registry.Remove(id); ok {
		log.Printf("[Session %s] Connection %s removed (total=%d)", c.Code, id, c.registry.Len())
	}
}

func normalizeDisplayName(raw string) string {
	name := strings.TrimSpace(raw)
	if utf8.RuneCountInString(name) > MaxNameLength {
		name = strings.TrimSpace(string([]rune(name)[:MaxNameLength]))
	}
	return name
}

func normalizeSpotlight(raw []string) ([]string, error) {
	out := make([]string, 0, MaxSpotlight)
	seen := make(map[string]struct{}, len(raw))
	for _, id := range raw {
		if len(out) == MaxSpotlight {
			break
		}
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if len(id) > maxSpotlightIDLength {
			return nil, badRequest(fmt.Errorf("spotlight id longer than %d bytes", maxSpotlightIDLength))
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out, nil
}
