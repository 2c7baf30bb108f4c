package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/GrEarl/CloverBINGO-sub000/bingo"
	"github.com/GrEarl/CloverBINGO-sub000/internal/ledger"
	"github.com/google/uuid"
)

const defaultLeaseTTL = 30 * time.Second

// Config holds what a coordinator needs besides its code.
type Config struct {
	Store    ledger.Store
	OwnerID  string
	LeaseTTL time.Duration
	// HashCost is the bcrypt cost for role secrets; 0 means bcrypt.DefaultCost.
	HashCost int
	// Seed feeds the bag shuffle and card generation; 0 seeds from the clock.
	Seed int64
	Now  func() time.Time
}

// Coordinator owns one session. All mutations run on its actor goroutine.
type Coordinator struct {
	Code string
	cfg  Config

	mu        sync.RWMutex
	state     *state // nil until initialized
	byID      map[string]*Player
	bag       *bingo.Bag
	drawn     []int
	registry  *Registry
	serverSeq uint64
	closed    bool
	stopOnce  sync.Once

	store ledger.Store
	rng   *rand.Rand
	now   func() time.Time

	events  chan Event
	done    chan struct{}
	stopped chan struct{} // closed after the lease is released
	loaded  chan struct{}
	loadErr error
}

// EventType enumerates actor messages.
type EventType int

const (
	EventInitialize EventType = iota
	EventJoin
	EventPrepare
	EventReel
	EventSpotlight
	EventEnd
	EventConnect
	EventDisconnect
)

// Event is a message to the coordinator actor.
type Event struct {
	Type      EventType
	Name      string
	Digit     bingo.Digit
	Action    bingo.ReelAction
	IDs       []string
	UpdatedBy string
	Meta      ConnMeta
	Sender    Sender
	ConnID    string
	Secrets   *Secrets
	Hashes    [2]string
	Timestamp time.Time
	Response  chan Result
}

// Result is the actor's reply to an Event.
type Result struct {
	Value any
	Err   error
}

// New starts a coordinator. Loading from the store happens on the actor goroutine;
// operations submitted meanwhile wait for it.
func New(code string, cfg Config) *Coordinator {
	if cfg.Store == nil {
		cfg.Store = ledger.NewMemoryStore()
	}
	if cfg.OwnerID == "" {
		cfg.OwnerID = uuid.NewString()
	}
	if cfg.LeaseTTL <= 0 {
		cfg.LeaseTTL = defaultLeaseTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	c := &Coordinator{
		Code:     code,
		cfg:      cfg,
		byID:     make(map[string]*Player),
		registry: NewRegistry(),
		store:    cfg.Store,
		rng:      rand.New(rand.NewSource(seed)),
		now:      cfg.Now,
		events:   make(chan Event, 256),
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
		loaded:   make(chan struct{}),
	}
	go c.run()
	log.Printf("[Session %s] Created (owner=%s)", code, cfg.OwnerID)
	return c
}

// run is the main actor loop
func (c *Coordinator) run() {
	defer close(c.stopped)

	c.loadErr = c.load()
	close(c.loaded)
	if c.loadErr != nil {
		log.Printf("[Session %s] Load failed: %v", c.Code, c.loadErr)
		c.Stop()
		return
	}

	renew := c.cfg.LeaseTTL / 3
	if renew < time.Second {
		renew = time.Second
	}
	ticker := time.NewTicker(renew)
	defer ticker.Stop()

	for {
		select {
		case event := <-c.events:
			v, err := c.handleEvent(event)
			event.Response <- Result{Value: v, Err: err}
		case <-ticker.C:
			c.renewLease()
		case <-c.done:
			c.releaseLease()
			log.Printf("[Session %s] Actor stopped", c.Code)
			return
		}
	}
}

func (c *Coordinator) handleEvent(e Event) (any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrClosed
	}

	switch e.Type {
	case EventInitialize:
		return c.handleInitialize(e)
	case EventJoin:
		return c.handleJoin(e)
	case EventPrepare:
		return c.handlePrepare(e)
	case EventReel:
		return c.handleReel(e)
	case EventSpotlight:
		return c.handleSpotlight(e)
	case EventEnd:
		return nil, c.handleEnd(e)
	case EventConnect:
		return c.handleConnect(e)
	case EventDisconnect:
		c.handleDisconnect(e.ConnID)
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown event type: %d", e.Type)
	}
}

// SubmitEvent sends an event to the actor and waits for its reply. Once queued the
// event is applied even if ctx is cancelled.
func (c *Coordinator) SubmitEvent(ctx context.Context, e Event) (any, error) {
	if err := c.waitLoaded(ctx); err != nil {
		return nil, err
	}
	e.Timestamp = c.now()
	if e.Response == nil {
		e.Response = make(chan Result, 1)
	}

	c.mu.RLock()
	closed := c.closed
	c.mu.RUnlock()
	if closed {
		return nil, ErrClosed
	}

	select {
	case c.events <- e:
	case <-c.done:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case r := <-e.Response:
		return r.Value, r.Err
	case <-c.done:
		return nil, ErrClosed
	}
}

func (c *Coordinator) waitLoaded(ctx context.Context) error {
	select {
	case <-c.loaded:
	case <-ctx.Done():
		return ctx.Err()
	}
	return c.loadErr
}

// Stop shuts down the actor and closes every registered connection.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
}

func (c *Coordinator) stopLocked() {
	if !c.closed {
		c.registry.Each(func(_ string, _ ConnMeta, s Sender) { s.Close() })
		c.registry = NewRegistry()
	}
	c.closed = true
	c.stopOnce.Do(func() {
		close(c.done)
	})
}

// IsClosed reports whether the coordinator stopped, including after a failed load.
func (c *Coordinator) IsClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// Done is closed as soon as Stop is called.
func (c *Coordinator) Done() <-chan struct{} {
	return c.done
}

// Stopped is closed once the actor goroutine has exited and released its lease.
func (c *Coordinator) Stopped() <-chan struct{} {
	return c.stopped
}

func (c *Coordinator) renewLease() {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	err := c.store.ClaimOwner(ctx, c.Code, c.cfg.OwnerID, c.cfg.LeaseTTL)
	if err == nil {
		return
	}
	if errors.Is(err, ledger.ErrOwnedElsewhere) {
		log.Printf("[Session %s] Lost ownership, stopping", c.Code)
		c.Stop()
		return
	}
	log.Printf("[Session %s] lease renewal failed: %v", c.Code, err)
}

func (c *Coordinator) releaseLease() {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := c.store.ReleaseOwner(ctx, c.Code, c.cfg.OwnerID); err != nil {
		log.Printf("[Session %s] lease release failed: %v", c.Code, err)
	}
}

func (c *Coordinator) nextSeq() uint64 {
	c.serverSeq++
	return c.serverSeq
}

// broadcastLocked pushes a fresh projection to every connection. A connection whose
// send fails is closed and dropped; the rest are unaffected.
func (c *Coordinator) broadcastLocked() {
	if c.registry.Len() == 0 {
		return
	}
	base := c.baseViewLocked(c.nextSeq())
	var failed []string
	c.registry.Each(func(id string, meta ConnMeta, s Sender) {
		if err := s.Send(c.projectLocked(meta, base)); err != nil {
			log.Printf("[Session %s] send to %s (%s) failed, dropping: %v", c.Code, id, meta.Role, err)
			failed = append(failed, id)
		}
	})
	for _, id := range failed {
		if s, ok := c.registry.Remove(id); ok {
			s.Close()
		}
	}
}

func (c *Coordinator) recomputeProgressLocked() {
	set := bingo.NewDrawnSet(c.drawn)
	for _, p := range c.state.Players {
		p.Progress = bingo.EvaluateProgressSet(p.Card, set)
	}
	if pd := c.state.Pending; pd != nil {
		pd.Impact = c.impactLocked(pd.Number)
	}
}

// impactLocked evaluates the roster as if n had already committed.
func (c *Coordinator) impactLocked(n int) Impact {
	set := bingo.NewDrawnSet(c.drawn, n)
	list := make([]bingo.Progress, 0, len(c.state.Players))
	for _, p := range c.state.Players {
		list = append(list, bingo.EvaluateProgressSet(p.Card, set))
	}
	stats := bingo.AggregateStats(list)
	return Impact{ReachPlayers: stats.ReachPlayers, BingoPlayers: stats.BingoPlayers}
}

func (c *Coordinator) touchLocked(at time.Time) {
	c.state.UpdatedAt = at
}
