package directory

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/GrEarl/CloverBINGO-sub000/internal/ledger"
	"github.com/GrEarl/CloverBINGO-sub000/internal/session"
)

var ErrInvalidCode = errors.New("invalid session code")

var codePattern = regexp.MustCompile(`^[A-Z0-9-]{3,32}$`)

// NormalizeCode upper-cases and trims raw, then checks the allowed alphabet.
func NormalizeCode(raw string) (string, error) {
	code := strings.ToUpper(strings.TrimSpace(raw))
	if !codePattern.MatchString(code) {
		return "", fmt.Errorf("%w: %q", ErrInvalidCode, raw)
	}
	return code, nil
}

// Directory maps session codes to their coordinators in this process.
type Directory struct {
	mu           sync.RWMutex
	coordinators map[string]*session.Coordinator
	closed       bool

	config session.Config
}

// New creates an empty directory. Every coordinator it starts shares cfg, except
// for the seed, which is derived per session code.
func New(cfg session.Config) *Directory {
	if cfg.Store == nil {
		cfg.Store = ledger.NewMemoryStore()
	}
	return &Directory{
		coordinators: make(map[string]*session.Coordinator),
		config:       cfg,
	}
}

// Open returns the coordinator for an existing session. A coordinator is only
// started when the store already holds state for code; otherwise Open fails with
// session.ErrNotInitialized and nothing is left running.
func (d *Directory) Open(ctx context.Context, raw string) (*session.Coordinator, error) {
	code, err := NormalizeCode(raw)
	if err != nil {
		return nil, err
	}
	if c, ok := d.Lookup(code); ok {
		return c, nil
	}
	if _, err := d.config.Store.LoadSession(ctx, code); err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return nil, session.ErrNotInitialized
		}
		return nil, fmt.Errorf("load session %s: %w", code, err)
	}
	return d.Get(code)
}

// Get returns the coordinator for code, starting one if needed. A coordinator that
// stopped (failed load, lost lease) is replaced. Only session creation should call
// Get for a code the store does not know; everything else goes through Open.
func (d *Directory) Get(raw string) (*session.Coordinator, error) {
	code, err := NormalizeCode(raw)
	if err != nil {
		return nil, err
	}

	d.mu.RLock()
	c, ok := d.coordinators[code]
	closed := d.closed
	d.mu.RUnlock()
	if closed {
		return nil, session.ErrClosed
	}
	if ok && !c.IsClosed() {
		return c, nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, session.ErrClosed
	}
	if c, ok := d.coordinators[code]; ok && !c.IsClosed() {
		return c, nil
	}
	cfg := d.config
	cfg.Seed = sessionSeed(cfg.Seed, code)
	c = session.New(code, cfg)
	d.coordinators[code] = c
	log.Printf("[Directory] Started coordinator for %s (total=%d)", code, len(d.coordinators))
	return c, nil
}

// Lookup returns a running coordinator without starting one.
func (d *Directory) Lookup(raw string) (*session.Coordinator, bool) {
	code, err := NormalizeCode(raw)
	if err != nil {
		return nil, false
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	c, ok := d.coordinators[code]
	if !ok || c.IsClosed() {
		return nil, false
	}
	return c, true
}

// List returns the codes of running coordinators, sorted.
func (d *Directory) List() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	codes := make([]string, 0, len(d.coordinators))
	for code, c := range d.coordinators {
		if !c.IsClosed() {
			codes = append(codes, code)
		}
	}
	sort.Strings(codes)
	return codes
}

// Reap forgets coordinators that have stopped and returns how many were removed.
func (d *Directory) Reap() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	removed := 0
	for code, c := range d.coordinators {
		if c.IsClosed() {
			delete(d.coordinators, code)
			removed++
		}
	}
	if removed > 0 {
		log.Printf("[Directory] Reaped %d stopped coordinator(s)", removed)
	}
	return removed
}

// Close stops every coordinator. Later Get calls fail with session.ErrClosed.
func (d *Directory) Close() {
	d.mu.Lock()
	d.closed = true
	all := make([]*session.Coordinator, 0, len(d.coordinators))
	for _, c := range d.coordinators {
		all = append(all, c)
	}
	d.coordinators = make(map[string]*session.Coordinator)
	d.mu.Unlock()

	for _, c := range all {
		c.Stop()
	}
	for _, c := range all {
		<-c.Stopped()
	}
	log.Printf("[Directory] Closed %d coordinator(s)", len(all))
}

// AuditView lets the ledger audit handler reach a live session.
func (d *Directory) AuditView(ctx context.Context, code, adminSecret string) (ledger.LiveView, error) {
	c, err := d.Open(ctx, code)
	if err != nil {
		return ledger.LiveView{}, err
	}
	return c.AuditView(ctx, adminSecret)
}

// sessionSeed mixes the configured seed with the session code so sessions do not
// share a bag order. Zero stays zero, which lets the coordinator seed from the clock.
func sessionSeed(seed int64, code string) int64 {
	if seed == 0 {
		return 0
	}
	h := fnv.New64a()
	h.Write([]byte(code))
	mixed := seed ^ int64(h.Sum64())
	if mixed == 0 {
		mixed = seed
	}
	return mixed
}
