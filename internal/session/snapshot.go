package session

import (
	"time"

	"github.com/GrEarl/CloverBINGO-sub000/bingo"
	"github.com/GrEarl/CloverBINGO-sub000/card"
)

// Snapshot is one role-specific view of a session. The concrete type is one of
// ParticipantSnapshot, DisplaySnapshot, AdminSnapshot, ModSnapshot or ObserverSnapshot.
type Snapshot interface {
	Role() Role
	Header() BaseView
	snapshot()
}

type PlayerSummary struct {
	ID          string         `json:"id"`
	DisplayName string         `json:"displayName"`
	Status      PlayerStatus   `json:"status"`
	Progress    bingo.Progress `json:"progress"`
}

type SpotlightView struct {
	IDs       []string        `json:"ids"`
	Players   []PlayerSummary `json:"players"`
	UpdatedAt *time.Time      `json:"updatedAt,omitempty"`
	UpdatedBy string          `json:"updatedBy,omitempty"`
}

// BaseView is shared by every role.
type BaseView struct {
	Code        string        `json:"code"`
	Status      Status        `json:"status"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
	DrawCount   int           `json:"drawCount"`
	LastNumbers []int         `json:"lastNumbers"`
	Spotlight   SpotlightView `json:"spotlight"`
	Seq         uint64        `json:"-"`
	ServerTsMs  int64         `json:"-"`
}

func (b BaseView) Header() BaseView { return b }
func (BaseView) snapshot()          {}

type PlayerView struct {
	ID          string         `json:"id"`
	DisplayName string         `json:"displayName"`
	Status      PlayerStatus   `json:"status"`
	JoinedAt    time.Time      `json:"joinedAt"`
	Card        card.Card      `json:"card"`
	Progress    bingo.Progress `json:"progress"`
}

type ParticipantSnapshot struct {
	BaseView
	Player       *PlayerView `json:"player"`
	DrawnNumbers []int       `json:"drawnNumbers"`
}

func (ParticipantSnapshot) Role() Role { return RoleParticipant }

// DisplaySnapshot carries one half of the reveal and never the pending number.
type DisplaySnapshot struct {
	BaseView
	Screen  bingo.Digit `json:"screen"`
	Drawing bool        `json:"drawing"`
	Reel    ReelState   `json:"reel"`
}

func (DisplaySnapshot) Role() Role { return RoleDisplay }

type AdminSnapshot struct {
	BaseView
	Players      []PlayerSummary    `json:"players"`
	Pending      *PendingDraw       `json:"pending"`
	BagRemaining int                `json:"bagRemaining"`
	Stats        bingo.SessionStats `json:"stats"`
	DrawnNumbers []int              `json:"drawnNumbers"`
}

func (AdminSnapshot) Role() Role { return RoleAdmin }

type ReelsView struct {
	Ten ReelState `json:"ten"`
	One ReelState `json:"one"`
}

type ModSnapshot struct {
	BaseView
	Players      []PlayerSummary    `json:"players"`
	Stats        bingo.SessionStats `json:"stats"`
	Reels        *ReelsView         `json:"reels"`
	DrawnNumbers []int              `json:"drawnNumbers"`
}

func (ModSnapshot) Role() Role { return RoleMod }

type ObserverSnapshot struct {
	BaseView
}

func (ObserverSnapshot) Role() Role { return RoleObserver }

// baseViewLocked builds the shared part. Caller holds c.mu.
func (c *Coordinator) baseViewLocked(seq uint64) BaseView {
	st := c.state
	return BaseView{
		Code:        c.Code,
		Status:      st.Status,
		CreatedAt:   st.CreatedAt,
		UpdatedAt:   st.UpdatedAt,
		DrawCount:   len(c.drawn),
		LastNumbers: lastNumbers(c.drawn, LastNumbersCount),
		Spotlight:   c.spotlightViewLocked(),
		Seq:         seq,
		ServerTsMs:  c.now().UnixMilli(),
	}
}

func (c *Coordinator) spotlightViewLocked() SpotlightView {
	sp := c.state.Spotlight
	view := SpotlightView{
		IDs:       append([]string{}, sp.IDs...),
		Players:   make([]PlayerSummary, 0, len(sp.IDs)),
		UpdatedBy: sp.UpdatedBy,
	}
	if !sp.UpdatedAt.IsZero() {
		at := sp.UpdatedAt
		view.UpdatedAt = &at
	}
	for _, id := range sp.IDs {
		if p, ok := c.byID[id]; ok {
			view.Players = append(view.Players, summarize(p))
		}
	}
	return view
}

// projectLocked layers role-specific fields over base. Caller holds c.mu.
func (c *Coordinator) projectLocked(meta ConnMeta, base BaseView) Snapshot {
	switch meta.Role {
	case RoleParticipant:
		snap := ParticipantSnapshot{BaseView: base, DrawnNumbers: append([]int{}, c.drawn...)}
		if p, ok := c.byID[meta.PlayerID]; ok {
			snap.Player = &PlayerView{
				ID:          p.ID,
				DisplayName: p.DisplayName,
				Status:      p.Status,
				JoinedAt:    p.JoinedAt,
				Card:        p.Card,
				Progress:    p.Progress,
			}
		}
		return snap
	case RoleDisplay:
		snap := DisplaySnapshot{BaseView: base, Screen: meta.Screen, Reel: ReelState{Status: bingo.ReelIdle}}
		if pd := c.state.Pending; pd != nil {
			snap.Drawing = true
			snap.Reel = pd.reel(meta.Screen).clone()
		}
		return snap
	case RoleAdmin:
		return AdminSnapshot{
			BaseView:     base,
			Players:      c.rosterLocked(),
			Pending:      c.state.Pending.clone(),
			BagRemaining: c.bag.Len(),
			Stats:        c.statsLocked(),
			DrawnNumbers: append([]int{}, c.drawn...),
		}
	case RoleMod:
		snap := ModSnapshot{
			BaseView:     base,
			Players:      c.rosterLocked(),
			Stats:        c.statsLocked(),
			DrawnNumbers: append([]int{}, c.drawn...),
		}
		if pd := c.state.Pending; pd != nil {
			snap.Reels = &ReelsView{Ten: pd.Ten.clone(), One: pd.One.clone()}
		}
		return snap
	default:
		return ObserverSnapshot{BaseView: base}
	}
}

func (c *Coordinator) rosterLocked() []PlayerSummary {
	out := make([]PlayerSummary, 0, len(c.state.Players))
	for _, p := range c.state.Players {
		out = append(out, summarize(p))
	}
	return out
}

func (c *Coordinator) statsLocked() bingo.SessionStats {
	list := make([]bingo.Progress, 0, len(c.state.Players))
	for _, p := range c.state.Players {
		list = append(list, p.Progress)
	}
	return bingo.AggregateStats(list)
}

func summarize(p *Player) PlayerSummary {
	return PlayerSummary{ID: p.ID, DisplayName: p.DisplayName, Status: p.Status, Progress: p.Progress}
}

// lastNumbers returns up to n of the most recent draws, newest first.
func lastNumbers(drawn []int, n int) []int {
	if len(drawn) < n {
		n = len(drawn)
	}
	out := make([]int, 0, n)
	for i := len(drawn) - 1; i >= len(drawn)-n; i-- {
		out = append(out, drawn[i])
	}
	return out
}
