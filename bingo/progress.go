package bingo

import "github.com/GrEarl/CloverBINGO-sub000/card"

// Progress summarizes how close a card is to winning.
type Progress struct {
	ReachLines       int  `json:"reachLines"`
	BingoLines       int  `json:"bingoLines"`
	MinMissingToLine int  `json:"minMissingToLine"`
	IsBingo          bool `json:"isBingo"`
}

// DrawnSet is a membership view over drawn numbers.
type DrawnSet map[int]struct{}

// NewDrawnSet builds a set from drawn numbers, optionally with extra hypothetical ones.
func NewDrawnSet(drawn []int, extra ...int) DrawnSet {
	set := make(DrawnSet, len(drawn)+len(extra))
	for _, n := range drawn {
		set[n] = struct{}{}
	}
	for _, n := range extra {
		set[n] = struct{}{}
	}
	return set
}

// Has reports whether n was drawn.
func (s DrawnSet) Has(n int) bool {
	_, ok := s[n]
	return ok
}

// EvaluateProgress evaluates c against drawn. Only the set of drawn numbers matters,
// never their order.
func EvaluateProgress(c card.Card, drawn []int) Progress {
	return EvaluateProgressSet(c, NewDrawnSet(drawn))
}

// EvaluateProgressSet is EvaluateProgress over a prebuilt set, so a full roster
// recompute builds the set once.
func EvaluateProgressSet(c card.Card, drawn DrawnSet) Progress {
	p := Progress{MinMissingToLine: card.Size}
	for _, line := range card.Lines() {
		missing := 0
		for _, cell := range line {
			v := c[cell.Row][cell.Col]
			if v == card.Free || drawn.Has(v) {
				continue
			}
			missing++
		}
		switch missing {
		case 0:
			p.BingoLines++
		case 1:
			p.ReachLines++
		}
		if missing < p.MinMissingToLine {
			p.MinMissingToLine = missing
		}
	}
	p.IsBingo = p.BingoLines > 0
	return p
}
