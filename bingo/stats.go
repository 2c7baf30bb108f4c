package bingo

// MissingHistogram buckets players by the fewest marks they still need on any line.
type MissingHistogram struct {
	Zero      int `json:"0"`
	One       int `json:"1"`
	Two       int `json:"2"`
	ThreePlus int `json:"3+"`
}

// SessionStats is the session-wide fold of every player's progress.
type SessionStats struct {
	PlayerCount  int              `json:"playerCount"`
	ReachPlayers int              `json:"reachPlayers"`
	BingoPlayers int              `json:"bingoPlayers"`
	MinMissing   MissingHistogram `json:"minMissingHistogram"`
}

// AggregateStats folds progress in a single pass.
func AggregateStats(progress []Progress) SessionStats {
	var s SessionStats
	s.PlayerCount = len(progress)
	for _, p := range progress {
		if p.ReachLines > 0 {
			s.ReachPlayers++
		}
		if p.IsBingo {
			s.BingoPlayers++
		}
		switch {
		case p.MinMissingToLine <= 0:
			s.MinMissing.Zero++
		case p.MinMissingToLine == 1:
			s.MinMissing.One++
		case p.MinMissingToLine == 2:
			s.MinMissing.Two++
		default:
			s.MinMissing.ThreePlus++
		}
	}
	return s
}
