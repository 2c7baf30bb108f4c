package replay

import (
	"github.com/GrEarl/CloverBINGO-sub000/bingo"
	"github.com/GrEarl/CloverBINGO-sub000/card"
)

// Rebuild derives drawn numbers, per-card progress and stats from a commit log.
// Commits may arrive in any order; they are applied by Seq.
func Rebuild(cards map[string]card.Card, commits []bingo.Commit) (*Result, error) {
	if err := validateCards(cards); err != nil {
		return nil, err
	}
	ordered, err := normalizeCommits(commits)
	if err != nil {
		return nil, err
	}

	drawn := make([]int, len(ordered))
	for i, c := range ordered {
		drawn[i] = c.Number
	}
	set := bingo.NewDrawnSet(drawn)

	res := &Result{
		DrawnNumbers: drawn,
		ProgressByID: make(map[string]bingo.Progress, len(cards)),
	}
	list := make([]bingo.Progress, 0, len(cards))
	for _, id := range sortedIDs(cards) {
		p := bingo.EvaluateProgressSet(cards[id], set)
		res.ProgressByID[id] = p
		list = append(list, p)
	}
	res.Stats = bingo.AggregateStats(list)
	return res, nil
}

// BuildTape replays commits one at a time and records stats after each.
func BuildTape(cards map[string]card.Card, commits []bingo.Commit) (*Tape, error) {
	if err := validateCards(cards); err != nil {
		return nil, err
	}
	ordered, err := normalizeCommits(commits)
	if err != nil {
		return nil, err
	}

	ids := sortedIDs(cards)
	tape := &Tape{TapeVersion: tapeVersion, Frames: make([]Frame, 0, len(ordered))}
	set := make(bingo.DrawnSet, len(ordered))
	list := make([]bingo.Progress, len(ids))
	for _, c := range ordered {
		set[c.Number] = struct{}{}
		for i, id := range ids {
			list[i] = bingo.EvaluateProgressSet(cards[id], set)
		}
		tape.Frames = append(tape.Frames, Frame{
			Seq:    c.Seq,
			Number: c.Number,
			Stats:  bingo.AggregateStats(list),
		})
	}
	return tape, nil
}
