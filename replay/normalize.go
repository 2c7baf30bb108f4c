package replay

import (
	"fmt"
	"sort"

	"github.com/GrEarl/CloverBINGO-sub000/bingo"
	"github.com/GrEarl/CloverBINGO-sub000/card"
)

// normalizeCommits orders commits by Seq and checks the log is gapless, 1-based and
// free of repeated numbers.
func normalizeCommits(commits []bingo.Commit) ([]bingo.Commit, error) {
	ordered := append([]bingo.Commit(nil), commits...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Seq < ordered[j].Seq })

	seen := make(map[int]int, len(ordered))
	for i, c := range ordered {
		want := i + 1
		if c.Seq != want {
			if i > 0 && ordered[i-1].Seq == c.Seq {
				return nil, &ReplayError{
					Seq:     c.Seq,
					Reason:  ReasonDuplicateSeq,
					Message: fmt.Sprintf("seq %d appears more than once", c.Seq),
				}
			}
			return nil, &ReplayError{
				Seq:      c.Seq,
				Reason:   ReasonSeqGap,
				Message:  fmt.Sprintf("expected seq %d, got %d", want, c.Seq),
				Expected: &ExpectedState{Seq: want, DrawCount: i},
			}
		}
		if !bingo.ValidNumber(c.Number) {
			return nil, &ReplayError{
				Seq:     c.Seq,
				Reason:  ReasonNumberRange,
				Message: fmt.Sprintf("number %d outside 1..%d", c.Number, bingo.MaxNumber),
			}
		}
		if prev, dup := seen[c.Number]; dup {
			return nil, &ReplayError{
				Seq:     c.Seq,
				Reason:  ReasonDuplicateNumber,
				Message: fmt.Sprintf("number %d already drawn at seq %d", c.Number, prev),
			}
		}
		seen[c.Number] = c.Seq
	}
	return ordered, nil
}

func validateCards(cards map[string]card.Card) error {
	for id, c := range cards {
		if err := c.Validate(); err != nil {
			return &ReplayError{Seq: 0, Reason: ReasonInvalidCard, Message: fmt.Sprintf("card %s: %v", id, err)}
		}
	}
	return nil
}

// sortedIDs keeps aggregation order stable across runs.
func sortedIDs(cards map[string]card.Card) []string {
	ids := make([]string, 0, len(cards))
	for id := range cards {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
