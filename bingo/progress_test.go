package bingo

import (
	"math/rand"
	"testing"

	"github.com/GrEarl/CloverBINGO-sub000/card"
)

func referenceCard() card.Card {
	return card.Card{
		{1, 16, 31, 46, 61},
		{2, 17, 32, 47, 62},
		{3, 18, card.Free, 48, 63},
		{4, 19, 34, 49, 64},
		{5, 20, 35, 50, 65},
	}
}

func TestEvaluateProgress_ReferenceCard(t *testing.T) {
	c := referenceCard()

	p := EvaluateProgress(c, []int{1, 2, 4, 5})
	if p.MinMissingToLine != 1 || p.ReachLines != 1 || p.BingoLines != 0 || p.IsBingo {
		t.Fatalf("unexpected progress after 1,2,4,5: %+v", p)
	}

	p = EvaluateProgress(c, []int{1, 2, 3, 4, 5})
	if !p.IsBingo || p.BingoLines != 1 || p.MinMissingToLine != 0 {
		t.Fatalf("expected bingo on column B, got %+v", p)
	}
}

func TestEvaluateProgress_FreeCellCountsAsMarked(t *testing.T) {
	c := referenceCard()
	// middle row: 3 18 FREE 48 63
	p := EvaluateProgress(c, []int{3, 18, 48, 63})
	if !p.IsBingo {
		t.Fatalf("middle row should be complete with free center: %+v", p)
	}

	empty := EvaluateProgress(c, nil)
	// lines through the center miss four, all others miss five
	if empty.MinMissingToLine != 4 || empty.ReachLines != 0 || empty.BingoLines != 0 {
		t.Fatalf("unexpected empty progress: %+v", empty)
	}
}

func TestEvaluateProgress_OrderIndependent(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	c, err := card.Generate(rng)
	if err != nil {
		t.Fatal(err)
	}
	drawn := rng.Perm(MaxNumber)[:30]
	for i := range drawn {
		drawn[i]++
	}
	want := EvaluateProgress(c, drawn)
	for i := 0; i < 20; i++ {
		shuffled := append([]int(nil), drawn...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		if got := EvaluateProgress(c, shuffled); got != want {
			t.Fatalf("order changed result: %+v vs %+v", got, want)
		}
	}
}

func TestEvaluateProgress_Monotonic(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	for trial := 0; trial < 25; trial++ {
		c, err := card.Generate(rng)
		if err != nil {
			t.Fatal(err)
		}
		bag := NewBag(rng)
		var drawn []int
		prev := EvaluateProgress(c, drawn)
		for bag.Len() > 0 {
			n, err := bag.Pop()
			if err != nil {
				t.Fatal(err)
			}
			drawn = append(drawn, n)
			cur := EvaluateProgress(c, drawn)
			if cur.BingoLines < prev.BingoLines {
				t.Fatalf("bingo lines decreased after %d: %d -> %d", n, prev.BingoLines, cur.BingoLines)
			}
			if cur.MinMissingToLine > prev.MinMissingToLine {
				t.Fatalf("min missing increased after %d: %d -> %d", n, prev.MinMissingToLine, cur.MinMissingToLine)
			}
			prev = cur
		}
		if prev.BingoLines != card.LineCount {
			t.Fatalf("all lines should be complete after drawing everything, got %d", prev.BingoLines)
		}
	}
}

func TestAggregateStats_Buckets(t *testing.T) {
	stats := AggregateStats([]Progress{
		{MinMissingToLine: 0, BingoLines: 1, IsBingo: true},
		{MinMissingToLine: 1, ReachLines: 2},
		{MinMissingToLine: 1, ReachLines: 1},
		{MinMissingToLine: 2},
		{MinMissingToLine: 4},
		{MinMissingToLine: 5},
	})
	if stats.PlayerCount != 6 || stats.BingoPlayers != 1 || stats.ReachPlayers != 2 {
		t.Fatalf("unexpected counts: %+v", stats)
	}
	want := MissingHistogram{Zero: 1, One: 2, Two: 1, ThreePlus: 2}
	if stats.MinMissing != want {
		t.Fatalf("histogram = %+v, want %+v", stats.MinMissing, want)
	}
}

func TestAggregateStats_Empty(t *testing.T) {
	if got := AggregateStats(nil); got != (SessionStats{}) {
		t.Fatalf("expected zero stats, got %+v", got)
	}
}
