package card

import (
	"math/rand"
	"strings"
	"testing"
)

func TestGenerate_RespectsColumnRangesAndFreeCenter(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		c, err := Generate(rng)
		if err != nil {
			t.Fatalf("Generate err: %v", err)
		}
		if err := c.Validate(); err != nil {
			t.Fatalf("generated card invalid: %v\n%s", err, c)
		}
		if !c.IsFree(2, 2) {
			t.Fatalf("expected free center, got %d", c[2][2])
		}
		if got := len(c.Numbers()); got != 24 {
			t.Fatalf("expected 24 numbers, got %d", got)
		}
	}
}

func TestGenerate_SameSeedSameCard(t *testing.T) {
	a, err := Generate(rand.New(rand.NewSource(42)))
	if err != nil {
		t.Fatal(err)
	}
	b, err := Generate(rand.New(rand.NewSource(42)))
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Fatalf("expected identical cards for identical seeds:\n%s\n--\n%s", a, b)
	}
}

func TestSample_RejectsImpossibleCounts(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	if _, err := sample(rng, 1, 15, 16); err == nil {
		t.Fatalf("expected error sampling 16 of 15")
	}
	if _, err := sample(rng, 1, 0, 0); err == nil {
		t.Fatalf("expected error for empty range")
	}
}

func TestValidate_RejectsBrokenLayouts(t *testing.T) {
	c := referenceCard()
	if err := c.Validate(); err != nil {
		t.Fatalf("reference card should be valid: %v", err)
	}

	dup := c
	dup[1][0] = dup[0][0]
	if err := dup.Validate(); err == nil || !strings.Contains(err.Error(), "duplicate") {
		t.Fatalf("expected duplicate error, got %v", err)
	}

	outOfRange := c
	outOfRange[0][1] = 3
	if err := outOfRange.Validate(); err == nil {
		t.Fatalf("expected range error")
	}

	noFree := c
	noFree[2][2] = 33
	if err := noFree.Validate(); err == nil {
		t.Fatalf("expected center error")
	}
}

func TestLines_CoverRowsColumnsDiagonals(t *testing.T) {
	ls := Lines()
	if len(ls) != 12 {
		t.Fatalf("expected 12 lines, got %d", len(ls))
	}
	center := 0
	for _, l := range ls {
		for _, cell := range l {
			if cell.Row == 2 && cell.Col == 2 {
				center++
			}
		}
	}
	// middle row, middle column, both diagonals
	if center != 4 {
		t.Fatalf("expected center on 4 lines, got %d", center)
	}
}

func referenceCard() Card {
	return Card{
		{1, 16, 31, 46, 61},
		{2, 17, 32, 47, 62},
		{3, 18, Free, 48, 63},
		{4, 19, 34, 49, 64},
		{5, 20, 35, 50, 65},
	}
}
