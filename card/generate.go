package card

import (
	"fmt"
	"math/rand"
)

// Generate builds a random card from rng.
//
// Each column samples without replacement from its own 15-wide range; the center
// column takes only four numbers because its middle slot is Free.
func Generate(rng *rand.Rand) (Card, error) {
	var c Card
	for col := 0; col < Size; col++ {
		count := Size
		if col == centerCol {
			count = Size - 1
		}
		lo, _ := ColumnRange(col)
		nums, err := sample(rng, lo, ColumnWidth, count)
		if err != nil {
			return Card{}, fmt.Errorf("column %s: %w", ColumnLetters[col], err)
		}
		next := 0
		for row := 0; row < Size; row++ {
			if col == centerCol && row == centerRow {
				c[row][col] = Free
				continue
			}
			c[row][col] = nums[next]
			next++
		}
	}
	return c, nil
}

// sample picks count distinct values from [lo, lo+width).
func sample(rng *rand.Rand, lo, width, count int) ([]int, error) {
	if width <= 0 || count < 0 || count > width {
		return nil, fmt.Errorf("cannot sample %d numbers from a range of %d", count, width)
	}
	perm := rng.Perm(width)
	out := make([]int, count)
	for i := 0; i < count; i++ {
		out[i] = lo + perm[i]
	}
	return out, nil
}
