package bingo

import (
	"fmt"
	"math/rand"
)

// Bag is the shuffled sequence of numbers not yet drawn. Numbers are popped from the front.
type Bag struct {
	numbers []int
}

// NewBag returns a Fisher-Yates shuffled permutation of 1..MaxNumber.
func NewBag(rng *rand.Rand) *Bag {
	nums := make([]int, MaxNumber)
	for i := range nums {
		nums[i] = i + 1
	}
	rng.Shuffle(len(nums), func(i, j int) {
		nums[i], nums[j] = nums[j], nums[i]
	})
	return &Bag{numbers: nums}
}

// RestoreBag rebuilds a bag from persisted order. drawn must be disjoint from remaining
// and together they must cover 1..MaxNumber exactly.
func RestoreBag(remaining, drawn []int) (*Bag, error) {
	if len(remaining)+len(drawn) != MaxNumber {
		return nil, ErrInvalidState(fmt.Sprintf("bag has %d numbers and %d are drawn, want %d total", len(remaining), len(drawn), MaxNumber))
	}
	seen := make(map[int]struct{}, MaxNumber)
	for _, group := range [][]int{remaining, drawn} {
		for _, n := range group {
			if !ValidNumber(n) {
				return nil, fmt.Errorf("%w: %d", ErrInvalidNumber, n)
			}
			if _, dup := seen[n]; dup {
				return nil, ErrInvalidState(fmt.Sprintf("number %d appears twice across bag and drawn", n))
			}
			seen[n] = struct{}{}
		}
	}
	return &Bag{numbers: append([]int(nil), remaining...)}, nil
}

// Pop removes and returns the next number.
func (b *Bag) Pop() (int, error) {
	if len(b.numbers) == 0 {
		return 0, ErrPoolExhausted
	}
	n := b.numbers[0]
	b.numbers = b.numbers[1:]
	return n, nil
}

// Remove drops n from the bag wherever it sits. It reports whether n was present.
func (b *Bag) Remove(n int) bool {
	for i, v := range b.numbers {
		if v == n {
			b.numbers = append(b.numbers[:i:i], b.numbers[i+1:]...)
			return true
		}
	}
	return false
}

// Len is the number of undrawn numbers.
func (b *Bag) Len() int {
	return len(b.numbers)
}

// Numbers returns a copy of the remaining order.
func (b *Bag) Numbers() []int {
	return append([]int(nil), b.numbers...)
}
