package card

import (
	"fmt"
	"strings"
)

// Card is a 5x5 bingo board stored row-major.
//
// Cell values:
// - Free (0): the center cell, always marked
// - 1..75: a drawable number; column c only holds numbers in [15c+1, 15c+15]
type Card [Size][Size]int

// IsFree reports whether the cell at (row, col) is the free cell.
func (c Card) IsFree(row, col int) bool {
	return c[row][col] == Free
}

// Numbers returns the drawable numbers on the card in row-major order.
func (c Card) Numbers() []int {
	out := make([]int, 0, Size*Size-1)
	for row := 0; row < Size; row++ {
		for col := 0; col < Size; col++ {
			if v := c[row][col]; v != Free {
				out = append(out, v)
			}
		}
	}
	return out
}

// Validate checks the layout invariants: center free, column ranges, unique numbers.
func (c Card) Validate() error {
	seen := make(map[int]struct{}, Size*Size)
	for row := 0; row < Size; row++ {
		for col := 0; col < Size; col++ {
			v := c[row][col]
			if row == centerRow && col == centerCol {
				if v != Free {
					return fmt.Errorf("center cell must be free, got %d", v)
				}
				continue
			}
			lo, hi := ColumnRange(col)
			if v < lo || v > hi {
				return fmt.Errorf("cell (%d,%d)=%d outside column range %d-%d", row, col, v, lo, hi)
			}
			if _, dup := seen[v]; dup {
				return fmt.Errorf("duplicate number %d", v)
			}
			seen[v] = struct{}{}
		}
	}
	return nil
}

// ColumnRange returns the inclusive numeric range for column col.
func ColumnRange(col int) (lo, hi int) {
	lo = col*ColumnWidth + 1
	return lo, lo + ColumnWidth - 1
}

func (c Card) String() string {
	var b strings.Builder
	for row := 0; row < Size; row++ {
		for col := 0; col < Size; col++ {
			if col > 0 {
				b.WriteByte(' ')
			}
			if c.IsFree(row, col) {
				b.WriteString("FR")
				continue
			}
			fmt.Fprintf(&b, "%2d", c[row][col])
		}
		if row < Size-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}
