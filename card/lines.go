package card

// Cell is a (row, col) coordinate on a card.
type Cell struct {
	Row int
	Col int
}

// Line is one of the ways to win: a row, a column or a diagonal.
type Line [Size]Cell

// LineCount is the number of winning lines on a card.
const LineCount = 2*Size + 2

var lines = buildLines()

func buildLines() [LineCount]Line {
	var out [LineCount]Line
	idx := 0
	for row := 0; row < Size; row++ {
		for col := 0; col < Size; col++ {
			out[idx][col] = Cell{Row: row, Col: col}
		}
		idx++
	}
	for col := 0; col < Size; col++ {
		for row := 0; row < Size; row++ {
			out[idx][row] = Cell{Row: row, Col: col}
		}
		idx++
	}
	for i := 0; i < Size; i++ {
		out[idx][i] = Cell{Row: i, Col: i}
		out[idx+1][i] = Cell{Row: i, Col: Size - 1 - i}
	}
	return out
}

// Lines returns the 12 winning lines: 5 rows, 5 columns, then both diagonals.
func Lines() [LineCount]Line {
	return lines
}
