package card

const (
	// Size is the number of rows and columns on a card.
	Size = 5
	// ColumnWidth is the width of the numeric range each column draws from.
	ColumnWidth = 15
	// MaxNumber is the highest drawable number.
	MaxNumber = Size * ColumnWidth

	// Free marks the center cell. It is always treated as marked.
	Free = 0

	centerRow = Size / 2
	centerCol = Size / 2
)

// ColumnLetters are the conventional column headers.
var ColumnLetters = [Size]string{"B", "I", "N", "G", "O"}
