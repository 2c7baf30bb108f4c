package bingo

// SplitNumber maps a drawn number to the (ten, one) pair shown on the reels.
// The reels index numbers from zero: n is shown as the two digits of n-1.
func SplitNumber(n int) (ten, one int) {
	v := (n - 1 + 100) % 100
	return v / 10, v % 10
}

// ComposeNumber is the inverse of SplitNumber for the 1..75 domain.
func ComposeNumber(ten, one int) int {
	return ten*10 + one + 1
}

// DigitValue returns the value shown on the given reel for n.
func DigitValue(n int, d Digit) int {
	ten, one := SplitNumber(n)
	if d == DigitTen {
		return ten
	}
	return one
}
