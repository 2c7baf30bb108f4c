package bingo

import (
	"fmt"
	"time"
)

// Commit is one finalized draw. Seq starts at 1 and equals the draw count after the commit.
type Commit struct {
	Seq         int       `json:"seq"`
	Number      int       `json:"number"`
	CommittedAt time.Time `json:"committedAt"`
}

func (c Commit) String() string {
	return fmt.Sprintf("#%d=%d", c.Seq, c.Number)
}
