package replay

import "github.com/GrEarl/CloverBINGO-sub000/bingo"

// Result is the state derived from a commit log. It matches what the live
// coordinator holds after applying the same commits.
type Result struct {
	DrawnNumbers []int                     `json:"drawnNumbers"`
	ProgressByID map[string]bingo.Progress `json:"progressById"`
	Stats        bingo.SessionStats        `json:"stats"`
}

// Frame is the session-wide picture right after one commit.
type Frame struct {
	Seq    int                `json:"seq"`
	Number int                `json:"number"`
	Stats  bingo.SessionStats `json:"stats"`
}

// Tape is the per-commit history of a session.
type Tape struct {
	TapeVersion int     `json:"tapeVersion"`
	Frames      []Frame `json:"frames"`
}

const tapeVersion = 1
