package replay

import "fmt"

// Reasons reported by ReplayError.
const (
	ReasonDuplicateSeq    = "duplicate_seq"
	ReasonSeqGap          = "seq_gap"
	ReasonDuplicateNumber = "duplicate_number"
	ReasonNumberRange     = "number_out_of_range"
	ReasonInvalidCard     = "invalid_card"
)

type ReplayError struct {
	Seq      int            `json:"seq"`
	Reason   string         `json:"reason"`
	Message  string         `json:"message"`
	Expected *ExpectedState `json:"expected,omitempty"`
}

type ExpectedState struct {
	Seq       int `json:"seq"`
	DrawCount int `json:"drawCount"`
}

func (e *ReplayError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("replay error(seq=%d reason=%s): %s", e.Seq, e.Reason, e.Message)
}
