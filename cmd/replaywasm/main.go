//go:build js && wasm

package main

import (
	"encoding/json"
	"errors"
	"syscall/js"

	"github.com/GrEarl/CloverBINGO-sub000/bingo"
	"github.com/GrEarl/CloverBINGO-sub000/card"
	"github.com/GrEarl/CloverBINGO-sub000/replay"
)

// replayRequest is the audit payload: the roster's cards and the commit log.
type replayRequest struct {
	Cards   map[string]card.Card `json:"cards"`
	Commits []bingo.Commit       `json:"commits"`
}

type replayResponse struct {
	OK     bool                `json:"ok"`
	Result *replay.Result      `json:"result,omitempty"`
	Tape   *replay.Tape        `json:"tape,omitempty"`
	Error  *replay.ReplayError `json:"error,omitempty"`
}

func main() {
	js.Global().Set("__bingoReplay", js.FuncOf(func(this js.Value, args []js.Value) any {
		if len(args) < 1 {
			return mustJSON(replayResponse{
				Error: &replay.ReplayError{Reason: "invalid_request", Message: "missing request payload"},
			})
		}
		return mustJSON(handleReplay(args[0].String()))
	}))

	select {}
}

func handleReplay(raw string) replayResponse {
	var req replayRequest
	if err := json.Unmarshal([]byte(raw), &req); err != nil {
		return replayResponse{Error: &replay.ReplayError{Reason: "invalid_json", Message: err.Error()}}
	}

	result, err := replay.Rebuild(req.Cards, req.Commits)
	if err != nil {
		return failure(err)
	}
	tape, err := replay.BuildTape(req.Cards, req.Commits)
	if err != nil {
		return failure(err)
	}
	return replayResponse{OK: true, Result: result, Tape: tape}
}

func failure(err error) replayResponse {
	var replayErr *replay.ReplayError
	if errors.As(err, &replayErr) {
		return replayResponse{Error: replayErr}
	}
	return replayResponse{Error: &replay.ReplayError{Reason: "replay_failed", Message: err.Error()}}
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		b, _ = json.Marshal(replayResponse{
			Error: &replay.ReplayError{Reason: "marshal_failed", Message: err.Error()},
		})
	}
	return string(b)
}
