package core

import (
	"context"
	"encoding/json"
)

// PollStatus tells the poll loop how to proceed after one request.
type PollStatus int

const (
	// PollData means the request returned updates.
	PollData PollStatus = iota
	// PollEmpty means the long poll ended without new updates. It is the
	// normal outcome of an idle long poll, not a failure.
	PollEmpty
	// PollError means the request failed and should be retried after a pause.
	PollError
)

func (s PollStatus) String() string {
	switch s {
	case PollData:
		return "data"
	case PollEmpty:
		return "empty"
	case PollError:
		return "error"
	default:
		return "unknown"
	}
}

// PollResult is the outcome of one getUpdates request.
type PollResult struct {
	Status  PollStatus
	Updates []RawUpdate
	Err     error
}

// Batch wraps a set of updates. An empty batch is reported as PollEmpty.
func Batch(updates []RawUpdate) PollResult {
	if len(updates) == 0 {
		return Empty()
	}
	return PollResult{Status: PollData, Updates: updates}
}

// Empty reports a long poll that returned no updates.
func Empty() PollResult {
	return PollResult{Status: PollEmpty}
}

// Failed reports a failed poll request.
func Failed(err error) PollResult {
	return PollResult{Status: PollError, Err: err}
}

// PollRequest holds the parameters of one getUpdates call.
type PollRequest struct {
	Offset         int64
	Timeout        int // seconds the server may hold the request open
	AllowedUpdates []string
}

// UpdateSource pulls batches of raw updates.
type UpdateSource interface {
	GetUpdates(ctx context.Context, req PollRequest) PollResult
}

// APIClient is the Bot API surface the Bot facade needs: long polling plus
// generic method calls.
type APIClient interface {
	UpdateSource
	Call(ctx context.Context, method string, params map[string]any) (json.RawMessage, error)
}
