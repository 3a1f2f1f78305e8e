package cleaner

import (
	"context"

	"github.com/nconklindev/unitclean/internal/types"
)

// ReviewRequest is what an operator is shown before deciding the fate of the
// flagged rows of one table.
type ReviewRequest struct {
	RunID   string
	Source  string
	Headers []string
	Flagged []types.FlaggedRow
}

// Gate asks an operator what to do with flagged rows. Present may block until
// an answer arrives, or return ErrPending to suspend the run; a suspended run
// is resumed by presenting the same request again.
type Gate interface {
	Present(ctx context.Context, req ReviewRequest) (types.Decision, error)
}

// GateFunc adapts a function to the Gate interface.
type GateFunc func(ctx context.Context, req ReviewRequest) (types.Decision, error)

func (f GateFunc) Present(ctx context.Context, req ReviewRequest) (types.Decision, error) {
	return f(ctx, req)
}
