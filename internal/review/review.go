// Package review provides the ways an operator can answer a review of
// flagged rows: a fixed policy, a blocking prompt for interactive front ends,
// and a board of pending reviews for request/response front ends.
package review

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/nconklindev/unitclean/internal/cleaner"
	"github.com/nconklindev/unitclean/internal/types"
)

// ErrUnknownReview is returned when deciding a review that is not pending.
var ErrUnknownReview = errors.New("no pending review with that id")

// Fixed answers every review with d.
func Fixed(d types.Decision) cleaner.Gate {
	return cleaner.GateFunc(func(context.Context, cleaner.ReviewRequest) (types.Decision, error) {
		return d, nil
	})
}

// Prompt is a review waiting for an answer from the front end.
type Prompt struct {
	Request cleaner.ReviewRequest
	reply   chan types.Decision
}

// Answer delivers the decision. Only the first answer counts.
func (p Prompt) Answer(d types.Decision) {
	select {
	case p.reply <- d:
	default:
	}
}

// Modal blocks the pipeline until the front end answers a Prompt.
type Modal struct {
	prompts chan Prompt
}

func NewModal() *Modal {
	return &Modal{prompts: make(chan Prompt)}
}

// Prompts delivers one Prompt per review.
func (m *Modal) Prompts() <-chan Prompt {
	return m.prompts
}

func (m *Modal) Present(ctx context.Context, req cleaner.ReviewRequest) (types.Decision, error) {
	p := Prompt{Request: req, reply: make(chan types.Decision, 1)}

	select {
	case m.prompts <- p:
	case <-ctx.Done():
		return 0, ctx.Err()
	}

	select {
	case d := <-p.reply:
		return d, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

type entry struct {
	req      cleaner.ReviewRequest
	created  time.Time
	decision types.Decision
	decided  bool
}

// Board holds reviews that are waiting for a decision made out of band.
// Present returns cleaner.ErrPending until Decide is called for the run.
// A review left undecided longer than the TTL resolves to cancel.
type Board struct {
	mu      sync.Mutex
	entries map[string]*entry
	ttl     time.Duration
	now     func() time.Time

	Logger *slog.Logger
	// OnExpire, when set, is called for every review dropped by Sweep.
	OnExpire func(runID string)
}

// NewBoard creates a board. A zero ttl disables expiry.
func NewBoard(ttl time.Duration) *Board {
	return &Board{
		entries: make(map[string]*entry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (b *Board) Present(_ context.Context, req cleaner.ReviewRequest) (types.Decision, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.entries[req.RunID]
	if !ok {
		b.entries[req.RunID] = &entry{req: req, created: b.now()}
		return 0, cleaner.ErrPending
	}

	if e.decided {
		delete(b.entries, req.RunID)
		return e.decision, nil
	}

	if b.expired(e) {
		delete(b.entries, req.RunID)
		b.logger().Warn("review expired", "run_id", req.RunID, "source", req.Source)
		return types.DecisionCancel, nil
	}

	return 0, cleaner.ErrPending
}

// Decide records the decision for a pending review.
func (b *Board) Decide(runID string, d types.Decision) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.entries[runID]
	if !ok || b.expired(e) {
		return ErrUnknownReview
	}
	e.decision = d
	e.decided = true
	return nil
}

// Pending returns the request of an undecided review.
func (b *Board) Pending(runID string) (cleaner.ReviewRequest, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.entries[runID]
	if !ok || e.decided || b.expired(e) {
		return cleaner.ReviewRequest{}, false
	}
	return e.req, true
}

// Len returns the number of reviews on the board.
func (b *Board) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}

// Sweep drops expired, undecided reviews and returns how many were dropped.
func (b *Board) Sweep() int {
	b.mu.Lock()
	var dropped []string
	for id, e := range b.entries {
		if !e.decided && b.expired(e) {
			delete(b.entries, id)
			dropped = append(dropped, id)
		}
	}
	b.mu.Unlock()

	for _, id := range dropped {
		b.logger().Info("review swept", "run_id", id)
		if b.OnExpire != nil {
			b.OnExpire(id)
		}
	}
	return len(dropped)
}

// Janitor sweeps the board every interval until ctx is done.
func (b *Board) Janitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.Sweep()
		}
	}
}

func (b *Board) expired(e *entry) bool {
	return b.ttl > 0 && b.now().Sub(e.created) > b.ttl
}

func (b *Board) logger() *slog.Logger {
	if b.Logger != nil {
		return b.Logger
	}
	return slog.Default()
}
