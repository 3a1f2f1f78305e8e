package review

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nconklindev/unitclean/internal/cleaner"
	"github.com/nconklindev/unitclean/internal/types"
)

func request(id string) cleaner.ReviewRequest {
	return cleaner.ReviewRequest{
		RunID:   id,
		Source:  "units.csv",
		Headers: []string{"Unit"},
		Flagged: []types.FlaggedRow{{Index: 0, Cells: []string{"#1"}}},
	}
}

func TestFixed(t *testing.T) {
	for _, d := range []types.Decision{types.DecisionKeep, types.DecisionDelete, types.DecisionCancel} {
		got, err := Fixed(d).Present(context.Background(), request("r"))
		require.NoError(t, err)
		assert.Equal(t, d, got)
	}
}

func TestModal_Answer(t *testing.T) {
	m := NewModal()

	go func() {
		p := <-m.Prompts()
		p.Answer(types.DecisionDelete)
		p.Answer(types.DecisionKeep) // ignored
	}()

	d, err := m.Present(context.Background(), request("r1"))
	require.NoError(t, err)
	assert.Equal(t, types.DecisionDelete, d)
}

func TestModal_ContextCancelled(t *testing.T) {
	m := NewModal()
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		<-m.Prompts()
		cancel()
	}()

	_, err := m.Present(ctx, request("r1"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestModal_NobodyListening(t *testing.T) {
	m := NewModal()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := m.Present(ctx, request("r1"))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestBoard_PendingUntilDecided(t *testing.T) {
	b := NewBoard(0)
	ctx := context.Background()

	_, err := b.Present(ctx, request("r1"))
	require.ErrorIs(t, err, cleaner.ErrPending)

	req, ok := b.Pending("r1")
	require.True(t, ok)
	assert.Equal(t, "units.csv", req.Source)

	_, err = b.Present(ctx, request("r1"))
	require.ErrorIs(t, err, cleaner.ErrPending)

	require.NoError(t, b.Decide("r1", types.DecisionKeep))
	_, ok = b.Pending("r1")
	assert.False(t, ok, "decided reviews are no longer pending")

	d, err := b.Present(ctx, request("r1"))
	require.NoError(t, err)
	assert.Equal(t, types.DecisionKeep, d)
	assert.Zero(t, b.Len())
}

func TestBoard_DecideUnknown(t *testing.T) {
	b := NewBoard(0)
	assert.ErrorIs(t, b.Decide("missing", types.DecisionKeep), ErrUnknownReview)
}

func TestBoard_Expiry(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	b := NewBoard(time.Minute)
	b.now = func() time.Time { return now }
	ctx := context.Background()

	_, err := b.Present(ctx, request("r1"))
	require.ErrorIs(t, err, cleaner.ErrPending)

	now = now.Add(2 * time.Minute)

	assert.ErrorIs(t, b.Decide("r1", types.DecisionKeep), ErrUnknownReview)
	_, ok := b.Pending("r1")
	assert.False(t, ok)

	d, err := b.Present(ctx, request("r1"))
	require.NoError(t, err)
	assert.Equal(t, types.DecisionCancel, d)
}

func TestBoard_Sweep(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	b := NewBoard(time.Minute)
	b.now = func() time.Time { return now }

	var expired []string
	b.OnExpire = func(id string) { expired = append(expired, id) }

	ctx := context.Background()
	_, _ = b.Present(ctx, request("old"))
	_, _ = b.Present(ctx, request("decided"))
	require.NoError(t, b.Decide("decided", types.DecisionDelete))

	now = now.Add(30 * time.Second)
	_, _ = b.Present(ctx, request("fresh"))

	now = now.Add(45 * time.Second)

	assert.Equal(t, 1, b.Sweep())
	assert.Equal(t, []string{"old"}, expired)
	assert.Equal(t, 2, b.Len())
}

func TestBoard_WithPipeline(t *testing.T) {
	b := NewBoard(time.Hour)
	p := &cleaner.Pipeline{Gate: b}

	table := types.NewTable([]string{"Unit"}, [][]string{{"1"}, {"#2"}})
	_, run, err := p.Process(context.Background(), "units.csv", table)
	require.ErrorIs(t, err, cleaner.ErrPending)

	require.NoError(t, b.Decide(run.ID, types.DecisionDelete))

	res, err := p.Resume(context.Background(), run)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Summary.DeletedRows)
	assert.Equal(t, 1, res.Table.Len())
}
