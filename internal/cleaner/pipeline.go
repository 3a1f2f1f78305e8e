package cleaner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/nconklindev/unitclean/internal/types"
)

// Stage is a step in the life of a Run.
type Stage int

const (
	StageLoaded Stage = iota
	StageClassified
	StageAwaitingDecision
	StageDecided
	StageColumnsResolved
	StageDeduplicated
	StageFinalized
	StageCancelled
)

// StageCount is the number of stages a run that needs review passes through
// on its way to StageFinalized.
const StageCount = int(StageFinalized) + 1

var stageNames = map[Stage]string{
	StageLoaded:           "loaded",
	StageClassified:       "classified",
	StageAwaitingDecision: "awaiting-decision",
	StageDecided:          "decided",
	StageColumnsResolved:  "columns-resolved",
	StageDeduplicated:     "deduplicated",
	StageFinalized:        "finalized",
	StageCancelled:        "cancelled",
}

func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Stage(%d)", int(s))
}

// Terminal reports whether no further transition is possible.
func (s Stage) Terminal() bool {
	return s == StageFinalized || s == StageCancelled
}

// Result is the outcome of a finished run. Table is nil when the run was
// cancelled. Removed holds the flagged rows when they were deleted.
type Result struct {
	Source    string
	Table     *types.Table
	Removed   *types.Table
	Summary   types.Summary
	Roles     types.ColumnRoles
	Decision  types.Decision
	Cancelled bool
}

// Run carries one table through cleaning. Its state can be held between
// requests, which is how a review is suspended and resumed.
type Run struct {
	ID     string
	Source string

	stage    Stage
	input    *types.Table
	flagged  []types.FlaggedRow
	decision types.Decision
	observe  func(*Run, Stage)
}

// NewRun starts a run over t. The table is not modified.
func NewRun(source string, t *types.Table) *Run {
	return &Run{
		ID:     uuid.NewString(),
		Source: source,
		stage:  StageLoaded,
		input:  t,
	}
}

// Stage returns the current stage.
func (r *Run) Stage() Stage { return r.stage }

// Flagged returns the rows found by Classify.
func (r *Run) Flagged() []types.FlaggedRow { return r.flagged }

// Headers returns the source table headers.
func (r *Run) Headers() []string { return r.input.Headers }

// Request builds the review request for this run.
func (r *Run) Request() ReviewRequest {
	return ReviewRequest{
		RunID:   r.ID,
		Source:  r.Source,
		Headers: r.input.Headers,
		Flagged: r.flagged,
	}
}

func (r *Run) setStage(s Stage) {
	r.stage = s
	if r.observe != nil {
		r.observe(r, s)
	}
}

// Classify flags rows with disallowed characters. With nothing flagged the
// run moves straight to StageDecided with an implicit keep.
func (r *Run) Classify() {
	if r.stage != StageLoaded {
		return
	}
	r.flagged = FlagRows(r.input)
	r.setStage(StageClassified)
	if len(r.flagged) == 0 {
		r.decision = types.DecisionKeep
		r.setStage(StageDecided)
		return
	}
	r.setStage(StageAwaitingDecision)
}

// Decide applies the operator's answer to a run awaiting one.
func (r *Run) Decide(d types.Decision) error {
	if r.stage != StageAwaitingDecision {
		return fmt.Errorf("run %s: cannot decide in stage %s", r.ID, r.stage)
	}
	switch d {
	case types.DecisionKeep, types.DecisionDelete:
		r.decision = d
		r.setStage(StageDecided)
	case types.DecisionCancel:
		r.decision = d
		r.setStage(StageCancelled)
	default:
		return fmt.Errorf("run %s: unknown decision %v", r.ID, d)
	}
	return nil
}

// Finish resolves columns and duplicates for a decided run, or reports the
// cancellation of a cancelled one.
func (r *Run) Finish() (res *Result, err error) {
	summary := types.Summary{
		OriginalRows: r.input.Len(),
		FlaggedRows:  len(r.flagged),
	}

	switch r.stage {
	case StageCancelled:
		return &Result{Source: r.Source, Summary: summary, Decision: r.decision, Cancelled: true}, nil
	case StageDecided:
	default:
		return nil, fmt.Errorf("run %s: cannot finish in stage %s", r.ID, r.stage)
	}

	defer func() {
		if p := recover(); p != nil {
			res = nil
			err = &ProcessingError{Source: r.Source, Err: fmt.Errorf("panic: %v", p)}
		}
	}()

	table, removed := r.applyDecision()
	if removed != nil {
		summary.DeletedRows = removed.Len()
	}

	roles := ResolveColumns(table.Headers)
	if roles.Unit == "" {
		return nil, &MissingColumnError{Column: types.UnitColumn, Source: r.Source}
	}
	r.setStage(StageColumnsResolved)

	cleaned, err := ResolveDuplicates(table, roles)
	if err != nil {
		var missing *MissingColumnError
		if errors.As(err, &missing) {
			missing.Source = r.Source
			return nil, missing
		}
		return nil, &ProcessingError{Source: r.Source, Err: err}
	}
	r.setStage(StageDeduplicated)

	summary.UniqueRows = cleaned.Len()
	r.setStage(StageFinalized)

	return &Result{
		Source:   r.Source,
		Table:    cleaned,
		Removed:  removed,
		Summary:  summary,
		Roles:    roles,
		Decision: r.decision,
	}, nil
}

func (r *Run) applyDecision() (kept, removed *types.Table) {
	if r.decision != types.DecisionDelete || len(r.flagged) == 0 {
		return r.input, nil
	}
	drop := make(map[int]bool, len(r.flagged))
	removedRows := make([][]string, 0, len(r.flagged))
	for _, f := range r.flagged {
		drop[f.Index] = true
		removedRows = append(removedRows, f.Cells)
	}
	keptRows := make([][]string, 0, r.input.Len()-len(r.flagged))
	for i, row := range r.input.Rows {
		if !drop[i] {
			keptRows = append(keptRows, row)
		}
	}
	return types.NewTable(r.input.Headers, keptRows), types.NewTable(r.input.Headers, removedRows)
}

// Pipeline drives runs through the Gate.
type Pipeline struct {
	Gate   Gate
	Logger *slog.Logger

	// OnStage, when set, is called after every stage transition.
	OnStage func(run *Run, stage Stage)
}

// Process cleans one table. When the gate suspends the review, Process
// returns the run and ErrPending; pass the run to Resume later.
func (p *Pipeline) Process(ctx context.Context, source string, t *types.Table) (*Result, *Run, error) {
	run := NewRun(source, t)
	res, err := p.Resume(ctx, run)
	return res, run, err
}

// Resume continues a run from wherever it stopped.
func (p *Pipeline) Resume(ctx context.Context, run *Run) (*Result, error) {
	run.observe = p.observe
	logger := p.logger().With("run_id", run.ID, "source", run.Source)

	run.Classify()

	if run.Stage() == StageAwaitingDecision {
		if p.Gate == nil {
			return nil, &ProcessingError{Source: run.Source, Err: errors.New("rows need review but no review gate is configured")}
		}
		logger.Debug("presenting flagged rows", "flagged", len(run.Flagged()))
		d, err := p.Gate.Present(ctx, run.Request())
		if errors.Is(err, ErrPending) {
			logger.Debug("review suspended")
			return nil, ErrPending
		}
		if err != nil {
			return nil, &ProcessingError{Source: run.Source, Err: fmt.Errorf("review: %w", err)}
		}
		if err := run.Decide(d); err != nil {
			return nil, &ProcessingError{Source: run.Source, Err: err}
		}
		logger.Info("review decided", "decision", d.String())
	}

	return run.Finish()
}

func (p *Pipeline) observe(run *Run, s Stage) {
	p.logger().Debug("stage", "run_id", run.ID, "source", run.Source, "stage", s.String())
	if p.OnStage != nil {
		p.OnStage(run, s)
	}
}

func (p *Pipeline) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}
