// Package batch cleans a set of files one at a time. Every file yields
// exactly one Entry, whatever happens to it.
package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/nconklindev/unitclean/internal/cleaner"
	"github.com/nconklindev/unitclean/internal/tableio"
	"github.com/nconklindev/unitclean/internal/types"
)

// Outcome tags the result of one file.
type Outcome string

const (
	OutcomeProcessed     Outcome = "processed"
	OutcomeCancelled     Outcome = "cancelled"
	OutcomeMissingColumn Outcome = "missing-column"
	OutcomeFormatError   Outcome = "format-error"
	OutcomeInternalError Outcome = "internal-error"
	// OutcomePending marks a file whose review has not been answered yet.
	OutcomePending Outcome = "pending"
)

// Failed reports whether the outcome is a failure.
func (o Outcome) Failed() bool {
	switch o {
	case OutcomeMissingColumn, OutcomeFormatError, OutcomeInternalError:
		return true
	}
	return false
}

// Entry is the per-file summary.
type Entry struct {
	Input         string        `json:"input"`
	Outcome       Outcome       `json:"outcome"`
	Output        string        `json:"output,omitempty"`
	RemovedOutput string        `json:"removed_output,omitempty"`
	Summary       types.Summary `json:"summary"`
	Error         string        `json:"error,omitempty"`
	RunID         string        `json:"run_id,omitempty"`

	err error
}

// Err returns the error behind a failed entry.
func (e Entry) Err() error {
	return e.err
}

// Runner cleans files through a Pipeline and writes the results.
type Runner struct {
	Pipeline *cleaner.Pipeline
	Read     tableio.Options

	// OutputDir holds the written files; empty means next to each input.
	OutputDir    string
	WriteRemoved bool

	Logger *slog.Logger
}

// Run processes paths in order.
func (r *Runner) Run(ctx context.Context, paths []string) []Entry {
	entries := make([]Entry, 0, len(paths))
	for _, path := range paths {
		entries = append(entries, r.ProcessFile(ctx, path))
	}
	return entries
}

// ProcessFile reads and cleans one file.
func (r *Runner) ProcessFile(ctx context.Context, path string) (entry Entry) {
	defer r.recoverInto(path, &entry)

	table, err := tableio.ReadFile(path, r.Read)
	if err != nil {
		return r.Fail(path, err)
	}

	entry, _ = r.ProcessTable(ctx, path, table)
	return entry
}

// ProcessReader reads a file body whose format is taken from name's
// extension, then cleans it like ProcessTable.
func (r *Runner) ProcessReader(ctx context.Context, name string, rd io.Reader) (entry Entry, run *cleaner.Run) {
	defer r.recoverInto(name, &entry)

	table, err := tableio.Read(rd, filepath.Ext(name), r.Read)
	if err != nil {
		return r.Fail(name, err), nil
	}
	return r.ProcessTable(ctx, name, table)
}

// ProcessTable cleans an already loaded table. name is used for messages and
// to derive output file names. When the review is suspended the entry is
// OutcomePending and the returned run must be handed to Resume later.
func (r *Runner) ProcessTable(ctx context.Context, name string, table *types.Table) (entry Entry, run *cleaner.Run) {
	defer r.recoverInto(name, &entry)

	res, run, err := r.Pipeline.Process(ctx, name, table)
	return r.finish(name, run, res, err), run
}

// Resume continues a suspended run.
func (r *Runner) Resume(ctx context.Context, run *cleaner.Run) (entry Entry) {
	defer r.recoverInto(run.Source, &entry)

	res, err := r.Pipeline.Resume(ctx, run)
	return r.finish(run.Source, run, res, err)
}

func (r *Runner) finish(name string, run *cleaner.Run, res *cleaner.Result, err error) Entry {
	if errors.Is(err, cleaner.ErrPending) {
		entry := Entry{Input: name, Outcome: OutcomePending, RunID: run.ID}
		entry.Summary.FlaggedRows = len(run.Flagged())
		r.logger().Info("file awaiting review", "file", name, "run_id", run.ID)
		return entry
	}
	if err != nil {
		return r.Fail(name, err)
	}

	entry := Entry{Input: name, Summary: res.Summary}
	if run != nil {
		entry.RunID = run.ID
	}

	if res.Cancelled {
		entry.Outcome = OutcomeCancelled
		r.logger().Info("file cancelled", "file", name)
		return entry
	}

	entry.Output = tableio.OutputPath(name, r.OutputDir, tableio.CleanedSuffix)
	if err := tableio.WriteFile(entry.Output, res.Table); err != nil {
		return r.Fail(name, &cleaner.ProcessingError{Source: name, Err: fmt.Errorf("write output: %w", err)})
	}

	if r.WriteRemoved && res.Removed != nil && res.Removed.Len() > 0 {
		entry.RemovedOutput = tableio.OutputPath(name, r.OutputDir, tableio.RemovedSuffix)
		if err := tableio.WriteFile(entry.RemovedOutput, res.Removed); err != nil {
			return r.Fail(name, &cleaner.ProcessingError{Source: name, Err: fmt.Errorf("write removed rows: %w", err)})
		}
	}

	entry.Outcome = OutcomeProcessed
	r.logger().Info("file processed",
		"file", name,
		"output", entry.Output,
		"original_rows", res.Summary.OriginalRows,
		"deleted_rows", res.Summary.DeletedRows,
		"unique_rows", res.Summary.UniqueRows,
	)
	return entry
}

// Fail records err as the outcome for name.
func (r *Runner) Fail(name string, err error) Entry {
	entry := Entry{Input: name, Outcome: Classify(err), err: err}

	var perr *cleaner.ProcessingError
	if entry.Outcome == OutcomeInternalError && !errors.As(err, &perr) {
		entry.err = &cleaner.ProcessingError{Source: name, Err: err}
	}
	entry.Error = entry.err.Error()

	r.logger().Warn("file failed", "file", name, "outcome", string(entry.Outcome), "error", entry.Error)
	return entry
}

func (r *Runner) recoverInto(name string, entry *Entry) {
	if p := recover(); p != nil {
		*entry = r.Fail(name, fmt.Errorf("panic: %v", p))
	}
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

// Classify maps an error to the outcome it represents.
func Classify(err error) Outcome {
	var unsupported *tableio.UnsupportedFormatError
	var missing *cleaner.MissingColumnError
	switch {
	case err == nil:
		return OutcomeProcessed
	case errors.Is(err, cleaner.ErrPending):
		return OutcomePending
	case errors.As(err, &unsupported):
		return OutcomeFormatError
	case errors.As(err, &missing):
		return OutcomeMissingColumn
	}
	return OutcomeInternalError
}

// AnyFailed reports whether at least one entry failed.
func AnyFailed(entries []Entry) bool {
	for _, e := range entries {
		if e.Outcome.Failed() {
			return true
		}
	}
	return false
}

// Message renders an entry the way the report shows it.
func (e Entry) Message() string {
	base := filepath.Base(e.Input)
	switch e.Outcome {
	case OutcomeProcessed:
		msg := fmt.Sprintf("✓ Processed: %s\n", base)
		if e.Summary.DeletedRows > 0 {
			msg += fmt.Sprintf("  Deleted %d rows with special characters.\n", e.Summary.DeletedRows)
		}
		if e.RemovedOutput != "" {
			msg += fmt.Sprintf("  Removed rows saved as: %s\n", e.RemovedOutput)
		}
		msg += fmt.Sprintf("  Saved as: %s\n  Total Unique Units: %d", e.Output, e.Summary.UniqueRows)
		return msg
	case OutcomeCancelled:
		return fmt.Sprintf("• Canceled processing for %s.", base)
	case OutcomePending:
		return fmt.Sprintf("• Waiting for review of %d flagged rows in %s.", e.Summary.FlaggedRows, base)
	case OutcomeMissingColumn:
		return fmt.Sprintf("! No 'Unit' column found in %s.", e.Input)
	case OutcomeFormatError:
		return fmt.Sprintf("✗ Unsupported file %s: %s", e.Input, e.Error)
	}
	return fmt.Sprintf("✗ Error processing %s: %s", e.Input, e.Error)
}
