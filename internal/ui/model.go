package ui

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/nconklindev/unitclean/internal/batch"
	"github.com/nconklindev/unitclean/internal/cleaner"
	"github.com/nconklindev/unitclean/internal/review"
	"github.com/nconklindev/unitclean/internal/tableio"
	"github.com/nconklindev/unitclean/internal/types"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// maxCellWidth caps a review table column.
const maxCellWidth = 24

type state int

const (
	stateFilePicker state = iota
	stateProcessing
	stateReview
	stateConfirmDelete
	stateComplete
	stateError
)

// Options configure how picked files are cleaned.
type Options struct {
	Read         tableio.Options
	OutputDir    string
	WriteRemoved bool
	StartDir     string
	Logger       *slog.Logger
}

type Model struct {
	state        state
	opts         Options
	filepicker   filepicker.Model
	selectedFile string
	entries      []batch.Entry
	width        int
	height       int
	progress     progress.Model
	review       table.Model
	prompt       *review.Prompt

	cancel       context.CancelFunc
	progressChan chan float64
	promptChan   <-chan review.Prompt
	resultChan   chan batch.Entry
}

type progressMsg float64

type reviewMsg review.Prompt

type cleanCompleteMsg batch.Entry

func InitialModel(opts Options) Model {
	fp := filepicker.New()
	fp.AllowedTypes = []string{".csv", ".xlsx"}
	fp.CurrentDirectory = opts.StartDir
	if fp.CurrentDirectory == "" {
		fp.CurrentDirectory, _ = os.Getwd()
	}

	// Set filepicker colors to match theme
	fp.Styles.Cursor = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF8C42"))
	fp.Styles.Symlink = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFB84D"))
	fp.Styles.Directory = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFB84D"))
	fp.Styles.File = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF"))
	fp.Styles.Permission = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	fp.Styles.Selected = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF8C42")).Bold(true)
	fp.Styles.FileSize = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))

	prog := progress.New(progress.WithGradient("#FF8C42", "#FF9F5A"))

	return Model{
		state:      stateFilePicker,
		opts:       opts,
		filepicker: fp,
		progress:   prog,
	}
}

// Entries returns one entry per file cleaned during the session.
func (m Model) Entries() []batch.Entry {
	return m.entries
}

func (m Model) Init() tea.Cmd {
	return m.filepicker.Init()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		// Subtract space for title, subtitle, help text, and padding
		height := msg.Height - 14
		if height < 5 {
			height = 5
		}

		m.filepicker.SetHeight(height)
		if m.state == stateReview || m.state == stateConfirmDelete {
			m.review.SetHeight(height)
		}

		return m, nil

	case tea.KeyMsg:
		switch m.state {
		case stateFilePicker:
			switch msg.String() {
			case "ctrl+c", "q":
				return m, tea.Quit
			}

		case stateProcessing:
			if msg.String() == "ctrl+c" {
				return m.quit()
			}

		case stateReview:
			switch msg.String() {
			case "ctrl+c":
				return m.quit()
			case "k":
				return m.answer(types.DecisionKeep)
			case "d":
				m.state = stateConfirmDelete
				return m, nil
			case "c", "esc":
				return m.answer(types.DecisionCancel)
			}
			var cmd tea.Cmd
			m.review, cmd = m.review.Update(msg)
			return m, cmd

		case stateConfirmDelete:
			switch msg.String() {
			case "ctrl+c":
				return m.quit()
			case "y":
				return m.answer(types.DecisionDelete)
			case "n", "esc":
				m.state = stateReview
			}
			return m, nil

		case stateComplete, stateError:
			switch msg.String() {
			case "n":
				m.state = stateFilePicker
				return m, m.filepicker.Init()
			case "ctrl+c", "q", "enter", "esc":
				return m, tea.Quit
			}
		}

	case reviewMsg:
		p := review.Prompt(msg)
		m.prompt = &p
		m.review = newReviewTable(p, m.height)
		m.state = stateReview
		return m, nil

	case cleanCompleteMsg:
		entry := batch.Entry(msg)
		m.entries = append(m.entries, entry)
		m.cancel = nil
		m.prompt = nil
		if entry.Outcome.Failed() {
			m.state = stateError
		} else {
			m.state = stateComplete
		}
		return m, nil

	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		return m, cmd

	case progressMsg:
		if m.state == stateProcessing || m.state == stateReview {
			cmd := m.progress.SetPercent(float64(msg))
			return m, tea.Batch(cmd, m.waitForActivity())
		}
		return m, m.waitForActivity()
	}

	// Handle filepicker updates
	if m.state == stateFilePicker {
		var cmd tea.Cmd
		m.filepicker, cmd = m.filepicker.Update(msg)

		if didSelect, path := m.filepicker.DidSelectFile(msg); didSelect {
			m.selectedFile = path
			return m.cleanFile()
		}

		return m, cmd
	}

	return m, nil
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	if m.cancel != nil {
		m.cancel()
	}
	return m, tea.Quit
}

// answer hands the decision back to the waiting pipeline.
func (m Model) answer(d types.Decision) (tea.Model, tea.Cmd) {
	if m.prompt != nil {
		m.prompt.Answer(d)
		m.prompt = nil
	}
	m.state = stateProcessing
	return m, m.waitForActivity()
}

func (m Model) cleanFile() (Model, tea.Cmd) {
	modal := review.NewModal()
	ctx, cancel := context.WithCancel(context.Background())

	m.cancel = cancel
	m.progressChan = make(chan float64, 16)
	m.promptChan = modal.Prompts()
	m.resultChan = make(chan batch.Entry, 1)
	m.state = stateProcessing

	// Capture for the goroutine
	progressChan := m.progressChan
	resultChan := m.resultChan
	selectedFile := m.selectedFile

	runner := &batch.Runner{
		Pipeline: &cleaner.Pipeline{
			Gate:   modal,
			Logger: m.opts.Logger,
			OnStage: func(_ *cleaner.Run, s cleaner.Stage) {
				select {
				case progressChan <- min(float64(s)/float64(cleaner.StageCount-1), 1):
				default:
				}
			},
		},
		Read:         m.opts.Read,
		OutputDir:    m.opts.OutputDir,
		WriteRemoved: m.opts.WriteRemoved,
		Logger:       m.opts.Logger,
	}

	go func() {
		defer cancel()
		resultChan <- runner.ProcessFile(ctx, selectedFile)
		close(resultChan)
	}()

	return m, tea.Batch(
		m.progress.SetPercent(0),
		m.waitForActivity(),
	)
}

// waitForActivity waits for the next progress update, review prompt or
// result from the cleaning goroutine.
func (m Model) waitForActivity() tea.Cmd {
	progressChan, promptChan, resultChan := m.progressChan, m.promptChan, m.resultChan
	return func() tea.Msg {
		if resultChan == nil {
			return nil
		}

		select {
		case p := <-progressChan:
			return progressMsg(p)
		case prompt := <-promptChan:
			return reviewMsg(prompt)
		case entry, ok := <-resultChan:
			if !ok {
				return nil
			}
			return cleanCompleteMsg(entry)
		}
	}
}

func newReviewTable(p review.Prompt, height int) table.Model {
	widths := make([]int, len(p.Request.Headers))
	for i, h := range p.Request.Headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, f := range p.Request.Flagged {
		for i, cell := range f.Cells {
			if i < len(widths) && lipgloss.Width(cell) > widths[i] {
				widths[i] = lipgloss.Width(cell)
			}
		}
	}

	columns := []table.Column{{Title: "Row", Width: 5}}
	for i, h := range p.Request.Headers {
		columns = append(columns, table.Column{Title: h, Width: min(max(widths[i], 3), maxCellWidth)})
	}

	rows := make([]table.Row, 0, len(p.Request.Flagged))
	for _, f := range p.Request.Flagged {
		// 1-based, after the header line
		row := table.Row{strconv.Itoa(f.Index + 2)}
		rows = append(rows, append(row, f.Cells...))
	}

	tableHeight := height - 14
	if tableHeight < 5 {
		tableHeight = 5
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(tableHeight),
	)
	t.SetStyles(tableStyles())
	return t
}

func (m Model) View() string {
	switch m.state {
	case stateFilePicker:
		return m.viewFilePicker()
	case stateProcessing:
		return m.viewProcessing()
	case stateReview:
		return m.viewReview()
	case stateConfirmDelete:
		return m.viewConfirmDelete()
	case stateComplete:
		return m.viewComplete()
	case stateError:
		return m.viewError()
	}
	return ""
}

func (m Model) viewFilePicker() string {
	var s strings.Builder

	s.WriteString(TitleStyle.Render("🏢 Unit Cleaner"))
	s.WriteString("\n")
	s.WriteString(SubtitleStyle.Render("Select a CSV or XLSX file to clean unit data"))
	s.WriteString("\n\n")
	s.WriteString(m.filepicker.View())
	s.WriteString("\n\n")
	if n := len(m.entries); n > 0 {
		s.WriteString(SubtitleStyle.Render(fmt.Sprintf("%d file(s) cleaned this session", n)))
		s.WriteString("\n")
	}
	s.WriteString(HelpStyle.Render("Press q to quit"))

	return s.String()
}

func (m Model) viewProcessing() string {
	var s strings.Builder

	s.WriteString(TitleStyle.Render("🏢 Processing..."))
	s.WriteString("\n\n")
	s.WriteString(fmt.Sprintf("Cleaning %s...", filepath.Base(m.selectedFile)))
	s.WriteString("\n\n")
	s.WriteString(m.progress.View())

	return BoxStyle.Render(s.String())
}

func (m Model) viewReview() string {
	var s strings.Builder

	s.WriteString(TitleStyle.Render("Special Character Review"))
	s.WriteString("\n")
	if m.prompt != nil {
		s.WriteString(SubtitleStyle.Render(fmt.Sprintf("File: %s • %d flagged row(s)",
			filepath.Base(m.prompt.Request.Source), len(m.prompt.Request.Flagged))))
	}
	s.WriteString("\n")
	s.WriteString(WarningStyle.Render("The following rows contain special characters (e.g., ñ, #, @)."))
	s.WriteString("\n")
	s.WriteString("Choose whether to keep or delete them before proceeding.")
	s.WriteString("\n\n")
	s.WriteString(m.review.View())
	s.WriteString("\n")
	s.WriteString(HelpStyle.Render("↑/↓: scroll • k: keep these rows • d: delete these rows • c: cancel this file"))

	return BoxStyle.Render(s.String())
}

func (m Model) viewConfirmDelete() string {
	var s strings.Builder

	s.WriteString(ErrorStyle.Render("Confirm Deletion"))
	s.WriteString("\n\n")
	if m.prompt != nil {
		s.WriteString(fmt.Sprintf("Are you sure you want to permanently delete these %d rows?", len(m.prompt.Request.Flagged)))
	}
	s.WriteString("\n")
	s.WriteString(HelpStyle.Render("y: delete • n: back to review"))

	return BoxStyle.Render(s.String())
}

func (m Model) lastEntry() batch.Entry {
	if len(m.entries) == 0 {
		return batch.Entry{}
	}
	return m.entries[len(m.entries)-1]
}

func (m Model) viewComplete() string {
	var s strings.Builder
	entry := m.lastEntry()

	if entry.Outcome == batch.OutcomeCancelled {
		s.WriteString(TitleStyle.Render("Canceled"))
		s.WriteString("\n\n")
		s.WriteString(fmt.Sprintf("Canceled processing for %s.\n", filepath.Base(entry.Input)))
		s.WriteString("\n")
		s.WriteString(HelpStyle.Render("n: clean another file • q/enter: exit"))
		return BoxStyle.Render(s.String())
	}

	s.WriteString(TitleStyle.Render("✓ Cleaning Complete!"))
	s.WriteString("\n\n")

	// Truncate paths if they're too long
	maxPathLen := m.width - 20 // Leave room for padding and borders
	if maxPathLen < 30 {
		maxPathLen = 30
	}

	s.WriteString(fmt.Sprintf("Input:  %s\n", truncatePath(entry.Input, maxPathLen)))
	s.WriteString(SuccessStyle.Render(fmt.Sprintf("Output: %s\n", truncatePath(entry.Output, maxPathLen))))
	if entry.RemovedOutput != "" {
		s.WriteString(fmt.Sprintf("Removed rows: %s\n", truncatePath(entry.RemovedOutput, maxPathLen)))
	}
	s.WriteString("\n")
	if entry.Summary.DeletedRows > 0 {
		s.WriteString(fmt.Sprintf("Deleted %d rows with special characters.\n", entry.Summary.DeletedRows))
	}
	s.WriteString(fmt.Sprintf("Rows read: %d\n", entry.Summary.OriginalRows))
	s.WriteString(fmt.Sprintf("Total Unique Units: %d\n", entry.Summary.UniqueRows))
	s.WriteString("\n")
	s.WriteString(HelpStyle.Render("n: clean another file • q/enter: exit"))

	return BoxStyle.Render(s.String())
}

func (m Model) viewError() string {
	var s strings.Builder
	entry := m.lastEntry()

	s.WriteString(ErrorStyle.Render("✗ Error"))
	s.WriteString("\n\n")
	s.WriteString(entry.Message())
	s.WriteString("\n\n")
	s.WriteString(HelpStyle.Render("n: clean another file • q/enter: exit"))

	return BoxStyle.Render(s.String())
}

func truncatePath(path string, maxLen int) string {
	if len(path) > maxLen {
		return "..." + path[len(path)-maxLen+3:]
	}
	return path
}
