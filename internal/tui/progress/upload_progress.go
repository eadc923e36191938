package progress

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/foxhunt/disdrop/internal/scanner"
	"github.com/foxhunt/disdrop/internal/tui/theme"
	"github.com/foxhunt/disdrop/internal/upload"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

type uploadEventMsg struct {
	event upload.Event
	done  bool
}

const errorBaseLines = 6

// UploadProgressModel displays progress while the engine sends files.
type UploadProgressModel struct {
	engine  *upload.Engine
	result  *scanner.Result
	events  <-chan upload.Event
	summary upload.Summary
	errors  []error

	fatalErr error

	width  int
	height int

	progress progress.Model
	theme    theme.Theme

	ctx    context.Context
	cancel context.CancelFunc

	done bool
}

// NewUploadProgressModel creates a progress model for one engine run.
func NewUploadProgressModel(engine *upload.Engine, result *scanner.Result, th theme.Theme) *UploadProgressModel {
	gradient := th.ProgressGradient()
	if len(gradient) < 2 {
		colors := th.Colors()
		gradient = []string{string(colors.Primary), string(colors.Accent)}
	}
	prog := progress.New(progress.WithGradient(gradient[0], gradient[1]))
	prog.Width = 50

	return &UploadProgressModel{
		engine:   engine,
		result:   result,
		summary:  engine.SummarySnapshot(),
		width:    80,
		height:   12,
		progress: prog,
		theme:    th,
	}
}

// Init starts the upload engine.
func (m *UploadProgressModel) Init() tea.Cmd {
	m.ctx, m.cancel = context.WithCancel(context.Background())
	m.events = m.engine.Start(m.ctx, m.result)
	return m.waitForEvent()
}

func (m *UploadProgressModel) waitForEvent() tea.Cmd {
	if m.events == nil {
		return nil
	}
	return func() tea.Msg {
		evt, ok := <-m.events
		if !ok {
			return uploadEventMsg{done: true}
		}
		return uploadEventMsg{event: evt}
	}
}

// Update processes Bubble Tea messages.
func (m *UploadProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.progress.Width = msg.Width - 4
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		}
	case uploadEventMsg:
		return m.handleUploadEvent(msg)
	case progress.FrameMsg:
		pm, cmd := m.progress.Update(msg)
		m.progress = pm.(progress.Model)
		return m, cmd
	}
	return m, nil
}

func (m *UploadProgressModel) handleUploadEvent(msg uploadEventMsg) (tea.Model, tea.Cmd) {
	if msg.done {
		if m.cancel != nil {
			m.cancel()
			m.cancel = nil
		}
		m.summary = m.engine.SummarySnapshot()
		m.errors = m.engine.Errors()
		m.done = true
		return m, tea.Quit
	}

	m.summary = msg.event.Summary
	if msg.event.Err != nil && !errors.Is(msg.event.Err, context.Canceled) && m.summary.Aborted {
		m.fatalErr = msg.event.Err
	}
	m.errors = m.engine.Errors()

	ratio := 0.0
	if m.summary.TotalMessages > 0 {
		ratio = float64(m.summary.SentMessages) / float64(m.summary.TotalMessages)
	}
	cmd := m.progress.SetPercent(ratio)
	if m.summary.Done || m.summary.Aborted || m.summary.Canceled {
		m.done = true
		return m, tea.Batch(cmd, tea.Quit)
	}
	return m, tea.Batch(cmd, m.waitForEvent())
}

// View renders the progress UI.
func (m *UploadProgressModel) View() string {
	if m.fatalErr != nil && !errors.Is(m.fatalErr, context.Canceled) {
		return fmt.Sprintf("Error: %v\n", m.fatalErr)
	}

	if m.summary.TotalMessages == 0 {
		return "Nothing to upload.\n"
	}

	percent := 100 * m.summary.SentMessages / m.summary.TotalMessages

	headerText := "Uploading Media"
	if m.summary.DryRun {
		headerText = "Upload Plan (dry run)"
	}

	statsLines := []string{
		fmt.Sprintf("Messages: %d/%d", m.summary.SentMessages, m.summary.TotalMessages),
		fmt.Sprintf("Files sent: %d", m.summary.SentFiles),
		fmt.Sprintf("Oversize skipped: %d", m.summary.SkippedOversize),
		fmt.Sprintf("Progress: %d%%", percent),
	}
	if m.summary.ActiveWorkers > 0 {
		statsLines = append(statsLines, fmt.Sprintf("Active Workers: %d/%d", m.summary.ActiveWorkers, m.summary.WorkerLimit))
	}

	errorLines := make([]string, 0, len(m.errors))
	for _, err := range m.errors {
		errorLines = append(errorLines, err.Error())
	}

	statusText := "Uploading... please wait"
	if m.summary.LastItem != "" {
		statusText = runewidth.Truncate(m.summary.LastItem, max(m.width-4, 10), "…")
	}

	sections := []string{
		m.theme.HeaderStyle().Width(m.width).Render(headerText),
		m.progress.View(),
	}

	if stats := m.renderStatsPanel(statsLines, errorLines); stats != "" {
		sections = append(sections, stats)
	}

	status := m.theme.StatusBarStyle().Width(m.width).Render(statusText)
	sections = append(sections, status)

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m *UploadProgressModel) renderStatsPanel(statsLines, errorLines []string) string {
	panel := m.theme.PanelStyle()
	panelWidth := m.width - panel.GetHorizontalFrameSize()
	if panelWidth < 0 {
		panelWidth = 0
	}

	blocks := make([]string, 0, 2)
	if len(statsLines) > 0 {
		blocks = append(blocks, strings.Join(statsLines, "\n"))
	}
	if errBlock := m.renderErrorBlock(errorLines); errBlock != "" {
		blocks = append(blocks, errBlock)
	}

	if len(blocks) == 0 {
		return panel.Width(panelWidth).Render("")
	}

	return panel.Width(panelWidth).Render(strings.Join(blocks, "\n"))
}

func (m *UploadProgressModel) renderErrorBlock(errorLines []string) string {
	if len(errorLines) == 0 {
		return ""
	}

	colors := m.theme.Colors()
	errorStyle := lipgloss.NewStyle().Foreground(colors.Error)

	availableHeight := m.height - errorBaseLines
	maxErrorLines := availableHeight - 1
	if maxErrorLines < 1 {
		maxErrorLines = 1
	}

	errorsToShow := len(errorLines)
	if errorsToShow > maxErrorLines {
		errorsToShow = maxErrorLines
	}

	startIdx := len(errorLines) - errorsToShow
	availableWidth := max(m.width-2, 10)

	lines := make([]string, 0, errorsToShow+2)
	lines = append(lines, fmt.Sprintf("Errors: %d", len(errorLines)))
	for i := startIdx; i < len(errorLines); i++ {
		lines = append(lines, "• "+runewidth.Truncate(errorLines[i], availableWidth, "..."))
	}

	if len(errorLines) > errorsToShow {
		lines = append(lines, fmt.Sprintf("... and %d more", len(errorLines)-errorsToShow))
	}

	return errorStyle.Render(strings.Join(lines, "\n"))
}

// Summary returns the final engine summary once the model is done.
func (m *UploadProgressModel) Summary() upload.Summary {
	return m.summary
}

// Done reports whether the run has finished.
func (m *UploadProgressModel) Done() bool {
	return m.done
}

// Err returns a fatal error encountered during the run.
func (m *UploadProgressModel) Err() error {
	if m.fatalErr != nil && !errors.Is(m.fatalErr, context.Canceled) {
		return m.fatalErr
	}
	return nil
}
