package cli

import (
	"context"
	"fmt"

	"charm.land/bubbles/v2/progress"
	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/lipgloss"

	"github.com/raphaelgruber/ragweb/internal/service"
)

// Theme holds the color scheme for terminal output.
type Theme struct {
	Status     lipgloss.Color
	Success    lipgloss.Color
	Error      lipgloss.Color
	Hint       lipgloss.Color
	ProgressBg lipgloss.Color
}

// defaultTheme provides default colors.
var defaultTheme = Theme{
	Status:     lipgloss.Color("#5FAFD7"), // light blue
	Success:    lipgloss.Color("#00D787"), // green
	Error:      lipgloss.Color("#FF005F"), // red
	Hint:       lipgloss.Color("#6C6C6C"), // dim gray
	ProgressBg: lipgloss.Color("#3A3A3A"), // dark gray
}

// Style functions for dynamic theming
func (t Theme) statusStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Status)
}

func (t Theme) completedStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Success).Bold(true)
}

func (t Theme) errorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Error).Bold(true)
}

func (t Theme) hintStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Hint).Italic(true)
}

// ingestTickMsg reports one completed URL
type ingestTickMsg struct {
	done  int
	total int
	url   string
}

// ingestDoneMsg carries the finished batch
type ingestDoneMsg struct {
	result *service.IngestResult
	err    error
}

// ingestProgressModel is the bubbletea model for ingestion progress.
type ingestProgressModel struct {
	updates  <-chan tea.Msg
	cancel   context.CancelFunc
	progress progress.Model
	theme    Theme

	done     int
	total    int
	current  string
	result   *service.IngestResult
	err      error
	finished bool
	quitting bool
}

// newIngestProgressModel creates a new progress model fed from updates.
func newIngestProgressModel(updates <-chan tea.Msg, total int, cancel context.CancelFunc) ingestProgressModel {
	prog := progress.New(
		progress.WithDefaultBlend(),
		progress.WithWidth(40),
	)

	return ingestProgressModel{
		updates:  updates,
		cancel:   cancel,
		progress: prog,
		theme:    defaultTheme,
		total:    total,
	}
}

// Init starts listening for pipeline updates.
func (m ingestProgressModel) Init() tea.Cmd {
	return tea.Batch(
		waitForUpdate(m.updates),
		m.progress.Init(),
	)
}

// Update handles messages and returns the updated model.
func (m ingestProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			// Stop the pipeline; the final message still arrives.
			m.quitting = true
			m.cancel()
			return m, nil
		}

	case ingestTickMsg:
		m.done = msg.done
		m.total = msg.total
		m.current = msg.url
		return m, waitForUpdate(m.updates)

	case ingestDoneMsg:
		m.finished = true
		m.result = msg.result
		m.err = msg.err
		return m, tea.Quit

	case progress.FrameMsg:
		// Update progress bar animation
		var cmd tea.Cmd
		m.progress, cmd = m.progress.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the progress display.
func (m ingestProgressModel) View() tea.View {
	return tea.NewView(m.renderContent())
}

// renderContent builds the display string.
func (m ingestProgressModel) renderContent() string {
	if m.finished {
		return m.finalView()
	}

	var pct float64
	if m.total > 0 {
		pct = float64(m.done) / float64(m.total)
	}

	status := m.theme.statusStyle().Render("[ingesting]")
	progressBar := m.progress.ViewAs(pct)
	counts := fmt.Sprintf("%d/%d pages", m.done, m.total)
	hint := m.theme.hintStyle().Render("Press Ctrl+C to cancel")

	out := fmt.Sprintf("%s %s %s\n", status, progressBar, counts)
	if m.current != "" {
		out += m.theme.hintStyle().Render(m.current) + "\n"
	}
	return out + hint + "\n"
}

// finalView renders the completion message.
func (m ingestProgressModel) finalView() string {
	if m.quitting {
		return m.theme.hintStyle().Render("\nIngestion cancelled.\n")
	}

	if m.err != nil {
		return m.theme.errorStyle().Render(fmt.Sprintf("\n✗ Ingestion failed: %s\n", m.err))
	}

	if m.result != nil {
		var output string
		output += m.theme.completedStyle().Render("✓ Completed") + "\n\n"
		output += fmt.Sprintf("  Pages fetched:   %d\n", len(m.result.Documents))
		output += fmt.Sprintf("  Pages usable:    %d\n", len(m.result.SucceededURLs))
		output += fmt.Sprintf("  Chunks indexed:  %d\n", m.result.Chunks)
		return output
	}

	return m.theme.completedStyle().Render("✓ Completed\n")
}

// waitForUpdate returns a command that blocks on the next pipeline message.
func waitForUpdate(ch <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return <-ch
	}
}

// runIngestWithProgress runs the ingestion pipeline, rendering an interactive
// progress bar on terminals and plain per-URL lines otherwise.
func runIngestWithProgress(ctx context.Context, svc *service.IngestService, urls []string, interactive bool) (*service.IngestResult, error) {
	if !interactive {
		return svc.IngestURLs(ctx, urls, func(done, total int, url string) {
			fmt.Printf("  [%d/%d] %s\n", done, total, url)
		})
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	updates := make(chan tea.Msg, len(urls)+1)
	go func() {
		result, err := svc.IngestURLs(ctx, urls, func(done, total int, url string) {
			updates <- ingestTickMsg{done: done, total: total, url: url}
		})
		updates <- ingestDoneMsg{result: result, err: err}
	}()

	p := tea.NewProgram(newIngestProgressModel(updates, len(urls), cancel))
	finalModel, err := p.Run()
	if err != nil {
		return nil, fmt.Errorf("progress UI error: %w", err)
	}

	m, ok := finalModel.(ingestProgressModel)
	if !ok {
		return nil, fmt.Errorf("unexpected progress model state")
	}
	if m.quitting {
		return nil, fmt.Errorf("ingestion cancelled")
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}
