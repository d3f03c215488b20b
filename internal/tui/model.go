package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"fieldvec/internal/domain"
)

// FeaturePort is the TUI-facing subset of the feature service.
type FeaturePort interface {
	DocumentCount() int
	DocumentID(i int) string
	RowFeatures(i int) ([]domain.Feature, error)
}

// Model is the Bubble Tea model for browsing feature rows.
type Model struct {
	service  FeaturePort
	input    textinput.Model
	viewport viewport.Model
	summary  string
	status   string
	filter   string
	cursor   int
	ready    bool
}

// New creates a new TUI model instance.
func New(service FeaturePort, summary string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Filter features and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{service: service, input: ti, viewport: vp, summary: summary, status: "Loaded. Up/Down to switch documents."}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, rh := rowBoxStyle.GetFrameSize()
		_, fh := filterBoxStyle.GetFrameSize()
		// header + summary, status, spacer
		reserved := 2 + 1 + fh + 1
		vh := max(3, msg.Height-reserved)
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-rh)
		m.viewport.SetContent(m.renderCurrentRow())
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		n := m.service.DocumentCount()
		switch msg.String() {
		case "enter":
			m.filter = strings.ToLower(strings.TrimSpace(m.input.Value()))
			if m.filter == "" {
				m.status = "Showing all features"
			} else {
				m.status = fmt.Sprintf("Filtering on %q", m.filter)
			}
			m.viewport.SetContent(m.renderCurrentRow())
			return m, nil
		case "down":
			if n > 0 {
				m.cursor = (m.cursor + 1) % n
				m.viewport.SetContent(m.renderCurrentRow())
				return m, nil
			}
		case "up":
			if n > 0 {
				m.cursor = (m.cursor - 1 + n) % n
				m.viewport.SetContent(m.renderCurrentRow())
				return m, nil
			}
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the TUI layout and the current document row.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("fieldvec inspect")
	summary := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(m.summary)
	input := filterBoxStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	row := rowBoxStyle.Render(m.viewport.View())
	return header + "\n" + summary + "\n" + row + "\n" + input + "\n" + status
}

func (m Model) renderCurrentRow() string {
	n := m.service.DocumentCount()
	if n == 0 {
		return "No documents."
	}
	feats, err := m.service.RowFeatures(m.cursor)
	if err != nil {
		return "Error: " + err.Error()
	}
	shown := filterFeatures(feats, m.filter)
	title := fmt.Sprintf("Document %d/%d  id=%s  %d/%d features", m.cursor+1, n, m.service.DocumentID(m.cursor), len(shown), len(feats))
	if len(shown) == 0 {
		return title + "\n\nNo matching features."
	}
	width := 0
	for _, f := range shown {
		width = max(width, len(f.Name))
	}
	var b strings.Builder
	b.WriteString(title)
	b.WriteString("\n\n")
	for _, f := range shown {
		pad := strings.Repeat(" ", width-len(f.Name))
		fmt.Fprintf(&b, "%s%s  %.4f\n", highlightMatch(f.Name, m.filter), pad, f.Value)
	}
	return strings.TrimRight(b.String(), "\n")
}

var (
	rowBoxStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	filterBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
)

func filterFeatures(feats []domain.Feature, filter string) []domain.Feature {
	if filter == "" {
		return feats
	}
	var out []domain.Feature
	for _, f := range feats {
		if strings.Contains(strings.ToLower(f.Name), filter) {
			out = append(out, f)
		}
	}
	return out
}

// highlightMatch renders the first case-insensitive occurrence of filter in name.
func highlightMatch(name, filter string) string {
	if filter == "" {
		return name
	}
	i := strings.Index(strings.ToLower(name), filter)
	if i < 0 || len(strings.ToLower(name)) != len(name) {
		return name
	}
	j := i + len(filter)
	return name[:i] + highlightStyle.Render(name[i:j]) + name[j:]
}
