package tui

import (
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldvec/internal/domain"
)

type fakePort struct {
	ids  []string
	rows [][]domain.Feature
}

func (f fakePort) DocumentCount() int      { return len(f.ids) }
func (f fakePort) DocumentID(i int) string { return f.ids[i] }
func (f fakePort) RowFeatures(i int) ([]domain.Feature, error) {
	if i >= len(f.rows) {
		return nil, errors.New("out of range")
	}
	return f.rows[i], nil
}

var port = fakePort{
	ids: []string{"d1", "d2"},
	rows: [][]domain.Feature{
		{{Name: "title=hello", Value: 1}, {Name: "body=world", Value: 0.5}},
		{{Name: "title=bye", Value: 2}},
	},
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	return out
}

func TestViewBeforeResize(t *testing.T) {
	assert.Equal(t, "Loading...", New(port, "").View())
}

func TestCursorWraps(t *testing.T) {
	m := update(t, New(port, "2 documents"), tea.WindowSizeMsg{Width: 80, Height: 24})
	assert.Contains(t, m.renderCurrentRow(), "id=d1")

	m = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	assert.Contains(t, m.renderCurrentRow(), "id=d2")

	m = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	assert.Contains(t, m.renderCurrentRow(), "id=d1")

	m = update(t, m, tea.KeyMsg{Type: tea.KeyUp})
	assert.Contains(t, m.renderCurrentRow(), "id=d2")
	assert.Contains(t, m.View(), "2 documents")
}

func TestFilter(t *testing.T) {
	m := New(port, "")
	m.filter = "body"
	row := m.renderCurrentRow()
	assert.Contains(t, row, "1/2 features")
	assert.Contains(t, row, "world")
	assert.NotContains(t, row, "hello")

	m.filter = "nothing"
	assert.Contains(t, m.renderCurrentRow(), "No matching features.")
}

func TestFilterFeatures(t *testing.T) {
	feats := port.rows[0]
	assert.Equal(t, feats, filterFeatures(feats, ""))
	assert.Equal(t, []domain.Feature{{Name: "title=hello", Value: 1}}, filterFeatures(feats, "hell"))
	assert.Empty(t, filterFeatures(feats, "zzz"))
}

func TestEmptyPort(t *testing.T) {
	assert.Equal(t, "No documents.", New(fakePort{}, "").renderCurrentRow())
}
