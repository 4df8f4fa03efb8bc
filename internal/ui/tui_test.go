package ui

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTUIRendererRejectsNonTTY(t *testing.T) {
	_, err := NewTUIRenderer(NewConfig(&bytes.Buffer{}))

	assert.Error(t, err)
}

func TestModelTracksProgress(t *testing.T) {
	m := newIndexingModel("inbox")
	m.styles = NoColorStyles()

	m.Update(progressUpdateMsg{File: "KD_IV.pdf", Processed: 1, Total: 4, Percent: 25, Chunks: 37})

	view := m.View()
	assert.Contains(t, view, "1 / 4 documents")
	assert.Contains(t, view, "37 chunks")
	assert.Contains(t, view, "KD_IV.pdf")
	assert.Contains(t, view, "theoindex • inbox")
}

func TestModelPreparingStateWithoutTotal(t *testing.T) {
	m := newIndexingModel("")
	m.styles = NoColorStyles()

	view := m.View()

	assert.Contains(t, view, "Preparing...")
}

func TestModelCountsErrorsAndWarnings(t *testing.T) {
	m := newIndexingModel("")
	m.styles = NoColorStyles()

	m.Update(errorMsg{File: "a.pdf", Err: errors.New("boom")})
	m.Update(errorMsg{File: "b.pdf", Err: errors.New("empty"), IsWarn: true})
	m.Update(errorMsg{File: "c.pdf", Err: errors.New("boom")})

	view := m.View()
	assert.Contains(t, view, "2 errors")
	assert.Contains(t, view, "1 warnings")
}

func TestModelKeepsOnlyRecentErrors(t *testing.T) {
	m := newIndexingModel("")

	for i := 0; i < maxRecentErrors+3; i++ {
		m.Update(errorMsg{File: "f.pdf", Err: errors.New("x")})
	}

	assert.Len(t, m.recent, maxRecentErrors)
	assert.Equal(t, maxRecentErrors+3, m.errCount)
}

func TestModelQuitsOnComplete(t *testing.T) {
	m := newIndexingModel("")
	m.styles = NoColorStyles()

	_, cmd := m.Update(completeMsg{Files: 2, Chunks: 50, Duration: 3 * time.Second})

	require.NotNil(t, cmd)
	assert.True(t, m.complete)
	view := m.View()
	assert.Contains(t, view, "Indexing Complete")
	assert.Contains(t, view, "50")
}

func TestModelQuitsOnKeypress(t *testing.T) {
	m := newIndexingModel("")

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})

	require.NotNil(t, cmd)
	assert.True(t, m.quitting)
	assert.Equal(t, "Cancelled.\n", m.View())
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "45s", formatDuration(45*time.Second))
	assert.Equal(t, "2m", formatDuration(2*time.Minute))
	assert.Equal(t, "2m 15s", formatDuration(2*time.Minute+15*time.Second))
	assert.Equal(t, "1h 5m", formatDuration(time.Hour+5*time.Minute))
}

func TestTruncatePath(t *testing.T) {
	assert.Equal(t, "short.pdf", truncatePath("short.pdf", 40))

	long := "inbox/systematics/barth/kirchliche_dogmatik/KD_IV_1.pdf"
	got := truncatePath(long, 30)
	assert.LessOrEqual(t, len(got), 30)
	assert.True(t, strings.HasSuffix(got, "KD_IV_1.pdf"))
}
