package tui

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsimonrichard/bible-reading-progress/internal/app"
	"github.com/jsimonrichard/bible-reading-progress/internal/config"
	"github.com/jsimonrichard/bible-reading-progress/internal/passage"
)

func openApp(t *testing.T) *app.App {
	t.Helper()
	cfg := &config.Config{
		ProgressPath: filepath.Join(t.TempDir(), "reading_progress.yaml"),
		Storage:      config.StorageYAML,
	}
	a, err := app.OpenConfig(context.Background(), cfg, passage.WithClock(func() time.Time {
		return time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	}))
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(m Model, msgs ...tea.Msg) Model {
	for _, msg := range msgs {
		next, _ := m.Update(msg)
		m = next.(Model)
	}
	return m
}

// typeText sends each rune as its own key press.
func typeText(m Model, s string) Model {
	for _, r := range s {
		m = press(m, keyRunes(string(r)))
	}
	return m
}

func TestDashboardNavigation(t *testing.T) {
	m := New(context.Background(), openApp(t))
	require.Len(t, m.rows, 68, "two testaments and every book")
	assert.Equal(t, "Old Testament", m.current().ID)

	m = press(m, tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, "Genesis", m.current().ID)

	m = press(m, tea.KeyMsg{Type: tea.KeyRight})
	assert.Len(t, m.rows, 68+50, "Genesis chapters shown")
	assert.Equal(t, "Genesis", m.current().ID)

	m = press(m, tea.KeyMsg{Type: tea.KeyRight})
	assert.Equal(t, "Genesis 1", m.current().ID)

	m = press(m, tea.KeyMsg{Type: tea.KeyLeft})
	assert.Equal(t, "Genesis", m.current().ID, "left on a closed node moves to its parent")

	m = press(m, tea.KeyMsg{Type: tea.KeyLeft})
	assert.Len(t, m.rows, 68)

	m = press(m, tea.KeyMsg{Type: tea.KeyLeft})
	assert.Equal(t, "Old Testament", m.current().ID)

	m = press(m, tea.KeyMsg{Type: tea.KeySpace})
	assert.Len(t, m.rows, 2+27, "Old Testament closed")
	assert.Contains(t, m.View(), "Bible Reading Progress")
}

func TestRecordForm(t *testing.T) {
	a := openApp(t)
	m := New(context.Background(), a)
	m = press(m, tea.KeyMsg{Type: tea.KeyDown}, keyRunes("r"))
	require.NotNil(t, m.form)
	assert.Equal(t, "Genesis", m.form.matches[m.form.selected])
	assert.Equal(t, 1, m.form.focus, "book prefilled so chapter has focus")

	m = typeText(m, "1")
	m = press(m, tea.KeyMsg{Type: tea.KeyTab})
	m = typeText(m, "1-5")
	m = press(m, tea.KeyMsg{Type: tea.KeyEnter})

	require.Nil(t, m.form)
	assert.Contains(t, m.status, "Genesis 1:1-5")
	r, err := a.Store.ChapterRollup("Genesis", 1)
	require.NoError(t, err)
	assert.Equal(t, 5, r.ReadVerses)

	_, err = os.Stat(a.Config.ProgressPath)
	assert.NoError(t, err, "progress saved after recording")
}

func TestRecordFormSearch(t *testing.T) {
	a := openApp(t)
	m := New(context.Background(), a)
	m = press(m, keyRunes("r"))
	require.NotNil(t, m.form)
	assert.Equal(t, 0, m.form.focus, "no book under the cursor")

	m = typeText(m, "psalm")
	require.NotEmpty(t, m.form.matches)
	assert.Equal(t, "Psalms", m.form.matches[0])

	m = press(m, tea.KeyMsg{Type: tea.KeyTab})
	m = typeText(m, "23")
	m = press(m, tea.KeyMsg{Type: tea.KeyEnter})
	require.Nil(t, m.form)

	r, err := a.Store.ChapterRollup("Psalms", 23)
	require.NoError(t, err)
	assert.True(t, r.Covered)
}

func TestRecordFormKeepsInputOnError(t *testing.T) {
	a := openApp(t)
	m := New(context.Background(), a)
	m = press(m, tea.KeyMsg{Type: tea.KeyDown}, keyRunes("r"))
	m = typeText(m, "99")
	m = press(m, tea.KeyMsg{Type: tea.KeyEnter})

	require.NotNil(t, m.form, "form stays open")
	assert.NotEmpty(t, m.form.err)
	assert.Equal(t, "99", m.form.inputs[chapterInput].Value())
	assert.Contains(t, m.View(), m.form.err)

	m = press(m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Nil(t, m.form)
	_, err := os.Stat(a.Config.ProgressPath)
	assert.True(t, os.IsNotExist(err), "nothing saved")
}

func TestManualFormConfirmation(t *testing.T) {
	a := openApp(t)
	m := New(context.Background(), a)
	m = press(m, tea.KeyMsg{Type: tea.KeyDown}, keyRunes("m"))
	require.NotNil(t, m.form)

	m = typeText(m, "2")
	m = press(m, tea.KeyMsg{Type: tea.KeyTab}, tea.KeyMsg{Type: tea.KeyTab}, tea.KeyMsg{Type: tea.KeyTab})
	m = typeText(m, "3")
	m = press(m, tea.KeyMsg{Type: tea.KeyTab})
	m = typeText(m, "2024-04-01")
	m = press(m, tea.KeyMsg{Type: tea.KeyEnter})

	require.NotNil(t, m.form)
	require.NotNil(t, m.form.pending, "asks before overwriting")
	assert.Contains(t, m.View(), "Overwrite the history of Genesis 2:1-25")

	m = press(m, keyRunes("n"))
	require.NotNil(t, m.form)
	assert.Nil(t, m.form.pending)
	r, err := a.Store.ChapterRollup("Genesis", 2)
	require.NoError(t, err)
	assert.Zero(t, r.ReadVerses, "declined confirmation changes nothing")

	m = press(m, tea.KeyMsg{Type: tea.KeyEnter}, keyRunes("y"))
	assert.Nil(t, m.form)
	r, err = a.Store.ChapterRollup("Genesis", 2)
	require.NoError(t, err)
	assert.Equal(t, 3, r.Count)
	assert.Equal(t, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), r.LastRead)
}

func TestManualFormRejectsFutureDate(t *testing.T) {
	m := New(context.Background(), openApp(t))
	m = press(m, tea.KeyMsg{Type: tea.KeyDown}, keyRunes("m"))
	for range 4 {
		m = press(m, tea.KeyMsg{Type: tea.KeyTab})
	}
	m = typeText(m, "2030-01-01")
	m = press(m, tea.KeyMsg{Type: tea.KeyEnter})

	require.NotNil(t, m.form)
	assert.Nil(t, m.form.pending)
	assert.Contains(t, m.form.err, "future")
}

func TestUnreadToggle(t *testing.T) {
	a := openApp(t)
	obadiah, ok := a.Canon.Book("Obadiah")
	require.True(t, ok)
	require.NoError(t, a.Record(context.Background(), "Obadiah", []passage.Range{passage.BookRange(obadiah)}))

	m := New(context.Background(), a)
	assert.True(t, m.selectID("Obadiah"))

	m = press(m, keyRunes("u"))
	assert.True(t, m.unread)
	assert.False(t, m.selectID("Obadiah"), "read books hidden")
	assert.Contains(t, m.View(), "unread only")

	m = press(m, keyRunes("u"))
	assert.True(t, m.selectID("Obadiah"))
}

func TestQuitSaves(t *testing.T) {
	a := openApp(t)
	m := New(context.Background(), a)
	next, cmd := m.Update(keyRunes("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.NoError(t, next.(Model).Err())

	_, err := os.Stat(a.Config.ProgressPath)
	assert.NoError(t, err)
}

func TestWindowScrolling(t *testing.T) {
	m := New(context.Background(), openApp(t))
	m = press(m, tea.WindowSizeMsg{Width: 80, Height: 15})
	for range 30 {
		m = press(m, tea.KeyMsg{Type: tea.KeyDown})
	}
	assert.Equal(t, 30, m.cursor)
	assert.Equal(t, 30-m.bodyHeight()+1, m.offset)
	assert.Contains(t, m.View(), m.current().Label)
}
