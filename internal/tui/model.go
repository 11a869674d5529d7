// Package tui is the terminal dashboard: a collapsible testament, book,
// chapter and passage tree with forms for recording readings.
package tui

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jsimonrichard/bible-reading-progress/internal/app"
	"github.com/jsimonrichard/bible-reading-progress/internal/report"
)

// Rows taken by the title, status line and help when sizing the tree.
const chromeHeight = 5

type row struct {
	node   *report.Node
	depth  int
	parent int
}

// Model is the bubbletea model for the dashboard.
type Model struct {
	ctx      context.Context
	app      *app.App
	help     help.Model
	tree     []*report.Node
	rows     []row
	expanded map[string]bool
	unread   bool
	cursor   int
	offset   int
	form     *form
	status   string
	err      error
	width    int
	height   int
}

// New builds the dashboard over a's store. Both testaments start open.
func New(ctx context.Context, a *app.App) Model {
	m := Model{
		ctx:  ctx,
		app:  a,
		help: help.New(),
		expanded: map[string]bool{
			"Old Testament": true,
			"New Testament": true,
		},
	}
	m.refresh()
	return m
}

// Err is the error from the final save on quit.
func (m Model) Err() error {
	return m.err
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.scroll()
		return m, nil

	case tea.KeyMsg:
		if m.form != nil {
			return m.updateForm(msg)
		}
		return m.updateDashboard(msg)
	}
	return m, nil
}

func (m Model) updateDashboard(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	keys := dashboardKeyMap
	switch {
	case key.Matches(msg, keys.Quit):
		m.err = m.app.Save(m.ctx)
		return m, tea.Quit

	case key.Matches(msg, keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}

	case key.Matches(msg, keys.Down):
		if m.cursor < len(m.rows)-1 {
			m.cursor++
		}

	case key.Matches(msg, keys.Expand):
		if n := m.current(); n != nil && len(n.Children) > 0 {
			if m.expanded[n.ID] {
				m.cursor++
			} else {
				m.expanded[n.ID] = true
				m.flatten()
			}
		}

	case key.Matches(msg, keys.Toggle):
		if n := m.current(); n != nil && len(n.Children) > 0 {
			m.expanded[n.ID] = !m.expanded[n.ID]
			m.flatten()
		}

	case key.Matches(msg, keys.Collapse):
		if n := m.current(); n != nil {
			if m.expanded[n.ID] && len(n.Children) > 0 {
				m.expanded[n.ID] = false
				m.flatten()
			} else if p := m.rows[m.cursor].parent; p >= 0 {
				m.cursor = p
			}
		}

	case key.Matches(msg, keys.Record):
		return m.openForm(recordForm)

	case key.Matches(msg, keys.Manual):
		return m.openForm(manualForm)

	case key.Matches(msg, keys.Unread):
		m.unread = !m.unread
		m.refresh()
	}
	m.scroll()
	return m, nil
}

func (m Model) openForm(kind formKind) (tea.Model, tea.Cmd) {
	var book string
	var chapter int
	if n := m.current(); n != nil {
		book, chapter = n.Book, n.Chapter
	}
	m.form = newForm(kind, m.app.Canon, m.app.Store.Today(), book, chapter)
	m.status = ""
	return m, nil
}

func (m Model) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	action, cmd := m.form.update(msg)
	switch action {
	case formCancel:
		m.form = nil
		return m, nil

	case formSubmit:
		sub, err := m.form.parse()
		if err != nil {
			m.form.err = err.Error()
			return m, nil
		}
		m.form.err = ""
		if m.form.kind == manualForm {
			m.form.pending = sub
			return m, nil
		}
		m.apply(sub)
		return m, nil

	case formConfirmed:
		sub := m.form.pending
		m.form.pending = nil
		m.apply(sub)
		return m, nil
	}
	return m, cmd
}

// apply writes a submission through the app. Rejected input keeps the
// form open. A failed save still shows the change, with the error below.
func (m *Model) apply(sub *submission) {
	var err error
	verb := "Recorded"
	switch m.form.kind {
	case recordForm:
		err = m.app.Record(m.ctx, sub.book, sub.ranges)
	case manualForm:
		verb = "Set"
		err = m.app.ManualSet(m.ctx, sub.book, sub.ranges, sub.count, sub.date)
	}
	if err != nil && !errors.Is(err, app.ErrSave) {
		m.form.err = err.Error()
		return
	}
	m.form = nil
	m.err = err
	if err == nil {
		m.status = fmt.Sprintf("%s %s", verb, sub.summary())
	}
	m.expanded[sub.book] = true
	if b, ok := m.app.Canon.Book(sub.book); ok {
		m.expanded[b.Testament.String()] = true
	}
	m.refresh()
	m.selectID(sub.book)
}

func (m *Model) current() *report.Node {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return nil
	}
	return m.rows[m.cursor].node
}

// refresh rebuilds the tree from the store, keeping the cursor on the same
// node where it still exists.
func (m *Model) refresh() {
	m.tree = report.Build(m.app.Store, m.app.Canon)
	if m.unread {
		m.tree = report.Unread(m.tree)
	}
	m.flatten()
}

func (m *Model) flatten() {
	var id string
	if n := m.current(); n != nil {
		id = n.ID
	}
	m.rows = nil
	var walk func(nodes []*report.Node, depth, parent int)
	walk = func(nodes []*report.Node, depth, parent int) {
		for _, n := range nodes {
			m.rows = append(m.rows, row{node: n, depth: depth, parent: parent})
			if m.expanded[n.ID] {
				walk(n.Children, depth+1, len(m.rows)-1)
			}
		}
	}
	walk(m.tree, 0, -1)
	if !m.selectID(id) && m.cursor >= len(m.rows) {
		m.cursor = max(len(m.rows)-1, 0)
	}
	m.scroll()
}

func (m *Model) selectID(id string) bool {
	if id == "" {
		return false
	}
	for i, r := range m.rows {
		if r.node.ID == id {
			m.cursor = i
			m.scroll()
			return true
		}
	}
	return false
}

func (m *Model) bodyHeight() int {
	if m.height == 0 {
		return len(m.rows)
	}
	h := m.height - chromeHeight
	if len(m.app.Store.BlockedBooks()) > 0 {
		h--
	}
	return max(h, 1)
}

func (m *Model) scroll() {
	h := m.bodyHeight()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+h {
		m.offset = m.cursor - h + 1
	}
	if m.offset < 0 {
		m.offset = 0
	}
}

func (m Model) View() string {
	if m.form != nil {
		var b strings.Builder
		b.WriteString(m.form.view(m.width))
		b.WriteString("\n")
		b.WriteString(m.help.View(formKeyMap))
		return b.String()
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Bible Reading Progress"))
	if m.unread {
		b.WriteString(mutedStyle.Render(" (unread only)"))
	}
	b.WriteString("\n")

	if blocked := m.app.Store.BlockedBooks(); len(blocked) > 0 {
		names := make([]string, 0, len(blocked))
		for name := range blocked {
			names = append(names, name)
		}
		slices.Sort(names)
		b.WriteString(errorStyle.Render("Saved progress unreadable, left untouched: " + strings.Join(names, ", ")))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	end := min(m.offset+m.bodyHeight(), len(m.rows))
	for i := m.offset; i < end; i++ {
		b.WriteString(m.renderRow(m.rows[i], i == m.cursor))
		b.WriteString("\n")
	}

	b.WriteString(m.statusLine())
	b.WriteString("\n")
	b.WriteString(m.help.View(dashboardKeyMap))
	return b.String()
}

func (m Model) renderRow(r row, selected bool) string {
	n := r.node
	marker := "  "
	if len(n.Children) > 0 {
		marker = "▸ "
		if m.expanded[n.ID] {
			marker = "▾ "
		}
	}
	label := strings.Repeat("  ", r.depth) + marker + n.Label

	var last string
	if !n.LastRead.IsZero() {
		last = report.TimeAgo(n.LastRead, m.app.Store.Today())
	}
	width := max(m.width, 60)
	pad := max(width-lipgloss.Width(label)-lipgloss.Width(last)-1, 1)
	line := label + strings.Repeat(" ", pad) + last

	style := shadeStyle(n.Shade)
	switch {
	case n.Blocked != nil:
		style = errorStyle
	case n.Kind == report.PassageNode && !n.Covered:
		style = mutedStyle
	}
	if selected {
		style = style.Reverse(true)
	}
	return style.Render(line)
}

func (m Model) statusLine() string {
	if m.err != nil {
		return errorStyle.Render(m.err.Error())
	}
	if m.status != "" {
		return statusStyle.Render(m.status)
	}
	today := m.app.Store.Today()
	lines := report.RecentLines(m.app.Store.Recent(today.AddDate(0, 0, -6)), today)
	if len(lines) == 0 {
		return statusStyle.Render("Nothing read this week")
	}
	return statusStyle.Render("Recent: " + strings.Join(lines[:min(len(lines), 2)], "; "))
}
