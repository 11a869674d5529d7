package tui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jsimonrichard/bible-reading-progress/internal/bible"
	"github.com/jsimonrichard/bible-reading-progress/internal/passage"
)

type formKind int

const (
	recordForm formKind = iota
	manualForm
)

const maxMatches = 8

// Input indexes. Record forms only carry the first two.
const (
	chapterInput = iota
	versesInput
	endVersesInput
	countInput
	dateInput
)

type formAction int

const (
	formNone formAction = iota
	formCancel
	formSubmit
	formConfirmed
)

// submission is a validated form ready to apply.
type submission struct {
	book   string
	ranges []passage.Range
	count  int
	date   time.Time
}

func (s submission) summary() string {
	labels := make([]string, len(s.ranges))
	for i, r := range s.ranges {
		labels[i] = r.Label()
	}
	return s.book + " " + strings.Join(labels, ", ")
}

type form struct {
	kind     formKind
	canon    *bible.Canon
	today    time.Time
	search   textinput.Model
	matches  []string
	selected int
	inputs   []textinput.Model
	labels   []string
	// focus 0 is the book search, i+1 is inputs[i].
	focus   int
	err     string
	pending *submission
}

func newInput(placeholder string) textinput.Model {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.Prompt = "> "
	ti.CharLimit = 64
	return ti
}

func newForm(kind formKind, canon *bible.Canon, today time.Time, book string, chapter int) *form {
	f := &form{kind: kind, canon: canon, today: today}
	f.search = newInput("Search for a book")
	f.search.SetValue(book)

	switch kind {
	case recordForm:
		f.labels = []string{"Chapter (3 or 3-5)", "Verses (1-5, 7; empty for all)"}
		f.inputs = []textinput.Model{newInput("3"), newInput("all")}
	case manualForm:
		f.labels = []string{
			"Chapters (3 or 3-5; empty for book)",
			"Verses in first chapter",
			"Verses in last chapter",
			"Times read",
			"Last read (YYYY-MM-DD)",
		}
		f.inputs = []textinput.Model{
			newInput("whole book"),
			newInput("all"),
			newInput("all"),
			newInput("1"),
			newInput(today.Format(time.DateOnly)),
		}
	}
	if chapter > 0 {
		f.inputs[chapterInput].SetValue(strconv.Itoa(chapter))
	}
	f.refreshMatches()
	if book != "" && len(f.matches) > 0 {
		f.setFocus(1)
	} else {
		f.setFocus(0)
	}
	return f
}

func (f *form) title() string {
	if f.kind == manualForm {
		return "Set reading history"
	}
	return "Record a reading"
}

func (f *form) refreshMatches() {
	f.matches = f.canon.Search(f.search.Value())
	if len(f.matches) > maxMatches {
		f.matches = f.matches[:maxMatches]
	}
	if f.selected >= len(f.matches) {
		f.selected = 0
	}
}

func (f *form) setFocus(i int) tea.Cmd {
	n := len(f.inputs) + 1
	f.focus = ((i % n) + n) % n
	f.search.Blur()
	for j := range f.inputs {
		f.inputs[j].Blur()
	}
	if f.focus == 0 {
		return f.search.Focus()
	}
	return f.inputs[f.focus-1].Focus()
}

// update handles a key press and reports what the dashboard should do next.
func (f *form) update(msg tea.KeyMsg) (formAction, tea.Cmd) {
	if f.pending != nil {
		switch msg.String() {
		case "y", "Y", "enter":
			return formConfirmed, nil
		case "n", "N", "esc":
			f.pending = nil
		}
		return formNone, nil
	}

	switch {
	case key.Matches(msg, formKeyMap.Cancel):
		return formCancel, nil
	case key.Matches(msg, formKeyMap.Next):
		return formNone, f.setFocus(f.focus + 1)
	case key.Matches(msg, formKeyMap.Prev):
		return formNone, f.setFocus(f.focus - 1)
	case key.Matches(msg, formKeyMap.Submit):
		return formSubmit, nil
	}

	if f.focus == 0 {
		switch {
		case key.Matches(msg, formKeyMap.BookUp):
			if f.selected > 0 {
				f.selected--
			}
			return formNone, nil
		case key.Matches(msg, formKeyMap.BookDown):
			if f.selected < len(f.matches)-1 {
				f.selected++
			}
			return formNone, nil
		}
		var cmd tea.Cmd
		before := f.search.Value()
		f.search, cmd = f.search.Update(msg)
		if f.search.Value() != before {
			f.selected = 0
			f.refreshMatches()
		}
		return formNone, cmd
	}

	var cmd tea.Cmd
	f.inputs[f.focus-1], cmd = f.inputs[f.focus-1].Update(msg)
	return formNone, cmd
}

func (f *form) value(i int) string {
	return strings.TrimSpace(f.inputs[i].Value())
}

// parse validates the form. Errors are phrased for display.
func (f *form) parse() (*submission, error) {
	if len(f.matches) == 0 {
		return nil, errors.New("no book matches the search")
	}
	b, ok := f.canon.Book(f.matches[f.selected])
	if !ok {
		return nil, fmt.Errorf("%w: %q", passage.ErrUnknownBook, f.matches[f.selected])
	}
	sub := &submission{book: b.Name, count: 1, date: f.today}

	switch f.kind {
	case recordForm:
		if f.value(chapterInput) == "" {
			return nil, errors.New("chapter is required")
		}
		ranges, err := b.Select(f.value(chapterInput), f.value(versesInput), "")
		if err != nil {
			return nil, err
		}
		sub.ranges = ranges
	case manualForm:
		ranges, err := b.Select(f.value(chapterInput), f.value(versesInput), f.value(endVersesInput))
		if err != nil {
			return nil, err
		}
		sub.ranges = ranges
		if s := f.value(countInput); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n < 1 {
				return nil, fmt.Errorf("%w: times read must be a whole number of at least 1", passage.ErrInvalidCount)
			}
			sub.count = n
		}
		if s := f.value(dateInput); s != "" {
			d, err := time.Parse(time.DateOnly, s)
			if err != nil {
				return nil, fmt.Errorf("%w: use YYYY-MM-DD", passage.ErrInvalidDate)
			}
			if d.After(f.today) {
				return nil, fmt.Errorf("%w: %s is in the future", passage.ErrInvalidDate, s)
			}
			sub.date = d
		}
	}
	return sub, nil
}

func (f *form) view(width int) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(f.title()))
	b.WriteString("\n\n")

	b.WriteString(labelStyle.Render("Book"))
	b.WriteString(f.search.View())
	b.WriteString("\n")
	for i, name := range f.matches {
		if i == f.selected {
			b.WriteString(selectedBookStyle.Render("  ▸ " + name))
		} else {
			b.WriteString(mutedStyle.Render("    " + name))
		}
		b.WriteString("\n")
	}
	if len(f.matches) == 0 {
		b.WriteString(mutedStyle.Render("    no matching book"))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	for i, in := range f.inputs {
		b.WriteString(labelStyle.Render(f.labels[i]))
		b.WriteString(in.View())
		b.WriteString("\n")
	}

	if f.err != "" {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(f.err))
		b.WriteString("\n")
	}

	if f.pending != nil {
		msg := fmt.Sprintf(
			"Overwrite the history of %s\nwith %dx, last read %s?\n\n(y)es / (n)o",
			f.pending.summary(), f.pending.count, f.pending.date.Format(time.DateOnly),
		)
		style := confirmStyle
		if width > 0 {
			style = style.MaxWidth(width)
		}
		b.WriteString("\n")
		b.WriteString(style.Render(msg))
		b.WriteString("\n")
	}
	return b.String()
}
