//go:build gui

package main

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"fyne.io/fyne/v2"
	fyneapp "fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"github.com/spf13/cobra"

	"github.com/jsimonrichard/bible-reading-progress/internal/app"
	"github.com/jsimonrichard/bible-reading-progress/internal/passage"
	"github.com/jsimonrichard/bible-reading-progress/internal/report"
)

type dashboard struct {
	ctx    context.Context
	app    *app.App
	win    fyne.Window
	tree   []*report.Node
	byID   map[string]*report.Node
	unread bool

	treeWidget *widget.Tree
	status     *widget.Label
	unreadOnly *widget.Check

	// Form entries outlive their dialogs so a rejected submission can be
	// reopened with the input intact.
	book      *widget.SelectEntry
	chapters  *widget.Entry
	verses    *widget.Entry
	endVerses *widget.Entry
	count     *widget.Entry
	date      *widget.Entry
}

func newDashboard(ctx context.Context, a *app.App, w fyne.Window) *dashboard {
	d := &dashboard{ctx: ctx, app: a, win: w}
	d.book = widget.NewSelectEntry(a.Canon.Books())
	d.book.SetPlaceHolder("Search for a book")
	d.book.OnChanged = func(s string) {
		d.book.SetOptions(a.Canon.Search(s))
	}
	d.chapters = widget.NewEntry()
	d.chapters.SetPlaceHolder("3 or 3-5")
	d.verses = widget.NewEntry()
	d.verses.SetPlaceHolder("1-5, 7 (empty for all)")
	d.endVerses = widget.NewEntry()
	d.endVerses.SetPlaceHolder("verses in the last chapter")
	d.count = widget.NewEntry()
	d.count.SetPlaceHolder("1")
	d.date = widget.NewEntry()
	d.date.SetPlaceHolder("YYYY-MM-DD (empty for today)")

	d.status = widget.NewLabel("")
	d.unreadOnly = widget.NewCheck("Unread only", func(on bool) {
		d.unread = on
		d.refresh()
	})
	d.treeWidget = widget.NewTree(d.childUIDs, d.isBranch, d.createRow, d.updateRow)
	d.treeWidget.OnSelected = func(id widget.TreeNodeID) {
		if n := d.byID[id]; n != nil && n.Book != "" {
			d.book.SetText(n.Book)
			if n.Chapter > 0 {
				d.chapters.SetText(strconv.Itoa(n.Chapter))
			}
		}
	}
	d.refresh()
	return d
}

func (d *dashboard) childUIDs(id widget.TreeNodeID) []widget.TreeNodeID {
	nodes := d.tree
	if id != "" {
		n := d.byID[id]
		if n == nil {
			return nil
		}
		nodes = n.Children
	}
	ids := make([]widget.TreeNodeID, len(nodes))
	for i, n := range nodes {
		ids[i] = n.ID
	}
	return ids
}

func (d *dashboard) isBranch(id widget.TreeNodeID) bool {
	if id == "" {
		return true
	}
	n := d.byID[id]
	return n != nil && len(n.Children) > 0
}

func (d *dashboard) createRow(branch bool) fyne.CanvasObject {
	last := widget.NewLabel("")
	last.Alignment = fyne.TextAlignTrailing
	label := canvas.NewText("", theme.Color(theme.ColorNameForeground))
	return container.NewBorder(nil, nil, nil, last, label)
}

func (d *dashboard) updateRow(id widget.TreeNodeID, branch bool, obj fyne.CanvasObject) {
	n := d.byID[id]
	if n == nil {
		return
	}
	row := obj.(*fyne.Container)
	label := row.Objects[0].(*canvas.Text)
	last := row.Objects[1].(*widget.Label)

	label.Text = n.Label
	label.Color = shadeColor(n)
	label.Refresh()
	if n.LastRead.IsZero() {
		last.SetText("")
	} else {
		last.SetText(report.TimeAgo(n.LastRead, d.app.Store.Today()))
	}
}

func shadeColor(n *report.Node) color.Color {
	switch {
	case n.Blocked != nil:
		return theme.Color(theme.ColorNameError)
	case n.Kind == report.PassageNode && !n.Covered:
		return theme.Color(theme.ColorNameDisabled)
	case n.Shade == report.Ahead:
		return theme.Color(theme.ColorNameSuccess)
	case n.Shade == report.Partial:
		return theme.Color(theme.ColorNameWarning)
	default:
		return theme.Color(theme.ColorNameForeground)
	}
}

func (d *dashboard) refresh() {
	d.tree = report.Build(d.app.Store, d.app.Canon)
	if d.unread {
		d.tree = report.Unread(d.tree)
	}
	d.byID = make(map[string]*report.Node)
	var index func(nodes []*report.Node)
	index = func(nodes []*report.Node) {
		for _, n := range nodes {
			d.byID[n.ID] = n
			index(n.Children)
		}
	}
	index(d.tree)
	d.treeWidget.Refresh()

	today := d.app.Store.Today()
	lines := report.RecentLines(d.app.Store.Recent(today.AddDate(0, 0, -6)), today)
	if len(lines) == 0 {
		d.status.SetText("Nothing read this week")
	} else {
		d.status.SetText("Recent: " + strings.Join(lines[:min(len(lines), 2)], "; "))
	}
}

func (d *dashboard) content() fyne.CanvasObject {
	top := container.NewVBox()
	if blocked := d.app.Store.BlockedBooks(); len(blocked) > 0 {
		names := make([]string, 0, len(blocked))
		for name := range blocked {
			names = append(names, name)
		}
		slices.Sort(names)
		warn := canvas.NewText("Saved progress unreadable, left untouched: "+strings.Join(names, ", "), theme.Color(theme.ColorNameError))
		top.Add(warn)
	}

	toolbar := container.NewHBox(
		widget.NewButton("Record reading", func() { d.showForm(false) }),
		widget.NewButton("Set history", func() { d.showForm(true) }),
		d.unreadOnly,
	)
	top.Add(toolbar)

	controls := widget.NewLabel("R: record  M: set history  U: unread only  Q: quit")
	controls.Alignment = fyne.TextAlignCenter

	return container.NewBorder(
		top,
		container.NewVBox(d.status, controls),
		nil, nil,
		d.treeWidget,
	)
}

// submission is a validated form.
type submission struct {
	book   string
	ranges []passage.Range
	count  int
	date   time.Time
}

func (d *dashboard) parseForm(manual bool) (*submission, error) {
	b, err := d.app.Canon.Lookup(d.book.Text)
	if err != nil {
		matches := d.app.Canon.Search(d.book.Text)
		if len(matches) == 0 {
			return nil, err
		}
		b, _ = d.app.Canon.Book(matches[0])
	}
	sub := &submission{book: b.Name, count: 1, date: d.app.Store.Today()}
	if !manual {
		if strings.TrimSpace(d.chapters.Text) == "" {
			return nil, errors.New("chapter is required")
		}
		sub.ranges, err = b.Select(d.chapters.Text, d.verses.Text, "")
		return sub, err
	}
	if sub.ranges, err = b.Select(d.chapters.Text, d.verses.Text, d.endVerses.Text); err != nil {
		return nil, err
	}
	if s := strings.TrimSpace(d.count.Text); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("%w: times read must be a whole number of at least 1", passage.ErrInvalidCount)
		}
		sub.count = n
	}
	if s := strings.TrimSpace(d.date.Text); s != "" {
		t, err := time.Parse(time.DateOnly, s)
		if err != nil {
			return nil, fmt.Errorf("%w: use YYYY-MM-DD", passage.ErrInvalidDate)
		}
		sub.date = t
	}
	return sub, nil
}

func (d *dashboard) showForm(manual bool) {
	title := "Record a reading"
	items := []*widget.FormItem{
		widget.NewFormItem("Book", d.book),
		widget.NewFormItem("Chapters", d.chapters),
		widget.NewFormItem("Verses", d.verses),
	}
	if manual {
		title = "Set reading history"
		items = append(items,
			widget.NewFormItem("Verses in last chapter", d.endVerses),
			widget.NewFormItem("Times read", d.count),
			widget.NewFormItem("Last read", d.date),
		)
	}

	form := dialog.NewForm(title, "Save", "Cancel", items, func(ok bool) {
		if !ok {
			return
		}
		sub, err := d.parseForm(manual)
		if err != nil {
			d.showError(err, manual)
			return
		}
		if !manual {
			d.apply(sub, manual)
			return
		}
		labels := make([]string, len(sub.ranges))
		for i, r := range sub.ranges {
			labels[i] = r.Label()
		}
		msg := fmt.Sprintf("Overwrite the history of %s %s\nwith %dx, last read %s?",
			sub.book, strings.Join(labels, ", "), sub.count, sub.date.Format(time.DateOnly))
		dialog.ShowConfirm("Overwrite history", msg, func(yes bool) {
			if yes {
				d.apply(sub, manual)
			}
		}, d.win)
	}, d.win)
	form.Resize(fyne.NewSize(480, 0))
	form.Show()
}

// showError reports a rejected submission, then reopens the form.
func (d *dashboard) showError(err error, manual bool) {
	e := dialog.NewError(err, d.win)
	e.SetOnClosed(func() { d.showForm(manual) })
	e.Show()
}

func (d *dashboard) apply(sub *submission, manual bool) {
	var err error
	if manual {
		err = d.app.ManualSet(d.ctx, sub.book, sub.ranges, sub.count, sub.date)
	} else {
		err = d.app.Record(d.ctx, sub.book, sub.ranges)
	}
	switch {
	case err == nil:
	case errors.Is(err, app.ErrSave):
		dialog.ShowError(err, d.win)
	default:
		d.showError(err, manual)
		return
	}
	d.verses.SetText("")
	d.endVerses.SetText("")
	d.refresh()
	d.treeWidget.OpenBranch(sub.book)
	d.treeWidget.Select(sub.book)
}

func runGUI(ctx context.Context) error {
	a, err := app.Open(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	fa := fyneapp.New()
	w := fa.NewWindow("Bible Reading Progress")
	d := newDashboard(ctx, a, w)
	w.SetContent(d.content())

	w.Canvas().SetOnTypedRune(func(r rune) {
		switch r {
		case 'r', 'R':
			d.showForm(false)
		case 'm', 'M':
			d.showForm(true)
		case 'u', 'U':
			d.unreadOnly.SetChecked(!d.unreadOnly.Checked)
		case 'q', 'Q':
			w.Close()
		}
	})

	var saveErr error
	w.SetOnClosed(func() {
		saveErr = a.Save(ctx)
	})
	w.Resize(fyne.NewSize(800, 600))
	w.ShowAndRun()
	return saveErr
}

func main() {
	root := &cobra.Command{
		Use:           "brp-gui",
		Short:         "Track Bible reading progress in a window",
		Version:       version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGUI(cmd.Context())
		},
	}
	root.SetVersionTemplate(buildInfo().String() + "\n")
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
