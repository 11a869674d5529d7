package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/jsimonrichard/bible-reading-progress/internal/app"
	"github.com/jsimonrichard/bible-reading-progress/internal/passage"
	"github.com/jsimonrichard/bible-reading-progress/internal/report"
)

type statusEntry struct {
	Name       string `json:"name"`
	Progress   string `json:"progress"`
	Count      int    `json:"count"`
	Verses     int    `json:"verses"`
	ReadVerses int    `json:"read_verses"`
	Ahead      int    `json:"ahead"`
	LastRead   string `json:"last_read,omitempty"`
	Blocked    string `json:"blocked,omitempty"`
}

func newStatusCmd() *cobra.Command {
	var (
		asJSON bool
		unread bool
	)

	cmd := &cobra.Command{
		Use:   "status [book]",
		Short: "Show progress per book, or per chapter of one book",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.Open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			tree := report.Build(a.Store, a.Canon)
			if unread {
				tree = report.Unread(tree)
			}

			var (
				title   string
				nodes   []*report.Node
				heading = "Book"
			)
			if len(args) == 1 {
				b, err := a.Canon.Lookup(args[0])
				if err != nil {
					return err
				}
				if err := a.Store.Blocked(b.Name); err != nil {
					return err
				}
				heading = "Chapter"
				if book := findNode(tree, b.Name); book != nil {
					title = book.Label
					nodes = book.Children
				}
			} else {
				for _, t := range tree {
					nodes = append(nodes, t.Children...)
				}
			}

			entries := statusEntries(nodes)
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(entries)
			}

			out := cmd.OutOrStdout()
			warnBlocked(out, a.Store)
			if title != "" {
				fmt.Fprintln(out, title)
			}
			if len(entries) == 0 {
				fmt.Fprintln(out, "Nothing left to read.")
				return nil
			}
			fmt.Fprintln(out, renderTable(heading, entries, a.Store.Today()))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	cmd.Flags().BoolVarP(&unread, "unread", "u", false, "only list what is not yet read in full")

	return cmd
}

func findNode(nodes []*report.Node, id string) *report.Node {
	for _, n := range nodes {
		if n.ID == id {
			return n
		}
		if found := findNode(n.Children, id); found != nil {
			return found
		}
	}
	return nil
}

func statusEntries(nodes []*report.Node) []statusEntry {
	entries := make([]statusEntry, 0, len(nodes))
	for _, n := range nodes {
		e := statusEntry{
			Name:       n.Book,
			Count:      n.Rollup.Count,
			Verses:     n.Rollup.Verses,
			ReadVerses: n.Rollup.ReadVerses,
			Ahead:      n.Rollup.Ahead,
		}
		switch n.Kind {
		case report.ChapterNode:
			e.Name = strconv.Itoa(n.Chapter)
			e.Progress = report.ChapterProgress(n.Rollup)
		default:
			e.Progress = report.BookProgress(n.Rollup)
		}
		if n.Blocked != nil {
			e.Progress = "unreadable"
			e.Blocked = n.Blocked.Error()
		}
		if !n.LastRead.IsZero() {
			e.LastRead = n.LastRead.Format(time.DateOnly)
		}
		entries = append(entries, e)
	}
	return entries
}

func renderTable(heading string, entries []statusEntry, today time.Time) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		Headers(heading, "Progress", "Last read")
	for _, e := range entries {
		last := ""
		if e.LastRead != "" {
			d, _ := time.Parse(time.DateOnly, e.LastRead)
			last = report.TimeAgo(d, today)
		}
		t.Row(e.Name, e.Progress, last)
	}
	return t.Render()
}

func warnBlocked(w io.Writer, store *passage.Store) {
	blocked := store.BlockedBooks()
	names := make([]string, 0, len(blocked))
	for name := range blocked {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		fmt.Fprintf(w, "Warning: saved progress for %s is unreadable and was left untouched: %v\n", name, blocked[name])
	}
}
