package report

import (
	"fmt"
	"time"

	"github.com/jsimonrichard/bible-reading-progress/internal/bible"
	"github.com/jsimonrichard/bible-reading-progress/internal/passage"
)

// Shade says how a node compares with its parent's read count.
type Shade int

const (
	// Plain nodes are level with their parent.
	Plain Shade = iota
	// Ahead nodes have been read in full more often than their parent.
	Ahead
	// Partial nodes have some verses (or children) ahead of their parent.
	Partial
)

// Kind is the level of a dashboard node.
type Kind int

const (
	TestamentNode Kind = iota
	BookNode
	ChapterNode
	PassageNode
)

// Node is one row of the dashboard tree.
type Node struct {
	Kind    Kind
	ID      string
	Book    string
	Chapter int
	// Range is set on passage nodes.
	Range passage.Range
	Label string
	// LastRead is the most recent reading below this node, zero if none.
	LastRead time.Time
	Shade    Shade
	// Covered is true once every verse below the node has been read.
	Covered bool
	// Blocked is set on books whose saved progress could not be loaded.
	Blocked  error
	Rollup   passage.Rollup
	Children []*Node
}

// Build assembles the testament > book > chapter > passage tree.
func Build(store *passage.Store, canon *bible.Canon) []*Node {
	var out []*Node
	for _, t := range []bible.Testament{bible.OldTestament, bible.NewTestament} {
		out = append(out, buildTestament(store, t, canon.Testament(t)))
	}
	return out
}

func buildTestament(store *passage.Store, t bible.Testament, books []*bible.Book) *Node {
	node := &Node{Kind: TestamentNode, ID: t.String(), Label: t.String(), Covered: true}
	floor := -1
	var rollups []passage.Rollup
	for _, b := range books {
		r, _ := store.BookRollup(b.Name)
		rollups = append(rollups, r)
		if floor < 0 || r.Count < floor {
			floor = r.Count
		}
	}
	if floor < 0 {
		floor = 0
	}
	for i, b := range books {
		child := buildBook(store, b, rollups[i], floor)
		node.Children = append(node.Children, child)
		node.Covered = node.Covered && child.Covered
		if child.LastRead.After(node.LastRead) {
			node.LastRead = child.LastRead
		}
	}
	return node
}

func buildBook(store *passage.Store, b *bible.Book, r passage.Rollup, testamentFloor int) *Node {
	node := &Node{
		Kind:     BookNode,
		ID:       b.Name,
		Book:     b.Name,
		Label:    BookLabel(b.Name, r),
		LastRead: r.Latest,
		Covered:  r.Covered,
		Rollup:   r,
		Blocked:  store.Blocked(b.Name),
	}
	if node.Blocked != nil {
		node.Label = b.Name + " (saved progress unreadable)"
	}
	ledger, err := store.Ledger(b.Name)
	if err != nil {
		return node
	}

	ahead, shaded := 0, 0
	for ch := 1; ch <= b.Chapters(); ch++ {
		child := buildChapter(b, ledger, ch, r.Count)
		node.Children = append(node.Children, child)
		switch child.Shade {
		case Ahead:
			ahead++
			shaded++
		case Partial:
			shaded++
		}
	}
	switch {
	case ahead == len(node.Children):
		node.Shade = Ahead
	case shaded > 0:
		node.Shade = Partial
	case r.Count > testamentFloor:
		node.Shade = Ahead
	}
	return node
}

func buildChapter(b *bible.Book, ledger *passage.Ledger, ch, bookFloor int) *Node {
	r := ledger.ChapterRollup(ch)
	node := &Node{
		Kind:     ChapterNode,
		ID:       fmt.Sprintf("%s %d", b.Name, ch),
		Book:     b.Name,
		Chapter:  ch,
		Label:    ChapterLabel(ch, r),
		LastRead: r.Latest,
		Covered:  r.Covered,
		Rollup:   r,
		Shade:    chapterShade(r, bookFloor),
	}
	node.Children = passageNodes(b, ledger, ch)
	return node
}

// chapterShade compares a chapter with the whole book's count.
func chapterShade(r passage.Rollup, bookFloor int) Shade {
	switch {
	case r.Count > bookFloor:
		return Ahead
	case r.Ahead > 0:
		return Partial
	default:
		return Plain
	}
}

// passageNodes lists the chapter's records clipped to the chapter, with
// the unread stretches between them.
func passageNodes(b *bible.Book, ledger *passage.Ledger, ch int) []*Node {
	span := passage.ChapterRange(b, ch)
	var out []*Node
	unread := func(from, to passage.Locus) {
		r := passage.Range{Start: from, End: to}
		out = append(out, &Node{
			Kind:    PassageNode,
			ID:      fmt.Sprintf("%s %s", b.Name, r),
			Book:    b.Name,
			Chapter: ch,
			Range:   r,
			Label:   r.Label() + " (unread)",
		})
	}
	next := span.Start
	done := false
	for _, rec := range ledger.Overlapping(span) {
		inside, _ := rec.Range.Intersect(span)
		if next.Before(inside.Start) {
			prev, _ := b.Prev(inside.Start)
			unread(next, prev)
		}
		out = append(out, &Node{
			Kind:     PassageNode,
			ID:       fmt.Sprintf("%s %s", b.Name, inside),
			Book:     b.Name,
			Chapter:  ch,
			Range:    inside,
			Label:    fmt.Sprintf("%s (%dx)", inside.Label(), rec.ReadCount),
			LastRead: rec.LastRead,
			Covered:  true,
		})
		if inside.End == span.End {
			done = true
			break
		}
		next, _ = b.Next(inside.End)
	}
	if !done {
		unread(next, span.End)
	}
	return out
}

// Unread prunes nodes to the chapters not yet read in full, dropping
// books left with no such chapter.
func Unread(nodes []*Node) []*Node {
	var out []*Node
	for _, n := range nodes {
		switch n.Kind {
		case ChapterNode, PassageNode:
			if !n.Covered {
				out = append(out, n)
			}
		default:
			children := Unread(n.Children)
			if len(children) == 0 && n.Kind == BookNode {
				continue
			}
			cp := *n
			cp.Children = children
			out = append(out, &cp)
		}
	}
	return out
}
