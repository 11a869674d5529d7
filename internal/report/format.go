// Package report turns store queries into the text the dashboard, the
// status command and the GUI show.
package report

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/jsimonrichard/bible-reading-progress/internal/passage"
)

// CountLabel renders a read count with the share of verses that are ahead
// of it: "0%", "2x", "2x + 3/20 verses" or, for 100 verses and more,
// "2x + 15%".
func CountLabel(count, ahead, total int) string {
	if count == 0 {
		return "0%"
	}
	base := strconv.Itoa(count) + "x"
	if ahead == 0 || ahead >= total {
		return base
	}
	if total >= 100 {
		pct := math.Round(float64(ahead) / float64(total) * 100)
		if pct >= 100 {
			return base
		}
		return fmt.Sprintf("%s + %.0f%%", base, pct)
	}
	return fmt.Sprintf("%s + %d/%d verses", base, ahead, total)
}

// BookLabel renders "Genesis (1x + 4%)".
func BookLabel(book string, r passage.Rollup) string {
	return fmt.Sprintf("%s (%s)", book, BookProgress(r))
}

// BookProgress is the book label without the name. A book not yet read in
// full shows the share of its verses read so far.
func BookProgress(r passage.Rollup) string {
	if !r.Covered {
		pct := 0
		if r.Verses > 0 {
			pct = r.ReadVerses * 100 / r.Verses
		}
		return fmt.Sprintf("%d%%", pct)
	}
	return CountLabel(r.Count, r.Ahead, r.Verses)
}

// ChapterLabel renders "Chapter 3 (10 / 31 verses)" until the chapter is
// read in full, then "Chapter 3 (2x (31 verses))" or
// "Chapter 3 (2x + 4/31 verses)".
func ChapterLabel(chapter int, r passage.Rollup) string {
	return fmt.Sprintf("Chapter %d (%s)", chapter, ChapterProgress(r))
}

// ChapterProgress is the parenthesised part of ChapterLabel.
func ChapterProgress(r passage.Rollup) string {
	switch {
	case !r.Covered:
		return fmt.Sprintf("%d / %d verses", r.ReadVerses, r.Verses)
	case r.Ahead == 0:
		return fmt.Sprintf("%dx (%d verses)", r.Count, r.Verses)
	default:
		return CountLabel(r.Count, r.Ahead, r.Verses)
	}
}

// TimeAgo describes date relative to today in words.
func TimeAgo(date, today time.Time) string {
	date, today = passage.Day(date), passage.Day(today)
	days := int(today.Sub(date).Hours() / 24)
	switch {
	case days == 0:
		return "today"
	case days == 1:
		return "yesterday"
	case days >= 2 && days <= 7:
		return fmt.Sprintf("%d days ago", days)
	case days >= 8 && days <= 14:
		return "last week"
	case days >= 15 && days <= 30:
		return fmt.Sprintf("%d weeks ago", days/7)
	case days >= 31 && days <= 60:
		if months := days / 30; months > 1 {
			return fmt.Sprintf("%d months ago", months)
		}
		return "1 month ago"
	default:
		return date.Format(time.DateOnly)
	}
}

// CollapseChapters joins runs of consecutive chapters of the same book:
// Psalms 23, 24, 25 and John 3 become "Psalms 23-25" and "John 3".
func CollapseChapters(refs []passage.ChapterRef) []string {
	var out []string
	for i := 0; i < len(refs); {
		j := i
		for j+1 < len(refs) && refs[j+1].Book == refs[i].Book && refs[j+1].Chapter == refs[j].Chapter+1 {
			j++
		}
		if i == j {
			out = append(out, fmt.Sprintf("%s %d", refs[i].Book, refs[i].Chapter))
		} else {
			out = append(out, fmt.Sprintf("%s %d-%d", refs[i].Book, refs[i].Chapter, refs[j].Chapter))
		}
		i = j + 1
	}
	return out
}

// RecentLines renders one line per day of activity, newest first:
// "yesterday: Genesis 1-3, Psalms 23".
func RecentLines(activity []passage.Activity, today time.Time) []string {
	lines := make([]string, 0, len(activity))
	for _, a := range activity {
		lines = append(lines, TimeAgo(a.Date, today)+": "+strings.Join(CollapseChapters(a.Chapters), ", "))
	}
	return lines
}

// RecordLabel renders one record: "3:1-10  2x  last read yesterday".
func RecordLabel(rec passage.Record, today time.Time) string {
	return fmt.Sprintf("%s  %dx  last read %s", rec.Range.Label(), rec.ReadCount, TimeAgo(rec.LastRead, today))
}
