package compact

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	// Title heads every document, including the degraded one.
	Title = "# Kudzu Memory Context"

	// NoDataNotice replaces all sections when nothing survived extraction.
	NoDataNotice = "_No traces found in Kudzu._"

	// TruncatedNotice is the last line of a document cut to fit its budget.
	TruncatedNotice = "_... (truncated to fit line budget)_"

	// MaxBulletLen caps a rendered bullet, ellipsis included.
	MaxBulletLen = 120

	// MaxReasonLen caps the reason quoted in a degraded document.
	MaxReasonLen = 80

	ellipsis = "..."
)

// Document is the rendered primer, one entry per line.
type Document struct {
	Lines []string
}

// String joins the document into file contents.
func (d Document) String() string {
	return strings.Join(d.Lines, "\n") + "\n"
}

// Len returns the number of lines.
func (d Document) Len() int {
	return len(d.Lines)
}

func header(at time.Time) []string {
	return []string{
		Title,
		"",
		fmt.Sprintf("_Auto-generated by kudzu-context at %s_", at.Format("2006-01-02 15:04")),
		"",
	}
}

// Render lays the sections out under a hard ceiling of budget lines.
func Render(sections Sections, budget int, at time.Time) Document {
	if budget < 1 {
		budget = 1
	}
	lines := header(at)

	active := sections.Active()
	if len(active) == 0 {
		lines = append(lines, NoDataNotice)
		return Document{Lines: fit(lines, budget)}
	}

	counts := make([]int, len(active))
	for i, name := range active {
		counts[i] = len(sections[name])
	}
	shares := Allocate(counts, Available(budget, len(active)))

	for i, name := range active {
		items := sections[name]
		if len(items) > shares[i] {
			items = items[:shares[i]]
		}

		lines = append(lines, "## "+string(name), "")
		for _, item := range items {
			lines = append(lines, "- "+TruncateLine(item.Content, MaxBulletLen))
		}
		lines = append(lines, "")
	}

	// Floors and the one-line minimum can still overshoot.
	return Document{Lines: fit(lines, budget)}
}

// fit cuts lines to budget-1 and appends the truncation notice when they
// exceed budget.
func fit(lines []string, budget int) []string {
	if len(lines) <= budget {
		return lines
	}
	return append(lines[:budget-1:budget-1], TruncatedNotice)
}

// Fallback renders the degraded document written when the store cannot be
// used. probe is the command an operator can run to check the store.
func Fallback(reason, probe string, at time.Time) Document {
	lines := header(at)
	lines = append(lines,
		fmt.Sprintf("**WARNING**: Kudzu is currently unreachable (%s).", truncateRunes(reason, MaxReasonLen)),
		"Context may be stale or unavailable. Try:",
		"```",
		probe,
		"```",
		"",
	)
	return Document{Lines: lines}
}

// TruncateLine flattens text onto one line and caps it at max characters,
// marking the cut with an ellipsis.
func TruncateLine(text string, max int) string {
	text = strings.ReplaceAll(text, "\r\n", " ")
	text = strings.ReplaceAll(text, "\n", " ")
	text = strings.ReplaceAll(text, "\r", " ")
	text = strings.TrimSpace(text)

	if utf8.RuneCountInString(text) <= max {
		return text
	}
	cut := max - len(ellipsis)
	if cut < 0 {
		cut = 0
	}
	return string([]rune(text)[:cut]) + ellipsis
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}
