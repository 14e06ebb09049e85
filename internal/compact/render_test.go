package compact

import (
	"fmt"
	"strings"
	"testing"
	"time"
)

var renderTime = time.Date(2026, 10, 17, 9, 5, 0, 0, time.UTC)

func itemsOf(n int, prefix string) []Item {
	items := make([]Item, n)
	for i := range items {
		items[i] = Item{Content: fmt.Sprintf("%s %d", prefix, i), Recency: int64(n - i)}
	}
	return items
}

func TestRender_Header(t *testing.T) {
	doc := Render(NewSections(), 180, renderTime)
	want := []string{
		Title,
		"",
		"_Auto-generated by kudzu-context at 2026-10-17 09:05_",
		"",
		NoDataNotice,
	}
	if strings.Join(doc.Lines, "\n") != strings.Join(want, "\n") {
		t.Errorf("unexpected no-data document:\n%s", doc.String())
	}
}

func TestRender_NoDataTrimmed(t *testing.T) {
	doc := Render(NewSections(), 3, renderTime)
	want := []string{Title, "", TruncatedNotice}
	if strings.Join(doc.Lines, "\n") != strings.Join(want, "\n") {
		t.Errorf("unexpected no-data document:\n%s", doc.String())
	}
}

func TestRender_SingleSection(t *testing.T) {
	sections := NewSections()
	sections[KeyFacts] = []Item{
		{Content: "api on port 4000", Recency: 9},
		{Content: "repo at ~/src/kudzu", Recency: 4},
	}

	doc := Render(sections, 180, renderTime)
	want := []string{
		"## Key Facts",
		"",
		"- api on port 4000",
		"- repo at ~/src/kudzu",
		"",
	}
	got := doc.Lines[HeaderLines:]
	if strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Errorf("expected:\n%s\ngot:\n%s", strings.Join(want, "\n"), strings.Join(got, "\n"))
	}
}

func TestRender_SectionOrderFixed(t *testing.T) {
	sections := NewSections()
	sections[RecentDecisions] = itemsOf(1, "decision")
	sections[CurrentState] = itemsOf(1, "state")
	sections[Workflows] = itemsOf(1, "workflow")

	var headings []string
	for _, line := range Render(sections, 180, renderTime).Lines {
		if strings.HasPrefix(line, "## ") {
			headings = append(headings, strings.TrimPrefix(line, "## "))
		}
	}
	want := "Current State,Workflows,Recent Decisions"
	if strings.Join(headings, ",") != want {
		t.Errorf("expected headings %s, got %v", want, headings)
	}
}

func TestRender_EveryActiveSectionHasBullet(t *testing.T) {
	sections := NewSections()
	sections[CurrentState] = itemsOf(40, "state")
	sections[ActiveProjects] = itemsOf(1, "project")
	sections[KeyFacts] = itemsOf(25, "fact")
	sections[Learnings] = itemsOf(2, "learning")

	doc := Render(sections, 180, renderTime)
	if doc.Len() > 180 {
		t.Fatalf("document has %d lines", doc.Len())
	}

	for i, line := range doc.Lines {
		if !strings.HasPrefix(line, "## ") {
			continue
		}
		if i+2 >= doc.Len() || !strings.HasPrefix(doc.Lines[i+2], "- ") {
			t.Errorf("section %q rendered without a bullet", line)
		}
	}
}

func TestRender_OverheadOverflowTrimmed(t *testing.T) {
	sections := NewSections()
	sections[Workflows] = itemsOf(10, "workflow")
	sections[Learnings] = itemsOf(30, "learning")

	// available = 30 - 4 - 4 = 22, shares 22*10/40 = 5 and 22*30/40 = 16.
	// The trailing blank of each section is not reserved, so the full
	// render is 31 lines and the tail is cut.
	doc := Render(sections, 30, renderTime)

	counts := map[string]int{}
	current := ""
	for _, line := range doc.Lines {
		if strings.HasPrefix(line, "## ") {
			current = line
		}
		if strings.HasPrefix(line, "- ") {
			counts[current]++
		}
	}
	if counts["## Workflows"] != 5 || counts["## Learnings"] != 15 {
		t.Errorf("unexpected bullet counts: %v", counts)
	}
	if doc.Len() != 30 {
		t.Errorf("expected 30 lines, got %d", doc.Len())
	}
	if doc.Lines[doc.Len()-1] != TruncatedNotice {
		t.Errorf("expected truncation notice, got %q", doc.Lines[doc.Len()-1])
	}
}

func TestRender_Truncated(t *testing.T) {
	sections := NewSections()
	sections[CurrentState] = itemsOf(300, "state")

	doc := Render(sections, 20, renderTime)
	if doc.Len() != 20 {
		t.Fatalf("expected exactly 20 lines, got %d", doc.Len())
	}
	if doc.Lines[19] != TruncatedNotice {
		t.Errorf("expected truncation notice last, got %q", doc.Lines[19])
	}
	if doc.Lines[18] != "- state 12" {
		t.Errorf("expected the 13th bullet before the notice, got %q", doc.Lines[18])
	}
}

func TestRender_NeverExceedsBudget(t *testing.T) {
	shapes := [][]int{
		{1, 0, 0, 0, 0, 0},
		{1, 1, 1, 1, 1, 1},
		{50, 50, 50, 50, 50, 50},
		{300, 1, 0, 2, 0, 90},
		{0, 0, 7, 0, 0, 0},
		{0, 0, 0, 0, 0, 0},
	}

	for _, shape := range shapes {
		sections := NewSections()
		for i, n := range shape {
			sections[Order[i]] = itemsOf(n, string(Order[i]))
		}
		for budget := 1; budget <= 200; budget++ {
			doc := Render(sections, budget, renderTime)
			if doc.Len() > budget {
				t.Fatalf("shape %v budget %d: %d lines", shape, budget, doc.Len())
			}
		}
	}
}

func TestRender_BulletsSingleLinedAndCapped(t *testing.T) {
	sections := NewSections()
	sections[CurrentState] = []Item{
		{Content: "first line\nsecond line", Recency: 2},
		{Content: strings.Repeat("a", 200), Recency: 1},
	}

	doc := Render(sections, 180, renderTime)
	bullets := []string{}
	for _, line := range doc.Lines {
		if strings.HasPrefix(line, "- ") {
			bullets = append(bullets, strings.TrimPrefix(line, "- "))
		}
	}
	if len(bullets) != 2 {
		t.Fatalf("expected 2 bullets, got %d", len(bullets))
	}
	if bullets[0] != "first line second line" {
		t.Errorf("expected line breaks flattened, got %q", bullets[0])
	}
	if len(bullets[1]) != MaxBulletLen || !strings.HasSuffix(bullets[1], "...") {
		t.Errorf("expected %d chars ending in ellipsis, got %d: %q", MaxBulletLen, len(bullets[1]), bullets[1])
	}
}

func TestTruncateLine(t *testing.T) {
	if got := TruncateLine("  short\r\ntext  ", 120); got != "short text" {
		t.Errorf("got %q", got)
	}
	if got := TruncateLine("héllo wörld", 8); got != "héllo..." {
		t.Errorf("expected rune-aware cut, got %q", got)
	}
	if got := TruncateLine("exactly", 7); got != "exactly" {
		t.Errorf("expected untouched, got %q", got)
	}
}

func TestFallback(t *testing.T) {
	doc := Fallback("health check failed", `ssh titan "curl -s http://localhost:4000/health"`, renderTime)

	if doc.Lines[0] != Title {
		t.Errorf("expected title first, got %q", doc.Lines[0])
	}
	if doc.Lines[4] != "**WARNING**: Kudzu is currently unreachable (health check failed)." {
		t.Errorf("unexpected warning line %q", doc.Lines[4])
	}
	for _, line := range doc.Lines {
		if strings.HasPrefix(line, "## ") || strings.HasPrefix(line, "- ") {
			t.Errorf("degraded document must not carry section content, found %q", line)
		}
	}
	if !strings.Contains(doc.String(), `ssh titan "curl -s http://localhost:4000/health"`) {
		t.Error("expected probe command in document")
	}
}

func TestFallback_ReasonCapped(t *testing.T) {
	doc := Fallback(strings.Repeat("r", 300), "probe", renderTime)
	want := "**WARNING**: Kudzu is currently unreachable (" + strings.Repeat("r", MaxReasonLen) + ")."
	if doc.Lines[4] != want {
		t.Errorf("expected reason capped at %d, got %q", MaxReasonLen, doc.Lines[4])
	}
}
