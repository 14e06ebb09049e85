package compact

import (
	"strings"
	"testing"
)

func TestSummary_Empty(t *testing.T) {
	got := Summary(NewSections())
	if len(got) != 1 || got[0] != "[kudzu-context] No traces found" {
		t.Errorf("unexpected summary %v", got)
	}
}

func TestSummary_TopItems(t *testing.T) {
	sections := NewSections()
	sections[KeyFacts] = []Item{{"fact one", 5}, {"fact two", 1}}
	sections[Learnings] = []Item{{"learned", 9}}
	sections[Workflows] = []Item{{"w1", 7}, {"w2", 6}, {"w3", 4}, {"w4", 2}}

	want := []string{
		"[kudzu-context] Loaded 7 traces into 3 sections: Key Facts, Workflows, Learnings",
		"  [Learnings] learned",
		"  [Workflows] w1",
		"  [Workflows] w2",
	}
	got := Summary(sections)
	if strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Errorf("expected:\n%s\ngot:\n%s", strings.Join(want, "\n"), strings.Join(got, "\n"))
	}
}

func TestSummary_LinesCapped(t *testing.T) {
	sections := NewSections()
	sections[CurrentState] = []Item{{strings.Repeat("z", 300), 1}}

	got := Summary(sections)
	line := strings.TrimPrefix(got[1], "  [Current State] ")
	if len(line) != summaryLineLen {
		t.Errorf("expected %d characters, got %d", summaryLineLen, len(line))
	}
}
