// Package compact turns Kudzu traces into a line-budgeted Markdown primer.
//
// Traces are extracted, categorized into six fixed sections, deduplicated
// by substring containment, ranked by recency and finally rendered under a
// hard line ceiling.
package compact

import (
	"sort"

	"github.com/felixgeelhaar/kudzu-context/internal/trace"
)

// Section is one of the fixed buckets of the rendered document.
type Section string

const (
	CurrentState    Section = "Current State"
	ActiveProjects  Section = "Active Projects"
	KeyFacts        Section = "Key Facts"
	Workflows       Section = "Workflows"
	Learnings       Section = "Learnings"
	RecentDecisions Section = "Recent Decisions"
)

// Order is the rendering order of sections; it never depends on content.
var Order = []Section{
	CurrentState,
	ActiveProjects,
	KeyFacts,
	Workflows,
	Learnings,
	RecentDecisions,
}

// Item is the extracted form of a trace.
type Item struct {
	Content string
	Recency int64
}

// Sections holds the items of every section for a single run.
type Sections map[Section][]Item

// NewSections returns an empty bucket for every section in Order.
func NewSections() Sections {
	s := make(Sections, len(Order))
	for _, name := range Order {
		s[name] = nil
	}
	return s
}

// Active returns the non-empty sections in Order.
func (s Sections) Active() []Section {
	var active []Section
	for _, name := range Order {
		if len(s[name]) > 0 {
			active = append(active, name)
		}
	}
	return active
}

// Total counts items across all sections.
func (s Sections) Total() int {
	n := 0
	for _, items := range s {
		n += len(items)
	}
	return n
}

// Build extracts, categorizes, deduplicates and ranks a batch of traces.
// Traces without usable content are dropped.
func Build(traces []trace.Trace) Sections {
	sections := NewSections()

	for _, t := range traces {
		content := trace.Content(t)
		if !trace.Usable(content) {
			continue
		}
		name := Categorize(t, content)
		sections[name] = append(sections[name], Item{
			Content: content,
			Recency: trace.Recency(t.Timestamp),
		})
	}

	for _, name := range Order {
		items := Deduplicate(sections[name])
		SortByRecency(items)
		sections[name] = items
	}

	return sections
}

// SortByRecency orders items most recent first, keeping ties stable.
func SortByRecency(items []Item) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Recency > items[j].Recency
	})
}
