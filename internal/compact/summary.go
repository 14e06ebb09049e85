package compact

import (
	"fmt"
	"sort"
	"strings"
)

const (
	summaryPrefix  = "[kudzu-context]"
	summaryTopN    = 3
	summaryLineLen = 90
)

// Summary reports what a run loaded: one line of counts followed by the
// most recent items across sections. It is meant for the hook's stdout.
func Summary(sections Sections) []string {
	active := sections.Active()
	if len(active) == 0 {
		return []string{summaryPrefix + " No traces found"}
	}

	total := 0
	names := make([]string, len(active))
	for i, name := range active {
		total += len(sections[name])
		names[i] = string(name)
	}

	out := []string{fmt.Sprintf("%s Loaded %d traces into %d sections: %s",
		summaryPrefix, total, len(active), strings.Join(names, ", "))}

	type topItem struct {
		section Section
		item    Item
	}
	var pool []topItem
	for _, name := range active {
		items := sections[name]
		if len(items) > summaryTopN {
			items = items[:summaryTopN]
		}
		for _, item := range items {
			pool = append(pool, topItem{section: name, item: item})
		}
	}
	sort.SliceStable(pool, func(i, j int) bool {
		return pool[i].item.Recency > pool[j].item.Recency
	})
	if len(pool) > summaryTopN {
		pool = pool[:summaryTopN]
	}

	for _, top := range pool {
		out = append(out, fmt.Sprintf("  [%s] %s", top.section, TruncateLine(top.item.Content, summaryLineLen)))
	}
	return out
}
