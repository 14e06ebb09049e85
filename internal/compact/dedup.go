package compact

import (
	"sort"
	"strings"
	"unicode/utf8"
)

// Deduplicate drops items whose normalized content is contained in an
// already kept, longer or equal, item. Items are visited longest first so
// the most detailed restatement survives. The result is ordered by length.
func Deduplicate(items []Item) []Item {
	if len(items) == 0 {
		return items
	}

	sorted := make([]Item, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return utf8.RuneCountInString(sorted[i].Content) > utf8.RuneCountInString(sorted[j].Content)
	})

	kept := make([]Item, 0, len(sorted))
	normalizedKept := make([]string, 0, len(sorted))

	for _, item := range sorted {
		normalized := normalize(item.Content)
		dup := false
		for _, existing := range normalizedKept {
			if strings.Contains(existing, normalized) {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		kept = append(kept, item)
		normalizedKept = append(normalizedKept, normalized)
	}

	return kept
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
