package shopping

import "meal-planner/internal/recipe"

// Item is one line of the shopping list. It is derived from the plan and
// never stored.
type Item struct {
	// Key is the normalized ingredient name the line is merged on.
	Key   string `json:"key"`
	Label string `json:"label"`
	// Quantity lists every contributing amount, joined by QuantitySeparator.
	Quantity string         `json:"quantity"`
	Section  recipe.Section `json:"section"`
}

// Group is a run of items sharing a section, as returned by GroupBySection.
type Group struct {
	Section recipe.Section `json:"section"`
	Items   []Item         `json:"items"`
}

// GroupBySection splits a sorted list into consecutive section groups.
func GroupBySection(items []Item) []Group {
	var groups []Group
	for _, it := range items {
		if n := len(groups); n > 0 && groups[n-1].Section == it.Section {
			groups[n-1].Items = append(groups[n-1].Items, it)
			continue
		}
		groups = append(groups, Group{Section: it.Section, Items: []Item{it}})
	}
	return groups
}
