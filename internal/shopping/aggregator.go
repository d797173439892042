// Package shopping derives the shopping list from the plan.
package shopping

import (
	"sort"
	"strings"

	"meal-planner/internal/filter"
	"meal-planner/internal/planner"
	"meal-planner/internal/recipe"
)

// QuantitySeparator joins the per-occurrence quantities of one item.
const QuantitySeparator = ", "

type accumulator struct {
	label      string
	section    recipe.Section
	quantities []string
}

// BuildList folds every planned recipe through its ingredients into merged
// items. Recipes are resolved against the full catalog, so a meal planned
// before its recipe became disliked still counts. Assignments pointing at
// unknown recipes are skipped, and pantry items never appear.
func BuildList(idx *planner.Index, catalog *recipe.Catalog, pantry []string) []Item {
	acc := make(map[string]*accumulator)

	idx.Each(func(_, _ string, a planner.Assignment) {
		r, ok := catalog.Recipe(a.RecipeID)
		if !ok {
			return
		}
		for _, ing := range r.Ingredients {
			key := recipe.NormalizeToken(ing.Name)
			if key == "" || filter.IsExcludedFromShopping(key, pantry) {
				continue
			}

			e, ok := acc[key]
			if !ok {
				e = &accumulator{label: strings.TrimSpace(ing.Name)}
				acc[key] = e
			}
			if q := ing.Quantity(); q != "" {
				e.quantities = append(e.quantities, q)
			}
			if e.section == recipe.SectionUnspecified {
				e.section = ing.Section
			}
		}
	})

	items := make([]Item, 0, len(acc))
	for key, e := range acc {
		items = append(items, Item{
			Key:      key,
			Label:    e.label,
			Quantity: strings.Join(e.quantities, QuantitySeparator),
			Section:  e.section,
		})
	}
	Sort(items)
	return items
}

// Sort orders items by section name with unspecified last, then by key.
func Sort(items []Item) {
	sort.Slice(items, func(i, j int) bool {
		si, sj := items[i].Section, items[j].Section
		if si != sj {
			if si == recipe.SectionUnspecified {
				return false
			}
			if sj == recipe.SectionUnspecified {
				return true
			}
			return si < sj
		}
		return strings.ToLower(items[i].Key) < strings.ToLower(items[j].Key)
	})
}
