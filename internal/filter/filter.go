// Package filter holds the pure predicates deciding which recipes are offered
// as suggestions and which ingredients are left off the shopping list.
package filter

import (
	"strings"

	"meal-planner/internal/recipe"
)

// IsBlocked reports whether any dislike token is a substring of the recipe
// name, one of its tags or one of its ingredient names. Matching is done on
// normalized forms, so "anise" blocks "Star Anise". An empty set blocks nothing.
func IsBlocked(r recipe.Recipe, dislikes []string) bool {
	tokens := normalizeAll(dislikes)
	if len(tokens) == 0 {
		return false
	}

	fields := make([]string, 0, 1+len(r.Tags)+len(r.Ingredients))
	fields = append(fields, recipe.NormalizeToken(r.Name))
	for _, tag := range r.Tags {
		fields = append(fields, recipe.NormalizeToken(tag))
	}
	for _, ing := range r.Ingredients {
		fields = append(fields, recipe.NormalizeToken(ing.Name))
	}

	for _, token := range tokens {
		for _, f := range fields {
			if strings.Contains(f, token) {
				return true
			}
		}
	}
	return false
}

// IsExcludedFromShopping reports whether name exactly matches a pantry token
// after normalization. "celery salt" is not excluded by "salt".
func IsExcludedFromShopping(name string, pantry []string) bool {
	key := recipe.NormalizeToken(name)
	for _, p := range pantry {
		if recipe.NormalizeToken(p) == key {
			return true
		}
	}
	return false
}

// HasAllTags reports whether the recipe carries every wanted tag, compared
// by normalized form. No wanted tags matches everything.
func HasAllTags(r recipe.Recipe, tags []string) bool {
	have := make(map[string]struct{}, len(r.Tags))
	for _, t := range r.Tags {
		have[recipe.NormalizeToken(t)] = struct{}{}
	}
	for _, want := range normalizeAll(tags) {
		if _, ok := have[want]; !ok {
			return false
		}
	}
	return true
}

// Criteria narrows the catalog down to suggestions.
type Criteria struct {
	Dislikes []string
	Tags     []string
	// Limit caps the result; zero or less means no cap.
	Limit int
}

// Suggest returns the recipes that are not blocked and carry all selected
// tags, in catalog order.
func Suggest(recipes []recipe.Recipe, c Criteria) []recipe.Recipe {
	out := make([]recipe.Recipe, 0)
	for _, r := range recipes {
		if c.Limit > 0 && len(out) >= c.Limit {
			break
		}
		if IsBlocked(r, c.Dislikes) || !HasAllTags(r, c.Tags) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// normalizeAll drops tokens that are empty after normalization. An empty
// token would otherwise be a substring of everything.
func normalizeAll(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if n := recipe.NormalizeToken(t); n != "" {
			out = append(out, n)
		}
	}
	return out
}
