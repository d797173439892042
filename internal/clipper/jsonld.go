package clipper

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"meal-planner/internal/recipe"
)

// ExtractJSONLD finds the first schema.org Recipe in the page's JSON-LD
// blocks and maps it onto the raw recipe shape the normalizer reads.
func ExtractJSONLD(doc *goquery.Document) (recipe.RawRecipe, bool) {
	var found map[string]any
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var data any
		if err := json.Unmarshal([]byte(s.Text()), &data); err != nil {
			return true
		}
		found = findRecipeNode(data)
		return found == nil
	})
	if found == nil {
		return recipe.RawRecipe{}, false
	}

	data, err := json.Marshal(toRaw(found))
	if err != nil {
		return recipe.RawRecipe{}, false
	}
	var raw recipe.RawRecipe
	if err := json.Unmarshal(data, &raw); err != nil {
		return recipe.RawRecipe{}, false
	}
	return raw, true
}

// findRecipeNode walks arrays and @graph containers looking for @type Recipe.
func findRecipeNode(v any) map[string]any {
	switch node := v.(type) {
	case []any:
		for _, item := range node {
			if r := findRecipeNode(item); r != nil {
				return r
			}
		}
	case map[string]any:
		if isRecipeType(node["@type"]) {
			return node
		}
		if graph, ok := node["@graph"]; ok {
			return findRecipeNode(graph)
		}
	}
	return nil
}

func isRecipeType(t any) bool {
	switch v := t.(type) {
	case string:
		return strings.EqualFold(v, "Recipe")
	case []any:
		for _, item := range v {
			if isRecipeType(item) {
				return true
			}
		}
	}
	return false
}

func toRaw(node map[string]any) map[string]any {
	raw := map[string]any{
		"name":        node["name"],
		"url":         node["url"],
		"ingredients": node["recipeIngredient"],
	}

	if y := firstScalar(node["recipeYield"]); y != nil {
		raw["serves"] = y
	}
	if steps := instructionSteps(node["recipeInstructions"]); len(steps) > 0 {
		raw["instructions"] = steps
	}
	if img := imageURL(node["image"]); img != "" {
		raw["image"] = img
	}
	if tags := tagList(node); len(tags) > 0 {
		raw["tags"] = tags
	}
	if n, ok := node["nutrition"].(map[string]any); ok {
		if cal := leadingNumber(n["calories"]); cal != "" {
			raw["caloriesPerServing"] = cal
		}
	}
	return raw
}

func firstScalar(v any) any {
	if list, ok := v.([]any); ok {
		if len(list) == 0 {
			return nil
		}
		return list[0]
	}
	return v
}

// instructionSteps flattens strings, HowToStep and HowToSection entries.
func instructionSteps(v any) []string {
	switch node := v.(type) {
	case string:
		if s := strings.TrimSpace(node); s != "" {
			return []string{s}
		}
	case []any:
		var steps []string
		for _, item := range node {
			steps = append(steps, instructionSteps(item)...)
		}
		return steps
	case map[string]any:
		if items, ok := node["itemListElement"]; ok {
			return instructionSteps(items)
		}
		if text, ok := node["text"].(string); ok {
			return instructionSteps(text)
		}
	}
	return nil
}

func imageURL(v any) string {
	switch node := v.(type) {
	case string:
		return node
	case []any:
		for _, item := range node {
			if s := imageURL(item); s != "" {
				return s
			}
		}
	case map[string]any:
		if s, ok := node["url"].(string); ok {
			return s
		}
	}
	return ""
}

// tagList merges cuisine, category and keywords, keeping the first spelling.
func tagList(node map[string]any) []string {
	var tags []string
	seen := make(map[string]struct{})
	add := func(v any) {
		var parts []string
		switch t := v.(type) {
		case string:
			parts = strings.Split(t, ",")
		case []any:
			for _, item := range t {
				if s, ok := item.(string); ok {
					parts = append(parts, s)
				}
			}
		}
		for _, p := range parts {
			p = strings.TrimSpace(p)
			key := recipe.NormalizeToken(p)
			if key == "" {
				continue
			}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			tags = append(tags, p)
		}
	}
	add(node["recipeCuisine"])
	add(node["recipeCategory"])
	add(node["keywords"])
	return tags
}

// leadingNumber pulls "420" out of values like "420 kcal".
func leadingNumber(v any) string {
	switch n := v.(type) {
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64)
	case string:
		s := strings.TrimSpace(n)
		end := 0
		for end < len(s) && (s[end] >= '0' && s[end] <= '9' || s[end] == '.') {
			end++
		}
		return s[:end]
	}
	return ""
}
