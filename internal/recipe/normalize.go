package recipe

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// RawRecipe is a recipe record as it arrives from the API, the local cache or
// the clipper. Field names are inconsistent across sources, so every field
// keeps its raw JSON and Normalize picks between the aliases.
type RawRecipe struct {
	ID           field          `json:"id"`
	Name         field          `json:"name"`
	Title        field          `json:"title"`
	Serves       field          `json:"serves"`
	Servings     field          `json:"servings"`
	Tags         field          `json:"tags"`
	Cuisines     field          `json:"cuisines"`
	Ingredients  RawIngredients `json:"ingredients"`
	Instructions field          `json:"instructions"`
	SourceURL    field          `json:"sourceUrl"`
	URL          field          `json:"url"`
	Image        field          `json:"image"`
	Calories     field          `json:"caloriesPerServing"`
}

// RawIngredient is a single ingredient line before normalization.
type RawIngredient struct {
	Item    field `json:"item"`
	Name    field `json:"name"`
	Amount  field `json:"amount"`
	Unit    field `json:"unit"`
	Qty     field `json:"qty"`
	Section field `json:"section"`
}

// RawIngredients accepts objects or bare strings ("2 eggs").
type RawIngredients []RawIngredient

func (ri *RawIngredients) UnmarshalJSON(data []byte) error {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		// A non-array ingredients value is treated as no ingredients.
		*ri = nil
		return nil
	}

	out := make(RawIngredients, 0, len(items))
	for _, item := range items {
		trimmed := bytes.TrimSpace(item)
		if len(trimmed) > 0 && trimmed[0] == '"' {
			out = append(out, RawIngredient{Name: field{raw: trimmed, present: true}})
			continue
		}
		var ing RawIngredient
		if err := json.Unmarshal(trimmed, &ing); err != nil {
			out = append(out, RawIngredient{})
			continue
		}
		out = append(out, ing)
	}
	*ri = out
	return nil
}

// Normalize produces the canonical Recipe from a raw record. It never fails:
// missing values fall back to documented defaults.
func Normalize(raw RawRecipe) Recipe {
	r := Recipe{
		ID:           raw.ID.text(),
		Name:         firstText(raw.Name, raw.Title),
		Tags:         firstList(raw.Tags, raw.Cuisines),
		Serves:       normalizeServes(raw.Serves, raw.Servings),
		Instructions: raw.Instructions.joined("\n"),
		SourceURL:    firstText(raw.SourceURL, raw.URL),
		Image:        raw.Image.text(),
		Ingredients:  make([]Ingredient, 0, len(raw.Ingredients)),
	}
	if cal, ok := raw.Calories.number(); ok && cal >= 0 {
		r.CaloriesPerServing = &cal
	}
	for _, ing := range raw.Ingredients {
		r.Ingredients = append(r.Ingredients, NormalizeIngredient(ing))
	}
	return r
}

// NormalizeAll normalizes a list of raw records, preserving order.
func NormalizeAll(raws []RawRecipe) []Recipe {
	out := make([]Recipe, 0, len(raws))
	for _, raw := range raws {
		out = append(out, Normalize(raw))
	}
	return out
}

// NormalizeIngredient resolves the item/name and amount+unit/qty alias groups.
func NormalizeIngredient(raw RawIngredient) Ingredient {
	ing := Ingredient{
		Name:    firstText(raw.Item, raw.Name),
		Section: ParseSection(raw.Section.text()),
	}

	amount, unit := raw.Amount.text(), raw.Unit.text()
	if amount == "" && unit == "" {
		amount = raw.Qty.text()
	}
	ing.Amount = amount
	ing.Unit = unit
	return ing
}

// normalizeServes keeps the legacy defaults of the two alias paths:
// an empty primary "serves" means 4, an empty fallback "servings" means 1.
func normalizeServes(serves, servings field) int {
	if n, ok := serves.count(); ok {
		return n
	}
	if n, ok := servings.count(); ok {
		return n
	}
	if serves.present {
		return DefaultServes
	}
	if servings.present {
		return 1
	}
	return DefaultServes
}

func firstText(fields ...field) string {
	for _, f := range fields {
		if s := f.text(); s != "" {
			return s
		}
	}
	return ""
}

func firstList(fields ...field) []string {
	for _, f := range fields {
		if l := f.list(); len(l) > 0 {
			return l
		}
	}
	return []string{}
}

// field holds a raw JSON value and whether its key appeared at all.
type field struct {
	raw     json.RawMessage
	present bool
}

func (f *field) UnmarshalJSON(data []byte) error {
	f.present = true
	f.raw = append(f.raw[:0], data...)
	return nil
}

// text renders strings as-is (trimmed) and numbers without trailing zeros.
func (f field) text() string {
	if len(f.raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(f.raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	dec := json.NewDecoder(bytes.NewReader(f.raw))
	dec.UseNumber()
	if err := dec.Decode(&n); err == nil {
		if v, err := n.Float64(); err == nil {
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
		return n.String()
	}
	return ""
}

func (f field) number() (float64, bool) {
	s := f.text()
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// count reads a positive integer, accepting forms like "4 people".
func (f field) count() (int, bool) {
	s := f.text()
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		if v, ok := f.number(); ok && v >= 1 {
			return int(v), true
		}
		return 0, false
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// list accepts a JSON array of scalars or a comma separated string.
func (f field) list() []string {
	if len(f.raw) == 0 {
		return nil
	}
	var items []field
	if err := json.Unmarshal(f.raw, &items); err == nil {
		out := make([]string, 0, len(items))
		for _, item := range items {
			if s := item.text(); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	var out []string
	for _, part := range strings.Split(f.text(), ",") {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// joined flattens an array of steps; plain strings are returned unchanged.
func (f field) joined(sep string) string {
	var items []field
	if err := json.Unmarshal(f.raw, &items); err == nil {
		steps := make([]string, 0, len(items))
		for _, item := range items {
			if s := item.text(); s != "" {
				steps = append(steps, s)
			}
		}
		return strings.Join(steps, sep)
	}
	return f.text()
}
