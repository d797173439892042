package recipe

import "strings"

// DefaultServes is used when a recipe does not say how many people it feeds.
const DefaultServes = 4

// Section is the store section an ingredient is bought from.
type Section string

const (
	SectionUnspecified Section = ""
	SectionProduce     Section = "Produce"
	SectionMeat        Section = "Meat"
	SectionSeafood     Section = "Seafood"
	SectionBakery      Section = "Bakery"
	SectionDairy       Section = "Dairy"
	SectionPantry      Section = "Pantry"
	SectionFrozen      Section = "Frozen"
	SectionDeli        Section = "Deli"
	SectionHousehold   Section = "Household"
)

var sections = []Section{
	SectionProduce,
	SectionMeat,
	SectionSeafood,
	SectionBakery,
	SectionDairy,
	SectionPantry,
	SectionFrozen,
	SectionDeli,
	SectionHousehold,
}

// ParseSection maps free text onto the section enumeration.
// Unknown values are unspecified.
func ParseSection(s string) Section {
	token := NormalizeToken(s)
	for _, sec := range sections {
		if strings.ToLower(string(sec)) == token {
			return sec
		}
	}
	return SectionUnspecified
}

// Ingredient is a single line of a recipe.
type Ingredient struct {
	Name    string  `json:"name"`
	Amount  string  `json:"amount,omitempty"`
	Unit    string  `json:"unit,omitempty"`
	Section Section `json:"section,omitempty"`
}

// Quantity joins amount and unit with a single space. Empty when both are absent.
func (i Ingredient) Quantity() string {
	return strings.TrimSpace(strings.TrimSpace(i.Amount) + " " + strings.TrimSpace(i.Unit))
}

// Recipe is the canonical recipe shape every consumer works with.
type Recipe struct {
	ID                 string       `json:"id"`
	Name               string       `json:"name"`
	Tags               []string     `json:"tags"`
	Serves             int          `json:"serves"`
	Ingredients        []Ingredient `json:"ingredients"`
	Instructions       string       `json:"instructions,omitempty"`
	SourceURL          string       `json:"sourceUrl,omitempty"`
	Image              string       `json:"image,omitempty"`
	CaloriesPerServing *float64     `json:"caloriesPerServing,omitempty"`
}

// NormalizeToken lower-cases ASCII letters and trims surrounding whitespace.
// It is the single matching form used by filters and the shopping list.
func NormalizeToken(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= 'A' && r <= 'Z' {
			return r + ('a' - 'A')
		}
		return r
	}, strings.TrimSpace(s))
}
