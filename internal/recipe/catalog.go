package recipe

// Catalog is an immutable snapshot of the recipe catalog. A refresh builds a
// new Catalog; an existing one is never patched.
type Catalog struct {
	recipes []Recipe
	byID    map[string]int
}

// NewCatalog builds a snapshot. When two records share an id the later one wins,
// keeping the position of the first.
func NewCatalog(recipes []Recipe) *Catalog {
	c := &Catalog{
		recipes: make([]Recipe, 0, len(recipes)),
		byID:    make(map[string]int, len(recipes)),
	}
	for _, r := range recipes {
		if i, ok := c.byID[r.ID]; ok && r.ID != "" {
			c.recipes[i] = r
			continue
		}
		if r.ID != "" {
			c.byID[r.ID] = len(c.recipes)
		}
		c.recipes = append(c.recipes, r)
	}
	return c
}

// Recipe resolves an id. A nil catalog resolves nothing.
func (c *Catalog) Recipe(id string) (Recipe, bool) {
	if c == nil {
		return Recipe{}, false
	}
	i, ok := c.byID[id]
	if !ok {
		return Recipe{}, false
	}
	return c.recipes[i], true
}

// All returns the recipes in catalog order. The slice is a copy.
func (c *Catalog) All() []Recipe {
	if c == nil {
		return nil
	}
	out := make([]Recipe, len(c.recipes))
	copy(out, c.recipes)
	return out
}

// Len reports the number of recipes.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.recipes)
}

// Tags returns the distinct tags in first-seen order, compared by normalized form.
func (c *Catalog) Tags() []string {
	if c == nil {
		return nil
	}
	seen := make(map[string]struct{})
	var tags []string
	for _, r := range c.recipes {
		for _, t := range r.Tags {
			key := NormalizeToken(t)
			if key == "" {
				continue
			}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			tags = append(tags, t)
		}
	}
	return tags
}

// Merge returns a new catalog holding c's recipes followed by extra ones.
// Extra recipes replace catalog entries with the same id.
func (c *Catalog) Merge(extra []Recipe) *Catalog {
	all := c.All()
	all = append(all, extra...)
	return NewCatalog(all)
}
