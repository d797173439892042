package recipe

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"meal-planner/internal/database"
)

func decodeRaw(t *testing.T, data string) RawRecipe {
	t.Helper()
	var raw RawRecipe
	require.NoError(t, json.Unmarshal([]byte(data), &raw))
	return raw
}

func TestNormalize(t *testing.T) {
	t.Run("canonical field names", func(t *testing.T) {
		r := Normalize(decodeRaw(t, `{
			"id": "r1",
			"name": "Seafood Chowder",
			"serves": 6,
			"tags": ["seafood", "soup"],
			"ingredients": [
				{"name": "Shrimp", "amount": "200", "unit": "g", "section": "seafood"},
				{"name": "Salt"}
			],
			"instructions": "Simmer.",
			"sourceUrl": "https://example.com/chowder",
			"caloriesPerServing": 420
		}`))

		cal := 420.0
		want := Recipe{
			ID:     "r1",
			Name:   "Seafood Chowder",
			Tags:   []string{"seafood", "soup"},
			Serves: 6,
			Ingredients: []Ingredient{
				{Name: "Shrimp", Amount: "200", Unit: "g", Section: SectionSeafood},
				{Name: "Salt"},
			},
			Instructions:       "Simmer.",
			SourceURL:          "https://example.com/chowder",
			CaloriesPerServing: &cal,
		}
		if diff := cmp.Diff(want, r); diff != "" {
			t.Errorf("Normalize() mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("alias fields", func(t *testing.T) {
		r := Normalize(decodeRaw(t, `{
			"id": 17,
			"title": "Pad Thai",
			"cuisines": "thai, noodles",
			"url": "https://example.com/pad-thai",
			"instructions": ["Soak noodles.", "Stir fry."],
			"ingredients": [{"item": "Rice noodles", "qty": "250g"}]
		}`))

		assert.Equal(t, "17", r.ID)
		assert.Equal(t, "Pad Thai", r.Name)
		assert.Equal(t, []string{"thai", "noodles"}, r.Tags)
		assert.Equal(t, "https://example.com/pad-thai", r.SourceURL)
		assert.Equal(t, "Soak noodles.\nStir fry.", r.Instructions)
		require.Len(t, r.Ingredients, 1)
		assert.Equal(t, Ingredient{Name: "Rice noodles", Amount: "250g"}, r.Ingredients[0])
	})

	t.Run("first named alias wins", func(t *testing.T) {
		r := Normalize(decodeRaw(t, `{
			"name": "Name", "title": "Title",
			"tags": ["a"], "cuisines": ["b"],
			"ingredients": [{"item": "Item", "name": "Other", "amount": 2, "unit": "cups", "qty": "ignored"}]
		}`))

		assert.Equal(t, "Name", r.Name)
		assert.Equal(t, []string{"a"}, r.Tags)
		assert.Equal(t, Ingredient{Name: "Item", Amount: "2", Unit: "cups"}, r.Ingredients[0])
	})

	t.Run("empty primary falls through to alias", func(t *testing.T) {
		r := Normalize(decodeRaw(t, `{"name": "  ", "title": "Soup", "tags": [], "cuisines": ["french"]}`))

		assert.Equal(t, "Soup", r.Name)
		assert.Equal(t, []string{"french"}, r.Tags)
	})

	t.Run("numbers render without trailing zeros", func(t *testing.T) {
		r := Normalize(decodeRaw(t, `{"ingredients": [
			{"name": "Flour", "amount": 200.0, "unit": "g"},
			{"name": "Butter", "amount": 0.5, "unit": "cup"}
		]}`))

		assert.Equal(t, "200", r.Ingredients[0].Amount)
		assert.Equal(t, "0.5", r.Ingredients[1].Amount)
	})

	t.Run("bare string ingredients", func(t *testing.T) {
		r := Normalize(decodeRaw(t, `{"ingredients": ["2 eggs", " milk "]}`))

		assert.Equal(t, []Ingredient{{Name: "2 eggs"}, {Name: "milk"}}, r.Ingredients)
	})

	t.Run("malformed ingredients get empty defaults", func(t *testing.T) {
		r := Normalize(decodeRaw(t, `{"ingredients": [{"name": {"nested": true}, "amount": null}, 42, {}]}`))

		require.Len(t, r.Ingredients, 3)
		for _, ing := range r.Ingredients {
			assert.Equal(t, "", ing.Amount)
			assert.Equal(t, "", ing.Unit)
			assert.Equal(t, SectionUnspecified, ing.Section)
		}
		assert.Equal(t, "", r.Ingredients[0].Name)
	})

	t.Run("non-array ingredients", func(t *testing.T) {
		r := Normalize(decodeRaw(t, `{"ingredients": "see website"}`))

		assert.Empty(t, r.Ingredients)
		assert.NotNil(t, r.Ingredients)
	})

	t.Run("missing everything", func(t *testing.T) {
		r := Normalize(RawRecipe{})

		assert.Equal(t, DefaultServes, r.Serves)
		assert.Equal(t, []string{}, r.Tags)
		assert.Nil(t, r.CaloriesPerServing)
	})

	t.Run("negative or unparseable calories are absent", func(t *testing.T) {
		assert.Nil(t, Normalize(decodeRaw(t, `{"caloriesPerServing": -5}`)).CaloriesPerServing)
		assert.Nil(t, Normalize(decodeRaw(t, `{"caloriesPerServing": "kcal n/a"}`)).CaloriesPerServing)

		r := Normalize(decodeRaw(t, `{"caloriesPerServing": "315.5"}`))
		require.NotNil(t, r.CaloriesPerServing)
		assert.Equal(t, 315.5, *r.CaloriesPerServing)
	})
}

func TestNormalizeServes(t *testing.T) {
	testCases := []struct {
		name string
		json string
		want int
	}{
		{name: "serves number", json: `{"serves": 2}`, want: 2},
		{name: "serves string with words", json: `{"serves": "6 people"}`, want: 6},
		{name: "servings fallback", json: `{"servings": "3"}`, want: 3},
		{name: "serves wins over servings", json: `{"serves": 8, "servings": 2}`, want: 8},
		{name: "empty serves falls through to servings", json: `{"serves": "", "servings": 5}`, want: 5},
		{name: "empty serves path defaults to 4", json: `{"serves": ""}`, want: 4},
		{name: "null serves path defaults to 4", json: `{"serves": null}`, want: 4},
		{name: "empty servings path defaults to 1", json: `{"servings": ""}`, want: 1},
		{name: "zero servings defaults to 1", json: `{"servings": 0}`, want: 1},
		{name: "neither key defaults to 4", json: `{}`, want: 4},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Normalize(decodeRaw(t, tc.json)).Serves)
		})
	}
}

func TestNormalizeToken(t *testing.T) {
	assert.Equal(t, "star anise", NormalizeToken("  Star ANISE\t"))
	assert.Equal(t, "", NormalizeToken("   "))
	// Only ASCII letters are folded.
	assert.Equal(t, "jalapeÑo", NormalizeToken("JALAPEÑO"))
}

func TestParseSection(t *testing.T) {
	assert.Equal(t, SectionProduce, ParseSection("produce"))
	assert.Equal(t, SectionHousehold, ParseSection(" HOUSEHOLD "))
	assert.Equal(t, SectionUnspecified, ParseSection("Garden"))
	assert.Equal(t, SectionUnspecified, ParseSection(""))
}

func TestIngredientQuantity(t *testing.T) {
	assert.Equal(t, "200 g", Ingredient{Amount: "200", Unit: "g"}.Quantity())
	assert.Equal(t, "2", Ingredient{Amount: "2"}.Quantity())
	assert.Equal(t, "pinch", Ingredient{Unit: "pinch"}.Quantity())
	assert.Equal(t, "", Ingredient{}.Quantity())
}

func TestCatalog(t *testing.T) {
	recipes := []Recipe{
		{ID: "r1", Name: "Chowder", Tags: []string{"Seafood", "soup"}},
		{ID: "r2", Name: "Tacos", Tags: []string{"mexican", "SEAFOOD"}},
		{ID: "r1", Name: "Chowder v2"},
		{ID: "", Name: "No id"},
	}

	c := NewCatalog(recipes)

	t.Run("later duplicate replaces in place", func(t *testing.T) {
		r, ok := c.Recipe("r1")
		require.True(t, ok)
		assert.Equal(t, "Chowder v2", r.Name)
		assert.Equal(t, 3, c.Len())
		assert.Equal(t, "r1", c.All()[0].ID)
	})

	t.Run("missing id", func(t *testing.T) {
		_, ok := c.Recipe("nope")
		assert.False(t, ok)
		_, ok = c.Recipe("")
		assert.False(t, ok)
	})

	t.Run("tags are distinct by normalized form", func(t *testing.T) {
		cat := NewCatalog(recipes[:2])
		assert.Equal(t, []string{"Seafood", "soup", "mexican"}, cat.Tags())
	})

	t.Run("all returns a copy", func(t *testing.T) {
		all := c.All()
		all[0].Name = "mutated"
		r, _ := c.Recipe("r1")
		assert.Equal(t, "Chowder v2", r.Name)
	})

	t.Run("merge", func(t *testing.T) {
		merged := c.Merge([]Recipe{{ID: "r3", Name: "Imported"}, {ID: "r2", Name: "Tacos v2"}})
		assert.Equal(t, 4, merged.Len())
		r, _ := merged.Recipe("r2")
		assert.Equal(t, "Tacos v2", r.Name)
		assert.Equal(t, 3, c.Len(), "original catalog is untouched")
	})

	t.Run("nil catalog", func(t *testing.T) {
		var nc *Catalog
		_, ok := nc.Recipe("r1")
		assert.False(t, ok)
		assert.Equal(t, 0, nc.Len())
		assert.Nil(t, nc.All())
	})
}

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "test.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRepository(db.SQL, zap.NewNop())
}

func TestRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("snapshot round trip keeps order", func(t *testing.T) {
		repo := newTestRepository(t)
		cal := 310.0
		recipes := []Recipe{
			{ID: "b", Name: "Second", Tags: []string{"x"}, Serves: 2, Ingredients: []Ingredient{{Name: "Egg", Amount: "2"}}, CaloriesPerServing: &cal},
			{ID: "a", Name: "First", Tags: []string{}, Serves: 4, Ingredients: []Ingredient{}},
		}

		require.NoError(t, repo.SaveSnapshot(ctx, recipes))
		got, err := repo.LoadSnapshot(ctx)
		require.NoError(t, err)
		if diff := cmp.Diff(recipes, got); diff != "" {
			t.Errorf("LoadSnapshot() mismatch (-want +got):\n%s", diff)
		}

		count, err := repo.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, count)
	})

	t.Run("snapshot is replaced wholesale", func(t *testing.T) {
		repo := newTestRepository(t)
		require.NoError(t, repo.SaveSnapshot(ctx, []Recipe{{ID: "a"}, {ID: "b"}}))
		require.NoError(t, repo.SaveSnapshot(ctx, []Recipe{{ID: "c"}}))

		got, err := repo.LoadSnapshot(ctx)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "c", got[0].ID)
	})

	t.Run("undecodable rows are skipped", func(t *testing.T) {
		repo := newTestRepository(t)
		require.NoError(t, repo.SaveSnapshot(ctx, []Recipe{{ID: "ok", Name: "Fine"}}))
		_, err := repo.db.Exec("INSERT INTO recipes (position, id, data, updated_at) VALUES (5, 'bad', 'not json', '')")
		require.NoError(t, err)

		got, err := repo.LoadSnapshot(ctx)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "ok", got[0].ID)
	})

	t.Run("imported recipes", func(t *testing.T) {
		repo := newTestRepository(t)

		got, err := repo.GetImported(ctx, "missing")
		require.NoError(t, err)
		assert.Nil(t, got)

		rec := Recipe{ID: "imp-1", Name: "Clipped", SourceURL: "https://example.com/a", Serves: 4}
		require.NoError(t, repo.SaveImported(ctx, rec))
		rec.Name = "Clipped again"
		require.NoError(t, repo.SaveImported(ctx, rec))

		got, err = repo.GetImported(ctx, "imp-1")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "Clipped again", got.Name)

		list, err := repo.ListImported(ctx)
		require.NoError(t, err)
		assert.Len(t, list, 1)

		assert.Error(t, repo.SaveImported(ctx, Recipe{Name: "no id"}))
	})
}
