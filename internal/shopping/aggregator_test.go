package shopping

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meal-planner/internal/planner"
	"meal-planner/internal/recipe"
)

func TestBuildList(t *testing.T) {
	t.Run("chowder with salt in the pantry", func(t *testing.T) {
		catalog := recipe.NewCatalog([]recipe.Recipe{{
			ID:   "r1",
			Name: "Seafood Chowder",
			Ingredients: []recipe.Ingredient{
				{Name: "Shrimp", Amount: "200", Unit: "g"},
				{Name: "Salt"},
			},
		}})
		idx := planner.BuildIndex([]planner.Assignment{{Date: "2024-01-01", Slot: "dinner", RecipeID: "r1"}})

		got := BuildList(idx, catalog, []string{"salt"})

		want := []Item{{Key: "shrimp", Label: "Shrimp", Quantity: "200 g", Section: recipe.SectionUnspecified}}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("BuildList() mismatch (-want +got):\n%s", diff)
		}
	})

	catalog := recipe.NewCatalog([]recipe.Recipe{
		{
			ID: "pasta",
			Ingredients: []recipe.Ingredient{
				{Name: "Tomatoes", Amount: "400", Unit: "g"},
				{Name: "Garlic", Amount: "2", Unit: "cloves", Section: recipe.SectionProduce},
				{Name: "Spaghetti", Amount: "500", Unit: "g", Section: recipe.SectionPantry},
				{Name: "Celery salt"},
			},
		},
		{
			ID: "salad",
			Ingredients: []recipe.Ingredient{
				{Name: "tomatoes", Amount: "3", Section: recipe.SectionProduce},
				{Name: "garlic", Section: recipe.SectionDeli},
				{Name: "Feta", Amount: "100", Unit: "g", Section: recipe.SectionDairy},
				{Name: "Salt", Unit: "pinch"},
				{Name: "  "},
			},
		},
	})

	t.Run("merges and sorts", func(t *testing.T) {
		idx := planner.BuildIndex([]planner.Assignment{
			{Date: "2024-03-04", Slot: "dinner", RecipeID: "pasta"},
			{Date: "2024-03-05", Slot: "lunch", RecipeID: "salad"},
		})

		got := BuildList(idx, catalog, []string{"SALT"})

		want := []Item{
			{Key: "feta", Label: "Feta", Quantity: "100 g", Section: recipe.SectionDairy},
			{Key: "spaghetti", Label: "Spaghetti", Quantity: "500 g", Section: recipe.SectionPantry},
			{Key: "garlic", Label: "Garlic", Quantity: "2 cloves", Section: recipe.SectionProduce},
			{Key: "tomatoes", Label: "Tomatoes", Quantity: "400 g, 3", Section: recipe.SectionProduce},
			{Key: "celery salt", Label: "Celery salt", Quantity: "", Section: recipe.SectionUnspecified},
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("BuildList() mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("deterministic", func(t *testing.T) {
		idx := planner.BuildIndex([]planner.Assignment{
			{Date: "2024-03-05", Slot: "lunch", RecipeID: "salad"},
			{Date: "2024-03-04", Slot: "dinner", RecipeID: "pasta"},
			{Date: "2024-03-06", Slot: "breakfast", RecipeID: "salad"},
		})

		first := BuildList(idx, catalog, nil)
		for i := 0; i < 10; i++ {
			if diff := cmp.Diff(first, BuildList(idx, catalog, nil)); diff != "" {
				t.Fatalf("run %d differs (-first +got):\n%s", i, diff)
			}
		}
	})

	t.Run("dangling references are skipped", func(t *testing.T) {
		idx := planner.BuildIndex([]planner.Assignment{
			{Date: "2024-03-04", Slot: "dinner", RecipeID: "deleted"},
		})

		got := BuildList(idx, catalog, nil)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("legacy main is counted once", func(t *testing.T) {
		idx := planner.BuildIndex([]planner.Assignment{
			{Date: "2024-03-04", Slot: "main", RecipeID: "pasta"},
		})

		got := BuildList(idx, catalog, []string{"salt"})
		for _, it := range got {
			if it.Key == "tomatoes" {
				assert.Equal(t, "400 g", it.Quantity)
				return
			}
		}
		t.Fatal("tomatoes missing from list")
	})

	t.Run("main and explicit dinner both count", func(t *testing.T) {
		idx := planner.BuildIndex([]planner.Assignment{
			{Date: "2024-03-04", Slot: "main", RecipeID: "pasta"},
			{Date: "2024-03-04", Slot: "dinner", RecipeID: "pasta"},
		})

		got := BuildList(idx, catalog, nil)
		require.NotEmpty(t, got)
		for _, it := range got {
			if it.Key == "spaghetti" {
				assert.Equal(t, "500 g, 500 g", it.Quantity)
			}
		}
	})

	t.Run("empty inputs", func(t *testing.T) {
		assert.Empty(t, BuildList(nil, nil, nil))
		assert.Empty(t, BuildList(planner.BuildIndex(nil), catalog, nil))
	})
}

func TestGroupBySection(t *testing.T) {
	items := []Item{
		{Key: "feta", Section: recipe.SectionDairy},
		{Key: "garlic", Section: recipe.SectionProduce},
		{Key: "tomatoes", Section: recipe.SectionProduce},
		{Key: "celery salt"},
	}

	groups := GroupBySection(items)

	require.Len(t, groups, 3)
	assert.Equal(t, recipe.SectionDairy, groups[0].Section)
	assert.Len(t, groups[1].Items, 2)
	assert.Equal(t, recipe.SectionUnspecified, groups[2].Section)
	assert.Nil(t, GroupBySection(nil))
}
