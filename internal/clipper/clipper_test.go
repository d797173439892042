package clipper

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"meal-planner/internal/llm"
	"meal-planner/internal/recipe"
)

// --- Mocks ---
type mockSaver struct {
	saved []recipe.Recipe
	err   error
}

func (m *mockSaver) SaveImported(_ context.Context, rec recipe.Recipe) error {
	if m.err != nil {
		return m.err
	}
	m.saved = append(m.saved, rec)
	return nil
}

type mockTextGenerator struct {
	response    string
	shouldError bool
	prompt      string
}

func (m *mockTextGenerator) GenerateContent(_ context.Context, prompt string) (llm.ContentResponse, error) {
	m.prompt = prompt
	if m.shouldError {
		return llm.ContentResponse{}, fmt.Errorf("mock ai error")
	}
	return llm.ContentResponse{Content: m.response, Usage: llm.TokenUsage{Model: "mock"}}, nil
}

func servePage(t *testing.T, html string) string {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(html))
	}))
	t.Cleanup(ts.Close)
	return ts.URL
}

const jsonLDPage = `<html><head><title>Chowder | Example</title>
<script type="application/ld+json">{"@context": "https://schema.org", "@graph": [
  {"@type": "WebPage", "name": "Page"},
  {"@type": ["Recipe", "NewsArticle"],
   "name": "Seafood Chowder",
   "recipeYield": ["6", "6 bowls"],
   "recipeCuisine": "American",
   "recipeCategory": ["Soup"],
   "keywords": "seafood, soup, winter",
   "image": [{"@type": "ImageObject", "url": "https://example.com/chowder.jpg"}],
   "nutrition": {"calories": "420 kcal"},
   "recipeIngredient": ["200 g shrimp", "1 tsp salt"],
   "recipeInstructions": [
     {"@type": "HowToSection", "itemListElement": [{"@type": "HowToStep", "text": "Chop."}]},
     {"@type": "HowToStep", "text": "Simmer."}
   ]}
]}</script></head>
<body><h1>Seafood Chowder</h1></body></html>`

func TestClipURL_JSONLD(t *testing.T) {
	url := servePage(t, jsonLDPage)
	saver := &mockSaver{}
	gen := &mockTextGenerator{}
	c := NewClipper(gen, saver, zap.NewNop())

	rec, err := c.ClipURL(context.Background(), url)
	require.NoError(t, err)

	assert.Equal(t, "Seafood Chowder", rec.Name)
	assert.Equal(t, 6, rec.Serves)
	assert.Equal(t, []string{"American", "Soup", "seafood", "winter"}, rec.Tags)
	assert.Equal(t, "https://example.com/chowder.jpg", rec.Image)
	assert.Equal(t, "Chop.\nSimmer.", rec.Instructions)
	require.NotNil(t, rec.CaloriesPerServing)
	assert.Equal(t, 420.0, *rec.CaloriesPerServing)
	assert.Equal(t, []recipe.Ingredient{{Name: "200 g shrimp"}, {Name: "1 tsp salt"}}, rec.Ingredients)
	assert.Equal(t, url, rec.SourceURL)
	assert.Equal(t, StableID(url), rec.ID)

	assert.Empty(t, gen.prompt, "LLM is not needed when JSON-LD is present")
	require.Len(t, saver.saved, 1)
}

func TestClipURL_LLMFallback(t *testing.T) {
	url := servePage(t, `<html><head><title>Pie</title><script>tracking()</script></head>
<body><h1>Mock Pie</h1><div class="ads">Buy stuff!</div><p>Bake the apples.</p><footer>Copyright 2024</footer></body></html>`)

	gen := &mockTextGenerator{response: "```json\n" + `{"name": "Mock Pie", "serves": 8, "ingredients": [{"item": "Apple", "amount": 3}], "instructions": ["Bake"]}` + "\n```"}
	saver := &mockSaver{}
	c := NewClipper(gen, saver, zap.NewNop())

	rec, err := c.ClipURL(context.Background(), url)
	require.NoError(t, err)

	assert.Equal(t, "Mock Pie", rec.Name)
	assert.Equal(t, 8, rec.Serves)
	assert.Equal(t, []recipe.Ingredient{{Name: "Apple", Amount: "3"}}, rec.Ingredients)

	assert.Contains(t, gen.prompt, "Bake the apples.")
	assert.Contains(t, gen.prompt, url)
	assert.NotContains(t, gen.prompt, "tracking()")
	assert.NotContains(t, gen.prompt, "Buy stuff!")
	assert.NotContains(t, gen.prompt, "Copyright 2024")
}

func TestClipURL_Errors(t *testing.T) {
	plain := servePage(t, `<html><body><p>Just a blog post.</p></body></html>`)

	t.Run("no JSON-LD and no LLM", func(t *testing.T) {
		c := NewClipper(nil, &mockSaver{}, zap.NewNop())
		_, err := c.ClipURL(context.Background(), plain)
		assert.ErrorIs(t, err, ErrNoRecipe)
	})

	t.Run("LLM finds nothing", func(t *testing.T) {
		c := NewClipper(&mockTextGenerator{response: `{"ingredients": []}`}, &mockSaver{}, zap.NewNop())
		_, err := c.ClipURL(context.Background(), plain)
		assert.ErrorIs(t, err, ErrNoRecipe)
	})

	t.Run("LLM error", func(t *testing.T) {
		c := NewClipper(&mockTextGenerator{shouldError: true}, &mockSaver{}, zap.NewNop())
		_, err := c.ClipURL(context.Background(), plain)
		assert.Error(t, err)
	})

	t.Run("fetch error", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer ts.Close()

		c := NewClipper(nil, &mockSaver{}, zap.NewNop())
		_, err := c.ClipURL(context.Background(), ts.URL)
		assert.Error(t, err)
	})

	t.Run("save error", func(t *testing.T) {
		url := servePage(t, jsonLDPage)
		c := NewClipper(nil, &mockSaver{err: fmt.Errorf("disk full")}, zap.NewNop())
		_, err := c.ClipURL(context.Background(), url)
		assert.Error(t, err)
	})
}

func TestExtractJSONLD_NoRecipe(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(
		`<script type="application/ld+json">{"@type": "Organization"}</script><script type="application/ld+json">not json</script>`))
	require.NoError(t, err)

	_, ok := ExtractJSONLD(doc)
	assert.False(t, ok)
}

func TestStableID(t *testing.T) {
	assert.Equal(t, StableID("https://example.com/a"), StableID(" https://example.com/a "))
	assert.NotEqual(t, StableID("https://example.com/a"), StableID("https://example.com/b"))
}

func TestStripFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripFences(` {"a":1} `))
}

func TestTruncateText(t *testing.T) {
	t.Run("short text is kept", func(t *testing.T) {
		assert.Equal(t, "crème", truncateText("crème", 10))
	})

	t.Run("cut backs off to a rune boundary", func(t *testing.T) {
		// "è" is two bytes starting at offset 2.
		out := truncateText("crème brûlée", 3)
		assert.Equal(t, "cr", out)
		assert.True(t, utf8.ValidString(out))
	})

	t.Run("long page text stays valid utf-8", func(t *testing.T) {
		text := strings.Repeat("é", maxPromptText)
		out := truncateText(" "+text, maxPromptText)
		assert.True(t, utf8.ValidString(out))
		assert.LessOrEqual(t, len(out), maxPromptText)
		assert.Equal(t, maxPromptText-1, len(out))
	})
}
