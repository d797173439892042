package clipper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"meal-planner/internal/llm"
	"meal-planner/internal/recipe"
)

// ErrNoRecipe is returned when a page holds nothing that reads as a recipe.
var ErrNoRecipe = errors.New("no recipe found on page")

// maxPromptText caps the page text handed to the LLM.
const maxPromptText = 20000

// Saver stores an imported recipe.
type Saver interface {
	SaveImported(ctx context.Context, rec recipe.Recipe) error
}

// Clipper handles fetching and extracting recipes from URLs.
type Clipper struct {
	http    *resty.Client
	textGen llm.TextGenerator
	saver   Saver
	logger  *zap.Logger
}

// NewClipper creates a new Clipper instance. textGen may be nil, in which
// case only pages with schema.org JSON-LD can be clipped.
func NewClipper(textGen llm.TextGenerator, saver Saver, logger *zap.Logger) *Clipper {
	return &Clipper{
		http:    resty.New().SetTimeout(15 * time.Second).SetHeader("User-Agent", "meal-planner-clipper/1.0"),
		textGen: textGen,
		saver:   saver,
		logger:  logger,
	}
}

// ClipURL fetches the page, extracts the recipe and saves it as an imported
// recipe. The id is derived from the URL, so clipping a page twice updates
// the same recipe.
func (c *Clipper) ClipURL(ctx context.Context, url string) (*recipe.Recipe, error) {
	doc, err := c.fetch(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch content: %w", err)
	}

	raw, found := ExtractJSONLD(doc)
	if !found {
		if c.textGen == nil {
			return nil, ErrNoRecipe
		}
		c.logger.Info("no JSON-LD recipe, falling back to LLM extraction", zap.String("url", url))
		raw, err = c.extract(ctx, url, cleanText(doc))
		if err != nil {
			return nil, fmt.Errorf("ai extraction failed: %w", err)
		}
	}

	rec := recipe.Normalize(raw)
	if len(rec.Ingredients) == 0 {
		return nil, ErrNoRecipe
	}
	if rec.Name == "" {
		rec.Name = strings.TrimSpace(doc.Find("title").First().Text())
	}
	if rec.SourceURL == "" {
		rec.SourceURL = url
	}
	rec.ID = StableID(url)

	if err := c.saver.SaveImported(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to save imported recipe: %w", err)
	}
	return &rec, nil
}

// StableID derives a recipe id from its source URL.
func StableID(url string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(strings.TrimSpace(url))).String()
}

func (c *Clipper) fetch(ctx context.Context, url string) (*goquery.Document, error) {
	resp, err := c.http.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("failed to fetch URL: status %d", resp.StatusCode())
	}
	return goquery.NewDocumentFromReader(bytes.NewReader(resp.Body()))
}

// cleanText strips noise to save LLM tokens. It works on a clone so the
// JSON-LD scripts stay in the original document.
func cleanText(doc *goquery.Document) string {
	body := doc.Find("body").Clone()
	body.Find("script, style, nav, footer, iframe, ads, .ads, #ads").Remove()

	text := strings.Join(strings.Fields(body.Text()), " ")
	return truncateText(text, maxPromptText)
}

// truncateText cuts s to at most n bytes without splitting a rune.
func truncateText(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
