package clipper

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"
	"time"

	"go.uber.org/zap"

	"meal-planner/internal/recipe"
)

//go:embed extractor_prompt.md
var extractorPrompt string

var extractorTmpl = template.Must(template.New("extractor").Parse(extractorPrompt))

type promptData struct {
	URL     string
	Content string
}

// extract asks the LLM for the raw recipe shape.
func (c *Clipper) extract(ctx context.Context, url, content string) (recipe.RawRecipe, error) {
	start := time.Now()

	var buf bytes.Buffer
	if err := extractorTmpl.Execute(&buf, promptData{URL: url, Content: content}); err != nil {
		return recipe.RawRecipe{}, fmt.Errorf("failed to build extractor prompt: %w", err)
	}

	resp, err := c.textGen.GenerateContent(ctx, buf.String())
	if err != nil {
		return recipe.RawRecipe{}, fmt.Errorf("failed to get LLM response: %w", err)
	}
	c.logger.Info("extractor finished",
		zap.String("model", resp.Usage.Model),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		zap.Duration("latency", time.Since(start)),
	)

	var raw recipe.RawRecipe
	if err := json.Unmarshal([]byte(stripFences(resp.Content)), &raw); err != nil {
		return recipe.RawRecipe{}, fmt.Errorf("failed to unmarshal LLM response: %w", err)
	}
	return raw, nil
}

// stripFences removes a ```json ... ``` wrapper some models add anyway.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}
