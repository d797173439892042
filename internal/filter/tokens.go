package filter

import (
	"strings"

	"meal-planner/internal/recipe"
)

// TokenSet is an ordered set of free-text tokens, de-duplicated by normalized
// form. The first spelling added is the one kept for display.
type TokenSet struct {
	tokens []string
}

// NewTokenSet builds a set from tokens, dropping blanks and duplicates.
func NewTokenSet(tokens ...string) TokenSet {
	var s TokenSet
	for _, t := range tokens {
		s.Add(t)
	}
	return s
}

// Add inserts token. It reports whether the set changed.
func (s *TokenSet) Add(token string) bool {
	token = strings.TrimSpace(token)
	if token == "" || s.Contains(token) {
		return false
	}
	s.tokens = append(s.tokens, token)
	return true
}

// Remove deletes the token matching by normalized form. It reports whether
// the set changed.
func (s *TokenSet) Remove(token string) bool {
	key := recipe.NormalizeToken(token)
	for i, t := range s.tokens {
		if recipe.NormalizeToken(t) == key {
			s.tokens = append(s.tokens[:i:i], s.tokens[i+1:]...)
			return true
		}
	}
	return false
}

func (s TokenSet) Contains(token string) bool {
	key := recipe.NormalizeToken(token)
	for _, t := range s.tokens {
		if recipe.NormalizeToken(t) == key {
			return true
		}
	}
	return false
}

// Tokens returns a copy of the tokens in insertion order.
func (s TokenSet) Tokens() []string {
	out := make([]string, len(s.tokens))
	copy(out, s.tokens)
	return out
}

func (s TokenSet) Len() int { return len(s.tokens) }

// CSV joins the tokens the way the recipe API expects its exclude parameter.
func (s TokenSet) CSV() string {
	return strings.Join(s.tokens, ", ")
}
