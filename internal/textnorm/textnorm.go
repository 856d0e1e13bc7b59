// Package textnorm normalizes email text for both rule matching and
// classifier features. Training and inference share these exact functions;
// any change here retrains the model from a different feature space.
package textnorm

import (
	"regexp"
	"strings"

	"github.com/kljensen/snowball/english"
)

var (
	tokenPattern      = regexp.MustCompile(`[a-z0-9']+`)
	whitespacePattern = regexp.MustCompile(`\s+`)
	unsafePattern     = regexp.MustCompile(`[^\w\s&.'-]`)
)

var htmlEntities = strings.NewReplacer(
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&#39;", "'",
	"&nbsp;", " ",
)

// stopwords is a fixed set; it is deliberately not configurable so that a
// stored model can never disagree with inference-time tokenization.
var stopwords = map[string]struct{}{}

func init() {
	for _, w := range []string{
		"a", "an", "and", "are", "as", "at", "be", "been", "but", "by",
		"for", "from", "had", "has", "have", "he", "her", "his", "i", "if",
		"in", "into", "is", "it", "its", "me", "my", "no", "not", "of",
		"on", "or", "our", "she", "so", "that", "the", "their", "them",
		"then", "there", "these", "they", "this", "to", "us", "was", "we",
		"were", "will", "with", "you", "your",
	} {
		stopwords[w] = struct{}{}
	}
}

// CleanupText decodes common HTML entities, strips characters outside a safe
// subset, and collapses whitespace. Deterministic, no side effects.
func CleanupText(text string) string {
	text = htmlEntities.Replace(text)
	text = unsafePattern.ReplaceAllString(text, "")
	text = whitespacePattern.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// Normalize lowercases, tokenizes on word boundaries, removes stopwords, and
// stems each remaining token.
func Normalize(text string) []string {
	lowered := strings.ToLower(text)
	raw := tokenPattern.FindAllString(lowered, -1)

	tokens := make([]string, 0, len(raw))
	for _, tok := range raw {
		if _, skip := stopwords[tok]; skip {
			continue
		}
		tokens = append(tokens, english.Stem(tok, false))
	}
	return tokens
}

// FirstSentence returns text up to the first sentence terminator or newline.
func FirstSentence(text string) string {
	if idx := strings.IndexAny(text, ".!?\n"); idx >= 0 {
		return text[:idx]
	}
	return text
}
