package router

import (
	"regexp"
	"strings"

	"vault-rag/internal/models"
)

// Signals are the context facts the router decides on. Keeping them as plain
// data keeps the router pure and testable without a live backend.
type Signals struct {
	// HasIndex reports whether the user has indexed documents.
	HasIndex bool
	// HasCurrentDocument reports whether a document is available for
	// literal keyword search.
	HasCurrentDocument bool
	// RetrievedText is the concatenated text of a cheap k=2 relevance
	// probe against the user's index; empty when HasIndex is false.
	RetrievedText string
	// DefaultMode is what the caller asked for when no heuristic fires.
	DefaultMode models.Mode
}

// Decision is the routing outcome. Keyword is set only for ModeSearch.
type Decision struct {
	Mode    models.Mode
	Keyword string
}

// The lists below are tunable heuristics, not correctness guarantees: they
// will misroute some real queries and are expected to be adjusted from
// observed traffic.
var (
	greetingTokens = map[string]bool{
		"hi": true, "hello": true, "hey": true, "hai": true,
		"namaste": true, "greetings": true,
	}

	searchTriggers = []string{"highlight", "find", "search", "show", "where is", "locate", "point out"}

	generationVerbs = []string{"generate", "create", "write", "make", "prepare", "draft"}

	stopwords = map[string]bool{
		"the": true, "this": true, "that": true, "with": true, "from": true,
		"about": true, "what": true, "when": true, "where": true, "which": true,
		"simple": true, "basic": true, "good": true, "best": true, "quick": true,
		"easy": true, "please": true, "some": true, "have": true, "does": true,
	}

	keywordPattern = regexp.MustCompile(`(?i)(?:highlight|find|search|show|locate|point out)\s+["']?(\w+)["']?`)
	entityPattern  = regexp.MustCompile(`[a-zA-Z]{4,}`)
)

// minEntityLen is the shortest token treated as a potential entity name.
const minEntityLen = 4

// Classify routes a query to an answering mode. It is a pure function over
// the query and the provided signals; all I/O (the relevance probe) happens
// before it is called.
func Classify(query string, sig Signals) Decision {
	normalized := strings.ToLower(strings.TrimSpace(query))
	bare := strings.TrimRight(normalized, "!.?")
	if greetingTokens[bare] {
		return Decision{Mode: models.ModeGreeting}
	}

	if sig.HasCurrentDocument && hasAny(normalized, searchTriggers) {
		if kw := extractKeyword(query); kw != "" {
			return Decision{Mode: models.ModeSearch, Keyword: kw}
		}
	}

	wantsGeneration := hasAny(normalized, generationVerbs)

	if !sig.HasIndex {
		if wantsGeneration {
			return Decision{Mode: models.ModeGeneration}
		}
		return Decision{Mode: sig.DefaultMode}
	}

	if wantsGeneration && !entityOverlap(query, sig.RetrievedText) {
		return Decision{Mode: models.ModeGeneration}
	}
	return Decision{Mode: models.ModeRAG}
}

// extractKeyword captures the first token after a search trigger, e.g.
// "highlight Alice" -> "Alice".
func extractKeyword(query string) string {
	m := keywordPattern.FindStringSubmatch(query)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}

// entityOverlap reports whether any entity-like token of the query (alphabetic,
// at least four characters, not a stopword) appears in the retrieved text.
func entityOverlap(query, retrieved string) bool {
	if retrieved == "" {
		return false
	}
	haystack := strings.ToLower(retrieved)
	for _, tok := range entityPattern.FindAllString(query, -1) {
		tok = strings.ToLower(tok)
		if len(tok) < minEntityLen || stopwords[tok] || isIntentWord(tok) {
			continue
		}
		if strings.Contains(haystack, tok) {
			return true
		}
	}
	return false
}

// isIntentWord filters the router's own trigger vocabulary out of the entity
// scan so "generate" never counts as an entity.
func isIntentWord(tok string) bool {
	for _, v := range generationVerbs {
		if tok == v {
			return true
		}
	}
	for _, t := range searchTriggers {
		if tok == t {
			return true
		}
	}
	return false
}

func hasAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
