package router

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"vault-rag/internal/models"
)

func TestClassifyGreeting(t *testing.T) {
	for _, q := range []string{"hello", "Hi!", "  hey  ", "namaste", "Greetings?"} {
		d := Classify(q, Signals{HasIndex: true, DefaultMode: models.ModeRAG})
		assert.Equal(t, models.ModeGreeting, d.Mode, "query %q", q)
	}
}

func TestClassifyGreetingOnlyWhenWholeQuery(t *testing.T) {
	d := Classify("hello, summarize my report", Signals{HasIndex: true, RetrievedText: "the report", DefaultMode: models.ModeRAG})
	assert.NotEqual(t, models.ModeGreeting, d.Mode)
}

func TestClassifyKeywordSearch(t *testing.T) {
	sig := Signals{HasIndex: true, HasCurrentDocument: true, DefaultMode: models.ModeRAG}

	d := Classify("highlight Alice", sig)
	assert.Equal(t, models.ModeSearch, d.Mode)
	assert.Equal(t, "Alice", d.Keyword)

	d = Classify(`find "budget" in the document`, sig)
	assert.Equal(t, models.ModeSearch, d.Mode)
	assert.Equal(t, "budget", d.Keyword)
}

func TestClassifySearchNeedsCurrentDocument(t *testing.T) {
	d := Classify("highlight Alice", Signals{HasIndex: true, DefaultMode: models.ModeRAG})
	assert.NotEqual(t, models.ModeSearch, d.Mode)
}

func TestClassifyGenerationWithoutIndex(t *testing.T) {
	d := Classify("generate a poem about the sea", Signals{DefaultMode: models.ModeRAG})
	assert.Equal(t, models.ModeGeneration, d.Mode)
}

func TestClassifyGenerationUnrelatedToVault(t *testing.T) {
	sig := Signals{
		HasIndex:      true,
		RetrievedText: "quarterly revenue figures and the audit summary",
		DefaultMode:   models.ModeRAG,
	}
	d := Classify("write a haiku about mountains", sig)
	assert.Equal(t, models.ModeGeneration, d.Mode)
}

func TestClassifyGenerationGroundedInVault(t *testing.T) {
	sig := Signals{
		HasIndex:      true,
		RetrievedText: "Indhumathi has five years of experience in data engineering",
		DefaultMode:   models.ModeRAG,
	}
	d := Classify("make a resume for Indhumathi", sig)
	assert.Equal(t, models.ModeRAG, d.Mode, "entity overlap keeps it grounded")
}

func TestClassifyDefaultsToRAGWithIndex(t *testing.T) {
	d := Classify("what does the contract say about termination", Signals{HasIndex: true, DefaultMode: models.ModeRAG})
	assert.Equal(t, models.ModeRAG, d.Mode)
}

func TestClassifyHonorsCallerDefault(t *testing.T) {
	d := Classify("tell me something interesting", Signals{DefaultMode: models.ModeGeneration})
	assert.Equal(t, models.ModeGeneration, d.Mode)
}

func TestEntityOverlapIgnoresStopwordsAndIntentWords(t *testing.T) {
	assert.False(t, entityOverlap("generate the best simple thing", "generate best simple the"))
	assert.False(t, entityOverlap("anything", ""))
	assert.True(t, entityOverlap("draft a letter to Acme Corporation", "acme corporation invoice history"))
}

func TestExtractKeyword(t *testing.T) {
	assert.Equal(t, "Alice", extractKeyword("please highlight Alice for me"))
	assert.Equal(t, "total", extractKeyword("search 'total' now"))
	assert.Equal(t, "", extractKeyword("no trigger here"))
}
