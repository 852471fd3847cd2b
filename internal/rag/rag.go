package rag

import (
	"context"
	"fmt"
	"strings"

	"vault-rag/internal/citation"
	"vault-rag/internal/index"
	"vault-rag/internal/llm"
	"vault-rag/internal/models"
	"vault-rag/internal/retriever"
)

// contextSnippetLen caps how much of each retrieved fragment enters the
// prompt; retrieval already bounds fragments near this size.
const contextSnippetLen = 500

const answerTemplate = `You are answering a question based on the provided context. Use inline citations like [1], [2], [3] in your response when referencing information from the context.

Context:
%s

Question: %s

Instructions:
- Include citation numbers [1], [2], [3] inline in your response where you reference information
- Place citations immediately after the relevant information
- Be concise and natural

Answer:`

const directTemplate = `%s

Response:`

// Pipeline assembles prompts from retrieved context and drives the
// generation backend.
type Pipeline struct {
	gen  llm.Generator
	topK int
}

func NewPipeline(gen llm.Generator, topK int) *Pipeline {
	if topK <= 0 {
		topK = retriever.DefaultTopK
	}
	return &Pipeline{gen: gen, topK: topK}
}

// ContextPrompt numbers each fragment so the model's [n] markers line up
// with the citation ids derived from the same retrieval.
func ContextPrompt(query string, fragments []models.Fragment) string {
	var parts []string
	for i, frag := range fragments {
		content := frag.Content
		if len(content) > contextSnippetLen {
			content = content[:contextSnippetLen]
		}
		parts = append(parts, fmt.Sprintf("[%d] %s", i+1, content))
	}
	return fmt.Sprintf(answerTemplate, strings.Join(parts, "\n\n"), query)
}

// DirectPrompt is the free-generation shape with no document context.
func DirectPrompt(query string) string {
	return fmt.Sprintf(directTemplate, query)
}

// Retrieve pulls the top fragments for a query, degrading to no context on
// retrieval failure.
func (p *Pipeline) Retrieve(ctx context.Context, ix *index.Index, query string) []models.Fragment {
	return retriever.Retrieve(ctx, ix, query, p.topK)
}

// Answer produces a complete retrieval-augmented answer with its citations
// attached. Used by the non-streaming path.
func (p *Pipeline) Answer(ctx context.Context, ix *index.Index, query string) (string, []models.Citation, error) {
	fragments := p.Retrieve(ctx, ix, query)
	answer, err := p.gen.Generate(ctx, ContextPrompt(query, fragments))
	if err != nil {
		return "", nil, err
	}
	citations := citation.Extract(fragments)
	return citation.FormatInline(citations, answer), citations, nil
}

// Generate produces a direct answer from the query alone.
func (p *Pipeline) Generate(ctx context.Context, query string) (string, error) {
	return p.gen.Generate(ctx, DirectPrompt(query))
}

// StreamRAG streams a retrieval-augmented answer token by token.
func (p *Pipeline) StreamRAG(ctx context.Context, ix *index.Index, query string, emit func(string) error) error {
	fragments := p.Retrieve(ctx, ix, query)
	return p.gen.GenerateStream(ctx, ContextPrompt(query, fragments), emit)
}

// StreamDirect streams a direct generation answer token by token.
func (p *Pipeline) StreamDirect(ctx context.Context, query string, emit func(string) error) error {
	return p.gen.GenerateStream(ctx, DirectPrompt(query), emit)
}
