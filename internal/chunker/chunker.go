package chunker

import (
	"strings"

	"github.com/tmc/langchaingo/textsplitter"

	"vault-rag/internal/apperr"
	"vault-rag/internal/models"
)

// Page is one unit of extracted document text. Number is 1-based for paged
// formats (PDF) and 0 for formats without pages.
type Page struct {
	Number int
	Text   string
}

const (
	DefaultChunkSize    = 500
	DefaultChunkOverlap = 50
)

// Chunker splits extracted text into overlapping fragments bounded by a
// character budget, breaking on paragraph, then sentence, then word
// boundaries. Splitting is deterministic: the same input always yields the
// same fragment sequence.
type Chunker struct {
	splitter textsplitter.RecursiveCharacter
}

func New(chunkSize, chunkOverlap int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		chunkOverlap = DefaultChunkOverlap
	}
	return &Chunker{
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(chunkSize),
			textsplitter.WithChunkOverlap(chunkOverlap),
			textsplitter.WithSeparators([]string{"\n\n", "\n", ". ", " ", ""}),
		),
	}
}

// Fragment turns the extracted pages of one document into fragments carrying
// source and page provenance. Positions are 0-based in document order.
func (c *Chunker) Fragment(source string, pages []Page) ([]models.Fragment, error) {
	if source == "" {
		return nil, apperr.Validation("fragment source must not be empty")
	}

	var fragments []models.Fragment
	pos := 0
	for _, page := range pages {
		text := strings.TrimSpace(page.Text)
		if text == "" {
			continue
		}
		parts, err := c.splitter.SplitText(text)
		if err != nil {
			return nil, err
		}
		for _, part := range parts {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			fragments = append(fragments, models.Fragment{
				Content:  part,
				Source:   source,
				Page:     page.Number,
				Position: pos,
			})
			pos++
		}
	}
	return fragments, nil
}
