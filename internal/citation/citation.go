package citation

import (
	"fmt"
	"strings"

	"vault-rag/internal/models"
)

const (
	snippetLen    = 200
	refSnippetLen = 100
)

// Extract turns retrieved fragments into a deduplicated citation list. The
// dedup key is source alone for unpaged fragments, source:page otherwise;
// the first occurrence wins and ids are assigned 1-based in first-seen order.
func Extract(fragments []models.Fragment) []models.Citation {
	var citations []models.Citation
	seen := make(map[string]bool)

	for _, frag := range fragments {
		key := frag.Source
		if frag.HasPage() {
			key = fmt.Sprintf("%s:%d", frag.Source, frag.Page)
		}
		if seen[key] {
			continue
		}
		seen[key] = true

		citations = append(citations, models.Citation{
			ID:          len(citations) + 1,
			Source:      frag.Source,
			Page:        frag.Page,
			Snippet:     truncate(frag.Content, snippetLen),
			FullContent: frag.Content,
		})
	}
	return citations
}

// FormatBlock renders the numbered source list appended to answers.
func FormatBlock(citations []models.Citation) string {
	if len(citations) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("\n\n**Sources:**\n")
	for _, cit := range citations {
		if cit.Page > 0 {
			fmt.Fprintf(&b, "[%d] %s, Page %d\n", cit.ID, cit.Source, cit.Page)
		} else {
			fmt.Fprintf(&b, "[%d] %s\n", cit.ID, cit.Source)
		}
	}
	return b.String()
}

// FormatInline appends the source list to an answer. The answer text itself
// is never rewritten: when the model already placed [n] markers inline the
// appended list is the mapping for them, otherwise it stands alone as the
// citation block. With no citations the answer is returned unchanged.
func FormatInline(citations []models.Citation, answer string) string {
	if len(citations) == 0 {
		return answer
	}
	return answer + FormatBlock(citations)
}

// References projects citations down to the shape returned to API clients.
func References(citations []models.Citation) []models.CitationRef {
	refs := make([]models.CitationRef, 0, len(citations))
	for _, cit := range citations {
		refs = append(refs, models.CitationRef{
			ID:      cit.ID,
			Source:  cit.Source,
			Page:    cit.Page,
			Snippet: truncate(cit.Snippet, refSnippetLen),
		})
	}
	return refs
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
