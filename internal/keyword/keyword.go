package keyword

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"vault-rag/internal/apperr"
	"vault-rag/internal/models"
)

const contextRadius = 50

// maxShownLocations caps the formatted reply; the full list still goes out in
// the structured result.
const maxShownLocations = 10

var md = goldmark.New(goldmark.WithExtensions(extension.GFM))

// Search scans every fragment of a document for case-insensitive exact
// substring matches of keyword, capturing a clamped context window around
// each match. Highlighting preserves the originally-cased matched text.
func Search(fragments []models.Fragment, kw string) (*models.KeywordResult, error) {
	if strings.TrimSpace(kw) == "" {
		return nil, apperr.Validation("keyword must not be empty")
	}

	result := &models.KeywordResult{Keyword: kw}
	kwLower := strings.ToLower(kw)
	pageSet := make(map[int]bool)

	for i, frag := range fragments {
		page := frag.Page
		if page == 0 {
			page = i + 1
		}
		lower := strings.ToLower(frag.Content)

		for from := 0; ; {
			idx := strings.Index(lower[from:], kwLower)
			if idx < 0 {
				break
			}
			start := from + idx
			end := start + len(kw)

			result.Occurrences++
			ctxStart := max(0, start-contextRadius)
			ctxEnd := min(len(frag.Content), end+contextRadius)
			window := frag.Content[ctxStart:ctxEnd]
			matched := frag.Content[start:end]

			result.Locations = append(result.Locations, models.SearchHit{
				Page:            page,
				Position:        start,
				Context:         strings.TrimSpace(strings.ReplaceAll(window, matched, "<mark>"+matched+"</mark>")),
				MarkdownContext: strings.TrimSpace(strings.ReplaceAll(window, matched, "**"+matched+"**")),
				Snippet:         strings.TrimSpace(window),
				KeywordFound:    matched,
			})
			if !pageSet[page] {
				pageSet[page] = true
				result.Pages = append(result.Pages, page)
			}
			from = end
		}
	}

	sort.Ints(result.Pages)
	result.Found = result.Occurrences > 0

	// HTML variant of the markdown highlight for clients that render rich text
	for i := range result.Locations {
		html, err := renderHTML(result.Locations[i].MarkdownContext)
		if err != nil {
			return nil, err
		}
		result.Locations[i].HTMLContext = html
	}
	return result, nil
}

// SearchAll runs independent single-keyword searches merged by keyword key.
// One keyword's failure lands in its own entry and never aborts the rest of
// the batch.
func SearchAll(fragments []models.Fragment, keywords []string) map[string]*models.KeywordResult {
	results := make(map[string]*models.KeywordResult, len(keywords))
	for _, kw := range keywords {
		res, err := Search(fragments, kw)
		if err != nil {
			results[kw] = &models.KeywordResult{Keyword: kw, Error: err.Error()}
			continue
		}
		results[kw] = res
	}
	return results
}

// FormatResponse renders a search result as the chat reply, showing at most
// ten locations with a remainder count.
func FormatResponse(result *models.KeywordResult) string {
	if !result.Found {
		return fmt.Sprintf("The keyword '%s' was not found in the document.", result.Keyword)
	}

	pages := make([]string, len(result.Pages))
	for i, p := range result.Pages {
		pages[i] = fmt.Sprint(p)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found '%s' %d time(s) in the document.\n\n", result.Keyword, result.Occurrences)
	fmt.Fprintf(&b, "**Pages:** %s\n\n", strings.Join(pages, ", "))
	b.WriteString("**Locations with context:**\n\n")

	shown := result.Locations
	if len(shown) > maxShownLocations {
		shown = shown[:maxShownLocations]
	}
	for i, loc := range shown {
		fmt.Fprintf(&b, "**%d. Page %d:**\n   %s\n\n", i+1, loc.Page, loc.MarkdownContext)
	}
	if result.Occurrences > maxShownLocations {
		fmt.Fprintf(&b, "\n... and %d more occurrence(s).", result.Occurrences-maxShownLocations)
	}
	return b.String()
}

func renderHTML(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(markdown), &buf); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}
