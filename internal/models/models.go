package models

// Mode is the answering strategy chosen for a chat turn.
type Mode string

const (
	ModeGreeting   Mode = "greeting"
	ModeSearch     Mode = "search"
	ModeRAG        Mode = "rag"
	ModeGeneration Mode = "generation"
)

// Fragment is a bounded slice of a document carrying provenance metadata.
// Fragments are immutable once created; many fragments per document.
type Fragment struct {
	Content  string
	Source   string
	Page     int // 0 means the source format has no pages
	Position int
}

// HasPage reports whether the fragment originates from a paged format.
func (f Fragment) HasPage() bool { return f.Page > 0 }

// Citation is a numbered reference to a fragment's source, derived per
// response and persisted only as JSON attached to a ChatTurn.
type Citation struct {
	ID          int    `json:"id"`
	Source      string `json:"source"`
	Page        int    `json:"page,omitempty"`
	Snippet     string `json:"snippet"`
	FullContent string `json:"full_content"`
}

// CitationRef is the smaller projection of a Citation for API responses.
type CitationRef struct {
	ID      int    `json:"id"`
	Source  string `json:"source"`
	Page    int    `json:"page,omitempty"`
	Snippet string `json:"snippet"`
}

// SearchHit is a single keyword match with its context window.
type SearchHit struct {
	Page            int    `json:"page"`
	Position        int    `json:"position"`
	Context         string `json:"context"`
	MarkdownContext string `json:"markdown_context"`
	HTMLContext     string `json:"html_context"`
	Snippet         string `json:"snippet"`
	KeywordFound    string `json:"keyword_found"`
}

// KeywordResult aggregates the hits for one keyword across a document. Error
// is set when this keyword's search failed inside a multi-keyword batch.
type KeywordResult struct {
	Keyword     string      `json:"keyword"`
	Occurrences int         `json:"occurrences"`
	Locations   []SearchHit `json:"locations"`
	Pages       []int       `json:"pages"`
	Found       bool        `json:"found"`
	Error       string      `json:"error,omitempty"`
}
