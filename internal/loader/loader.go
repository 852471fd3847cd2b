package loader

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/rs/zerolog/log"

	"vault-rag/internal/apperr"
	"vault-rag/internal/chunker"
	"vault-rag/internal/models"
)

// Loader extracts text from raw document bytes and fragments it. The
// originalFilename is what citations will show, so it must be the name the
// user uploaded, never a temp or storage name.
type Loader struct {
	chunker *chunker.Chunker
}

func New(c *chunker.Chunker) *Loader {
	return &Loader{chunker: c}
}

// Load extracts and fragments a document. A nil error with zero fragments
// means the document loaded but contained no text; callers must treat that
// differently from a load failure.
func (l *Loader) Load(content []byte, originalFilename string) ([]models.Fragment, error) {
	ext := strings.ToLower(filepath.Ext(originalFilename))

	var pages []chunker.Page
	var err error
	switch ext {
	case ".pdf":
		pages, err = extractPDF(content)
	case ".txt":
		pages = []chunker.Page{{Text: string(content)}}
	case ".docx":
		pages, err = extractDOCX(content)
	default:
		return nil, apperr.Validation("unsupported file format: %s", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", originalFilename, err)
	}

	fragments, err := l.chunker.Fragment(originalFilename, pages)
	if err != nil {
		return nil, err
	}
	if len(fragments) == 0 {
		log.Info().Str("filename", originalFilename).Msg("no text extracted from document")
	}
	return fragments, nil
}

func extractPDF(content []byte) ([]chunker.Page, error) {
	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, err
	}

	var pages []chunker.Page
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// one unreadable page should not lose the rest
			log.Warn().Err(err).Int("page", i).Msg("skipping unreadable PDF page")
			continue
		}
		pages = append(pages, chunker.Page{Number: i, Text: text})
	}
	return pages, nil
}

func extractDOCX(content []byte) ([]chunker.Page, error) {
	r, err := docx.ReadDocxFromMemory(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, err
	}
	defer r.Close()

	doc := r.Editable()
	var text strings.Builder
	for _, p := range strings.Split(doc.GetContent(), "\n") {
		p = stripTags(p)
		if strings.TrimSpace(p) == "" {
			continue
		}
		text.WriteString(p)
		text.WriteString("\n\n")
	}
	return []chunker.Page{{Text: text.String()}}, nil
}

// stripTags removes the raw WordprocessingML markup GetContent leaves in.
func stripTags(s string) string {
	var b strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// FileType maps a filename to the declared document type, or "unknown".
func FileType(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return "pdf"
	case ".txt":
		return "txt"
	case ".docx":
		return "docx"
	default:
		return "unknown"
	}
}
