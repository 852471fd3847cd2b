package loader

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vault-rag/internal/apperr"
	"vault-rag/internal/chunker"
)

func testLoader() *Loader {
	return New(chunker.New(100, 10))
}

func TestLoadPlainText(t *testing.T) {
	fragments, err := testLoader().Load([]byte("Some plain text content for the vault."), "notes.txt")
	require.NoError(t, err)
	require.Len(t, fragments, 1)

	assert.Equal(t, "notes.txt", fragments[0].Source)
	assert.Equal(t, 0, fragments[0].Page, "txt files are unpaged")
	assert.Equal(t, "Some plain text content for the vault.", fragments[0].Content)
}

func TestLoadEmptyTextIsNotAnError(t *testing.T) {
	fragments, err := testLoader().Load([]byte("   \n  "), "empty.txt")
	require.NoError(t, err, "an empty document is not a load failure")
	assert.Empty(t, fragments)
}

func TestLoadUnsupportedFormat(t *testing.T) {
	_, err := testLoader().Load([]byte("data"), "sheet.xlsx")
	var verr *apperr.ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestLoadCorruptPDF(t *testing.T) {
	_, err := testLoader().Load([]byte("not a pdf at all"), "broken.pdf")
	require.Error(t, err)
	var verr *apperr.ValidationError
	assert.False(t, errors.As(err, &verr), "corrupt file is a load error, not a validation error")
}

func TestFileType(t *testing.T) {
	assert.Equal(t, "pdf", FileType("Report.PDF"))
	assert.Equal(t, "txt", FileType("notes.txt"))
	assert.Equal(t, "docx", FileType("cv.docx"))
	assert.Equal(t, "unknown", FileType("archive.zip"))
	assert.Equal(t, "unknown", FileType("noext"))
}

func TestStripTags(t *testing.T) {
	assert.Equal(t, "Hello world", stripTags("<w:t>Hello world</w:t>"))
	assert.Equal(t, "plain", stripTags("plain"))
}
