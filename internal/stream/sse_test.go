package stream

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSSEWriterHeadersAndFraming(t *testing.T) {
	rec := httptest.NewRecorder()
	w, err := NewSSEWriter(rec)
	require.NoError(t, err)

	require.NoError(t, w.Send(Delta{Chunk: "hi"}))
	require.NoError(t, w.Send(Terminal{Done: true, FullResponse: "hi"}))

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))

	body := rec.Body.String()
	assert.Contains(t, body, `data: {"chunk":"hi","done":false}`+"\n\n")
	assert.Contains(t, body, `"full_response":"hi"`)
	assert.True(t, rec.Flushed)
}
