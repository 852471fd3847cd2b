// Package stream drives token-by-token response delivery. Tokens are relayed
// to the sink the moment they arrive; exactly one terminal event follows the
// stream, and persistence happens only after the success terminal event is
// built, so a cancelled or failed stream never leaves a partial chat turn.
package stream

import (
	"strings"

	"vault-rag/internal/models"
)

// Delta is an incremental event carrying one text chunk.
type Delta struct {
	Chunk string `json:"chunk"`
	Done  bool   `json:"done"`
}

// Terminal is the single success event closing a stream: the full
// concatenated text, optional citations, and the completion flag.
type Terminal struct {
	Chunk        string               `json:"chunk"`
	Done         bool                 `json:"done"`
	FullResponse string               `json:"full_response"`
	Citations    []models.CitationRef `json:"citations,omitempty"`
	VaultFiles   any                  `json:"vault_files,omitempty"`
}

// ErrorEvent is the terminal shape for a stream that failed mid-flight. It
// deliberately carries no partial text.
type ErrorEvent struct {
	Error string `json:"error"`
	Done  bool   `json:"done"`
}

// Sink is the network boundary the streamer writes events to. Send must not
// buffer: perceived latency depends on each delta going out immediately.
type Sink interface {
	Send(event any) error
}

// Streamer accumulates the full response while forwarding each token
// unbuffered to the sink.
type Streamer struct {
	sink Sink
	full strings.Builder
}

func New(sink Sink) *Streamer {
	return &Streamer{sink: sink}
}

// Emit forwards one token. The returned error means the sink is gone and the
// producer must stop promptly.
func (s *Streamer) Emit(token string) error {
	if token == "" {
		return nil
	}
	s.full.WriteString(token)
	return s.sink.Send(Delta{Chunk: token})
}

// FullText is the concatenation of every emitted token.
func (s *Streamer) FullText() string { return s.full.String() }

// Finish sends the success terminal event. Callers persist the chat turn
// only after this returns.
func (s *Streamer) Finish(citations []models.CitationRef, vaultFiles any) error {
	return s.sink.Send(Terminal{
		Done:         true,
		FullResponse: s.full.String(),
		Citations:    citations,
		VaultFiles:   vaultFiles,
	})
}

// Fail sends the error terminal event. No chat turn is persisted for a
// failed stream.
func (s *Streamer) Fail(err error) {
	// best effort: the sink may already be gone
	_ = s.sink.Send(ErrorEvent{Error: err.Error(), Done: true})
}
