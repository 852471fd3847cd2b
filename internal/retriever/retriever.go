// Package retriever wraps index queries with the degrade-not-fail policy:
// retrieval failure lowers answer quality, it never aborts the turn.
package retriever

import (
	"context"

	"github.com/rs/zerolog/log"

	"vault-rag/internal/index"
	"vault-rag/internal/models"
)

const DefaultTopK = 3

// Retrieve returns up to k fragments ranked by similarity. When the primary
// query fails (typically k exceeding the collection size) it retries with k
// capped to the collection, and finally falls back to an empty list.
func Retrieve(ctx context.Context, ix *index.Index, query string, k int) []models.Fragment {
	if ix == nil {
		return nil
	}
	if k <= 0 {
		k = DefaultTopK
	}

	fragments, err := ix.Query(ctx, query, k)
	if err == nil {
		return fragments
	}

	if n := ix.Count(); n > 0 && n < k {
		fragments, retryErr := ix.Query(ctx, query, n)
		if retryErr == nil {
			return fragments
		}
		err = retryErr
	}

	log.Error().Err(err).Int64("user_id", ix.UserID).Msg("retrieval failed, continuing without context")
	return nil
}
