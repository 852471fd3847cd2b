package index

import (
	"context"
	"strconv"

	"vault-rag/internal/apperr"
	"vault-rag/internal/models"
)

// Query runs a top-k similarity search against the index, returning fragments
// ranked by embedding similarity. chromem rejects k larger than the
// collection size; callers wanting a degrade-not-fail policy use the
// retriever package.
func (ix *Index) Query(ctx context.Context, query string, k int) ([]models.Fragment, error) {
	if k <= 0 {
		return nil, apperr.Validation("k must be positive")
	}
	results, err := ix.collection.Query(ctx, query, k, nil, nil)
	if err != nil {
		return nil, apperr.Upstream("vector", err)
	}

	fragments := make([]models.Fragment, 0, len(results))
	for _, res := range results {
		page, _ := strconv.Atoi(res.Metadata["page"])
		position, _ := strconv.Atoi(res.Metadata["position"])
		fragments = append(fragments, models.Fragment{
			Content:  res.Content,
			Source:   res.Metadata["source"],
			Page:     page,
			Position: position,
		})
	}
	return fragments, nil
}
