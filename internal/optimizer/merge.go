package optimizer

import (
	"context"
	"fmt"

	"github.com/turbopilot/chunkopt/internal/domain"
	"github.com/turbopilot/chunkopt/internal/errors"
)

// mergeChunks constructs a fresh chunk standing in for first and the
// rest of chunks: context and availability info come from first, main
// entries are the deduplicated union across all of chunks (in
// first-seen order), and omit entries are dropped. All chunks must
// share first's context.
func mergeChunks(ctx context.Context, constructor ChunkConstructor, first *domain.Chunk, chunks []*domain.Chunk) (*domain.Chunk, error) {
	seen := make(map[domain.ModuleID]struct{})
	var mainEntries []domain.ModuleID
	for _, c := range chunks {
		if c.Context() != first.Context() {
			return nil, errors.InvariantError(fmt.Sprintf("cannot merge chunk %q into %q: chunking contexts differ", c.ID(), first.ID()))
		}
		for _, m := range c.MainEntries() {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			mainEntries = append(mainEntries, m)
		}
	}

	merged, err := constructor.NewNormalized(ctx, first.Context(), mainEntries, nil, first.AvailabilityInfo())
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeExternal, "failed to construct merged chunk")
	}
	return merged, nil
}
