package optimizer

import (
	"context"

	"github.com/turbopilot/chunkopt/internal/domain"
)

// optimizeLocal runs one node of the common-parent tree reduction: it
// folds the node's own local chunks together with its children's
// already-optimized sub-results. Each element of children is a single
// sub-result and gets its own provenance tag so the count-limiting
// merger can prefer merging within a sub-result before reaching across
// them.
func optimizeLocal(ctx context.Context, oracle MetricOracle, constructor ChunkConstructor, params Params, local []*domain.Chunk, children [][]*domain.Chunk) ([]*domain.Chunk, error) {
	if len(local) > params.LocalChunkMergeThreshold {
		collapsed, err := mergeBySize(ctx, oracle, constructor, params, local)
		if err != nil {
			return nil, err
		}
		local = collapsed
	}

	normalized := make([]*domain.Chunk, len(local))
	for i, c := range local {
		n, err := constructor.NewNormalized(ctx, c.Context(), c.MainEntries(), c.OmitEntries(), c.AvailabilityInfo())
		if err != nil {
			return nil, err
		}
		normalized[i] = n
	}

	unoptimizedCount := len(normalized)
	chunks := make([]taggedChunk, 0, len(normalized))
	for _, c := range normalized {
		chunks = append(chunks, taggedChunk{chunk: c, provenance: nil})
	}
	for _, subResult := range children {
		tag := newProvenance()
		for _, c := range subResult {
			chunks = append(chunks, taggedChunk{chunk: c, provenance: tag})
		}
	}

	if unoptimizedCount > 0 && len(chunks) > 1 {
		merged, err := mergeDuplicatedAndContained(ctx, oracle, constructor, params, chunks, unoptimizedCount)
		if err != nil {
			return nil, err
		}
		chunks = merged
	}

	if len(chunks) > params.TotalChunkMergeThreshold {
		return mergeToLimit(ctx, oracle, constructor, params, chunks, params.TotalChunkMergeThreshold)
	}

	out := make([]*domain.Chunk, len(chunks))
	for i, tc := range chunks {
		out[i] = tc.chunk
	}
	return out, nil
}
