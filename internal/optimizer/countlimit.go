package optimizer

import (
	"context"
	"sort"

	"github.com/turbopilot/chunkopt/internal/domain"
)

// mergeToLimit reduces chunks (each tagged with its provenance) to at
// most targetCount chunks. It prefers merging within a provenance group
// before resorting to arbitrary equal-sized groupings, since chunks
// from the same descendant sub-result are more likely to share content.
func mergeToLimit(ctx context.Context, oracle MetricOracle, constructor ChunkConstructor, params Params, chunks []taggedChunk, targetCount int) ([]*domain.Chunk, error) {
	remaining := len(chunks)

	bySource := newOrderedMap[provenance, []*domain.Chunk]()
	for _, tc := range chunks {
		group := bySource.GetOrInsert(tc.provenance, nil)
		bySource.Set(tc.provenance, append(group, tc.chunk))
	}

	groupKeys := bySource.Keys()
	sort.SliceStable(groupKeys, func(i, j int) bool {
		return len(bySource.values[groupKeys[i]]) > len(bySource.values[groupKeys[j]])
	})

	// fullyMerged holds chunks considered saturated; merged holds chunks
	// that may still absorb more. mergeBySize's output keeps all but its
	// last element full, so only the last element of each partial result
	// goes back into merged — preserving that invariant avoids
	// quadratic re-work in the rebalancing loop below.
	var fullyMerged []*domain.Chunk
	var merged []*domain.Chunk

	for _, key := range groupKeys {
		group := bySource.values[key]
		if len(merged)+remaining <= targetCount {
			merged = append(merged, group...)
			continue
		}
		remaining -= len(group)
		part, err := mergeBySize(ctx, oracle, constructor, params, group)
		if err != nil {
			return nil, err
		}
		if len(part) > 0 {
			merged = append(merged, part[len(part)-1])
			fullyMerged = append(fullyMerged, part[:len(part)-1]...)
		}
	}

	// Still above the limit: repack merged into roughly equal slices and
	// size-merge each. Repeat while progress is possible; size ceilings
	// can force more than one pass.
	for len(merged) > 1 && len(merged)+len(fullyMerged) > targetCount {
		target := targetCount - len(fullyMerged)
		if target < 1 {
			target = 1
		}
		size := ceilDiv(len(merged), target)
		if size < 1 {
			size = 1
		}
		oldMerged := merged
		merged = nil
		progressed := false
		for start := 0; start < len(oldMerged); start += size {
			end := start + size
			if end > len(oldMerged) {
				end = len(oldMerged)
			}
			slice := oldMerged[start:end]
			part, err := mergeBySize(ctx, oracle, constructor, params, slice)
			if err != nil {
				return nil, err
			}
			if len(part) < len(slice) {
				progressed = true
			}
			if len(part) > 0 {
				merged = append(merged, part[len(part)-1])
				fullyMerged = append(fullyMerged, part[:len(part)-1]...)
			}
		}
		if !progressed {
			// Size ceilings prevent any further reduction; stop instead
			// of looping forever.
			break
		}
	}

	return append(fullyMerged, merged...), nil
}

func ceilDiv(a, b int) int {
	if b == 0 {
		return a
	}
	return (a + b - 1) / b
}
