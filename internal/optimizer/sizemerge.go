package optimizer

import (
	"context"

	"github.com/turbopilot/chunkopt/internal/domain"
	"golang.org/x/sync/errgroup"
)

// mergeBySize packs chunks left-to-right into as few output chunks as
// possible while keeping each under params.MaxChunkItemsPerChunk. It is
// strict first-fit with no back-tracking: a chunk that doesn't fit the
// pending group flushes the group and starts a new one.
//
// All but the last element of the result are "full": only the last may
// still accept more chunks from a caller that keeps packing (the
// count-limiting merger in countlimit.go relies on this).
func mergeBySize(ctx context.Context, oracle MetricOracle, constructor ChunkConstructor, params Params, chunks []*domain.Chunk) ([]*domain.Chunk, error) {
	counts, err := chunkItemCounts(ctx, oracle, chunks)
	if err != nil {
		return nil, err
	}

	var merged []*domain.Chunk
	var current []*domain.Chunk
	currentItems := 0

	flushCurrent := func() error {
		if len(current) == 0 {
			return nil
		}
		if len(current) == 1 {
			merged = append(merged, current[0])
		} else {
			m, err := mergeChunks(ctx, constructor, current[0], current)
			if err != nil {
				return err
			}
			merged = append(merged, m)
		}
		current = nil
		return nil
	}

	for i, c := range chunks {
		items := counts[i]
		switch {
		case items >= params.MaxChunkItemsPerChunk:
			// Too big on its own; keep it separate and don't disturb
			// the pending group.
			merged = append(merged, c)
		case currentItems+items < params.MaxChunkItemsPerChunk:
			current = append(current, c)
			currentItems += items
		default:
			if err := flushCurrent(); err != nil {
				return nil, err
			}
			current = []*domain.Chunk{c}
			currentItems = items
		}
	}
	if err := flushCurrent(); err != nil {
		return nil, err
	}
	return merged, nil
}

// chunkItemCounts fans out ChunkItemsCount queries across all chunks in
// parallel, the suspension site spec.md §5 names explicitly for
// mergeBySize.
func chunkItemCounts(ctx context.Context, oracle MetricOracle, chunks []*domain.Chunk) ([]int, error) {
	counts := make([]int, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	for i, c := range chunks {
		i, c := i, c
		g.Go(func() error {
			n, err := oracle.ChunkItemsCount(gctx, c)
			if err != nil {
				return err
			}
			counts[i] = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return counts, nil
}
