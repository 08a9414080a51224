package optimizer

import (
	"context"

	"github.com/turbopilot/chunkopt/internal/domain"
	"golang.org/x/sync/errgroup"
)

// OptimizeEcmascriptChunks is the optimizer's single public entry
// point. It partitions chunks by chunking context (merging never
// crosses that boundary), reduces each partition independently by a
// common-parent tree walk, and concatenates the results in
// first-occurrence order of the partitions.
func OptimizeEcmascriptChunks(ctx context.Context, oracle MetricOracle, constructor ChunkConstructor, params Params, chunks []*domain.Chunk) ([]*domain.Chunk, error) {
	byContext := newOrderedMap[domain.ChunkingContext, []*domain.Chunk]()
	for _, c := range chunks {
		group := byContext.GetOrInsert(c.Context(), nil)
		byContext.Set(c.Context(), append(group, c))
	}

	groups := byContext.Values()
	results := make([][]*domain.Chunk, len(groups))

	g, gctx := errgroup.WithContext(ctx)
	for i, group := range groups {
		i, group := i, group
		g.Go(func() error {
			out, err := optimizeByCommonParent(gctx, oracle, constructor, params, group, 0)
			if err != nil {
				return err
			}
			results[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []*domain.Chunk
	for _, r := range results {
		out = append(out, r...)
	}
	return out, nil
}

// optimizeByCommonParent reduces one context-partition by the
// longest-common-directory-prefix tree: chunks whose common parent is
// no deeper than depth are this node's local chunks; the rest are
// routed to a child keyed by their path segment at depth, recursed
// into first, so a node never sees an unoptimized child result.
//
// A chunk with no common parent at all behaves as if its path had
// length 0: it is always local to the root and never routed deeper,
// since there is no shared directory to route it by.
func optimizeByCommonParent(ctx context.Context, oracle MetricOracle, constructor ChunkConstructor, params Params, chunks []*domain.Chunk, depth int) ([]*domain.Chunk, error) {
	var local []*domain.Chunk
	childGroups := newOrderedMap[string, []*domain.Chunk]()

	for _, c := range chunks {
		path := c.CommonParent()
		if !path.Present() || path.Len() <= depth {
			local = append(local, c)
			continue
		}
		seg := path.Segments()[depth]
		group := childGroups.GetOrInsert(seg, nil)
		childGroups.Set(seg, append(group, c))
	}

	keys := childGroups.Keys()
	childResults := make([][]*domain.Chunk, len(keys))

	g, gctx := errgroup.WithContext(ctx)
	for i, key := range keys {
		i, group := i, childGroups.values[key]
		g.Go(func() error {
			out, err := optimizeByCommonParent(gctx, oracle, constructor, params, group, depth+1)
			if err != nil {
				return err
			}
			childResults[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return optimizeLocal(ctx, oracle, constructor, params, local, childResults)
}
