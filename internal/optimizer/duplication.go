package optimizer

import (
	"context"

	"github.com/turbopilot/chunkopt/internal/domain"
	"github.com/turbopilot/chunkopt/internal/errors"
	"golang.org/x/sync/errgroup"
)

// candidate is a chunk-item-set comparison against one of chunk's
// follow-on neighbors, kept alive across the merge-plan loop below so
// repeated comparisons don't have to re-query the oracle.
type candidate struct {
	index int // position of other within chunks
	other *domain.Chunk
	domain.Comparison
}

// mergeDuplicatedAndContained scans the first unoptimizedCount chunks
// for near-duplicate or near-contained neighbors and folds them
// together. Children coming from an already-optimized sub-result never
// duplicate each other, so only the unoptimized prefix needs scanning;
// unoptimizedCount shrinks as merges consume chunks from that prefix.
//
// chunks is modified in place and the (possibly shorter) result
// returned. Order among surviving chunks matches their relative order
// going in.
func mergeDuplicatedAndContained(ctx context.Context, oracle MetricOracle, constructor ChunkConstructor, params Params, chunks []taggedChunk, unoptimizedCount int) ([]taggedChunk, error) {
	i := 0
	for i < unoptimizedCount {
		chunk := chunks[i].chunk

		window := chunks[i+1:]
		if len(window) > params.CompareWithCount {
			window = window[:params.CompareWithCount]
		}
		comparisons, err := compareWindow(ctx, oracle, i, chunk, window)
		if err != nil {
			return nil, err
		}

		merged := []*domain.Chunk{chunk}
		var mergedIndices []int

		for {
			absorbed, stop := planOneMerge(params, &comparisons, &merged, &mergedIndices)
			if !absorbed || stop {
				break
			}
		}

		if len(merged) > 1 {
			newChunk, err := mergeChunks(ctx, constructor, chunk, merged)
			if err != nil {
				return nil, err
			}
			chunks[i] = taggedChunk{chunk: newChunk, provenance: chunks[i].provenance}

			consumed := 0
			for _, j := range mergedIndices {
				if j < unoptimizedCount {
					consumed++
				}
			}
			unoptimizedCount -= consumed

			remove := make(map[*domain.Chunk]struct{}, len(merged)-1)
			for _, c := range merged[1:] {
				remove[c] = struct{}{}
			}
			kept := chunks[:0]
			for _, tc := range chunks {
				if _, drop := remove[tc.chunk]; drop {
					delete(remove, tc.chunk)
					continue
				}
				kept = append(kept, tc)
			}
			chunks = kept
			if len(remove) != 0 {
				return nil, errors.InvariantError("merge plan referenced a chunk that was not present in the working list")
			}
			// i is not advanced: the merged chunk at i may have new
			// neighbors worth comparing against.
		} else {
			i++
		}
	}
	return chunks, nil
}

// compareWindow fans out MetricOracle.Compare calls between chunk and
// each member of window, the suspension site spec.md §5 names for the
// duplication and containment merger.
func compareWindow(ctx context.Context, oracle MetricOracle, baseIndex int, chunk *domain.Chunk, window []taggedChunk) ([]candidate, error) {
	results := make([]candidate, len(window))
	g, gctx := errgroup.WithContext(ctx)
	for j, tc := range window {
		j, tc := j, tc
		g.Go(func() error {
			cmp, err := oracle.Compare(gctx, chunk, tc.chunk)
			if err != nil {
				return err
			}
			results[j] = candidate{
				index:      baseIndex + 1 + j,
				other:      tc.chunk,
				Comparison: cmp,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// planOneMerge evaluates one round of the containment and duplication
// passes against the live comparisons slice, absorbing at most one
// candidate into merged. It reports whether a candidate was absorbed,
// and whether the caller should stop looking for further candidates
// this round (the "left contained" branch skews later comparisons too
// much to keep trusting them).
func planOneMerge(params Params, comparisons *[]candidate, merged *[]*domain.Chunk, mergedIndices *[]int) (absorbed, stop bool) {
	if best, ok := bestContainment(*comparisons); ok {
		left := best.LeftContained()
		right := best.RightContained()
		switch {
		case right < params.ContainedThreshold:
			absorb(comparisons, merged, mergedIndices, best.index, best.other, best.Right)
			return true, false
		case left < params.ContainedThreshold:
			absorb(comparisons, merged, mergedIndices, best.index, best.other, -1)
			return true, true
		}
	}

	if best, ok := bestDuplication(*comparisons); ok {
		if best.Duplication() > params.DuplicationThreshold {
			absorb(comparisons, merged, mergedIndices, best.index, best.other, best.Right)
			return true, false
		}
	}

	return false, false
}

// absorb records other as merged, drops it from the live comparisons
// slice, and, when correction >= 0, applies the left-count correction
// to every remaining comparison against a chunk other than the one
// just absorbed. The correction is an approximation: we don't know how
// many of other's uncontained items are also shared with a given third
// chunk, so we assume none are.
func absorb(comparisons *[]candidate, merged *[]*domain.Chunk, mergedIndices *[]int, index int, other *domain.Chunk, correction int) {
	*merged = append(*merged, other)
	*mergedIndices = append(*mergedIndices, index)

	kept := (*comparisons)[:0]
	for _, c := range *comparisons {
		if c.other == other {
			continue
		}
		if correction >= 0 {
			c.Left += correction
		}
		kept = append(kept, c)
	}
	*comparisons = kept
}

// bestContainment selects the candidate minimizing min(leftContained,
// rightContained): the pair that is most one-sided, in either
// direction, relative to the smaller side's own item count.
func bestContainment(comparisons []candidate) (candidate, bool) {
	if len(comparisons) == 0 {
		return candidate{}, false
	}
	idx := minByKey(comparisons, func(c candidate) float64 {
		l, r := c.LeftContained(), c.RightContained()
		if l < r {
			return l
		}
		return r
	})
	return comparisons[idx], true
}

// bestDuplication selects the candidate with the highest fraction of
// shared chunk items.
func bestDuplication(comparisons []candidate) (candidate, bool) {
	if len(comparisons) == 0 {
		return candidate{}, false
	}
	idx := maxByKey(comparisons, func(c candidate) float64 { return c.Duplication() })
	return comparisons[idx], true
}
