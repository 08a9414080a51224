package optimizer

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/turbopilot/chunkopt/internal/domain"
)

// fakeOracle implements MetricOracle over module-ID sets attached to
// each chunk by its declared main entries: shared/left/right are
// derived straight from set overlap, which is all the tests below need
// to exercise the thresholds.
type fakeOracle struct {
	CompareFunc         func(ctx context.Context, a, b *domain.Chunk) (domain.Comparison, error)
	ChunkItemsCountFunc func(ctx context.Context, c *domain.Chunk) (int, error)
	itemCounts          map[string]int
}

func (f *fakeOracle) Compare(ctx context.Context, a, b *domain.Chunk) (domain.Comparison, error) {
	if f.CompareFunc != nil {
		return f.CompareFunc(ctx, a, b)
	}
	return compareByMainEntries(a, b), nil
}

func (f *fakeOracle) ChunkItemsCount(ctx context.Context, c *domain.Chunk) (int, error) {
	if f.ChunkItemsCountFunc != nil {
		return f.ChunkItemsCountFunc(ctx, c)
	}
	if n, ok := f.itemCounts[c.ID()]; ok {
		return n, nil
	}
	return len(c.MainEntries()), nil
}

// compareByMainEntries treats each chunk's main entries as its chunk
// item set, matching how the test scenarios in spec §8 are phrased.
func compareByMainEntries(a, b *domain.Chunk) domain.Comparison {
	aSet := make(map[domain.ModuleID]struct{})
	for _, m := range a.MainEntries() {
		aSet[m] = struct{}{}
	}
	bSet := make(map[domain.ModuleID]struct{})
	for _, m := range b.MainEntries() {
		bSet[m] = struct{}{}
	}
	var shared, left, right int
	for m := range aSet {
		if _, ok := bSet[m]; ok {
			shared++
		} else {
			left++
		}
	}
	for m := range bSet {
		if _, ok := aSet[m]; !ok {
			right++
		}
	}
	return domain.Comparison{Shared: shared, Left: left, Right: right}
}

// fakeConstructor builds chunks by straight concatenation of the
// requested fields, stamping each with a unique debugging ID.
type fakeConstructor struct {
	NewNormalizedFunc func(ctx context.Context, chunkingContext domain.ChunkingContext, mainEntries, omitEntries []domain.ModuleID, availability domain.AvailabilityInfo) (*domain.Chunk, error)
	counter           atomic.Int64
}

func (f *fakeConstructor) NewNormalized(ctx context.Context, chunkingContext domain.ChunkingContext, mainEntries, omitEntries []domain.ModuleID, availability domain.AvailabilityInfo) (*domain.Chunk, error) {
	if f.NewNormalizedFunc != nil {
		return f.NewNormalizedFunc(ctx, chunkingContext, mainEntries, omitEntries, availability)
	}
	id := fmt.Sprintf("merged-%d", f.counter.Add(1))
	return domain.NewChunk(id, chunkingContext, mainEntries, omitEntries, availability, domain.AbsentModulePath()), nil
}

func entries(ids ...string) []domain.ModuleID {
	out := make([]domain.ModuleID, len(ids))
	for i, id := range ids {
		out[i] = domain.ModuleID(id)
	}
	return out
}

func rangeEntries(prefix string, from, to int) []domain.ModuleID {
	var out []domain.ModuleID
	for i := from; i <= to; i++ {
		out = append(out, domain.ModuleID(fmt.Sprintf("%s%d", prefix, i)))
	}
	return out
}

func newTestChunk(id string, ctxKey string, mainEntries []domain.ModuleID) *domain.Chunk {
	return domain.NewChunk(id, ctxKey, mainEntries, nil, domain.AvailabilityInfo{}, domain.AbsentModulePath())
}

func allMainEntries(chunks []*domain.Chunk) map[domain.ModuleID]struct{} {
	out := make(map[domain.ModuleID]struct{})
	for _, c := range chunks {
		for _, m := range c.MainEntries() {
			out[m] = struct{}{}
		}
	}
	return out
}
