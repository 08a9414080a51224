package optimizer

import (
	"context"

	"github.com/turbopilot/chunkopt/internal/domain"
)

// MetricOracle answers the two queries the optimizer needs about chunk
// contents without ever seeing the contents itself: pairwise overlap,
// and chunk size. Implementations are expected to memoize: the
// optimizer may ask the same question more than once across a single
// invocation (e.g. during the second pass of the duplication merger).
type MetricOracle interface {
	// Compare reports how many chunk items are unique to a, unique to
	// b, and shared between them.
	Compare(ctx context.Context, a, b *domain.Chunk) (domain.Comparison, error)
	// ChunkItemsCount reports the number of chunk items in c.
	ChunkItemsCount(ctx context.Context, c *domain.Chunk) (int, error)
}

// ChunkConstructor builds new chunk handles. The optimizer never
// assembles a *domain.Chunk directly; every merge or normalization goes
// through this collaborator so the host process can assign fresh
// identities, update its own bookkeeping, or reject an impossible
// construction (e.g. inconsistent contexts).
type ChunkConstructor interface {
	// NewNormalized builds a chunk from already-deduplicated fields, for
	// the entry-point normalization pass and the merge primitive.
	NewNormalized(ctx context.Context, chunkingContext domain.ChunkingContext, mainEntries, omitEntries []domain.ModuleID, availability domain.AvailabilityInfo) (*domain.Chunk, error)
}
