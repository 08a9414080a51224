package optimizer

import "github.com/turbopilot/chunkopt/internal/domain"

// provenance tags a chunk with the descendant sub-result it came from
// within the tree reduction, used only as a grouping hint by the
// count-limiting merger. A nil provenance means "came from this node's
// own local chunks, not a child". Each child's sub-result gets its own
// provenanceTag instance, which is never dereferenced — only compared
// for identity.
type provenance *provenanceTag

type provenanceTag struct{}

func newProvenance() provenance { return &provenanceTag{} }

// taggedChunk pairs a chunk with its provenance for the duration of a
// single optimizeLocal call.
type taggedChunk struct {
	chunk      *domain.Chunk
	provenance provenance
}
