package optimizer

// Params collects the optimizer's tuned thresholds. The defaults match
// the values the algorithm was empirically tuned against; they are
// exposed as configuration only so tests (and an operator, through
// internal/config) can override them, not because they are expected to
// vary in normal operation.
type Params struct {
	// CompareWithCount bounds how many following chunks a chunk is
	// compared against in the duplication/containment pass, capping the
	// cost of that pass at O(n * CompareWithCount) instead of O(n^2).
	CompareWithCount int
	// DuplicationThreshold is the minimum duplication ratio at which two
	// chunks are merged for sharing too much content.
	DuplicationThreshold float64
	// ContainedThreshold is the maximum left/right-contained ratio at
	// which a chunk is treated as almost wholly contained in another.
	ContainedThreshold float64
	// LocalChunkMergeThreshold is the number of same-directory chunks
	// above which they are first collapsed by size before similarity
	// merging, to bound fan-out.
	LocalChunkMergeThreshold int
	// TotalChunkMergeThreshold is the chunk count above which the
	// count-limiting merger runs to bring the set back under the limit.
	TotalChunkMergeThreshold int
	// MaxChunkItemsPerChunk is the size ceiling a merged chunk must stay
	// under; chunks already at or above it pass through unmerged.
	MaxChunkItemsPerChunk int
}

// DefaultParams returns the optimizer's tuned constants.
func DefaultParams() Params {
	return Params{
		CompareWithCount:         100,
		DuplicationThreshold:     0.10,
		ContainedThreshold:       0.05,
		LocalChunkMergeThreshold: 20,
		TotalChunkMergeThreshold: 20,
		MaxChunkItemsPerChunk:    3000,
	}
}
