package domain

// Comparison is the result of comparing two chunks' chunk-item sets:
// how many items are only in the left chunk, only in the right, and
// shared by both. All three are non-negative.
type Comparison struct {
	Shared int
	Left   int
	Right  int
}

// LeftContained is the fraction of the left chunk's items that are NOT
// shared with the right chunk: close to 0 means the left chunk is
// almost entirely contained in the right. It is 1 when the left side
// has no items at all.
func (c Comparison) LeftContained() float64 {
	if c.Left+c.Shared == 0 {
		return 1
	}
	return ratio(float64(c.Left), float64(c.Left+c.Shared))
}

// RightContained is the fraction of the right chunk's items that are
// NOT shared with the left chunk. It is 1 when the right side has no
// items at all.
func (c Comparison) RightContained() float64 {
	if c.Right+c.Shared == 0 {
		return 1
	}
	return ratio(float64(c.Right), float64(c.Right+c.Shared))
}

// Duplication is the fraction of the pair's total distinct items that
// are shared between the two chunks.
func (c Comparison) Duplication() float64 {
	return ratio(float64(c.Shared), float64(c.Left+c.Right+c.Shared))
}

// ratio returns num/den, defined as 0 when den is 0. Together with the
// contained ratios reading 1 on an empty side, this means an empty chunk
// on both sides is not "fully contained" or "fully duplicated", it is
// simply uninformative.
func ratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}
