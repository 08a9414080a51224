// Package domain holds the data model shared by the chunk optimizer and
// its host process: chunks, module identities, and the comparison
// records the optimizer reduces over.
package domain

// ModuleID identifies a single module in the bundler's module graph.
// The optimizer never inspects the value beyond equality and set
// membership.
type ModuleID string

// ChunkingContext is the opaque compatibility key that partitions chunks
// into equivalence classes: chunks may only ever be merged if their
// contexts are equal. Any comparable value works; the reference oracle
// in internal/oracle uses a string.
type ChunkingContext any

// AvailabilityInfo is propagated into merged chunks without ever being
// inspected by the optimizer itself.
type AvailabilityInfo struct {
	// AvailableModules is the set of module identities already emitted
	// by chunks this chunk (transitively) depends on. Opaque to the
	// optimizer; carried only so a merged chunk keeps its source's view.
	AvailableModules []ModuleID
}

// ModulePath is a '/'-separated virtual directory path, used to model a
// chunk's common_parent. It is distinct from an OS filesystem path
// because module graphs are not necessarily backed by a real
// filesystem (virtual modules, resolved aliases, etc).
type ModulePath struct {
	segments []string
	present  bool
}

// NewModulePath builds a present ModulePath from '/'-separated segments.
// An empty segment list is the present root path, distinct from the
// absent path returned by AbsentModulePath.
func NewModulePath(segments ...string) ModulePath {
	cp := make([]string, len(segments))
	copy(cp, segments)
	return ModulePath{segments: cp, present: true}
}

// AbsentModulePath represents a chunk with no common parent (its
// modules don't share a directory prefix, or it has none).
func AbsentModulePath() ModulePath {
	return ModulePath{}
}

// Present reports whether the path is defined.
func (p ModulePath) Present() bool { return p.present }

// Segments returns the path's directory segments. Empty for the root.
func (p ModulePath) Segments() []string {
	out := make([]string, len(p.segments))
	copy(out, p.segments)
	return out
}

// Len returns the number of segments (depth) of the path.
func (p ModulePath) Len() int { return len(p.segments) }

// Prefix returns the ancestor path truncated to the first n segments.
func (p ModulePath) Prefix(n int) ModulePath {
	if n > len(p.segments) {
		n = len(p.segments)
	}
	return NewModulePath(p.segments[:n]...)
}

// Equal reports whether two present paths denote the same location.
// Two absent paths are not equal to each other or to any present path.
func (p ModulePath) Equal(other ModulePath) bool {
	if p.present != other.present || !p.present {
		return false
	}
	if len(p.segments) != len(other.segments) {
		return false
	}
	for i, s := range p.segments {
		if other.segments[i] != s {
			return false
		}
	}
	return true
}

// Chunk is an immutable handle identifying a deployable bundle unit.
// Equality of *Chunk pointers is "handle equality": the optimizer
// relies on pointer identity to recognize a chunk it has already
// planned to merge.
type Chunk struct {
	id               string
	context          ChunkingContext
	mainEntries      []ModuleID
	omitEntries      []ModuleID
	availabilityInfo AvailabilityInfo
	commonParent     ModulePath
}

// NewChunk constructs a chunk handle. Only collaborators (the chunk
// constructor in internal/oracle, or a host-process module-graph loader)
// should call this; the optimizer only ever receives chunks, it never
// builds one from raw fields.
func NewChunk(id string, context ChunkingContext, mainEntries, omitEntries []ModuleID, availability AvailabilityInfo, commonParent ModulePath) *Chunk {
	return &Chunk{
		id:               id,
		context:          context,
		mainEntries:      append([]ModuleID(nil), mainEntries...),
		omitEntries:      append([]ModuleID(nil), omitEntries...),
		availabilityInfo: availability,
		commonParent:     commonParent,
	}
}

// ID is a debugging label; it plays no role in optimizer semantics.
func (c *Chunk) ID() string { return c.id }

// Context returns the chunk's chunking context.
func (c *Chunk) Context() ChunkingContext { return c.context }

// MainEntries returns the chunk's declared entry modules, in order.
func (c *Chunk) MainEntries() []ModuleID {
	out := make([]ModuleID, len(c.mainEntries))
	copy(out, c.mainEntries)
	return out
}

// OmitEntries returns the chunk's excluded modules, in order.
func (c *Chunk) OmitEntries() []ModuleID {
	out := make([]ModuleID, len(c.omitEntries))
	copy(out, c.omitEntries)
	return out
}

// AvailabilityInfo returns the chunk's propagated availability info.
func (c *Chunk) AvailabilityInfo() AvailabilityInfo { return c.availabilityInfo }

// CommonParent returns the longest shared ancestor directory of the
// chunk's module paths, or an absent ModulePath if none.
func (c *Chunk) CommonParent() ModulePath { return c.commonParent }

// Set is an ordered sequence of chunks. Order is observable: it is
// preserved through every merge except where the optimizer explicitly
// sorts or re-groups.
type Set []*Chunk
