// Package oracle provides the reference MetricOracle and ChunkConstructor
// implementations the host process wires into the optimizer: a module
// graph tracking which underlying chunk items each module contributes,
// and a normalizing chunk constructor built on top of it.
package oracle

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/turbopilot/chunkopt/internal/domain"
)

// ModuleGraph tracks, for each module, the set of underlying chunk item
// identifiers it contributes to any chunk that declares it as a main
// entry. A module usually contributes exactly one item (itself), but
// may contribute more when it re-exports or inlines helpers the
// upstream chunk-assignment stage decided to keep addressable
// separately.
type ModuleGraph struct {
	mu    sync.RWMutex
	items map[domain.ModuleID][]string
	paths map[string][]domain.ModuleID
}

// NewModuleGraph creates an empty module graph.
func NewModuleGraph() *ModuleGraph {
	return &ModuleGraph{
		items: make(map[domain.ModuleID][]string),
		paths: make(map[string][]domain.ModuleID),
	}
}

// AddModule records the chunk items a module contributes. Calling it
// again for the same module replaces its item set.
func (g *ModuleGraph) AddModule(id domain.ModuleID, items ...string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	cp := make([]string, len(items))
	copy(cp, items)
	g.items[id] = cp
}

// RegisterPath associates a filesystem path with the module identities
// it defines, so ModulesForPath can resolve a watch.Watcher's raw path
// events back to the modules a host process needs to invalidate.
// Calling it again for the same path replaces its module list.
func (g *ModuleGraph) RegisterPath(path string, ids ...domain.ModuleID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	cp := make([]domain.ModuleID, len(ids))
	copy(cp, ids)
	g.paths[path] = cp
}

// ModulesForPath returns the module identities registered for path, or
// an empty slice if none are registered. It implements watch.PathResolver.
func (g *ModuleGraph) ModulesForPath(path string) []domain.ModuleID {
	g.mu.RLock()
	defer g.mu.RUnlock()
	ids := g.paths[path]
	out := make([]domain.ModuleID, len(ids))
	copy(out, ids)
	return out
}

// itemsFor returns a module's chunk items, defaulting to a single item
// named after the module itself when the module was never registered
// (keeps ad hoc/test usage convenient without requiring every module to
// be pre-declared).
func (g *ModuleGraph) itemsFor(id domain.ModuleID) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if items, ok := g.items[id]; ok {
		return items
	}
	return []string{"item:" + string(id)}
}

// itemSet resolves a chunk's main entries (minus its omit entries) into
// the deduplicated set of underlying chunk item identifiers.
func (g *ModuleGraph) itemSet(c *domain.Chunk) map[string]struct{} {
	omit := make(map[domain.ModuleID]struct{}, len(c.OmitEntries()))
	for _, m := range c.OmitEntries() {
		omit[m] = struct{}{}
	}
	set := make(map[string]struct{})
	for _, m := range c.MainEntries() {
		if _, excluded := omit[m]; excluded {
			continue
		}
		for _, item := range g.itemsFor(m) {
			set[item] = struct{}{}
		}
	}
	return set
}

// GraphOracle implements optimizer.MetricOracle over a ModuleGraph.
type GraphOracle struct {
	graph *ModuleGraph
}

// NewGraphOracle wraps a module graph as a metric oracle.
func NewGraphOracle(graph *ModuleGraph) *GraphOracle {
	return &GraphOracle{graph: graph}
}

// Compare reports the chunk-item overlap between a and b.
func (o *GraphOracle) Compare(ctx context.Context, a, b *domain.Chunk) (domain.Comparison, error) {
	aSet := o.graph.itemSet(a)
	bSet := o.graph.itemSet(b)

	var shared, left, right int
	for item := range aSet {
		if _, ok := bSet[item]; ok {
			shared++
		} else {
			left++
		}
	}
	for item := range bSet {
		if _, ok := aSet[item]; !ok {
			right++
		}
	}
	return domain.Comparison{Shared: shared, Left: left, Right: right}, nil
}

// ChunkItemsCount reports the number of distinct chunk items a chunk
// resolves to.
func (o *GraphOracle) ChunkItemsCount(ctx context.Context, c *domain.Chunk) (int, error) {
	return len(o.graph.itemSet(c)), nil
}

// NormalizedConstructor implements optimizer.ChunkConstructor, minting
// fresh chunk handles with deterministic, debuggable IDs.
type NormalizedConstructor struct {
	counter atomic.Int64
}

// NewNormalizedConstructor returns a ready-to-use chunk constructor.
func NewNormalizedConstructor() *NormalizedConstructor {
	return &NormalizedConstructor{}
}

// NewNormalized builds a chunk from the given fields, assigning it a
// fresh sequential ID. Entry order is preserved on the returned chunk,
// since entry order is observable per the optimizer's data model.
func (c *NormalizedConstructor) NewNormalized(ctx context.Context, chunkingContext domain.ChunkingContext, mainEntries, omitEntries []domain.ModuleID, availability domain.AvailabilityInfo) (*domain.Chunk, error) {
	id := fmt.Sprintf("chunk-%d", c.counter.Add(1))
	return domain.NewChunk(id, chunkingContext, mainEntries, omitEntries, availability, commonParentOf(mainEntries)), nil
}

// commonParentOf is a stand-in for the upstream module-graph's notion of
// common_parent: since this reference oracle has no real filesystem, it
// always reports the path as absent. A host process backed by a real
// module graph (cmd/chunkopt-server wires one via internal/watch) can
// supply a richer ChunkConstructor that tracks real source paths.
func commonParentOf(mainEntries []domain.ModuleID) domain.ModulePath {
	_ = mainEntries
	return domain.AbsentModulePath()
}
