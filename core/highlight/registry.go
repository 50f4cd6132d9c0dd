// Package highlight owns the set of highlighted regions and keeps the
// rendering sink in step with it.
package highlight

import (
	"sort"

	"github.com/FocuswithJustin/Bolder/core/classify"
	"github.com/FocuswithJustin/Bolder/core/dom"
)

// Name is the highlight name used by renderers and stylesheets.
const Name = "bolder-highlight"

// Region is a highlighted word inside a text node. Start and End are byte
// offsets; the UTF-16 offsets are fixed against the text the region was
// added for, so a later withdraw names the same range as the add.
type Region struct {
	Anchor *dom.Node
	Start  int
	End    int
	Word   string
	Rule   classify.Rule

	UTF16Start int
	UTF16End   int
	measured   bool
}

// measure fixes r's UTF-16 offsets against the anchor's current text.
func (r Region) measure() Region {
	if r.measured || r.Anchor == nil {
		return r
	}
	r.UTF16Start = utf16Offset(r.Anchor.Data, r.Start)
	r.UTF16End = utf16Offset(r.Anchor.Data, r.End)
	r.measured = true
	return r
}

type key struct {
	anchor     *dom.Node
	start, end int
}

func (r Region) key() key {
	return key{anchor: r.Anchor, start: r.Start, end: r.End}
}

// Sink renders regions. It is write-only: the registry never asks a sink what
// it holds.
type Sink interface {
	Add(Region)
	Withdraw(Region)
}

type discard struct{}

func (discard) Add(Region)      {}
func (discard) Withdraw(Region) {}

// Discard is a Sink that renders nothing.
var Discard Sink = discard{}

// Registry tracks live regions. At most one region exists per
// (anchor, start, end). It is not safe for concurrent use; callers run it on
// a single goroutine.
type Registry struct {
	sink     Sink
	regions  map[key]Region
	byAnchor map[*dom.Node]map[key]struct{}
}

// NewRegistry creates an empty registry that reports to sink.
func NewRegistry(sink Sink) *Registry {
	if sink == nil {
		sink = Discard
	}
	return &Registry{
		sink:     sink,
		regions:  make(map[key]Region),
		byAnchor: make(map[*dom.Node]map[key]struct{}),
	}
}

// Add tracks r and renders it. It returns false when an identical region is
// already tracked.
func (g *Registry) Add(r Region) bool {
	if r.Anchor == nil {
		return false
	}
	k := r.key()
	if _, ok := g.regions[k]; ok {
		return false
	}
	r = r.measure()
	g.regions[k] = r
	set := g.byAnchor[r.Anchor]
	if set == nil {
		set = make(map[key]struct{})
		g.byAnchor[r.Anchor] = set
	}
	set[k] = struct{}{}
	g.sink.Add(r)
	return true
}

// RemoveAllForUnit withdraws every region anchored to unit and returns how
// many were removed.
func (g *Registry) RemoveAllForUnit(unit *dom.Node) int {
	keys := sortedKeys(g.byAnchor[unit])
	for _, k := range keys {
		g.delete(k)
	}
	return len(keys)
}

// SweepStale withdraws regions whose anchor is detached, is no longer a text
// node, or no longer holds the recorded word at the recorded offsets. It is
// idempotent and leaves valid regions untouched.
func (g *Registry) SweepStale() int {
	var stale []key
	for k, r := range g.regions {
		if !Live(r) {
			stale = append(stale, k)
		}
	}
	sortKeys(stale)
	for _, k := range stale {
		g.delete(k)
	}
	return len(stale)
}

// Live reports whether r still describes a rendered word in the document.
func Live(r Region) bool {
	a := r.Anchor
	if a == nil || a.Kind != dom.TextNode || !a.IsConnected() {
		return false
	}
	if r.Start < 0 || r.End > len(a.Data) || r.Start >= r.End {
		return false
	}
	return r.Word == "" || a.Data[r.Start:r.End] == r.Word
}

// Clear withdraws every region.
func (g *Registry) Clear() {
	keys := make([]key, 0, len(g.regions))
	for k := range g.regions {
		keys = append(keys, k)
	}
	sortKeys(keys)
	for _, k := range keys {
		g.delete(k)
	}
}

func (g *Registry) delete(k key) {
	r, ok := g.regions[k]
	if !ok {
		return
	}
	delete(g.regions, k)
	if set := g.byAnchor[k.anchor]; set != nil {
		delete(set, k)
		if len(set) == 0 {
			delete(g.byAnchor, k.anchor)
		}
	}
	g.sink.Withdraw(r)
}

// Len returns the number of tracked regions.
func (g *Registry) Len() int {
	return len(g.regions)
}

// Has reports whether a region with the same anchor and offsets is tracked.
func (g *Registry) Has(r Region) bool {
	_, ok := g.regions[r.key()]
	return ok
}

// ForUnit returns the regions anchored to unit ordered by offset.
func (g *Registry) ForUnit(unit *dom.Node) []Region {
	set := g.byAnchor[unit]
	out := make([]Region, 0, len(set))
	for _, k := range sortedKeys(set) {
		out = append(out, g.regions[k])
	}
	return out
}

// Regions returns every tracked region ordered by anchor ID then offset.
// Node IDs increase in creation order, which matches document order for
// parsed content.
func (g *Registry) Regions() []Region {
	keys := make([]key, 0, len(g.regions))
	for k := range g.regions {
		keys = append(keys, k)
	}
	sortKeys(keys)
	out := make([]Region, len(keys))
	for i, k := range keys {
		out[i] = g.regions[k]
	}
	return out
}

// Spans groups the tracked regions per anchor for rendering.
func (g *Registry) Spans() map[*dom.Node][]dom.Span {
	out := make(map[*dom.Node][]dom.Span, len(g.byAnchor))
	for _, r := range g.Regions() {
		out[r.Anchor] = append(out[r.Anchor], dom.Span{Start: r.Start, End: r.End})
	}
	return out
}

func sortedKeys(set map[key]struct{}) []key {
	keys := make([]key, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sortKeys(keys)
	return keys
}

func sortKeys(keys []key) {
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.anchor.ID != b.anchor.ID {
			return a.anchor.ID < b.anchor.ID
		}
		if a.start != b.start {
			return a.start < b.start
		}
		return a.end < b.end
	})
}
