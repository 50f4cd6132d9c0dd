package engine

import (
	"github.com/FocuswithJustin/Bolder/core/dom"
	"github.com/FocuswithJustin/Bolder/core/highlight"
)

// Report is the serializable outcome of an annotation pass.
type Report struct {
	Digest  string                 `json:"digest,omitempty"`
	Regions []highlight.WireRegion `json:"regions"`
	Stats   Stats                  `json:"stats"`
}

// Annotate builds an engine from cfg, runs the initial traversal over doc
// and returns it. Used for one-shot annotation where nothing listens to
// individual sink calls.
func Annotate(cfg Config, doc *dom.Document) (*Engine, error) {
	e, err := New(cfg, highlight.Discard)
	if err != nil {
		return nil, err
	}
	if err := e.Start(doc); err != nil {
		return nil, err
	}
	return e, nil
}

// Report snapshots the live regions in document order.
func (e *Engine) Report() Report {
	return Report{
		Regions: highlight.RegionsToWire(e.registry.Regions()),
		Stats:   e.stats,
	}
}

// Marks returns the render options that wrap every live region in a
// <mark> element.
func (e *Engine) Marks(stylesheet string) dom.RenderOptions {
	return dom.RenderOptions{
		Marks:      e.registry.Spans(),
		Class:      highlight.Name,
		Stylesheet: stylesheet,
	}
}
