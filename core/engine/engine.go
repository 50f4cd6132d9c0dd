// Package engine drives classification over a document: it walks text
// units in document order, threads the sentence cursor through them and
// registers a highlight region for every qualifying word.
package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/FocuswithJustin/Bolder/core/block"
	"github.com/FocuswithJustin/Bolder/core/classify"
	"github.com/FocuswithJustin/Bolder/core/dom"
	"github.com/FocuswithJustin/Bolder/core/errors"
	"github.com/FocuswithJustin/Bolder/core/highlight"
	"github.com/FocuswithJustin/Bolder/core/sentence"
	"github.com/FocuswithJustin/Bolder/core/tokenize"
	"github.com/FocuswithJustin/Bolder/core/visibility"
	"github.com/FocuswithJustin/Bolder/internal/logging"
)

// Stats counts engine activity since construction.
type Stats struct {
	Units   int `json:"units"`   // text units processed
	Regions int `json:"regions"` // regions registered
	Faults  int `json:"faults"`  // units whose processing panicked
	Sweeps  int `json:"sweeps"`  // stale sweeps run
	Swept   int `json:"swept"`   // regions removed by sweeps
}

// Engine owns the registry and the collaborators used to fill it. It is not
// safe for concurrent use; all calls must come from one goroutine.
type Engine struct {
	cfg        Config
	classifier *classify.Classifier
	tokenizer  *tokenize.Tokenizer
	filter     *visibility.Filter
	blocks     *block.Resolver
	registry   *highlight.Registry

	doc   *dom.Document
	inert bool
	stats Stats
}

// New validates cfg and builds an engine that renders through sink. A nil
// sink means the environment cannot render highlights.
func New(cfg Config, sink highlight.Sink) (*Engine, error) {
	if sink == nil {
		return nil, errors.NewUnsupported("highlight rendering", "no rendering sink available")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	filter, err := visibility.New(cfg.ExcludedTags, cfg.ExcludeSelectors)
	if err != nil {
		return nil, errors.Wrap(err, "invalid exclude selector")
	}
	return &Engine{
		cfg:        cfg,
		classifier: classify.New(cfg.MinUppercaseLen, cfg.MinCapitalizedLen),
		tokenizer:  tokenize.New([]rune(cfg.Terminators)),
		filter:     filter,
		blocks:     block.New(cfg.BlockTags, filter),
		registry:   highlight.NewRegistry(sink),
	}, nil
}

// Start runs the initial traversal of doc's body. Any fault that escapes the
// per-unit isolation clears the registry and leaves the engine inert.
func (e *Engine) Start(doc *dom.Document) (err error) {
	if doc == nil || doc.Root == nil {
		return errors.NewValidation("document", "must not be nil")
	}
	if e.inert {
		return errors.NewUnsupported("start", "engine is inert after an initialization fault")
	}
	started := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = errors.NewProcess(0, "start", fmt.Errorf("%v", r))
			e.inert = true
			e.safeClear()
			logging.Error("engine_initialization_failed", "error", err.Error())
		}
	}()
	e.doc = doc
	units := e.stats.Units
	e.Traverse(doc.Body(), sentence.New())
	logging.TraversalCompleted("initial", e.stats.Units-units, e.registry.Len(), time.Since(started))
	return nil
}

// Traverse processes every text leaf under root in document order, threading
// cur through them, and returns the cursor after the last leaf.
func (e *Engine) Traverse(root *dom.Node, cur sentence.Cursor) sentence.Cursor {
	if e.inert || root == nil {
		return cur
	}
	// Collect first: processing must not observe leaves added mid-walk.
	var leaves []*dom.Node
	for leaf := range dom.TextLeaves(root) {
		leaves = append(leaves, leaf)
	}
	for _, leaf := range leaves {
		cur = e.Process(leaf, cur)
	}
	return cur
}

// Process classifies one text unit, replacing any regions it held, and
// returns the advanced cursor. A panic inside the unit is logged, the unit's
// regions are withdrawn and the cursor is returned unchanged.
func (e *Engine) Process(unit *dom.Node, cur sentence.Cursor) (out sentence.Cursor) {
	if e.inert || !unit.IsText() {
		return cur
	}
	out = cur
	defer func() {
		if r := recover(); r != nil {
			perr := errors.NewProcess(unit.ID, "process", fmt.Errorf("%v", r))
			e.stats.Faults++
			logging.UnitFault(unit.ID, perr.Stage, perr.Err)
			e.registry.RemoveAllForUnit(unit)
			out = cur
		}
	}()

	// Withdraw before the eligibility checks so a unit that became hidden
	// loses its old regions.
	e.registry.RemoveAllForUnit(unit)
	if e.filter.Excluded(unit) || strings.TrimSpace(unit.Data) == "" {
		return cur
	}
	e.stats.Units++

	parent := e.blocks.Parent(unit)
	blockStart := e.blocks.IsFirstWord(unit, parent)
	suppressed := e.cfg.MinWordsInBlock > 0 && e.blocks.WordCount(parent, e.tokenizer) < e.cfg.MinWordsInBlock

	for _, tok := range e.tokenizer.Tokenize(unit.Data) {
		switch tok.Kind {
		case tokenize.Terminator:
			out.Terminate()
			blockStart = false
		case tokenize.Word:
			opensBlock := blockStart
			blockStart = false
			opensSentence := out.Consume()
			if opensBlock || opensSentence || suppressed {
				continue
			}
			rule, ok := e.classifier.Classify(tok.Text)
			if !ok {
				continue
			}
			if e.registry.Add(highlight.Region{Anchor: unit, Start: tok.Start, End: tok.End, Word: tok.Text, Rule: rule}) {
				e.stats.Regions++
			}
		}
	}
	return out
}

// Reprocess re-runs a single unit out of traversal order. The sentence state
// is rebuilt from the visible text preceding the unit rather than taken from
// whatever was processed last.
func (e *Engine) Reprocess(unit *dom.Node) {
	if e.inert || unit == nil || !unit.IsConnected() {
		return
	}
	e.Process(unit, e.cursorBefore(unit))
}

// ReprocessSubtree re-runs every text unit under root, starting from the
// sentence state that precedes root.
func (e *Engine) ReprocessSubtree(root *dom.Node) {
	if e.inert || root == nil || !root.IsConnected() {
		return
	}
	if root.IsText() {
		e.Reprocess(root)
		return
	}
	e.Traverse(root, e.cursorBefore(root))
}

func (e *Engine) cursorBefore(n *dom.Node) sentence.Cursor {
	return sentence.Before(n, e.tokenizer, e.filter.Excluded)
}

// Sweep withdraws stale regions and returns how many were removed.
func (e *Engine) Sweep(trigger string) int {
	if e.inert {
		return 0
	}
	removed := e.registry.SweepStale()
	e.stats.Sweeps++
	e.stats.Swept += removed
	logging.SweepCompleted(trigger, removed, e.registry.Len())
	return removed
}

// safeClear withdraws everything, tolerating a sink that faults on withdraw.
func (e *Engine) safeClear() {
	defer func() {
		if r := recover(); r != nil {
			logging.Warn("engine_clear_failed", "error", fmt.Sprint(r))
		}
	}()
	e.registry.Clear()
}

// Inert reports whether an initialization fault disabled the engine.
func (e *Engine) Inert() bool { return e.inert }

// Document returns the document passed to Start.
func (e *Engine) Document() *dom.Document { return e.doc }

// Registry returns the engine's region registry.
func (e *Engine) Registry() *highlight.Registry { return e.registry }

// Tokenizer returns the configured tokenizer.
func (e *Engine) Tokenizer() *tokenize.Tokenizer { return e.tokenizer }

// Filter returns the configured visibility filter.
func (e *Engine) Filter() *visibility.Filter { return e.filter }

// Classifier returns the configured classifier.
func (e *Engine) Classifier() *classify.Classifier { return e.classifier }

// Config returns the engine configuration.
func (e *Engine) Config() Config { return e.cfg }

// Stats returns a snapshot of the activity counters.
func (e *Engine) Stats() Stats { return e.stats }
