// Package mutation keeps an engine's regions in step with document edits.
package mutation

import (
	"context"
	"fmt"
	"time"

	"github.com/FocuswithJustin/Bolder/core/dom"
	"github.com/FocuswithJustin/Bolder/core/engine"
	"github.com/FocuswithJustin/Bolder/internal/logging"
)

// Stats summarizes one handled batch.
type Stats struct {
	Records   int `json:"records"`   // records in the batch
	Processed int `json:"processed"` // text units or subtrees reprocessed
	Skipped   int `json:"skipped"`   // targets skipped as duplicates or disconnected
	Swept     int `json:"swept"`     // regions removed by the post-batch sweep
}

// Synchronizer applies mutation records to an engine. Like the engine it
// wraps, it must be driven from a single goroutine.
type Synchronizer struct {
	engine *engine.Engine
}

// New creates a synchronizer for e.
func New(e *engine.Engine) *Synchronizer {
	return &Synchronizer{engine: e}
}

// Handle applies a batch in delivery order. Added elements are traversed,
// added text units and text changes are reprocessed, and any removal
// triggers a stale sweep once the batch is done. A unit is reprocessed at
// most once per batch.
func (s *Synchronizer) Handle(records []dom.Record) (stats Stats) {
	stats.Records = len(records)
	if len(records) == 0 || s.engine.Inert() {
		return stats
	}
	started := time.Now()
	defer func() {
		// Per-unit faults are isolated by the engine; this catches a sink
		// that also faults while withdrawing.
		if r := recover(); r != nil {
			logging.Error("mutation_batch_failed", "error", fmt.Sprint(r), "records", len(records))
		}
	}()

	seen := make(map[*dom.Node]bool)
	dirty := false
	visit := func(n *dom.Node, fn func(*dom.Node)) {
		if n == nil || !n.IsConnected() || covered(seen, n) {
			stats.Skipped++
			return
		}
		seen[n] = true
		fn(n)
		stats.Processed++
	}

	for _, rec := range records {
		switch rec.Type {
		case dom.ChildList:
			if len(rec.Removed) > 0 {
				dirty = true
			}
			for _, n := range rec.Added {
				switch n.Kind {
				case dom.ElementNode:
					visit(n, s.engine.ReprocessSubtree)
				case dom.TextNode:
					visit(n, s.engine.Reprocess)
				}
			}
		case dom.CharacterData:
			if !rec.Target.IsText() {
				continue
			}
			if !rec.Target.IsConnected() {
				s.engine.Registry().RemoveAllForUnit(rec.Target)
			}
			// Reprocess withdraws the unit's old regions before classifying.
			visit(rec.Target, s.engine.Reprocess)
		}
	}
	if dirty {
		stats.Swept = s.engine.Sweep("mutation")
	}
	logging.TraversalCompleted("mutation", stats.Processed, s.engine.Registry().Len(), time.Since(started),
		"records", stats.Records, "skipped", stats.Skipped)
	return stats
}

// covered reports whether n or one of its ancestors was already handled in
// this batch.
func covered(seen map[*dom.Node]bool, n *dom.Node) bool {
	if seen[n] {
		return true
	}
	for p := range n.Ancestors() {
		if seen[p] {
			return true
		}
	}
	return false
}

// Run is the event loop: it handles batches as they arrive and runs the
// safety-net sweep every interval. It returns nil when batches is closed and
// the context error when ctx is done. onBatch, if set, is called after each
// batch and each tick so callers can flush their sink.
func (s *Synchronizer) Run(ctx context.Context, batches <-chan []dom.Record, interval time.Duration, onBatch func(Stats)) error {
	if interval <= 0 {
		interval = engine.DefaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case batch, ok := <-batches:
			if !ok {
				return nil
			}
			stats := s.Handle(batch)
			if onBatch != nil {
				onBatch(stats)
			}
		case <-ticker.C:
			stats := Stats{Swept: s.engine.Sweep("interval")}
			if onBatch != nil {
				onBatch(stats)
			}
		}
	}
}

// Sweep runs an out-of-band stale sweep.
func (s *Synchronizer) Sweep(trigger string) int {
	return s.engine.Sweep(trigger)
}

// Flush drains pending records from doc and handles them.
func (s *Synchronizer) Flush(doc *dom.Document) Stats {
	return s.Handle(doc.TakeRecords())
}
