package script

import (
	"context"
	"fmt"

	"github.com/FocuswithJustin/Bolder/core/dom"
	"github.com/FocuswithJustin/Bolder/core/errors"
	"github.com/FocuswithJustin/Bolder/core/mutation"
)

// Result summarizes a script run.
type Result struct {
	Statements int
	Batches    []mutation.Stats
	Swept      int
}

// Runner applies scripts to a document and feeds the resulting mutation
// records to a synchronizer. The document must be observing mutations.
type Runner struct {
	Doc  *dom.Document
	Sync *mutation.Synchronizer
	// OnBatch, if set, is called after every flush and sweep so callers can
	// forward rendering commands incrementally.
	OnBatch func(mutation.Stats)
}

// Run executes s in order. Pending records are flushed at each flush
// statement and once more at the end. Execution stops at the first failing
// statement; records produced before the failure are still flushed.
func (r *Runner) Run(ctx context.Context, s *Script) (res Result, err error) {
	defer func() {
		if pending := r.Doc.TakeRecords(); len(pending) > 0 {
			r.deliver(&res, r.Sync.Handle(pending))
		}
	}()
	for _, st := range s.Statements {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		switch st.Op {
		case OpFlush:
			r.deliver(&res, r.Sync.Flush(r.Doc))
		case OpSweep:
			r.deliver(&res, mutation.Stats{Swept: r.Sync.Sweep("script")})
		default:
			if err := Apply(r.Doc, st); err != nil {
				return res, errors.Wrapf(err, "%s line %d", s.Name, st.Line)
			}
		}
		res.Statements++
	}
	return res, nil
}

func (r *Runner) deliver(res *Result, stats mutation.Stats) {
	res.Batches = append(res.Batches, stats)
	res.Swept += stats.Swept
	if r.OnBatch != nil {
		r.OnBatch(stats)
	}
}

// Apply performs one editing statement against doc. Every node the target
// expression selects is edited; selecting nothing is an error.
func Apply(doc *dom.Document, st Statement) error {
	targets, err := dom.Select(doc.Root, st.Target)
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		return errors.NewNotFound("script target", st.Target)
	}
	for _, t := range targets {
		if err := apply(doc, st, t); err != nil {
			return err
		}
	}
	return nil
}

func apply(doc *dom.Document, st Statement, target *dom.Node) error {
	switch st.Op {
	case OpAppend:
		nodes, err := doc.ParseFragment(st.Value, target)
		if err != nil {
			return err
		}
		for _, n := range nodes {
			if err := doc.AppendChild(target, n); err != nil {
				return err
			}
		}
	case OpInsert:
		if target.Parent == nil {
			return errors.NewValidation("target", "insert needs a target with a parent")
		}
		nodes, err := doc.ParseFragment(st.Value, target.Parent)
		if err != nil {
			return err
		}
		for _, n := range nodes {
			if err := doc.InsertBefore(target.Parent, n, target); err != nil {
				return err
			}
		}
	case OpRemove:
		// A previous match may have taken this node with it.
		if target.Parent == nil {
			return nil
		}
		return doc.RemoveChild(target)
	case OpSet:
		if target.IsText() {
			return doc.SetText(target, st.Value)
		}
		if !target.IsElement() {
			return errors.NewValidation("target", "set needs a text node or an element")
		}
		return doc.ReplaceChildren(target, doc.CreateText(st.Value))
	default:
		return errors.NewUnsupported("statement", fmt.Sprintf("%v cannot be applied to a document", st.Op))
	}
	return nil
}
