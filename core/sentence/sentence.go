// Package sentence tracks whether the next word opens a sentence.
package sentence

import (
	"github.com/FocuswithJustin/Bolder/core/dom"
	"github.com/FocuswithJustin/Bolder/core/tokenize"
)

// Cursor is the forward-only sentence state threaded through a traversal.
// The zero value is mid-sentence; use New for a fresh traversal.
type Cursor struct {
	atStart bool
}

// New returns a cursor positioned at a sentence start.
func New() Cursor {
	return Cursor{atStart: true}
}

// AtStart reports whether the next word opens a sentence.
func (c Cursor) AtStart() bool {
	return c.atStart
}

// Terminate records a terminator: the next word opens a sentence.
func (c *Cursor) Terminate() {
	c.atStart = true
}

// Consume records a word and reports whether it opened a sentence.
func (c *Cursor) Consume() bool {
	was := c.atStart
	c.atStart = false
	return was
}

// Observe advances the cursor past tok. Separators and other tokens leave it
// unchanged.
func (c *Cursor) Observe(tok tokenize.Token) {
	switch tok.Kind {
	case tokenize.Terminator:
		c.Terminate()
	case tokenize.Word:
		c.Consume()
	}
}

// Before reconstructs the cursor state immediately before unit by scanning
// preceding text leaves backwards for the nearest word or terminator. Leaves
// for which skip returns true are ignored, matching the leaves a forward
// traversal would not have processed.
func Before(unit *dom.Node, tok *tokenize.Tokenizer, skip func(*dom.Node) bool) Cursor {
	for leaf := range dom.PrecedingTextLeaves(unit) {
		if skip != nil && skip(leaf) {
			continue
		}
		tokens := tok.Tokenize(leaf.Data)
		for i := len(tokens) - 1; i >= 0; i-- {
			switch tokens[i].Kind {
			case tokenize.Terminator:
				return Cursor{atStart: true}
			case tokenize.Word:
				return Cursor{atStart: false}
			}
		}
	}
	return New()
}
