// Package block finds the structural block that encloses a text node and
// decides whether the node carries the block's first word.
package block

import (
	"strings"

	"github.com/FocuswithJustin/Bolder/core/dom"
	"github.com/FocuswithJustin/Bolder/core/tokenize"
	"github.com/FocuswithJustin/Bolder/core/visibility"
)

// DefaultBlockTags are the containers treated as blocks.
var DefaultBlockTags = []string{
	"DIV", "P", "LI", "TD", "TH", "H1", "H2", "H3", "H4", "H5", "H6",
	"HEADER", "FOOTER", "SECTION", "ARTICLE", "ASIDE", "BLOCKQUOTE", "FIGCAPTION",
}

// Resolver answers block-boundary questions for text nodes.
type Resolver struct {
	blocks map[string]bool
	filter *visibility.Filter
}

// New creates a resolver. filter decides which sibling subtrees count as
// visible text; it may be nil to count everything.
func New(blockTags []string, filter *visibility.Filter) *Resolver {
	r := &Resolver{blocks: make(map[string]bool, len(blockTags)), filter: filter}
	for _, tag := range blockTags {
		r.blocks[strings.ToUpper(tag)] = true
	}
	return r
}

// IsBlock reports whether n is a block element.
func (r *Resolver) IsBlock(n *dom.Node) bool {
	return n.IsElement() && r.blocks[n.Tag]
}

// Parent returns the nearest block ancestor of unit. BODY ends the search;
// without a BODY the tree root is returned.
func (r *Resolver) Parent(unit *dom.Node) *dom.Node {
	var last *dom.Node
	for p := range unit.Ancestors() {
		if r.IsBlock(p) || p.Is("body") {
			return p
		}
		last = p
	}
	if last == nil {
		return unit
	}
	return last
}

// IsFirstWord reports whether unit holds the first visible text of parent.
// At each level up to parent, preceding siblings are scanned nearest first:
// a <br> marks a block start, a sibling with visible letters means unit is
// not first.
func (r *Resolver) IsFirstWord(unit, parent *dom.Node) bool {
	for cur := unit; cur != nil && cur != parent; cur = cur.Parent {
		for sib := cur.PrevSibling; sib != nil; sib = sib.PrevSibling {
			if sib.Is("br") {
				return true
			}
			if r.hasVisibleText(sib) {
				return false
			}
		}
	}
	return true
}

// hasVisibleText reports whether n renders any ASCII letter.
func (r *Resolver) hasVisibleText(n *dom.Node) bool {
	switch n.Kind {
	case dom.TextNode:
		return tokenize.HasLetter(n.Data)
	case dom.ElementNode:
		if r.filter != nil && r.filter.Excluded(n) {
			return false
		}
		for leaf := range dom.TextLeaves(n) {
			if r.filter != nil && r.filter.Excluded(leaf) {
				continue
			}
			if tokenize.HasLetter(leaf.Data) {
				return true
			}
		}
	}
	return false
}

// WordCount counts the visible words in parent.
func (r *Resolver) WordCount(parent *dom.Node, tok *tokenize.Tokenizer) int {
	count := 0
	for leaf := range dom.TextLeaves(parent) {
		if r.filter != nil && r.filter.Excluded(leaf) {
			continue
		}
		count += len(tok.Words(leaf.Data))
	}
	return count
}
