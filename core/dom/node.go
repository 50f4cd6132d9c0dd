// Package dom provides the mutable document tree that Bolder annotates.
//
// Nodes are a tagged variant: the Kind field selects which of the fields are
// meaningful. Element nodes carry Tag and Attr, text and comment nodes carry
// Data. All structural edits go through a Document so that they can be
// reported as mutation records.
package dom

import (
	"iter"
	"strings"
)

// Kind identifies the variant of a Node.
type Kind int

const (
	// DocumentNode is the root of a document tree.
	DocumentNode Kind = iota
	// ElementNode is a tagged element with attributes and children.
	ElementNode
	// TextNode is a leaf of renderable text.
	TextNode
	// CommentNode is a comment; never rendered as text.
	CommentNode
)

// String returns the lower-case name of the kind.
func (k Kind) String() string {
	switch k {
	case DocumentNode:
		return "document"
	case ElementNode:
		return "element"
	case TextNode:
		return "text"
	case CommentNode:
		return "comment"
	default:
		return "unknown"
	}
}

// Attr is a single element attribute. Keys are stored lower-case.
type Attr struct {
	Key string
	Val string
}

// Node is a single node in a document tree.
type Node struct {
	ID   uint64
	Kind Kind
	Tag  string // upper-case tag name for elements
	Data string // text for text and comment nodes
	Attr []Attr

	Parent      *Node
	FirstChild  *Node
	LastChild   *Node
	PrevSibling *Node
	NextSibling *Node
}

// IsElement reports whether n is an element.
func (n *Node) IsElement() bool { return n != nil && n.Kind == ElementNode }

// IsText reports whether n is a text leaf.
func (n *Node) IsText() bool { return n != nil && n.Kind == TextNode }

// Is reports whether n is an element with the given tag (case-insensitive).
func (n *Node) Is(tag string) bool {
	return n.IsElement() && strings.EqualFold(n.Tag, tag)
}

// AttrValue returns the value of the named attribute.
func (n *Node) AttrValue(key string) (string, bool) {
	if n == nil {
		return "", false
	}
	key = strings.ToLower(key)
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// Root returns the topmost ancestor of n (n itself when detached and parentless).
func (n *Node) Root() *Node {
	for n.Parent != nil {
		n = n.Parent
	}
	return n
}

// IsConnected reports whether n is attached to a document root.
func (n *Node) IsConnected() bool {
	return n != nil && n.Root().Kind == DocumentNode
}

// Contains reports whether other is n or one of its descendants.
func (n *Node) Contains(other *Node) bool {
	for c := other; c != nil; c = c.Parent {
		if c == n {
			return true
		}
	}
	return false
}

// Ancestors yields the parents of n from nearest to farthest.
func (n *Node) Ancestors() iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		for p := n.Parent; p != nil; p = p.Parent {
			if !yield(p) {
				return
			}
		}
	}
}

// Children yields the direct children of n.
func (n *Node) Children() iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if !yield(c) {
				return
			}
		}
	}
}

// Walk yields n and all of its descendants in document (pre-)order.
func Walk(n *Node) iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		if n == nil {
			return
		}
		cur := n
		for {
			if !yield(cur) {
				return
			}
			if cur.FirstChild != nil {
				cur = cur.FirstChild
				continue
			}
			for cur != n && cur.NextSibling == nil {
				cur = cur.Parent
			}
			if cur == n {
				return
			}
			cur = cur.NextSibling
		}
	}
}

// TextLeaves yields every text leaf under root in document order. The
// sequence is lazy and can be ranged over again to restart it.
func TextLeaves(root *Node) iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		for n := range Walk(root) {
			if n.Kind == TextNode && !yield(n) {
				return
			}
		}
	}
}

// PrecedingTextLeaves yields the text leaves before n in reverse document
// order, stopping at the root of n's tree.
func PrecedingTextLeaves(n *Node) iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		cur := n
		for {
			cur = previousInOrder(cur)
			if cur == nil {
				return
			}
			if cur.Kind == TextNode && !yield(cur) {
				return
			}
		}
	}
}

// previousInOrder returns the node immediately before n in pre-order.
func previousInOrder(n *Node) *Node {
	if n.PrevSibling == nil {
		return n.Parent
	}
	cur := n.PrevSibling
	for cur.LastChild != nil {
		cur = cur.LastChild
	}
	return cur
}

// TextContent returns the concatenated text of all text leaves under n.
func TextContent(n *Node) string {
	if n.Kind == TextNode {
		return n.Data
	}
	var b strings.Builder
	for t := range TextLeaves(n) {
		b.WriteString(t.Data)
	}
	return b.String()
}
