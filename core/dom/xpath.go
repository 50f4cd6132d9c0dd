package dom

import (
	"strings"

	"github.com/antchfx/xpath"

	"github.com/FocuswithJustin/Bolder/core/errors"
)

// Navigator implements xpath.NodeNavigator over a dom tree.
type Navigator struct {
	root, curr *Node
	attr       int
}

var _ xpath.NodeNavigator = (*Navigator)(nil)

// NewNavigator returns a navigator positioned at n.
func NewNavigator(n *Node) *Navigator {
	return &Navigator{root: n.Root(), curr: n, attr: -1}
}

// Current returns the node the navigator is positioned at.
func (x *Navigator) Current() *Node {
	return x.curr
}

func (x *Navigator) NodeType() xpath.NodeType {
	switch x.curr.Kind {
	case DocumentNode:
		return xpath.RootNode
	case TextNode:
		return xpath.TextNode
	case CommentNode:
		return xpath.CommentNode
	default:
		if x.attr != -1 {
			return xpath.AttributeNode
		}
		return xpath.ElementNode
	}
}

func (x *Navigator) LocalName() string {
	if x.attr != -1 {
		return x.curr.Attr[x.attr].Key
	}
	return strings.ToLower(x.curr.Tag)
}

func (x *Navigator) Prefix() string {
	return ""
}

func (x *Navigator) Value() string {
	switch x.curr.Kind {
	case TextNode, CommentNode:
		return x.curr.Data
	case ElementNode:
		if x.attr != -1 {
			return x.curr.Attr[x.attr].Val
		}
	}
	return TextContent(x.curr)
}

func (x *Navigator) Copy() xpath.NodeNavigator {
	c := *x
	return &c
}

func (x *Navigator) MoveToRoot() {
	x.curr = x.root
	x.attr = -1
}

func (x *Navigator) MoveToParent() bool {
	if x.attr != -1 {
		x.attr = -1
		return true
	}
	if x.curr.Parent == nil {
		return false
	}
	x.curr = x.curr.Parent
	return true
}

func (x *Navigator) MoveToNextAttribute() bool {
	if x.attr >= len(x.curr.Attr)-1 {
		return false
	}
	x.attr++
	return true
}

func (x *Navigator) MoveToChild() bool {
	if x.attr != -1 || x.curr.FirstChild == nil {
		return false
	}
	x.curr = x.curr.FirstChild
	return true
}

func (x *Navigator) MoveToFirst() bool {
	if x.attr != -1 || x.curr.PrevSibling == nil {
		return false
	}
	for x.curr.PrevSibling != nil {
		x.curr = x.curr.PrevSibling
	}
	return true
}

func (x *Navigator) MoveToNext() bool {
	if x.attr != -1 || x.curr.NextSibling == nil {
		return false
	}
	x.curr = x.curr.NextSibling
	return true
}

func (x *Navigator) MoveToPrevious() bool {
	if x.attr != -1 || x.curr.PrevSibling == nil {
		return false
	}
	x.curr = x.curr.PrevSibling
	return true
}

func (x *Navigator) MoveTo(other xpath.NodeNavigator) bool {
	o, ok := other.(*Navigator)
	if !ok || o.root != x.root {
		return false
	}
	x.curr = o.curr
	x.attr = o.attr
	return true
}

// Compile compiles an XPath expression, reporting syntax errors as ParseErrors.
func Compile(expr string) (*xpath.Expr, error) {
	e, err := xpath.Compile(expr)
	if err != nil {
		return nil, &errors.ParseError{Format: "XPath", Message: expr, Err: err}
	}
	return e, nil
}

// Select returns every node under root matched by expr, in document order.
// Attribute matches resolve to their owning element.
func Select(root *Node, expr string) ([]*Node, error) {
	e, err := Compile(expr)
	if err != nil {
		return nil, err
	}
	var out []*Node
	seen := make(map[*Node]bool)
	it := e.Select(NewNavigator(root))
	for it.MoveNext() {
		n := it.Current().(*Navigator).curr
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out, nil
}

// SelectOne returns the first node matched by expr.
func SelectOne(root *Node, expr string) (*Node, error) {
	nodes, err := Select(root, expr)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, errors.NewNotFound("node", expr)
	}
	return nodes[0], nil
}

// Matches evaluates expr with n as the context node and reports whether the
// result is truthy: true, a non-empty node set, a non-empty string or a
// non-zero number.
func Matches(n *Node, expr *xpath.Expr) bool {
	switch v := expr.Evaluate(NewNavigator(n)).(type) {
	case bool:
		return v
	case float64:
		return v != 0
	case string:
		return v != ""
	case *xpath.NodeIterator:
		return v.MoveNext()
	default:
		return false
	}
}
