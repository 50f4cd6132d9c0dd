package dom

import (
	"bytes"
	"io"
	"strings"

	"github.com/antchfx/xmlquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/FocuswithJustin/Bolder/core/errors"
)

// ParseHTML parses an HTML document.
func ParseHTML(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, &errors.ParseError{Format: "HTML", Message: err.Error(), Err: err}
	}
	d := NewDocument()
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if n := d.fromHTML(c); n != nil {
			link(d.Root, n, nil)
		}
	}
	return d, nil
}

// ParseHTMLString is a convenience wrapper around ParseHTML.
func ParseHTMLString(s string) (*Document, error) {
	return ParseHTML(strings.NewReader(s))
}

// ParseFragment parses an HTML snippet as children of context and returns the
// resulting detached nodes. A nil context parses in BODY context.
func (d *Document) ParseFragment(s string, context *Node) ([]*Node, error) {
	ctx := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	if context.IsElement() {
		tag := strings.ToLower(context.Tag)
		ctx = &html.Node{Type: html.ElementNode, Data: tag, DataAtom: atom.Lookup([]byte(tag))}
	}
	parsed, err := html.ParseFragment(strings.NewReader(s), ctx)
	if err != nil {
		return nil, &errors.ParseError{Format: "HTML fragment", Message: err.Error(), Err: err}
	}
	nodes := make([]*Node, 0, len(parsed))
	for _, p := range parsed {
		if n := d.fromHTML(p); n != nil {
			nodes = append(nodes, n)
		}
	}
	return nodes, nil
}

func (d *Document) fromHTML(h *html.Node) *Node {
	var n *Node
	switch h.Type {
	case html.ElementNode:
		n = d.newNode(ElementNode)
		n.Tag = strings.ToUpper(h.Data)
		for _, a := range h.Attr {
			n.Attr = append(n.Attr, Attr{Key: strings.ToLower(a.Key), Val: a.Val})
		}
	case html.TextNode:
		n = d.newNode(TextNode)
		n.Data = h.Data
		return n
	case html.CommentNode:
		n = d.newNode(CommentNode)
		n.Data = h.Data
		return n
	default:
		return nil
	}
	for c := h.FirstChild; c != nil; c = c.NextSibling {
		if child := d.fromHTML(c); child != nil {
			link(n, child, nil)
		}
	}
	return n
}

// ParseXHTML parses a well-formed XHTML (or generic XML) document.
func ParseXHTML(r io.Reader) (*Document, error) {
	root, err := xmlquery.Parse(r)
	if err != nil {
		return nil, &errors.ParseError{Format: "XHTML", Message: err.Error(), Err: err}
	}
	d := NewDocument()
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if n := d.fromXML(c); n != nil {
			link(d.Root, n, nil)
		}
	}
	return d, nil
}

// ParseXHTMLBytes is a convenience wrapper around ParseXHTML.
func ParseXHTMLBytes(data []byte) (*Document, error) {
	return ParseXHTML(bytes.NewReader(data))
}

func (d *Document) fromXML(x *xmlquery.Node) *Node {
	var n *Node
	switch x.Type {
	case xmlquery.ElementNode:
		n = d.newNode(ElementNode)
		n.Tag = strings.ToUpper(x.Data)
		for _, a := range x.Attr {
			key := a.Name.Local
			if a.Name.Space != "" && a.Name.Space != "xmlns" {
				key = a.Name.Space + ":" + key
			}
			n.Attr = append(n.Attr, Attr{Key: strings.ToLower(key), Val: a.Value})
		}
	case xmlquery.TextNode, xmlquery.CharDataNode:
		n = d.newNode(TextNode)
		n.Data = x.Data
		return n
	case xmlquery.CommentNode:
		n = d.newNode(CommentNode)
		n.Data = x.Data
		return n
	default:
		return nil
	}
	for c := x.FirstChild; c != nil; c = c.NextSibling {
		if child := d.fromXML(c); child != nil {
			link(n, child, nil)
		}
	}
	return n
}
