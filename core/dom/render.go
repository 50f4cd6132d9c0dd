package dom

import (
	"io"
	"sort"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Span is a byte range inside a text node.
type Span struct {
	Start int
	End   int
}

// RenderOptions controls how annotations are written out.
type RenderOptions struct {
	// Marks maps text nodes to the spans that should be wrapped.
	Marks map[*Node][]Span
	// Class is the class attribute given to each <mark>.
	Class string
	// Stylesheet, when set, is injected as a <style> element into HEAD.
	Stylesheet string
}

// Render writes the tree rooted at root as HTML, wrapping marked spans in
// <mark> elements.
func Render(w io.Writer, root *Node, opts RenderOptions) error {
	h := toHTML(root, opts)
	if root.Kind == DocumentNode {
		h.InsertBefore(&html.Node{Type: html.DoctypeNode, Data: "html"}, h.FirstChild)
	}
	if opts.Stylesheet != "" {
		injectStyle(h, opts.Stylesheet)
	}
	return html.Render(w, h)
}

// RenderString renders to a string, returning "" on write failure.
func RenderString(root *Node, opts RenderOptions) string {
	var b strings.Builder
	if err := Render(&b, root, opts); err != nil {
		return ""
	}
	return b.String()
}

func toHTML(n *Node, opts RenderOptions) *html.Node {
	switch n.Kind {
	case DocumentNode:
		h := &html.Node{Type: html.DocumentNode}
		appendHTMLChildren(h, n, opts)
		return h
	case TextNode:
		return &html.Node{Type: html.TextNode, Data: n.Data}
	case CommentNode:
		return &html.Node{Type: html.CommentNode, Data: n.Data}
	default:
		tag := strings.ToLower(n.Tag)
		h := &html.Node{Type: html.ElementNode, Data: tag, DataAtom: atom.Lookup([]byte(tag))}
		for _, a := range n.Attr {
			h.Attr = append(h.Attr, html.Attribute{Key: a.Key, Val: a.Val})
		}
		appendHTMLChildren(h, n, opts)
		return h
	}
}

func appendHTMLChildren(h *html.Node, n *Node, opts RenderOptions) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Kind == TextNode && len(opts.Marks[c]) > 0 {
			for _, piece := range splitMarked(c.Data, opts.Marks[c], opts.Class) {
				h.AppendChild(piece)
			}
			continue
		}
		h.AppendChild(toHTML(c, opts))
	}
}

// splitMarked cuts text into plain runs and <mark> elements. Spans that are
// out of range or overlap an earlier span are ignored.
func splitMarked(text string, spans []Span, class string) []*html.Node {
	sorted := append([]Span(nil), spans...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	var out []*html.Node
	pos := 0
	for _, s := range sorted {
		if s.Start < pos || s.End > len(text) || s.Start >= s.End {
			continue
		}
		if s.Start > pos {
			out = append(out, &html.Node{Type: html.TextNode, Data: text[pos:s.Start]})
		}
		mark := &html.Node{Type: html.ElementNode, Data: "mark", DataAtom: atom.Mark}
		if class != "" {
			mark.Attr = []html.Attribute{{Key: "class", Val: class}}
		}
		mark.AppendChild(&html.Node{Type: html.TextNode, Data: text[s.Start:s.End]})
		out = append(out, mark)
		pos = s.End
	}
	if pos < len(text) {
		out = append(out, &html.Node{Type: html.TextNode, Data: text[pos:]})
	}
	return out
}

func injectStyle(doc *html.Node, css string) {
	var head *html.Node
	var find func(*html.Node)
	find = func(n *html.Node) {
		if head != nil {
			return
		}
		if n.Type == html.ElementNode && n.DataAtom == atom.Head {
			head = n
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			find(c)
		}
	}
	find(doc)
	if head == nil {
		return
	}
	style := &html.Node{Type: html.ElementNode, Data: "style", DataAtom: atom.Style}
	style.AppendChild(&html.Node{Type: html.TextNode, Data: css})
	head.AppendChild(style)
}
