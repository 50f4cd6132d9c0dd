package dom

import (
	"strings"

	"github.com/FocuswithJustin/Bolder/core/errors"
)

// RecordType distinguishes structural changes from text changes.
type RecordType int

const (
	// ChildList records nodes added to or removed from a parent.
	ChildList RecordType = iota
	// CharacterData records an in-place change of a text node's content.
	CharacterData
)

// String returns the record type name.
func (t RecordType) String() string {
	if t == CharacterData {
		return "characterData"
	}
	return "childList"
}

// Record describes one mutation of a document.
type Record struct {
	Type    RecordType
	Target  *Node
	Added   []*Node
	Removed []*Node
}

// Document owns a node tree and records mutations made through it.
type Document struct {
	Root *Node

	nextID    uint64
	observing bool
	records   []Record
}

// NewDocument creates an empty document.
func NewDocument() *Document {
	d := &Document{}
	d.Root = d.newNode(DocumentNode)
	return d
}

func (d *Document) newNode(kind Kind) *Node {
	d.nextID++
	return &Node{ID: d.nextID, Kind: kind}
}

// CreateElement creates a detached element.
func (d *Document) CreateElement(tag string, attrs ...Attr) *Node {
	n := d.newNode(ElementNode)
	n.Tag = strings.ToUpper(tag)
	for _, a := range attrs {
		n.Attr = append(n.Attr, Attr{Key: strings.ToLower(a.Key), Val: a.Val})
	}
	return n
}

// CreateText creates a detached text node.
func (d *Document) CreateText(s string) *Node {
	n := d.newNode(TextNode)
	n.Data = s
	return n
}

// CreateComment creates a detached comment node.
func (d *Document) CreateComment(s string) *Node {
	n := d.newNode(CommentNode)
	n.Data = s
	return n
}

// Body returns the BODY element, or the document root when there is none.
func (d *Document) Body() *Node {
	for n := range Walk(d.Root) {
		if n.Is("body") {
			return n
		}
	}
	return d.Root
}

// Observe turns mutation recording on or off. Pending records are kept.
func (d *Document) Observe(on bool) {
	d.observing = on
}

// TakeRecords returns and clears the pending mutation records.
func (d *Document) TakeRecords() []Record {
	recs := d.records
	d.records = nil
	return recs
}

func (d *Document) record(r Record) {
	if d.observing {
		d.records = append(d.records, r)
	}
}

// AppendChild attaches child as the last child of parent, detaching it from
// any previous parent first.
func (d *Document) AppendChild(parent, child *Node) error {
	return d.InsertBefore(parent, child, nil)
}

// InsertBefore attaches child to parent before ref. A nil ref appends.
// Inserting a node before itself leaves the tree unchanged.
func (d *Document) InsertBefore(parent, child, ref *Node) error {
	if parent == nil || child == nil {
		return errors.NewValidation("node", "nil parent or child")
	}
	if parent.Kind == TextNode || parent.Kind == CommentNode {
		return errors.NewValidation("parent", "leaf nodes cannot have children")
	}
	if child.Contains(parent) {
		return errors.NewValidation("child", "cannot insert a node into its own subtree")
	}
	if ref != nil && ref.Parent != parent {
		return errors.NewNotFound("reference node", "not a child of parent")
	}
	if ref == child {
		return nil
	}
	if child.Parent != nil {
		if err := d.RemoveChild(child); err != nil {
			return err
		}
	}
	link(parent, child, ref)
	d.record(Record{Type: ChildList, Target: parent, Added: []*Node{child}})
	return nil
}

// RemoveChild detaches n from its parent.
func (d *Document) RemoveChild(n *Node) error {
	if n == nil || n.Parent == nil {
		return errors.NewValidation("node", "node is not attached")
	}
	parent := n.Parent
	unlink(n)
	d.record(Record{Type: ChildList, Target: parent, Removed: []*Node{n}})
	return nil
}

// ReplaceChildren removes every child of parent and appends nodes, recording a
// single ChildList mutation.
func (d *Document) ReplaceChildren(parent *Node, nodes ...*Node) error {
	var removed []*Node
	for c := parent.FirstChild; c != nil; {
		next := c.NextSibling
		unlink(c)
		removed = append(removed, c)
		c = next
	}
	for _, n := range nodes {
		if n.Parent != nil {
			unlink(n)
		}
		link(parent, n, nil)
	}
	d.record(Record{Type: ChildList, Target: parent, Added: nodes, Removed: removed})
	return nil
}

// SetText replaces the content of a text node in place.
func (d *Document) SetText(n *Node, s string) error {
	if !n.IsText() {
		return errors.NewValidation("node", "SetText requires a text node")
	}
	if n.Data == s {
		return nil
	}
	n.Data = s
	d.record(Record{Type: CharacterData, Target: n})
	return nil
}

func link(parent, child, ref *Node) {
	child.Parent = parent
	if ref == nil {
		child.PrevSibling = parent.LastChild
		if parent.LastChild != nil {
			parent.LastChild.NextSibling = child
		} else {
			parent.FirstChild = child
		}
		parent.LastChild = child
		return
	}
	child.NextSibling = ref
	child.PrevSibling = ref.PrevSibling
	if ref.PrevSibling != nil {
		ref.PrevSibling.NextSibling = child
	} else {
		parent.FirstChild = child
	}
	ref.PrevSibling = child
}

func unlink(n *Node) {
	parent := n.Parent
	if n.PrevSibling != nil {
		n.PrevSibling.NextSibling = n.NextSibling
	} else {
		parent.FirstChild = n.NextSibling
	}
	if n.NextSibling != nil {
		n.NextSibling.PrevSibling = n.PrevSibling
	} else {
		parent.LastChild = n.PrevSibling
	}
	n.Parent, n.PrevSibling, n.NextSibling = nil, nil, nil
}
