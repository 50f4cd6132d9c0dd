package highlight

import (
	"testing"

	"github.com/FocuswithJustin/Bolder/core/classify"
	"github.com/FocuswithJustin/Bolder/core/dom"
)

func setup(t *testing.T) (*dom.Document, *dom.Node, *dom.Node) {
	t.Helper()
	doc, err := dom.ParseHTMLString(`<body><p id="a">Hello NASA team</p><p id="b">The McDonald store</p></body>`)
	if err != nil {
		t.Fatalf("ParseHTMLString: %v", err)
	}
	a, err := dom.SelectOne(doc.Root, "//p[@id='a']/text()")
	if err != nil {
		t.Fatalf("SelectOne a: %v", err)
	}
	b, err := dom.SelectOne(doc.Root, "//p[@id='b']/text()")
	if err != nil {
		t.Fatalf("SelectOne b: %v", err)
	}
	return doc, a, b
}

func region(anchor *dom.Node, start, end int) Region {
	return Region{Anchor: anchor, Start: start, End: end, Word: anchor.Data[start:end], Rule: classify.RuleUppercase}
}

func TestAddDeduplicates(t *testing.T) {
	_, a, _ := setup(t)
	rec := &Recorder{}
	g := NewRegistry(rec)

	if !g.Add(region(a, 6, 10)) {
		t.Fatal("first Add should succeed")
	}
	if g.Add(region(a, 6, 10)) {
		t.Error("second identical Add should be a no-op")
	}
	if g.Len() != 1 {
		t.Errorf("Len = %d, want 1", g.Len())
	}
	if rec.Len() != 1 {
		t.Errorf("sink saw %d commands, want 1", rec.Len())
	}
	if g.Add(Region{Start: 0, End: 1}) {
		t.Error("Add without an anchor should be rejected")
	}
}

func TestRemoveAllForUnit(t *testing.T) {
	_, a, b := setup(t)
	rec := &Recorder{}
	g := NewRegistry(rec)
	g.Add(region(a, 0, 5))
	g.Add(region(a, 6, 10))
	g.Add(region(b, 4, 12))
	rec.Take()

	if n := g.RemoveAllForUnit(a); n != 2 {
		t.Errorf("RemoveAllForUnit = %d, want 2", n)
	}
	if g.Len() != 1 || len(g.ForUnit(a)) != 0 || len(g.ForUnit(b)) != 1 {
		t.Errorf("unexpected registry state: len=%d a=%d b=%d", g.Len(), len(g.ForUnit(a)), len(g.ForUnit(b)))
	}
	cmds := rec.Take()
	if len(cmds) != 2 {
		t.Fatalf("sink saw %d commands, want 2", len(cmds))
	}
	for _, c := range cmds {
		if c.Op != OpWithdraw || c.Region.Anchor != a {
			t.Errorf("unexpected command %v %+v", c.Op, c.Region)
		}
	}
	if cmds[0].Region.Start != 0 || cmds[1].Region.Start != 6 {
		t.Error("withdrawals should be issued in offset order")
	}
	if n := g.RemoveAllForUnit(a); n != 0 {
		t.Errorf("second RemoveAllForUnit = %d, want 0", n)
	}
}

func TestSweepStaleRemovedSubtree(t *testing.T) {
	doc, a, b := setup(t)
	g := NewRegistry(nil)
	g.Add(region(a, 6, 10))
	g.Add(region(b, 4, 12))

	if err := doc.RemoveChild(b.Parent); err != nil {
		t.Fatalf("RemoveChild: %v", err)
	}
	if n := g.SweepStale(); n != 1 {
		t.Errorf("SweepStale = %d, want 1", n)
	}
	if len(g.ForUnit(b)) != 0 {
		t.Error("regions in the removed subtree should be gone")
	}
	if !g.Has(region(a, 6, 10)) {
		t.Error("valid region should survive the sweep")
	}
	if n := g.SweepStale(); n != 0 {
		t.Errorf("repeated SweepStale = %d, want 0", n)
	}
}

func TestSweepStaleChangedContent(t *testing.T) {
	doc, a, _ := setup(t)
	g := NewRegistry(nil)
	g.Add(region(a, 6, 10))

	// Content edited without the region being reprocessed.
	if err := doc.SetText(a, "Hi"); err != nil {
		t.Fatalf("SetText: %v", err)
	}
	if n := g.SweepStale(); n != 1 {
		t.Errorf("SweepStale = %d, want 1", n)
	}
}

func TestLive(t *testing.T) {
	doc, a, _ := setup(t)
	tests := []struct {
		name string
		r    Region
		want bool
	}{
		{"valid", region(a, 6, 10), true},
		{"no word recorded", Region{Anchor: a, Start: 0, End: 5}, true},
		{"word mismatch", Region{Anchor: a, Start: 0, End: 5, Word: "Howdy"}, false},
		{"out of range", Region{Anchor: a, Start: 10, End: 99}, false},
		{"empty span", Region{Anchor: a, Start: 3, End: 3}, false},
		{"element anchor", Region{Anchor: a.Parent, Start: 0, End: 1}, false},
		{"detached", Region{Anchor: doc.CreateText("NASA"), Start: 0, End: 4}, false},
		{"nil anchor", Region{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Live(tt.r); got != tt.want {
				t.Errorf("Live() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRegionsOrderAndSpans(t *testing.T) {
	_, a, b := setup(t)
	g := NewRegistry(nil)
	g.Add(region(b, 4, 12))
	g.Add(region(a, 6, 10))
	g.Add(region(a, 0, 5))

	rs := g.Regions()
	if len(rs) != 3 {
		t.Fatalf("Regions len = %d, want 3", len(rs))
	}
	if rs[0].Word != "Hello" || rs[1].Word != "NASA" || rs[2].Word != "McDonald" {
		t.Errorf("Regions order = %q %q %q", rs[0].Word, rs[1].Word, rs[2].Word)
	}
	spans := g.Spans()
	if len(spans[a]) != 2 || len(spans[b]) != 1 {
		t.Errorf("Spans = %v", spans)
	}
}

func TestClear(t *testing.T) {
	_, a, b := setup(t)
	rec := &Recorder{}
	g := NewRegistry(rec)
	g.Add(region(a, 6, 10))
	g.Add(region(b, 4, 12))
	rec.Take()
	g.Clear()
	if g.Len() != 0 {
		t.Errorf("Len after Clear = %d", g.Len())
	}
	if got := len(rec.Take()); got != 2 {
		t.Errorf("Clear issued %d withdrawals, want 2", got)
	}
}

func TestOpString(t *testing.T) {
	if OpAdd.String() != "add" || OpWithdraw.String() != "withdraw" {
		t.Error("unexpected Op names")
	}
}
