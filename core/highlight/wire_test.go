package highlight

import (
	"testing"

	"github.com/FocuswithJustin/Bolder/core/classify"
	"github.com/FocuswithJustin/Bolder/core/dom"
)

func TestToWireUTF16Offsets(t *testing.T) {
	doc, err := dom.ParseHTMLString("<p>café 🙂 NASA</p>")
	if err != nil {
		t.Fatal(err)
	}
	text, err := dom.SelectOne(doc.Root, "//p/text()")
	if err != nil {
		t.Fatal(err)
	}
	// "café " is 6 bytes, 5 units; the emoji is 4 bytes, 2 units.
	start := len("café 🙂 ")
	r := Region{Anchor: text, Start: start, End: start + 4, Word: "NASA", Rule: classify.RuleUppercase}

	w := ToWire(r)
	if w.Node != text.ID || w.Start != 8 || w.End != 12 {
		t.Errorf("ToWire() = %+v, want node %d, 8..12", w, text.ID)
	}
	if w.ByteStart != 11 || w.ByteEnd != 15 || w.Word != "NASA" || w.Rule != classify.RuleUppercase.String() {
		t.Errorf("ToWire() = %+v", w)
	}
}

func TestToWireClampsStaleRegion(t *testing.T) {
	_, a, _ := setup(t)
	r := region(a, 6, 10)
	a.Data = "Hi"

	w := ToWire(r)
	if w.Start != 2 || w.End != 2 {
		t.Errorf("stale region offsets = %d..%d, want 2..2", w.Start, w.End)
	}
	if w.ByteStart != 6 || w.Word != "NASA" {
		t.Errorf("stale region lost its recorded position: %+v", w)
	}
}

func TestCommandsToWire(t *testing.T) {
	_, a, _ := setup(t)
	rec := &Recorder{}
	g := NewRegistry(rec)
	g.Add(region(a, 6, 10))
	g.RemoveAllForUnit(a)

	cmds := CommandsToWire(rec.Take())
	if len(cmds) != 2 || cmds[0].Op != "add" || cmds[1].Op != "withdraw" {
		t.Fatalf("CommandsToWire() = %+v", cmds)
	}
	if cmds[1].Region.Word != "NASA" {
		t.Errorf("withdraw region = %+v", cmds[1].Region)
	}
	if got := RegionsToWire(nil); len(got) != 0 {
		t.Errorf("RegionsToWire(nil) = %v", got)
	}
}

func TestWithdrawKeepsAddedOffsets(t *testing.T) {
	doc, err := dom.ParseHTMLString("<p>The café IBM lab</p>")
	if err != nil {
		t.Fatal(err)
	}
	text, err := dom.SelectOne(doc.Root, "//p/text()")
	if err != nil {
		t.Fatal(err)
	}
	rec := &Recorder{}
	g := NewRegistry(rec)
	start := len("The café ")
	g.Add(region(text, start, start+3))

	// Same length in UTF-16 before the word, one byte shorter in UTF-8.
	text.Data = "The cafe IBM lab"
	g.RemoveAllForUnit(text)

	cmds := CommandsToWire(rec.Take())
	if len(cmds) != 2 {
		t.Fatalf("commands = %+v", cmds)
	}
	add, withdraw := cmds[0].Region, cmds[1].Region
	if add.Start != 9 || add.End != 12 {
		t.Errorf("add offsets = %d..%d, want 9..12", add.Start, add.End)
	}
	if withdraw.Start != add.Start || withdraw.End != add.End || withdraw.ByteStart != add.ByteStart {
		t.Errorf("withdraw %+v does not match add %+v", withdraw, add)
	}
}
