package block

import (
	"testing"

	"github.com/FocuswithJustin/Bolder/core/dom"
	"github.com/FocuswithJustin/Bolder/core/tokenize"
	"github.com/FocuswithJustin/Bolder/core/visibility"
)

func parse(t *testing.T, src string) *dom.Document {
	t.Helper()
	doc, err := dom.ParseHTMLString(src)
	if err != nil {
		t.Fatalf("ParseHTMLString: %v", err)
	}
	return doc
}

func leaf(t *testing.T, doc *dom.Document, text string) *dom.Node {
	t.Helper()
	for l := range dom.TextLeaves(doc.Root) {
		if l.Data == text {
			return l
		}
	}
	t.Fatalf("text leaf %q not found", text)
	return nil
}

func newResolver(t *testing.T) *Resolver {
	t.Helper()
	f, err := visibility.New(visibility.DefaultExcludedTags, nil)
	if err != nil {
		t.Fatalf("visibility.New: %v", err)
	}
	return New(DefaultBlockTags, f)
}

func TestParent(t *testing.T) {
	doc := parse(t, `<body><section><span><b>deep</b></span></section><span>loose</span></body>`)
	r := newResolver(t)

	if got := r.Parent(leaf(t, doc, "deep")); !got.Is("section") {
		t.Errorf("Parent(deep) = %v, want SECTION", got.Tag)
	}
	if got := r.Parent(leaf(t, doc, "loose")); !got.Is("body") {
		t.Errorf("Parent(loose) = %v, want BODY", got.Tag)
	}

	// Without a BODY the tree root is the block.
	x, err := dom.ParseXHTMLBytes([]byte(`<doc><para>text</para></doc>`))
	if err != nil {
		t.Fatalf("ParseXHTMLBytes: %v", err)
	}
	if got := r.Parent(leaf(t, x, "text")); got != x.Root {
		t.Errorf("Parent(text) = %v, want document root", got.Kind)
	}
}

func TestIsFirstWord(t *testing.T) {
	doc := parse(t, `<body>
<p>Alpha beta</p>
<p><b><i>Nested</i></b> first</p>
<p>Lead <b>Second</b></p>
<p>Line one<br>Line two</p>
<p><span style="display:none">Hidden</span>Shown</p>
<p><code>x = 1</code> After code</p>
<p>42 <span>Digits</span></p>
<li><span> </span><em>Spaced</em></li>
</body>`)
	r := newResolver(t)

	tests := []struct {
		text string
		want bool
	}{
		{"Alpha beta", true},
		{"Nested", true},
		{" first", false},
		{"Lead ", true},
		{"Second", false},
		{"Line two", true},
		{"Shown", true},
		{" After code", true},
		{"Digits", true},
		{"Spaced", true},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			unit := leaf(t, doc, tt.text)
			if got := r.IsFirstWord(unit, r.Parent(unit)); got != tt.want {
				t.Errorf("IsFirstWord(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestWordCount(t *testing.T) {
	doc := parse(t, `<body><p>One two <b>Three</b> 4 <code>skip me</code></p></body>`)
	r := newResolver(t)
	p, err := dom.SelectOne(doc.Root, "//p")
	if err != nil {
		t.Fatalf("SelectOne: %v", err)
	}
	if got := r.WordCount(p, tokenize.New(nil)); got != 3 {
		t.Errorf("WordCount = %d, want 3", got)
	}
}

func TestIsBlock(t *testing.T) {
	doc := parse(t, `<body><div>a</div><span>b</span></body>`)
	r := New([]string{"div"}, nil)
	div, _ := dom.SelectOne(doc.Root, "//div")
	span, _ := dom.SelectOne(doc.Root, "//span")
	if !r.IsBlock(div) {
		t.Error("div should be a block (tag set is case-insensitive)")
	}
	if r.IsBlock(span) {
		t.Error("span should not be a block")
	}
}
