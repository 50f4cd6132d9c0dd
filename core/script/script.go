// Package script parses and runs replay scripts: small line-oriented
// programs that edit a document the way a live page would, so that
// incremental highlighting can be reproduced outside a browser.
//
// A script is a sequence of statements. Targets are XPath expressions and
// values are quoted strings ("..." with Go escapes, or `...` raw):
//
//	# comments run to end of line
//	append "//div[@id='feed']" "<p>Then <b>NASA</b> launched</p>"
//	insert "(//p)[1]" "<p>Breaking news from ESA</p>"
//	set "//p[2]/text()" "Edited text with IBM"
//	remove "//aside"
//	flush
//	sweep
package script

import (
	"io"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/FocuswithJustin/Bolder/core/errors"
)

// Op identifies a statement kind.
type Op int

const (
	OpAppend Op = iota // append HTML as the last children of each target
	OpInsert           // insert HTML before each target
	OpRemove           // detach each target
	OpSet              // replace the text of each target
	OpFlush            // deliver pending mutation records
	OpSweep            // run a stale sweep
)

var opNames = [...]string{"append", "insert", "remove", "set", "flush", "sweep"}

// String returns the statement keyword.
func (o Op) String() string {
	if int(o) < len(opNames) {
		return opNames[o]
	}
	return "unknown"
}

// Statement is one parsed script line.
type Statement struct {
	Op     Op
	Target string // XPath; empty for flush and sweep
	Value  string // HTML for append/insert, text for set
	Line   int
}

// Script is a parsed replay script.
type Script struct {
	Name       string
	Statements []Statement
}

//nolint:govet // participle grammar tags are not standard struct tags
type scriptGrammar struct {
	Statements []*statementGrammar `@@*`
}

//nolint:govet // participle grammar tags are not standard struct tags
type statementGrammar struct {
	Pos lexer.Position

	Append *editGrammar `  "append" @@`
	Insert *editGrammar `| "insert" @@`
	Set    *editGrammar `| "set" @@`
	Remove *string      `| "remove" @(String | Raw)`
	Flush  bool         `| @"flush"`
	Sweep  bool         `| @"sweep"`
}

//nolint:govet // participle grammar tags are not standard struct tags
type editGrammar struct {
	Target string `@(String | Raw)`
	Value  string `@(String | Raw)`
}

// scriptLexer tokenizes replay scripts.
var scriptLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `#[^\n]*`},
	{Name: "String", Pattern: `"(\\.|[^"\\])*"`},
	{Name: "Raw", Pattern: "`[^`]*`"},
	{Name: "Keyword", Pattern: `[a-z]+`},
	{Name: "Whitespace", Pattern: `\s+`},
})

var scriptParser = participle.MustBuild[scriptGrammar](
	participle.Lexer(scriptLexer),
	participle.Unquote("String", "Raw"),
	participle.Elide("Whitespace", "Comment"),
)

// Parse reads a script from r. name is used in error messages.
func Parse(name string, r io.Reader) (*Script, error) {
	g, err := scriptParser.Parse(name, r)
	if err != nil {
		return nil, parseError(name, err)
	}
	return build(name, g)
}

// ParseString parses a script held in memory.
func ParseString(name, src string) (*Script, error) {
	g, err := scriptParser.ParseString(name, src)
	if err != nil {
		return nil, parseError(name, err)
	}
	return build(name, g)
}

func parseError(name string, err error) error {
	pe := errors.NewParse("script", name, err.Error())
	pe.Err = err
	return pe
}

func build(name string, g *scriptGrammar) (*Script, error) {
	s := &Script{Name: name}
	for _, st := range g.Statements {
		var out Statement
		out.Line = st.Pos.Line
		switch {
		case st.Append != nil:
			out.Op, out.Target, out.Value = OpAppend, st.Append.Target, st.Append.Value
		case st.Insert != nil:
			out.Op, out.Target, out.Value = OpInsert, st.Insert.Target, st.Insert.Value
		case st.Set != nil:
			out.Op, out.Target, out.Value = OpSet, st.Set.Target, st.Set.Value
		case st.Remove != nil:
			out.Op, out.Target = OpRemove, *st.Remove
		case st.Flush:
			out.Op = OpFlush
		case st.Sweep:
			out.Op = OpSweep
		}
		if out.Op != OpFlush && out.Op != OpSweep && strings.TrimSpace(out.Target) == "" {
			return nil, errors.NewParse("script", name, "empty target on line "+strconv.Itoa(out.Line))
		}
		s.Statements = append(s.Statements, out)
	}
	return s, nil
}
