// Package visibility decides whether a node's text is eligible for
// annotation.
package visibility

import (
	"strings"

	"github.com/antchfx/xpath"

	"github.com/FocuswithJustin/Bolder/core/dom"
)

// DefaultExcludedTags are containers whose text is never annotated.
var DefaultExcludedTags = []string{
	"SCRIPT", "STYLE", "NOSCRIPT", "TEXTAREA", "INPUT", "SELECT", "OPTION",
	"CODE", "PRE", "IFRAME", "SVG", "CANVAS", "KBD", "VAR",
}

// Filter evaluates exclusion rules. Results are never cached: display and
// editability can change between passes.
type Filter struct {
	excluded  map[string]bool
	selectors []*xpath.Expr
}

// New builds a filter. selectors are XPath expressions evaluated with each
// candidate element as the context node; a truthy result excludes it.
func New(excludedTags []string, selectors []string) (*Filter, error) {
	f := &Filter{excluded: make(map[string]bool, len(excludedTags))}
	for _, tag := range excludedTags {
		f.excluded[strings.ToUpper(tag)] = true
	}
	for _, s := range selectors {
		e, err := dom.Compile(s)
		if err != nil {
			return nil, err
		}
		f.selectors = append(f.selectors, e)
	}
	return f, nil
}

// Excluded reports whether n must be skipped. Text nodes are judged by their
// ancestors; elements by themselves and their ancestors.
func (f *Filter) Excluded(n *dom.Node) bool {
	if n == nil {
		return true
	}
	start := n.Parent
	if n.IsElement() {
		start = n
	}
	if editable(start) {
		return true
	}
	for el := start; el != nil; el = el.Parent {
		if el.IsElement() && f.excludesElement(el) {
			return true
		}
	}
	return false
}

func (f *Filter) excludesElement(el *dom.Node) bool {
	if f.excluded[el.Tag] {
		return true
	}
	if v, ok := el.AttrValue("aria-hidden"); ok && strings.EqualFold(strings.TrimSpace(v), "true") {
		return true
	}
	if _, ok := el.AttrValue("hidden"); ok {
		return true
	}
	if style, ok := el.AttrValue("style"); ok && hiddenByStyle(style) {
		return true
	}
	for _, e := range f.selectors {
		if dom.Matches(el, e) {
			return true
		}
	}
	return false
}

// editable resolves contenteditable inheritance: the nearest element that
// carries the attribute decides, and "false" switches editing off.
func editable(n *dom.Node) bool {
	for el := n; el != nil; el = el.Parent {
		if !el.IsElement() {
			continue
		}
		v, ok := el.AttrValue("contenteditable")
		if !ok {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "false":
			return false
		case "", "true", "plaintext-only":
			return true
		}
	}
	return false
}

// hiddenByStyle inspects inline declarations for display:none,
// visibility:hidden and opacity:0.
func hiddenByStyle(style string) bool {
	for _, decl := range strings.Split(style, ";") {
		prop, val, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		prop = strings.ToLower(strings.TrimSpace(prop))
		val = strings.ToLower(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(val), "!important")))
		switch prop {
		case "display":
			if val == "none" {
				return true
			}
		case "visibility":
			if val == "hidden" {
				return true
			}
		case "opacity":
			if val == "0" || val == "0.0" || val == "0%" {
				return true
			}
		}
	}
	return false
}
