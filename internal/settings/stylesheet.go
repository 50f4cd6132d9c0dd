package settings

import (
	"fmt"
	"strings"

	"github.com/FocuswithJustin/Bolder/core/highlight"
)

// BaseBackground is the highlight background used when no theme applies.
const BaseBackground = "#f9f4df"

// Stylesheet renders the CSS for highlighted words: the custom highlight
// pseudo-element for live pages, and a mark class for rendered snapshots,
// with the darken and lighten backgrounds applied per color scheme.
func Stylesheet(s Settings) string {
	var b strings.Builder
	fmt.Fprintf(&b, "::highlight(%s) {\n  font-weight: 700;\n  background-color: %s;\n}\n", highlight.Name, BaseBackground)
	fmt.Fprintf(&b, "mark.%s {\n  color: inherit;\n  font-weight: 700;\n  background-color: %s;\n}\n", highlight.Name, s.DarkenBg)
	fmt.Fprintf(&b, "@media (prefers-color-scheme: dark) {\n  mark.%s {\n    background-color: %s;\n  }\n}\n", highlight.Name, s.LightenBg)
	return b.String()
}
