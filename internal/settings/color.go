package settings

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/FocuswithJustin/Bolder/core/errors"
)

var rgbaPattern = regexp.MustCompile(`^\s*rgba?\(\s*(\d{1,3})\s*,\s*(\d{1,3})\s*,\s*(\d{1,3})\s*(?:,\s*(\d*\.?\d+)\s*)?\)\s*$`)

// parseColor splits an rgb()/rgba() color into its channels and opacity.
// The whole string must be the color, channels at most 255 and the opacity
// between 0 and 1.
func parseColor(s string) (rgb [3]int, opacity float64, ok bool) {
	m := rgbaPattern.FindStringSubmatch(s)
	if m == nil {
		return rgb, 0, false
	}
	for i, c := range m[1:4] {
		v, err := strconv.Atoi(c)
		if err != nil || v > 255 {
			return rgb, 0, false
		}
		rgb[i] = v
	}
	opacity = 1
	if m[4] != "" {
		v, err := strconv.ParseFloat(m[4], 64)
		if err != nil || v < 0 || v > 1 {
			return rgb, 0, false
		}
		opacity = v
	}
	return rgb, opacity, true
}

// IsColor reports whether s is exactly one rgb() or rgba() color.
func IsColor(s string) bool {
	_, _, ok := parseColor(s)
	return ok
}

// RGBAToHexOpacity splits an rgb()/rgba() color into a #rrggbb hex value and
// an opacity. Anything IsColor rejects yields opaque black.
func RGBAToHexOpacity(rgba string) (hex string, opacity float64) {
	rgb, opacity, ok := parseColor(rgba)
	if !ok {
		return "#000000", 1
	}
	return fmt.Sprintf("#%02x%02x%02x", rgb[0], rgb[1], rgb[2]), opacity
}

// HexOpacityToRGBA joins a #rrggbb color and an opacity into rgba() form.
func HexOpacityToRGBA(hex string, opacity float64) (string, error) {
	if len(hex) != 7 || hex[0] != '#' {
		return "", errors.NewValidation("color", fmt.Sprintf("%q is not a #rrggbb color", hex))
	}
	var rgb [3]uint64
	for i := range rgb {
		v, err := strconv.ParseUint(hex[1+2*i:3+2*i], 16, 8)
		if err != nil {
			return "", errors.NewValidation("color", fmt.Sprintf("%q is not a #rrggbb color", hex))
		}
		rgb[i] = v
	}
	if opacity < 0 || opacity > 1 {
		return "", errors.NewValidation("opacity", "must be between 0 and 1")
	}
	return fmt.Sprintf("rgba(%d, %d, %d, %s)", rgb[0], rgb[1], rgb[2], strconv.FormatFloat(opacity, 'f', -1, 64)), nil
}
