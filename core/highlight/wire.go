package highlight

import "github.com/FocuswithJustin/Bolder/core/tokenize"

// WireRegion is the serialized form of a Region. Offsets are UTF-16 code
// units into the anchor's text, the unit browser ranges use; byte offsets
// are kept alongside for Go consumers.
type WireRegion struct {
	Node      uint64 `json:"node"`
	Start     int    `json:"start"`
	End       int    `json:"end"`
	ByteStart int    `json:"byte_start"`
	ByteEnd   int    `json:"byte_end"`
	Word      string `json:"word"`
	Rule      string `json:"rule"`
}

// WireCommand is the serialized form of a Command.
type WireCommand struct {
	Op     string     `json:"op"`
	Region WireRegion `json:"region"`
}

// ToWire converts r. Regions from a registry keep the UTF-16 offsets they
// were added with; any other region is measured against the current text,
// clamped to its length.
func ToWire(r Region) WireRegion {
	r = r.measure()
	w := WireRegion{
		Start:     r.UTF16Start,
		End:       r.UTF16End,
		ByteStart: r.Start,
		ByteEnd:   r.End,
		Word:      r.Word,
		Rule:      r.Rule.String(),
	}
	if r.Anchor != nil {
		w.Node = r.Anchor.ID
	}
	return w
}

// CommandsToWire converts a batch of recorded commands.
func CommandsToWire(cmds []Command) []WireCommand {
	out := make([]WireCommand, len(cmds))
	for i, c := range cmds {
		out[i] = WireCommand{Op: c.Op.String(), Region: ToWire(c.Region)}
	}
	return out
}

// RegionsToWire converts regions, preserving order.
func RegionsToWire(regions []Region) []WireRegion {
	out := make([]WireRegion, len(regions))
	for i, r := range regions {
		out[i] = ToWire(r)
	}
	return out
}

func utf16Offset(s string, i int) int {
	if i > len(s) {
		i = len(s)
	}
	if i < 0 {
		i = 0
	}
	return tokenize.UTF16Len(s[:i])
}
