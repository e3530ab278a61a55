package domain

import (
	"image/color"
	"strconv"
	"strings"
)

// Palette is an ordered list of packed RGB colors.
type Palette [12]uint32

// PairedPalette returns the ColorBrewer "Paired" qualitative palette used for
// automatic node coloring.
func PairedPalette() Palette {
	return Palette{
		0xa6cee3, 0x1f78b4, 0xb2df8a, 0x33a02c,
		0xfb9a99, 0xe31a1c, 0xfdbf6f, 0xff7f00,
		0xcab2d6, 0x6a3d9a, 0xffff99, 0xb15928,
	}
}

// At returns the color for a group index, wrapping around the palette.
func (p Palette) At(i int) uint32 {
	n := len(p)
	return p[((i%n)+n)%n]
}

// ResolveColors writes a palette color into colorField of every node record
// that has no truthy value there. Nodes are grouped by the value of
// groupBy; groups are numbered in the order they are first seen among the
// uncolored nodes. Nodes that already carry a color are never changed.
// An empty groupBy disables coloring.
func ResolveColors(nodes []Record, groupBy, colorField string) {
	if groupBy == "" {
		return
	}
	palette := PairedPalette()

	uncolored := make([]Record, 0, len(nodes))
	for _, rec := range nodes {
		if rec != nil && !rec.Truthy(colorField) {
			uncolored = append(uncolored, rec)
		}
	}

	groups := make(map[string]int)
	for _, rec := range uncolored {
		key := rec.String(groupBy)
		if _, seen := groups[key]; !seen {
			groups[key] = len(groups)
		}
	}

	for _, rec := range uncolored {
		rec[colorField] = palette.At(groups[rec.String(groupBy)])
	}
}

// ParseColor converts a record color value to packed RGB. Numbers are taken
// as packed values; strings may be "#rgb", "#rrggbb", "0xrrggbb" or a bare
// hex triplet. Zero values count as no color.
func ParseColor(v any) (uint32, bool) {
	if !truthy(v) {
		return 0, false
	}
	if s, ok := v.(string); ok {
		return parseHexColor(s)
	}
	f, ok := toFloat(v)
	if !ok || f < 0 || f > 0xffffff {
		return 0, false
	}
	return uint32(f), true
}

func parseHexColor(s string) (uint32, bool) {
	s = strings.TrimSpace(strings.ToLower(s))
	switch {
	case strings.HasPrefix(s, "#"):
		s = s[1:]
	case strings.HasPrefix(s, "0x"):
		s = s[2:]
	}
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 {
		return 0, false
	}
	c, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, false
	}
	return uint32(c), true
}

// RGBA converts a packed RGB color to an opaque color.RGBA.
func RGBA(c uint32) color.RGBA {
	return color.RGBA{
		R: uint8(c >> 16),
		G: uint8(c >> 8),
		B: uint8(c),
		A: 0xff,
	}
}

// HexColor formats a packed RGB color as "#rrggbb".
func HexColor(c uint32) string {
	s := strconv.FormatUint(uint64(c&0xffffff), 16)
	return "#" + strings.Repeat("0", 6-len(s)) + s
}
