package state

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

// Tool is the active tool of the drawing surface.
type Tool int

const (
	ToolSelect Tool = iota
	ToolMove
	ToolDraw
	ToolArrow
	ToolCircle
	ToolCircleOutline
	ToolRectangle
	ToolStraightLine
	ToolText
	ToolEraser
)

var toolNames = [...]string{
	ToolSelect:        "select",
	ToolMove:          "move",
	ToolDraw:          "draw",
	ToolArrow:         "arrow",
	ToolCircle:        "circle",
	ToolCircleOutline: "circleOutline",
	ToolRectangle:     "rectangle",
	ToolStraightLine:  "straightLine",
	ToolText:          "text",
	ToolEraser:        "eraser",
}

// Tools lists every tool in toolbar order.
func Tools() []Tool {
	tools := make([]Tool, len(toolNames))
	for i := range toolNames {
		tools[i] = Tool(i)
	}
	return tools
}

func (t Tool) String() string {
	if t < 0 || int(t) >= len(toolNames) {
		return fmt.Sprintf("Tool(%d)", int(t))
	}
	return toolNames[t]
}

func ParseTool(name string) (Tool, error) {
	for i, n := range toolNames {
		if n == name {
			return Tool(i), nil
		}
	}
	return ToolSelect, fmt.Errorf("unknown tool %q", name)
}

// creates reports whether pointer-down with this tool begins an in-progress
// primitive.
func (t Tool) creates() bool {
	switch t {
	case ToolDraw, ToolArrow, ToolCircle, ToolCircleOutline, ToolRectangle, ToolStraightLine:
		return true
	}
	return false
}

// ArrowStyle selects where arrow heads are drawn.
type ArrowStyle string

const (
	ArrowSingle ArrowStyle = "single"
	ArrowDouble ArrowStyle = "double"
	ArrowNone   ArrowStyle = "none"
)

func ArrowStyles() []ArrowStyle { return []ArrowStyle{ArrowSingle, ArrowDouble, ArrowNone} }

// Stroke width bounds, same range as the toolbar slider.
const (
	MinWidth     = 1.0
	MaxWidth     = 50.0
	DefaultWidth = 3.0
)

const DefaultColor = "#ff0000"

// Palette is the toolbar swatch set.
var Palette = []string{"#000000", "#ff0000", "#00ff00", "#0000ff", "#ffff00", "#ffffff"}

// ParseColor converts "#rrggbb" or "#rgb" to an opaque color.
func ParseColor(hex string) (color.NRGBA, error) {
	s := strings.TrimPrefix(hex, "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 {
		return color.NRGBA{}, fmt.Errorf("invalid color %q", hex)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid color %q: %w", hex, err)
	}
	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, nil
}

// MustColor is ParseColor falling back to black.
func MustColor(hex string) color.NRGBA {
	c, err := ParseColor(hex)
	if err != nil {
		return color.NRGBA{A: 255}
	}
	return c
}

// ColorHex formats c as "#rrggbb", dropping alpha.
func ColorHex(c color.Color) string {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return fmt.Sprintf("#%02x%02x%02x", n.R, n.G, n.B)
}
