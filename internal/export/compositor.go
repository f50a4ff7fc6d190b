package export

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"TacticalBoard/internal/state"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"github.com/nfnt/resize"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
)

const (
	arrowHeadLength = 18.0
	arrowHeadAngle  = math.Pi / 7

	labelFontSize     = 22.0
	textFontSize      = 20.0
	watermarkFontSize = 16.0

	panelPadding = 8.0
	panelRadius  = 8.0
	edgeMargin   = 16.0
)

// outlineOffsets are the halo copies drawn behind text when no panel is shown.
var outlineOffsets = [5]state.Point{{X: -2, Y: -2}, {X: 2, Y: -2}, {X: -2, Y: 2}, {X: 2, Y: 2}, {X: 0, Y: 3}}

var (
	outlineColor = color.NRGBA{A: 255}
	panelColor   = color.NRGBA{A: 140}
)

// Options controls the optional parts of the composite.
type Options struct {
	Watermark          string
	ShowLabelPanel     bool
	ShowWatermarkPanel bool
}

// Compositor flattens a scene over its background into one raster image.
type Compositor struct {
	opts      Options
	labelFace font.Face
	textFace  font.Face
	markFace  font.Face
}

func NewCompositor(opts Options) (*Compositor, error) {
	regular, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font: %w", err)
	}
	bold, err := truetype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font: %w", err)
	}
	return &Compositor{
		opts:      opts,
		labelFace: truetype.NewFace(bold, &truetype.Options{Size: labelFontSize, DPI: 72, Hinting: font.HintingFull}),
		textFace:  truetype.NewFace(bold, &truetype.Options{Size: textFontSize, DPI: 72, Hinting: font.HintingFull}),
		markFace:  truetype.NewFace(regular, &truetype.Options{Size: watermarkFontSize, DPI: 72, Hinting: font.HintingFull}),
	}, nil
}

// Compose draws, in order: background, primitives in stored order, labels,
// watermark. The result has the background's size; canvas coordinates map
// 1:1 to its pixels.
func (c *Compositor) Compose(background image.Image, scene state.Scene) (image.Image, error) {
	if background == nil {
		return nil, fmt.Errorf("%w: no background", ErrImageLoad)
	}
	dc := gg.NewContextForImage(background)
	dc.SetLineCap(gg.LineCapRound)
	dc.SetLineJoin(gg.LineJoinRound)

	for _, p := range scene.Primitives {
		c.drawPrimitive(dc, p, scene.ArrowStyle)
	}
	for _, l := range scene.Labels {
		if err := c.drawLabel(dc, l); err != nil {
			return nil, fmt.Errorf("label %s: %w", l.ID, err)
		}
	}
	if c.opts.Watermark != "" {
		c.drawWatermark(dc)
	}
	return dc.Image(), nil
}

func (c *Compositor) drawPrimitive(dc *gg.Context, p state.Primitive, style state.ArrowStyle) {
	col := state.MustColor(p.Color)
	width := p.Width
	if width <= 0 {
		width = state.DefaultWidth
	}
	dc.SetColor(col)
	dc.SetLineWidth(width)

	switch s := p.Shape.(type) {
	case *state.Line:
		if len(s.Points) == 1 {
			dc.DrawCircle(s.Points[0].X, s.Points[0].Y, width/2)
			dc.Fill()
			return
		}
		dc.MoveTo(s.Points[0].X, s.Points[0].Y)
		for _, pt := range s.Points[1:] {
			dc.LineTo(pt.X, pt.Y)
		}
		dc.Stroke()
	case *state.Arrow:
		dc.DrawLine(s.Start.X, s.Start.Y, s.End.X, s.End.Y)
		dc.Stroke()
		for _, head := range ArrowHeads(*s, style, width) {
			dc.MoveTo(head[0].X, head[0].Y)
			dc.LineTo(head[1].X, head[1].Y)
			dc.LineTo(head[2].X, head[2].Y)
			dc.ClosePath()
			dc.Fill()
		}
	case *state.Circle:
		dc.DrawCircle(s.Center.X, s.Center.Y, s.Radius)
		if s.Filled {
			dc.Fill()
		} else {
			dc.Stroke()
		}
	case *state.Text:
		dc.SetFontFace(c.textFace)
		drawOutlinedText(dc, s.Content, s.Anchor, col)
	}
}

func (c *Compositor) drawLabel(dc *gg.Context, l state.Label) error {
	switch l.Kind {
	case state.LabelLogo:
		img, err := DecodeImage(l.Logo)
		if err != nil {
			return err
		}
		logo := resize.Resize(0, uint(state.LogoSize), img, resize.Lanczos3)
		if c.opts.ShowLabelPanel {
			b := logo.Bounds()
			drawPanel(dc, l.Position, float64(b.Dx()), float64(b.Dy()))
		}
		dc.DrawImageAnchored(logo, int(l.Position.X), int(l.Position.Y), 0.5, 0.5)
	default:
		dc.SetFontFace(c.labelFace)
		col := state.MustColor(l.Color)
		if c.opts.ShowLabelPanel {
			w, h := dc.MeasureString(l.Text)
			drawPanel(dc, l.Position, w, h)
			dc.SetColor(col)
			dc.DrawStringAnchored(l.Text, l.Position.X, l.Position.Y, 0.5, 0.5)
		} else {
			drawOutlinedText(dc, l.Text, l.Position, col)
		}
	}
	return nil
}

// drawWatermark pins the watermark to the bottom-right corner.
func (c *Compositor) drawWatermark(dc *gg.Context) {
	dc.SetFontFace(c.markFace)
	w, h := dc.MeasureString(c.opts.Watermark)
	center := state.Point{
		X: float64(dc.Width()) - edgeMargin - panelPadding - w/2,
		Y: float64(dc.Height()) - edgeMargin - panelPadding - h/2,
	}
	white := color.NRGBA{R: 255, G: 255, B: 255, A: 230}
	if c.opts.ShowWatermarkPanel {
		drawPanel(dc, center, w, h)
		dc.SetColor(white)
		dc.DrawStringAnchored(c.opts.Watermark, center.X, center.Y, 0.5, 0.5)
		return
	}
	drawOutlinedText(dc, c.opts.Watermark, center, white)
}

// drawPanel fills a semi-transparent rounded box of content size w x h
// centered on at.
func drawPanel(dc *gg.Context, at state.Point, w, h float64) {
	dc.SetColor(panelColor)
	dc.DrawRoundedRectangle(at.X-w/2-panelPadding, at.Y-h/2-panelPadding,
		w+2*panelPadding, h+2*panelPadding, panelRadius)
	dc.Fill()
}

func drawOutlinedText(dc *gg.Context, s string, at state.Point, fill color.Color) {
	dc.SetColor(outlineColor)
	for _, off := range outlineOffsets {
		dc.DrawStringAnchored(s, at.X+off.X, at.Y+off.Y, 0.5, 0.5)
	}
	dc.SetColor(fill)
	dc.DrawStringAnchored(s, at.X, at.Y, 0.5, 0.5)
}

// ArrowHeads returns the head triangles of an arrow as (tip, left, right).
// Single style puts a head on End, double on both ends, none on neither.
// A zero-length arrow has no direction and gets no heads.
func ArrowHeads(a state.Arrow, style state.ArrowStyle, width float64) [][3]state.Point {
	if a.Start == a.End {
		return nil
	}
	size := math.Max(arrowHeadLength, width*3)
	var heads [][3]state.Point
	switch style {
	case state.ArrowNone:
	case state.ArrowDouble:
		heads = append(heads, arrowHead(a.Start, a.End, size), arrowHead(a.End, a.Start, size))
	default:
		heads = append(heads, arrowHead(a.End, a.Start, size))
	}
	return heads
}

func arrowHead(tip, from state.Point, size float64) [3]state.Point {
	angle := math.Atan2(tip.Y-from.Y, tip.X-from.X)
	return [3]state.Point{
		tip,
		{X: tip.X - size*math.Cos(angle-arrowHeadAngle), Y: tip.Y - size*math.Sin(angle-arrowHeadAngle)},
		{X: tip.X - size*math.Cos(angle+arrowHeadAngle), Y: tip.Y - size*math.Sin(angle+arrowHeadAngle)},
	}
}
