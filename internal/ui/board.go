package ui

import (
	"bytes"
	"image"
	"image/color"
	"log"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"TacticalBoard/internal/export"
	"TacticalBoard/internal/state"
)

const (
	textSize  = 20
	labelSize = 22
)

var defaultBoardSize = fyne.NewSize(800, 600)

// BoardWidget is the drawing surface. It turns pointer events into Session
// calls and draws the session's map over the background image, scaled by
// the session zoom.
type BoardWidget struct {
	widget.BaseWidget

	Session *state.Session

	// OnTextPrompt is called when the text tool needs content for a point.
	// The handler commits through CommitText.
	OnTextPrompt func(at state.Point)
	// OnChange runs after every redraw-worthy session change.
	OnChange func()

	background image.Image
	logos      map[string]cachedLogo // decoded logo labels by ID
	mu         sync.RWMutex
}

type cachedLogo struct {
	data []byte
	img  image.Image
}

var _ fyne.Widget = (*BoardWidget)(nil)
var _ fyne.Draggable = (*BoardWidget)(nil)
var _ desktop.Mouseable = (*BoardWidget)(nil)
var _ desktop.Hoverable = (*BoardWidget)(nil)

func NewBoardWidget(s *state.Session) *BoardWidget {
	b := &BoardWidget{Session: s, logos: make(map[string]cachedLogo)}
	s.OnChange = b.changed
	b.ExtendBaseWidget(b)
	return b
}

func (b *BoardWidget) changed() {
	b.pruneLogos()
	b.Refresh()
	if b.OnChange != nil {
		b.OnChange()
	}
}

// SetBackground replaces the map image. nil shows a blank board.
func (b *BoardWidget) SetBackground(img image.Image) {
	b.mu.Lock()
	b.background = img
	b.mu.Unlock()
	b.Refresh()
}

// canvasSize is the unzoomed board size: the background's pixel size.
func (b *BoardWidget) canvasSize() fyne.Size {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.background == nil {
		return defaultBoardSize
	}
	sz := b.background.Bounds().Size()
	return fyne.NewSize(float32(sz.X), float32(sz.Y))
}

// logo returns the decoded image of a logo label. A cached image is reused
// only while the label still carries the same bytes; a loaded project may
// reuse an ID for a different logo.
func (b *BoardWidget) logo(l state.Label) image.Image {
	b.mu.Lock()
	defer b.mu.Unlock()
	if c, ok := b.logos[l.ID]; ok && bytes.Equal(c.data, l.Logo) {
		return c.img
	}
	img, err := export.DecodeImage(l.Logo)
	if err != nil {
		log.Printf("[BOARD] Logo %s: %v", l.ID, err)
		delete(b.logos, l.ID)
		return nil
	}
	b.logos[l.ID] = cachedLogo{data: l.Logo, img: img}
	return img
}

// pruneLogos drops cached logos whose labels are gone.
func (b *BoardWidget) pruneLogos() {
	live := make(map[string]bool)
	for _, l := range b.Session.Labels() {
		if l.Kind == state.LabelLogo {
			live[l.ID] = true
		}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for id := range b.logos {
		if !live[id] {
			delete(b.logos, id)
		}
	}
}

func toPoint(p fyne.Position) state.Point {
	return state.Pt(float64(p.X), float64(p.Y))
}

func (b *BoardWidget) MouseDown(e *desktop.MouseEvent) {
	if e.Button != desktop.MouseButtonPrimary {
		return
	}
	if b.Session.PointerDown(toPoint(e.Position)) == state.EffectPromptText {
		at := toPoint(e.Position)
		if b.OnTextPrompt != nil {
			b.OnTextPrompt(at)
		}
	}
}

func (b *BoardWidget) Dragged(e *fyne.DragEvent) {
	b.Session.PointerMove(toPoint(e.Position))
}

// MouseUp and DragEnd both end the gesture; the second call is a no-op.
func (b *BoardWidget) MouseUp(e *desktop.MouseEvent) {
	if e.Button == desktop.MouseButtonPrimary {
		b.Session.PointerUp()
	}
}

func (b *BoardWidget) DragEnd() {
	b.Session.PointerUp()
}

func (b *BoardWidget) MouseIn(*desktop.MouseEvent)    {}
func (b *BoardWidget) MouseMoved(*desktop.MouseEvent) {}

func (b *BoardWidget) MouseOut() {
	b.Session.PointerLeave()
}

// CommitText places text entered for a text-tool prompt.
func (b *BoardWidget) CommitText(at state.Point, content string) bool {
	return b.Session.CommitText(at, content)
}

func (b *BoardWidget) CreateRenderer() fyne.WidgetRenderer {
	r := &boardRenderer{board: b, paper: canvas.NewRectangle(color.White)}
	r.Refresh()
	return r
}

type boardRenderer struct {
	board   *BoardWidget
	paper   *canvas.Rectangle
	bg      *canvas.Image
	objects []fyne.CanvasObject
}

func (r *boardRenderer) Objects() []fyne.CanvasObject {
	return r.objects
}

func (r *boardRenderer) MinSize() fyne.Size {
	z := float32(r.board.Session.Zoom())
	sz := r.board.canvasSize()
	return fyne.NewSize(sz.Width*z, sz.Height*z)
}

func (r *boardRenderer) Layout(size fyne.Size) {
	r.paper.Resize(size)
	if r.bg != nil {
		r.bg.Move(fyne.NewPos(0, 0))
		r.bg.Resize(r.MinSize())
	}
}

// Refresh rebuilds the scene graph from the session.
func (r *boardRenderer) Refresh() {
	b := r.board
	b.mu.RLock()
	bgImg := b.background
	b.mu.RUnlock()

	if bgImg == nil {
		r.bg = nil
	} else if r.bg == nil || r.bg.Image != bgImg {
		r.bg = canvas.NewImageFromImage(bgImg)
		r.bg.FillMode = canvas.ImageFillStretch
		r.bg.ScaleMode = canvas.ImageScaleSmooth
	}

	d := drawer{z: float32(b.Session.Zoom()), style: b.Session.ArrowStyle()}
	objects := []fyne.CanvasObject{r.paper}
	if r.bg != nil {
		objects = append(objects, r.bg)
	}
	for _, p := range b.Session.Primitives() {
		objects = append(objects, d.primitive(p)...)
	}
	if p, ok := b.Session.InProgress(); ok {
		objects = append(objects, d.primitive(p)...)
	}
	for _, l := range b.Session.Labels() {
		objects = append(objects, d.label(l, b.logo(l))...)
	}
	r.objects = objects

	r.Layout(b.Size().Max(r.MinSize()))
	canvas.Refresh(b)
}

func (r *boardRenderer) Destroy() {}

// drawer converts canvas-space geometry into fyne objects at zoom z.
type drawer struct {
	z     float32
	style state.ArrowStyle
}

func (d drawer) pos(p state.Point) fyne.Position {
	return fyne.NewPos(float32(p.X)*d.z, float32(p.Y)*d.z)
}

func (d drawer) line(a, b state.Point, c color.Color, width float64) *canvas.Line {
	l := canvas.NewLine(c)
	l.StrokeWidth = float32(width) * d.z
	l.Position1 = d.pos(a)
	l.Position2 = d.pos(b)
	return l
}

func (d drawer) primitive(p state.Primitive) []fyne.CanvasObject {
	c := state.MustColor(p.Color)
	switch s := p.Shape.(type) {
	case *state.Line:
		if len(s.Points) == 1 {
			return []fyne.CanvasObject{d.dot(s.Points[0], p.Width/2, c)}
		}
		objs := make([]fyne.CanvasObject, 0, len(s.Points)-1)
		for i := 1; i < len(s.Points); i++ {
			objs = append(objs, d.line(s.Points[i-1], s.Points[i], c, p.Width))
		}
		return objs
	case *state.Arrow:
		objs := []fyne.CanvasObject{d.line(s.Start, s.End, c, p.Width)}
		for _, head := range export.ArrowHeads(*s, d.style, p.Width) {
			tip, left, right := head[0], head[1], head[2]
			objs = append(objs,
				d.line(tip, left, c, p.Width),
				d.line(tip, right, c, p.Width),
				d.line(left, right, c, p.Width))
		}
		return objs
	case *state.Circle:
		circle := canvas.NewCircle(color.Transparent)
		if s.Filled {
			circle.FillColor = c
		} else {
			circle.StrokeColor = c
			circle.StrokeWidth = float32(p.Width) * d.z
		}
		circle.Position1 = d.pos(s.Center.Sub(state.Pt(s.Radius, s.Radius)))
		circle.Position2 = d.pos(s.Center.Add(state.Pt(s.Radius, s.Radius)))
		return []fyne.CanvasObject{circle}
	case *state.Text:
		return d.text(s.Content, s.Anchor, c, textSize)
	}
	return nil
}

func (d drawer) dot(at state.Point, r float64, c color.Color) *canvas.Circle {
	dot := canvas.NewCircle(c)
	dot.Position1 = d.pos(at.Sub(state.Pt(r, r)))
	dot.Position2 = d.pos(at.Add(state.Pt(r, r)))
	return dot
}

// text centers content on at, with a dark halo so it reads on any map.
func (d drawer) text(content string, at state.Point, c color.Color, size float32) []fyne.CanvasObject {
	style := fyne.TextStyle{Bold: true}
	sz := fyne.MeasureText(content, size*d.z, style)
	origin := d.pos(at).Subtract(fyne.NewPos(sz.Width/2, sz.Height/2))

	objs := make([]fyne.CanvasObject, 0, 6)
	for _, off := range []fyne.Position{{X: -2, Y: -2}, {X: 2, Y: -2}, {X: -2, Y: 2}, {X: 2, Y: 2}, {X: 0, Y: 3}} {
		halo := canvas.NewText(content, color.Black)
		halo.TextStyle, halo.TextSize = style, size*d.z
		halo.Move(origin.Add(off))
		objs = append(objs, halo)
	}
	t := canvas.NewText(content, c)
	t.TextStyle, t.TextSize = style, size*d.z
	t.Move(origin)
	return append(objs, t)
}

func (d drawer) label(l state.Label, logo image.Image) []fyne.CanvasObject {
	if l.Kind == state.LabelText {
		return d.text(l.Text, l.Position, state.MustColor(l.Color), labelSize)
	}
	if logo == nil {
		return nil
	}
	b := logo.Bounds()
	h := float32(state.LogoSize) * d.z
	w := h * float32(b.Dx()) / float32(b.Dy())
	img := canvas.NewImageFromImage(logo)
	img.FillMode = canvas.ImageFillStretch
	img.Resize(fyne.NewSize(w, h))
	img.Move(d.pos(l.Position).Subtract(fyne.NewPos(w/2, h/2)))
	return []fyne.CanvasObject{img}
}
