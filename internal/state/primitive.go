package state

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/google/uuid"
)

// Kind discriminates the Shape carried by a Primitive.
type Kind string

const (
	KindLine          Kind = "line"
	KindArrow         Kind = "arrow"
	KindCircle        Kind = "circle"
	KindCircleOutline Kind = "circle_outline"
	KindText          Kind = "text"
)

// Shape is the geometry of a primitive. The set of implementations is closed:
// *Line, *Arrow, *Circle and *Text.
type Shape interface {
	Kind() Kind
	translate(d Point)
	clone() Shape
}

// Line is a freehand polyline. Points keep insertion order.
type Line struct {
	Points []Point
}

// Arrow is a straight segment from Start to End.
type Arrow struct {
	Start, End Point
}

// Circle is either filled or outlined.
type Circle struct {
	Center Point
	Radius float64
	Filled bool
}

// Text is a label drawn on the canvas as part of the drawing.
type Text struct {
	Anchor  Point
	Content string
}

func (*Line) Kind() Kind  { return KindLine }
func (*Arrow) Kind() Kind { return KindArrow }
func (*Text) Kind() Kind  { return KindText }

func (c *Circle) Kind() Kind {
	if c.Filled {
		return KindCircle
	}
	return KindCircleOutline
}

func (l *Line) translate(d Point) {
	for i := range l.Points {
		l.Points[i] = l.Points[i].Add(d)
	}
}

func (a *Arrow) translate(d Point) {
	a.Start = a.Start.Add(d)
	a.End = a.End.Add(d)
}

func (c *Circle) translate(d Point) { c.Center = c.Center.Add(d) }
func (t *Text) translate(d Point)   { t.Anchor = t.Anchor.Add(d) }

func (l *Line) clone() Shape {
	points := make([]Point, len(l.Points))
	copy(points, l.Points)
	return &Line{Points: points}
}

func (a *Arrow) clone() Shape  { c := *a; return &c }
func (c *Circle) clone() Shape { n := *c; return &n }
func (t *Text) clone() Shape   { n := *t; return &n }

// Primitive is a committed drawable element of the tactical canvas.
type Primitive struct {
	ID    string
	Color string
	Width float64
	Shape Shape
}

// NewPrimitive assigns a fresh ID to the shape.
func NewPrimitive(shape Shape, color string, width float64) Primitive {
	return Primitive{
		ID:    uuid.NewString(),
		Color: color,
		Width: width,
		Shape: shape,
	}
}

func (p Primitive) Kind() Kind {
	if p.Shape == nil {
		return ""
	}
	return p.Shape.Kind()
}

// Clone returns a deep copy; the result shares no memory with p.
func (p Primitive) Clone() Primitive {
	if p.Shape != nil {
		p.Shape = p.Shape.clone()
	}
	return p
}

// Translate moves every geometry field by d in place.
func (p Primitive) Translate(d Point) {
	if p.Shape != nil {
		p.Shape.translate(d)
	}
}

// primitiveJSON is the wire form. Geometry fields are optional here and
// validated per kind on decode.
type primitiveJSON struct {
	ID      string   `json:"id"`
	Kind    Kind     `json:"kind"`
	Color   string   `json:"color"`
	Width   float64  `json:"width,omitempty"`
	Points  []Point  `json:"points,omitempty"`
	Start   *Point   `json:"start,omitempty"`
	End     *Point   `json:"end,omitempty"`
	Center  *Point   `json:"center,omitempty"`
	Radius  *float64 `json:"radius,omitempty"`
	Anchor  *Point   `json:"anchor,omitempty"`
	Content *string  `json:"text,omitempty"`
}

func (p Primitive) MarshalJSON() ([]byte, error) {
	w := primitiveJSON{ID: p.ID, Color: p.Color, Width: p.Width}
	switch s := p.Shape.(type) {
	case *Line:
		w.Kind = KindLine
		w.Points = s.Points
	case *Arrow:
		w.Kind = KindArrow
		w.Start, w.End = &s.Start, &s.End
	case *Circle:
		w.Kind = s.Kind()
		w.Center, w.Radius = &s.Center, &s.Radius
	case *Text:
		w.Kind = KindText
		w.Anchor, w.Content = &s.Anchor, &s.Content
	default:
		return nil, fmt.Errorf("primitive %s: unknown shape %T", p.ID, p.Shape)
	}
	return json.Marshal(w)
}

func (p *Primitive) UnmarshalJSON(data []byte) error {
	var w primitiveJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if w.ID == "" {
		return fmt.Errorf("primitive without id")
	}

	var shape Shape
	switch w.Kind {
	case KindLine:
		if len(w.Points) == 0 {
			return fmt.Errorf("line %s: no points", w.ID)
		}
		shape = &Line{Points: w.Points}
	case KindArrow:
		if w.Start == nil || w.End == nil {
			return fmt.Errorf("arrow %s: missing start or end", w.ID)
		}
		shape = &Arrow{Start: *w.Start, End: *w.End}
	case KindCircle, KindCircleOutline:
		if w.Center == nil || w.Radius == nil {
			return fmt.Errorf("circle %s: missing center or radius", w.ID)
		}
		if *w.Radius < 0 {
			return fmt.Errorf("circle %s: negative radius %v", w.ID, *w.Radius)
		}
		shape = &Circle{Center: *w.Center, Radius: *w.Radius, Filled: w.Kind == KindCircle}
	case KindText:
		if w.Anchor == nil || w.Content == nil {
			return fmt.Errorf("text %s: missing anchor or text", w.ID)
		}
		shape = &Text{Anchor: *w.Anchor, Content: *w.Content}
	default:
		log.Printf("[BOARD] Rejecting primitive %s with kind %q", w.ID, w.Kind)
		return fmt.Errorf("primitive %s: unknown kind %q", w.ID, w.Kind)
	}

	*p = Primitive{ID: w.ID, Color: w.Color, Width: w.Width, Shape: shape}
	return nil
}
