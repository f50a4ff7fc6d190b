package state

import "testing"

func TestHitTest(t *testing.T) {
	prims := []Primitive{
		NewPrimitive(&Circle{Center: Pt(100, 100), Radius: 30, Filled: true}, "#ff0000", 3),
		NewPrimitive(&Line{Points: []Point{{300, 300}, {400, 300}, {400, 400}}}, "#00ff00", 3),
		NewPrimitive(&Arrow{Start: Pt(600, 100), End: Pt(700, 100)}, "#0000ff", 3),
		NewPrimitive(&Text{Anchor: Pt(100, 600), Content: "zone"}, "#ffffff", 3),
	}

	tests := []struct {
		name string
		at   Point
		want int
	}{
		{"circle inside margin", Pt(144, 100), 0},
		{"circle at margin edge", Pt(145, 100), NoHit},
		{"line first segment", Pt(350, 314), 1},
		{"line second segment", Pt(414, 350), 1},
		{"line too far", Pt(350, 315), NoHit},
		{"arrow within 20", Pt(650, 119), 2},
		{"arrow past end", Pt(721, 100), NoHit},
		{"text box corner", Pt(160, 625), 3},
		{"text box outside", Pt(161, 600), NoHit},
		{"empty space", Pt(900, 900), NoHit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HitTest(prims, tt.at); got != tt.want {
				t.Errorf("HitTest(%v) = %d, want %d", tt.at, got, tt.want)
			}
		})
	}
}

func TestHitTestIsPure(t *testing.T) {
	prims := []Primitive{
		NewPrimitive(&Line{Points: []Point{{0, 0}, {50, 50}}}, "#000000", 2),
	}
	first := HitTest(prims, Pt(25, 26))
	second := HitTest(prims, Pt(25, 26))
	if first != second || first != 0 {
		t.Errorf("Expected stable hit 0, got %d then %d", first, second)
	}
	if p := prims[0].Shape.(*Line).Points; len(p) != 2 || p[1] != Pt(50, 50) {
		t.Error("HitTest modified its input")
	}
}

// TestHitTestFirstInListOrder pins the tie-break for overlapping primitives:
// the earliest drawn wins, even after the later one is moved on top of it.
func TestHitTestFirstInListOrder(t *testing.T) {
	s := newTestSession(ToolCircleOutline)
	drag(s, Pt(100, 100), Pt(120, 100))
	drag(s, Pt(300, 300), Pt(320, 300))
	s.SetTool(ToolMove)
	drag(s, Pt(300, 300), Pt(100, 100))

	prims := s.Primitives()
	if got := HitTest(prims, Pt(100, 100)); got != 0 {
		t.Errorf("Expected first primitive, got %d", got)
	}
}

func TestHitTestSinglePointLine(t *testing.T) {
	prims := []Primitive{NewPrimitive(&Line{Points: []Point{{10, 10}}}, "#000000", 2)}
	if HitTest(prims, Pt(20, 10)) != 0 {
		t.Error("Expected a dot to be hit within the line threshold")
	}
}
