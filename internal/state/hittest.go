package state

import "math"

// Hit tolerances in canvas pixels, independent of stroke width.
const (
	CircleHitMargin   = 15.0
	LineHitDistance   = 15.0
	ArrowHitDistance  = 20.0
	TextHitHalfWidth  = 60.0
	TextHitHalfHeight = 25.0
)

// NoHit is returned by HitTest when nothing is under the pointer.
const NoHit = -1

// HitTest returns the index of the first primitive under p, in list order,
// or NoHit. It has no side effects.
func HitTest(prims []Primitive, p Point) int {
	for i, prim := range prims {
		if hits(prim.Shape, p) {
			return i
		}
	}
	return NoHit
}

func hits(shape Shape, p Point) bool {
	switch s := shape.(type) {
	case *Circle:
		return p.Distance(s.Center) < s.Radius+CircleHitMargin
	case *Line:
		if len(s.Points) == 1 {
			return p.Distance(s.Points[0]) < LineHitDistance
		}
		for i := 1; i < len(s.Points); i++ {
			if SegmentDistance(p, s.Points[i-1], s.Points[i]) < LineHitDistance {
				return true
			}
		}
		return false
	case *Arrow:
		return SegmentDistance(p, s.Start, s.End) < ArrowHitDistance
	case *Text:
		return math.Abs(p.X-s.Anchor.X) <= TextHitHalfWidth &&
			math.Abs(p.Y-s.Anchor.Y) <= TextHitHalfHeight
	default:
		return false
	}
}
