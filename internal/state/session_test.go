package state

import (
	"errors"
	"math"
	"testing"
)

func newTestSession(tool Tool) *Session {
	s := NewSession("Bermuda")
	s.SetTool(tool)
	return s
}

func drag(s *Session, from Point, to ...Point) {
	s.PointerDown(from)
	for _, p := range to {
		s.PointerMove(p)
	}
	s.PointerUp()
}

// TestCircleEraseUndo covers create, erase within the tolerance margin, and undo.
func TestCircleEraseUndo(t *testing.T) {
	s := newTestSession(ToolCircle)
	drag(s, Pt(100, 100), Pt(130, 100))

	prims := s.Primitives()
	if len(prims) != 1 {
		t.Fatalf("Expected 1 primitive, got %d", len(prims))
	}
	c, ok := prims[0].Shape.(*Circle)
	if !ok || !c.Filled {
		t.Fatalf("Expected filled circle, got %#v", prims[0].Shape)
	}
	if c.Radius != 30 {
		t.Errorf("Expected radius 30, got %v", c.Radius)
	}

	s.SetTool(ToolEraser)
	if eff := s.PointerDown(Pt(128, 100)); eff != EffectRedraw {
		t.Errorf("Expected redraw after erase, got %v", eff)
	}
	s.PointerUp()
	if n := len(s.Primitives()); n != 0 {
		t.Fatalf("Expected circle erased, %d left", n)
	}

	if !s.Undo() {
		t.Fatal("Undo should succeed")
	}
	prims = s.Primitives()
	if len(prims) != 1 {
		t.Fatalf("Expected circle back after undo, got %d", len(prims))
	}
	if r := prims[0].Shape.(*Circle).Radius; r != 30 {
		t.Errorf("Expected restored radius 30, got %v", r)
	}
}

func TestFreehandKeepsEverySample(t *testing.T) {
	s := newTestSession(ToolDraw)
	const moves = 25
	s.PointerDown(Pt(0, 0))
	for i := 1; i <= moves; i++ {
		s.PointerMove(Pt(float64(i), float64(i*2)))
	}
	if _, ok := s.InProgress(); !ok {
		t.Fatal("Expected an in-progress line before pointer up")
	}
	if len(s.Primitives()) != 0 {
		t.Fatal("In-progress line must not be in the store")
	}
	s.PointerUp()

	line := s.Primitives()[0].Shape.(*Line)
	if len(line.Points) != moves+1 {
		t.Fatalf("Expected %d points, got %d", moves+1, len(line.Points))
	}
	for i, p := range line.Points {
		if p != Pt(float64(i), float64(i*2)) {
			t.Errorf("Point %d out of order: %v", i, p)
		}
	}
}

func TestEraserRemovesExactlyOne(t *testing.T) {
	s := newTestSession(ToolCircleOutline)
	drag(s, Pt(100, 100), Pt(110, 100))
	drag(s, Pt(105, 100), Pt(115, 100))
	drag(s, Pt(400, 400), Pt(410, 400))

	s.SetTool(ToolEraser)
	_, before := s.HistoryPosition()

	s.PointerDown(Pt(900, 900))
	if n := len(s.Primitives()); n != 3 {
		t.Errorf("Click on empty space removed something: %d left", n)
	}
	if _, after := s.HistoryPosition(); after != before {
		t.Error("Missed eraser click must not push history")
	}

	// Both overlapping circles are under the pointer; only one goes.
	s.PointerDown(Pt(105, 100))
	if n := len(s.Primitives()); n != 2 {
		t.Errorf("Expected 2 primitives after one erase, got %d", n)
	}
}

func TestMoveTranslatesAllGeometry(t *testing.T) {
	s := newTestSession(ToolArrow)
	drag(s, Pt(10, 10), Pt(50, 10))

	s.SetTool(ToolMove)
	_, before := s.HistoryPosition()
	drag(s, Pt(30, 12), Pt(35, 17), Pt(40, 22))

	a := s.Primitives()[0].Shape.(*Arrow)
	if a.Start != Pt(20, 20) || a.End != Pt(60, 20) {
		t.Errorf("Arrow not translated by (10,10): %v -> %v", a.Start, a.End)
	}
	if _, after := s.HistoryPosition(); after != before+1 {
		t.Errorf("Move should push exactly one snapshot, history %d -> %d", before, after)
	}

	s.Undo()
	a = s.Primitives()[0].Shape.(*Arrow)
	if a.Start != Pt(10, 10) {
		t.Errorf("Undo should restore pre-move position, got %v", a.Start)
	}
}

func TestMoveMissDoesNothing(t *testing.T) {
	s := newTestSession(ToolMove)
	if eff := s.PointerDown(Pt(5, 5)); eff != EffectNone {
		t.Errorf("Expected no effect, got %v", eff)
	}
	if eff := s.PointerUp(); eff != EffectNone {
		t.Errorf("Expected no effect on idle pointer up, got %v", eff)
	}
	if _, n := s.HistoryPosition(); n != 1 {
		t.Errorf("Expected untouched history, got %d snapshots", n)
	}
}

func TestTextTool(t *testing.T) {
	s := newTestSession(ToolText)
	if eff := s.PointerDown(Pt(50, 60)); eff != EffectPromptText {
		t.Fatalf("Expected prompt request, got %v", eff)
	}
	if s.CommitText(Pt(50, 60), "   ") {
		t.Error("Blank text must be abandoned")
	}
	if _, n := s.HistoryPosition(); n != 1 {
		t.Errorf("Abandoned text pushed history: %d snapshots", n)
	}

	if !s.CommitText(Pt(50, 60), " rush B ") {
		t.Fatal("Expected text to commit")
	}
	txt := s.Primitives()[0].Shape.(*Text)
	if txt.Content != "rush B" || txt.Anchor != Pt(50, 60) {
		t.Errorf("Unexpected text primitive %+v", txt)
	}
}

func TestSelectToolDrawsNothing(t *testing.T) {
	s := newTestSession(ToolSelect)
	drag(s, Pt(0, 0), Pt(100, 100))
	if len(s.Primitives()) != 0 {
		t.Error("Select tool must not create primitives")
	}
}

func TestStraightLineAndRectangle(t *testing.T) {
	s := newTestSession(ToolStraightLine)
	drag(s, Pt(0, 0), Pt(5, 5), Pt(10, 0))
	line := s.Primitives()[0].Shape.(*Line)
	if len(line.Points) != 2 || line.Points[1] != Pt(10, 0) {
		t.Errorf("Straight line should have two points ending at (10,0): %v", line.Points)
	}

	s.SetTool(ToolRectangle)
	drag(s, Pt(10, 10), Pt(20, 20), Pt(30, 40))
	rect := s.Primitives()[1].Shape.(*Line)
	want := []Point{{10, 10}, {30, 10}, {30, 40}, {10, 40}, {10, 10}}
	if len(rect.Points) != len(want) {
		t.Fatalf("Rectangle outline has %d points", len(rect.Points))
	}
	for i := range want {
		if rect.Points[i] != want[i] {
			t.Errorf("Corner %d: got %v want %v", i, rect.Points[i], want[i])
		}
	}
}

func TestZoomNormalizesCoordinates(t *testing.T) {
	s := newTestSession(ToolCircle)
	s.SetZoom(2)
	drag(s, Pt(200, 200), Pt(260, 200))

	c := s.Primitives()[0].Shape.(*Circle)
	if c.Center != Pt(100, 100) || c.Radius != 30 {
		t.Errorf("Expected zoom-independent circle at (100,100) r=30, got %v r=%v", c.Center, c.Radius)
	}

	s.SetZoom(10)
	if z := s.Zoom(); z != MaxZoom {
		t.Errorf("Zoom should clamp to %v, got %v", MaxZoom, z)
	}
}

func TestPointerLeaveCommits(t *testing.T) {
	s := newTestSession(ToolArrow)
	s.PointerDown(Pt(0, 0))
	s.PointerMove(Pt(40, 0))
	s.PointerLeave()

	if _, ok := s.InProgress(); ok {
		t.Error("Pointer leave must not leave an in-progress primitive")
	}
	if n := len(s.Primitives()); n != 1 {
		t.Fatalf("Expected arrow committed on leave, got %d", n)
	}
	if a := s.Primitives()[0].Shape.(*Arrow); a.End != Pt(40, 0) {
		t.Errorf("Unexpected arrow end %v", a.End)
	}
	if eff := s.PointerLeave(); eff != EffectNone {
		t.Errorf("Leave while idle should be a no-op, got %v", eff)
	}
}

func TestPrimitivesArePerMap(t *testing.T) {
	s := newTestSession(ToolCircle)
	drag(s, Pt(10, 10), Pt(20, 10))
	s.AddLabel("Team A", "#ffffff", Pt(50, 50))

	s.SelectMap("Purgatory")
	if n := len(s.Primitives()); n != 0 {
		t.Errorf("New map should start empty, got %d", n)
	}
	if n := len(s.Labels()); n != 1 {
		t.Errorf("Labels should follow the project across maps, got %d", n)
	}
	drag(s, Pt(10, 10), Pt(20, 10))
	drag(s, Pt(30, 10), Pt(40, 10))

	s.SelectMap("Bermuda")
	if n := len(s.Primitives()); n != 1 {
		t.Errorf("Expected Bermuda primitives restored, got %d", n)
	}
}

func TestClearIsUndoable(t *testing.T) {
	s := newTestSession(ToolCircle)
	drag(s, Pt(10, 10), Pt(20, 10))
	drag(s, Pt(50, 10), Pt(60, 10))

	if n := s.Clear(); n != 2 {
		t.Fatalf("Expected 2 cleared, got %d", n)
	}
	if s.Clear() != 0 {
		t.Error("Second clear should remove nothing")
	}
	s.Undo()
	if n := len(s.Primitives()); n != 2 {
		t.Errorf("Undo after clear should restore 2, got %d", n)
	}
}

func TestLabelLimit(t *testing.T) {
	s := NewSession("Kalahari")
	for i := 0; i < MaxLabels; i++ {
		if _, err := s.AddLabel("x", "#ffffff", Pt(float64(i*10), 0)); err != nil {
			t.Fatalf("Label %d rejected: %v", i+1, err)
		}
	}
	_, err := s.AddLabel("x", "#ffffff", Pt(0, 0))
	if !errors.Is(err, ErrLabelLimit) {
		t.Errorf("Expected ErrLabelLimit, got %v", err)
	}
	if n := len(s.Labels()); n != MaxLabels {
		t.Errorf("Expected %d labels, got %d", MaxLabels, n)
	}
}

func TestSelectToolDragsLabel(t *testing.T) {
	s := NewSession("Alpine")
	l, err := s.AddLabel("Player 1", "#ffffff", Pt(100, 100))
	if err != nil {
		t.Fatal(err)
	}
	drag(s, Pt(110, 105), Pt(140, 125))

	got := s.Labels()[0]
	if got.ID != l.ID || got.Position != Pt(130, 120) {
		t.Errorf("Expected label at (130,120), got %v", got.Position)
	}
	if _, n := s.HistoryPosition(); n != 1 {
		t.Error("Label drags are not recorded in history")
	}
	if !s.RemoveLabel(l.ID) || len(s.Labels()) != 0 {
		t.Error("Expected label removed")
	}
}

func TestOnChangeFiresOutsideLock(t *testing.T) {
	s := newTestSession(ToolCircle)
	calls := 0
	s.OnChange = func() {
		// Reading back must not deadlock.
		_ = s.Primitives()
		calls++
	}
	drag(s, Pt(0, 0), Pt(3, 4))
	if calls != 3 {
		t.Errorf("Expected 3 change notifications, got %d", calls)
	}
	if r := s.Primitives()[0].Shape.(*Circle).Radius; math.Abs(r-5) > 1e-9 {
		t.Errorf("Expected radius 5, got %v", r)
	}
}
