package state

import (
	"log"
	"strings"
	"sync"
)

// Zoom bounds, same steps as the board's zoom buttons.
const (
	MinZoom  = 0.3
	MaxZoom  = 3.0
	ZoomStep = 1.2
)

// Effect tells the caller of a pointer handler what to do next.
type Effect int

const (
	EffectNone Effect = iota
	EffectRedraw
	// EffectPromptText asks the caller to prompt for a string and pass it to
	// CommitText with the same pointer position.
	EffectPromptText
)

type gesture int

const (
	gestureIdle gesture = iota
	gestureDrawing
	gestureDragging
	gestureDraggingLabel
)

// Session is the editing state of one canvas: tool parameters, the primitive
// store, labels and history. All methods are safe for concurrent use.
// Pointer positions passed in are widget coordinates; they are divided by the
// zoom factor before being stored.
type Session struct {
	mu sync.RWMutex

	tool       Tool
	color      string
	width      float64
	arrowStyle ArrowStyle
	zoom       float64
	mapName    string

	store   *Store
	labels  *Labels
	history *History

	gesture   gesture
	pending   *Primitive
	anchor    Point
	dragIndex int
	dragLabel string
	last      Point

	// OnChange runs after every change to visible state, outside the lock.
	OnChange func()
}

func NewSession(mapName string) *Session {
	store := NewStore()
	return &Session{
		tool:       ToolSelect,
		color:      DefaultColor,
		width:      DefaultWidth,
		arrowStyle: ArrowSingle,
		zoom:       1,
		mapName:    mapName,
		store:      store,
		labels:     &Labels{},
		history:    NewHistory(store.Snapshot()),
		dragIndex:  NoHit,
	}
}

// update runs fn under the write lock and fires OnChange when fn reports a
// visible change.
func (s *Session) update(fn func() bool) bool {
	s.mu.Lock()
	changed := fn()
	onChange := s.OnChange
	s.mu.Unlock()
	if changed && onChange != nil {
		onChange()
	}
	return changed
}

func (s *Session) Tool() Tool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tool
}

// SetTool switches tools. An unfinished gesture is dropped; the store and
// history are untouched.
func (s *Session) SetTool(t Tool) {
	s.update(func() bool {
		s.tool = t
		return s.resetGesture()
	})
}

func (s *Session) Color() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.color
}

func (s *Session) SetColor(hex string) error {
	if _, err := ParseColor(hex); err != nil {
		return err
	}
	s.mu.Lock()
	s.color = hex
	s.mu.Unlock()
	return nil
}

func (s *Session) Width() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.width
}

func (s *Session) SetWidth(w float64) {
	s.mu.Lock()
	s.width = clamp(w, MinWidth, MaxWidth)
	s.mu.Unlock()
}

func (s *Session) ArrowStyle() ArrowStyle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.arrowStyle
}

func (s *Session) SetArrowStyle(style ArrowStyle) {
	s.update(func() bool {
		changed := s.arrowStyle != style
		s.arrowStyle = style
		return changed
	})
}

func (s *Session) Zoom() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.zoom
}

func (s *Session) SetZoom(z float64) {
	s.update(func() bool {
		z = clamp(z, MinZoom, MaxZoom)
		changed := z != s.zoom
		s.zoom = z
		return changed
	})
}

func (s *Session) ZoomIn()  { s.SetZoom(s.Zoom() * ZoomStep) }
func (s *Session) ZoomOut() { s.SetZoom(s.Zoom() / ZoomStep) }

func (s *Session) MapName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mapName
}

// SelectMap swaps in the primitive list of another background map.
// Labels stay, since they belong to the project rather than a map.
func (s *Session) SelectMap(name string) {
	s.update(func() bool {
		if name == s.mapName {
			return false
		}
		s.resetGesture()
		s.mapName = name
		log.Printf("[BOARD] Selected map %q (%d primitives)", name, len(s.store.List(name)))
		return true
	})
}

// Primitives returns a copy of the committed primitives of the active map.
func (s *Session) Primitives() []Primitive {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clonePrimitives(s.store.List(s.mapName))
}

// InProgress returns a copy of the primitive being drawn, if any.
func (s *Session) InProgress() (Primitive, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.pending == nil {
		return Primitive{}, false
	}
	return s.pending.Clone(), true
}

func (s *Session) toCanvas(p Point) Point { return p.Scale(1 / s.zoom) }

// PointerDown starts a gesture according to the active tool.
func (s *Session) PointerDown(at Point) Effect {
	effect := EffectNone
	s.update(func() bool {
		s.resetGesture()
		p := s.toCanvas(at)
		switch {
		case s.tool == ToolMove:
			i := HitTest(s.store.List(s.mapName), p)
			if i == NoHit {
				return false
			}
			s.gesture, s.dragIndex, s.last = gestureDragging, i, p
		case s.tool == ToolEraser:
			i := HitTest(s.store.List(s.mapName), p)
			if i == NoHit {
				return false
			}
			removed, _ := s.store.Remove(s.mapName, i)
			s.commit()
			log.Printf("[BOARD] Erased %s %s", removed.Kind(), removed.ID)
			effect = EffectRedraw
			return true
		case s.tool == ToolText:
			effect = EffectPromptText
			return false
		case s.tool.creates():
			s.begin(p)
			effect = EffectRedraw
			return true
		case s.tool == ToolSelect:
			id, ok := s.labels.HitTest(p)
			if !ok {
				return false
			}
			s.gesture, s.dragLabel, s.last = gestureDraggingLabel, id, p
		}
		return false
	})
	return effect
}

// begin creates the in-progress primitive for a creation tool.
func (s *Session) begin(p Point) {
	var shape Shape
	switch s.tool {
	case ToolDraw:
		shape = &Line{Points: []Point{p}}
	case ToolStraightLine:
		shape = &Line{Points: []Point{p, p}}
	case ToolRectangle:
		shape = &Line{Points: rectangle(p, p)}
	case ToolArrow:
		shape = &Arrow{Start: p, End: p}
	case ToolCircle:
		shape = &Circle{Center: p, Filled: true}
	case ToolCircleOutline:
		shape = &Circle{Center: p}
	default:
		return
	}
	prim := NewPrimitive(shape, s.color, s.width)
	s.pending, s.anchor, s.gesture = &prim, p, gestureDrawing
}

// PointerMove extends the in-progress primitive or drags the grabbed one.
func (s *Session) PointerMove(at Point) Effect {
	changed := s.update(func() bool {
		p := s.toCanvas(at)
		switch s.gesture {
		case gestureDragging:
			s.store.Translate(s.mapName, s.dragIndex, p.Sub(s.last))
			s.last = p
			return true
		case gestureDraggingLabel:
			if l, ok := s.labels.Get(s.dragLabel); ok {
				s.labels.Move(s.dragLabel, l.Position.Add(p.Sub(s.last)))
			}
			s.last = p
			return true
		case gestureDrawing:
			s.extend(p)
			return true
		}
		return false
	})
	if changed {
		return EffectRedraw
	}
	return EffectNone
}

func (s *Session) extend(p Point) {
	switch shape := s.pending.Shape.(type) {
	case *Line:
		switch s.tool {
		case ToolStraightLine:
			shape.Points[1] = p
		case ToolRectangle:
			shape.Points = rectangle(s.anchor, p)
		default:
			shape.Points = append(shape.Points, p)
		}
	case *Arrow:
		shape.End = p
	case *Circle:
		shape.Radius = s.anchor.Distance(p)
	}
}

// PointerUp finishes the current gesture. Committed changes push exactly one
// history snapshot.
func (s *Session) PointerUp() Effect {
	changed := s.update(func() bool {
		switch s.gesture {
		case gestureDrawing:
			s.store.Append(s.mapName, *s.pending)
			log.Printf("[BOARD] Committed %s %s on %q", s.pending.Kind(), s.pending.ID, s.mapName)
			s.pending = nil
			s.gesture = gestureIdle
			s.commit()
			return true
		case gestureDragging:
			s.gesture, s.dragIndex = gestureIdle, NoHit
			s.commit()
			return true
		case gestureDraggingLabel:
			s.gesture, s.dragLabel = gestureIdle, ""
			return true
		}
		return false
	})
	if changed {
		return EffectRedraw
	}
	return EffectNone
}

// PointerLeave is treated as PointerUp so no gesture is left half done.
func (s *Session) PointerLeave() Effect {
	return s.PointerUp()
}

// CommitText adds a text primitive at the pointer position. Blank content is
// abandoned without touching the store or history.
func (s *Session) CommitText(at Point, content string) bool {
	content = strings.TrimSpace(content)
	if content == "" {
		return false
	}
	return s.update(func() bool {
		prim := NewPrimitive(&Text{Anchor: s.toCanvas(at), Content: content}, s.color, s.width)
		s.store.Append(s.mapName, prim)
		s.commit()
		return true
	})
}

// Clear removes every primitive of the active map as one undoable step.
func (s *Session) Clear() int {
	n := 0
	s.update(func() bool {
		s.resetGesture()
		n = s.store.Clear(s.mapName)
		if n == 0 {
			return false
		}
		s.commit()
		log.Printf("[BOARD] Cleared %d primitives from %q", n, s.mapName)
		return true
	})
	return n
}

func (s *Session) Undo() bool {
	return s.update(func() bool {
		s.resetGesture()
		snap, ok := s.history.Undo()
		if ok {
			s.store.Restore(snap)
		}
		return ok
	})
}

func (s *Session) Redo() bool {
	return s.update(func() bool {
		s.resetGesture()
		snap, ok := s.history.Redo()
		if ok {
			s.store.Restore(snap)
		}
		return ok
	})
}

func (s *Session) CanUndo() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.history.CanUndo()
}

func (s *Session) CanRedo() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.history.CanRedo()
}

// HistoryPosition returns the history index and the number of snapshots.
func (s *Session) HistoryPosition() (index, length int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.history.Index(), s.history.Len()
}

// commit records the store in history. Callers hold the write lock.
func (s *Session) commit() {
	s.history.Push(s.store.Snapshot())
}

// resetGesture drops any unfinished gesture and reports whether one existed.
func (s *Session) resetGesture() bool {
	had := s.gesture != gestureIdle
	s.gesture, s.pending, s.dragIndex, s.dragLabel = gestureIdle, nil, NoHit, ""
	return had
}

// Labels returns a copy of the label overlay.
func (s *Session) Labels() []Label {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.labels.List()
}

// AddLabel places a text tag at a canvas position.
func (s *Session) AddLabel(text, color string, at Point) (Label, error) {
	return s.addLabel(Label{Kind: LabelText, Text: text, Color: color, Position: at})
}

// AddLogo places a logo image (PNG or JPEG bytes) at a canvas position.
func (s *Session) AddLogo(data []byte, at Point) (Label, error) {
	return s.addLabel(Label{Kind: LabelLogo, Logo: data, Position: at})
}

func (s *Session) addLabel(l Label) (Label, error) {
	var (
		added Label
		err   error
	)
	s.update(func() bool {
		added, err = s.labels.Add(l)
		return err == nil
	})
	if err != nil {
		log.Printf("[BOARD] Rejected label: %v", err)
	}
	return added, err
}

func (s *Session) MoveLabel(id string, to Point) bool {
	return s.update(func() bool { return s.labels.Move(id, to) })
}

func (s *Session) RemoveLabel(id string) bool {
	return s.update(func() bool { return s.labels.Remove(id) })
}

// Scene is a consistent copy of everything the compositor draws.
type Scene struct {
	MapName    string
	Primitives []Primitive
	Labels     []Label
	ArrowStyle ArrowStyle
}

// Scene excludes the in-progress primitive.
func (s *Session) Scene() Scene {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Scene{
		MapName:    s.mapName,
		Primitives: clonePrimitives(s.store.List(s.mapName)),
		Labels:     s.labels.List(),
		ArrowStyle: s.arrowStyle,
	}
}

func clonePrimitives(prims []Primitive) []Primitive {
	out := make([]Primitive, len(prims))
	for i, p := range prims {
		out[i] = p.Clone()
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// rectangle returns a closed outline through the two opposite corners.
func rectangle(a, c Point) []Point {
	return []Point{a, {X: c.X, Y: a.Y}, c, {X: a.X, Y: c.Y}, a}
}
