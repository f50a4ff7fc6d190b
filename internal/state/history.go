package state

// History keeps snapshots of the Store for undo and redo.
// The index always satisfies 0 <= index < len(snapshots).
type History struct {
	snapshots []Snapshot
	index     int
}

// NewHistory starts a history whose only entry is the initial state.
func NewHistory(initial Snapshot) *History {
	return &History{snapshots: []Snapshot{initial.Clone()}}
}

// Push drops any redo tail, appends snap and makes it current.
func (h *History) Push(snap Snapshot) {
	h.snapshots = append(h.snapshots[:h.index+1], snap.Clone())
	h.index = len(h.snapshots) - 1
}

// Undo steps back one snapshot. It returns false at the first snapshot.
func (h *History) Undo() (Snapshot, bool) {
	if h.index == 0 {
		return nil, false
	}
	h.index--
	return h.snapshots[h.index].Clone(), true
}

// Redo steps forward one snapshot. It returns false at the last snapshot.
func (h *History) Redo() (Snapshot, bool) {
	if h.index >= len(h.snapshots)-1 {
		return nil, false
	}
	h.index++
	return h.snapshots[h.index].Clone(), true
}

func (h *History) Index() int { return h.index }
func (h *History) Len() int   { return len(h.snapshots) }

func (h *History) CanUndo() bool { return h.index > 0 }
func (h *History) CanRedo() bool { return h.index < len(h.snapshots)-1 }
