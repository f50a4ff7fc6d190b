package state

// Snapshot maps a background map name to its ordered primitives.
// Snapshots handed out by the Store and History are deep copies.
type Snapshot map[string][]Primitive

func (s Snapshot) Clone() Snapshot {
	out := make(Snapshot, len(s))
	for name, prims := range s {
		if len(prims) == 0 {
			continue
		}
		cp := make([]Primitive, len(prims))
		for i, p := range prims {
			cp[i] = p.Clone()
		}
		out[name] = cp
	}
	return out
}

// Count returns the total number of primitives across every map.
func (s Snapshot) Count() int {
	n := 0
	for _, prims := range s {
		n += len(prims)
	}
	return n
}

// Store owns the committed primitives of every background map.
// It is not safe for concurrent use; Session serializes access.
type Store struct {
	byMap Snapshot
}

func NewStore() *Store {
	return &Store{byMap: make(Snapshot)}
}

// List returns the primitives of one map. The slice is shared with the store;
// callers outside this package get copies through Session.
func (s *Store) List(mapName string) []Primitive {
	return s.byMap[mapName]
}

func (s *Store) Append(mapName string, p Primitive) {
	s.byMap[mapName] = append(s.byMap[mapName], p)
}

// Remove deletes the primitive at index i, keeping order.
func (s *Store) Remove(mapName string, i int) (Primitive, bool) {
	prims := s.byMap[mapName]
	if i < 0 || i >= len(prims) {
		return Primitive{}, false
	}
	removed := prims[i]
	s.byMap[mapName] = append(prims[:i:i], prims[i+1:]...)
	return removed, true
}

func (s *Store) Translate(mapName string, i int, d Point) bool {
	prims := s.byMap[mapName]
	if i < 0 || i >= len(prims) {
		return false
	}
	prims[i].Translate(d)
	return true
}

// Clear drops every primitive of one map and reports how many were removed.
func (s *Store) Clear(mapName string) int {
	n := len(s.byMap[mapName])
	delete(s.byMap, mapName)
	return n
}

func (s *Store) Snapshot() Snapshot {
	return s.byMap.Clone()
}

func (s *Store) Restore(snap Snapshot) {
	s.byMap = snap.Clone()
}
