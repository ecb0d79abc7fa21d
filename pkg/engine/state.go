package engine

// Entity is a positioned simulation object. Only the solver and the
// interaction state machine move it.
type Entity struct {
	ID     string
	Name   string
	Type   string
	Weight float64
	Radius float64
	X, Y   float64
	VX, VY float64
	Pinned bool
}

// Relation links two entities by arena index. Phases hold the parametric
// positions of the flow particles, each in [0,1).
type Relation struct {
	ID     string
	Source int
	Target int
	Label  string
	Phases []float64
}

// State is the arena of entities and relations plus the simulation
// temperature. It is rebuilt from scratch on every data reload.
type State struct {
	Entities  []Entity
	Relations []Relation
	Alpha     float64

	byID   map[string]int
	byName map[string]int
	adj    [][]int
}

// Lookup resolves an entity by ID first and then by name.
func (s *State) Lookup(key string) (int, bool) {
	if s == nil || key == "" {
		return -1, false
	}
	if i, ok := s.byID[key]; ok {
		return i, true
	}
	if i, ok := s.byName[key]; ok {
		return i, true
	}
	return -1, false
}

// LookupName resolves an entity by its display name only.
func (s *State) LookupName(name string) (int, bool) {
	if s == nil {
		return -1, false
	}
	i, ok := s.byName[name]
	return i, ok
}

// Neighbors returns the entities one relation away from i.
func (s *State) Neighbors(i int) []int {
	if s == nil || i < 0 || i >= len(s.adj) {
		return nil
	}
	return s.adj[i]
}

// Reheat raises alpha to at least a.
func (s *State) Reheat(a float64) {
	if a > 1 {
		a = 1
	}
	if s.Alpha < a {
		s.Alpha = a
	}
}

// Nudge adds d to alpha, capped at 1.
func (s *State) Nudge(d float64) {
	s.Alpha += d
	if s.Alpha > 1 {
		s.Alpha = 1
	}
	if s.Alpha < 0 {
		s.Alpha = 0
	}
}

// Bounds returns the bounding box of all entity discs. ok is false when the
// arena is empty.
func (s *State) Bounds() (minX, minY, maxX, maxY float64, ok bool) {
	if s == nil || len(s.Entities) == 0 {
		return 0, 0, 0, 0, false
	}
	first := s.Entities[0]
	minX, maxX = first.X-first.Radius, first.X+first.Radius
	minY, maxY = first.Y-first.Radius, first.Y+first.Radius
	for _, e := range s.Entities[1:] {
		minX = min(minX, e.X-e.Radius)
		maxX = max(maxX, e.X+e.Radius)
		minY = min(minY, e.Y-e.Radius)
		maxY = max(maxY, e.Y+e.Radius)
	}
	return minX, minY, maxX, maxY, true
}

func (s *State) index() {
	s.byID = make(map[string]int, len(s.Entities))
	s.byName = make(map[string]int, len(s.Entities))
	for i, e := range s.Entities {
		s.byID[e.ID] = i
		if _, dup := s.byName[e.Name]; !dup {
			s.byName[e.Name] = i
		}
	}

	s.adj = make([][]int, len(s.Entities))
	seen := make(map[[2]int]bool, len(s.Relations)*2)
	link := func(a, b int) {
		if a == b || seen[[2]int{a, b}] {
			return
		}
		seen[[2]int{a, b}] = true
		s.adj[a] = append(s.adj[a], b)
	}
	for _, r := range s.Relations {
		link(r.Source, r.Target)
		link(r.Target, r.Source)
	}
}
