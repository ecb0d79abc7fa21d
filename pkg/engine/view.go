package engine

import "time"

// EntityState is the visual emphasis of an entity. Higher values win when
// several apply.
type EntityState int

const (
	StateDefault EntityState = iota
	StateHovered
	StateBatch
	StateSearchHit
	StatePinned
	StateSelected
	StateFocused
)

var entityStateNames = [...]string{"default", "hovered", "batch", "search-hit", "pinned", "selected", "focused"}

func (s EntityState) String() string {
	if s < 0 || int(s) >= len(entityStateNames) {
		return "unknown"
	}
	return entityStateNames[s]
}

// RelationState is the visual emphasis of a relation.
type RelationState int

const (
	RelationDefault RelationState = iota
	RelationNeighbor
	RelationFocused
)

// View is the read-only frame input for renderers. The slices alias engine
// memory and are only valid until the next engine call.
type View struct {
	Entities       []Entity
	Relations      []Relation
	EntityStates   []EntityState
	RelationStates []RelationState
	Neighbor       []bool
	Camera         Camera
	Clock          time.Duration
	Alpha          float64
	BatchMode      bool
}

// View computes per-entity and per-relation emphasis for the current frame.
func (e *Engine) View() View {
	st := e.state
	n := len(st.Entities)
	if cap(e.entityStates) < n {
		e.entityStates = make([]EntityState, n)
	}
	es := e.entityStates[:n]
	neighbor := make([]bool, n)
	if e.sel >= 0 {
		for _, j := range st.Neighbors(e.sel) {
			neighbor[j] = true
		}
	}
	focused := make(map[int]bool, len(e.focus.ends))
	for _, i := range e.focus.ends {
		focused[i] = true
	}

	for i, ent := range st.Entities {
		switch {
		case focused[i]:
			es[i] = StateFocused
		case i == e.sel:
			es[i] = StateSelected
		case ent.Pinned:
			es[i] = StatePinned
		case e.hits[i]:
			es[i] = StateSearchHit
		case e.batch[ent.ID]:
			es[i] = StateBatch
		case i == e.hovered:
			es[i] = StateHovered
		default:
			es[i] = StateDefault
		}
	}

	m := len(st.Relations)
	if cap(e.relationStates) < m {
		e.relationStates = make([]RelationState, m)
	}
	rs := e.relationStates[:m]
	for i, r := range st.Relations {
		switch {
		case i == e.focus.relation:
			rs[i] = RelationFocused
		case e.sel >= 0 && (r.Source == e.sel || r.Target == e.sel):
			rs[i] = RelationNeighbor
		default:
			rs[i] = RelationDefault
		}
	}

	return View{
		Entities:       st.Entities,
		Relations:      st.Relations,
		EntityStates:   es,
		RelationStates: rs,
		Neighbor:       neighbor,
		Camera:         e.cam,
		Clock:          e.clock,
		Alpha:          st.Alpha,
		BatchMode:      e.batchMode,
	}
}

// Projection is the narrow summary handed to the host UI.
type Projection struct {
	Mode         string   `json:"mode"`
	Selected     string   `json:"selected,omitempty"`
	SelectedName string   `json:"selected_name,omitempty"`
	Pinned       bool     `json:"pinned,omitempty"`
	Neighbors    []string `json:"neighbors,omitempty"`
	Hovered      string   `json:"hovered,omitempty"`
	BatchMode    bool     `json:"batch_mode"`
	Batch        []string `json:"batch,omitempty"`
	SearchHits   []string `json:"search_hits,omitempty"`
	Focused      string   `json:"focused_relation,omitempty"`
	Entities     int      `json:"entities"`
	Relations    int      `json:"relations"`
}

// Projection returns the current summary.
func (e *Engine) Projection() Projection {
	st := e.state
	p := Projection{
		Mode:       e.mode.String(),
		BatchMode:  e.batchMode,
		Batch:      e.BatchSelection(),
		SearchHits: e.SearchHits(),
		Entities:   len(st.Entities),
		Relations:  len(st.Relations),
	}
	if e.sel >= 0 {
		ent := st.Entities[e.sel]
		p.Selected, p.SelectedName, p.Pinned = ent.ID, ent.Name, ent.Pinned
		for _, nb := range e.Neighbors() {
			p.Neighbors = append(p.Neighbors, nb.ID)
		}
	}
	if e.hovered >= 0 {
		p.Hovered = st.Entities[e.hovered].ID
	}
	if e.focus.relation >= 0 {
		p.Focused = st.Relations[e.focus.relation].ID
	}
	return p
}
