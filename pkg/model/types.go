package model

import (
	"fmt"
	"strings"
)

// Entity is a knowledge-graph node as supplied by the data layer.
type Entity struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Type   string  `json:"type"`
	Weight float64 `json:"weight"`
}

// Validate checks if the entity data is logically valid
func (e *Entity) Validate() error {
	if strings.TrimSpace(e.ID) == "" {
		return fmt.Errorf("entity ID cannot be empty")
	}
	if strings.TrimSpace(e.Name) == "" {
		return fmt.Errorf("entity %s: name cannot be empty", e.ID)
	}
	if e.Weight < 0 {
		return fmt.Errorf("entity %s: weight (%v) cannot be negative", e.ID, e.Weight)
	}
	return nil
}

// Relation is a directed, labeled link between two entities. Source and
// Target hold either an entity ID or an entity name; resolution happens when
// the simulation is built.
type Relation struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
	Label  string `json:"label"`
}

// Validate checks if the relation data is logically valid
func (r *Relation) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return fmt.Errorf("relation ID cannot be empty")
	}
	if r.Source == "" || r.Target == "" {
		return fmt.Errorf("relation %s: source and target are required", r.ID)
	}
	return nil
}

// Dataset is the full entity/relation set handed to the engine on every reload.
type Dataset struct {
	Entities  []Entity   `json:"entities"`
	Relations []Relation `json:"relations"`
}

// Clone creates a deep copy of the dataset
func (d Dataset) Clone() Dataset {
	clone := Dataset{}
	if d.Entities != nil {
		clone.Entities = make([]Entity, len(d.Entities))
		copy(clone.Entities, d.Entities)
	}
	if d.Relations != nil {
		clone.Relations = make([]Relation, len(d.Relations))
		copy(clone.Relations, d.Relations)
	}
	return clone
}

// Validate checks every record and rejects duplicate IDs. Dangling relation
// endpoints are not an error here: the engine drops them on build.
func (d *Dataset) Validate() error {
	seen := make(map[string]bool, len(d.Entities))
	for i := range d.Entities {
		if err := d.Entities[i].Validate(); err != nil {
			return err
		}
		if seen[d.Entities[i].ID] {
			return fmt.Errorf("duplicate entity ID %q", d.Entities[i].ID)
		}
		seen[d.Entities[i].ID] = true
	}
	relSeen := make(map[string]bool, len(d.Relations))
	for i := range d.Relations {
		if err := d.Relations[i].Validate(); err != nil {
			return err
		}
		if relSeen[d.Relations[i].ID] {
			return fmt.Errorf("duplicate relation ID %q", d.Relations[i].ID)
		}
		relSeen[d.Relations[i].ID] = true
	}
	return nil
}

// FindByName returns the entities whose name matches exactly.
func (d *Dataset) FindByName(name string) []Entity {
	var out []Entity
	for _, e := range d.Entities {
		if e.Name == name {
			out = append(out, e)
		}
	}
	return out
}

// EntityPatch carries a partial entity update. Nil fields are left unchanged.
type EntityPatch struct {
	Name   *string  `json:"name,omitempty"`
	Type   *string  `json:"type,omitempty"`
	Weight *float64 `json:"weight,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p EntityPatch) IsEmpty() bool {
	return p.Name == nil && p.Type == nil && p.Weight == nil
}

// Validate checks the patched values.
func (p EntityPatch) Validate() error {
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return fmt.Errorf("name cannot be empty")
	}
	if p.Weight != nil && *p.Weight < 0 {
		return fmt.Errorf("weight (%v) cannot be negative", *p.Weight)
	}
	return nil
}

// Apply returns a copy of e with the patch applied.
func (p EntityPatch) Apply(e Entity) Entity {
	if p.Name != nil {
		e.Name = *p.Name
	}
	if p.Type != nil {
		e.Type = *p.Type
	}
	if p.Weight != nil {
		e.Weight = *p.Weight
	}
	return e
}

// FocusRequest asks the view to re-centre on a relation and highlight it.
// It is the only input the question-answering view sends.
type FocusRequest struct {
	SourceName    string `json:"source_name"`
	TargetName    string `json:"target_name"`
	RelationLabel string `json:"relation_label,omitempty"`
}

// IsZero reports whether the request names no entity.
func (f FocusRequest) IsZero() bool {
	return f.SourceName == "" && f.TargetName == ""
}
