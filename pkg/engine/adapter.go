package engine

import (
	"math"
	"math/rand"

	"github.com/vanderheijden86/kgview/pkg/model"
)

// BuildReport summarises what Build kept and dropped.
type BuildReport struct {
	Entities  int `json:"entities"`
	Relations int `json:"relations"`
	Dropped   int `json:"dropped"`    // relations with an unknown endpoint
	Duplicate int `json:"duplicates"` // entity records whose ID was already taken
}

// Build converts data-layer records into a fresh simulation state. Entities
// are scattered uniformly in a box of side InitialSpread centred on the
// origin; relations whose endpoints do not resolve are dropped.
func Build(ds model.Dataset, p Params, rng *rand.Rand) (*State, BuildReport) {
	p = p.WithDefaults()
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}

	var rep BuildReport
	st := &State{
		Entities:  make([]Entity, 0, len(ds.Entities)),
		Relations: make([]Relation, 0, len(ds.Relations)),
		Alpha:     1,
	}

	ids := make(map[string]bool, len(ds.Entities))
	for _, rec := range ds.Entities {
		if ids[rec.ID] {
			rep.Duplicate++
			continue
		}
		ids[rec.ID] = true

		weight := rec.Weight
		if math.IsNaN(weight) || math.IsInf(weight, 0) || weight < 0 {
			weight = 0
		}
		st.Entities = append(st.Entities, Entity{
			ID:     rec.ID,
			Name:   rec.Name,
			Type:   rec.Type,
			Weight: weight,
			Radius: radiusFor(weight, p),
			X:      (rng.Float64() - 0.5) * p.InitialSpread,
			Y:      (rng.Float64() - 0.5) * p.InitialSpread,
		})
	}
	st.index()

	for _, rec := range ds.Relations {
		src, okS := st.Lookup(rec.Source)
		dst, okT := st.Lookup(rec.Target)
		if !okS || !okT {
			rep.Dropped++
			continue
		}
		phases := make([]float64, max(0, p.FlowParticles))
		offset := rng.Float64()
		for k := range phases {
			phases[k] = math.Mod(offset+float64(k)/float64(len(phases)), 1)
		}
		st.Relations = append(st.Relations, Relation{
			ID:     rec.ID,
			Source: src,
			Target: dst,
			Label:  rec.Label,
			Phases: phases,
		})
	}
	st.index()

	rep.Entities = len(st.Entities)
	rep.Relations = len(st.Relations)
	return st, rep
}

// radiusFor maps weight monotonically to a visual radius, never below MinRadius.
func radiusFor(weight float64, p Params) float64 {
	return math.Max(p.MinRadius, weight*p.RadiusScale)
}
