package drift

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/vanderheijden86/kgview/pkg/analysis"
	"github.com/vanderheijden86/kgview/pkg/model"
)

func stats(ranked ...analysis.EntityStats) analysis.Stats {
	s := analysis.Stats{Entities: len(ranked), Ranked: ranked}
	for _, r := range ranked {
		s.Components = append(s.Components, []string{r.ID})
		s.Relations += r.OutDegree
	}
	return s
}

func alertOf(r *Result, typ AlertType) (Alert, bool) {
	for _, a := range r.Alerts {
		if a.Type == typ {
			return a, true
		}
	}
	return Alert{}, false
}

func TestNoDriftAgainstItself(t *testing.T) {
	s := analysis.Compute(model.Fallback(), analysis.DefaultConfig())
	r := NewCalculator(s, s, nil).Calculate()
	if r.HasDrift {
		t.Errorf("unexpected drift: %+v", r.Alerts)
	}
	if !strings.HasPrefix(r.Summary(), "No drift") {
		t.Errorf("Summary() = %q", r.Summary())
	}
}

func TestComponentSplitAndIsolated(t *testing.T) {
	base := stats(
		analysis.EntityStats{ID: "a", OutDegree: 1, PageRank: 0.5},
		analysis.EntityStats{ID: "b", InDegree: 1, PageRank: 0.5},
	)
	base.Components = [][]string{{"a", "b"}}
	cur := stats(
		analysis.EntityStats{ID: "a", PageRank: 0.5},
		analysis.EntityStats{ID: "b", PageRank: 0.5},
	)

	r := NewCalculator(base, cur, nil).Calculate()
	split, ok := alertOf(r, AlertComponentSplit)
	if !ok || split.CurrentVal != 2 || split.BaselineVal != 1 {
		t.Errorf("split alert = %+v, %v", split, ok)
	}
	iso, ok := alertOf(r, AlertNewIsolated)
	if !ok || len(iso.Details) != 2 {
		t.Errorf("isolated alert = %+v", iso)
	}
	if !r.HasWarnings() {
		t.Error("a split should count as a warning")
	}
}

func TestWatchedEntityMissing(t *testing.T) {
	base := stats(analysis.EntityStats{ID: "a"}, analysis.EntityStats{ID: "b"})
	cur := stats(analysis.EntityStats{ID: "a"})
	cfg := DefaultConfig()
	cfg.Watch = []string{"b"}

	r := NewCalculator(base, cur, cfg).Calculate()
	if r.CriticalCount != 1 {
		t.Fatalf("critical = %d, alerts %+v", r.CriticalCount, r.Alerts)
	}
	if a, _ := alertOf(r, AlertMissingEntity); len(a.Details) != 1 || a.Details[0] != "b" {
		t.Errorf("missing alert = %+v", a)
	}
	if size, ok := alertOf(r, AlertEntityCountChange); !ok || size.Delta != -1 {
		t.Errorf("size alert = %+v", size)
	}
}

func TestPageRankShift(t *testing.T) {
	base := stats(
		analysis.EntityStats{ID: "a", PageRank: 0.6},
		analysis.EntityStats{ID: "b", PageRank: 0.3},
		analysis.EntityStats{ID: "c", PageRank: 0.1},
	)
	cur := stats(
		analysis.EntityStats{ID: "a", PageRank: 0.2},
		analysis.EntityStats{ID: "b", PageRank: 0.3},
		analysis.EntityStats{ID: "c", PageRank: 0.5},
	)
	cfg := DefaultConfig()
	cfg.TopN = 2

	r := NewCalculator(base, cur, cfg).Calculate()
	a, ok := alertOf(r, AlertPageRankChange)
	if !ok {
		t.Fatal("expected a PageRank alert")
	}
	want := []string{"a dropped from top", "c entered top"}
	if strings.Join(a.Details, ";") != strings.Join(want, ";") {
		t.Errorf("details = %v, want %v", a.Details, want)
	}
}

func TestDroppedIncrease(t *testing.T) {
	base := stats(analysis.EntityStats{ID: "a"})
	cur := base
	cur.Dropped = 3
	r := NewCalculator(base, cur, nil).Calculate()
	if a, ok := alertOf(r, AlertDroppedIncrease); !ok || a.Delta != 3 {
		t.Errorf("dropped alert = %+v", a)
	}
	if !strings.Contains(r.Summary(), "reference missing entities") {
		t.Error("summary should list the alert")
	}
}

func TestBaselineRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "baseline.json")
	s := analysis.Compute(model.Fallback(), analysis.DefaultConfig())
	if err := SaveBaseline(path, s); err != nil {
		t.Fatal(err)
	}
	got, err := LoadBaseline(path)
	if err != nil {
		t.Fatal(err)
	}
	if r := NewCalculator(got, s, nil).Calculate(); r.HasDrift {
		t.Errorf("reloaded baseline drifted: %+v", r.Alerts)
	}

	if _, err := LoadBaseline(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected an error for a missing baseline")
	}
}
