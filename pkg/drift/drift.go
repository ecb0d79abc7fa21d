// Package drift compares a graph's current statistics to a saved baseline.
// It flags structural changes such as the graph splitting into more
// components, growth in dangling relations and shifts among the most
// central entities.
package drift

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/kgview/pkg/analysis"
)

// Severity represents the severity level of a drift alert
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// AlertType categorizes different kinds of drift alerts
type AlertType string

const (
	AlertComponentSplit    AlertType = "component_split"
	AlertComponentMerge    AlertType = "component_merge"
	AlertEntityCountChange AlertType = "entity_count_change"
	AlertRelationChange    AlertType = "relation_count_change"
	AlertDroppedIncrease   AlertType = "dropped_increase"
	AlertNewIsolated       AlertType = "new_isolated"
	AlertPageRankChange    AlertType = "pagerank_change"
	AlertMissingEntity     AlertType = "missing_entity"
)

// Alert represents a single drift detection alert
type Alert struct {
	Type        AlertType `json:"type"`
	Severity    Severity  `json:"severity"`
	Message     string    `json:"message"`
	BaselineVal float64   `json:"baseline_value,omitempty"`
	CurrentVal  float64   `json:"current_value,omitempty"`
	Delta       float64   `json:"delta,omitempty"`
	Details     []string  `json:"details,omitempty"`
}

// Result contains the complete drift analysis
type Result struct {
	HasDrift bool    `json:"has_drift"`
	Alerts   []Alert `json:"alerts"`

	CriticalCount int `json:"critical_count"`
	WarningCount  int `json:"warning_count"`
	InfoCount     int `json:"info_count"`
}

// Config holds alert thresholds.
type Config struct {
	// Percent change in entity or relation count that raises an info alert.
	SizeChangeInfoPct float64 `json:"size_change_info_pct" yaml:"size_change_info_pct"`
	// Percent change in an entity's PageRank that counts as a shift.
	PageRankChangeWarningPct float64 `json:"pagerank_change_warning_pct" yaml:"pagerank_change_warning_pct"`
	// TopN is how many PageRank leaders are compared.
	TopN int `json:"top_n" yaml:"top_n"`
	// Watch lists entity IDs whose disappearance is critical.
	Watch []string `json:"watch,omitempty" yaml:"watch,omitempty"`
}

// DefaultConfig returns the thresholds used by the CLI.
func DefaultConfig() *Config {
	return &Config{
		SizeChangeInfoPct:        10,
		PageRankChangeWarningPct: 50,
		TopN:                     10,
	}
}

// Calculator performs drift detection
type Calculator struct {
	config   *Config
	baseline analysis.Stats
	current  analysis.Stats
}

// NewCalculator creates a drift calculator with the given baseline and current stats
func NewCalculator(baseline, current analysis.Stats, cfg *Config) *Calculator {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.TopN <= 0 {
		cfg.TopN = 10
	}
	return &Calculator{config: cfg, baseline: baseline, current: current}
}

// Calculate performs drift detection and returns results
func (c *Calculator) Calculate() *Result {
	result := &Result{Alerts: make([]Alert, 0)}

	c.checkWatched(result)
	c.checkComponents(result)
	c.checkDropped(result)
	c.checkGraphSize(result)
	c.checkIsolated(result)
	c.checkPageRankChanges(result)

	for _, alert := range result.Alerts {
		switch alert.Severity {
		case SeverityCritical:
			result.CriticalCount++
		case SeverityWarning:
			result.WarningCount++
		case SeverityInfo:
			result.InfoCount++
		}
	}
	result.HasDrift = len(result.Alerts) > 0
	return result
}

// checkWatched flags watched entities that are gone.
func (c *Calculator) checkWatched(result *Result) {
	present := make(map[string]bool, len(c.current.Ranked))
	for _, r := range c.current.Ranked {
		present[r.ID] = true
	}
	var missing []string
	for _, id := range c.config.Watch {
		if !present[id] {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		result.Alerts = append(result.Alerts, Alert{
			Type:     AlertMissingEntity,
			Severity: SeverityCritical,
			Message:  fmt.Sprintf("%d watched entities missing", len(missing)),
			Delta:    float64(len(missing)),
			Details:  missing,
		})
	}
}

func (c *Calculator) checkComponents(result *Result) {
	bl, cur := len(c.baseline.Components), len(c.current.Components)
	switch {
	case bl == 0:
		return
	case cur > bl:
		result.Alerts = append(result.Alerts, Alert{
			Type:        AlertComponentSplit,
			Severity:    SeverityWarning,
			Message:     fmt.Sprintf("Graph split into %d components (was %d)", cur, bl),
			BaselineVal: float64(bl),
			CurrentVal:  float64(cur),
			Delta:       float64(cur - bl),
		})
	case cur < bl:
		result.Alerts = append(result.Alerts, Alert{
			Type:        AlertComponentMerge,
			Severity:    SeverityInfo,
			Message:     fmt.Sprintf("Components merged: %d (was %d)", cur, bl),
			BaselineVal: float64(bl),
			CurrentVal:  float64(cur),
			Delta:       float64(cur - bl),
		})
	}
}

// checkDropped warns when more relations point at missing entities.
func (c *Calculator) checkDropped(result *Result) {
	delta := c.current.Dropped - c.baseline.Dropped
	if delta > 0 {
		result.Alerts = append(result.Alerts, Alert{
			Type:        AlertDroppedIncrease,
			Severity:    SeverityWarning,
			Message:     fmt.Sprintf("%d more relations reference missing entities", delta),
			BaselineVal: float64(c.baseline.Dropped),
			CurrentVal:  float64(c.current.Dropped),
			Delta:       float64(delta),
		})
	}
}

// checkGraphSize checks for significant entity and relation count changes
func (c *Calculator) checkGraphSize(result *Result) {
	sizeAlert := func(kind AlertType, noun string, bl, cur int) {
		if bl == 0 {
			return
		}
		delta := cur - bl
		pct := float64(delta) / float64(bl) * 100
		if pct >= c.config.SizeChangeInfoPct || pct <= -c.config.SizeChangeInfoPct {
			result.Alerts = append(result.Alerts, Alert{
				Type:        kind,
				Severity:    SeverityInfo,
				Message:     fmt.Sprintf("%s count changed by %+d (%.1f%%)", noun, delta, pct),
				BaselineVal: float64(bl),
				CurrentVal:  float64(cur),
				Delta:       float64(delta),
			})
		}
	}
	sizeAlert(AlertEntityCountChange, "Entity", c.baseline.Entities, c.current.Entities)
	sizeAlert(AlertRelationChange, "Relation", c.baseline.Relations, c.current.Relations)
}

func (c *Calculator) checkIsolated(result *Result) {
	before := make(map[string]bool)
	for _, id := range c.baseline.Isolated() {
		before[id] = true
	}
	var fresh []string
	for _, id := range c.current.Isolated() {
		if !before[id] {
			fresh = append(fresh, id)
		}
	}
	if len(fresh) > 0 {
		result.Alerts = append(result.Alerts, Alert{
			Type:     AlertNewIsolated,
			Severity: SeverityInfo,
			Message:  fmt.Sprintf("%d entities lost all their relations", len(fresh)),
			Delta:    float64(len(fresh)),
			Details:  fresh,
		})
	}
}

// checkPageRankChanges compares the PageRank leaders of both snapshots.
func (c *Calculator) checkPageRankChanges(result *Result) {
	blPR := topPageRank(c.baseline, c.config.TopN)
	curPR := topPageRank(c.current, c.config.TopN)

	var changes []string
	for id, blVal := range blPR {
		curVal, exists := curPR[id]
		if !exists {
			changes = append(changes, fmt.Sprintf("%s dropped from top", id))
			continue
		}
		if blVal > 0 {
			pctChange := (curVal - blVal) / blVal * 100
			if pctChange >= c.config.PageRankChangeWarningPct || pctChange <= -c.config.PageRankChangeWarningPct {
				changes = append(changes, fmt.Sprintf("%s: %.1f%% change", id, pctChange))
			}
		}
	}
	for id := range curPR {
		if _, exists := blPR[id]; !exists {
			changes = append(changes, fmt.Sprintf("%s entered top", id))
		}
	}

	if len(changes) > 0 {
		sort.Strings(changes)
		result.Alerts = append(result.Alerts, Alert{
			Type:     AlertPageRankChange,
			Severity: SeverityWarning,
			Message:  fmt.Sprintf("%d PageRank changes detected", len(changes)),
			Details:  changes,
		})
	}
}

func topPageRank(s analysis.Stats, n int) map[string]float64 {
	ranked := append([]analysis.EntityStats(nil), s.Ranked...)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].PageRank != ranked[j].PageRank {
			return ranked[i].PageRank > ranked[j].PageRank
		}
		return ranked[i].ID < ranked[j].ID
	})
	out := make(map[string]float64, n)
	for _, r := range ranked[:min(n, len(ranked))] {
		out[r.ID] = r.PageRank
	}
	return out
}

// Summary returns a human-readable summary of drift results
func (r *Result) Summary() string {
	if !r.HasDrift {
		return "No drift detected. The graph is within baseline thresholds.\n"
	}

	var sb strings.Builder
	sb.WriteString("Drift Analysis Summary\n")
	sb.WriteString("======================\n\n")
	if r.CriticalCount > 0 {
		fmt.Fprintf(&sb, "CRITICAL: %d alert(s)\n", r.CriticalCount)
	}
	if r.WarningCount > 0 {
		fmt.Fprintf(&sb, "WARNING:  %d alert(s)\n", r.WarningCount)
	}
	if r.InfoCount > 0 {
		fmt.Fprintf(&sb, "INFO:     %d alert(s)\n", r.InfoCount)
	}

	sb.WriteString("\nDetails:\n")
	for _, alert := range r.Alerts {
		fmt.Fprintf(&sb, "  [%s] %s\n", alert.Type, alert.Message)
		for _, detail := range alert.Details {
			fmt.Fprintf(&sb, "      - %s\n", detail)
		}
	}
	sb.WriteString("\n")
	return sb.String()
}

// HasWarnings returns true if there are any warning or critical alerts
func (r *Result) HasWarnings() bool {
	return r.CriticalCount > 0 || r.WarningCount > 0
}

// LoadBaseline reads stats saved with SaveBaseline or `kgv stats --json`.
func LoadBaseline(path string) (analysis.Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return analysis.Stats{}, fmt.Errorf("opening baseline: %w", err)
	}
	defer f.Close()
	var s analysis.Stats
	if err := json.NewDecoder(f).Decode(&s); err != nil {
		return analysis.Stats{}, fmt.Errorf("decoding baseline %s: %w", path, err)
	}
	return s, nil
}

// SaveBaseline writes s as indented JSON.
func SaveBaseline(path string, s analysis.Stats) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating baseline: %w", err)
	}
	if err := writeStats(f, s); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeStats(w io.Writer, s analysis.Stats) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("encoding baseline: %w", err)
	}
	return nil
}
