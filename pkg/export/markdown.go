package export

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/vanderheijden86/kgview/pkg/analysis"
	"github.com/vanderheijden86/kgview/pkg/model"
)

// topCentral is how many entities the centrality table lists.
const topCentral = 10

// GenerateMarkdown creates a report of the dataset: a summary, the most
// central entities, a Mermaid diagram and per-type entity tables.
func GenerateMarkdown(ds model.Dataset, title string) string {
	return generateMarkdown(ds, title, time.Now())
}

func generateMarkdown(ds model.Dataset, title string, now time.Time) string {
	st := analysis.Compute(ds, analysis.DefaultConfig())
	var sb strings.Builder

	fmt.Fprintf(&sb, "# %s\n\n", title)
	fmt.Fprintf(&sb, "Generated: %s\n\n", now.Format(time.RFC1123))

	sb.WriteString("## Summary\n\n")
	fmt.Fprintf(&sb, "- **Entities**: %d\n", st.Entities)
	fmt.Fprintf(&sb, "- **Relations**: %d\n", st.Relations)
	if st.Dropped > 0 {
		fmt.Fprintf(&sb, "- **Dropped relations**: %d\n", st.Dropped)
	}
	fmt.Fprintf(&sb, "- **Components**: %d\n", len(st.Components))
	if iso := st.Isolated(); len(iso) > 0 {
		fmt.Fprintf(&sb, "- **Isolated**: %s\n", strings.Join(iso, ", "))
	}
	sb.WriteString("\n")

	if len(st.Ranked) > 0 {
		sb.WriteString("## Most Central\n\n")
		sb.WriteString("| # | Entity | Type | Degree | Betweenness | PageRank |\n")
		sb.WriteString("|---|---|---|---|---|---|\n")
		for i, r := range st.Ranked[:min(topCentral, len(st.Ranked))] {
			fmt.Fprintf(&sb, "| %d | %s | %s | %d | %.2f | %.3f |\n",
				i+1, escapeCell(r.Name), escapeCell(r.Type), r.Degree(), r.Betweenness, r.PageRank)
		}
		sb.WriteString("\n")
	}

	if len(st.Hubs.Items) > 0 {
		sb.WriteString("### Hubs\n\n")
		for _, h := range st.Hubs.Items {
			fmt.Fprintf(&sb, "- **%s** covers %d relations\n", h.Name, h.EdgesAdded)
		}
		fmt.Fprintf(&sb, "\nTogether they touch %.0f%% of all relations.\n\n", st.Hubs.CoverageRatio*100)
	}

	writeMermaid(&sb, ds)

	sb.WriteString("## Entities\n\n")
	byType := make(map[string][]model.Entity)
	for _, e := range ds.Entities {
		byType[e.Type] = append(byType[e.Type], e)
	}
	typeNames := make([]string, 0, len(byType))
	for t := range byType {
		typeNames = append(typeNames, t)
	}
	sort.Strings(typeNames)
	for _, t := range typeNames {
		heading := t
		if heading == "" {
			heading = "(untyped)"
		}
		fmt.Fprintf(&sb, "### %s\n\n", heading)
		sb.WriteString("| ID | Name | Weight |\n|---|---|---|\n")
		for _, e := range byType[t] {
			fmt.Fprintf(&sb, "| %s | %s | %g |\n", escapeCell(e.ID), escapeCell(e.Name), e.Weight)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// writeMermaid emits a flowchart of the relations. Node IDs are positional
// because entity IDs and names may contain characters Mermaid rejects.
func writeMermaid(sb *strings.Builder, ds model.Dataset) {
	sb.WriteString("## Graph\n\n")
	sb.WriteString("```mermaid\ngraph LR\n")

	node := make(map[string]string, len(ds.Entities)*2)
	for i, e := range ds.Entities {
		id := fmt.Sprintf("n%d", i)
		if _, dup := node[e.ID]; dup {
			continue
		}
		node[e.ID] = id
		if _, ok := node[e.Name]; !ok {
			node[e.Name] = id
		}
		fmt.Fprintf(sb, "    %s[\"%s\"]\n", id, mermaidText(e.Name))
	}

	links := 0
	for _, r := range ds.Relations {
		from, ok1 := node[r.Source]
		to, ok2 := node[r.Target]
		if !ok1 || !ok2 {
			continue
		}
		if r.Label != "" {
			fmt.Fprintf(sb, "    %s -->|%s| %s\n", from, mermaidText(r.Label), to)
		} else {
			fmt.Fprintf(sb, "    %s --> %s\n", from, to)
		}
		links++
	}
	if links == 0 {
		sb.WriteString("    NoRelations[No Relations]\n")
	}
	sb.WriteString("```\n\n")
}

func mermaidText(s string) string {
	r := strings.NewReplacer(`"`, "'", "|", "/", "[", "(", "]", ")")
	return r.Replace(s)
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

// SaveMarkdownToFile writes the report for ds to filename.
func SaveMarkdownToFile(ds model.Dataset, filename, title string) error {
	return os.WriteFile(filename, []byte(GenerateMarkdown(ds, title)), 0o644)
}
