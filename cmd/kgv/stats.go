package main

import (
	"fmt"
	"io"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/vanderheijden86/kgview/pkg/analysis"
	"github.com/vanderheijden86/kgview/pkg/drift"
)

func statsCmd(gf *globalFlags) *cobra.Command {
	var (
		asJSON       bool
		top          int
		sample       int
		baseline     string
		saveBaseline string
		watch        []string
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print graph statistics: components, centrality and hubs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := gf.loadConfig()
			if err != nil {
				return err
			}
			src, closeSrc, err := openSource(cfg)
			if err != nil {
				return err
			}
			defer closeSrc()

			ds := loadDataset(cmd.Context(), cmd, cfg, src)
			acfg := analysis.DefaultConfig()
			acfg.SampleSize = sample
			st := analysis.Compute(ds, acfg)

			// Read the old baseline before a save can overwrite it.
			var prev analysis.Stats
			if baseline != "" {
				if prev, err = drift.LoadBaseline(baseline); err != nil {
					return err
				}
			}
			if saveBaseline != "" {
				if err := drift.SaveBaseline(saveBaseline, st); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			if baseline != "" {
				dcfg := drift.DefaultConfig()
				dcfg.TopN = top
				dcfg.Watch = watch
				res := drift.NewCalculator(prev, st, dcfg).Calculate()
				if asJSON {
					if err := encodeJSON(out, res); err != nil {
						return err
					}
				} else {
					printStats(out, st, top)
					fmt.Fprintln(out)
					fmt.Fprint(out, res.Summary())
				}
				if res.HasWarnings() {
					return errDrift
				}
				return nil
			}
			if asJSON {
				return encodeJSON(out, st)
			}
			printStats(out, st, top)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	cmd.Flags().IntVar(&top, "top", 10, "number of ranked entities to list")
	cmd.Flags().IntVar(&sample, "sample", 0, "betweenness pivots (0 = sized to the graph)")
	cmd.Flags().StringVar(&baseline, "baseline", "", "compare against stats saved with --save-baseline")
	cmd.Flags().StringVar(&saveBaseline, "save-baseline", "", "write the current stats to this file")
	cmd.Flags().StringSliceVar(&watch, "watch", nil, "entity IDs whose removal is critical (with --baseline)")
	return cmd
}

func encodeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printStats(w io.Writer, st analysis.Stats, top int) {
	fmt.Fprintf(w, "Entities:   %d\n", st.Entities)
	fmt.Fprintf(w, "Relations:  %d\n", st.Relations)
	if st.Dropped > 0 {
		fmt.Fprintf(w, "Dropped:    %d\n", st.Dropped)
	}
	fmt.Fprintf(w, "Components: %d\n", len(st.Components))
	if iso := st.Isolated(); len(iso) > 0 {
		fmt.Fprintf(w, "Isolated:   %s\n", strings.Join(iso, ", "))
	}

	if len(st.Ranked) > 0 {
		nameWidth := 6
		for _, r := range st.Ranked[:min(top, len(st.Ranked))] {
			nameWidth = max(nameWidth, runewidth.StringWidth(r.Name))
		}
		fmt.Fprintf(w, "\nMost central (%s betweenness):\n", st.BetweennessMode)
		fmt.Fprintf(w, "  %s  %6s  %11s  %8s\n", runewidth.FillRight("Entity", nameWidth), "Degree", "Betweenness", "PageRank")
		for _, r := range st.Ranked[:min(top, len(st.Ranked))] {
			fmt.Fprintf(w, "  %s  %6d  %11.2f  %8.3f\n",
				runewidth.FillRight(r.Name, nameWidth), r.Degree(), r.Betweenness, r.PageRank)
		}
	}

	if len(st.Hubs.Items) > 0 {
		fmt.Fprintln(w, "\nHubs:")
		for _, h := range st.Hubs.Items {
			fmt.Fprintf(w, "  %s covers %d relations\n", h.Name, h.EdgesAdded)
		}
		fmt.Fprintf(w, "  together %.0f%% of all relations\n", st.Hubs.CoverageRatio*100)
	}
}
