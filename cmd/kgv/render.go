package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/vanderheijden86/kgview/pkg/config"
	"github.com/vanderheijden86/kgview/pkg/export"
)

// exportFlags are the layout flags shared by render and export.
type exportFlags struct {
	out    string
	width  int
	height int
	dpr    float64
	seed   int64
	title  string
}

func (ef *exportFlags) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVarP(&ef.out, "out", "o", "-", "output file, - for stdout")
	f.IntVar(&ef.width, "width", 0, "viewport width in logical pixels (default from config)")
	f.IntVar(&ef.height, "height", 0, "viewport height in logical pixels (default from config)")
	f.Float64Var(&ef.dpr, "dpr", 0, "device pixel ratio for PNG output (default from config)")
	f.Int64Var(&ef.seed, "seed", 1, "seed for the initial placement")
	f.StringVar(&ef.title, "title", "", "title for SVG and Markdown output")
}

func (ef *exportFlags) options(cfg config.Config, rasterLabels bool) (export.Options, error) {
	ro, err := cfg.RenderOptions(rasterLabels)
	if err != nil {
		return export.Options{}, err
	}
	opts := export.Options{
		Width:       cfg.Render.Width,
		Height:      cfg.Render.Height,
		DPR:         cfg.Render.DPR,
		SettleTicks: cfg.Render.SettleTicks,
		Seed:        ef.seed,
		Params:      cfg.EngineParams(),
		Render:      ro,
		Title:       ef.title,
	}
	if ef.width > 0 {
		opts.Width = ef.width
	}
	if ef.height > 0 {
		opts.Height = ef.height
	}
	if ef.dpr > 0 {
		opts.DPR = ef.dpr
	}
	return opts, nil
}

// output opens the destination. Binary output is refused when stdout is a
// terminal.
func (ef *exportFlags) output(cmd *cobra.Command, binary bool) (io.Writer, func() error, error) {
	if ef.out == "" || ef.out == "-" {
		w := cmd.OutOrStdout()
		if binary && isTerminal(w) {
			return nil, nil, usageError{"refusing to write binary output to a terminal; use --out or a pipe"}
		}
		return w, func() error { return nil }, nil
	}
	f, err := os.Create(config.ExpandHome(ef.out))
	if err != nil {
		return nil, nil, fmt.Errorf("creating %s: %w", ef.out, err)
	}
	return f, f.Close, nil
}

func renderCmd(gf *globalFlags) *cobra.Command {
	ef := &exportFlags{}
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Settle the layout and write one frame as PNG",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, gf, ef, "png")
		},
	}
	ef.register(cmd)
	return cmd
}
