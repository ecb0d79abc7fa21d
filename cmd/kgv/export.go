package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vanderheijden86/kgview/pkg/export"
)

var exportFormats = []string{"png", "svg", "md"}

func exportCmd(gf *globalFlags) *cobra.Command {
	ef := &exportFlags{}
	var format string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the graph as PNG, SVG or a Markdown report",
		Long: "Export the graph. The format comes from --format or the --out extension\n" +
			"(.png, .svg, .md).",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := strings.ToLower(format)
			if f == "" {
				f = strings.TrimPrefix(strings.ToLower(filepath.Ext(ef.out)), ".")
			}
			if f == "markdown" {
				f = "md"
			}
			switch f {
			case "png", "svg", "md":
			case "":
				return usageError{"cannot infer the format; pass --format"}
			default:
				return usageError{fmt.Sprintf("unknown format %q (want one of %s)", f, strings.Join(exportFormats, ", "))}
			}
			return runExport(cmd, gf, ef, f)
		},
	}
	ef.register(cmd)
	cmd.Flags().StringVarP(&format, "format", "f", "", "png, svg or md")
	return cmd
}

func runExport(cmd *cobra.Command, gf *globalFlags, ef *exportFlags, format string) error {
	cfg, err := gf.loadConfig()
	if err != nil {
		return err
	}
	opts, err := ef.options(cfg, true)
	if err != nil {
		return err
	}
	src, closeSrc, err := openSource(cfg)
	if err != nil {
		return err
	}
	defer closeSrc()

	ctx := cmd.Context()
	ds := loadDataset(ctx, cmd, cfg, src)

	w, closeOut, err := ef.output(cmd, format == "png")
	if err != nil {
		return err
	}

	switch format {
	case "png":
		err = export.WritePNG(ctx, ds, w, opts)
	case "svg":
		err = export.WriteSVG(ctx, ds, w, opts)
	case "md":
		title := ef.title
		if title == "" {
			title = "Knowledge Graph"
		}
		_, err = io.WriteString(w, export.GenerateMarkdown(ds, title))
	}
	if cerr := closeOut(); err == nil {
		err = cerr
	}
	return err
}
