package main

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/vanderheijden86/kgview/pkg/export"
)

func describeCmd(gf *globalFlags) *cobra.Command {
	var (
		raw   bool
		title string
		wrap  int
	)

	cmd := &cobra.Command{
		Use:   "describe",
		Short: "Print a Markdown report of the graph",
		Long: "Print a report of the graph: summary, most central entities, hubs, a\n" +
			"Mermaid diagram and per-type entity tables. On a terminal it is rendered;\n" +
			"otherwise, or with --raw, the Markdown source is printed.",
		Args: cobra.NoArgs,
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
			md := export.GenerateMarkdown(ds, title)

			out := cmd.OutOrStdout()
			if raw || !isTerminal(out) {
				_, err := io.WriteString(out, md)
				return err
			}
			r, err := glamour.NewTermRenderer(
				glamour.WithAutoStyle(),
				glamour.WithWordWrap(wrap),
			)
			if err != nil {
				return fmt.Errorf("creating markdown renderer: %w", err)
			}
			rendered, err := r.Render(md)
			if err != nil {
				return fmt.Errorf("rendering markdown: %w", err)
			}
			_, err = io.WriteString(out, rendered)
			return err
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "print Markdown source even on a terminal")
	cmd.Flags().StringVar(&title, "title", "Knowledge Graph", "report title")
	cmd.Flags().IntVar(&wrap, "wrap", 100, "word wrap width for rendered output")
	return cmd
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
