package main

import (
	"fmt"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/vanderheijden86/kgview/pkg/model"
	"github.com/vanderheijden86/kgview/pkg/ui"
)

func viewCmd(gf *globalFlags) *cobra.Command {
	var (
		logFile string
		focus   model.FocusRequest
	)

	cmd := &cobra.Command{
		Use:   "view",
		Short: "Explore the graph interactively in the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if (focus.SourceName == "") != (focus.TargetName == "") {
				return usageError{"--focus-source and --focus-target go together"}
			}
			cfg, err := gf.loadConfig()
			if err != nil {
				return err
			}
			ropts, err := cfg.RenderOptions(false)
			if err != nil {
				return err
			}
			src, closeSrc, err := openSource(cfg)
			if err != nil {
				return err
			}
			defer closeSrc()

			// The terminal belongs to the program; logs go to a file.
			if logFile != "" {
				f, err := tea.LogToFile(logFile, "kgv")
				if err != nil {
					return fmt.Errorf("opening log file: %w", err)
				}
				defer f.Close()
			}

			var p *tea.Program
			worker, err := ui.NewBackgroundWorker(ui.WorkerConfig{
				Source:        src,
				WatchPath:     watchPath(cfg),
				DeriveWeights: cfg.Source.DeriveWeights,
				Send:          func(msg tea.Msg) { p.Send(msg) },
			})
			if err != nil {
				return err
			}
			defer worker.Stop()

			m, err := ui.NewModel(ui.Options{
				Params: cfg.EngineParams(),
				Render: ropts,
				FPS:    cfg.Render.FPS,
				Worker: worker,
				Focus:  focus,
			})
			if err != nil {
				return err
			}

			p = tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseAllMotion(), tea.WithOutput(os.Stdout))
			if err := worker.Start(); err != nil {
				return err
			}
			if _, err := p.Run(); err != nil {
				return fmt.Errorf("running viewer: %w", err)
			}
			log.Printf("view: exited")
			return nil
		},
	}

	cmd.Flags().StringVar(&logFile, "log", "", "write diagnostics to this file while the viewer runs")
	cmd.Flags().StringVar(&focus.SourceName, "focus-source", "", "centre on a relation from this entity")
	cmd.Flags().StringVar(&focus.TargetName, "focus-target", "", "centre on a relation to this entity")
	cmd.Flags().StringVar(&focus.RelationLabel, "focus-label", "", "label of the relation to highlight")
	return cmd
}
