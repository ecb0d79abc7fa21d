package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/vanderheijden86/kgview/pkg/analysis"
	"github.com/vanderheijden86/kgview/pkg/config"
	"github.com/vanderheijden86/kgview/pkg/model"
	"github.com/vanderheijden86/kgview/pkg/source"
	"github.com/vanderheijden86/kgview/pkg/store"
)

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	configPath string
	kind       string
	db         string
	file       string
	api        string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	gf := &globalFlags{}

	root := &cobra.Command{
		Use:   "kgv",
		Short: "Interactive force-directed knowledge graph viewer",
		Long: "kgv lays knowledge graphs out with a force-directed simulation and lets you\n" +
			"explore them in the terminal, serve them over HTTP or export them as PNG, SVG\n" +
			"or Markdown.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			log.SetOutput(cmd.ErrOrStderr())
			log.SetFlags(0)
			if !gf.verbose {
				log.SetOutput(io.Discard)
			}
		},
	}
	root.SetVersionTemplate("kgv {{ .Version }}\n")

	pf := root.PersistentFlags()
	pf.StringVar(&gf.configPath, "config", "", "config file (default: nearest .kgview/config.yaml)")
	pf.StringVar(&gf.kind, "source", "", "data source kind: memory, file, sqlite or http")
	pf.StringVar(&gf.db, "db", "", "SQLite database (implies --source sqlite)")
	pf.StringVar(&gf.file, "file", "", "JSON dataset file (implies --source file)")
	pf.StringVar(&gf.api, "api", "", "graph API base URL (implies --source http)")
	pf.BoolVarP(&gf.verbose, "verbose", "v", false, "log diagnostics to stderr")

	root.AddCommand(
		viewCmd(gf),
		renderCmd(gf),
		exportCmd(gf),
		serveCmd(gf),
		seedCmd(gf),
		statsCmd(gf),
		describeCmd(gf),
		updateCmd(gf),
		deleteCmd(gf),
	)
	return root
}

// loadConfig merges config files, the environment and flags.
func (gf *globalFlags) loadConfig() (config.Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return config.Config{}, fmt.Errorf("getting working directory: %w", err)
	}
	cfg, err := config.Load(wd, config.ExpandHome(gf.configPath))
	if err != nil {
		return cfg, err
	}

	switch {
	case gf.api != "":
		cfg.Source.Kind, cfg.Source.URL = config.KindHTTP, gf.api
	case gf.db != "":
		cfg.Source.Kind, cfg.Source.Path = config.KindSQLite, config.ExpandHome(gf.db)
	case gf.file != "":
		cfg.Source.Kind, cfg.Source.Path = config.KindFile, config.ExpandHome(gf.file)
	}
	if gf.kind != "" {
		cfg.Source.Kind = gf.kind
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// openSource builds the configured source. The returned closer releases
// any database handle.
func openSource(cfg config.Config) (source.Source, func() error, error) {
	noop := func() error { return nil }
	sc := cfg.Source
	switch sc.Kind {
	case config.KindFile:
		return source.NewFile(sc.Path), noop, nil
	case config.KindSQLite:
		st, err := store.Open(sc.Path)
		if err != nil {
			return nil, noop, err
		}
		return source.NewStore(st), st.Close, nil
	case config.KindHTTP:
		var opts []source.HTTPOption
		if sc.Token != "" {
			opts = append(opts, source.WithToken(sc.Token))
		}
		if sc.RateLimit > 0 {
			opts = append(opts, source.WithRateLimit(sc.RateLimit))
		}
		return source.NewHTTP(sc.URL, opts...), noop, nil
	default:
		return source.NewMemory(model.Fallback()), noop, nil
	}
}

// watchPath returns the file to watch for reloads, or "".
func watchPath(cfg config.Config) string {
	switch cfg.Source.Kind {
	case config.KindFile, config.KindSQLite:
		if cfg.Source.Watching() {
			return cfg.Source.Path
		}
	}
	return ""
}

// loadDataset loads from src, falling back to the built-in dataset with a
// warning on stderr.
func loadDataset(ctx context.Context, cmd *cobra.Command, cfg config.Config, src source.Source) model.Dataset {
	ds, fallback, err := source.LoadOrFallback(ctx, src)
	if fallback {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s unavailable (%v), using the built-in dataset\n", source.Describe(src), err)
	}
	if cfg.Source.DeriveWeights {
		ds = analysis.DeriveWeights(ds)
	}
	return ds
}
