package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vanderheijden86/kgview/pkg/analysis"
	"github.com/vanderheijden86/kgview/pkg/config"
	"github.com/vanderheijden86/kgview/pkg/model"
	"github.com/vanderheijden86/kgview/pkg/source"
	"github.com/vanderheijden86/kgview/pkg/store"
)

func seedCmd(gf *globalFlags) *cobra.Command {
	var (
		from   string
		derive bool
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Replace the SQLite database contents with a dataset",
		Long: "Seed the database selected by --db (or KGV_DB) from a JSON dataset file,\n" +
			"or from the built-in demonstration dataset when --from is not given.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := gf.loadConfig()
			if err != nil {
				return err
			}
			if cfg.Source.Kind != config.KindSQLite {
				return usageError{"seed needs a SQLite source; pass --db"}
			}

			ds := model.Fallback()
			if from != "" {
				if ds, err = source.ReadDataset(config.ExpandHome(from)); err != nil {
					return err
				}
			}
			if derive || cfg.Source.DeriveWeights {
				ds = analysis.DeriveWeights(ds)
			}

			st, err := store.Open(cfg.Source.Path)
			if err != nil {
				return err
			}
			defer st.Close()

			ctx := cmd.Context()
			if err := st.Seed(ctx, ds); err != nil {
				return err
			}
			entities, relations, err := st.Counts(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %s: %d entities, %d relations\n", cfg.Source.Path, entities, relations)
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "JSON dataset file (default: built-in dataset)")
	cmd.Flags().BoolVar(&derive, "derive-weights", false, "fill missing weights from graph centrality")
	return cmd
}
