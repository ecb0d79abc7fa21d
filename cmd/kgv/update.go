package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vanderheijden86/kgview/pkg/model"
)

func updateCmd(gf *globalFlags) *cobra.Command {
	var (
		name   string
		typ    string
		weight float64
	)

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change an entity's name, type or weight",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch model.EntityPatch
			flags := cmd.Flags()
			if flags.Changed("name") {
				patch.Name = &name
			}
			if flags.Changed("type") {
				patch.Type = &typ
			}
			if flags.Changed("weight") {
				patch.Weight = &weight
			}
			if patch.IsEmpty() {
				return usageError{"nothing to update; pass --name, --type or --weight"}
			}
			if err := patch.Validate(); err != nil {
				return usageError{err.Error()}
			}

			cfg, err := gf.loadConfig()
			if err != nil {
				return err
			}
			src, closeSrc, err := openSource(cfg)
			if err != nil {
				return err
			}
			defer closeSrc()

			ent, err := src.UpdateEntity(cmd.Context(), args[0], patch)
			if err != nil {
				return fmt.Errorf("updating %s: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "updated %s: name=%q type=%q weight=%g\n", ent.ID, ent.Name, ent.Type, ent.Weight)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "new name")
	cmd.Flags().StringVar(&typ, "type", "", "new type")
	cmd.Flags().Float64Var(&weight, "weight", 0, "new weight (>= 0)")
	return cmd
}
