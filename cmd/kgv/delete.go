package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func deleteCmd(gf *globalFlags) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <id>...",
		Short: "Delete entities",
		Long: "Delete one or more entities. Relations that referenced them are left in\n" +
			"place and dropped when the graph is next loaded.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := gf.loadConfig()
			if err != nil {
				return err
			}

			if !yes {
				if !term.IsTerminal(int(os.Stdin.Fd())) {
					return usageError{"refusing to delete without confirmation; pass --yes"}
				}
				ok, err := confirmDelete(args)
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "cancelled")
					return nil
				}
			}

			src, closeSrc, err := openSource(cfg)
			if err != nil {
				return err
			}
			defer closeSrc()

			ctx := cmd.Context()
			var n int
			if len(args) == 1 {
				if err := src.DeleteEntity(ctx, args[0]); err != nil {
					return fmt.Errorf("deleting %s: %w", args[0], err)
				}
				n = 1
			} else if n, err = src.DeleteEntities(ctx, args); err != nil {
				return fmt.Errorf("deleting entities: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d of %d\n", n, len(args))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func confirmDelete(ids []string) (bool, error) {
	var ok bool
	err := huh.NewConfirm().
		Title(fmt.Sprintf("Delete %d %s?", len(ids), pluralize(len(ids), "entity", "entities"))).
		Description(strings.Join(ids, ", ")).
		Affirmative("Delete").
		Negative("Cancel").
		Value(&ok).
		Run()
	if errors.Is(err, huh.ErrUserAborted) {
		return false, nil
	}
	return ok, err
}

func pluralize(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
