package cmd

import (
	"fmt"
	"strings"

	"github.com/lukman83/listing-miner/internal/models"
	"github.com/spf13/cobra"
)

var categoriesCmd = &cobra.Command{
	Use:   "categories [name...]",
	Short: "Resolve a category path to ids, or name a category id",
	Long: "Resolve a category path given from the root down, e.g. 'categories Elektronika \"Zegarki\"'.\n" +
		"With --id, print the name of a single category instead.",
	RunE: runCategories,
}

func init() {
	categoriesCmd.Flags().Int64("id", 0, "Category id to look up by name")
	rootCmd.AddCommand(categoriesCmd)
}

func runCategories(cmd *cobra.Command, args []string) error {
	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if id, _ := cmd.Flags().GetInt64("id"); id != 0 {
		token, err := a.client.Tokens().Acquire(ctx)
		if err != nil {
			return err
		}
		name, err := a.client.CategoryName(ctx, token, models.CategoryID(id))
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%d\t%s\n", id, name)
		return nil
	}

	if len(args) == 0 {
		return fmt.Errorf("give a category path or --id")
	}
	ids, err := a.explorer.ResolveTree(ctx, args)
	if err != nil {
		return err
	}
	for i, id := range ids {
		fmt.Fprintf(out, "%s%s\t%d\n", strings.Repeat("  ", i), args[i], id)
	}
	return nil
}
