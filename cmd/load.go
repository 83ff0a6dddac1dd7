package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var loadCmd = &cobra.Command{
	Use:   "load [archive]",
	Short: "Print a stored archive",
	Long:  "Print a stored archive. Use the phrase for its append archive or a snapshot name from 'archives'.",
	Args:  cobra.ExactArgs(1),
	RunE:  runLoad,
}

var archivesCmd = &cobra.Command{
	Use:   "archives [phrase]",
	Short: "List the archives stored for a phrase",
	Args:  cobra.ExactArgs(1),
	RunE:  runArchives,
}

func init() {
	loadCmd.Flags().String("format", "table", "Output format: json, table")
	rootCmd.AddCommand(loadCmd)
	rootCmd.AddCommand(archivesCmd)
}

func runLoad(cmd *cobra.Command, args []string) error {
	if cfgErr != nil {
		return cfgErr
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	listings, err := store.Load(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	format, _ := cmd.Flags().GetString("format")
	if format == "json" {
		return printJSON(cmd.OutOrStdout(), listings)
	}
	printListingsTable(cmd.OutOrStdout(), listings)
	return nil
}

func runArchives(cmd *cobra.Command, args []string) error {
	if cfgErr != nil {
		return cfgErr
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	names, err := store.List(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if len(names) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "No archives for %q.\n", args[0])
		return nil
	}
	for _, n := range names {
		fmt.Fprintln(cmd.OutOrStdout(), n)
	}
	return nil
}
