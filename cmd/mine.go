package cmd

import (
	"fmt"

	"github.com/lukman83/listing-miner/internal/archive"
	"github.com/lukman83/listing-miner/internal/platform"
	"github.com/lukman83/listing-miner/internal/ui"
	"github.com/spf13/cobra"
)

var mineCmd = &cobra.Command{
	Use:   "mine [phrase]",
	Short: "Mine listings for one search phrase and save them",
	Args:  cobra.ExactArgs(1),
	RunE:  runMine,
}

func init() {
	mineCmd.Flags().String("mode", "", "Save mode: append, new_file (default from config)")
	mineCmd.Flags().String("format", "summary", "Output format: summary, json, table")
	rootCmd.AddCommand(mineCmd)
}

func runMine(cmd *cobra.Command, args []string) error {
	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	phrase := args[0]
	format, _ := cmd.Flags().GetString("format")
	modeName, _ := cmd.Flags().GetString("mode")
	if modeName == "" {
		modeName = cfg.Mining.DefaultMode
	}
	mode, err := archive.ParseMode(modeName)
	if err != nil {
		return err
	}

	spin := ui.NewSpinner(cmd.ErrOrStderr(), quietMode)
	spin.Start(fmt.Sprintf("Mining '%s'...", phrase))
	res, err := a.miner.Mine(platform.WithProgress(cmd.Context(), spin.Update), phrase, mode)
	spin.Stop()
	if err != nil {
		return fmt.Errorf("mining failed: %w", err)
	}

	out := cmd.OutOrStdout()
	switch format {
	case "json":
		return printJSON(out, res.Listings)
	case "table":
		printListingsTable(out, res.Listings)
	default:
		fmt.Fprintf(out, "Mined %d listings for %q (%d categories re-queried, %d skipped)\n",
			len(res.Listings), phrase, len(res.Categories), len(res.Skipped))
		fmt.Fprintf(out, "Saved to archive %s (%s)\n", res.Archive, mode)
	}
	return nil
}
