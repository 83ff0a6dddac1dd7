package cmd

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/lukman83/listing-miner/internal/platform"
	"github.com/lukman83/listing-miner/internal/ui"
	"github.com/spf13/cobra"
)

var mineAllCmd = &cobra.Command{
	Use:   "mine-all",
	Short: "Mine every phrase listed in the configuration",
	Args:  cobra.NoArgs,
	RunE:  runMineAll,
}

func init() {
	rootCmd.AddCommand(mineAllCmd)
}

func runMineAll(cmd *cobra.Command, args []string) error {
	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if len(cfg.Mining.Phrases) == 0 {
		return errors.New("no phrases configured (mining.phrases or MINER_PHRASES)")
	}

	spin := ui.NewSpinner(cmd.ErrOrStderr(), quietMode)
	spin.Start(fmt.Sprintf("Mining %d phrases...", len(cfg.Mining.Phrases)))
	outcomes := a.miner.MineAll(platform.WithProgress(cmd.Context(), spin.Update))
	spin.Stop()

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PHRASE\tSTATUS\tITEMS\tARCHIVE")
	failed := 0
	for _, o := range outcomes {
		if o.Err != nil {
			failed++
			fmt.Fprintf(tw, "%s\tfailed: %v\t-\t-\n", o.Phrase, o.Err)
			continue
		}
		fmt.Fprintf(tw, "%s\tok\t%d\t%s\n", o.Phrase, len(o.Result.Listings), o.Result.Archive)
	}
	tw.Flush()

	if failed == len(outcomes) {
		return fmt.Errorf("all %d phrases failed", failed)
	}
	return nil
}
