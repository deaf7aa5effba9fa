package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var reclaimCmd = &cobra.Command{
	Use:   "reclaim",
	Short: "Delete unused target groups of a service",
	Long: `Delete every target group of the service that has no registered targets.
The target group the service's host rule currently forwards to is kept.`,
	RunE: runReclaim,
}

func init() {
	reclaimCmd.Flags().StringP("file", "f", defaultSpecFile, "Deploy file")
}

func runReclaim(cmd *cobra.Command, args []string) error {
	file, _ := cmd.Flags().GetString("file")

	spec, err := loadSpec(file)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	rt, err := newRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.close()
	rt.cfg.ReclaimDelay = 0

	pipeline, err := rt.pipeline(ctx, ".")
	if err != nil {
		return err
	}

	deleted, err := pipeline.Reclaim(ctx, spec)
	if err != nil {
		return err
	}
	if len(deleted) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "Nothing to reclaim")
		return nil
	}
	for _, name := range deleted {
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", name)
	}
	return nil
}
