package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/edvin/ecsdeploy/internal/history"
	"github.com/edvin/ecsdeploy/internal/model"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent deployments of a service",
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().StringP("file", "f", defaultSpecFile, "Deploy file naming the service")
	historyCmd.Flags().String("service", "", "Service name (overrides the deploy file)")
	historyCmd.Flags().Int("limit", 20, "Number of runs to show")
}

func runHistory(cmd *cobra.Command, args []string) error {
	file, _ := cmd.Flags().GetString("file")
	service, _ := cmd.Flags().GetString("service")
	limit, _ := cmd.Flags().GetInt("limit")

	if service == "" {
		spec, err := loadSpec(file)
		if err != nil {
			return err
		}
		service = spec.ServiceName
	}

	ctx, stop := signalContext()
	defer stop()

	rt, err := newRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.close()
	if rt.pool == nil {
		return fmt.Errorf("DATABASE_URL is required to read deployment history")
	}

	deployments, err := history.NewStore(rt.pool).List(ctx, service, limit)
	if err != nil {
		return err
	}
	return printHistory(cmd.OutOrStdout(), deployments)
}

func printHistory(out io.Writer, deployments []model.Deployment) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STARTED\tSTATUS\tDURATION\tTARGET POOL\tIMAGE\tERROR")
	for _, d := range deployments {
		duration := "-"
		if d.FinishedAt != nil {
			duration = d.FinishedAt.Sub(d.StartedAt).Round(time.Second).String()
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			d.StartedAt.Format(time.RFC3339), d.Status, duration, d.TargetPool, d.Image, d.Error)
	}
	return w.Flush()
}
