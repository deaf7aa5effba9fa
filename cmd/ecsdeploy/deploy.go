package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/edvin/ecsdeploy/internal/deployer"
)

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Build and deploy a service",
	Long: `Build the image in the context directory, register a new revision and cut
the service's host rule over to it once the service is stable.

Examples:
  # Deploy using codepipeline/deploy.yaml
  ecsdeploy deploy

  # Deploy a different service definition
  ecsdeploy deploy -f services/api.yaml --context services/api`,
	RunE: runDeploy,
}

func init() {
	deployCmd.Flags().StringP("file", "f", defaultSpecFile, "Deploy file")
	deployCmd.Flags().String("context", ".", "Docker build context directory")
}

func runDeploy(cmd *cobra.Command, args []string) error {
	file, _ := cmd.Flags().GetString("file")
	contextDir, _ := cmd.Flags().GetString("context")

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

	pipeline, err := rt.pipeline(ctx, contextDir)
	if err != nil {
		return err
	}

	res, err := pipeline.Run(ctx, spec)
	rt.pushMetrics(spec.ServiceName)
	if err != nil {
		if step := deployer.FailedStep(err); step != "" {
			return fmt.Errorf("deployment %s failed during %s: %w", res.Deployment.ID, step, errors.Unwrap(err))
		}
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Service URL: %s\n", res.URL)
	return nil
}
