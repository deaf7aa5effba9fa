package deployer

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	ecstypes "github.com/aws/aws-sdk-go-v2/service/ecs/types"
	"github.com/rs/zerolog"

	"github.com/edvin/ecsdeploy/internal/model"
)

const healthCheckGraceSeconds = 60

// ECS reports services that were never created as a MISSING failure and
// deleted ones with status INACTIVE.
const (
	failureReasonMissing  = "MISSING"
	serviceStatusInactive = "INACTIVE"
	serviceStatusDraining = "DRAINING"
)

// WorkloadReconciler creates the ECS service on first deploy and updates it in
// place afterwards.
type WorkloadReconciler struct {
	logger  zerolog.Logger
	ecs     ECSAPI
	network *NetworkResolver
	cluster string
}

// NewWorkloadReconciler creates a new WorkloadReconciler.
func NewWorkloadReconciler(logger zerolog.Logger, ecsAPI ECSAPI, network *NetworkResolver, cluster string) *WorkloadReconciler {
	return &WorkloadReconciler{
		logger:  logger.With().Str("component", "workload").Logger(),
		ecs:     ecsAPI,
		network: network,
		cluster: cluster,
	}
}

// Describe returns the live service, or ErrWorkloadNotFound when the cluster
// has no active service of that name. Any other failure is returned as is.
func (w *WorkloadReconciler) Describe(ctx context.Context, service string) (*ecstypes.Service, error) {
	out, err := w.ecs.DescribeServices(ctx, &ecs.DescribeServicesInput{
		Cluster:  aws.String(w.cluster),
		Services: []string{service},
	})
	if err != nil {
		return nil, fmt.Errorf("describe service %s: %w", service, err)
	}

	for _, f := range out.Failures {
		if aws.ToString(f.Reason) == failureReasonMissing {
			return nil, ErrWorkloadNotFound
		}
		return nil, fmt.Errorf("describe service %s: %s", service, aws.ToString(f.Reason))
	}
	if len(out.Services) == 0 {
		return nil, ErrWorkloadNotFound
	}

	svc := out.Services[0]
	switch aws.ToString(svc.Status) {
	case serviceStatusInactive:
		return nil, ErrWorkloadNotFound
	case serviceStatusDraining:
		return nil, fmt.Errorf("service %s is draining, retry once it is inactive", service)
	}
	return &svc, nil
}

// Reconcile points the service at rev and pool, creating it if absent. The
// load balancer binding passed here always replaces the service's current one.
func (w *WorkloadReconciler) Reconcile(ctx context.Context, spec *model.DeploymentSpec, rev model.RevisionHandle, pool model.TargetPool) (string, error) {
	existing, err := w.Describe(ctx, spec.ServiceName)
	switch {
	case err == nil:
		return w.update(ctx, spec, rev, pool, existing)
	case errors.Is(err, ErrWorkloadNotFound):
		return w.create(ctx, spec, rev, pool)
	default:
		return "", err
	}
}

func (w *WorkloadReconciler) binding(spec *model.DeploymentSpec, pool model.TargetPool) []ecstypes.LoadBalancer {
	return []ecstypes.LoadBalancer{{
		TargetGroupArn: aws.String(pool.ARN),
		ContainerName:  aws.String(spec.ServiceName),
		ContainerPort:  aws.Int32(int32(spec.ECS.Port())),
	}}
}

func (w *WorkloadReconciler) update(ctx context.Context, spec *model.DeploymentSpec, rev model.RevisionHandle, pool model.TargetPool, existing *ecstypes.Service) (string, error) {
	for _, lb := range existing.LoadBalancers {
		if aws.ToString(lb.TargetGroupArn) != pool.ARN {
			w.logger.Info().
				Str("from", aws.ToString(lb.TargetGroupArn)).
				Str("to", pool.ARN).
				Msg("replacing load balancer binding")
		}
	}

	w.logger.Info().Str("service", spec.ServiceName).Str("revision", rev.ARN).Msg("updating service")
	_, err := w.ecs.UpdateService(ctx, &ecs.UpdateServiceInput{
		Cluster:                       aws.String(w.cluster),
		Service:                       aws.String(spec.ServiceName),
		TaskDefinition:                aws.String(rev.ARN),
		DesiredCount:                  aws.Int32(int32(spec.ECS.Replicas())),
		ForceNewDeployment:            true,
		LoadBalancers:                 w.binding(spec, pool),
		HealthCheckGracePeriodSeconds: aws.Int32(healthCheckGraceSeconds),
	})
	if err != nil {
		return "", fmt.Errorf("update service %s: %w", spec.ServiceName, err)
	}
	return spec.ServiceName, nil
}

func (w *WorkloadReconciler) create(ctx context.Context, spec *model.DeploymentSpec, rev model.RevisionHandle, pool model.TargetPool) (string, error) {
	placement, err := w.network.Placement(ctx)
	if err != nil {
		return "", err
	}

	w.logger.Info().Str("service", spec.ServiceName).Str("revision", rev.ARN).Msg("creating service")
	_, err = w.ecs.CreateService(ctx, &ecs.CreateServiceInput{
		Cluster:        aws.String(w.cluster),
		ServiceName:    aws.String(spec.ServiceName),
		TaskDefinition: aws.String(rev.ARN),
		DesiredCount:   aws.Int32(int32(spec.ECS.Replicas())),
		LaunchType:     ecstypes.LaunchTypeFargate,
		NetworkConfiguration: &ecstypes.NetworkConfiguration{
			AwsvpcConfiguration: &ecstypes.AwsVpcConfiguration{
				Subnets:        placement.Subnets,
				SecurityGroups: placement.SecurityGroups,
				AssignPublicIp: ecstypes.AssignPublicIpDisabled,
			},
		},
		LoadBalancers:                 w.binding(spec, pool),
		HealthCheckGracePeriodSeconds: aws.Int32(healthCheckGraceSeconds),
	})
	if err != nil {
		return "", fmt.Errorf("create service %s: %w", spec.ServiceName, err)
	}
	return spec.ServiceName, nil
}
