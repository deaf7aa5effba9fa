package deployer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	elb "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	elbtypes "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2/types"
	"github.com/rs/zerolog"

	"github.com/edvin/ecsdeploy/internal/model"
	"github.com/edvin/ecsdeploy/internal/platform"
)

// Target pool health check thresholds. The cadence matches the container probe.
const (
	poolHealthyThreshold   = 2
	poolUnhealthyThreshold = 3
	poolNameAttempts       = 5
)

// serviceTagKey tags every pool with the service that owns it.
const serviceTagKey = "Service"

// TargetPoolProvisioner creates a fresh target group for each deploy attempt.
// It is not idempotent: every call creates a new pool.
type TargetPoolProvisioner struct {
	logger  zerolog.Logger
	elb     ELBAPI
	network *NetworkResolver
	now     func() time.Time
}

// NewTargetPoolProvisioner creates a new TargetPoolProvisioner.
func NewTargetPoolProvisioner(logger zerolog.Logger, elbAPI ELBAPI, network *NetworkResolver) *TargetPoolProvisioner {
	return &TargetPoolProvisioner{
		logger:  logger.With().Str("component", "target-pool").Logger(),
		elb:     elbAPI,
		network: network,
		now:     time.Now,
	}
}

// Provision creates the target pool for spec in the discovered VPC.
func (p *TargetPoolProvisioner) Provision(ctx context.Context, spec *model.DeploymentSpec) (model.TargetPool, error) {
	vpcID, err := p.network.VPC(ctx)
	if err != nil {
		return model.TargetPool{}, err
	}

	name, err := p.uniqueName(ctx, spec.ServiceName)
	if err != nil {
		return model.TargetPool{}, err
	}

	p.logger.Info().Str("target_pool", name).Str("vpc", vpcID).Msg("creating target pool")
	out, err := p.elb.CreateTargetGroup(ctx, &elb.CreateTargetGroupInput{
		Name:                       aws.String(name),
		Protocol:                   elbtypes.ProtocolEnumHttp,
		Port:                       aws.Int32(int32(spec.ECS.Port())),
		VpcId:                      aws.String(vpcID),
		TargetType:                 elbtypes.TargetTypeEnumIp,
		HealthCheckEnabled:         aws.Bool(true),
		HealthCheckProtocol:        elbtypes.ProtocolEnumHttp,
		HealthCheckPath:            aws.String(spec.ECS.HealthPath()),
		HealthCheckIntervalSeconds: aws.Int32(probeIntervalSeconds),
		HealthCheckTimeoutSeconds:  aws.Int32(probeTimeoutSeconds),
		HealthyThresholdCount:      aws.Int32(poolHealthyThreshold),
		UnhealthyThresholdCount:    aws.Int32(poolUnhealthyThreshold),
		Tags: []elbtypes.Tag{
			{Key: aws.String(serviceTagKey), Value: aws.String(spec.ServiceName)},
			{Key: aws.String("Deployment"), Value: aws.String("blue-green")},
		},
	})
	if err != nil {
		return model.TargetPool{}, fmt.Errorf("create target pool %s: %w", name, err)
	}
	if len(out.TargetGroups) == 0 {
		return model.TargetPool{}, fmt.Errorf("create target pool %s: empty response", name)
	}

	return model.TargetPool{
		ARN:  aws.ToString(out.TargetGroups[0].TargetGroupArn),
		Name: aws.ToString(out.TargetGroups[0].TargetGroupName),
	}, nil
}

// uniqueName picks a pool name that no existing target group uses, advancing
// the time suffix one millisecond per collision.
func (p *TargetPoolProvisioner) uniqueName(ctx context.Context, service string) (string, error) {
	base := p.now()
	for i := 0; i < poolNameAttempts; i++ {
		name := platform.TargetPoolName(service, base.Add(time.Duration(i)*time.Millisecond))
		taken, err := p.nameTaken(ctx, name)
		if err != nil {
			return "", err
		}
		if !taken {
			return name, nil
		}
		p.logger.Debug().Str("target_pool", name).Msg("pool name taken, trying next")
	}
	return "", fmt.Errorf("no free target pool name for %s after %d attempts", service, poolNameAttempts)
}

func (p *TargetPoolProvisioner) nameTaken(ctx context.Context, name string) (bool, error) {
	out, err := p.elb.DescribeTargetGroups(ctx, &elb.DescribeTargetGroupsInput{
		Names: []string{name},
	})
	if err != nil {
		var notFound *elbtypes.TargetGroupNotFoundException
		if errors.As(err, &notFound) || APIErrorCode(err) == "TargetGroupNotFound" {
			return false, nil
		}
		return false, fmt.Errorf("check target pool name %s: %w", name, err)
	}
	return len(out.TargetGroups) > 0, nil
}
