package deployer

import (
	"context"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	ecstypes "github.com/aws/aws-sdk-go-v2/service/ecs/types"
	"github.com/rs/zerolog"

	"github.com/edvin/ecsdeploy/internal/model"
)

// Container health probe cadence.
const (
	probeIntervalSeconds = 30
	probeTimeoutSeconds  = 5
	probeRetries         = 3
	probeStartSeconds    = 60
)

// RevisionSettings holds the account-wide values every revision carries.
type RevisionSettings struct {
	Region           string
	LogGroup         string
	ExecutionRoleARN string
	TaskRoleARN      string
}

// RevisionRegistrar renders a task definition for a build and registers it as
// a new revision. Revisions are never overwritten or deleted.
type RevisionRegistrar struct {
	logger   zerolog.Logger
	ecs      ECSAPI
	secrets  *SecretResolver
	settings RevisionSettings
}

// NewRevisionRegistrar creates a new RevisionRegistrar.
func NewRevisionRegistrar(logger zerolog.Logger, ecsAPI ECSAPI, secrets *SecretResolver, settings RevisionSettings) *RevisionRegistrar {
	return &RevisionRegistrar{
		logger:   logger.With().Str("component", "revision-registrar").Logger(),
		ecs:      ecsAPI,
		secrets:  secrets,
		settings: settings,
	}
}

// Register resolves secrets, renders the task definition and registers it.
func (r *RevisionRegistrar) Register(ctx context.Context, spec *model.DeploymentSpec, image model.ImageReference) (model.RevisionHandle, error) {
	secrets := r.secrets.Resolve(ctx, spec.SSMParameters)
	input := r.TaskDefinition(spec, image, secrets)

	r.logger.Info().Str("family", aws.ToString(input.Family)).Str("image", image.String()).Msg("registering task definition")
	out, err := r.ecs.RegisterTaskDefinition(ctx, input)
	if err != nil {
		return model.RevisionHandle{}, fmt.Errorf("register task definition: %w", err)
	}
	if out.TaskDefinition == nil || aws.ToString(out.TaskDefinition.TaskDefinitionArn) == "" {
		return model.RevisionHandle{}, fmt.Errorf("register task definition: empty response")
	}

	handle := model.RevisionHandle{
		ARN:      aws.ToString(out.TaskDefinition.TaskDefinitionArn),
		Family:   aws.ToString(out.TaskDefinition.Family),
		Revision: out.TaskDefinition.Revision,
	}
	r.logger.Info().Str("revision", handle.ARN).Msg("task definition registered")
	return handle, nil
}

// TaskDefinition renders the registration request for one container revision.
func (r *RevisionRegistrar) TaskDefinition(spec *model.DeploymentSpec, image model.ImageReference, secrets []SecretRef) *ecs.RegisterTaskDefinitionInput {
	port := int32(spec.ECS.Port())

	env := make([]ecstypes.KeyValuePair, 0, len(spec.Environment))
	for _, v := range spec.Environment {
		env = append(env, ecstypes.KeyValuePair{Name: aws.String(v.Name), Value: aws.String(v.Value)})
	}

	secretList := make([]ecstypes.Secret, 0, len(secrets))
	for _, s := range secrets {
		secretList = append(secretList, ecstypes.Secret{Name: aws.String(s.Name), ValueFrom: aws.String(s.ValueFrom)})
	}

	container := ecstypes.ContainerDefinition{
		Name:      aws.String(spec.ServiceName),
		Image:     aws.String(image.String()),
		Essential: aws.Bool(true),
		PortMappings: []ecstypes.PortMapping{{
			ContainerPort: aws.Int32(port),
			Protocol:      ecstypes.TransportProtocolTcp,
		}},
		Environment: env,
		Secrets:     secretList,
		LogConfiguration: &ecstypes.LogConfiguration{
			LogDriver: ecstypes.LogDriverAwslogs,
			Options: map[string]string{
				"awslogs-group":         r.settings.LogGroup,
				"awslogs-region":        r.settings.Region,
				"awslogs-stream-prefix": spec.ServiceName,
			},
		},
		HealthCheck: &ecstypes.HealthCheck{
			Command:     ProbeCommand(spec.ECS.Port(), spec.ECS.HealthPath()),
			Interval:    aws.Int32(probeIntervalSeconds),
			Timeout:     aws.Int32(probeTimeoutSeconds),
			Retries:     aws.Int32(probeRetries),
			StartPeriod: aws.Int32(probeStartSeconds),
		},
	}

	return &ecs.RegisterTaskDefinitionInput{
		Family:                  aws.String(RepositoryName(spec.ServiceName)),
		NetworkMode:             ecstypes.NetworkModeAwsvpc,
		RequiresCompatibilities: []ecstypes.Compatibility{ecstypes.CompatibilityFargate},
		Cpu:                     aws.String(strconv.Itoa(spec.ECS.CPUUnits())),
		Memory:                  aws.String(strconv.Itoa(spec.ECS.MemoryMiB())),
		ExecutionRoleArn:        aws.String(r.settings.ExecutionRoleARN),
		TaskRoleArn:             aws.String(r.settings.TaskRoleARN),
		ContainerDefinitions:    []ecstypes.ContainerDefinition{container},
		Tags: []ecstypes.Tag{
			{Key: aws.String("Service"), Value: aws.String(spec.ServiceName)},
			{Key: aws.String("ManagedBy"), Value: aws.String("ecsdeploy")},
		},
	}
}

// ProbeCommand is the in-container HTTP health check.
func ProbeCommand(port int, path string) []string {
	return []string{"CMD-SHELL", fmt.Sprintf("curl -f http://localhost:%d%s || exit 1", port, path)}
}
