package deployer

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ecr"
	ecrtypes "github.com/aws/aws-sdk-go-v2/service/ecr/types"
	"github.com/rs/zerolog"

	"github.com/edvin/ecsdeploy/internal/model"
	"github.com/edvin/ecsdeploy/internal/platform"
)

const resourcePrefix = "auto-deploy-"

// RepositoryName is the image repository (and task definition family) of a service.
func RepositoryName(service string) string {
	return resourcePrefix + service
}

// RegistryHost is the private registry endpoint of an account.
func RegistryHost(accountID, region string) string {
	return fmt.Sprintf("%s.dkr.ecr.%s.amazonaws.com", accountID, region)
}

// ArtifactBuilder builds the service image and publishes it under a unique tag.
type ArtifactBuilder struct {
	logger     zerolog.Logger
	ecr        ECRAPI
	engine     ImageEngine
	accountID  string
	region     string
	contextDir string
	now        func() time.Time
}

// NewArtifactBuilder creates a new ArtifactBuilder.
func NewArtifactBuilder(logger zerolog.Logger, ecrAPI ECRAPI, engine ImageEngine, accountID, region, contextDir string) *ArtifactBuilder {
	if contextDir == "" {
		contextDir = "."
	}
	return &ArtifactBuilder{
		logger:     logger.With().Str("component", "artifact-builder").Logger(),
		ecr:        ecrAPI,
		engine:     engine,
		accountID:  accountID,
		region:     region,
		contextDir: contextDir,
		now:        time.Now,
	}
}

// Build builds and pushes the image for spec. Any failure aborts the run.
func (b *ArtifactBuilder) Build(ctx context.Context, spec *model.DeploymentSpec) (model.ImageReference, error) {
	repo := RepositoryName(spec.ServiceName)
	if err := b.ensureRepository(ctx, repo); err != nil {
		return model.ImageReference{}, err
	}

	auth, err := b.registryAuth(ctx)
	if err != nil {
		return model.ImageReference{}, err
	}

	ref := model.ImageReference{
		Registry:   RegistryHost(b.accountID, b.region),
		Repository: repo,
		Tag:        platform.ImageTag(b.now()),
	}

	if err := b.engine.BuildImage(ctx, b.contextDir, ref.String()); err != nil {
		return model.ImageReference{}, err
	}
	if err := b.engine.PushImage(ctx, ref.String(), auth); err != nil {
		return model.ImageReference{}, err
	}

	b.logger.Info().Str("image", ref.String()).Msg("image published")
	return ref, nil
}

func (b *ArtifactBuilder) ensureRepository(ctx context.Context, repo string) error {
	_, err := b.ecr.DescribeRepositories(ctx, &ecr.DescribeRepositoriesInput{
		RepositoryNames: []string{repo},
	})
	if err == nil {
		return nil
	}

	var notFound *ecrtypes.RepositoryNotFoundException
	if !errors.As(err, &notFound) {
		return fmt.Errorf("describe repository %s: %w", repo, err)
	}

	b.logger.Info().Str("repository", repo).Msg("creating image repository")
	_, err = b.ecr.CreateRepository(ctx, &ecr.CreateRepositoryInput{
		RepositoryName:     aws.String(repo),
		ImageTagMutability: ecrtypes.ImageTagMutabilityImmutable,
		ImageScanningConfiguration: &ecrtypes.ImageScanningConfiguration{
			ScanOnPush: true,
		},
	})
	if err != nil {
		return fmt.Errorf("create repository %s: %w", repo, err)
	}
	return nil
}

// registryAuth exchanges an ECR authorization token for docker credentials.
// The token is base64("AWS:<password>").
func (b *ArtifactBuilder) registryAuth(ctx context.Context) (RegistryAuth, error) {
	out, err := b.ecr.GetAuthorizationToken(ctx, &ecr.GetAuthorizationTokenInput{})
	if err != nil {
		return RegistryAuth{}, fmt.Errorf("get registry token: %w", err)
	}
	if len(out.AuthorizationData) == 0 {
		return RegistryAuth{}, fmt.Errorf("get registry token: no authorization data returned")
	}

	data := out.AuthorizationData[0]
	decoded, err := base64.StdEncoding.DecodeString(aws.ToString(data.AuthorizationToken))
	if err != nil {
		return RegistryAuth{}, fmt.Errorf("decode registry token: %w", err)
	}
	user, pass, ok := strings.Cut(string(decoded), ":")
	if !ok {
		return RegistryAuth{}, fmt.Errorf("decode registry token: malformed token")
	}

	return RegistryAuth{
		Username:      user,
		Password:      pass,
		ServerAddress: aws.ToString(data.ProxyEndpoint),
	}, nil
}
