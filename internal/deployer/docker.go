package deployer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/registry"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/archive"
	"github.com/docker/docker/pkg/jsonmessage"
	"github.com/moby/patternmatcher/ignorefile"
	"github.com/rs/zerolog"
)

// RegistryAuth holds credentials for pushing to an image registry.
type RegistryAuth struct {
	Username      string
	Password      string
	ServerAddress string
}

// ImageEngine builds and publishes container images.
type ImageEngine interface {
	BuildImage(ctx context.Context, contextDir, ref string) error
	PushImage(ctx context.Context, ref string, auth RegistryAuth) error
}

// DockerEngine implements ImageEngine using the Docker Engine API. The daemon
// is located through the usual DOCKER_HOST/DOCKER_CERT_PATH environment.
type DockerEngine struct {
	logger zerolog.Logger
	out    io.Writer
}

// NewDockerEngine creates a new DockerEngine. Build and push progress is
// streamed to out.
func NewDockerEngine(logger zerolog.Logger, out io.Writer) *DockerEngine {
	if out == nil {
		out = io.Discard
	}
	return &DockerEngine{
		logger: logger.With().Str("component", "docker").Logger(),
		out:    out,
	}
}

func (d *DockerEngine) dockerClient() (*client.Client, error) {
	return client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
}

func (d *DockerEngine) BuildImage(ctx context.Context, contextDir, ref string) error {
	cli, err := d.dockerClient()
	if err != nil {
		return fmt.Errorf("create docker client: %w", err)
	}
	defer cli.Close()

	excludes, err := readDockerignore(contextDir)
	if err != nil {
		return err
	}

	buildCtx, err := archive.TarWithOptions(contextDir, &archive.TarOptions{ExcludePatterns: excludes})
	if err != nil {
		return fmt.Errorf("archive build context %s: %w", contextDir, err)
	}
	defer buildCtx.Close()

	d.logger.Info().Str("image", ref).Str("context", contextDir).Msg("building image")
	resp, err := cli.ImageBuild(ctx, buildCtx, types.ImageBuildOptions{
		Tags:        []string{ref},
		Dockerfile:  "Dockerfile",
		Remove:      true,
		ForceRemove: true,
	})
	if err != nil {
		return fmt.Errorf("build image %s: %w", ref, err)
	}
	defer resp.Body.Close()

	if err := jsonmessage.DisplayJSONMessagesStream(resp.Body, d.out, 0, false, nil); err != nil {
		return fmt.Errorf("build image %s: %w", ref, err)
	}
	return nil
}

func (d *DockerEngine) PushImage(ctx context.Context, ref string, auth RegistryAuth) error {
	cli, err := d.dockerClient()
	if err != nil {
		return fmt.Errorf("create docker client: %w", err)
	}
	defer cli.Close()

	encoded, err := registry.EncodeAuthConfig(registry.AuthConfig{
		Username:      auth.Username,
		Password:      auth.Password,
		ServerAddress: auth.ServerAddress,
	})
	if err != nil {
		return fmt.Errorf("encode registry auth: %w", err)
	}

	d.logger.Info().Str("image", ref).Msg("pushing image")
	reader, err := cli.ImagePush(ctx, ref, image.PushOptions{RegistryAuth: encoded})
	if err != nil {
		return fmt.Errorf("push image %s: %w", ref, err)
	}
	defer reader.Close()

	if err := jsonmessage.DisplayJSONMessagesStream(reader, d.out, 0, false, nil); err != nil {
		return fmt.Errorf("push image %s: %w", ref, err)
	}
	return nil
}

func readDockerignore(contextDir string) ([]string, error) {
	f, err := os.Open(filepath.Join(contextDir, ".dockerignore"))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open .dockerignore: %w", err)
	}
	defer f.Close()

	patterns, err := ignorefile.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read .dockerignore: %w", err)
	}
	return patterns, nil
}
