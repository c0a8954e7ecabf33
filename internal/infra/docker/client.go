package docker

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/containerd/errdefs"
	"github.com/docker/docker/api/types/build"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/moby/go-archive"

	"github.com/peakdefi/fund-deployer/internal/logger"
)

// Client wraps the Docker API calls the devnet needs.
type Client struct {
	cli    *client.Client
	logger *slog.Logger
}

// New creates a Docker client from the environment.
func New() (*Client, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, err
	}

	return &Client{cli: cli, logger: logger.Named("docker_client")}, nil
}

// Close releases the Docker connection.
func (c *Client) Close() error {
	return c.cli.Close()
}

// ImageExists checks if a Docker image exists locally.
func (c *Client) ImageExists(ctx context.Context, imageName string) (bool, error) {
	_, err := c.cli.ImageInspect(ctx, imageName)
	if err != nil {
		if errdefs.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}

	return true, nil
}

// PullImage pulls a Docker image from a registry.
func (c *Client) PullImage(ctx context.Context, imageName string) error {
	c.logger.With("image", imageName).Info("pulling docker image")

	resp, err := c.cli.ImagePull(ctx, imageName, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("failed to pull image: %w", err)
	}
	defer resp.Close()

	if err := c.drain(resp, "pull"); err != nil {
		return err
	}

	c.logger.With("image", imageName).Info("docker image pulled successfully")
	return nil
}

// BuildImage builds tag from the Dockerfile inside contextPath.
func (c *Client) BuildImage(ctx context.Context, dockerfile, contextPath, tag string) error {
	buildContext, err := archive.TarWithOptions(contextPath, &archive.TarOptions{})
	if err != nil {
		return fmt.Errorf("failed to create build context: %w", err)
	}
	defer buildContext.Close()

	resp, err := c.cli.ImageBuild(ctx, buildContext, build.ImageBuildOptions{
		Tags:       []string{tag},
		Dockerfile: dockerfile,
		Remove:     true,
	})
	if err != nil {
		return fmt.Errorf("failed to build image: %w", err)
	}
	defer resp.Body.Close()

	if err := c.drain(resp.Body, "build"); err != nil {
		return err
	}

	c.logger.With("tag", tag).Info("docker image built successfully")
	return nil
}

// StartContainer creates and starts a detached container and returns its ID.
func (c *Client) StartContainer(ctx context.Context, spec ContainerSpec) (string, error) {
	config, hostConfig, err := spec.configs()
	if err != nil {
		return "", err
	}

	resp, err := c.cli.ContainerCreate(ctx, config, hostConfig, nil, nil, spec.Name)
	if err != nil {
		return "", fmt.Errorf("failed to create container: %w", err)
	}

	if err := c.cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		_ = c.cli.ContainerRemove(ctx, resp.ID, container.RemoveOptions{Force: true})
		return "", fmt.Errorf("failed to start container: %w", err)
	}

	c.logger.With("container", spec.Name, "id", resp.ID).Info("container started")
	return resp.ID, nil
}

// RemoveContainer force removes a container. It reports false when there
// was nothing to remove.
func (c *Client) RemoveContainer(ctx context.Context, name string) (bool, error) {
	err := c.cli.ContainerRemove(ctx, name, container.RemoveOptions{Force: true, RemoveVolumes: true})
	if err != nil {
		if errdefs.IsNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to remove container %s: %w", name, err)
	}

	return true, nil
}

// drain reads the JSON progress stream and returns the last error it carries.
func (c *Client) drain(r io.Reader, op string) error {
	scanner := bufio.NewScanner(r)
	var streamErr error
	for scanner.Scan() {
		line := scanner.Text()
		c.logger.Debug(line)

		var msg struct {
			Error       string `json:"error"`
			ErrorDetail struct {
				Message string `json:"message"`
			} `json:"errorDetail"`
		}
		if err := json.Unmarshal([]byte(line), &msg); err == nil && msg.Error != "" {
			streamErr = fmt.Errorf("%s failed: %s", op, msg.Error)
			c.logger.Error("docker "+op+" error", "error", msg.Error)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading %s output: %w", op, err)
	}

	return streamErr
}
