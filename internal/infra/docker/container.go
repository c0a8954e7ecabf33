package docker

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/go-connections/nat"
)

type (
	// ContainerSpec describes a long running container with published TCP ports.
	ContainerSpec struct {
		Name   string
		Image  string
		Cmd    []string
		Labels map[string]string
		Ports  []PortMapping
	}

	PortMapping struct {
		Container int
		Host      int
		HostIP    string
	}
)

func (s ContainerSpec) configs() (*container.Config, *container.HostConfig, error) {
	if s.Image == "" {
		return nil, nil, errors.New("container image is required")
	}

	exposed := nat.PortSet{}
	bindings := nat.PortMap{}
	for _, mapping := range s.Ports {
		if mapping.Container <= 0 {
			return nil, nil, fmt.Errorf("invalid container port %d", mapping.Container)
		}

		port, err := nat.NewPort("tcp", strconv.Itoa(mapping.Container))
		if err != nil {
			return nil, nil, fmt.Errorf("invalid container port %d: %w", mapping.Container, err)
		}

		host := mapping.Host
		if host == 0 {
			host = mapping.Container
		}
		hostIP := mapping.HostIP
		if hostIP == "" {
			hostIP = "127.0.0.1"
		}

		exposed[port] = struct{}{}
		bindings[port] = append(bindings[port], nat.PortBinding{HostIP: hostIP, HostPort: strconv.Itoa(host)})
	}

	config := &container.Config{
		Image:        s.Image,
		Cmd:          s.Cmd,
		Labels:       s.Labels,
		ExposedPorts: exposed,
	}
	hostConfig := &container.HostConfig{
		PortBindings:  bindings,
		RestartPolicy: container.RestartPolicy{Name: container.RestartPolicyDisabled},
	}

	return config, hostConfig, nil
}
