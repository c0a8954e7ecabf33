package docker

import (
	"testing"

	"github.com/docker/go-connections/nat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContainerSpec_PublishesPorts(t *testing.T) {
	spec := ContainerSpec{
		Name:   "devnet",
		Image:  "trufflesuite/ganache:v7.9.2",
		Cmd:    []string{"--chain.chainId=1337"},
		Labels: map[string]string{"app": "funddeploy"},
		Ports:  []PortMapping{{Container: 8545, Host: 18545}},
	}

	config, hostConfig, err := spec.configs()
	require.NoError(t, err)

	port := nat.Port("8545/tcp")
	assert.Equal(t, "trufflesuite/ganache:v7.9.2", config.Image)
	assert.Equal(t, []string{"--chain.chainId=1337"}, []string(config.Cmd))
	assert.Contains(t, config.ExposedPorts, port)
	assert.Equal(t, []nat.PortBinding{{HostIP: "127.0.0.1", HostPort: "18545"}}, hostConfig.PortBindings[port])
}

func TestContainerSpec_HostPortDefaultsToContainerPort(t *testing.T) {
	spec := ContainerSpec{Image: "ganache", Ports: []PortMapping{{Container: 8545, HostIP: "0.0.0.0"}}}

	_, hostConfig, err := spec.configs()
	require.NoError(t, err)
	assert.Equal(t, []nat.PortBinding{{HostIP: "0.0.0.0", HostPort: "8545"}}, hostConfig.PortBindings[nat.Port("8545/tcp")])
}

func TestContainerSpec_Invalid(t *testing.T) {
	_, _, err := ContainerSpec{}.configs()
	assert.EqualError(t, err, "container image is required")

	_, _, err = ContainerSpec{Image: "ganache", Ports: []PortMapping{{Container: -1}}}.configs()
	assert.EqualError(t, err, "invalid container port -1")
}
