package devnet

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peakdefi/fund-deployer/configs"
	"github.com/peakdefi/fund-deployer/internal/deployerr"
	"github.com/peakdefi/fund-deployer/internal/infra/docker"
)

// =============================================================================
// Test Helpers
// =============================================================================

type fakeDocker struct {
	calls    []string
	exists   bool
	running  bool
	started  []docker.ContainerSpec
	startErr error
}

func (f *fakeDocker) ImageExists(_ context.Context, image string) (bool, error) {
	f.calls = append(f.calls, "inspect "+image)
	return f.exists, nil
}

func (f *fakeDocker) PullImage(_ context.Context, image string) error {
	f.calls = append(f.calls, "pull "+image)
	return nil
}

func (f *fakeDocker) BuildImage(_ context.Context, dockerfile, contextPath, tag string) error {
	f.calls = append(f.calls, "build "+contextPath+"/"+dockerfile+" as "+tag)
	return nil
}

func (f *fakeDocker) StartContainer(_ context.Context, spec docker.ContainerSpec) (string, error) {
	f.calls = append(f.calls, "start "+spec.Name)
	if f.startErr != nil {
		return "", f.startErr
	}
	f.started = append(f.started, spec)
	f.running = true
	return "abc123", nil
}

func (f *fakeDocker) RemoveContainer(_ context.Context, name string) (bool, error) {
	f.calls = append(f.calls, "remove "+name)
	removed := f.running
	f.running = false
	return removed, nil
}

type waitCall struct {
	url      string
	attempts int
}

func recordWaits(calls *[]waitCall, err error) RPCWaiter {
	return func(_ context.Context, url string, attempts int, _ time.Duration) error {
		*calls = append(*calls, waitCall{url: url, attempts: attempts})
		return err
	}
}

func devnetConfig(t *testing.T) configs.Devnet {
	t.Helper()
	return configs.MustDefaultConfig().Devnet
}

// =============================================================================
// Container spec
// =============================================================================

func TestContainerSpec_FundsOperatorKey(t *testing.T) {
	cfg := devnetConfig(t)

	spec, err := ContainerSpec(cfg)
	require.NoError(t, err)

	assert.Equal(t, "funddeploy-devnet", spec.Name)
	assert.Equal(t, "trufflesuite/ganache:v7.9.2", spec.Image)
	assert.Contains(t, spec.Cmd, "--chain.chainId=1337")
	assert.Contains(t, spec.Cmd, "--wallet.accounts="+cfg.PrivateKey+",1000000000000000000000000")
	assert.Equal(t, []docker.PortMapping{{Container: 8545, Host: 8545}}, spec.Ports)
}

func TestContainerSpec_Balance(t *testing.T) {
	cfg := devnetConfig(t)

	cfg.Balance = "0.5"
	spec, err := ContainerSpec(cfg)
	require.NoError(t, err)
	assert.Contains(t, spec.Cmd, "--wallet.accounts="+cfg.PrivateKey+",500000000000000000")

	for _, bad := range []string{"lots", "-1", "0.0000000000000000001"} {
		cfg.Balance = bad
		_, err := ContainerSpec(cfg)
		assert.Error(t, err, bad)
	}
}

// =============================================================================
// Lifecycle
// =============================================================================

func TestUp_PullsMissingImageAndWaitsForRPC(t *testing.T) {
	client := &fakeDocker{}
	var waits []waitCall

	endpoint, err := New(devnetConfig(t), client, recordWaits(&waits, nil)).Up(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{
		"inspect trufflesuite/ganache:v7.9.2",
		"pull trufflesuite/ganache:v7.9.2",
		"remove funddeploy-devnet",
		"start funddeploy-devnet",
	}, client.calls)
	assert.Equal(t, []waitCall{{url: "http://127.0.0.1:8545", attempts: 30}}, waits)

	assert.Equal(t, "abc123", endpoint.ContainerID)
	assert.Equal(t, int64(1337), endpoint.ChainID)
	assert.Equal(t, common.HexToAddress("0x90F8bf6A479f320ead074411a4B0e7944Ea8c9C1"), endpoint.Operator)
}

func TestUp_SkipsPullForLocalImage(t *testing.T) {
	client := &fakeDocker{exists: true}
	var waits []waitCall

	_, err := New(devnetConfig(t), client, recordWaits(&waits, nil)).Up(context.Background())
	require.NoError(t, err)
	assert.NotContains(t, client.calls, "pull trufflesuite/ganache:v7.9.2")
}

func TestUp_BuildsFromContext(t *testing.T) {
	cfg := devnetConfig(t)
	cfg.BuildContext = "./devnet"
	cfg.Image = "funddeploy/ganache:local"
	client := &fakeDocker{}
	var waits []waitCall

	_, err := New(cfg, client, recordWaits(&waits, nil)).Up(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "build ./devnet/Dockerfile as funddeploy/ganache:local", client.calls[0])
	assert.NotContains(t, client.calls, "inspect funddeploy/ganache:local")
}

func TestUp_InvalidConfigTouchesNothing(t *testing.T) {
	cfg := devnetConfig(t)
	cfg.ChainID = 0
	client := &fakeDocker{}
	var waits []waitCall

	_, err := New(cfg, client, recordWaits(&waits, nil)).Up(context.Background())
	assert.ErrorIs(t, err, deployerr.ErrConfiguration)
	assert.Empty(t, client.calls)
	assert.Empty(t, waits)
}

func TestUp_Failures(t *testing.T) {
	t.Run("container start", func(t *testing.T) {
		client := &fakeDocker{exists: true, startErr: errors.New("port is already allocated")}
		var waits []waitCall

		_, err := New(devnetConfig(t), client, recordWaits(&waits, nil)).Up(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "port is already allocated")
		assert.Empty(t, waits)
	})

	t.Run("rpc never answers", func(t *testing.T) {
		client := &fakeDocker{exists: true}
		var waits []waitCall

		endpoint, err := New(devnetConfig(t), client, recordWaits(&waits, errors.New("connection refused"))).Up(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "devnet did not become ready")
		assert.Equal(t, "abc123", endpoint.ContainerID, "the container is reported so it can be inspected")
	})
}

func TestDown(t *testing.T) {
	client := &fakeDocker{running: true}
	d := New(devnetConfig(t), client, nil)

	require.NoError(t, d.Down(context.Background()))
	assert.False(t, client.running)

	require.NoError(t, d.Down(context.Background()), "removing a missing devnet is not an error")
	assert.Equal(t, []string{"remove funddeploy-devnet", "remove funddeploy-devnet"}, client.calls)
}
