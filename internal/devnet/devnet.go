package devnet

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/peakdefi/fund-deployer/configs"
	"github.com/peakdefi/fund-deployer/internal/crypto"
	"github.com/peakdefi/fund-deployer/internal/infra/docker"
	"github.com/peakdefi/fund-deployer/internal/logger"
)

const (
	ganachePort    = 8545
	rpcWaitBackoff = time.Second
	labelKey       = "io.peakdefi.funddeploy"
)

type (
	dockerClient interface {
		ImageExists(ctx context.Context, imageName string) (bool, error)
		PullImage(ctx context.Context, imageName string) error
		BuildImage(ctx context.Context, dockerfile, contextPath, tag string) error
		StartContainer(ctx context.Context, spec docker.ContainerSpec) (string, error)
		RemoveContainer(ctx context.Context, name string) (bool, error)
	}

	// RPCWaiter blocks until the endpoint answers or the attempts run out.
	RPCWaiter func(ctx context.Context, url string, attempts int, interval time.Duration) error

	// Endpoint is what a started devnet exposes to the deployer.
	Endpoint struct {
		ContainerID string
		RPCURL      string
		ChainID     int64
		Operator    common.Address
	}

	// Devnet runs a single ganache container funded for the operator key.
	Devnet struct {
		cfg    configs.Devnet
		docker dockerClient
		wait   RPCWaiter
		logger *slog.Logger
	}
)

// New returns a Devnet managed through client; wait checks RPC readiness.
func New(cfg configs.Devnet, client dockerClient, wait RPCWaiter) *Devnet {
	return &Devnet{
		cfg:    cfg,
		docker: client,
		wait:   wait,
		logger: logger.Named("devnet"),
	}
}

// Up replaces any previous devnet container and waits until its RPC answers.
func (d *Devnet) Up(ctx context.Context) (Endpoint, error) {
	log := d.logger.With("container", d.cfg.ContainerName, "image", d.cfg.Image)

	log.Info("Step 1: validating devnet configuration")
	if err := d.cfg.Validate(); err != nil {
		return Endpoint{}, err
	}
	operator, err := crypto.AddressFromPrivateKey(d.cfg.PrivateKey)
	if err != nil {
		return Endpoint{}, fmt.Errorf("devnet.private-key: %w", err)
	}
	spec, err := ContainerSpec(d.cfg)
	if err != nil {
		return Endpoint{}, err
	}

	log.Info("Step 2: preparing image")
	if err := d.ensureImage(ctx); err != nil {
		return Endpoint{}, fmt.Errorf("image preparation failed: %w", err)
	}

	log.Info("Step 3: starting container")
	if removed, err := d.docker.RemoveContainer(ctx, d.cfg.ContainerName); err != nil {
		return Endpoint{}, err
	} else if removed {
		log.Info("removed previous devnet container")
	}
	id, err := d.docker.StartContainer(ctx, spec)
	if err != nil {
		return Endpoint{}, fmt.Errorf("container start failed: %w", err)
	}

	endpoint := Endpoint{
		ContainerID: id,
		RPCURL:      fmt.Sprintf("http://127.0.0.1:%d", d.cfg.Port),
		ChainID:     d.cfg.ChainID,
		Operator:    operator,
	}

	log.With("rpc", endpoint.RPCURL).Info("Step 4: waiting for RPC")
	if err := d.wait(ctx, endpoint.RPCURL, d.cfg.RPCAttempts, rpcWaitBackoff); err != nil {
		return endpoint, fmt.Errorf("devnet did not become ready: %w", err)
	}

	log.With("rpc", endpoint.RPCURL, "operator", operator.Hex()).Info("devnet is up")
	return endpoint, nil
}

// Down removes the devnet container. A missing container is not an error.
func (d *Devnet) Down(ctx context.Context) error {
	removed, err := d.docker.RemoveContainer(ctx, d.cfg.ContainerName)
	if err != nil {
		return err
	}
	if !removed {
		d.logger.With("container", d.cfg.ContainerName).Info("devnet is not running")
		return nil
	}

	d.logger.With("container", d.cfg.ContainerName).Info("devnet removed")
	return nil
}

func (d *Devnet) ensureImage(ctx context.Context) error {
	if d.cfg.BuildContext != "" {
		dockerfile := d.cfg.Dockerfile
		if dockerfile == "" {
			dockerfile = "Dockerfile"
		}
		return d.docker.BuildImage(ctx, dockerfile, d.cfg.BuildContext, d.cfg.Image)
	}

	exists, err := d.docker.ImageExists(ctx, d.cfg.Image)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return d.docker.PullImage(ctx, d.cfg.Image)
}

// ContainerSpec builds the ganache container for cfg. The operator key is
// the only funded account and the chain id matches the ganache network entry.
func ContainerSpec(cfg configs.Devnet) (docker.ContainerSpec, error) {
	balance, err := decimal.NewFromString(cfg.Balance)
	if err != nil {
		return docker.ContainerSpec{}, fmt.Errorf("devnet.balance %q is not a number", cfg.Balance)
	}
	if balance.IsNegative() {
		return docker.ContainerSpec{}, fmt.Errorf("devnet.balance %q is negative", cfg.Balance)
	}
	wei := balance.Shift(18)
	if !wei.IsInteger() {
		return docker.ContainerSpec{}, fmt.Errorf("devnet.balance %q has more than 18 decimal places", cfg.Balance)
	}

	return docker.ContainerSpec{
		Name:  cfg.ContainerName,
		Image: cfg.Image,
		Cmd: []string{
			"--server.host=0.0.0.0",
			fmt.Sprintf("--server.port=%d", ganachePort),
			fmt.Sprintf("--chain.chainId=%d", cfg.ChainID),
			fmt.Sprintf("--chain.networkId=%d", cfg.ChainID),
			fmt.Sprintf("--wallet.accounts=%s,%s", cfg.PrivateKey, wei.String()),
		},
		Labels: map[string]string{labelKey: "devnet"},
		Ports:  []docker.PortMapping{{Container: ganachePort, Host: cfg.Port}},
	}, nil
}
