package chain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	keys "github.com/peakdefi/fund-deployer/internal/crypto"
	"github.com/peakdefi/fund-deployer/internal/deployerr"
	"github.com/peakdefi/fund-deployer/internal/logger"
)

// Client executes actions against a JSON-RPC endpoint, signing with the operator key.
type Client struct {
	eth       *ethclient.Client
	key       *ecdsa.PrivateKey
	operator  common.Address
	chainID   *big.Int
	gasLimit  uint64
	artifacts *Artifacts
	logger    *slog.Logger
}

// Dial connects to rpcURL. When expectedChainID is non-zero the endpoint must report it.
func Dial(ctx context.Context, rpcURL, privateKeyHex string, expectedChainID int64, gasLimit uint64, artifacts *Artifacts) (*Client, error) {
	log := logger.Named("chain_client")

	privateKey, operator, err := keys.ParsePrivateKey(privateKeyHex)
	if err != nil {
		return nil, deployerr.New(deployerr.ErrConfiguration, "operator.private-key", err)
	}

	log.With("url", rpcURL).Info("dialing RPC")
	eth, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", rpcURL, err)
	}

	chainID, err := eth.ChainID(ctx)
	if err != nil {
		eth.Close()
		return nil, fmt.Errorf("failed to get chain ID: %w", err)
	}
	if expectedChainID != 0 && chainID.Cmp(big.NewInt(expectedChainID)) != 0 {
		eth.Close()
		return nil, deployerr.Newf(deployerr.ErrConfiguration, "chain-id", "endpoint reports chain %s, configuration expects %d", chainID, expectedChainID)
	}

	log.With("chain_id", chainID, "operator", operator.Hex()).Info("connected")

	return &Client{
		eth:       eth,
		key:       privateKey,
		operator:  operator,
		chainID:   chainID,
		gasLimit:  gasLimit,
		artifacts: artifacts,
		logger:    log,
	}, nil
}

// Close releases the RPC connection.
func (c *Client) Close() {
	c.eth.Close()
}

func (c *Client) Operator() common.Address {
	return c.operator
}

// Deploy sends a contract creation and waits for its receipt.
func (c *Client) Deploy(ctx context.Context, artifactName string, args ...any) (common.Address, error) {
	artifact, err := c.artifacts.Get(artifactName)
	if err != nil {
		return common.Address{}, err
	}
	if len(artifact.Bytecode) == 0 {
		return common.Address{}, fmt.Errorf("artifact %s has no bytecode", artifactName)
	}

	packed, err := coerceArgs(artifact.ABI.Constructor.Inputs, args)
	if err != nil {
		return common.Address{}, fmt.Errorf("constructor of %s: %w", artifactName, err)
	}

	auth, err := c.transactor(ctx)
	if err != nil {
		return common.Address{}, err
	}

	address, tx, _, err := bind.DeployContract(auth, artifact.ABI, artifact.Bytecode, c.eth, packed...)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to deploy contract: %w", err)
	}

	c.logger.
		With("artifact", artifactName).
		With("address", address).
		With("tx_hash", tx.Hash().Hex()).
		Debug("contract deployment transaction sent")

	if _, err := c.wait(ctx, tx); err != nil {
		return common.Address{}, err
	}

	return address, nil
}

// Transact sends a state-changing call and waits for it to be mined.
func (c *Client) Transact(ctx context.Context, artifactName string, at common.Address, method string, args ...any) (*Receipt, error) {
	artifact, packed, err := c.prepare(artifactName, method, args)
	if err != nil {
		return nil, err
	}

	auth, err := c.transactor(ctx)
	if err != nil {
		return nil, err
	}

	tx, err := c.bound(artifact.ABI, at).Transact(auth, method, packed...)
	if err != nil {
		return nil, fmt.Errorf("failed to send %s.%s: %w", artifactName, method, err)
	}

	c.logger.
		With("artifact", artifactName).
		With("method", method).
		With("tx_hash", tx.Hash().Hex()).
		Debug("transaction sent")

	receipt, err := c.wait(ctx, tx)
	if err != nil {
		return nil, err
	}

	return &Receipt{TxHash: receipt.TxHash, Events: decodeEvents(artifact.ABI, receipt.Logs)}, nil
}

// Call runs a read-only method and returns its decoded outputs.
func (c *Client) Call(ctx context.Context, artifactName string, at common.Address, method string, args ...any) ([]any, error) {
	artifact, packed, err := c.prepare(artifactName, method, args)
	if err != nil {
		return nil, err
	}

	var out []any
	opts := &bind.CallOpts{Context: ctx, From: c.operator}
	if err := c.bound(artifact.ABI, at).Call(opts, &out, method, packed...); err != nil {
		return nil, fmt.Errorf("call %s.%s failed: %w", artifactName, method, err)
	}

	return out, nil
}

// Transfer sends native currency to a contract's receive function.
func (c *Client) Transfer(ctx context.Context, to common.Address, amount *big.Int) error {
	auth, err := c.transactor(ctx)
	if err != nil {
		return err
	}
	auth.Value = amount

	tx, err := c.bound(abi.ABI{}, to).Transfer(auth)
	if err != nil {
		return fmt.Errorf("failed to transfer to %s: %w", to.Hex(), err)
	}

	_, err = c.wait(ctx, tx)
	return err
}

// WaitForRPC polls the endpoint until it answers or attempts run out.
func WaitForRPC(ctx context.Context, url string, attempts int, interval time.Duration) error {
	for range attempts {
		client, err := ethclient.DialContext(ctx, url)
		if err == nil {
			_, err = client.BlockNumber(ctx)
			client.Close()
			if err == nil {
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}

	return fmt.Errorf("timed out waiting for RPC at %s", url)
}

func (c *Client) prepare(artifactName, method string, args []any) (*Artifact, []any, error) {
	artifact, err := c.artifacts.Get(artifactName)
	if err != nil {
		return nil, nil, err
	}

	m, ok := artifact.ABI.Methods[method]
	if !ok {
		return nil, nil, fmt.Errorf("artifact %s has no method %s", artifactName, method)
	}

	packed, err := coerceArgs(m.Inputs, args)
	if err != nil {
		return nil, nil, fmt.Errorf("%s.%s: %w", artifactName, method, err)
	}

	return artifact, packed, nil
}

func (c *Client) bound(contractABI abi.ABI, at common.Address) *bind.BoundContract {
	return bind.NewBoundContract(at, contractABI, c.eth, c.eth, c.eth)
}

func (c *Client) transactor(ctx context.Context) (*bind.TransactOpts, error) {
	auth, err := bind.NewKeyedTransactorWithChainID(c.key, c.chainID)
	if err != nil {
		return nil, fmt.Errorf("failed to create transactor: %w", err)
	}

	auth.Context = ctx
	auth.GasLimit = c.gasLimit

	return auth, nil
}

func (c *Client) wait(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	receipt, err := bind.WaitMined(ctx, c.eth, tx)
	if err != nil {
		return nil, fmt.Errorf("failed to wait for transaction %s: %w", tx.Hash().Hex(), err)
	}

	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, fmt.Errorf("transaction %s failed with status %d", tx.Hash().Hex(), receipt.Status)
	}

	return receipt, nil
}
