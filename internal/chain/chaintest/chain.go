// Package chaintest provides an in-memory chain.Executor for tests.
package chaintest

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/peakdefi/fund-deployer/internal/chain"
)

const (
	OpDeploy   = "deploy"
	OpTransact = "transact"
	OpCall     = "call"
	OpTransfer = "transfer"

	// Constructor is the method name used with FailOn to fail a deployment.
	Constructor = "constructor"
)

var ErrNoHandler = errors.New("no call handler registered")

type (
	// Op is one recorded interaction with the chain.
	Op struct {
		Kind     string
		Artifact string
		Address  common.Address
		Method   string
		Args     []any
		Value    *big.Int
	}

	// CallHandler answers a read-only call.
	CallHandler func(args []any) ([]any, error)

	factory struct {
		created string
		event   string
		field   string
	}

	key struct {
		artifact string
		method   string
	}

	// Chain records every action and derives contract addresses the way the
	// EVM does: CREATE from the operator nonce, or from the factory's own nonce
	// for contracts created by a factory.
	Chain struct {
		operator  common.Address
		nonces    map[common.Address]uint64
		code      map[common.Address]string
		balances  map[common.Address]*big.Int
		factories map[key]factory
		calls     map[key]CallHandler
		failures  map[key]error
		ops       []Op
	}
)

// New returns an empty in-memory chain signing as operator.
func New(operator common.Address) *Chain {
	return &Chain{
		operator:  operator,
		nonces:    make(map[common.Address]uint64),
		code:      make(map[common.Address]string),
		balances:  make(map[common.Address]*big.Int),
		factories: make(map[key]factory),
		calls:     make(map[key]CallHandler),
		failures:  make(map[key]error),
	}
}

// HandleFactory makes artifact.method create a contract of the created
// artifact and announce it in an event argument named field. A call to the
// same method previews the address the next transaction will create.
func (c *Chain) HandleFactory(artifact, method, created, event, field string) *Chain {
	c.factories[key{artifact, method}] = factory{created: created, event: event, field: field}
	return c
}

// HandleCall answers read-only calls to artifact.method with handler.
func (c *Chain) HandleCall(artifact, method string, handler CallHandler) *Chain {
	c.calls[key{artifact, method}] = handler
	return c
}

// FailOn makes every action on artifact.method fail with err. Use Constructor
// to fail deployments and an empty artifact with OpTransfer to fail transfers.
func (c *Chain) FailOn(artifact, method string, err error) *Chain {
	c.failures[key{artifact, method}] = err
	return c
}

func (c *Chain) Operator() common.Address {
	return c.operator
}

func (c *Chain) Deploy(ctx context.Context, artifact string, args ...any) (common.Address, error) {
	if err := c.check(ctx, artifact, Constructor); err != nil {
		return common.Address{}, err
	}

	address := c.create(c.operator, artifact)
	c.ops = append(c.ops, Op{Kind: OpDeploy, Artifact: artifact, Address: address, Args: args})

	return address, nil
}

func (c *Chain) Transact(ctx context.Context, artifact string, at common.Address, method string, args ...any) (*chain.Receipt, error) {
	if err := c.check(ctx, artifact, method); err != nil {
		return nil, err
	}
	if err := c.checkCode(at, artifact); err != nil {
		return nil, err
	}

	c.nonces[c.operator]++
	c.ops = append(c.ops, Op{Kind: OpTransact, Artifact: artifact, Address: at, Method: method, Args: args})

	receipt := &chain.Receipt{TxHash: crypto.Keccak256Hash(at.Bytes(), []byte(method), big.NewInt(int64(len(c.ops))).Bytes())}
	if f, ok := c.factories[key{artifact, method}]; ok {
		created := c.create(at, f.created)
		receipt.Events = append(receipt.Events, chain.Event{
			Name:    f.event,
			Address: at,
			Args:    map[string]any{f.field: created},
		})
	}

	return receipt, nil
}

func (c *Chain) Call(ctx context.Context, artifact string, at common.Address, method string, args ...any) ([]any, error) {
	if err := c.check(ctx, artifact, method); err != nil {
		return nil, err
	}
	if err := c.checkCode(at, artifact); err != nil {
		return nil, err
	}

	c.ops = append(c.ops, Op{Kind: OpCall, Artifact: artifact, Address: at, Method: method, Args: args})

	if _, ok := c.factories[key{artifact, method}]; ok {
		return []any{crypto.CreateAddress(at, c.nonces[at])}, nil
	}

	handler, ok := c.calls[key{artifact, method}]
	if !ok {
		return nil, fmt.Errorf("%s.%s: %w", artifact, method, ErrNoHandler)
	}
	return handler(args)
}

func (c *Chain) Transfer(ctx context.Context, to common.Address, amount *big.Int) error {
	if err := c.check(ctx, c.code[to], OpTransfer); err != nil {
		return err
	}
	if err := c.check(ctx, "", OpTransfer); err != nil {
		return err
	}

	c.nonces[c.operator]++
	balance := new(big.Int).Set(c.Balance(to))
	c.balances[to] = balance.Add(balance, amount)
	c.ops = append(c.ops, Op{Kind: OpTransfer, Artifact: c.code[to], Address: to, Value: new(big.Int).Set(amount)})

	return nil
}

// Ops returns every recorded action in order.
func (c *Chain) Ops() []Op {
	return append([]Op(nil), c.ops...)
}

// Transactions returns the recorded transactions calling method, in order.
func (c *Chain) Transactions(method string) []Op {
	var ops []Op
	for _, op := range c.ops {
		if op.Kind == OpTransact && op.Method == method {
			ops = append(ops, op)
		}
	}
	return ops
}

// Deployments returns the recorded deployments of artifact, in order.
func (c *Chain) Deployments(artifact string) []Op {
	var ops []Op
	for _, op := range c.ops {
		if op.Kind == OpDeploy && op.Artifact == artifact {
			ops = append(ops, op)
		}
	}
	return ops
}

// ArtifactAt returns the artifact deployed or created at address.
func (c *Chain) ArtifactAt(address common.Address) (string, bool) {
	artifact, ok := c.code[address]
	return artifact, ok
}

// Balance is the native balance transferred to address so far.
func (c *Chain) Balance(address common.Address) *big.Int {
	if balance, ok := c.balances[address]; ok {
		return balance
	}
	return new(big.Int)
}

func (c *Chain) create(creator common.Address, artifact string) common.Address {
	address := crypto.CreateAddress(creator, c.nonces[creator])
	c.nonces[creator]++
	c.code[address] = artifact
	return address
}

func (c *Chain) check(ctx context.Context, artifact, method string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err, ok := c.failures[key{artifact, method}]; ok {
		return err
	}
	return nil
}

// checkCode rejects actions naming the wrong artifact for a known address.
// Unknown addresses are external handles and are accepted as is.
func (c *Chain) checkCode(at common.Address, artifact string) error {
	deployed, ok := c.code[at]
	if !ok {
		return nil
	}
	if deployed != artifact {
		return fmt.Errorf("address %s holds %s, not %s", at.Hex(), deployed, artifact)
	}
	return nil
}
