package fund

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"

	"github.com/ethereum/go-ethereum/common"

	"github.com/peakdefi/fund-deployer/internal/chain"
	"github.com/peakdefi/fund-deployer/internal/deployerr"
	"github.com/peakdefi/fund-deployer/internal/deployment"
	"github.com/peakdefi/fund-deployer/internal/logger"
	"github.com/peakdefi/fund-deployer/internal/registry"
)

// Initializer drives funds through their initialization phases.
type Initializer struct {
	exec     chain.Executor
	registry *registry.Registry
	resolver *deployment.Resolver
	reporter deployment.Reporter
	logger   *slog.Logger
}

// NewInitializer returns an Initializer that resolves references against reg.
func NewInitializer(exec chain.Executor, reg *registry.Registry, reporter deployment.Reporter) *Initializer {
	return &Initializer{
		exec:     exec,
		registry: reg,
		resolver: deployment.NewResolver(reg, exec.Operator()),
		reporter: reporter,
		logger:   logger.Named("fund_initializer"),
	}
}

// Run creates the fund, advances it through every phase and begins operation.
// On failure the returned fund, if any, stays at its last completed phase.
func (i *Initializer) Run(ctx context.Context, plan Plan) (*Fund, error) {
	if err := plan.Validate(); err != nil {
		return nil, err
	}

	fund, err := i.Create(ctx, plan)
	if err != nil {
		return nil, err
	}

	for _, phase := range plan.Phases {
		if err := i.Advance(ctx, fund, phase); err != nil {
			return fund, err
		}
	}

	if err := i.BeginOperation(ctx, fund); err != nil {
		return fund, err
	}

	if plan.ProxyMethod != "" {
		if err := i.registerProxy(ctx, fund); err != nil {
			return fund, err
		}
	}

	return fund, nil
}

// Create previews the fund address with a call, commits the creation and
// registers the fund under plan.Name.
func (i *Initializer) Create(ctx context.Context, plan Plan) (*Fund, error) {
	factory, err := i.registry.Lookup(plan.Factory)
	if err != nil {
		return nil, err
	}
	subject := plan.Factory + "." + plan.CreateMethod

	out, err := i.exec.Call(ctx, factory.Artifact, factory.Address, plan.CreateMethod)
	if err != nil {
		return nil, deployerr.New(deployerr.ErrActionFailed, subject, fmt.Errorf("preview failed: %w", err))
	}
	address, err := firstAddress(out)
	if err != nil {
		return nil, deployerr.New(deployerr.ErrActionFailed, subject, fmt.Errorf("preview failed: %w", err))
	}

	if _, err := i.exec.Transact(ctx, factory.Artifact, factory.Address, plan.CreateMethod); err != nil {
		return nil, deployerr.New(deployerr.ErrActionFailed, subject, err)
	}

	if err := i.registry.Register(registry.Entry{Name: plan.Name, Address: address, Artifact: plan.Artifact}); err != nil {
		return nil, err
	}
	i.report(plan.Name, address)

	i.logger.With("fund", plan.Name, "address", address.Hex()).Info("fund created")

	return &Fund{Name: plan.Name, Address: address, plan: plan}, nil
}

// Advance runs phase on fund. The phase must be the next one: its index has
// to equal the number of completed phases, and its target, method and
// arguments must match the plan's phase at that index. Anything else fails
// with PhaseOutOfOrder and leaves the fund untouched.
func (i *Initializer) Advance(ctx context.Context, fund *Fund, phase Phase) error {
	subject := fmt.Sprintf("%s phase %d", fund.Name, phase.Index)

	if fund.operational {
		return deployerr.New(deployerr.ErrPhaseOutOfOrder, subject, errors.New("fund is already operational"))
	}
	if phase.Index != fund.completed {
		return deployerr.Newf(deployerr.ErrPhaseOutOfOrder, subject, "fund has completed %d phases, next admissible phase is %d", fund.completed, fund.completed)
	}
	if phase.Index >= len(fund.plan.Phases) {
		return deployerr.Newf(deployerr.ErrPhaseOutOfOrder, subject, "fund declares only %d phases", len(fund.plan.Phases))
	}
	declared := fund.plan.Phases[phase.Index]
	if phase.Method != declared.Method || fund.plan.target(phase) != fund.plan.target(declared) || !reflect.DeepEqual(phase.Args, declared.Args) {
		return deployerr.Newf(deployerr.ErrPhaseOutOfOrder, subject, "phase %d is declared as %s.%s", declared.Index, fund.plan.target(declared), declared.Method)
	}

	target, err := i.registry.Lookup(fund.plan.target(phase))
	if err != nil {
		return err
	}

	args, err := i.resolver.Resolve(phase.Args)
	if err != nil {
		return err
	}

	if _, err := i.exec.Transact(ctx, target.Artifact, target.Address, phase.Method, args...); err != nil {
		return deployerr.New(deployerr.ErrActionFailed, subject, fmt.Errorf("%s.%s: %w", target.Name, phase.Method, err))
	}

	fund.completed++
	i.logger.With("fund", fund.Name, "phase", phase.Index, "method", phase.Method).Info("phase completed")

	return nil
}

// BeginOperation runs the terminal action exactly once, after every declared phase.
func (i *Initializer) BeginOperation(ctx context.Context, fund *Fund) error {
	subject := fund.Name + "." + fund.plan.Terminal

	if fund.operational {
		return deployerr.New(deployerr.ErrPhaseOutOfOrder, subject, errors.New("fund is already operational"))
	}
	if fund.completed < len(fund.plan.Phases) {
		return deployerr.Newf(deployerr.ErrPhaseOutOfOrder, subject, "only %d of %d phases completed", fund.completed, len(fund.plan.Phases))
	}

	if _, err := i.exec.Transact(ctx, fund.plan.Artifact, fund.Address, fund.plan.Terminal); err != nil {
		return deployerr.New(deployerr.ErrActionFailed, subject, err)
	}

	fund.operational = true
	i.logger.With("fund", fund.Name).Info("fund is operational")

	return nil
}

func (i *Initializer) registerProxy(ctx context.Context, fund *Fund) error {
	plan := fund.plan
	subject := fund.Name + "." + plan.ProxyMethod

	out, err := i.exec.Call(ctx, plan.Artifact, fund.Address, plan.ProxyMethod)
	if err != nil {
		return deployerr.New(deployerr.ErrActionFailed, subject, err)
	}
	address, err := firstAddress(out)
	if err != nil {
		return deployerr.New(deployerr.ErrActionFailed, subject, err)
	}

	if err := i.registry.Register(registry.Entry{Name: plan.ProxyName, Address: address}); err != nil {
		return err
	}
	i.report(plan.ProxyName, address)

	return nil
}

func (i *Initializer) report(name string, address common.Address) {
	if i.reporter != nil {
		i.reporter.Deployed(name, address)
	}
}

func firstAddress(out []any) (common.Address, error) {
	if len(out) == 0 {
		return common.Address{}, errors.New("call returned no values")
	}
	address, ok := out[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("call returned %T, want address", out[0])
	}
	if address == (common.Address{}) {
		return common.Address{}, errors.New("call returned the zero address")
	}
	return address, nil
}
