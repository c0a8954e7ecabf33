package deployment

import (
	"context"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/peakdefi/fund-deployer/internal/chain"
	"github.com/peakdefi/fund-deployer/internal/deployerr"
	"github.com/peakdefi/fund-deployer/internal/logger"
	"github.com/peakdefi/fund-deployer/internal/registry"
)

type (
	// Reporter receives one notification per component created during the run.
	Reporter interface {
		Deployed(name string, address common.Address)
	}

	// Deployer executes units one at a time against the registry.
	Deployer struct {
		exec     chain.Executor
		registry *registry.Registry
		resolver *Resolver
		reporter Reporter
		logger   *slog.Logger
	}
)

// NewDeployer returns a Deployer that registers into reg and reports to
// reporter, which may be nil.
func NewDeployer(exec chain.Executor, reg *registry.Registry, reporter Reporter) *Deployer {
	return &Deployer{
		exec:     exec,
		registry: reg,
		resolver: NewResolver(reg, exec.Operator()),
		reporter: reporter,
		logger:   logger.Named("deployer"),
	}
}

// Resolver exposes the resolver bound to the deployer's registry.
func (d *Deployer) Resolver() *Resolver {
	return d.resolver
}

// DeployAll deploys units in the given order and stops at the first failure.
func (d *Deployer) DeployAll(ctx context.Context, units []Unit) error {
	for _, unit := range units {
		if _, err := d.Deploy(ctx, unit); err != nil {
			return err
		}
	}
	return nil
}

// Deploy resolves the unit's arguments, runs its action and registers the
// result. A failed action registers nothing. Post-deploy actions run after
// registration; when one fails the unit stays registered and the error is
// returned so the run stops for operator review.
func (d *Deployer) Deploy(ctx context.Context, unit Unit) (registry.Entry, error) {
	log := d.logger.With("unit", unit.Name)

	args, err := d.resolver.Resolve(unit.Args)
	if err != nil {
		return registry.Entry{}, err
	}

	log.Debug("executing deployment action", "args", unit.Args)
	outcome, err := unit.Action.Execute(ctx, d.exec, d.registry, args)
	if err != nil {
		return registry.Entry{}, classify(unit.Name, err)
	}

	entry := registry.Entry{Name: unit.Name, Address: outcome.Address, Artifact: outcome.Artifact}
	if err := d.registry.Register(entry); err != nil {
		return registry.Entry{}, err
	}

	if outcome.Created {
		log.With("address", outcome.Address.Hex()).Info("unit deployed")
		if d.reporter != nil {
			d.reporter.Deployed(unit.Name, outcome.Address)
		}
	} else {
		log.With("address", outcome.Address.Hex()).Info("external unit registered")
	}

	for _, post := range unit.PostDeploy {
		target := post.Target
		if target == "" {
			target = unit.Name
		}
		if err := d.Invoke(ctx, target, post.Method, post.Args); err != nil {
			return entry, err
		}
	}

	return entry, nil
}

// Invoke calls method on a registered component.
func (d *Deployer) Invoke(ctx context.Context, target, method string, args []Arg) error {
	subject := target + "." + method

	entry, err := d.registry.Lookup(target)
	if err != nil {
		return err
	}

	values, err := d.resolver.Resolve(args)
	if err != nil {
		return err
	}

	if _, err := d.exec.Transact(ctx, entry.Artifact, entry.Address, method, values...); err != nil {
		return classify(subject, err)
	}

	d.logger.With("target", target, "method", method).Info("action executed")

	return nil
}

// Transfer sends native currency from the operator to a registered component.
func (d *Deployer) Transfer(ctx context.Context, target string, amount *big.Int) error {
	entry, err := d.registry.Lookup(target)
	if err != nil {
		return err
	}

	if err := d.exec.Transfer(ctx, entry.Address, amount); err != nil {
		return classify(target+".transfer", err)
	}

	d.logger.With("target", target, "amount", amount.String()).Info("native currency sent")

	return nil
}

// classify keeps already classified errors and reports everything else as
// an execution failure.
func classify(subject string, err error) error {
	if deployerr.KindOf(err) != nil {
		return err
	}
	return deployerr.New(deployerr.ErrActionFailed, subject, err)
}
