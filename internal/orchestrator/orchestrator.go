package orchestrator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"

	"github.com/peakdefi/fund-deployer/internal/chain"
	"github.com/peakdefi/fund-deployer/internal/deployerr"
	"github.com/peakdefi/fund-deployer/internal/deployment"
	"github.com/peakdefi/fund-deployer/internal/fixture"
	"github.com/peakdefi/fund-deployer/internal/fund"
	"github.com/peakdefi/fund-deployer/internal/logger"
	"github.com/peakdefi/fund-deployer/internal/registry"
	"github.com/peakdefi/fund-deployer/internal/scenario"
)

/*
Orchestrator runs one scenario end to end:
  - Preflight: orders the units, checks the fund plan references and the
    compiled artifacts. Nothing is sent to the chain if this fails.
  - Fixture: builds the synthetic protocols when the scenario has one
  - Deployment: deploys the units in order with their post-deploy actions
  - Fund: creates the fund, runs every phase and begins operation
*/
type (
	artifactChecker interface {
		Require(names ...string) error
	}

	// PendingStep is a manual step with its arguments resolved where possible.
	PendingStep struct {
		Target  string         `json:"target" yaml:"target"`
		Address common.Address `json:"address" yaml:"address"`
		Method  string         `json:"method" yaml:"method"`
		Args    []string       `json:"args" yaml:"args"`
		Note    string         `json:"note" yaml:"note"`
	}

	// Result holds everything the run produced, including after a failure.
	Result struct {
		Scenario    scenario.Scenario
		Registry    *registry.Registry
		Environment *fixture.Environment
		Fund        *fund.Fund
		Pending     []PendingStep
	}

	Orchestrator struct {
		exec      chain.Executor
		artifacts artifactChecker
		reporter  deployment.Reporter
		logger    *slog.Logger
	}
)

// NewOrchestrator returns an Orchestrator. artifacts and reporter may be nil.
func NewOrchestrator(exec chain.Executor, artifacts artifactChecker, reporter deployment.Reporter) *Orchestrator {
	return &Orchestrator{
		exec:      exec,
		artifacts: artifacts,
		reporter:  reporter,
		logger:    logger.Named("orchestrator"),
	}
}

// Run executes s and stops at the first failure. The result is returned in
// both cases so the caller can report what was committed.
func (o *Orchestrator) Run(ctx context.Context, s scenario.Scenario) (Result, error) {
	log := o.logger.With("scenario", s.Kind, "network", s.Network)
	result := Result{Scenario: s, Registry: registry.New()}

	log.Info("Step 1: preflight checks")
	ordered, err := o.preflight(s)
	if err != nil {
		return result, fmt.Errorf("preflight failed: %w", err)
	}

	deployer := deployment.NewDeployer(o.exec, result.Registry, o.reporter)

	if s.Fixture != nil {
		log.Info("Step 2: building local fixture")
		env, err := fixture.New(deployer, result.Registry, *s.Fixture).Build(ctx)
		if err != nil {
			return result, fmt.Errorf("fixture failed: %w", err)
		}
		result.Environment = &env
	}

	log.With("units", len(ordered)).Info("Step 3: deploying units")
	if err := deployer.DeployAll(ctx, ordered); err != nil {
		return result, fmt.Errorf("deployment failed: %w", err)
	}

	if s.Fund != nil {
		log.Info("Step 4: initializing fund")
		f, err := fund.NewInitializer(o.exec, result.Registry, o.reporter).Run(ctx, *s.Fund)
		result.Fund = f
		if err != nil {
			return result, fmt.Errorf("fund initialization failed: %w", err)
		}
	}

	result.Pending = o.pending(s.ManualSteps, result.Registry, deployer.Resolver())
	for _, step := range result.Pending {
		log.With("target", step.Target, "method", step.Method, "args", step.Args).Warn("manual step required: " + step.Note)
	}

	log.With("registered", result.Registry.Len()).Info("scenario completed successfully")

	return result, nil
}

func (o *Orchestrator) preflight(s scenario.Scenario) ([]deployment.Unit, error) {
	ordered, err := deployment.Order(s.Units, s.Known())
	if err != nil {
		return nil, err
	}

	if s.Fund != nil {
		if err := s.Fund.Validate(); err != nil {
			return nil, err
		}

		available := make(map[string]struct{})
		for _, name := range s.Known() {
			available[name] = struct{}{}
		}
		for _, unit := range s.Units {
			available[unit.Name] = struct{}{}
		}
		// The fund and its proxy must not shadow a declared name.
		for _, name := range []string{s.Fund.Name, s.Fund.ProxyName} {
			if _, taken := available[name]; name != "" && taken {
				return nil, deployerr.Newf(deployerr.ErrConfiguration, name, "fund %s registers a name already declared", s.Fund.Name)
			}
		}
		for _, ref := range s.Fund.References() {
			if _, ok := available[ref]; !ok {
				return nil, deployerr.Newf(deployerr.ErrUnresolvedReference, ref, "referenced by fund %s", s.Fund.Name)
			}
		}
	}

	if o.artifacts != nil {
		if err := o.artifacts.Require(s.Artifacts()...); err != nil {
			return nil, err
		}
	}

	return ordered, nil
}

// pending resolves manual steps against the registry. Unresolvable
// arguments are kept by name so the step is still reported.
func (o *Orchestrator) pending(steps []scenario.ManualStep, reg *registry.Registry, resolver *deployment.Resolver) []PendingStep {
	pending := make([]PendingStep, 0, len(steps))
	for _, step := range steps {
		p := PendingStep{Target: step.Target, Method: step.Method, Note: step.Note}
		if addr, err := reg.Address(step.Target); err == nil {
			p.Address = addr
		}

		for _, arg := range step.Args {
			values, err := resolver.Resolve([]deployment.Arg{arg})
			if err != nil {
				p.Args = append(p.Args, arg.String())
				continue
			}
			p.Args = append(p.Args, formatValue(values[0]))
		}

		pending = append(pending, p)
	}
	return pending
}

func formatValue(value any) string {
	switch v := value.(type) {
	case common.Address:
		return v.Hex()
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}
