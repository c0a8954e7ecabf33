// Package scenario turns a network configuration into the units, fixture
// and fund plan of one named run.
package scenario

import (
	"fmt"

	"github.com/peakdefi/fund-deployer/configs"
	"github.com/peakdefi/fund-deployer/internal/deployerr"
	"github.com/peakdefi/fund-deployer/internal/deployment"
	"github.com/peakdefi/fund-deployer/internal/fixture"
	"github.com/peakdefi/fund-deployer/internal/fund"
)

type (
	// ManualStep is an action the operator account cannot perform itself.
	// It is reported after the run instead of being dropped.
	ManualStep struct {
		Target string
		Method string
		Args   []deployment.Arg
		Note   string
	}

	// Scenario is a fixed, named sequence of units and fund phases. Fixture
	// and Fund are optional.
	Scenario struct {
		Kind        configs.Scenario
		Network     string
		Fixture     *fixture.Config
		Units       []deployment.Unit
		Fund        *fund.Plan
		ManualSteps []ManualStep
	}
)

// Build validates the selected network for kind and assembles the scenario.
func Build(kind configs.Scenario, cfg *configs.Config) (Scenario, error) {
	if err := cfg.Validate(kind); err != nil {
		return Scenario{}, err
	}
	name, network, err := cfg.Selected()
	if err != nil {
		return Scenario{}, err
	}

	var s Scenario
	switch kind {
	case configs.ScenarioFactory:
		s, err = Factory(network)
	case configs.ScenarioFund:
		s, err = FundOnly(network)
	case configs.ScenarioOracle:
		s, err = Oracle(network)
	case configs.ScenarioFixture:
		s, err = Fixture(network)
	case configs.ScenarioFork:
		s, err = Fork(network)
	default:
		return Scenario{}, deployerr.Newf(deployerr.ErrConfiguration, "scenario", "unknown scenario %q", kind)
	}
	if err != nil {
		return Scenario{}, err
	}

	s.Network = name
	return s, nil
}

// Known lists names registered before the units run.
func (s Scenario) Known() []string {
	if s.Fixture == nil {
		return nil
	}
	return s.Fixture.Names()
}

// Artifacts lists every compiled artifact the scenario deploys or calls.
func (s Scenario) Artifacts() []string {
	var names []string
	if s.Fixture != nil {
		names = append(names, s.Fixture.Artifacts()...)
	}
	for _, unit := range s.Units {
		names = append(names, unit.Artifacts()...)
	}
	if s.Fund != nil {
		names = append(names, s.Fund.Artifact)
	}
	return names
}

func (m ManualStep) String() string {
	return fmt.Sprintf("%s.%s%v", m.Target, m.Method, m.Args)
}
