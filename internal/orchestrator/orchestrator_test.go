package orchestrator

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peakdefi/fund-deployer/configs"
	"github.com/peakdefi/fund-deployer/internal/chain/chaintest"
	"github.com/peakdefi/fund-deployer/internal/deployerr"
	"github.com/peakdefi/fund-deployer/internal/deployment"
	"github.com/peakdefi/fund-deployer/internal/fixture"
	"github.com/peakdefi/fund-deployer/internal/fund"
	"github.com/peakdefi/fund-deployer/internal/scenario"
)

// =============================================================================
// Test Helpers
// =============================================================================

var (
	operator = common.HexToAddress("0x000000000000000000000000000000000000a11c")
	proxy    = common.HexToAddress("0x00000000000000000000000000000000000000b0")
)

type recorder struct {
	names []string
}

func (r *recorder) Deployed(name string, _ common.Address) {
	r.names = append(r.names, name)
}

type artifactSet struct {
	missing map[string]bool
	checked []string
}

func (a *artifactSet) Require(names ...string) error {
	a.checked = append(a.checked, names...)
	var errs []error
	for _, name := range names {
		if a.missing[name] {
			errs = append(errs, deployerr.Newf(deployerr.ErrConfiguration, name, "artifact not found"))
		}
	}
	return errors.Join(errs...)
}

func newChain() *chaintest.Chain {
	return chaintest.New(operator).
		HandleFactory("TestTokenFactory", "newToken", "TestToken", "NewToken", "addr").
		HandleFactory("TestCERC20Factory", "newToken", "TestCERC20", "NewCToken", "cToken").
		HandleFactory("MiniMeTokenFactory", "createCloneToken", "MiniMeToken", "NewCloneToken", "addr").
		HandleFactory("BetokenFactory", "createFund", "BetokenFund", "CreatedFund", "fund").
		HandleCall("BetokenFund", "proxyAddr", func([]any) ([]any, error) { return []any{proxy}, nil })
}

func fixtureScenario(t *testing.T) scenario.Scenario {
	t.Helper()

	cfg := configs.MustDefaultConfig()
	s, err := scenario.Build(configs.ScenarioFixture, &cfg)
	require.NoError(t, err)
	return s
}

func mainnetFactory(t *testing.T) scenario.Scenario {
	t.Helper()

	s, err := scenario.Factory(configs.Network{
		Addresses: configs.Addresses{
			Dai:                 "0x6B175474E89094C44Da98b954EedeAC495271d0F",
			Kyber:               "0x818E6FECD516Ecc3849DAf6845e3EC868087B755",
			Peak:                "0x630d98424eFe0Ea27fB1b3Ab7741907DFFEaAd78",
			PeakUniswapOracle:   "0x0000000000000000000000000000000000000a01",
			MarketPeakWallet:    "0x0000000000000000000000000000000000000a02",
			CompoundComptroller: "0x3d9819210A31b4961b30EF54bE2aeD79B9c9Cd3B",
			CompoundOracle:      "0x922018674c12a7F0D394ebEEf9B58F186CdE13c1",
			CompoundCDai:        "0x5d3a536E4D6DbD6114cc1Ead35777bAB948E3643",
			CompoundCEther:      "0x4Ddc2D193948926D02f9B1fE9e1daa0718270ED5",
		},
		Factory: configs.Factory{RevokeOperatorSigner: true},
	})
	require.NoError(t, err)
	return s
}

// =============================================================================
// Local fixture end to end
// =============================================================================

func TestRun_FixtureScenarioReachesOperation(t *testing.T) {
	fake := newChain()
	rec := &recorder{}
	artifacts := &artifactSet{}

	result, err := NewOrchestrator(fake, artifacts, rec).Run(context.Background(), fixtureScenario(t))
	require.NoError(t, err)

	require.NotNil(t, result.Fund)
	assert.True(t, result.Fund.Operational())
	assert.Equal(t, 3, result.Fund.CurrentPhase())

	require.NotNil(t, result.Environment)
	assert.Len(t, result.Environment.Tokens, 5)
	assert.Len(t, result.Environment.Prices, 5)

	var tokenEntries int
	for _, name := range result.Registry.Names() {
		if strings.HasPrefix(name, "Token.") {
			tokenEntries++
		}
	}
	assert.Equal(t, 5, tokenEntries)

	proxyAddr, err := result.Registry.Address(scenario.FundProxy)
	require.NoError(t, err)
	assert.Equal(t, proxy, proxyAddr)

	assert.Contains(t, rec.names, scenario.BetokenFactory)
	assert.Contains(t, rec.names, scenario.Fund)
	assert.NotContains(t, rec.names, "Token.ETH", "the native sentinel is not a deployment")
	assert.Empty(t, result.Pending)

	assert.Contains(t, artifacts.checked, "TestCEther")
	assert.Contains(t, artifacts.checked, "BetokenFund")

	// initFund2 lists the configured tokens and the native sentinel with their markets.
	initFund2 := fake.Transactions("initFund2")
	require.Len(t, initFund2, 1)
	tokens := initFund2[0].Args[1].([]common.Address)
	markets := initFund2[0].Args[2].([]common.Address)
	require.Len(t, tokens, 4)
	require.Len(t, markets, 4)
	for i, token := range tokens {
		assert.Equal(t, result.Environment.Markets[token], markets[i])
	}
}

func TestRun_FixtureRunsBeforeUnits(t *testing.T) {
	fake := newChain()

	_, err := NewOrchestrator(fake, nil, nil).Run(context.Background(), fixtureScenario(t))
	require.NoError(t, err)

	var oracleAt, firstUnitAt int
	for i, op := range fake.Ops() {
		if op.Kind == chaintest.OpDeploy && op.Artifact == "TestPriceOracle" {
			oracleAt = i
		}
		if op.Kind == chaintest.OpDeploy && op.Artifact == scenario.ArtifactFund && firstUnitAt == 0 {
			firstUnitAt = i
		}
	}
	lastLiquidityMint := 0
	for i, op := range fake.Ops() {
		if op.Kind == chaintest.OpTransact && op.Method == "mint" && op.Artifact == "TestToken" && i < firstUnitAt {
			lastLiquidityMint = i
		}
	}

	assert.Less(t, oracleAt, firstUnitAt)
	assert.Greater(t, lastLiquidityMint, oracleAt, "liquidity is minted once the oracle exists")
}

// =============================================================================
// Preflight: nothing is sent when the scenario is broken
// =============================================================================

func TestRun_UnresolvedReferenceDeploysNothing(t *testing.T) {
	fake := newChain()
	s := scenario.Scenario{Units: []deployment.Unit{
		{Name: "A", Action: deployment.Contract{Artifact: "A"}},
		{Name: "B", Action: deployment.Contract{Artifact: "B"}, Args: []deployment.Arg{deployment.Ref("C")}},
	}}

	result, err := NewOrchestrator(fake, nil, nil).Run(context.Background(), s)
	require.Error(t, err)
	assert.ErrorIs(t, err, deployerr.ErrUnresolvedReference)
	assert.Equal(t, "C", deployerr.SubjectOf(err))
	assert.Empty(t, fake.Ops())
	assert.Zero(t, result.Registry.Len())
}

func TestRun_CycleDeploysNothing(t *testing.T) {
	fake := newChain()
	s := scenario.Scenario{Units: []deployment.Unit{
		{Name: "A", Action: deployment.Contract{Artifact: "A"}, Args: []deployment.Arg{deployment.Ref("B")}},
		{Name: "B", Action: deployment.Contract{Artifact: "B"}, Args: []deployment.Arg{deployment.Ref("A")}},
	}}

	_, err := NewOrchestrator(fake, nil, nil).Run(context.Background(), s)
	assert.ErrorIs(t, err, deployerr.ErrDependencyCycle)
	assert.Empty(t, fake.Ops())
}

func TestRun_FundPlanReferenceCheckedUpFront(t *testing.T) {
	fake := newChain()
	s := fixtureScenario(t)
	plan := *s.Fund
	plan.Phases = append([]fund.Phase(nil), plan.Phases...)
	plan.Phases[3].Args = append(append([]deployment.Arg(nil), plan.Phases[3].Args...), deployment.Ref("Governance"))
	s.Fund = &plan

	_, err := NewOrchestrator(fake, nil, nil).Run(context.Background(), s)
	assert.ErrorIs(t, err, deployerr.ErrUnresolvedReference)
	assert.Equal(t, "Governance", deployerr.SubjectOf(err))
	assert.Empty(t, fake.Ops())
}

func TestRun_FundNameCollisionDeploysNothing(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*fund.Plan)
		want   string
	}{
		{name: "fund named like a unit", mutate: func(p *fund.Plan) { p.Name = scenario.BetokenFactory }, want: scenario.BetokenFactory},
		{name: "proxy named like a unit", mutate: func(p *fund.Plan) { p.ProxyName = scenario.MiniMeFactory }, want: scenario.MiniMeFactory},
		{name: "proxy named like a fixture contract", mutate: func(p *fund.Plan) { p.ProxyName = fixture.Exchange }, want: fixture.Exchange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := newChain()
			s := fixtureScenario(t)
			plan := *s.Fund
			tt.mutate(&plan)
			s.Fund = &plan

			_, err := NewOrchestrator(fake, nil, nil).Run(context.Background(), s)
			assert.ErrorIs(t, err, deployerr.ErrConfiguration)
			assert.Equal(t, tt.want, deployerr.SubjectOf(err))
			assert.Empty(t, fake.Ops())
		})
	}
}

func TestRun_MissingArtifactDeploysNothing(t *testing.T) {
	fake := newChain()
	artifacts := &artifactSet{missing: map[string]bool{"PeakReward": true}}

	_, err := NewOrchestrator(fake, artifacts, nil).Run(context.Background(), fixtureScenario(t))
	assert.ErrorIs(t, err, deployerr.ErrConfiguration)
	assert.Contains(t, err.Error(), "preflight failed")
	assert.Empty(t, fake.Ops())
}

// =============================================================================
// Failures during the run
// =============================================================================

func TestRun_PostDeployFailureStopsRun(t *testing.T) {
	fake := newChain().FailOn(scenario.ArtifactShortCERC20Order, "renounceOwnership", errors.New("execution reverted"))

	result, err := NewOrchestrator(fake, nil, nil).Run(context.Background(), mainnetFactory(t))
	require.Error(t, err)
	assert.ErrorIs(t, err, deployerr.ErrActionFailed)
	assert.Equal(t, "ShortCERC20Order.renounceOwnership", deployerr.SubjectOf(err))

	assert.True(t, result.Registry.Has(scenario.ShortCERC20Order), "the template exists and stays registered")
	assert.False(t, result.Registry.Has(scenario.ShortCEtherOrder))
	assert.False(t, result.Registry.Has(scenario.CompoundOrderFactory))
}

func TestRun_FundFailureKeepsPartialFund(t *testing.T) {
	fake := newChain().FailOn("BetokenFactory", "initFund3", errors.New("execution reverted"))

	result, err := NewOrchestrator(fake, nil, nil).Run(context.Background(), fixtureScenario(t))
	require.Error(t, err)
	assert.ErrorIs(t, err, deployerr.ErrActionFailed)
	assert.Contains(t, err.Error(), "fund initialization failed")

	require.NotNil(t, result.Fund)
	assert.Equal(t, 2, result.Fund.PhasesCompleted())
	assert.False(t, result.Fund.Operational())
	assert.False(t, result.Registry.Has(scenario.FundProxy))
}

// =============================================================================
// Factory suite on a real network
// =============================================================================

func TestRun_FactoryScenarioReportsManualMinterGrant(t *testing.T) {
	fake := newChain()
	rec := &recorder{}

	result, err := NewOrchestrator(fake, nil, rec).Run(context.Background(), mainnetFactory(t))
	require.NoError(t, err)
	assert.Nil(t, result.Fund)

	staking, err := result.Registry.Address(scenario.PeakStaking)
	require.NoError(t, err)

	require.Len(t, result.Pending, 1)
	step := result.Pending[0]
	assert.Equal(t, scenario.PeakToken, step.Target)
	assert.Equal(t, common.HexToAddress("0x630d98424eFe0Ea27fB1b3Ab7741907DFFEaAd78"), step.Address)
	assert.Equal(t, []string{staking.Hex()}, step.Args)
	assert.Empty(t, fake.Transactions("addMinter"))

	renounce := fake.Transactions("renounceSigner")
	require.Len(t, renounce, 1)
	assert.Equal(t, []any{operator}, renounce[0].Args)

	assert.NotContains(t, rec.names, scenario.Dai)
	assert.Equal(t, scenario.CompoundOrderFactory, rec.names[len(rec.names)-1])
}
