package scenario

import (
	"fmt"

	"github.com/peakdefi/fund-deployer/configs"
	"github.com/peakdefi/fund-deployer/internal/deployment"
	"github.com/peakdefi/fund-deployer/internal/fixture"
	"github.com/peakdefi/fund-deployer/internal/fund"
)

// Factory deploys the factory suite against the network's real protocols.
func Factory(network configs.Network) (Scenario, error) {
	var p parser

	proto, external := externalProtocols(&p, network.Addresses)
	units, manual := suite(proto, factoryOptions(&p, network))
	if err := p.err("factory scenario"); err != nil {
		return Scenario{}, err
	}

	return Scenario{
		Kind:        configs.ScenarioFactory,
		Units:       append(external, units...),
		ManualSteps: manual,
	}, nil
}

// FundOnly creates a fund under an existing factory.
func FundOnly(network configs.Network) (Scenario, error) {
	var p parser

	units := []deployment.Unit{
		{
			Name: BetokenFactory,
			Action: deployment.Existing{
				Address:  p.address("addresses.betoken-factory", network.Addresses.BetokenFactory),
				Artifact: ArtifactBetokenFactory,
			},
		},
		{
			Name:   CompoundOrderFactory,
			Action: deployment.Existing{Address: p.address("addresses.compound-order-factory", network.Addresses.CompoundOrderFactory)},
		},
	}

	plan := fundPlan(&p, network.Fund,
		deployment.Literal(p.addresses("fund.tokens", network.Fund.Tokens)),
		deployment.Literal(p.addresses("fund.ctokens", network.Fund.CTokens)),
		developer(&p, network.Addresses),
	)
	if err := p.err("fund scenario"); err != nil {
		return Scenario{}, err
	}

	return Scenario{Kind: configs.ScenarioFund, Units: units, Fund: &plan}, nil
}

// Fork deploys the factory suite and a fund under it in one run.
func Fork(network configs.Network) (Scenario, error) {
	var p parser

	proto, external := externalProtocols(&p, network.Addresses)
	units, manual := suite(proto, factoryOptions(&p, network))
	plan := fundPlan(&p, network.Fund,
		deployment.Literal(p.addresses("fund.tokens", network.Fund.Tokens)),
		deployment.Literal(p.addresses("fund.ctokens", network.Fund.CTokens)),
		developer(&p, network.Addresses),
	)
	if err := p.err("fork scenario"); err != nil {
		return Scenario{}, err
	}

	return Scenario{
		Kind:        configs.ScenarioFork,
		Units:       append(external, units...),
		Fund:        &plan,
		ManualSteps: manual,
	}, nil
}

// Oracle deploys one configured contract with free-form constructor arguments.
func Oracle(network configs.Network) (Scenario, error) {
	args := make([]deployment.Arg, 0, len(network.Oracle.Args))
	for _, value := range network.Oracle.Args {
		args = append(args, literalArg(value))
	}

	return Scenario{
		Kind: configs.ScenarioOracle,
		Units: []deployment.Unit{{
			Name:   network.Oracle.Name,
			Action: deployment.Contract{Artifact: network.Oracle.Artifact},
			Args:   args,
		}},
	}, nil
}

// Fixture builds the synthetic protocols, deploys the whole suite over them
// and brings a fund to operation.
func Fixture(network configs.Network) (Scenario, error) {
	var p parser

	cfg := fixtureConfig(&p, network.Fixture)

	wallet := deployment.Operator()
	if network.Addresses.MarketPeakWallet != "" {
		wallet = deployment.Literal(p.address("addresses.marketpeak-wallet", network.Addresses.MarketPeakWallet))
	}

	units, manual := suite(fixtureProtocols(cfg), suiteOptions{
		peak:         peakFixture,
		peakMint:     p.amount("factory.peak-mint", network.Factory.PeakMint, peakDecimals),
		rewardWallet: wallet,
		grantMinter:  network.Factory.GrantPeakMinter,
		revokeSigner: network.Factory.RevokeOperatorSigner,
	})
	units = append(units, referralToken())

	// The fund trades every configured token and the native asset. The
	// stable asset is its base currency and is not listed.
	var tokens, markets []string
	for _, token := range cfg.Tokens {
		tokens = append(tokens, fixture.TokenName(token.Symbol))
		markets = append(markets, fixture.MarketName(token.Symbol))
	}
	tokens = append(tokens, fixture.TokenName(cfg.Native.Symbol))
	markets = append(markets, fixture.MarketName(cfg.Native.Symbol))

	plan := fundPlan(&p, network.Fund, deployment.Refs(tokens...), deployment.Refs(markets...), developer(&p, network.Addresses))
	if err := p.err("fixture scenario"); err != nil {
		return Scenario{}, err
	}

	return Scenario{
		Kind:        configs.ScenarioFixture,
		Fixture:     &cfg,
		Units:       units,
		Fund:        &plan,
		ManualSteps: manual,
	}, nil
}

func factoryOptions(p *parser, network configs.Network) suiteOptions {
	opts := suiteOptions{
		peak:         peakExisting,
		rewardWallet: deployment.Literal(p.address("addresses.marketpeak-wallet", network.Addresses.MarketPeakWallet)),
		grantMinter:  network.Factory.GrantPeakMinter,
		revokeSigner: network.Factory.RevokeOperatorSigner,
	}

	if network.Factory.MockPeak {
		opts.peak = peakMock
		opts.peakMint = p.amount("factory.peak-mint", network.Factory.PeakMint, peakDecimals)
	} else {
		opts.peakAddress = p.address("addresses.peak", network.Addresses.Peak)
		opts.oracleAddress = p.address("addresses.peak-uniswap-oracle", network.Addresses.PeakUniswapOracle)
	}

	return opts
}

// developer is the configured developer account, or the operator.
func developer(p *parser, addrs configs.Addresses) deployment.Arg {
	if addrs.Developer == "" {
		return deployment.Operator()
	}
	return deployment.Literal(p.address("addresses.developer", addrs.Developer))
}

// fundPlan creates the fund through the factory and initializes it in four
// phases, each a factory call taking the fund address first.
func fundPlan(p *parser, cfg configs.Fund, tokens, ctokens, dev deployment.Arg) fund.Plan {
	self := deployment.Ref(Fund)

	return fund.Plan{
		Factory:      BetokenFactory,
		CreateMethod: methodCreateFund,
		Name:         Fund,
		Artifact:     ArtifactFund,
		Phases: []fund.Phase{
			{Index: 0, Method: "initFund1", Args: []deployment.Arg{
				self,
				deployment.Literal(cfg.ReputationToken.Name),
				deployment.Literal(cfg.ReputationToken.Symbol),
				deployment.Literal(cfg.ShareToken.Name),
				deployment.Literal(cfg.ShareToken.Symbol),
			}},
			{Index: 1, Method: "initFund2", Args: []deployment.Arg{self, tokens, ctokens}},
			{Index: 2, Method: "initFund3", Args: []deployment.Arg{
				self,
				deployment.Literal(p.integer("fund.new-manager-kairo", cfg.NewManagerKairo)),
				deployment.Literal(p.integer("fund.max-new-managers-per-cycle", cfg.MaxNewManagersPerCycle)),
				deployment.Literal(p.integer("fund.kairo-price", cfg.KairoPrice)),
				deployment.Literal(p.integer("fund.peak-manager-stake-required", cfg.PeakManagerStakeRequired)),
				deployment.Literal(cfg.Permissioned),
			}},
			{Index: 3, Method: "initFund4", Args: []deployment.Arg{
				self,
				dev,
				deployment.Literal(p.integer("fund.dev-funding-rate", cfg.DevFundingRate)),
				deployment.Literal(p.integers("fund.phase-lengths", cfg.PhaseLengths)),
				deployment.Ref(CompoundOrderFactory),
			}},
		},
		Terminal:    methodNextPhase,
		ProxyMethod: methodProxyAddr,
		ProxyName:   FundProxy,
	}
}

func fixtureConfig(p *parser, cfg configs.Fixture) fixture.Config {
	token := func(key string, t configs.FixtureToken) fixture.Token {
		name := t.Name
		if name == "" {
			name = t.Symbol
		}
		return fixture.Token{
			Name:     name,
			Symbol:   t.Symbol,
			Decimals: t.Decimals,
			Price:    p.amount(key+".price", t.Price, 18),
		}
	}

	out := fixture.Config{
		Stable:          token("fixture.stable", cfg.Stable),
		Native:          token("fixture.native", cfg.Native),
		NativeSentinel:  fixture.DefaultNativeSentinel,
		ExchangeFunding: p.amount("fixture.exchange-funding", cfg.ExchangeFunding, 18),
		MarketFunding:   p.amount("fixture.market-funding", cfg.MarketFunding, 18),
		LiquidityMint:   p.amount("fixture.liquidity-mint", cfg.LiquidityMint, 18),
		OperatorMint:    p.amount("fixture.operator-mint", cfg.OperatorMint, 18),
	}
	for i, t := range cfg.Tokens {
		out.Tokens = append(out.Tokens, token(fmt.Sprintf("fixture.tokens[%d]", i), t))
	}
	if cfg.NativeSentinel != "" {
		out.NativeSentinel = p.address("fixture.native-sentinel", cfg.NativeSentinel)
	}

	return out
}
