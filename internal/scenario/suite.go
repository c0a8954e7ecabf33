package scenario

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/peakdefi/fund-deployer/configs"
	"github.com/peakdefi/fund-deployer/internal/deployment"
	"github.com/peakdefi/fund-deployer/internal/fixture"
)

const peakDecimals = 8

type (
	// protocols names the registry entries of the external protocols the
	// suite is wired to, real or synthetic.
	protocols struct {
		stable       string
		exchange     string
		comptroller  string
		priceOracle  string
		stableMarket string
		nativeMarket string
		aggregator   common.Address
	}

	peakSource int

	suiteOptions struct {
		peak          peakSource
		peakAddress   common.Address
		oracleAddress common.Address
		peakMint      *big.Int
		rewardWallet  deployment.Arg
		grantMinter   bool
		revokeSigner  bool
	}
)

const (
	// peakExisting uses a PEAK token and oracle already on the network.
	peakExisting peakSource = iota
	// peakMock deploys a standalone test token and test oracle.
	peakMock
	// peakFixture creates PEAK through the fixture token factory.
	peakFixture
)

// externalProtocols registers the production protocol addresses as
// existing units.
func externalProtocols(p *parser, addrs configs.Addresses) (protocols, []deployment.Unit) {
	existing := func(name, key, value string) deployment.Unit {
		return deployment.Unit{Name: name, Action: deployment.Existing{Address: p.address("addresses."+key, value)}}
	}

	units := []deployment.Unit{
		existing(Dai, "dai", addrs.Dai),
		existing(Kyber, "kyber", addrs.Kyber),
		existing(CompoundComptroller, "compound-comptroller", addrs.CompoundComptroller),
		existing(CompoundOracle, "compound-oracle", addrs.CompoundOracle),
		existing(CompoundCDai, "compound-cdai", addrs.CompoundCDai),
		existing(CompoundCEther, "compound-ceth", addrs.CompoundCEther),
	}

	return protocols{
		stable:       Dai,
		exchange:     Kyber,
		comptroller:  CompoundComptroller,
		priceOracle:  CompoundOracle,
		stableMarket: CompoundCDai,
		nativeMarket: CompoundCEther,
		aggregator:   p.optionalAddress("addresses.oneinch", addrs.OneInch),
	}, units
}

func fixtureProtocols(cfg fixture.Config) protocols {
	return protocols{
		stable:       fixture.TokenName(cfg.Stable.Symbol),
		exchange:     fixture.Exchange,
		comptroller:  fixture.Comptroller,
		priceOracle:  fixture.PriceOracle,
		stableMarket: fixture.MarketName(cfg.Stable.Symbol),
		nativeMarket: fixture.MarketName(cfg.Native.Symbol),
	}
}

// suite declares the fund factory and everything it is built from: the fund
// template and logic, the PEAK staking and reward contracts, and the
// Compound order templates with their factory.
func suite(proto protocols, opts suiteOptions) ([]deployment.Unit, []ManualStep) {
	units := []deployment.Unit{
		{Name: FundTemplate, Action: deployment.Contract{Artifact: ArtifactFund}},
		{Name: Logic, Action: deployment.Contract{Artifact: ArtifactLogic}},
		{Name: Logic2, Action: deployment.Contract{Artifact: ArtifactLogic2}},
		{Name: Logic3, Action: deployment.Contract{Artifact: ArtifactLogic3}},
		{Name: MiniMeFactory, Action: deployment.Contract{Artifact: ArtifactMiniMeFactory}},
	}
	units = append(units, peakUnits(opts)...)

	var manual []ManualStep
	staking := deployment.Unit{
		Name:   PeakStaking,
		Action: deployment.Contract{Artifact: ArtifactPeakStaking},
		Args:   []deployment.Arg{deployment.Ref(PeakToken)},
	}
	grant := deployment.PostAction{Target: PeakToken, Method: methodAddMinter, Args: []deployment.Arg{deployment.Ref(PeakStaking)}}
	if opts.grantMinter {
		staking.PostDeploy = append(staking.PostDeploy, grant)
	} else {
		manual = append(manual, ManualStep{
			Target: grant.Target,
			Method: grant.Method,
			Args:   grant.Args,
			Note:   "grant the PEAK minter role to PeakStaking from an account that holds it",
		})
	}

	rewardSigners := []deployment.PostAction{
		{Target: PeakStaking, Method: methodInit, Args: []deployment.Arg{deployment.Ref(PeakReward)}},
		{Method: methodAddSigner, Args: []deployment.Arg{deployment.Ref(PeakStaking)}},
	}

	factoryPost := []deployment.PostAction{
		{Target: PeakReward, Method: methodAddSigner, Args: []deployment.Arg{deployment.Ref(BetokenFactory)}},
	}
	if opts.revokeSigner {
		factoryPost = append(factoryPost, deployment.PostAction{
			Target: PeakReward,
			Method: methodRenounceSigner,
			Args:   []deployment.Arg{deployment.Operator()},
		})
	}

	units = append(units,
		staking,
		deployment.Unit{
			Name:   PeakReward,
			Action: deployment.Contract{Artifact: ArtifactPeakReward},
			Args: []deployment.Arg{
				opts.rewardWallet,
				deployment.Ref(PeakStaking),
				deployment.Ref(PeakToken),
				deployment.Ref(proto.stable),
				deployment.Ref(PeakOracle),
			},
			PostDeploy: rewardSigners,
		},
		deployment.Unit{
			Name:   BetokenFactory,
			Action: deployment.Contract{Artifact: ArtifactBetokenFactory},
			Args: []deployment.Arg{
				deployment.Ref(proto.stable),
				deployment.Ref(proto.exchange),
				deployment.Literal(proto.aggregator),
				deployment.Ref(FundTemplate),
				deployment.Ref(Logic),
				deployment.Ref(Logic2),
				deployment.Ref(Logic3),
				deployment.Ref(PeakReward),
				deployment.Ref(PeakStaking),
				deployment.Ref(MiniMeFactory),
			},
			PostDeploy: factoryPost,
		},
	)

	templates := []struct{ name, artifact string }{
		{ShortCERC20Order, ArtifactShortCERC20Order},
		{ShortCEtherOrder, ArtifactShortCEtherOrder},
		{LongCERC20Order, ArtifactLongCERC20Order},
		{LongCEtherOrder, ArtifactLongCEtherOrder},
	}
	for _, template := range templates {
		units = append(units, deployment.Unit{
			Name:       template.name,
			Action:     deployment.Contract{Artifact: template.artifact},
			PostDeploy: []deployment.PostAction{{Method: methodRenounceOwner}},
		})
	}

	units = append(units, deployment.Unit{
		Name:   CompoundOrderFactory,
		Action: deployment.Contract{Artifact: ArtifactCompoundOrderFactory},
		Args: []deployment.Arg{
			deployment.Ref(ShortCERC20Order),
			deployment.Ref(ShortCEtherOrder),
			deployment.Ref(LongCERC20Order),
			deployment.Ref(LongCEtherOrder),
			deployment.Ref(proto.stable),
			deployment.Ref(proto.exchange),
			deployment.Ref(proto.comptroller),
			deployment.Ref(proto.priceOracle),
			deployment.Ref(proto.stableMarket),
			deployment.Ref(proto.nativeMarket),
		},
	})

	return units, manual
}

func peakUnits(opts suiteOptions) []deployment.Unit {
	mint := []deployment.PostAction{{
		Method: methodMint,
		Args:   []deployment.Arg{deployment.Operator(), deployment.Literal(opts.peakMint)},
	}}

	switch opts.peak {
	case peakMock:
		return []deployment.Unit{
			{
				Name:   PeakToken,
				Action: deployment.Contract{Artifact: ArtifactTestToken},
				Args: []deployment.Arg{
					deployment.Literal("Market Peak (test)"),
					deployment.Literal("PEAK-test"),
					deployment.Literal(big.NewInt(peakDecimals)),
				},
				PostDeploy: mint,
			},
			{Name: PeakOracle, Action: deployment.Contract{Artifact: ArtifactTestUniswapOracle}},
		}
	case peakFixture:
		return []deployment.Unit{
			{Name: PeakOracle, Action: deployment.Contract{Artifact: ArtifactTestUniswapOracle}},
			{
				Name: PeakToken,
				Action: deployment.FactoryCall{
					Factory:  fixture.TokenFactory,
					Method:   methodNewToken,
					Artifact: ArtifactTestToken,
					Field:    "addr",
				},
				Args: []deployment.Arg{
					deployment.Literal("MarketPeak"),
					deployment.Literal("PEAK"),
					deployment.Literal(big.NewInt(peakDecimals)),
				},
				PostDeploy: mint,
			},
		}
	default:
		return []deployment.Unit{
			{Name: PeakToken, Action: deployment.Existing{Address: opts.peakAddress, Artifact: ArtifactPeakToken}},
			{Name: PeakOracle, Action: deployment.Existing{Address: opts.oracleAddress}},
		}
	}
}

// referralToken is the MiniMe clone the local environment uses for referrals.
func referralToken() deployment.Unit {
	return deployment.Unit{
		Name: PeakReferralToken,
		Action: deployment.FactoryCall{
			Factory:  MiniMeFactory,
			Method:   methodCreateCloneToken,
			Artifact: ArtifactMiniMeToken,
			Field:    "addr",
		},
		Args: []deployment.Arg{
			deployment.Literal(common.Address{}),
			deployment.Literal(new(big.Int)),
			deployment.Literal("Peak Referral Token"),
			deployment.Literal(big.NewInt(18)),
			deployment.Literal("PRT"),
			deployment.Literal(true),
		},
	}
}
