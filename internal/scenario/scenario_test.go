package scenario

import (
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peakdefi/fund-deployer/configs"
	"github.com/peakdefi/fund-deployer/internal/deployerr"
	"github.com/peakdefi/fund-deployer/internal/deployment"
	"github.com/peakdefi/fund-deployer/internal/fixture"
)

// =============================================================================
// Test Helpers
// =============================================================================

func mainnet() configs.Network {
	return configs.Network{
		RPCURL:       "http://localhost:8545",
		ChainID:      1,
		PrivateKey:   "0x01",
		ArtifactsDir: "./artifacts",
		Addresses: configs.Addresses{
			Dai:                  "0x6B175474E89094C44Da98b954EedeAC495271d0F",
			Kyber:                "0x818E6FECD516Ecc3849DAf6845e3EC868087B755",
			OneInch:              "0x11111254369792b2Ca5d084aB5eEA397cA8fa48B",
			Peak:                 "0x630d98424eFe0Ea27fB1b3Ab7741907DFFEaAd78",
			PeakUniswapOracle:    "0x0000000000000000000000000000000000000a01",
			MarketPeakWallet:     "0x0000000000000000000000000000000000000a02",
			CompoundComptroller:  "0x3d9819210A31b4961b30EF54bE2aeD79B9c9Cd3B",
			CompoundOracle:       "0x922018674c12a7F0D394ebEEf9B58F186CdE13c1",
			CompoundCDai:         "0x5d3a536E4D6DbD6114cc1Ead35777bAB948E3643",
			CompoundCEther:       "0x4Ddc2D193948926D02f9B1fE9e1daa0718270ED5",
			BetokenFactory:       "0x0000000000000000000000000000000000000b01",
			CompoundOrderFactory: "0x0000000000000000000000000000000000000b02",
		},
		Factory: configs.Factory{RevokeOperatorSigner: true},
		Fund: configs.Fund{
			ReputationToken:          configs.TokenInfo{Name: "Kairo", Symbol: "KRO"},
			ShareToken:               configs.TokenInfo{Name: "Betoken Shares", Symbol: "BTKS"},
			Tokens:                   []string{"0x0000000000000000000000000000000000000c01"},
			CTokens:                  []string{"0x0000000000000000000000000000000000000c02"},
			NewManagerKairo:          "100e18",
			MaxNewManagersPerCycle:   "25",
			KairoPrice:               "10e18",
			PeakManagerStakeRequired: "1e8",
			DevFundingRate:           "1e16",
			PhaseLengths:             []string{"259200", "2332800"},
		},
	}
}

func unitNames(units []deployment.Unit) []string {
	names := make([]string, 0, len(units))
	for _, unit := range units {
		names = append(names, unit.Name)
	}
	return names
}

func unitNamed(t *testing.T, units []deployment.Unit, name string) deployment.Unit {
	t.Helper()
	for _, unit := range units {
		if unit.Name == name {
			return unit
		}
	}
	require.Failf(t, "unit not declared", "%s", name)
	return deployment.Unit{}
}

func postMethods(unit deployment.Unit) []string {
	var methods []string
	for _, post := range unit.PostDeploy {
		target := post.Target
		if target == "" {
			target = unit.Name
		}
		methods = append(methods, target+"."+post.Method)
	}
	return methods
}

// =============================================================================
// Factory suite
// =============================================================================

func TestFactory_DeclaresSuiteOverExistingProtocols(t *testing.T) {
	s, err := Factory(mainnet())
	require.NoError(t, err)

	assert.Equal(t, []string{
		Dai, Kyber, CompoundComptroller, CompoundOracle, CompoundCDai, CompoundCEther,
		FundTemplate, Logic, Logic2, Logic3, MiniMeFactory, PeakToken, PeakOracle,
		PeakStaking, PeakReward, BetokenFactory,
		ShortCERC20Order, ShortCEtherOrder, LongCERC20Order, LongCEtherOrder, CompoundOrderFactory,
	}, unitNames(s.Units))

	ordered, err := deployment.Order(s.Units, s.Known())
	require.NoError(t, err)
	assert.Len(t, ordered, len(s.Units))

	factory := unitNamed(t, s.Units, BetokenFactory)
	assert.Equal(t, deployment.Literal(common.HexToAddress("0x11111254369792b2Ca5d084aB5eEA397cA8fa48B")), factory.Args[2])
	assert.Equal(t, []string{"PeakReward.addSigner", "PeakReward.renounceSigner"}, postMethods(factory))

	reward := unitNamed(t, s.Units, PeakReward)
	assert.Equal(t, []string{"PeakStaking.init", "PeakReward.addSigner"}, postMethods(reward))

	for _, name := range []string{ShortCERC20Order, ShortCEtherOrder, LongCERC20Order, LongCEtherOrder} {
		assert.Equal(t, []string{name + ".renounceOwnership"}, postMethods(unitNamed(t, s.Units, name)))
	}

	peak := unitNamed(t, s.Units, PeakToken)
	assert.Equal(t, deployment.Existing{Address: common.HexToAddress("0x630d98424eFe0Ea27fB1b3Ab7741907DFFEaAd78"), Artifact: ArtifactPeakToken}, peak.Action)
}

func TestFactory_ExistingOracleNeedsNoArtifact(t *testing.T) {
	s, err := Factory(mainnet())
	require.NoError(t, err)

	oracle := unitNamed(t, s.Units, PeakOracle)
	assert.Equal(t, deployment.Existing{Address: common.HexToAddress("0x0000000000000000000000000000000000000a01")}, oracle.Action)
	assert.NotContains(t, s.Artifacts(), "UniswapOracle")
	assert.NotContains(t, s.Artifacts(), ArtifactTestUniswapOracle)
}

func TestFactory_MinterGrantWithheldBecomesManualStep(t *testing.T) {
	s, err := Factory(mainnet())
	require.NoError(t, err)

	assert.Empty(t, unitNamed(t, s.Units, PeakStaking).PostDeploy)
	require.Len(t, s.ManualSteps, 1)
	assert.Equal(t, PeakToken, s.ManualSteps[0].Target)
	assert.Equal(t, "addMinter", s.ManualSteps[0].Method)
	assert.Equal(t, "PeakToken.addMinter[ref(PeakStaking)]", s.ManualSteps[0].String())

	network := mainnet()
	network.Factory.GrantPeakMinter = true
	network.Factory.RevokeOperatorSigner = false
	s, err = Factory(network)
	require.NoError(t, err)
	assert.Empty(t, s.ManualSteps)
	assert.Equal(t, []string{"PeakToken.addMinter"}, postMethods(unitNamed(t, s.Units, PeakStaking)))
	assert.Equal(t, []string{"PeakReward.addSigner"}, postMethods(unitNamed(t, s.Units, BetokenFactory)))
}

func TestFactory_MockPeak(t *testing.T) {
	network := mainnet()
	network.Factory.MockPeak = true
	network.Factory.PeakMint = "1000000000"
	network.Addresses.Peak = ""
	network.Addresses.PeakUniswapOracle = ""

	s, err := Factory(network)
	require.NoError(t, err)

	peak := unitNamed(t, s.Units, PeakToken)
	assert.Equal(t, deployment.Contract{Artifact: ArtifactTestToken}, peak.Action)
	require.Len(t, peak.PostDeploy, 1)
	assert.Equal(t, []deployment.Arg{deployment.Operator(), deployment.Literal(new(big.Int).Mul(big.NewInt(1e9), big.NewInt(1e8)))}, peak.PostDeploy[0].Args)

	assert.Equal(t, deployment.Contract{Artifact: ArtifactTestUniswapOracle}, unitNamed(t, s.Units, PeakOracle).Action)
	assert.Contains(t, s.Artifacts(), ArtifactTestToken)
}

func TestFactory_ReportsEveryBadValue(t *testing.T) {
	network := mainnet()
	network.Addresses.Kyber = "kyber"
	network.Addresses.MarketPeakWallet = "0x123"

	_, err := Factory(network)
	require.Error(t, err)
	assert.ErrorIs(t, err, deployerr.ErrConfiguration)
	assert.Contains(t, err.Error(), `addresses.kyber: "kyber" is not an address`)
	assert.Contains(t, err.Error(), `addresses.marketpeak-wallet: "0x123" is not an address`)
}

// =============================================================================
// Fund scenarios
// =============================================================================

func TestFundOnly(t *testing.T) {
	s, err := FundOnly(mainnet())
	require.NoError(t, err)
	require.NotNil(t, s.Fund)
	require.NoError(t, s.Fund.Validate())

	assert.Equal(t, []string{BetokenFactory, CompoundOrderFactory}, unitNames(s.Units))
	assert.ElementsMatch(t, []string{BetokenFactory, CompoundOrderFactory}, s.Fund.References())

	phases := s.Fund.Phases
	require.Len(t, phases, 4)
	assert.Equal(t, []string{"initFund1", "initFund2", "initFund3", "initFund4"},
		[]string{phases[0].Method, phases[1].Method, phases[2].Method, phases[3].Method})

	kairo, _ := new(big.Int).SetString("100000000000000000000", 10)
	assert.Equal(t, deployment.Literal(kairo), phases[2].Args[1])
	assert.Equal(t, deployment.Literal([]*big.Int{big.NewInt(259200), big.NewInt(2332800)}), phases[3].Args[3])
	assert.Equal(t, deployment.Operator(), phases[3].Args[1], "developer defaults to the operator")
	assert.Equal(t, deployment.Literal([]common.Address{common.HexToAddress("0x0c01")}), phases[1].Args[1])

	assert.Equal(t, "nextPhase", s.Fund.Terminal)
	assert.Equal(t, FundProxy, s.Fund.ProxyName)
}

func TestFork_FundUsesFactoryFromSameRun(t *testing.T) {
	s, err := Fork(mainnet())
	require.NoError(t, err)

	known := make(map[string]bool)
	for _, name := range unitNames(s.Units) {
		known[name] = true
	}
	for _, ref := range s.Fund.References() {
		assert.True(t, known[ref], "fund plan needs %s", ref)
	}
}

// =============================================================================
// Local fixture
// =============================================================================

func TestFixture_FromDefaults(t *testing.T) {
	cfg := configs.MustDefaultConfig()

	s, err := Fixture(cfg.Networks["ganache"])
	require.NoError(t, err)
	require.NotNil(t, s.Fixture)
	require.NoError(t, s.Fixture.Validate())

	assert.Len(t, s.Fixture.AllTokens(), 5)
	assert.Equal(t, new(big.Int).Mul(big.NewInt(10), big.NewInt(1e18)), s.Fixture.Tokens[0].Price)

	ordered, err := deployment.Order(s.Units, s.Known())
	require.NoError(t, err)
	assert.Len(t, ordered, len(s.Units))

	available := make(map[string]bool)
	for _, name := range append(s.Known(), unitNames(s.Units)...) {
		available[name] = true
	}
	for _, ref := range s.Fund.References() {
		assert.True(t, available[ref], "fund plan needs %s", ref)
	}

	tokens := s.Fund.Phases[1].Args[1]
	assert.Equal(t, []string{"Token.KNC", "Token.OMG", "Token.BAT", "Token.ETH"}, tokens.Names)
	markets := s.Fund.Phases[1].Args[2]
	assert.Equal(t, []string{"Market.KNC", "Market.OMG", "Market.BAT", "Market.ETH"}, markets.Names)

	peak := unitNamed(t, s.Units, PeakToken)
	assert.Equal(t, fixture.TokenFactory, peak.Action.(deployment.FactoryCall).Factory)
	assert.Equal(t, deployment.Operator(), unitNamed(t, s.Units, PeakReward).Args[0])
	assert.Contains(t, unitNames(s.Units), PeakReferralToken)

	order := unitNamed(t, s.Units, CompoundOrderFactory)
	assert.Equal(t, deployment.Ref(fixture.PriceOracle), order.Args[7])
	assert.Equal(t, deployment.Ref("Market.DAI"), order.Args[8])
	assert.Equal(t, deployment.Ref("Market.ETH"), order.Args[9])
}

func TestBuild_ValidatesSelectedNetwork(t *testing.T) {
	cfg := configs.MustDefaultConfig()
	cfg.Network = "mainnet"

	_, err := Build(configs.ScenarioFund, &cfg)
	assert.ErrorIs(t, err, deployerr.ErrConfiguration)

	cfg.Network = "ganache"
	s, err := Build(configs.ScenarioOracle, &cfg)
	require.NoError(t, err)
	assert.Equal(t, "ganache", s.Network)
	assert.Equal(t, []string{"UniswapOracle"}, unitNames(s.Units))
	assert.Equal(t, []string{ArtifactTestUniswapOracle}, s.Artifacts())
}

// =============================================================================
// Literals
// =============================================================================

func TestParseAmount(t *testing.T) {
	cases := []struct {
		value    string
		decimals uint8
		want     string
		err      string
	}{
		{value: "1e12", decimals: 18, want: "1000000000000000000000000000000"},
		{value: "1.5", decimals: 8, want: "150000000"},
		{value: "259200", decimals: 0, want: "259200"},
		{value: "1.5", decimals: 0, err: "more than 0 decimal places"},
		{value: "-1", decimals: 0, err: "is negative"},
		{value: "ten", decimals: 0, err: "is not a number"},
		{value: "", decimals: 0, err: "amount is required"},
	}

	for _, tc := range cases {
		got, err := parseAmount(tc.value, tc.decimals)
		if tc.err != "" {
			assert.ErrorContains(t, err, tc.err, tc.value)
			continue
		}
		require.NoError(t, err, tc.value)
		assert.Equal(t, tc.want, got.String(), tc.value)
	}
}

func TestLiteralArg(t *testing.T) {
	addr := "0x0000000000000000000000000000000000000a01"

	assert.Equal(t, deployment.Operator(), literalArg("operator"))
	assert.Equal(t, deployment.Literal(common.HexToAddress(addr)), literalArg(addr))
	assert.Equal(t, deployment.Literal(big.NewInt(3600)), literalArg("3600"))
	assert.Equal(t, deployment.Literal(big.NewInt(255)), literalArg("0xff"))
	assert.Equal(t, deployment.Literal(true), literalArg("true"))
	assert.Equal(t, deployment.Literal("PEAK/DAI"), literalArg("PEAK/DAI"))

	// Forty decimal digits look like an unprefixed address but are an amount.
	forty := strings.Repeat("1", 40)
	want, ok := new(big.Int).SetString(forty, 10)
	require.True(t, ok)
	assert.Equal(t, deployment.Literal(want), literalArg(forty))
}

func TestOracle_TypedArguments(t *testing.T) {
	network := mainnet()
	network.Oracle = configs.Oracle{
		Name:     "UniswapOracle",
		Artifact: "UniswapOracle",
		Args:     []string{"0x0000000000000000000000000000000000000a01", "1800", "operator"},
	}

	s, err := Oracle(network)
	require.NoError(t, err)
	require.Len(t, s.Units, 1)

	unit := s.Units[0]
	assert.Equal(t, deployment.Contract{Artifact: "UniswapOracle"}, unit.Action)
	assert.Equal(t, []deployment.Arg{
		deployment.Literal(common.HexToAddress("0x0a01")),
		deployment.Literal(big.NewInt(1800)),
		deployment.Operator(),
	}, unit.Args)
}
