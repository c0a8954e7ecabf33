package configs

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/peakdefi/fund-deployer/internal/deployerr"
)

var Values Config

type (
	Scenario string

	Config struct {
		Network  string             `mapstructure:"network"`
		Log      Log                `mapstructure:"log"`
		Output   Output             `mapstructure:"output"`
		Devnet   Devnet             `mapstructure:"devnet"`
		Networks map[string]Network `mapstructure:"networks"`
	}

	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	}

	Output struct {
		Dir string `mapstructure:"dir"`
	}

	// Devnet is the local ganache container. When BuildContext is set the
	// image is built from it instead of pulled.
	Devnet struct {
		Image         string `mapstructure:"image"`
		BuildContext  string `mapstructure:"build-context"`
		Dockerfile    string `mapstructure:"dockerfile"`
		ContainerName string `mapstructure:"container-name"`
		Port          int    `mapstructure:"port"`
		ChainID       int64  `mapstructure:"chain-id"`
		PrivateKey    string `mapstructure:"private-key"`
		Balance       string `mapstructure:"balance"`
		RPCAttempts   int    `mapstructure:"rpc-attempts"`
	}

	// Network is one deployment target. Everything a scenario needs on that
	// target lives here so switching networks never mixes settings.
	Network struct {
		RPCURL       string    `mapstructure:"rpc-url"`
		ChainID      int64     `mapstructure:"chain-id"`
		PrivateKey   string    `mapstructure:"private-key"`
		GasLimit     uint64    `mapstructure:"gas-limit"`
		ArtifactsDir string    `mapstructure:"artifacts-dir"`
		Addresses    Addresses `mapstructure:"addresses"`
		Factory      Factory   `mapstructure:"factory"`
		Fund         Fund      `mapstructure:"fund"`
		Oracle       Oracle    `mapstructure:"oracle"`
		Fixture      Fixture   `mapstructure:"fixture"`
	}

	// Addresses of components that already exist on the network.
	Addresses struct {
		Dai                  string `mapstructure:"dai"`
		Kyber                string `mapstructure:"kyber"`
		OneInch              string `mapstructure:"oneinch"`
		Peak                 string `mapstructure:"peak"`
		PeakUniswapOracle    string `mapstructure:"peak-uniswap-oracle"`
		MarketPeakWallet     string `mapstructure:"marketpeak-wallet"`
		CompoundComptroller  string `mapstructure:"compound-comptroller"`
		CompoundOracle       string `mapstructure:"compound-oracle"`
		CompoundCDai         string `mapstructure:"compound-cdai"`
		CompoundCEther       string `mapstructure:"compound-ceth"`
		BetokenFactory       string `mapstructure:"betoken-factory"`
		CompoundOrderFactory string `mapstructure:"compound-order-factory"`
		Developer            string `mapstructure:"developer"`
	}

	Factory struct {
		// MockPeak deploys a test PEAK token and a test price oracle instead
		// of using addresses.peak and addresses.peak-uniswap-oracle.
		MockPeak             bool   `mapstructure:"mock-peak"`
		PeakMint             string `mapstructure:"peak-mint"`
		GrantPeakMinter      bool   `mapstructure:"grant-peak-minter"`
		RevokeOperatorSigner bool   `mapstructure:"revoke-operator-signer"`
	}

	TokenInfo struct {
		Name   string `mapstructure:"name"`
		Symbol string `mapstructure:"symbol"`
	}

	Fund struct {
		ReputationToken          TokenInfo `mapstructure:"reputation-token"`
		ShareToken               TokenInfo `mapstructure:"share-token"`
		Tokens                   []string  `mapstructure:"tokens"`
		CTokens                  []string  `mapstructure:"ctokens"`
		NewManagerKairo          string    `mapstructure:"new-manager-kairo"`
		MaxNewManagersPerCycle   string    `mapstructure:"max-new-managers-per-cycle"`
		KairoPrice               string    `mapstructure:"kairo-price"`
		PeakManagerStakeRequired string    `mapstructure:"peak-manager-stake-required"`
		Permissioned             bool      `mapstructure:"permissioned"`
		DevFundingRate           string    `mapstructure:"dev-funding-rate"`
		PhaseLengths             []string  `mapstructure:"phase-lengths"`
	}

	Oracle struct {
		Name     string   `mapstructure:"name"`
		Artifact string   `mapstructure:"artifact"`
		Args     []string `mapstructure:"args"`
	}

	FixtureToken struct {
		Name     string `mapstructure:"name"`
		Symbol   string `mapstructure:"symbol"`
		Decimals uint8  `mapstructure:"decimals"`
		Price    string `mapstructure:"price"`
	}

	// Fixture amounts are decimal quantities of whole tokens or ether.
	Fixture struct {
		Tokens          []FixtureToken `mapstructure:"tokens"`
		Stable          FixtureToken   `mapstructure:"stable"`
		Native          FixtureToken   `mapstructure:"native"`
		NativeSentinel  string         `mapstructure:"native-sentinel"`
		ExchangeFunding string         `mapstructure:"exchange-funding"`
		MarketFunding   string         `mapstructure:"market-funding"`
		LiquidityMint   string         `mapstructure:"liquidity-mint"`
		OperatorMint    string         `mapstructure:"operator-mint"`
	}
)

const (
	ScenarioFactory Scenario = "factory"
	ScenarioFund    Scenario = "fund"
	ScenarioOracle  Scenario = "oracle"
	ScenarioFixture Scenario = "fixture"
	ScenarioFork    Scenario = "fork"
)

// Scenarios lists every scenario name the deploy command accepts.
func Scenarios() []Scenario {
	return []Scenario{ScenarioFactory, ScenarioFund, ScenarioOracle, ScenarioFixture, ScenarioFork}
}

// Selected returns the network named by the network key.
func (c *Config) Selected() (string, Network, error) {
	if c.Network == "" {
		return "", Network{}, deployerr.New(deployerr.ErrConfiguration, "network", errors.New("no network selected"))
	}
	network, ok := c.Networks[c.Network]
	if !ok {
		known := make([]string, 0, len(c.Networks))
		for name := range c.Networks {
			known = append(known, name)
		}
		sort.Strings(known)
		return "", Network{}, deployerr.Newf(deployerr.ErrConfiguration, "network", "unknown network %q (configured: %s)", c.Network, strings.Join(known, ", "))
	}
	return c.Network, network, nil
}

// Validate checks the selected network for every key the scenario reads.
func (c *Config) Validate(scenario Scenario) error {
	name, network, err := c.Selected()
	if err != nil {
		return err
	}

	var errs []error
	prefix := "networks." + name

	errs = append(errs, network.validateConnection(prefix)...)

	switch scenario {
	case ScenarioFactory:
		errs = append(errs, network.validateFactory(prefix)...)
	case ScenarioFund:
		errs = append(errs, required(prefix+".addresses", map[string]string{
			"betoken-factory":        network.Addresses.BetokenFactory,
			"compound-order-factory": network.Addresses.CompoundOrderFactory,
		})...)
		errs = append(errs, network.Fund.validate(prefix+".fund", true)...)
	case ScenarioFork:
		errs = append(errs, network.validateFactory(prefix)...)
		errs = append(errs, network.Fund.validate(prefix+".fund", true)...)
	case ScenarioOracle:
		errs = append(errs, required(prefix+".oracle", map[string]string{
			"name":     network.Oracle.Name,
			"artifact": network.Oracle.Artifact,
		})...)
	case ScenarioFixture:
		errs = append(errs, network.Fixture.validate(prefix+".fixture")...)
		errs = append(errs, network.Fund.validate(prefix+".fund", false)...)
	default:
		errs = append(errs, fmt.Errorf("unknown scenario %q", scenario))
	}

	if len(errs) > 0 {
		return deployerr.New(deployerr.ErrConfiguration, prefix, fmt.Errorf("%s configuration validation failed: %w", scenario, errors.Join(errs...)))
	}

	return nil
}

// Validate checks the devnet settings used by the devnet commands.
func (d Devnet) Validate() error {
	errs := required("devnet", map[string]string{
		"image":          d.Image,
		"container-name": d.ContainerName,
		"private-key":    d.PrivateKey,
		"balance":        d.Balance,
	})
	if d.Port <= 0 || d.Port > 65535 {
		errs = append(errs, fmt.Errorf("devnet.port %d is out of range", d.Port))
	}
	if d.ChainID <= 0 {
		errs = append(errs, errors.New("devnet.chain-id is required"))
	}
	if d.RPCAttempts <= 0 {
		errs = append(errs, errors.New("devnet.rpc-attempts must be positive"))
	}

	if len(errs) > 0 {
		return deployerr.New(deployerr.ErrConfiguration, "devnet", fmt.Errorf("devnet configuration validation failed: %w", errors.Join(errs...)))
	}
	return nil
}

func (n Network) validateConnection(prefix string) []error {
	var errs []error

	if n.RPCURL == "" {
		errs = append(errs, fmt.Errorf("%s.rpc-url is required", prefix))
	}
	if n.ChainID <= 0 {
		errs = append(errs, fmt.Errorf("%s.chain-id is required", prefix))
	}
	if n.PrivateKey == "" {
		errs = append(errs, fmt.Errorf("%s.private-key is required", prefix))
	}
	if n.ArtifactsDir == "" {
		errs = append(errs, fmt.Errorf("%s.artifacts-dir is required", prefix))
	}

	return errs
}

func (n Network) validateFactory(prefix string) []error {
	keys := map[string]string{
		"dai":                  n.Addresses.Dai,
		"kyber":                n.Addresses.Kyber,
		"marketpeak-wallet":    n.Addresses.MarketPeakWallet,
		"compound-comptroller": n.Addresses.CompoundComptroller,
		"compound-oracle":      n.Addresses.CompoundOracle,
		"compound-cdai":        n.Addresses.CompoundCDai,
		"compound-ceth":        n.Addresses.CompoundCEther,
	}
	if !n.Factory.MockPeak {
		keys["peak"] = n.Addresses.Peak
		keys["peak-uniswap-oracle"] = n.Addresses.PeakUniswapOracle
	}

	errs := required(prefix+".addresses", keys)
	if n.Factory.MockPeak && n.Factory.PeakMint == "" {
		errs = append(errs, fmt.Errorf("%s.factory.peak-mint is required with mock-peak", prefix))
	}
	return errs
}

// validate checks the fund parameters. The token lists are only required
// when they come from configuration rather than from a fixture.
func (f Fund) validate(prefix string, withTokens bool) []error {
	errs := required(prefix, map[string]string{
		"reputation-token.name":       f.ReputationToken.Name,
		"reputation-token.symbol":     f.ReputationToken.Symbol,
		"share-token.name":            f.ShareToken.Name,
		"share-token.symbol":          f.ShareToken.Symbol,
		"new-manager-kairo":           f.NewManagerKairo,
		"max-new-managers-per-cycle":  f.MaxNewManagersPerCycle,
		"kairo-price":                 f.KairoPrice,
		"peak-manager-stake-required": f.PeakManagerStakeRequired,
		"dev-funding-rate":            f.DevFundingRate,
	})

	if len(f.PhaseLengths) == 0 {
		errs = append(errs, fmt.Errorf("%s.phase-lengths is required", prefix))
	}

	if withTokens {
		if len(f.Tokens) == 0 {
			errs = append(errs, fmt.Errorf("%s.tokens is required", prefix))
		}
		if len(f.Tokens) != len(f.CTokens) {
			errs = append(errs, fmt.Errorf("%s.ctokens has %d entries for %d tokens", prefix, len(f.CTokens), len(f.Tokens)))
		}
	}

	return errs
}

func (f Fixture) validate(prefix string) []error {
	errs := required(prefix, map[string]string{
		"stable.symbol":    f.Stable.Symbol,
		"stable.price":     f.Stable.Price,
		"native.symbol":    f.Native.Symbol,
		"native.price":     f.Native.Price,
		"exchange-funding": f.ExchangeFunding,
		"market-funding":   f.MarketFunding,
		"liquidity-mint":   f.LiquidityMint,
		"operator-mint":    f.OperatorMint,
	})

	for i, token := range f.Tokens {
		if token.Symbol == "" {
			errs = append(errs, fmt.Errorf("%s.tokens[%d].symbol is required", prefix, i))
		}
		if token.Price == "" {
			errs = append(errs, fmt.Errorf("%s.tokens[%d].price is required", prefix, i))
		}
	}

	return errs
}

// required reports every empty key, sorted so the message is stable.
func required(prefix string, keys map[string]string) []error {
	var missing []string
	for key, value := range keys {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, key)
		}
	}
	sort.Strings(missing)

	errs := make([]error, 0, len(missing))
	for _, key := range missing {
		errs = append(errs, fmt.Errorf("%s.%s is required", prefix, key))
	}
	return errs
}
