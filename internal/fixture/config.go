package fixture

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/peakdefi/fund-deployer/internal/deployerr"
)

// Registry names and artifacts of the synthetic protocols.
const (
	TokenFactory   = "TestTokenFactory"
	Exchange       = "KyberNetwork"
	Comptroller    = "Comptroller"
	WrapperFactory = "CERC20Factory"
	PriceOracle    = "PriceOracle"

	ArtifactTokenFactory   = "TestTokenFactory"
	ArtifactToken          = "TestToken"
	ArtifactExchange       = "TestKyberNetwork"
	ArtifactComptroller    = "TestComptroller"
	ArtifactWrapperFactory = "TestCERC20Factory"
	ArtifactWrapper        = "TestCERC20"
	ArtifactNativeWrapper  = "TestCEther"
	ArtifactPriceOracle    = "TestPriceOracle"
)

// DefaultNativeSentinel is the address exchanges use for the chain's native asset.
var DefaultNativeSentinel = common.HexToAddress("0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE")

type (
	Token struct {
		Name     string
		Symbol   string
		Decimals uint8
		Price    *big.Int
	}

	Config struct {
		// Tokens are the tradable symbols. Stable and Native are appended after them.
		Tokens         []Token
		Stable         Token
		Native         Token
		NativeSentinel common.Address

		ExchangeFunding *big.Int
		MarketFunding   *big.Int
		LiquidityMint   *big.Int
		OperatorMint    *big.Int
	}
)

// TokenName is the registry name of the token with symbol.
func TokenName(symbol string) string {
	return "Token." + symbol
}

// MarketName is the registry name of the lending market for symbol.
func MarketName(symbol string) string {
	return "Market." + symbol
}

// AllTokens returns the token list in price table order: configured tokens,
// then the stable asset, then the native asset.
func (c Config) AllTokens() []Token {
	tokens := make([]Token, 0, len(c.Tokens)+2)
	tokens = append(tokens, c.Tokens...)
	return append(tokens, c.Stable, c.Native)
}

// ERC20Tokens returns every token backed by a contract: all but the native asset.
func (c Config) ERC20Tokens() []Token {
	all := c.AllTokens()
	return all[:len(all)-1]
}

// Validate reports every missing or malformed fixture setting at once.
func (c Config) Validate() error {
	var errs []error

	seen := make(map[string]struct{})
	for _, token := range c.AllTokens() {
		if token.Symbol == "" {
			errs = append(errs, fmt.Errorf("token %q has no symbol", token.Name))
			continue
		}
		if _, ok := seen[token.Symbol]; ok {
			errs = append(errs, fmt.Errorf("token symbol %s is declared twice", token.Symbol))
		}
		seen[token.Symbol] = struct{}{}
		if token.Price == nil || token.Price.Sign() <= 0 {
			errs = append(errs, fmt.Errorf("token %s needs a positive price", token.Symbol))
		}
	}

	if c.NativeSentinel == (common.Address{}) {
		errs = append(errs, errors.New("native sentinel address is required"))
	}
	for name, amount := range map[string]*big.Int{
		"exchange funding": c.ExchangeFunding,
		"market funding":   c.MarketFunding,
		"liquidity mint":   c.LiquidityMint,
		"operator mint":    c.OperatorMint,
	} {
		if amount == nil || amount.Sign() < 0 {
			errs = append(errs, fmt.Errorf("%s must be a non-negative amount", name))
		}
	}

	if len(errs) > 0 {
		return deployerr.New(deployerr.ErrConfiguration, "fixture", errors.Join(errs...))
	}
	return nil
}

// Names lists every registry name the fixture produces.
func (c Config) Names() []string {
	names := []string{TokenFactory}
	for _, token := range c.AllTokens() {
		names = append(names, TokenName(token.Symbol))
	}
	names = append(names, Exchange, Comptroller, WrapperFactory)
	for _, token := range c.AllTokens() {
		names = append(names, MarketName(token.Symbol))
	}
	return append(names, PriceOracle)
}

// Artifacts lists the compiled artifacts the fixture deploys or calls.
func (c Config) Artifacts() []string {
	return []string{
		ArtifactTokenFactory,
		ArtifactToken,
		ArtifactExchange,
		ArtifactComptroller,
		ArtifactWrapperFactory,
		ArtifactWrapper,
		ArtifactNativeWrapper,
		ArtifactPriceOracle,
	}
}
