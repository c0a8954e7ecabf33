package fixture

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/peakdefi/fund-deployer/internal/deployment"
	"github.com/peakdefi/fund-deployer/internal/logger"
	"github.com/peakdefi/fund-deployer/internal/registry"
)

const (
	mintMethod     = "mint"
	newTokenMethod = "newToken"
)

// Fixture stands up synthetic substitutes for the exchange, the lending
// markets and the price oracle, and funds them.
type Fixture struct {
	deployer *deployment.Deployer
	registry *registry.Registry
	cfg      Config
	logger   *slog.Logger
}

// New returns a Fixture that deploys through deployer into reg.
func New(deployer *deployment.Deployer, reg *registry.Registry, cfg Config) *Fixture {
	return &Fixture{
		deployer: deployer,
		registry: reg,
		cfg:      cfg,
		logger:   logger.Named("fixture"),
	}
}

// Build runs every fixture step in order and returns the resulting environment.
func (f *Fixture) Build(ctx context.Context) (Environment, error) {
	if err := f.cfg.Validate(); err != nil {
		return Environment{}, err
	}

	steps := []struct {
		name string
		run  func(context.Context) error
	}{
		{"tokens", f.deployTokens},
		{"exchange", f.deployExchange},
		{"lending markets", f.deployMarkets},
		{"price oracle", f.deployOracle},
		{"liquidity", f.mintLiquidity},
	}

	for i, step := range steps {
		f.logger.With("step", step.name).Info(fmt.Sprintf("running fixture step %d", i+1))
		if err := step.run(ctx); err != nil {
			return Environment{}, fmt.Errorf("fixture step %q failed: %w", step.name, err)
		}
	}

	env, err := f.environment()
	if err != nil {
		return Environment{}, err
	}
	if err := env.Validate(); err != nil {
		return Environment{}, err
	}

	f.logger.With("tokens", len(env.Tokens), "markets", len(env.Markets)).Info("fixture ready")

	return env, nil
}

func (f *Fixture) deployTokens(ctx context.Context) error {
	if _, err := f.deployer.Deploy(ctx, deployment.Unit{
		Name:   TokenFactory,
		Action: deployment.Contract{Artifact: ArtifactTokenFactory},
	}); err != nil {
		return err
	}

	for _, token := range f.cfg.ERC20Tokens() {
		if _, err := f.deployer.Deploy(ctx, deployment.Unit{
			Name: TokenName(token.Symbol),
			Action: deployment.FactoryCall{
				Factory:  TokenFactory,
				Method:   newTokenMethod,
				Artifact: ArtifactToken,
				Field:    "addr",
			},
			Args: []deployment.Arg{
				deployment.Literal(token.Name),
				deployment.Literal(token.Symbol),
				deployment.Literal(new(big.Int).SetUint64(uint64(token.Decimals))),
			},
		}); err != nil {
			return err
		}
	}

	if _, err := f.deployer.Deploy(ctx, deployment.Unit{
		Name:   TokenName(f.cfg.Native.Symbol),
		Action: deployment.Existing{Address: f.cfg.NativeSentinel},
	}); err != nil {
		return err
	}

	return f.deployer.Invoke(ctx, TokenName(f.cfg.Stable.Symbol), mintMethod, []deployment.Arg{
		deployment.Operator(),
		deployment.Literal(f.cfg.OperatorMint),
	})
}

func (f *Fixture) deployExchange(ctx context.Context) error {
	if _, err := f.deployer.Deploy(ctx, deployment.Unit{
		Name:   Exchange,
		Action: deployment.Contract{Artifact: ArtifactExchange},
		Args: []deployment.Arg{
			deployment.Refs(f.tokenNames(f.cfg.AllTokens())...),
			deployment.Literal(f.prices()),
		},
	}); err != nil {
		return err
	}

	return f.deployer.Transfer(ctx, Exchange, f.cfg.ExchangeFunding)
}

func (f *Fixture) deployMarkets(ctx context.Context) error {
	nativeMarket := MarketName(f.cfg.Native.Symbol)

	for _, unit := range []deployment.Unit{
		{Name: Comptroller, Action: deployment.Contract{Artifact: ArtifactComptroller}},
		{Name: WrapperFactory, Action: deployment.Contract{Artifact: ArtifactWrapperFactory}},
		{
			Name:   nativeMarket,
			Action: deployment.Contract{Artifact: ArtifactNativeWrapper},
			Args:   []deployment.Arg{deployment.Ref(Comptroller)},
		},
	} {
		if _, err := f.deployer.Deploy(ctx, unit); err != nil {
			return err
		}
	}

	if err := f.deployer.Transfer(ctx, nativeMarket, f.cfg.MarketFunding); err != nil {
		return err
	}

	for _, token := range f.cfg.ERC20Tokens() {
		if _, err := f.deployer.Deploy(ctx, deployment.Unit{
			Name: MarketName(token.Symbol),
			Action: deployment.FactoryCall{
				Factory:  WrapperFactory,
				Method:   newTokenMethod,
				Artifact: ArtifactWrapper,
				Field:    "cToken",
			},
			Args: []deployment.Arg{
				deployment.Ref(TokenName(token.Symbol)),
				deployment.Ref(Comptroller),
			},
		}); err != nil {
			return err
		}
	}

	return nil
}

func (f *Fixture) deployOracle(ctx context.Context) error {
	markets := make([]string, 0, len(f.cfg.AllTokens()))
	for _, token := range f.cfg.AllTokens() {
		markets = append(markets, MarketName(token.Symbol))
	}

	_, err := f.deployer.Deploy(ctx, deployment.Unit{
		Name:   PriceOracle,
		Action: deployment.Contract{Artifact: ArtifactPriceOracle},
		Args: []deployment.Arg{
			deployment.Refs(markets...),
			deployment.Literal(f.prices()),
			deployment.Ref(MarketName(f.cfg.Native.Symbol)),
		},
	})
	return err
}

// mintLiquidity mints into the exchange first and then into every market,
// so both are funded before any later unit references them.
func (f *Fixture) mintLiquidity(ctx context.Context) error {
	for _, holder := range []func(Token) string{
		func(Token) string { return Exchange },
		func(token Token) string { return MarketName(token.Symbol) },
	} {
		for _, token := range f.cfg.ERC20Tokens() {
			if err := f.deployer.Invoke(ctx, TokenName(token.Symbol), mintMethod, []deployment.Arg{
				deployment.Ref(holder(token)),
				deployment.Literal(f.cfg.LiquidityMint),
			}); err != nil {
				return err
			}
		}
	}
	return nil
}

func (f *Fixture) environment() (Environment, error) {
	env := Environment{Markets: make(map[common.Address]common.Address)}

	for _, token := range f.cfg.AllTokens() {
		tokenAddr, err := f.registry.Address(TokenName(token.Symbol))
		if err != nil {
			return Environment{}, err
		}
		marketAddr, err := f.registry.Address(MarketName(token.Symbol))
		if err != nil {
			return Environment{}, err
		}

		env.Symbols = append(env.Symbols, token.Symbol)
		env.Tokens = append(env.Tokens, tokenAddr)
		env.Prices = append(env.Prices, token.Price)
		env.Markets[tokenAddr] = marketAddr
	}

	return env, nil
}

func (f *Fixture) tokenNames(tokens []Token) []string {
	names := make([]string, 0, len(tokens))
	for _, token := range tokens {
		names = append(names, TokenName(token.Symbol))
	}
	return names
}

func (f *Fixture) prices() []*big.Int {
	prices := make([]*big.Int, 0, len(f.cfg.AllTokens()))
	for _, token := range f.cfg.AllTokens() {
		prices = append(prices, token.Price)
	}
	return prices
}
