package fixture

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/peakdefi/fund-deployer/internal/deployerr"
)

// Environment is the synthetic protocol state handed to later units. Symbols,
// Tokens and Prices are index aligned: Prices[i] is the price of Tokens[i].
type Environment struct {
	Symbols []string
	Tokens  []common.Address
	Prices  []*big.Int
	Markets map[common.Address]common.Address
}

// Validate checks index alignment and that every token, including the native
// sentinel, has exactly one lending market of its own.
func (e Environment) Validate() error {
	var errs []error

	if len(e.Prices) != len(e.Tokens) {
		errs = append(errs, fmt.Errorf("price table has %d entries for %d tokens", len(e.Prices), len(e.Tokens)))
	}
	if len(e.Symbols) != len(e.Tokens) {
		errs = append(errs, fmt.Errorf("symbol list has %d entries for %d tokens", len(e.Symbols), len(e.Tokens)))
	}
	if len(e.Markets) != len(e.Tokens) {
		errs = append(errs, fmt.Errorf("%d lending markets for %d tokens", len(e.Markets), len(e.Tokens)))
	}

	owners := make(map[common.Address]common.Address, len(e.Markets))
	for _, token := range e.Tokens {
		market, ok := e.Markets[token]
		if !ok {
			errs = append(errs, fmt.Errorf("token %s has no lending market", token.Hex()))
			continue
		}
		if owner, taken := owners[market]; taken {
			errs = append(errs, fmt.Errorf("market %s wraps both %s and %s", market.Hex(), owner.Hex(), token.Hex()))
		}
		owners[market] = token
	}

	if len(errs) > 0 {
		return deployerr.New(deployerr.ErrConfiguration, "fixture environment", errors.Join(errs...))
	}
	return nil
}
