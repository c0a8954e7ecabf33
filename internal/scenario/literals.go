package scenario

import (
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/shopspring/decimal"

	"github.com/peakdefi/fund-deployer/internal/deployerr"
	"github.com/peakdefi/fund-deployer/internal/deployment"
)

const operatorKeyword = "operator"

// parser converts configuration strings into typed values and collects
// every problem so one run reports all of them.
type parser struct {
	errs []error
}

func (p *parser) fail(key, format string, args ...any) {
	p.errs = append(p.errs, fmt.Errorf("%s: %s", key, fmt.Sprintf(format, args...)))
}

func (p *parser) address(key, value string) common.Address {
	value = strings.TrimSpace(value)
	if value == "" {
		p.fail(key, "address is required")
		return common.Address{}
	}
	if !common.IsHexAddress(value) {
		p.fail(key, "%q is not an address", value)
		return common.Address{}
	}
	return common.HexToAddress(value)
}

// optionalAddress returns the zero address for an empty value.
func (p *parser) optionalAddress(key, value string) common.Address {
	if strings.TrimSpace(value) == "" {
		return common.Address{}
	}
	return p.address(key, value)
}

func (p *parser) addresses(key string, values []string) []common.Address {
	addrs := make([]common.Address, 0, len(values))
	for i, value := range values {
		addrs = append(addrs, p.address(fmt.Sprintf("%s[%d]", key, i), value))
	}
	return addrs
}

// amount parses a decimal quantity such as "1.5" or "1e12" and scales it by
// 10^decimals. The scaled value must be a non-negative integer.
func (p *parser) amount(key, value string, decimals uint8) *big.Int {
	scaled, err := parseAmount(value, decimals)
	if err != nil {
		p.fail(key, "%v", err)
		return new(big.Int)
	}
	return scaled
}

func (p *parser) integer(key, value string) *big.Int {
	return p.amount(key, value, 0)
}

func (p *parser) integers(key string, values []string) []*big.Int {
	ints := make([]*big.Int, 0, len(values))
	for i, value := range values {
		ints = append(ints, p.integer(fmt.Sprintf("%s[%d]", key, i), value))
	}
	return ints
}

func (p *parser) err(subject string) error {
	if len(p.errs) == 0 {
		return nil
	}
	return deployerr.New(deployerr.ErrConfiguration, subject, errors.Join(p.errs...))
}

func parseAmount(value string, decimals uint8) (*big.Int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, errors.New("amount is required")
	}

	d, err := decimal.NewFromString(value)
	if err != nil {
		return nil, fmt.Errorf("%q is not a number", value)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("%q is negative", value)
	}

	scaled := d.Shift(int32(decimals))
	if !scaled.IsInteger() {
		return nil, fmt.Errorf("%q has more than %d decimal places", value, decimals)
	}
	return scaled.BigInt(), nil
}

// literalArg turns a free-form constructor argument into a typed argument:
// the operator keyword, a 0x address, an integer, a bool, or else a string.
func literalArg(value string) deployment.Arg {
	trimmed := strings.TrimSpace(value)

	if strings.EqualFold(trimmed, operatorKeyword) {
		return deployment.Operator()
	}
	if (strings.HasPrefix(trimmed, "0x") || strings.HasPrefix(trimmed, "0X")) && common.IsHexAddress(trimmed) {
		return deployment.Literal(common.HexToAddress(trimmed))
	}
	if n, ok := math.ParseBig256(trimmed); ok && trimmed != "" {
		return deployment.Literal(n)
	}
	if b, err := strconv.ParseBool(trimmed); err == nil {
		return deployment.Literal(b)
	}
	return deployment.Literal(value)
}
