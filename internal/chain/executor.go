package chain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

type (
	// Executor submits actions on behalf of the operator account and blocks
	// until each one is confirmed. Implementations allow one outstanding action
	// at a time.
	Executor interface {
		Operator() common.Address
		Deploy(ctx context.Context, artifact string, args ...any) (common.Address, error)
		Transact(ctx context.Context, artifact string, at common.Address, method string, args ...any) (*Receipt, error)
		Call(ctx context.Context, artifact string, at common.Address, method string, args ...any) ([]any, error)
		Transfer(ctx context.Context, to common.Address, amount *big.Int) error
	}

	// Event is a decoded log emitted while executing a transaction.
	Event struct {
		Name    string
		Address common.Address
		Args    map[string]any
	}

	// Receipt is the confirmed outcome of a transaction.
	Receipt struct {
		TxHash common.Hash
		Events []Event
	}
)

// AddressField returns the first address-typed event argument named field.
// Factories announce the contracts they create this way.
func (r *Receipt) AddressField(field string) (common.Address, bool) {
	if r == nil {
		return common.Address{}, false
	}
	for _, event := range r.Events {
		if addr, ok := event.Args[field].(common.Address); ok {
			return addr, true
		}
	}
	return common.Address{}, false
}
