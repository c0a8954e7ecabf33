package deployment

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/peakdefi/fund-deployer/internal/chain"
	"github.com/peakdefi/fund-deployer/internal/registry"
)

type (
	// Action produces the address of a unit from its resolved arguments.
	Action interface {
		References() []string
		Artifacts() []string
		Execute(ctx context.Context, exec chain.Executor, reg *registry.Registry, args []any) (Outcome, error)
	}

	// Outcome is the handle an action produced. Created is false for handles
	// that already existed before the run.
	Outcome struct {
		Address  common.Address
		Artifact string
		Created  bool
	}

	// Contract deploys a compiled artifact.
	Contract struct {
		Artifact string
	}

	// FactoryCall asks an already registered factory unit to create the
	// component and reads its address from the event argument Field.
	FactoryCall struct {
		Factory  string
		Method   string
		Artifact string
		Field    string
	}

	// Existing registers an address that lives outside the run.
	Existing struct {
		Address  common.Address
		Artifact string
	}
)

func (c Contract) References() []string { return nil }

func (c Contract) Artifacts() []string { return []string{c.Artifact} }

func (c Contract) Execute(ctx context.Context, exec chain.Executor, _ *registry.Registry, args []any) (Outcome, error) {
	address, err := exec.Deploy(ctx, c.Artifact, args...)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Address: address, Artifact: c.Artifact, Created: true}, nil
}

func (f FactoryCall) References() []string { return []string{f.Factory} }

func (f FactoryCall) Artifacts() []string { return []string{f.Artifact} }

func (f FactoryCall) Execute(ctx context.Context, exec chain.Executor, reg *registry.Registry, args []any) (Outcome, error) {
	factory, err := reg.Lookup(f.Factory)
	if err != nil {
		return Outcome{}, err
	}

	receipt, err := exec.Transact(ctx, factory.Artifact, factory.Address, f.Method, args...)
	if err != nil {
		return Outcome{}, err
	}

	address, ok := receipt.AddressField(f.Field)
	if !ok {
		return Outcome{}, fmt.Errorf("%s.%s emitted no %q address", f.Factory, f.Method, f.Field)
	}

	return Outcome{Address: address, Artifact: f.Artifact, Created: true}, nil
}

func (e Existing) References() []string { return nil }

func (e Existing) Artifacts() []string {
	if e.Artifact == "" {
		return nil
	}
	return []string{e.Artifact}
}

func (e Existing) Execute(context.Context, chain.Executor, *registry.Registry, []any) (Outcome, error) {
	return Outcome{Address: e.Address, Artifact: e.Artifact}, nil
}
