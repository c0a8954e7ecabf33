package deployment

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/peakdefi/fund-deployer/internal/registry"
)

// ArgKind tells how an argument is resolved at execution time.
type ArgKind int

const (
	ArgLiteral ArgKind = iota
	ArgRef
	ArgRefList
	ArgOperator
)

// Arg is one constructor or method argument: a literal configuration value,
// the address of another unit, a list of unit addresses, or the operator account.
type Arg struct {
	Kind  ArgKind
	Value any
	Names []string
}

// Literal passes value to the contract as is.
func Literal(value any) Arg {
	return Arg{Kind: ArgLiteral, Value: value}
}

// Ref resolves to the address registered under name.
func Ref(name string) Arg {
	return Arg{Kind: ArgRef, Names: []string{name}}
}

// Refs resolves to the addresses of names, in order.
func Refs(names ...string) Arg {
	return Arg{Kind: ArgRefList, Names: names}
}

// Operator resolves to the account signing the run.
func Operator() Arg {
	return Arg{Kind: ArgOperator}
}

func (a Arg) references() []string {
	if a.Kind == ArgRef || a.Kind == ArgRefList {
		return a.Names
	}
	return nil
}

func (a Arg) String() string {
	switch a.Kind {
	case ArgRef:
		return "ref(" + a.Names[0] + ")"
	case ArgRefList:
		return fmt.Sprintf("refs%v", a.Names)
	case ArgOperator:
		return "operator"
	default:
		return fmt.Sprintf("%v", a.Value)
	}
}

// Resolver turns arguments into concrete values using the registry.
type Resolver struct {
	registry *registry.Registry
	operator common.Address
}

// NewResolver resolves against reg, with operator as the Operator value.
func NewResolver(reg *registry.Registry, operator common.Address) *Resolver {
	return &Resolver{registry: reg, operator: operator}
}

// Resolve fails with DependencyNotReady when a referenced name is not registered.
func (r *Resolver) Resolve(args []Arg) ([]any, error) {
	values := make([]any, 0, len(args))
	for _, arg := range args {
		switch arg.Kind {
		case ArgLiteral:
			values = append(values, arg.Value)
		case ArgRef:
			addr, err := r.registry.Address(arg.Names[0])
			if err != nil {
				return nil, err
			}
			values = append(values, addr)
		case ArgRefList:
			addrs := make([]common.Address, 0, len(arg.Names))
			for _, name := range arg.Names {
				addr, err := r.registry.Address(name)
				if err != nil {
					return nil, err
				}
				addrs = append(addrs, addr)
			}
			values = append(values, addrs)
		case ArgOperator:
			values = append(values, r.operator)
		default:
			return nil, fmt.Errorf("unknown argument kind %d", arg.Kind)
		}
	}
	return values, nil
}
