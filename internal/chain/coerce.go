package chain

import (
	"fmt"
	"math/big"
	"reflect"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

var bigIntType = reflect.TypeOf((*big.Int)(nil))

// coerceArgs converts configuration values to the exact Go types the ABI
// packer expects: *big.Int into fixed-width integers and slices into fixed
// size arrays such as uint256[2].
func coerceArgs(inputs abi.Arguments, args []any) ([]any, error) {
	if len(inputs) != len(args) {
		return nil, fmt.Errorf("expected %d arguments, got %d", len(inputs), len(args))
	}

	out := make([]any, len(args))
	for i, input := range inputs {
		value, err := coerceValue(input.Type, args[i])
		if err != nil {
			name := input.Name
			if name == "" {
				name = fmt.Sprintf("#%d", i)
			}
			return nil, fmt.Errorf("argument %s: %w", name, err)
		}
		out[i] = value
	}

	return out, nil
}

func coerceValue(t abi.Type, value any) (any, error) {
	target := t.GetType()
	if value == nil {
		return nil, fmt.Errorf("nil value for %s", t.String())
	}

	rv := reflect.ValueOf(value)
	if rv.Type() == target {
		return value, nil
	}

	switch t.T {
	case abi.ArrayTy, abi.SliceTy:
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			return nil, fmt.Errorf("cannot use %T as %s", value, t.String())
		}
		if t.T == abi.ArrayTy && rv.Len() != t.Size {
			return nil, fmt.Errorf("%s needs %d elements, got %d", t.String(), t.Size, rv.Len())
		}

		var result reflect.Value
		if t.T == abi.ArrayTy {
			result = reflect.New(target).Elem()
		} else {
			result = reflect.MakeSlice(target, rv.Len(), rv.Len())
		}
		for i := 0; i < rv.Len(); i++ {
			elem, err := coerceValue(*t.Elem, rv.Index(i).Interface())
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			result.Index(i).Set(reflect.ValueOf(elem))
		}
		return result.Interface(), nil

	case abi.UintTy, abi.IntTy:
		n, ok := value.(*big.Int)
		if !ok {
			return nil, fmt.Errorf("cannot use %T as %s", value, t.String())
		}
		return coerceInteger(target, n, t.String())
	}

	return nil, fmt.Errorf("cannot use %T as %s", value, t.String())
}

func coerceInteger(target reflect.Type, n *big.Int, typeName string) (any, error) {
	if target == bigIntType {
		return n, nil
	}

	result := reflect.New(target).Elem()
	switch target.Kind() {
	case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if !n.IsUint64() || result.OverflowUint(n.Uint64()) {
			return nil, fmt.Errorf("%s overflows %s", n.String(), typeName)
		}
		result.SetUint(n.Uint64())
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if !n.IsInt64() || result.OverflowInt(n.Int64()) {
			return nil, fmt.Errorf("%s overflows %s", n.String(), typeName)
		}
		result.SetInt(n.Int64())
	default:
		return nil, fmt.Errorf("unsupported integer type %s", typeName)
	}

	return result.Interface(), nil
}
