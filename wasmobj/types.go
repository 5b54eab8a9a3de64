package wasmobj

import (
	"fmt"

	"github.com/tetratelabs/wazero/api"
	"go.bytecodealliance.org/wit"

	"github.com/wippyai/stickyhost/errors"
)

// Signature describes an export in WIT terms.
type Signature struct {
	Params  []wit.Type
	Results []wit.Type
}

// witName returns the WIT spelling of a primitive type.
func witName(t wit.Type) string {
	switch t.(type) {
	case wit.Bool:
		return "bool"
	case wit.U8:
		return "u8"
	case wit.S8:
		return "s8"
	case wit.U16:
		return "u16"
	case wit.S16:
		return "s16"
	case wit.U32:
		return "u32"
	case wit.S32:
		return "s32"
	case wit.U64:
		return "u64"
	case wit.S64:
		return "s64"
	case wit.F32:
		return "f32"
	case wit.F64:
		return "f64"
	case wit.Char:
		return "char"
	case wit.String:
		return "string"
	default:
		return fmt.Sprintf("%T", t)
	}
}

// flatType returns the single core value type t flattens to.
func flatType(t wit.Type) (api.ValueType, error) {
	switch t.(type) {
	case wit.Bool, wit.U8, wit.S8, wit.U16, wit.S16, wit.U32, wit.S32, wit.Char:
		return api.ValueTypeI32, nil
	case wit.U64, wit.S64:
		return api.ValueTypeI64, nil
	case wit.F32:
		return api.ValueTypeF32, nil
	case wit.F64:
		return api.ValueTypeF64, nil
	default:
		return 0, errors.New(errors.PhaseDispatch, errors.KindNotSupported).
			WitType(witName(t)).
			Detail("only primitive types flatten to a single core value").
			Build()
	}
}

// checkFlat verifies that types flatten to exactly want.
func checkFlat(what string, types []wit.Type, want []api.ValueType) error {
	if len(types) != len(want) {
		return errors.New(errors.PhaseDispatch, errors.KindTypeMismatch).
			Detail("%s count %d, export has %d", what, len(types), len(want)).
			Build()
	}
	for i, t := range types {
		vt, err := flatType(t)
		if err != nil {
			return err
		}
		if vt != want[i] {
			return errors.New(errors.PhaseDispatch, errors.KindTypeMismatch).
				WitType(witName(t)).
				Detail("%s %d flattens to %s, export expects %s",
					what, i, api.ValueTypeName(vt), api.ValueTypeName(want[i])).
				Build()
		}
	}
	return nil
}

func mismatch(v any, t wit.Type) error {
	return errors.TypeMismatch(errors.PhaseDispatch, fmt.Sprintf("%T", v), witName(t))
}

// lower converts a Go value to its core representation.
func lower(t wit.Type, v any) (uint64, error) {
	switch t.(type) {
	case wit.Bool:
		b, ok := v.(bool)
		if !ok {
			return 0, mismatch(v, t)
		}
		if b {
			return 1, nil
		}
		return 0, nil
	case wit.U8:
		n, ok := v.(uint8)
		if !ok {
			return 0, mismatch(v, t)
		}
		return uint64(n), nil
	case wit.S8:
		n, ok := v.(int8)
		if !ok {
			return 0, mismatch(v, t)
		}
		return api.EncodeI32(int32(n)), nil
	case wit.U16:
		n, ok := v.(uint16)
		if !ok {
			return 0, mismatch(v, t)
		}
		return uint64(n), nil
	case wit.S16:
		n, ok := v.(int16)
		if !ok {
			return 0, mismatch(v, t)
		}
		return api.EncodeI32(int32(n)), nil
	case wit.U32:
		n, ok := v.(uint32)
		if !ok {
			return 0, mismatch(v, t)
		}
		return api.EncodeU32(n), nil
	case wit.S32:
		n, ok := v.(int32)
		if !ok {
			return 0, mismatch(v, t)
		}
		return api.EncodeI32(n), nil
	case wit.U64:
		n, ok := v.(uint64)
		if !ok {
			return 0, mismatch(v, t)
		}
		return n, nil
	case wit.S64:
		n, ok := v.(int64)
		if !ok {
			return 0, mismatch(v, t)
		}
		return api.EncodeI64(n), nil
	case wit.F32:
		f, ok := v.(float32)
		if !ok {
			return 0, mismatch(v, t)
		}
		return api.EncodeF32(f), nil
	case wit.F64:
		f, ok := v.(float64)
		if !ok {
			return 0, mismatch(v, t)
		}
		return api.EncodeF64(f), nil
	case wit.Char:
		r, ok := v.(rune)
		if !ok {
			return 0, mismatch(v, t)
		}
		return api.EncodeU32(uint32(r)), nil
	default:
		_, err := flatType(t)
		return 0, err
	}
}

// lift converts a core value back to its Go representation.
func lift(t wit.Type, raw uint64) (any, error) {
	switch t.(type) {
	case wit.Bool:
		return api.DecodeU32(raw) != 0, nil
	case wit.U8:
		return uint8(api.DecodeU32(raw)), nil
	case wit.S8:
		return int8(api.DecodeI32(raw)), nil
	case wit.U16:
		return uint16(api.DecodeU32(raw)), nil
	case wit.S16:
		return int16(api.DecodeI32(raw)), nil
	case wit.U32:
		return api.DecodeU32(raw), nil
	case wit.S32:
		return api.DecodeI32(raw), nil
	case wit.U64:
		return raw, nil
	case wit.S64:
		return int64(raw), nil
	case wit.F32:
		return api.DecodeF32(raw), nil
	case wit.F64:
		return api.DecodeF64(raw), nil
	case wit.Char:
		return rune(api.DecodeU32(raw)), nil
	default:
		_, err := flatType(t)
		return nil, err
	}
}
