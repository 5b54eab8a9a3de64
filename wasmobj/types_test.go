package wasmobj

import (
	stderrors "errors"
	"strings"
	"testing"

	"github.com/tetratelabs/wazero/api"
	"go.bytecodealliance.org/wit"

	"github.com/wippyai/stickyhost/errors"
)

func TestLowerLift(t *testing.T) {
	tests := []struct {
		name string
		typ  wit.Type
		val  any
	}{
		{"bool true", wit.Bool{}, true},
		{"bool false", wit.Bool{}, false},
		{"u8", wit.U8{}, uint8(200)},
		{"s8", wit.S8{}, int8(-100)},
		{"u16", wit.U16{}, uint16(60000)},
		{"s16", wit.S16{}, int16(-30000)},
		{"u32", wit.U32{}, uint32(4000000000)},
		{"s32", wit.S32{}, int32(-2000000000)},
		{"u64", wit.U64{}, uint64(1) << 63},
		{"s64", wit.S64{}, int64(-1) << 62},
		{"f32", wit.F32{}, float32(3.5)},
		{"f64", wit.F64{}, -2.25},
		{"char", wit.Char{}, 'λ'},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := lower(tt.typ, tt.val)
			if err != nil {
				t.Fatalf("lower: %v", err)
			}
			got, err := lift(tt.typ, raw)
			if err != nil {
				t.Fatalf("lift: %v", err)
			}
			if got != tt.val {
				t.Fatalf("round trip = %v (%T), want %v (%T)", got, got, tt.val, tt.val)
			}
		})
	}
}

func TestLower_TypeMismatch(t *testing.T) {
	_, err := lower(wit.U32{}, int32(1))

	var e *errors.Error
	if !stderrors.As(err, &e) {
		t.Fatalf("lower = %v, want *errors.Error", err)
	}
	if e.Kind != errors.KindTypeMismatch || e.GoType != "int32" || e.WitType != "u32" {
		t.Fatalf("got kind %q go %q wit %q", e.Kind, e.GoType, e.WitType)
	}
}

func TestFlatType(t *testing.T) {
	tests := []struct {
		typ  wit.Type
		want api.ValueType
	}{
		{wit.Bool{}, api.ValueTypeI32},
		{wit.Char{}, api.ValueTypeI32},
		{wit.S32{}, api.ValueTypeI32},
		{wit.U64{}, api.ValueTypeI64},
		{wit.F32{}, api.ValueTypeF32},
		{wit.F64{}, api.ValueTypeF64},
	}
	for _, tt := range tests {
		got, err := flatType(tt.typ)
		if err != nil {
			t.Errorf("flatType(%s): %v", witName(tt.typ), err)
			continue
		}
		if got != tt.want {
			t.Errorf("flatType(%s) = %s, want %s", witName(tt.typ), api.ValueTypeName(got), api.ValueTypeName(tt.want))
		}
	}

	if _, err := flatType(wit.String{}); errors.KindOf(err) != errors.KindNotSupported {
		t.Errorf("flatType(string) = %v, want not supported", err)
	}
	if _, err := lift(wit.String{}, 0); errors.KindOf(err) != errors.KindNotSupported {
		t.Errorf("lift(string) = %v, want not supported", err)
	}
}

func TestCheckFlat(t *testing.T) {
	want := []api.ValueType{api.ValueTypeI32, api.ValueTypeI64}

	if err := checkFlat("param", []wit.Type{wit.U32{}, wit.S64{}}, want); err != nil {
		t.Fatalf("matching types: %v", err)
	}

	err := checkFlat("param", []wit.Type{wit.U32{}}, want)
	if errors.KindOf(err) != errors.KindTypeMismatch {
		t.Errorf("short list: %v, want type mismatch", err)
	}

	err = checkFlat("param", []wit.Type{wit.U32{}, wit.F64{}}, want)
	if errors.KindOf(err) != errors.KindTypeMismatch {
		t.Fatalf("wrong type: %v, want type mismatch", err)
	}
	if !strings.Contains(err.Error(), "f64") {
		t.Errorf("error %q does not name the WIT type", err)
	}
}
