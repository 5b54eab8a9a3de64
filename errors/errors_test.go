package errors

import (
	"errors"
	"fmt"
	"strings"
	"syscall"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:   PhaseDispatch,
				Kind:    KindTypeMismatch,
				GoType:  "string",
				WitType: "u32",
				Detail:  "argument 0",
			},
			contains: []string{"[dispatch]", "type_mismatch", "string", "u32", "argument 0"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseShutdown,
				Kind:  KindDisconnected,
			},
			contains: []string{"[shutdown]", "disconnected"},
		},
		{
			name:     "platform code",
			err:      Platform(PhaseConstruct, -2147467259),
			contains: []string{"[construct]", "platform", "-2147467259", "0x80004005"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseLoad,
				Kind:   KindInvalidData,
				Detail: "compile module",
				Cause:  errors.New("underlying error"),
			},
			contains: []string{"[load]", "invalid_data", "compile module", "caused by", "underlying error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{
		Phase: PhaseLoad,
		Kind:  KindInvalidData,
		Cause: cause,
	}

	if !errors.Is(err.Unwrap(), cause) {
		t.Error("Unwrap did not return cause")
	}
	if !errors.Is(errors.Unwrap(err), cause) {
		t.Error("errors.Unwrap did not return cause")
	}
}

func TestError_Is(t *testing.T) {
	err := Platform(PhaseConstruct, 5)

	if !err.Is(&Error{Phase: PhaseConstruct, Kind: KindPlatform}) {
		t.Error("Is should match same phase and kind")
	}
	if !err.Is(&Error{Kind: KindPlatform}) {
		t.Error("Is should match any phase when target phase is empty")
	}
	if err.Is(&Error{Phase: PhaseInit, Kind: KindPlatform}) {
		t.Error("Is should not match different phase")
	}
	if err.Is(&Error{Phase: PhaseConstruct, Kind: KindGeneric}) {
		t.Error("Is should not match different kind")
	}
	if !err.Is(&Error{Kind: KindPlatform, Code: 5}) {
		t.Error("Is should match same code")
	}
	if err.Is(&Error{Kind: KindPlatform, Code: 6}) {
		t.Error("Is should not match different code")
	}

	wrapped := fmt.Errorf("outer: %w", err)
	if !errors.Is(wrapped, &Error{Kind: KindPlatform}) {
		t.Error("errors.Is should match through wrapping")
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("root")
	err := New(PhaseDispatch, KindTypeMismatch).
		GoType("string").
		WitType("u32").
		Value(42).
		Code(7).
		Cause(cause).
		Detail("expected %s, got %s", "u32", "string").
		Build()

	if err.Phase != PhaseDispatch {
		t.Errorf("Phase = %v, want %v", err.Phase, PhaseDispatch)
	}
	if err.Kind != KindTypeMismatch {
		t.Errorf("Kind = %v, want %v", err.Kind, KindTypeMismatch)
	}
	if err.GoType != "string" {
		t.Errorf("GoType = %v, want 'string'", err.GoType)
	}
	if err.WitType != "u32" {
		t.Errorf("WitType = %v, want 'u32'", err.WitType)
	}
	if err.Value != 42 {
		t.Errorf("Value = %v, want 42", err.Value)
	}
	if err.Code != 7 {
		t.Errorf("Code = %v, want 7", err.Code)
	}
	if !errors.Is(err.Cause, cause) {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if err.Detail != "expected u32, got string" {
		t.Errorf("Detail = %v, want 'expected u32, got string'", err.Detail)
	}
}

type codedError struct{ code int32 }

func (e codedError) Error() string       { return "coded" }
func (e codedError) PlatformCode() int32 { return e.code }

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantKind Kind
		wantCode int32
	}{
		{"platform error", Platform(PhaseInit, 42), KindPlatform, 42},
		{"wrapped platform error", fmt.Errorf("ctx: %w", Platform(PhaseInit, -1)), KindPlatform, -1},
		{"platform coder", codedError{code: 99}, KindPlatform, 99},
		{"errno", syscall.EAGAIN, KindPlatform, int32(syscall.EAGAIN)},
		{"out of memory sentinel", fmt.Errorf("alloc: %w", ErrOutOfMemory), KindOutOfMemory, 0},
		{"out of memory error", OutOfMemory(PhaseLoad), KindOutOfMemory, 0},
		{"plain error", errors.New("boom"), KindGeneric, 0},
		{"other structured kind", InvalidInput(PhaseLoad, "bad"), KindGeneric, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(PhaseConstruct, tt.err)
			if got.Phase != PhaseConstruct {
				t.Errorf("Phase = %v, want %v", got.Phase, PhaseConstruct)
			}
			if got.Kind != tt.wantKind {
				t.Errorf("Kind = %v, want %v", got.Kind, tt.wantKind)
			}
			if got.Code != tt.wantCode {
				t.Errorf("Code = %v, want %v", got.Code, tt.wantCode)
			}
			if got.Kind == KindGeneric && got.Cause != nil {
				t.Errorf("generic failure leaked its cause: %v", got.Cause)
			}
		})
	}

	if Classify(PhaseInit, nil) != nil {
		t.Error("Classify(nil) should be nil")
	}
}

func TestKindAndCodeOf(t *testing.T) {
	err := fmt.Errorf("wrap: %w", Platform(PhaseMarshal, 3))
	if KindOf(err) != KindPlatform {
		t.Errorf("KindOf = %v, want %v", KindOf(err), KindPlatform)
	}
	code, ok := CodeOf(err)
	if !ok || code != 3 {
		t.Errorf("CodeOf = %v, %v; want 3, true", code, ok)
	}
	if _, ok := CodeOf(Generic(PhaseMarshal)); ok {
		t.Error("CodeOf should report false for a generic failure")
	}
	if KindOf(errors.New("plain")) != "" {
		t.Error("KindOf should be empty for unstructured errors")
	}
}

func TestConvenienceConstructors(t *testing.T) {
	t.Run("NotSupported", func(t *testing.T) {
		err := NotSupported(PhaseDispatch, "calc")
		if err.Kind != KindNotSupported {
			t.Errorf("Kind = %v, want %v", err.Kind, KindNotSupported)
		}
		if !strings.Contains(err.Detail, "calc") {
			t.Errorf("Detail = %v, should name the capability", err.Detail)
		}
	})

	t.Run("Disconnected", func(t *testing.T) {
		err := Disconnected(PhaseDispatch)
		if err.Kind != KindDisconnected {
			t.Errorf("Kind = %v, want %v", err.Kind, KindDisconnected)
		}
	})

	t.Run("Exhausted", func(t *testing.T) {
		err := Exhausted(PhaseMarshal, "handle table")
		if err.Kind != KindExhausted {
			t.Errorf("Kind = %v, want %v", err.Kind, KindExhausted)
		}
	})

	t.Run("Generic has no cause", func(t *testing.T) {
		if Generic(PhaseInit).Cause != nil {
			t.Error("Generic must not carry a cause")
		}
	})

	t.Run("TypeMismatch", func(t *testing.T) {
		err := TypeMismatch(PhaseDispatch, "int", "f64")
		if err.GoType != "int" || err.WitType != "f64" {
			t.Errorf("GoType=%v WitType=%v", err.GoType, err.WitType)
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		err := NotFound(PhaseDispatch, "export", "add")
		if err.Kind != KindNotFound || !strings.Contains(err.Detail, `"add"`) {
			t.Errorf("unexpected error %v", err)
		}
	})
}
