package host

import (
	stderrors "errors"
	"strings"
	"testing"

	"github.com/wippyai/stickyhost/errors"
)

type panicky struct{}

func (panicky) FinalRelease() { panic("release exploded") }

func TestScoped_Lifecycle(t *testing.T) {
	obj := &counter{caps: map[string]bool{"counter": true}}
	s, err := NewScoped(obj)
	if err != nil {
		t.Fatalf("NewScoped: %v", err)
	}

	if s.Object() != obj {
		t.Fatal("Object returned a different value")
	}
	if obj.initialCalls.Load() != 1 || obj.finalCalls.Load() != 1 {
		t.Fatalf("construct calls = %d/%d, want 1/1", obj.initialCalls.Load(), obj.finalCalls.Load())
	}
	if s.AddRef() != 0 || s.Release() != 0 {
		t.Fatal("scoped AddRef/Release must return 0")
	}
	if err := s.Probe(CapUnknown); err != nil {
		t.Fatalf("Probe(unknown): %v", err)
	}
	if err := s.Probe("counter"); err != nil {
		t.Fatalf("Probe(counter): %v", err)
	}
	expectKind(t, s.Probe("printer"), errors.KindNotSupported)

	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if obj.releaseCalls.Load() != 1 {
		t.Fatalf("FinalRelease ran %d times, want 1", obj.releaseCalls.Load())
	}
	if s.state != stateDestroyed {
		t.Fatalf("state = %v, want destroyed", s.state)
	}
	expectKind(t, s.Probe(CapUnknown), errors.KindDisconnected)
}

func TestScoped_InitialConstructFailure(t *testing.T) {
	obj := &counter{initialErr: errors.Platform(errors.PhaseConstruct, 9)}
	_, err := NewScoped(obj)

	if code, ok := errors.CodeOf(err); !ok || code != 9 {
		t.Fatalf("CodeOf = %d, %v; want 9, true", code, ok)
	}
	if obj.finalCalls.Load() != 0 || obj.releaseCalls.Load() != 0 {
		t.Fatalf("final/release calls = %d/%d, want 0/0", obj.finalCalls.Load(), obj.releaseCalls.Load())
	}
}

func TestScoped_FinalConstructFailure(t *testing.T) {
	obj := &counter{finalErr: stderrors.New("no")}
	_, err := NewScoped(obj)

	expectKind(t, err, errors.KindGeneric)
	if obj.releaseCalls.Load() != 1 {
		t.Fatalf("FinalRelease ran %d times, want 1", obj.releaseCalls.Load())
	}
}

func TestScoped_CloseUnconstructed(t *testing.T) {
	obj := &counter{}
	s := &Scoped[*counter]{obj: obj}

	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if obj.releaseCalls.Load() != 0 {
		t.Fatal("FinalRelease ran for an object that was never constructed")
	}
}

func TestScoped_ClosePanicRecovered(t *testing.T) {
	s, err := NewScoped(panicky{})
	if err != nil {
		t.Fatalf("NewScoped: %v", err)
	}

	err = s.Close()
	expectKind(t, err, errors.KindGeneric)
	if !strings.Contains(err.Error(), "release exploded") {
		t.Errorf("error %q does not mention the panic value", err)
	}
	if s.state != stateDestroyed {
		t.Errorf("state = %v, want destroyed", s.state)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestScoped_PlainValue(t *testing.T) {
	s, err := NewScoped(42)
	if err != nil {
		t.Fatalf("NewScoped: %v", err)
	}
	if s.Object() != 42 {
		t.Fatalf("Object = %d, want 42", s.Object())
	}
	expectKind(t, s.Probe("anything"), errors.KindNotSupported)
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
