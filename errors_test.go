package nsbox

import (
	"errors"
	"testing"
)

func TestErrorString(t *testing.T) {
	err := newError(KindPrecondition, "StartInit", errors.New("uid 9999 not mapped"))
	want := "nsbox: precondition: StartInit: uid 9999 not mapped"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestErrorUnwrap(t *testing.T) {
	inner := errors.New("boom")
	err := newError(KindSyscall, "mount", inner)
	if !errors.Is(err, inner) {
		t.Error("errors.Is should see through to the wrapped error")
	}
}

func TestNewErrorNilIsNil(t *testing.T) {
	if err := newError(KindMisuse, "op", nil); err != nil {
		t.Errorf("newError with nil err = %v, want nil", err)
	}
}

func TestKindString(t *testing.T) {
	tests := []struct {
		k    Kind
		want string
	}{
		{KindMisuse, "misuse"},
		{KindPrecondition, "precondition"},
		{KindSyscall, "syscall"},
		{KindChild, "child"},
		{KindDestruction, "destruction"},
	}
	for _, tt := range tests {
		if got := tt.k.String(); got != tt.want {
			t.Errorf("Kind(%d).String() = %q, want %q", tt.k, got, tt.want)
		}
	}
}
