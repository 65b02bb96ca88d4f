package nsbox

import "fmt"

// Kind distinguishes the classes of error nsbox returns — errors are not
// a Go type hierarchy, just a tag on a plain error, since every kind
// ultimately surfaces as a message-carrying value (the child-side ones
// literally only survive the pipe as a message).
type Kind int

const (
	// KindMisuse: invalid argument at the API boundary, caught before any
	// side effect: a missing Builder field or a mapper policy that maps
	// several ids without id 0.
	KindMisuse Kind = iota
	// KindPrecondition: uid/gid not mapped, helper binary missing, cgroup
	// path not under the cgroup-v2 mount. No function in this package
	// returns it; StartInit and StartExec report such failures as KindChild.
	KindPrecondition
	// KindSyscall: a host syscall failed; wraps the originating errno.
	KindSyscall
	// KindChild: every error returned by StartInit or StartExec. That
	// covers a child-side failure serialized over the result pipe and also
	// the launcher's own checks (init already running, uid/gid not mapped,
	// invalid cgroup leaf name) and host syscall failures during launch.
	KindChild
	// KindDestruction: a non-fatal failure during Container.Destroy.
	KindDestruction
)

func (k Kind) String() string {
	switch k {
	case KindMisuse:
		return "misuse"
	case KindPrecondition:
		return "precondition"
	case KindSyscall:
		return "syscall"
	case KindChild:
		return "child"
	case KindDestruction:
		return "destruction"
	default:
		return "unknown"
	}
}

// Error is an nsbox error tagged with its Kind, letting a caller that cares
// distinguish "you called this wrong" from "the kernel refused" without
// nsbox committing to a type hierarchy per failure site.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("nsbox: %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("nsbox: %s: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}
