//go:build linux

package ipc

import "golang.org/x/sys/unix"

// ExitChild terminates the calling cloned process immediately via the bare
// _exit(2) syscall — never os.Exit, never a panic, never a deferred Go
// destructor. Any of those could run finalizers or flush buffers shared
// with the parent (the log writer, a pooled buffer) across a fork boundary
// where only this thread of the address space is "ours".
//
// code 0 signals the outcome (success or error) was written to the result
// pipe, or there was nothing to report; 1 signals a child-side failure,
// whose message reaches the result pipe only where the failing step had
// one to write to; 2 is reserved for "execve returned".
func ExitChild(code int) {
	unix.Syscall(unix.SYS_EXIT, uintptr(code), 0, 0)
	panic("unreachable: _exit returned")
}
