//go:build linux

package ipc

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// CLONE_INTO_CGROUP is omitted from some vendored header sets; the value is
// fixed by the kernel ABI (include/uapi/linux/sched.h).
const CLONE_INTO_CGROUP = 0x200000000

// cloneArgs mirrors struct clone_args from the clone3(2) ABI: eleven u64
// fields, packed, no padding. The kernel reads exactly sizeof(cloneArgs)
// bytes, so field order and width must match exactly.
type cloneArgs struct {
	Flags      uint64
	Pidfd      uint64
	ChildTid   uint64
	ParentTid  uint64
	ExitSignal uint64
	Stack      uint64
	StackSize  uint64
	TLS        uint64
	SetTid     uint64
	SetTidSize uint64
	Cgroup     uint64
}

// CloneResult is meaningful in the parent only; in the child Clone3
// returns its zero value together with isParent == false, and the caller
// continues executing in the cloned process image.
type CloneResult struct {
	// Pid is the child's pid, as seen from the parent's pid namespace.
	Pid int
	// Pidfd is populated when args.Pidfd was set, otherwise -1.
	Pidfd int
}

// Clone3 wraps the raw clone3(2) syscall. It returns (result, true, nil) in
// the parent and (zero value, false, nil) in the child — callers must
// branch on the bool exactly once and never let the child fall through to
// code written for the parent.
//
// cgroupFD, when non-negative, is passed via args.cgroup and requires
// CLONE_INTO_CGROUP in flags.
func Clone3(flags uintptr, cgroupFD int) (CloneResult, bool, error) {
	pidfd := int32(-1)
	args := cloneArgs{
		Flags:      uint64(flags),
		ExitSignal: uint64(unix.SIGCHLD),
	}
	if flags&CLONE_INTO_CGROUP != 0 {
		args.Cgroup = uint64(cgroupFD)
	}
	if flags&unix.CLONE_PIDFD != 0 {
		args.Pidfd = uint64(uintptr(unsafe.Pointer(&pidfd)))
	}

	pid, _, errno := unix.Syscall(
		unix.SYS_CLONE3,
		uintptr(unsafe.Pointer(&args)),
		unsafe.Sizeof(args),
		0,
	)
	if errno != 0 {
		return CloneResult{}, true, fmt.Errorf("clone3: %w", errno)
	}
	if pid == 0 {
		// Child: the cloned thread of execution returns here with pid==0,
		// same convention as fork(2). Never unwind Go state shared with the
		// parent from this point on — see ExitChild.
		return CloneResult{}, false, nil
	}
	return CloneResult{Pid: int(pid), Pidfd: int(pidfd)}, true, nil
}

// PidfdOpen wraps pidfd_open(2) with flags=0.
func PidfdOpen(pid int) (int, error) {
	fd, err := unix.PidfdOpen(pid, 0)
	if err != nil {
		return -1, fmt.Errorf("pidfd_open(%d): %w", pid, err)
	}
	return fd, nil
}
