//go:build linux

package rootop

import (
	"fmt"
	"runtime"

	"github.com/ehrlich-b/nsbox/internal/ipc"
	"github.com/ehrlich-b/nsbox/internal/usermap"
	"golang.org/x/sys/unix"
)

// Closure is the payload run as uid 0 inside a throwaway user namespace.
// It must not touch anything shared with the parent beyond what it was
// given — no goroutines, no shared buffers — because by the time it runs
// the address space belongs to a single-threaded clone of the caller.
type Closure func() error

// Run executes fn as uid 0 in a fresh, single-purpose user namespace and
// returns its error: used for filesystem operations that
// require uid 0 but not a full container (layer unpacking, state cleanup).
//
// mapper establishes the child's id mapping once the user namespace exists
// but before the child proceeds — run_map_user happens-before set_user, as
// everywhere else in this package's handshake discipline.
func Run(mapper usermap.UserMapper, fn Closure) error {
	goPipe, err := ipc.NewPipe()
	if err != nil {
		return fmt.Errorf("rootop: go pipe: %w", err)
	}
	resultPipe, err := ipc.NewPipe()
	if err != nil {
		goPipe.CloseBoth()
		return fmt.Errorf("rootop: result pipe: %w", err)
	}

	// clone3 must run on a thread the Go runtime will not reschedule work
	// onto mid-syscall; the child below executes on a single-threaded
	// clone of this goroutine's OS thread until it _exit()s.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	res, isParent, err := ipc.Clone3(unix.CLONE_NEWUSER, -1)
	if err != nil {
		goPipe.CloseBoth()
		resultPipe.CloseBoth()
		return fmt.Errorf("rootop: clone3: %w", err)
	}

	if !isParent {
		runChild(goPipe, resultPipe, fn)
		// unreachable: runChild always calls ipc.ExitChild.
	}

	return runParent(res.Pid, mapper, goPipe, resultPipe)
}

func runChild(goPipe, resultPipe ipc.Pipe, fn Closure) {
	// fn and the pipe handshake run on a single-threaded clone of the Go
	// runtime; an unwound panic here must never cross back into exec's
	// normal control flow, so trap it and _exit like any other child-side
	// failure.
	defer func() {
		if recover() != nil {
			ipc.ExitChild(1)
		}
	}()

	rx := goPipe.Rx()
	tx := resultPipe.Tx()

	if err := ipc.ReadOk(rx); err != nil {
		ipc.ExitChild(1)
	}

	err := fn()
	if werr := ipc.WriteResult(tx, err); werr != nil {
		ipc.ExitChild(1)
	}
	ipc.ExitChild(0)
}

func runParent(pid int, mapper usermap.UserMapper, goPipe, resultPipe ipc.Pipe) error {
	owned := ipc.NewOwnedPid(pid)
	tx := goPipe.Tx()
	rx := resultPipe.Rx()

	if err := mapper.ApplyToPid(pid); err != nil {
		owned.Close()
		return fmt.Errorf("rootop: map user for pid %d: %w", pid, err)
	}

	if err := ipc.WriteOk(tx); err != nil {
		owned.Close()
		return fmt.Errorf("rootop: write_ok: %w", err)
	}

	result := ipc.ReadResult(rx)

	if err := owned.Reap(); err != nil {
		if result != nil {
			return result
		}
		return fmt.Errorf("rootop: reap pid %d: %w", pid, err)
	}

	return result
}
