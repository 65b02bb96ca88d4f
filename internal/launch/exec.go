//go:build linux

package launch

import (
	"fmt"
	"os"
	"runtime"

	"github.com/ehrlich-b/nsbox/internal/cgroupfs"
	"github.com/ehrlich-b/nsbox/internal/ipc"
	"github.com/ehrlich-b/nsbox/internal/usermap"
	"golang.org/x/sys/unix"
)

// execJoinFlags is the set joined via setns in one call inside the
// intermediate — every namespace except cgroup, which setns cannot combine
// with joining an already-existing one.
const execJoinFlags = unix.CLONE_NEWUSER | unix.CLONE_NEWNS | unix.CLONE_NEWPID |
	unix.CLONE_NEWNET | unix.CLONE_NEWIPC | unix.CLONE_NEWUTS | unix.CLONE_NEWTIME

// ExecSpec is what ExecLaunch needs to join an already-running container:
// its init pid, its cgroup (for the default or named leaf), and its
// mapper (for the uid/gid preflight and in-namespace credential switch).
type ExecSpec struct {
	InitPid *int
	Cgroup  *cgroupfs.Cgroup
	Mapper  usermap.UserMapper
}

// ExecLaunch joins the container's existing namespaces and reparents the
// new process to the container init rather than to this caller: a plain
// setns + execve would leave the process parented to the caller, breaking
// the invariant that init is the sole supervisor of the container's
// tasks. The double-fork below exists only to fix up that parent
// relationship.
func ExecLaunch(spec ExecSpec, opts ProcessOptions) (*Process, error) {
	if spec.InitPid == nil {
		return nil, fmt.Errorf("launch: exec requires a running init")
	}
	if !spec.Mapper.UIDMapped(opts.UID) || !spec.Mapper.GIDMapped(opts.GID) {
		return nil, fmt.Errorf("launch: uid %d or gid %d is not in the mapper's domain", opts.UID, opts.GID)
	}
	if err := nulTerminatedOrErr("argv", opts.argv()); err != nil {
		return nil, err
	}
	if err := nulTerminatedOrErr("envp", opts.Env); err != nil {
		return nil, err
	}

	devNull, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("launch: open /dev/null: %w", err)
	}
	defer devNull.Close()

	pidPipe, err := ipc.NewPipe()
	if err != nil {
		return nil, fmt.Errorf("launch: pid pipe: %w", err)
	}
	internalPipe, err := ipc.NewPipe()
	if err != nil {
		pidPipe.CloseBoth()
		return nil, fmt.Errorf("launch: internal pipe: %w", err)
	}

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	res, isParent, err := ipc.Clone3(0, -1)
	if err != nil {
		pidPipe.CloseBoth()
		internalPipe.CloseBoth()
		return nil, fmt.Errorf("launch: fork intermediate: %w", err)
	}

	if !isParent {
		runIntermediate(spec, opts, int(devNull.Fd()), pidPipe, internalPipe)
		// unreachable
	}

	return execOuterParent(res.Pid, opts, pidPipe, internalPipe)
}

func execOuterParent(intermediatePid int, opts ProcessOptions, pidPipe, internalPipe ipc.Pipe) (*Process, error) {
	intermediate := ipc.NewOwnedPid(intermediatePid)
	rx := pidPipe.Rx()
	internalPipe.CloseBoth() // outer never speaks on this one

	grandchildPid, pidErr := ipc.ReadPid(rx)

	waitErr := intermediate.WaitSuccess()

	if waitErr != nil {
		return nil, fmt.Errorf("launch: exec intermediate failed: %w", waitErr)
	}
	if pidErr != nil {
		return nil, fmt.Errorf("launch: exec read_pid: %w", pidErr)
	}

	return newProcess(ipc.NewOwnedPid(grandchildPid), opts, nil), nil
}

func runIntermediate(spec ExecSpec, opts ProcessOptions, devNullFd int, pidPipe, internalPipe ipc.Pipe) {
	// This body and the grandchild it spawns both run on single-threaded
	// clones of the Go runtime; a panic here must not unwind back into
	// ExecLaunch's caller, so trap it and _exit like any setup failure.
	defer func() {
		if recover() != nil {
			ipc.ExitChild(1)
		}
	}()

	pidTx := pidPipe.Tx()

	cgFD, err := intermediateCgroupFD(spec, opts)
	if err != nil {
		ipc.ExitChild(1)
	}
	defer unix.Close(cgFD)

	pidfd, err := ipc.PidfdOpen(*spec.InitPid)
	if err != nil {
		ipc.ExitChild(1)
	}
	defer unix.Close(pidfd)

	if err := unix.Setns(pidfd, execJoinFlags); err != nil {
		ipc.ExitChild(1)
	}

	// internalPipe must keep both ends open across this clone3 — the
	// grandchild needs its own copy of the write end, which a premature
	// Rx()/Tx() call here would already have closed before the clone
	// duplicated the fd table.
	res, isParent, err := ipc.Clone3(uintptr(unix.CLONE_PARENT)|ipc.CLONE_INTO_CGROUP, cgFD)
	if err != nil {
		ipc.ExitChild(1)
	}

	if !isParent {
		runGrandchild(spec, opts, devNullFd, pidfd, internalPipe)
		// unreachable
	}

	internalRx := internalPipe.Rx()

	if err := ipc.WritePid(pidTx, res.Pid); err != nil {
		unix.Kill(res.Pid, unix.SIGKILL)
		reapChild(res.Pid)
		ipc.ExitChild(1)
	}

	if err := ipc.ReadOk(internalRx); err != nil {
		reapChild(res.Pid)
		ipc.ExitChild(1)
	}

	ipc.ExitChild(0)
}

func intermediateCgroupFD(spec ExecSpec, opts ProcessOptions) (int, error) {
	cg := spec.Cgroup
	if opts.Cgroup != "" {
		leaf, err := cg.Child(opts.Cgroup)
		if err != nil {
			return -1, err
		}
		if err := leaf.Create(); err != nil {
			return -1, err
		}
		cg = leaf
	}
	return cg.Open()
}

func runGrandchild(spec ExecSpec, opts ProcessOptions, devNullFd, pidfd int, internalPipe ipc.Pipe) {
	// Reparented into the container's pid namespace on a single-threaded
	// clone of the Go runtime; a panic must not unwind past here.
	defer func() {
		if recover() != nil {
			ipc.ExitChild(1)
		}
	}()

	tx := internalPipe.Tx()

	if err := unix.Setns(pidfd, unix.CLONE_NEWCGROUP); err != nil {
		ipc.ExitChild(1)
	}
	unix.Close(pidfd)

	if err := dup2Stdio(opts.Stdin, opts.Stdout, opts.Stderr, devNullFd); err != nil {
		ipc.ExitChild(1)
	}

	keep := map[int]bool{int(tx.Fd()): true}
	if err := closeFdsFrom(keep); err != nil {
		ipc.ExitChild(1)
	}

	if err := os.Chdir(opts.workDir()); err != nil {
		ipc.ExitChild(1)
	}

	if err := spec.Mapper.SetUser(opts.UID, opts.GID); err != nil {
		ipc.ExitChild(1)
	}

	if err := ipc.WriteOk(tx); err != nil {
		ipc.ExitChild(1)
	}

	argv := opts.argv()
	if len(argv) == 0 {
		ipc.ExitChild(2)
	}
	if err := unix.Exec(argv[0], argv, opts.Env); err != nil {
		ipc.ExitChild(2)
	}
	ipc.ExitChild(2)
}

func reapChild(pid int) {
	var ws unix.WaitStatus
	unix.Wait4(pid, &ws, unix.WALL, nil)
}
