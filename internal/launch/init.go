//go:build linux

package launch

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/ehrlich-b/nsbox/internal/cgroupfs"
	"github.com/ehrlich-b/nsbox/internal/ipc"
	"github.com/ehrlich-b/nsbox/internal/mountplan"
	"github.com/ehrlich-b/nsbox/internal/netplan"
	"github.com/ehrlich-b/nsbox/internal/usermap"
	"golang.org/x/sys/unix"
)

// initCloneFlags is NEWUSER|NEWNS|NEWPID|NEWNET|NEWIPC|NEWUTS|NEWTIME|
// NEWCGROUP|CLONE_INTO_CGROUP.
const initCloneFlags = unix.CLONE_NEWUSER | unix.CLONE_NEWNS | unix.CLONE_NEWPID |
	unix.CLONE_NEWNET | unix.CLONE_NEWIPC | unix.CLONE_NEWUTS | unix.CLONE_NEWTIME |
	unix.CLONE_NEWCGROUP | ipc.CLONE_INTO_CGROUP

// InitSpec is everything InitLaunch needs beyond ProcessOptions: the
// container's fixed configuration (cgroup, mapper, mount plan, network
// plan, rootfs, hostname).
type InitSpec struct {
	Cgroup    *cgroupfs.Cgroup
	Mapper    usermap.UserMapper
	Mounts    []mountplan.Mount
	Network   netplan.Plan
	Rootfs    string
	Hostname  string
	AlreadyUp bool // true if an init is already running in this container
}

// InitLaunch runs the full init-process state machine:
// clone3 with namespace flags directly into the container cgroup, a
// handshake that interleaves host-side id mapping with in-namespace setup,
// and a final execve of Argv[0] (no $PATH search). Returns a Process
// owning the new init pid.
func InitLaunch(spec InitSpec, opts ProcessOptions) (*Process, error) {
	if spec.AlreadyUp {
		return nil, fmt.Errorf("launch: init already running in this container")
	}
	if !spec.Mapper.UIDMapped(opts.UID) || !spec.Mapper.GIDMapped(opts.GID) {
		return nil, fmt.Errorf("launch: uid %d or gid %d is not in the mapper's domain", opts.UID, opts.GID)
	}
	var leaf *cgroupfs.Cgroup
	if opts.Cgroup != "" {
		if strings.HasPrefix(opts.Cgroup, "/") || strings.Contains(opts.Cgroup, "..") {
			return nil, fmt.Errorf("launch: cgroup leaf name %q must be relative", opts.Cgroup)
		}
		var err error
		leaf, err = spec.Cgroup.Child(opts.Cgroup)
		if err != nil {
			return nil, fmt.Errorf("launch: cgroup leaf: %w", err)
		}
		if err := leaf.Create(); err != nil {
			return nil, fmt.Errorf("launch: create cgroup leaf: %w", err)
		}
	}
	if err := nulTerminatedOrErr("argv", opts.argv()); err != nil {
		return nil, err
	}
	if err := nulTerminatedOrErr("envp", opts.Env); err != nil {
		return nil, err
	}

	cgFD, err := spec.Cgroup.Open()
	if err != nil {
		return nil, fmt.Errorf("launch: open container cgroup: %w", err)
	}
	defer unix.Close(cgFD)

	devNull, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("launch: open /dev/null: %w", err)
	}
	defer devNull.Close()

	goPipe, err := ipc.NewPipe()
	if err != nil {
		return nil, fmt.Errorf("launch: go pipe: %w", err)
	}
	resultPipe, err := ipc.NewPipe()
	if err != nil {
		goPipe.CloseBoth()
		return nil, fmt.Errorf("launch: result pipe: %w", err)
	}

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	res, isParent, err := ipc.Clone3(uintptr(initCloneFlags), cgFD)
	if err != nil {
		goPipe.CloseBoth()
		resultPipe.CloseBoth()
		return nil, fmt.Errorf("launch: clone3: %w", err)
	}

	if !isParent {
		runInitChild(initChildConfig{
			spec:       spec,
			opts:       opts,
			cgFD:       cgFD,
			devNullFd:  int(devNull.Fd()),
			goPipe:     goPipe,
			resultPipe: resultPipe,
		})
		// unreachable
	}

	return initParent(res.Pid, spec, leaf, opts, goPipe, resultPipe)
}

func initParent(pid int, spec InitSpec, leaf *cgroupfs.Cgroup, opts ProcessOptions, goPipe, resultPipe ipc.Pipe) (*Process, error) {
	owned := ipc.NewOwnedPid(pid)
	tx := goPipe.Tx()
	rx := resultPipe.Rx()

	if err := spec.Mapper.ApplyToPid(pid); err != nil {
		owned.Close()
		return nil, fmt.Errorf("launch: map user for init pid %d: %w", pid, err)
	}

	if leaf != nil {
		if err := leaf.AddProcess(pid); err != nil {
			owned.Close()
			return nil, fmt.Errorf("launch: place init pid %d in leaf %q: %w", pid, leaf.Path(), err)
		}
	}

	var networkHandle *netplan.Handle
	if spec.Network != nil {
		h, err := spec.Network.RunNetwork(pid)
		if err != nil {
			owned.Close()
			return nil, fmt.Errorf("launch: start network helper for pid %d: %w", pid, err)
		}
		networkHandle = h
	}

	if err := ipc.WriteOk(tx); err != nil {
		owned.Close()
		if networkHandle != nil {
			networkHandle.Close()
		}
		return nil, fmt.Errorf("launch: write_ok: %w", err)
	}

	result := ipc.ReadResult(rx)
	if result != nil {
		owned.Close()
		if networkHandle != nil {
			networkHandle.Close()
		}
		return nil, result
	}

	rawPid := owned.IntoRaw()
	return newProcess(ipc.NewOwnedPid(rawPid), opts, networkHandle), nil
}

type initChildConfig struct {
	spec       InitSpec
	opts       ProcessOptions
	cgFD       int
	devNullFd  int
	goPipe     ipc.Pipe
	resultPipe ipc.Pipe
}

func runInitChild(cfg initChildConfig) {
	// Everything below runs on a single-threaded clone of the Go runtime;
	// a panic must not unwind past this function, so trap it and _exit(1)
	// without writing a result; the parent then sees the result pipe close.
	defer func() {
		if recover() != nil {
			ipc.ExitChild(1)
		}
	}()

	// Step 1: drop the cgroup-directory fd — the child must not retain a
	// writable handle on its own cgroup placement.
	unix.Close(cfg.cgFD)

	rx := cfg.goPipe.Rx()
	tx := cfg.resultPipe.Tx()

	if err := ipc.ReadOk(rx); err != nil {
		ipc.ExitChild(1)
	}

	err := runInitSetup(cfg, int(tx.Fd()))
	if werr := ipc.WriteResult(tx, err); werr != nil {
		ipc.ExitChild(1)
	}
	if err != nil {
		ipc.ExitChild(1)
	}

	argv := cfg.opts.argv()
	if len(argv) == 0 {
		ipc.ExitChild(2)
	}
	if execErr := unix.Exec(argv[0], argv, cfg.opts.Env); execErr != nil {
		ipc.ExitChild(2)
	}
	ipc.ExitChild(2) // unreachable: Exec only returns on failure
}

// runInitSetup runs the child-side setup steps in order and returns the
// first step's error, if any, for framing by the caller.
func runInitSetup(cfg initChildConfig, resultTxFd int) error {
	spec := cfg.spec
	opts := cfg.opts

	if err := mountplan.SetupMountNamespace(spec.Rootfs, spec.Mounts); err != nil {
		return fmt.Errorf("launch: setup_mount_namespace: %w", err)
	}

	if spec.Hostname != "" {
		if err := unix.Sethostname([]byte(spec.Hostname)); err != nil {
			return fmt.Errorf("launch: sethostname: %w", err)
		}
	}

	if spec.Network != nil {
		if err := spec.Network.SetNetwork("/"); err != nil {
			return fmt.Errorf("launch: set_network: %w", err)
		}
	}

	if err := dup2Stdio(opts.Stdin, opts.Stdout, opts.Stderr, cfg.devNullFd); err != nil {
		return err
	}

	keep := map[int]bool{resultTxFd: true}
	if err := closeFdsFrom(keep); err != nil {
		return err
	}

	if err := os.Chdir(opts.workDir()); err != nil {
		return fmt.Errorf("launch: chdir(%q): %w", opts.workDir(), err)
	}

	if err := spec.Mapper.SetUser(opts.UID, opts.GID); err != nil {
		return fmt.Errorf("launch: set_user(%d, %d): %w", opts.UID, opts.GID, err)
	}

	return nil
}
