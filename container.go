package nsbox

import (
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ehrlich-b/nsbox/internal/cgroupfs"
	"github.com/ehrlich-b/nsbox/internal/launch"
	"github.com/ehrlich-b/nsbox/internal/mountplan"
	"github.com/ehrlich-b/nsbox/internal/netplan"
	"github.com/ehrlich-b/nsbox/internal/rootop"
	"github.com/ehrlich-b/nsbox/internal/usermap"
	"golang.org/x/sys/unix"
)

// Container owns a rootfs path, a cgroup handle, a user mapper, an ordered
// mount plan, an optional network plan, a hostname, and the init pid once
// one has been started.
type Container struct {
	rootfs    string
	statePath string
	cgroup    *cgroupfs.Cgroup
	mapper    usermap.UserMapper
	mounts    []mountplan.Mount
	network   netplan.Plan
	hostname  string

	initPid *int
}

// ProcessOptions is re-exported so callers don't need to import
// internal/launch.
type ProcessOptions = launch.ProcessOptions

// Rootfs returns the container's root filesystem path.
func (c *Container) Rootfs() string { return c.rootfs }

// Cgroup returns the container's cgroup handle.
func (c *Container) Cgroup() *cgroupfs.Cgroup { return c.cgroup }

// InitPid returns the init process's pid, or nil if no init has been
// started or Kill/Stop has since reaped it. Waiting on the Process returned
// by StartInit does not clear it.
func (c *Container) InitPid() *int { return c.initPid }

// StartInit launches the init process. Fails if an init is
// already running in this container.
func (c *Container) StartInit(opts ProcessOptions) (*Process, error) {
	spec := launch.InitSpec{
		Cgroup:    c.cgroup,
		Mapper:    c.mapper,
		Mounts:    c.mounts,
		Network:   c.network,
		Rootfs:    c.rootfs,
		Hostname:  c.hostname,
		AlreadyUp: c.initPid != nil,
	}
	p, err := launch.InitLaunch(spec, opts)
	if err != nil {
		return nil, classifyLaunchError("StartInit", err)
	}
	pid := p.Pid()
	c.initPid = &pid
	return &Process{inner: p}, nil
}

// StartExec attaches a new process to the already-running init. Fails if
// no init is running.
func (c *Container) StartExec(opts ProcessOptions) (*Process, error) {
	spec := launch.ExecSpec{
		InitPid: c.initPid,
		Cgroup:  c.cgroup,
		Mapper:  c.mapper,
	}
	p, err := launch.ExecLaunch(spec, opts)
	if err != nil {
		return nil, classifyLaunchError("StartExec", err)
	}
	return &Process{inner: p}, nil
}

// Kill writes "1" to cgroup.kill and waits on the init pid, ignoring
// ECHILD (the init was already reaped elsewhere).
func (c *Container) Kill() error {
	if err := c.cgroup.Kill(); err != nil {
		return newError(KindSyscall, "cgroup.kill", err)
	}
	return c.reapInit()
}

// Stop waits on the init pid without signaling the cgroup.
func (c *Container) Stop() error {
	return c.reapInit()
}

func (c *Container) reapInit() error {
	if c.initPid == nil {
		return nil
	}
	var ws unix.WaitStatus
	_, err := unix.Wait4(*c.initPid, &ws, unix.WALL, nil)
	c.initPid = nil
	if err != nil && err != unix.ECHILD {
		return newError(KindSyscall, "waitpid", err)
	}
	return nil
}

// Destroy tears the container down: kill(), clean state via the
// run-as-root primitive (so files owned by mapped uids can be unlinked),
// then rmdir the cgroup's leaf directories, deepest first, and the cgroup
// itself. All steps run regardless of earlier failures; the first error
// encountered is returned.
func (c *Container) Destroy() error {
	var firstErr error
	record := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	record(c.Kill())

	if c.statePath != "" {
		cleanupErr := rootop.Run(c.mapper, func() error {
			return os.RemoveAll(c.statePath)
		})
		record(newError(KindDestruction, "clean state", cleanupErr))
	}

	var leaves []string
	filepath.WalkDir(c.cgroup.Path(), func(p string, d fs.DirEntry, err error) error {
		if err == nil && d.IsDir() && p != c.cgroup.Path() {
			leaves = append(leaves, p)
		}
		return nil
	})
	for i := len(leaves) - 1; i >= 0; i-- {
		record(newError(KindDestruction, "remove cgroup leaf", unix.Rmdir(leaves[i])))
	}

	record(newError(KindDestruction, "remove cgroup", c.cgroup.Remove()))

	return firstErr
}

// Close is the best-effort drop behavior: if an init is still
// running, fire-and-forget kill + reap. Errors are swallowed — Close never
// returns one, matching "no panics may escape" for a drop path a caller
// may not be checking.
func (c *Container) Close() {
	if c.initPid == nil {
		return
	}
	_ = c.Kill()
}

func classifyLaunchError(op string, err error) error {
	if err == nil {
		return nil
	}
	return newError(KindChild, op, err)
}
