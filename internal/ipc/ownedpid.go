//go:build linux

package ipc

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// OwnedPid is a drop-guard around a child pid: if never consumed by
// IntoRaw, Close reaps it with __WALL and swallows the exit status. This is
// the central invariant for zombie-freedom in the whole package — any code
// path that creates a child must create one of these before it can fail.
type OwnedPid struct {
	pid int
	set bool
}

// NewOwnedPid arms the guard.
func NewOwnedPid(pid int) *OwnedPid {
	return &OwnedPid{pid: pid, set: true}
}

// Pid returns the held pid; valid even after disarming.
func (o *OwnedPid) Pid() int {
	return o.pid
}

// IntoRaw disarms the guard — the caller now owns reaping this pid.
func (o *OwnedPid) IntoRaw() int {
	o.set = false
	return o.pid
}

// WaitSuccess waits on the pid and classifies the result: Exited(0) is
// success, anything else (non-zero exit or signal death) is an error. ECHILD
// is treated as success elsewhere — WaitSuccess
// itself always expects to be the one doing the reaping.
func (o *OwnedPid) WaitSuccess() error {
	o.set = false
	var ws unix.WaitStatus
	_, err := unix.Wait4(o.pid, &ws, 0, nil)
	if err != nil {
		return fmt.Errorf("waitpid(%d): %w", o.pid, err)
	}
	if ws.Exited() && ws.ExitStatus() == 0 {
		return nil
	}
	if ws.Exited() {
		return fmt.Errorf("pid %d exited with status %d", o.pid, ws.ExitStatus())
	}
	if ws.Signaled() {
		return fmt.Errorf("pid %d killed by signal %v", o.pid, ws.Signal())
	}
	return fmt.Errorf("pid %d: unexpected wait status %v", o.pid, ws)
}

// Reap waits __WALL on the pid and discards the status. ECHILD (already
// reaped elsewhere, e.g. by cgroup.kill racing us) is not an error.
func (o *OwnedPid) Reap() error {
	o.set = false
	var ws unix.WaitStatus
	_, err := unix.Wait4(o.pid, &ws, unix.WALL, nil)
	if err != nil && err != unix.ECHILD {
		return fmt.Errorf("waitpid(%d, __WALL): %w", o.pid, err)
	}
	return nil
}

// Close implements the drop-guard: reap with __WALL, swallow the status and
// any error. Never called on a disarmed guard with a live duplicate reaper
// racing it — callers that hand a pid to a long-lived Process instead call
// IntoRaw to disarm first.
func (o *OwnedPid) Close() {
	if !o.set {
		return
	}
	o.set = false
	var ws unix.WaitStatus
	unix.Wait4(o.pid, &ws, unix.WALL, nil)
}
