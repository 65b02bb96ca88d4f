//go:build linux

package launch

import (
	"github.com/ehrlich-b/nsbox/internal/ipc"
	"github.com/ehrlich-b/nsbox/internal/netplan"
)

// Process is an owned pid plus its spawn configuration. Besides the Pid
// accessor, its only operation is Wait, which reaps with __WALL so both a
// thread-group leader and a non-leader child are handled uniformly.
type Process struct {
	pid     *ipc.OwnedPid
	opts    ProcessOptions
	network *netplan.Handle
}

func newProcess(pid *ipc.OwnedPid, opts ProcessOptions, network *netplan.Handle) *Process {
	return &Process{pid: pid, opts: opts, network: network}
}

// Pid returns the process's pid as seen from the launcher's pid namespace.
func (p *Process) Pid() int {
	return p.pid.Pid()
}

// Wait blocks until the process exits, then tears down any owned network
// helper. Reap-class failures (ECHILD, the process was already
// reaped, e.g. by a cgroup kill) are not returned as errors.
func (p *Process) Wait() error {
	err := p.pid.Reap()
	if p.network != nil {
		p.network.Close()
	}
	return err
}
