package nsbox

import "github.com/ehrlich-b/nsbox/internal/launch"

// Process is an owned pid plus its spawn configuration, returned by
// Container.StartInit and Container.StartExec. Besides the Pid accessor,
// its only operation is Wait.
type Process struct {
	inner *launch.Process
}

// Pid returns the process's pid in the launcher's pid namespace.
func (p *Process) Pid() int {
	return p.inner.Pid()
}

// Wait blocks until the process exits and reaps it with __WALL.
func (p *Process) Wait() error {
	return newError(KindSyscall, "wait", p.inner.Wait())
}
