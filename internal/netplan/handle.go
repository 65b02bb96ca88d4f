//go:build linux

package netplan

import (
	"os"
	"sync"
	"syscall"

	"github.com/google/uuid"
)

// Handle is the drop guard returned from RunNetwork: Close signals the
// helper process and waits on it, idempotently.
type Handle struct {
	proc *os.Process
	// instance uniquely identifies this helper invocation in logs — two
	// containers can both run a helper named "tap0" inside their own
	// network namespace, so the pid alone doesn't disambiguate them in a
	// daemon managing many containers at once.
	instance string

	mu     sync.Mutex
	closed bool
}

func newHandle(proc *os.Process) *Handle {
	return &Handle{proc: proc, instance: uuid.NewString()}
}

// Pid returns the helper process's pid.
func (h *Handle) Pid() int {
	return h.proc.Pid
}

// Instance returns this handle's unique log-correlation id.
func (h *Handle) Instance() string {
	return h.instance
}

// Close signals SIGTERM to the helper and waits for it to exit. Safe to
// call more than once; only the first call does anything.
func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true

	if err := h.proc.Signal(syscall.SIGTERM); err != nil && err != os.ErrProcessDone {
		h.proc.Kill()
	}
	_, err := h.proc.Wait()
	if err == nil {
		return nil
	}
	return err
}
