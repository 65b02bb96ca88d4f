//go:build linux

package ipc

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Pipe is one end-pair of an O_CLOEXEC pipe. Exactly one of Rx/Tx should be
// kept by each side of a fork — holding both past a suspend point is the
// classic way to deadlock a handshake, because the reader never sees EOF
// while it still holds its own write end open.
type Pipe struct {
	r, w *os.File
}

// NewPipe creates an O_CLOEXEC pipe.
func NewPipe() (Pipe, error) {
	var fds [2]int
	if err := unix.Pipe2(fds[:], unix.O_CLOEXEC); err != nil {
		return Pipe{}, fmt.Errorf("pipe2: %w", err)
	}
	return Pipe{
		r: os.NewFile(uintptr(fds[0]), "pipe-r"),
		w: os.NewFile(uintptr(fds[1]), "pipe-w"),
	}, nil
}

// Rx returns the read end and closes the write end immediately — required
// before any blocking read on this side, see the Pipe type doc.
func (p Pipe) Rx() *os.File {
	if p.w != nil {
		p.w.Close()
	}
	return p.r
}

// Tx returns the write end and closes the read end immediately.
func (p Pipe) Tx() *os.File {
	if p.r != nil {
		p.r.Close()
	}
	return p.w
}

// CloseBoth closes both ends unconditionally; used on setup failure before
// either side has picked a direction.
func (p Pipe) CloseBoth() {
	if p.r != nil {
		p.r.Close()
	}
	if p.w != nil {
		p.w.Close()
	}
}
