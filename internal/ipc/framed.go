//go:build linux

package ipc

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// WriteOk sends the one-byte "go" handshake.
func WriteOk(w *os.File) error {
	if _, err := w.Write([]byte{1}); err != nil {
		return fmt.Errorf("write_ok: %w", err)
	}
	return nil
}

// ReadOk blocks until the peer sends the "go" byte or closes its end.
func ReadOk(r *os.File) error {
	var buf [1]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return fmt.Errorf("read_ok: %w", err)
	}
	if buf[0] != 1 {
		return fmt.Errorf("read_ok: protocol violation, got byte %d", buf[0])
	}
	return nil
}

// WritePid sends a pid as four little-endian bytes.
func WritePid(w *os.File, pid int) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(pid))
	if _, err := w.Write(buf[:]); err != nil {
		return fmt.Errorf("write_pid: %w", err)
	}
	return nil
}

// ReadPid reads a pid written by WritePid.
func ReadPid(r *os.File) (int, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, fmt.Errorf("read_pid: %w", err)
	}
	return int(binary.LittleEndian.Uint32(buf[:])), nil
}

const (
	resultOk  = 0
	resultErr = 1
)

// WriteResult sends the framed outcome of a closure run across a fork
// boundary: a tag byte, and on error an 8-byte little-endian length
// followed by the UTF-8 message. The chain (errors.Is wrapping) is not
// preserved — only the message survives the pipe.
func WriteResult(w *os.File, err error) error {
	if err == nil {
		_, werr := w.Write([]byte{resultOk})
		return werr
	}
	msg := []byte(err.Error())
	var hdr [9]byte
	hdr[0] = resultErr
	binary.LittleEndian.PutUint64(hdr[1:], uint64(len(msg)))
	if _, werr := w.Write(hdr[:]); werr != nil {
		return werr
	}
	_, werr := w.Write(msg)
	return werr
}

// ResultError is the rematerialized form of a child-side failure; it
// carries the message only, never the original chain.
type ResultError struct {
	Message string
}

func (e *ResultError) Error() string { return e.Message }

// ReadResult reads the framed outcome written by WriteResult. A nil return
// means the remote closure succeeded.
func ReadResult(r *os.File) error {
	var tag [1]byte
	if _, err := io.ReadFull(r, tag[:]); err != nil {
		return fmt.Errorf("read_result: %w", err)
	}
	switch tag[0] {
	case resultOk:
		return nil
	case resultErr:
		var lenBuf [8]byte
		if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
			return fmt.Errorf("read_result: length: %w", err)
		}
		n := binary.LittleEndian.Uint64(lenBuf[:])
		msg := make([]byte, n)
		if _, err := io.ReadFull(r, msg); err != nil {
			return fmt.Errorf("read_result: message: %w", err)
		}
		return &ResultError{Message: string(msg)}
	default:
		return fmt.Errorf("read_result: protocol violation, unknown tag %d", tag[0])
	}
}
