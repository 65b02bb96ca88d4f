//go:build linux

package ipc

import (
	"errors"
	"testing"
)

func TestWriteReadOk(t *testing.T) {
	p, err := NewPipe()
	if err != nil {
		t.Fatalf("NewPipe: %v", err)
	}
	rx, tx := p.r, p.w
	defer rx.Close()
	defer tx.Close()

	done := make(chan error, 1)
	go func() { done <- ReadOk(rx) }()

	if err := WriteOk(tx); err != nil {
		t.Fatalf("WriteOk: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("ReadOk: %v", err)
	}
}

func TestWriteReadPid(t *testing.T) {
	p, err := NewPipe()
	if err != nil {
		t.Fatalf("NewPipe: %v", err)
	}
	rx, tx := p.r, p.w
	defer rx.Close()
	defer tx.Close()

	const want = 424242
	done := make(chan struct {
		pid int
		err error
	}, 1)
	go func() {
		pid, err := ReadPid(rx)
		done <- struct {
			pid int
			err error
		}{pid, err}
	}()

	if err := WritePid(tx, want); err != nil {
		t.Fatalf("WritePid: %v", err)
	}
	got := <-done
	if got.err != nil {
		t.Fatalf("ReadPid: %v", got.err)
	}
	if got.pid != want {
		t.Errorf("pid = %d, want %d", got.pid, want)
	}
}

// write_result(Ok(_)) -> read_result = Ok(Ok(())).
func TestWriteReadResultSuccess(t *testing.T) {
	p, err := NewPipe()
	if err != nil {
		t.Fatalf("NewPipe: %v", err)
	}
	rx, tx := p.r, p.w
	defer rx.Close()
	defer tx.Close()

	done := make(chan error, 1)
	go func() { done <- ReadResult(rx) }()

	if err := WriteResult(tx, nil); err != nil {
		t.Fatalf("WriteResult: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("expected nil result, got %v", err)
	}
}

// write_result(Err(e)) -> read_result = Ok(Err(e')) with e'.message ==
// e.to_string().
func TestWriteReadResultError(t *testing.T) {
	p, err := NewPipe()
	if err != nil {
		t.Fatalf("NewPipe: %v", err)
	}
	rx, tx := p.r, p.w
	defer rx.Close()
	defer tx.Close()

	wantMsg := "mount /proc: permission denied"
	done := make(chan error, 1)
	go func() { done <- ReadResult(rx) }()

	if err := WriteResult(tx, errors.New(wantMsg)); err != nil {
		t.Fatalf("WriteResult: %v", err)
	}
	got := <-done
	if got == nil {
		t.Fatal("expected error, got nil")
	}
	var re *ResultError
	if !errors.As(got, &re) {
		t.Fatalf("expected *ResultError, got %T: %v", got, got)
	}
	if re.Message != wantMsg {
		t.Errorf("message = %q, want %q", re.Message, wantMsg)
	}
}

func TestReadResultUnknownTag(t *testing.T) {
	p, err := NewPipe()
	if err != nil {
		t.Fatalf("NewPipe: %v", err)
	}
	rx, tx := p.r, p.w
	defer rx.Close()
	defer tx.Close()

	done := make(chan error, 1)
	go func() { done <- ReadResult(rx) }()

	if _, err := tx.Write([]byte{7}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := <-done; err == nil {
		t.Fatal("expected protocol violation error, got nil")
	}
}

func TestOwnedPidReapIgnoresECHILD(t *testing.T) {
	// A pid we never actually forked: Reap should translate ECHILD into a
	// nil error (reap-class success) rather than propagating it.
	o := NewOwnedPid(1) // pid 1 is never our child
	if err := o.Reap(); err != nil {
		t.Fatalf("Reap on non-child pid: %v", err)
	}
}
