//go:build linux

package launch

import (
	"fmt"
	"os"
	"strconv"

	"golang.org/x/sys/unix"
)

// closeFdsFrom closes every open fd >= 3 except those in keep, by walking
// /proc/self/fd. This runs in the cloned child after
// dup2'ing stdio, so the process never execve's holding fds leaked from
// whatever the host process had open before clone3.
func closeFdsFrom(keep map[int]bool) error {
	entries, err := os.ReadDir("/proc/self/fd")
	if err != nil {
		return fmt.Errorf("launch: read /proc/self/fd: %w", err)
	}
	for _, e := range entries {
		fd, err := strconv.Atoi(e.Name())
		if err != nil {
			continue
		}
		if fd < 3 || keep[fd] {
			continue
		}
		unix.Close(fd)
	}
	return nil
}

// dup2Stdio installs in, out, err onto fds 0/1/2. Any nil slot uses
// devNullFd, the shared /dev/null opened once by the launcher.
func dup2Stdio(in, out, errf *os.File, devNullFd int) error {
	slots := []struct {
		target int
		f      *os.File
	}{
		{0, in},
		{1, out},
		{2, errf},
	}
	for _, s := range slots {
		fd := devNullFd
		if s.f != nil {
			fd = int(s.f.Fd())
		}
		if err := unix.Dup2(fd, s.target); err != nil {
			return fmt.Errorf("launch: dup2(%d -> %d): %w", fd, s.target, err)
		}
	}
	return nil
}

// nulTerminatedOrErr validates that none of ss contains a NUL byte — the
// child builds argv/envp as NUL-terminated C strings and a NUL inside an
// element would silently truncate it.
func nulTerminatedOrErr(kind string, ss []string) error {
	for i, s := range ss {
		for _, b := range []byte(s) {
			if b == 0 {
				return fmt.Errorf("launch: %s[%d] contains a NUL byte", kind, i)
			}
		}
	}
	return nil
}
