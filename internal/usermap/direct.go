//go:build linux

package usermap

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/ehrlich-b/nsbox/internal/xlog"
)

// Direct writes /proc/{pid}/uid_map and gid_map directly. Without
// CAP_SETUID/CAP_SETGID on the host (the unprivileged case) the kernel
// limits an unprivileged write to exactly one line, so Direct only
// supports single-range policies unless the caller has that capability.
type Direct struct {
	UIDs Policy[UIDType]
	GIDs Policy[GIDType]
}

var _ UserMapper = (*Direct)(nil)

func (d *Direct) ApplyToPid(pid int) error {
	if err := writeIDMap(pid, "uid_map", d.UIDs.Ranges); err != nil {
		return err
	}
	// setgroups must be denied before an unprivileged mapper can write
	// gid_map at all — the kernel refuses otherwise.
	if len(d.GIDs.Ranges) > 0 {
		if err := os.WriteFile(fmt.Sprintf("/proc/%d/setgroups", pid), []byte("deny"), 0); err != nil {
			xlog.Log.Debug("usermap: write setgroups=deny failed, continuing", "pid", pid, "err", err)
		}
	}
	if err := writeIDMapGID(pid, d.GIDs.Ranges); err != nil {
		return err
	}
	xlog.Log.Debug("usermap: direct mapping applied", "pid", pid, "uid_ranges", len(d.UIDs.Ranges), "gid_ranges", len(d.GIDs.Ranges))
	return nil
}

func writeIDMap(pid int, file string, ranges []IDMap[UIDType]) error {
	var b strings.Builder
	for _, r := range ranges {
		fmt.Fprintf(&b, "%d %d %d\n", r.ContainerID, r.HostID, r.Size)
	}
	path := filepath.Join("/proc", strconv.Itoa(pid), file)
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("usermap: open %s: %w", path, err)
	}
	defer f.Close()
	if _, err := f.WriteString(b.String()); err != nil {
		return fmt.Errorf("usermap: write %s: %w", path, err)
	}
	return nil
}

func writeIDMapGID(pid int, ranges []IDMap[GIDType]) error {
	var b strings.Builder
	for _, r := range ranges {
		fmt.Fprintf(&b, "%d %d %d\n", r.ContainerID, r.HostID, r.Size)
	}
	path := filepath.Join("/proc", strconv.Itoa(pid), "gid_map")
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("usermap: open %s: %w", path, err)
	}
	defer f.Close()
	if _, err := f.WriteString(b.String()); err != nil {
		return fmt.Errorf("usermap: write %s: %w", path, err)
	}
	return nil
}

// SetUser switches credentials in order: resolve/set supplementary groups,
// setgid, setuid. Order matters — once uid != 0, setgroups/setgid fail.
// Supplementary groups are resolved from the container's own /etc/passwd +
// /etc/group (we run after pivot_root, so these are container-local) — a
// lookup failure (no such user, no /etc/passwd in a minimal image) is not
// fatal, it just means no supplementary groups are set.
func (d *Direct) SetUser(uid, gid int) error {
	groups := resolveSupplementaryGroups(uid)
	return setCreds(uid, gid, groups)
}

func resolveSupplementaryGroups(uid int) []int {
	username := lookupUsername(uid)
	if username == "" {
		return nil
	}
	groups, err := SupplementaryGroups(username)
	if err != nil {
		return nil
	}
	return groups
}

func (d *Direct) UIDMapped(uid int) bool { return d.UIDs.Mapped(UIDType(uid)) }
func (d *Direct) GIDMapped(gid int) bool { return d.GIDs.Mapped(GIDType(gid)) }
func (d *Direct) UIDCount() int          { return d.UIDs.Len() }
func (d *Direct) GIDCount() int          { return d.GIDs.Len() }

// setCreds is the shared tail of both mapper implementations' SetUser:
// resolve supplementary groups (if requested), setgroups, setgid, setuid.
func setCreds(uid, gid int, extraGroups []int) error {
	groups := extraGroups
	if err := unix.Setgroups(groups); err != nil {
		return fmt.Errorf("usermap: setgroups: %w", err)
	}
	if err := unix.Setgid(gid); err != nil {
		return fmt.Errorf("usermap: setgid(%d): %w", gid, err)
	}
	if err := unix.Setuid(uid); err != nil {
		return fmt.Errorf("usermap: setuid(%d): %w", uid, err)
	}
	return nil
}
