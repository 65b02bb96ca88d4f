//go:build linux

package usermap

import (
	"fmt"
	"os/exec"
	"strconv"

	"github.com/ehrlich-b/nsbox/internal/xlog"
)

// HelperBinary maps ids by shelling out to newuidmap/newgidmap, which
// consult /etc/subuid and /etc/subgid and — unlike an unprivileged Direct
// write — permit multi-range maps.
type HelperBinary struct {
	UIDs Policy[UIDType]
	GIDs Policy[GIDType]

	// NewUIDMapPath / NewGIDMapPath default to /bin/newuidmap and
	// /bin/newgidmap; overridable for tests.
	NewUIDMapPath string
	NewGIDMapPath string
}

var _ UserMapper = (*HelperBinary)(nil)

func (h *HelperBinary) uidmapPath() string {
	if h.NewUIDMapPath != "" {
		return h.NewUIDMapPath
	}
	return "/bin/newuidmap"
}

func (h *HelperBinary) gidmapPath() string {
	if h.NewGIDMapPath != "" {
		return h.NewGIDMapPath
	}
	return "/bin/newgidmap"
}

func (h *HelperBinary) ApplyToPid(pid int) error {
	if err := runMapHelper(h.uidmapPath(), pid, h.UIDs.Ranges); err != nil {
		return fmt.Errorf("usermap: newuidmap: %w", err)
	}
	if err := runGMapHelper(h.gidmapPath(), pid, h.GIDs.Ranges); err != nil {
		return fmt.Errorf("usermap: newgidmap: %w", err)
	}
	xlog.Log.Debug("usermap: helper mapping applied", "pid", pid, "uid_ranges", len(h.UIDs.Ranges), "gid_ranges", len(h.GIDs.Ranges))
	return nil
}

func runMapHelper(bin string, pid int, ranges []IDMap[UIDType]) error {
	args := []string{strconv.Itoa(pid)}
	for _, r := range ranges {
		args = append(args, strconv.Itoa(int(r.ContainerID)), strconv.Itoa(int(r.HostID)), strconv.Itoa(int(r.Size)))
	}
	out, err := exec.Command(bin, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s %v: %w: %s", bin, args, err, out)
	}
	return nil
}

func runGMapHelper(bin string, pid int, ranges []IDMap[GIDType]) error {
	args := []string{strconv.Itoa(pid)}
	for _, r := range ranges {
		args = append(args, strconv.Itoa(int(r.ContainerID)), strconv.Itoa(int(r.HostID)), strconv.Itoa(int(r.Size)))
	}
	out, err := exec.Command(bin, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s %v: %w: %s", bin, args, err, out)
	}
	return nil
}

func (h *HelperBinary) SetUser(uid, gid int) error {
	return setCreds(uid, gid, resolveSupplementaryGroups(uid))
}

func (h *HelperBinary) UIDMapped(uid int) bool { return h.UIDs.Mapped(UIDType(uid)) }
func (h *HelperBinary) GIDMapped(gid int) bool { return h.GIDs.Mapped(GIDType(gid)) }
func (h *HelperBinary) UIDCount() int          { return h.UIDs.Len() }
func (h *HelperBinary) GIDCount() int          { return h.GIDs.Len() }
