//go:build linux

package usermap

import (
	"os"

	"github.com/moby/sys/userns"
)

// Recommend picks the mapper a caller should use for (uid, gid) without
// the caller needing to know the host's privilege posture: a direct
// /proc/{pid}/{u,g}id_map write works for a single-range identity map
// anywhere, but an unprivileged process already running inside a user
// namespace cannot shell out to newuidmap/newgidmap against a
// /etc/subuid entry that belongs to the outer namespace's user — so this
// prefers Direct whenever we're already namespaced, and falls back to
// HelperBinary (consulting /etc/subuid/subgid) only on a plain host
// process that can still invoke the setuid helpers.
func Recommend(uid, gid int) (UserMapper, error) {
	if userns.RunningInUserNS() {
		return &Direct{
			UIDs: Policy[UIDType]{Ranges: []IDMap[UIDType]{{ContainerID: 0, HostID: UIDType(uid), Size: 1}}},
			GIDs: Policy[GIDType]{Ranges: []IDMap[GIDType]{{ContainerID: 0, HostID: GIDType(gid), Size: 1}}},
		}, nil
	}
	if _, err := os.Stat("/bin/newuidmap"); err != nil {
		return &Direct{
			UIDs: Policy[UIDType]{Ranges: []IDMap[UIDType]{{ContainerID: 0, HostID: UIDType(uid), Size: 1}}},
			GIDs: Policy[GIDType]{Ranges: []IDMap[GIDType]{{ContainerID: 0, HostID: GIDType(gid), Size: 1}}},
		}, nil
	}
	return NewRootSubID(uid, gid)
}
