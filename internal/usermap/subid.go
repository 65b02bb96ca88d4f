//go:build linux

package usermap

import (
	"fmt"

	mobyuser "github.com/moby/sys/user"
	osuser "os/user"
)

// NewRootSubID builds a two-range HelperBinary policy from /etc/subuid and
// /etc/subgid: {0 -> uid, 1} plus {1 -> start, size} if the current user
// has a subuid/subgid entry, otherwise the single map {0 -> uid, 1}.
func NewRootSubID(uid, gid int) (*HelperBinary, error) {
	uids, err := buildSubIDPolicy[UIDType]("/etc/subuid", uid)
	if err != nil {
		return nil, fmt.Errorf("usermap: subuid: %w", err)
	}
	gids, err := buildSubIDPolicy[GIDType]("/etc/subgid", gid)
	if err != nil {
		return nil, fmt.Errorf("usermap: subgid: %w", err)
	}
	return &HelperBinary{UIDs: uids, GIDs: gids}, nil
}

func buildSubIDPolicy[T ~int](path string, hostID int) (Policy[T], error) {
	entries, err := mobyuser.ParseSubIDFile(path)
	if err != nil {
		// No /etc/subuid or unreadable: fall back to the single identity
		// root map.
		return Policy[T]{Ranges: []IDMap[T]{{ContainerID: 0, HostID: T(hostID), Size: 1}}}, nil
	}

	username := currentUsername()
	for _, e := range entries {
		if e.Name == username {
			return Policy[T]{Ranges: []IDMap[T]{
				{ContainerID: 0, HostID: T(hostID), Size: 1},
				{ContainerID: 1, HostID: T(int(e.SubID)), Size: uint32(e.Count)},
			}}, nil
		}
	}
	return Policy[T]{Ranges: []IDMap[T]{{ContainerID: 0, HostID: T(hostID), Size: 1}}}, nil
}

func currentUsername() string {
	u, err := osuser.Current()
	if err != nil {
		return ""
	}
	return u.Username
}
