//go:build linux

package usermap

import (
	"fmt"

	"github.com/moby/sys/user"
)

// lookupUsername resolves uid to a username via the container's own
// /etc/passwd. Returns "" if it cannot be resolved — callers treat that as
// "no supplementary groups to add", not an error.
func lookupUsername(uid int) string {
	entries, err := user.ParsePasswdFile("/etc/passwd")
	if err != nil {
		return ""
	}
	for _, e := range entries {
		if e.Uid == uid {
			return e.Name
		}
	}
	return ""
}

// SupplementaryGroups resolves the supplementary group ids for username
// from /etc/group — the pure-Go equivalent of getgrouplist(3), which
// normally goes through NSS. moby/sys/user's parser is the same one the
// rest of the pack (moby-moby) uses for this exact lookup.
func SupplementaryGroups(username string) ([]int, error) {
	groups, err := user.ParseGroupFile("/etc/group")
	if err != nil {
		return nil, fmt.Errorf("usermap: parse /etc/group: %w", err)
	}
	var ids []int
	for _, g := range groups {
		for _, member := range g.List {
			if member == username {
				ids = append(ids, g.Gid)
				break
			}
		}
	}
	return ids, nil
}
