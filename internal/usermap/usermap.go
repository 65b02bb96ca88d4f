//go:build linux

package usermap

import "fmt"

// Kind names the two id kinds, uid and gid. The type-level distinction
// that keeps a uid range from being passed where a gid range is expected
// comes from UIDType and GIDType below.
type Kind int

const (
	UID Kind = iota
	GID
)

// IDMap is one (container_id, host_id, size) range. size must be >= 1.
type IDMap[T ~int] struct {
	ContainerID T
	HostID      T
	Size        uint32
}

// Policy is an ordered set of ranges for one id kind (uid or gid). Ranges
// within one policy must not overlap on the container side.
type Policy[T ~int] struct {
	Ranges []IDMap[T]
}

// Mapped reports whether id falls within some range's container-side span.
func (p Policy[T]) Mapped(id T) bool {
	for _, r := range p.Ranges {
		if int64(id) >= int64(r.ContainerID) && int64(id) < int64(r.ContainerID)+int64(r.Size) {
			return true
		}
	}
	return false
}

// Len returns the total number of container-side ids covered across all
// ranges (ranges are assumed non-overlapping, per the invariant above).
func (p Policy[T]) Len() int {
	n := 0
	for _, r := range p.Ranges {
		n += int(r.Size)
	}
	return n
}

func (p Policy[T]) validateOverlap() error {
	for i := range p.Ranges {
		a := p.Ranges[i]
		aLo, aHi := int64(a.ContainerID), int64(a.ContainerID)+int64(a.Size)
		for j := i + 1; j < len(p.Ranges); j++ {
			b := p.Ranges[j]
			bLo, bHi := int64(b.ContainerID), int64(b.ContainerID)+int64(b.Size)
			if aLo < bHi && bLo < aHi {
				return fmt.Errorf("usermap: ranges [%d,%d) and [%d,%d) overlap", aLo, aHi, bLo, bHi)
			}
		}
	}
	return nil
}

// UIDType/GIDType are the concrete id types used throughout this package and by
// callers building a mapping policy.
type UIDType int
type GIDType int

// UserMapper is the capability set a builder needs from a user/group
// mapping strategy: apply the mapping to a not-yet-unblocked child, switch
// the current process's credentials, and answer mapping queries.
type UserMapper interface {
	// ApplyToPid establishes the mapping on pid's (suspended) user
	// namespace. Called from the parent after clone, before the child is
	// unblocked.
	ApplyToPid(pid int) error
	// SetUser switches the calling (in-namespace) process's credentials to
	// uid/gid. Runs in the child after pivot_root, before execve.
	SetUser(uid, gid int) error
	// UIDMapped / GIDMapped answer whether an id is covered by this
	// mapper's policy.
	UIDMapped(uid int) bool
	GIDMapped(gid int) bool
	// UIDCount / GIDCount return the total mapped id counts.
	UIDCount() int
	GIDCount() int
}

// ValidateForBuilder enforces the builder-acceptance invariant: if a
// policy maps more than one id, it must include id 0.
func ValidateForBuilder(uids Policy[UIDType], gids Policy[GIDType]) error {
	if err := uids.validateOverlap(); err != nil {
		return fmt.Errorf("usermap: uid policy: %w", err)
	}
	if err := gids.validateOverlap(); err != nil {
		return fmt.Errorf("usermap: gid policy: %w", err)
	}
	if uids.Len() > 1 && !uids.Mapped(0) {
		return fmt.Errorf("usermap: uid policy maps %d ids but does not include uid 0", uids.Len())
	}
	if gids.Len() > 1 && !gids.Mapped(0) {
		return fmt.Errorf("usermap: gid policy maps %d ids but does not include gid 0", gids.Len())
	}
	return nil
}
