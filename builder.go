package nsbox

import (
	"fmt"
	"os"

	"github.com/ehrlich-b/nsbox/internal/cgroupfs"
	"github.com/ehrlich-b/nsbox/internal/mountplan"
	"github.com/ehrlich-b/nsbox/internal/netplan"
	"github.com/ehrlich-b/nsbox/internal/usermap"
)

// Builder accumulates the fields a Container needs and is consumed by
// Create, which fails fast if any required field is missing.
type Builder struct {
	// Rootfs is the path the container's init pivot_roots into.
	Rootfs string
	// StatePath is the per-container state directory; Destroy removes it.
	StatePath string
	// Cgroup is the container's own cgroup-v2 node. Required.
	Cgroup *cgroupfs.Cgroup
	// Mapper is the uid/gid mapping strategy. Required.
	Mapper usermap.UserMapper
	// Mounts is applied, in order, to the rootfs during init launch.
	Mounts []mountplan.Mount
	// Network is optional; nil means the network namespace is created but
	// left unplumbed.
	Network netplan.Plan
	// Hostname is set via sethostname in the init child.
	Hostname string
}

// Create validates the builder and constructs a Container, ensuring the
// rootfs and cgroup directories exist on return.
func (b Builder) Create() (*Container, error) {
	if b.Rootfs == "" {
		return nil, newError(KindMisuse, "Builder.Create", fmt.Errorf("rootfs path is required"))
	}
	if b.Cgroup == nil {
		return nil, newError(KindMisuse, "Builder.Create", fmt.Errorf("cgroup is required"))
	}
	if b.Mapper == nil {
		return nil, newError(KindMisuse, "Builder.Create", fmt.Errorf("user mapper is required"))
	}
	if b.Mapper.UIDCount() > 1 && !b.Mapper.UIDMapped(0) {
		return nil, newError(KindMisuse, "Builder.Create", fmt.Errorf("uid policy maps %d ids but does not include uid 0", b.Mapper.UIDCount()))
	}
	if b.Mapper.GIDCount() > 1 && !b.Mapper.GIDMapped(0) {
		return nil, newError(KindMisuse, "Builder.Create", fmt.Errorf("gid policy maps %d ids but does not include gid 0", b.Mapper.GIDCount()))
	}
	if direct, ok := b.Mapper.(*usermap.Direct); ok {
		if err := usermap.ValidateForBuilder(direct.UIDs, direct.GIDs); err != nil {
			return nil, newError(KindMisuse, "Builder.Create", err)
		}
	}

	if err := os.MkdirAll(b.Rootfs, 0o755); err != nil {
		return nil, newError(KindSyscall, "mkdir rootfs", err)
	}
	if err := b.Cgroup.Create(); err != nil {
		return nil, newError(KindSyscall, "create cgroup", err)
	}

	return &Container{
		rootfs:    b.Rootfs,
		statePath: b.StatePath,
		cgroup:    b.Cgroup,
		mapper:    b.Mapper,
		mounts:    b.Mounts,
		network:   b.Network,
		hostname:  b.Hostname,
	}, nil
}
