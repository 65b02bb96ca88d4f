//go:build linux

package netplan

// Plan is the polymorphic "spawn a helper against this pid" capability from
// RunNetwork is invoked in the host after the init process
// exists and returns a Handle whose Close tears the helper down. SetNetwork
// is invoked inside the child's mount namespace to write /etc/resolv.conf.
type Plan interface {
	RunNetwork(pid int) (*Handle, error)
	SetNetwork(rootfs string) error
}

// None is the absent network plan: the network namespace is created by
// clone3(CLONE_NEWNET) as usual but left unplumbed.
type None struct{}

var _ Plan = None{}

func (None) RunNetwork(pid int) (*Handle, error) { return nil, nil }
func (None) SetNetwork(rootfs string) error      { return nil }
