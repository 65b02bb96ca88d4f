//go:build linux

package netplan

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"

	"github.com/ehrlich-b/nsbox/internal/xlog"
)

// UserModeNetwork spawns an unprivileged slirp-style network helper bound
// to the init pid's network namespace. Matches a typical user-mode helper
// invocation: `helper --configure --mtu=65520 --disable-host-loopback
// <pid> tap0`.
type UserModeNetwork struct {
	// HelperPath is the helper binary, e.g. "slirp4netns".
	HelperPath string
	// Iface is the tap device name created inside the namespace, e.g. "tap0".
	Iface string
	// MTU defaults to 65520 when zero, matching the sample invocation.
	MTU int
	// Nameserver is written to /etc/resolv.conf by SetNetwork. Defaults to
	// "10.0.2.3", the user-mode-network default gateway's DNS stub.
	Nameserver string
}

var _ Plan = (*UserModeNetwork)(nil)

func (n *UserModeNetwork) iface() string {
	if n.Iface == "" {
		return "tap0"
	}
	return n.Iface
}

func (n *UserModeNetwork) mtu() int {
	if n.MTU == 0 {
		return 65520
	}
	return n.MTU
}

func (n *UserModeNetwork) nameserver() string {
	if n.Nameserver == "" {
		return "10.0.2.3"
	}
	return n.Nameserver
}

func (n *UserModeNetwork) RunNetwork(pid int) (*Handle, error) {
	args := []string{
		"--configure",
		fmt.Sprintf("--mtu=%d", n.mtu()),
		"--disable-host-loopback",
		strconv.Itoa(pid),
		n.iface(),
	}
	cmd := exec.Command(n.HelperPath, args...)
	cmd.Stdout = nil
	cmd.Stderr = nil

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("netplan: start %s: %w", n.HelperPath, err)
	}
	h := newHandle(cmd.Process)
	xlog.Log.Debug("netplan: started user-mode network helper", "helper", n.HelperPath, "pid", cmd.Process.Pid, "target_pid", pid, "iface", n.iface(), "instance", h.Instance())

	return h, nil
}

// SetNetwork writes a minimal /etc/resolv.conf pointing at the user-mode
// network's DNS stub under rootfs. The launcher calls it inside the child
// after pivot_root with rootfs "/"; tests pass a temporary directory.
func (n *UserModeNetwork) SetNetwork(rootfs string) error {
	path := resolvConfPath(rootfs)
	content := fmt.Sprintf("nameserver %s\n", n.nameserver())
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("netplan: write %s: %w", path, err)
	}
	return nil
}

func resolvConfPath(rootfs string) string {
	if rootfs == "" || rootfs == "/" {
		return "/etc/resolv.conf"
	}
	return rootfs + "/etc/resolv.conf"
}
