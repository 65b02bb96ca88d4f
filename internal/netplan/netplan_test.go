//go:build linux

package netplan

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

func TestNoneRunNetworkReturnsNilHandle(t *testing.T) {
	var n None
	h, err := n.RunNetwork(1234)
	if err != nil {
		t.Fatalf("RunNetwork: %v", err)
	}
	if h != nil {
		t.Errorf("handle = %v, want nil", h)
	}
}

func TestNoneSetNetworkIsNoop(t *testing.T) {
	var n None
	if err := n.SetNetwork(t.TempDir()); err != nil {
		t.Fatalf("SetNetwork: %v", err)
	}
}

func TestUserModeNetworkDefaults(t *testing.T) {
	n := &UserModeNetwork{}
	if n.iface() != "tap0" {
		t.Errorf("iface() = %q, want tap0", n.iface())
	}
	if n.mtu() != 65520 {
		t.Errorf("mtu() = %d, want 65520", n.mtu())
	}
	if n.nameserver() != "10.0.2.3" {
		t.Errorf("nameserver() = %q, want 10.0.2.3", n.nameserver())
	}
}

func TestUserModeNetworkOverrides(t *testing.T) {
	n := &UserModeNetwork{Iface: "eth1", MTU: 1500, Nameserver: "10.0.2.1"}
	if n.iface() != "eth1" || n.mtu() != 1500 || n.nameserver() != "10.0.2.1" {
		t.Errorf("overrides not respected: %+v", n)
	}
}

func TestSetNetworkWritesResolvConf(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "etc"), 0o755); err != nil {
		t.Fatal(err)
	}
	n := &UserModeNetwork{}
	if err := n.SetNetwork(root); err != nil {
		t.Fatalf("SetNetwork: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(root, "etc", "resolv.conf"))
	if err != nil {
		t.Fatalf("read resolv.conf: %v", err)
	}
	if string(data) != "nameserver 10.0.2.3\n" {
		t.Errorf("resolv.conf = %q, want %q", data, "nameserver 10.0.2.3\n")
	}
}

func TestResolvConfPathRoot(t *testing.T) {
	if got := resolvConfPath("/"); got != "/etc/resolv.conf" {
		t.Errorf("resolvConfPath(/) = %q", got)
	}
	if got := resolvConfPath(""); got != "/etc/resolv.conf" {
		t.Errorf("resolvConfPath(\"\") = %q", got)
	}
}

func TestHandleCloseIsIdempotent(t *testing.T) {
	cmd := exec.Command("sleep", "30")
	if err := cmd.Start(); err != nil {
		t.Skipf("cannot start sleep: %v", err)
	}
	h := newHandle(cmd.Process)
	if h.Instance() == "" {
		t.Error("Instance() should be non-empty")
	}
	if err := h.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := h.Close(); err != nil {
		t.Fatalf("second Close should be a no-op: %v", err)
	}
}
