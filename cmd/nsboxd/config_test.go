//go:build linux

package main

import (
	"os"
	"path/filepath"
	"testing"
)

func writeSpec(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "spec.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadContainerSpecValid(t *testing.T) {
	path := writeSpec(t, `
rootfs: /var/lib/nsbox/demo/rootfs
cgroup_dir: /sys/fs/cgroup/demo
hostname: demo
init:
  argv: ["/bin/sh", "-c", "echo hi"]
  uid: 0
  gid: 0
`)
	spec, err := loadContainerSpec(path)
	if err != nil {
		t.Fatalf("loadContainerSpec: %v", err)
	}
	if spec.Rootfs != "/var/lib/nsbox/demo/rootfs" {
		t.Errorf("Rootfs = %q", spec.Rootfs)
	}
	if len(spec.Init.Argv) != 3 {
		t.Errorf("Init.Argv = %v", spec.Init.Argv)
	}
}

func TestLoadContainerSpecMissingRootfs(t *testing.T) {
	path := writeSpec(t, `
cgroup_dir: /sys/fs/cgroup/demo
init:
  argv: ["/bin/true"]
`)
	if _, err := loadContainerSpec(path); err == nil {
		t.Fatal("expected error for missing rootfs")
	}
}

func TestLoadContainerSpecMissingInit(t *testing.T) {
	path := writeSpec(t, `
rootfs: /var/lib/nsbox/demo/rootfs
cgroup_dir: /sys/fs/cgroup/demo
`)
	if _, err := loadContainerSpec(path); err == nil {
		t.Fatal("expected error for missing init.argv")
	}
}

func TestLoadContainerSpecWithOverlayAndMemory(t *testing.T) {
	path := writeSpec(t, `
rootfs: /var/lib/nsbox/demo/rootfs
cgroup_dir: /sys/fs/cgroup/demo
overlay:
  lower_dirs: ["/var/lib/nsbox/layers/base"]
  upper_dir: /var/lib/nsbox/demo/upper
  work_dir: /var/lib/nsbox/demo/work
memory:
  max_bytes: 262144
init:
  argv: ["/bin/sh"]
`)
	spec, err := loadContainerSpec(path)
	if err != nil {
		t.Fatalf("loadContainerSpec: %v", err)
	}
	if spec.Overlay == nil || len(spec.Overlay.LowerDirs) != 1 {
		t.Fatalf("Overlay = %+v", spec.Overlay)
	}
	if spec.Memory == nil || spec.Memory.MaxBytes != 262144 {
		t.Fatalf("Memory = %+v", spec.Memory)
	}
}
