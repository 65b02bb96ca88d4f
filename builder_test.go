//go:build linux

package nsbox

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ehrlich-b/nsbox/internal/cgroupfs"
	"github.com/ehrlich-b/nsbox/internal/usermap"
)

func testMapper() usermap.UserMapper {
	return &usermap.Direct{
		UIDs: usermap.Policy[usermap.UIDType]{Ranges: []usermap.IDMap[usermap.UIDType]{
			{ContainerID: 0, HostID: 100000, Size: 1},
		}},
		GIDs: usermap.Policy[usermap.GIDType]{Ranges: []usermap.IDMap[usermap.GIDType]{
			{ContainerID: 0, HostID: 100000, Size: 1},
		}},
	}
}

func TestBuilderCreateRequiresRootfs(t *testing.T) {
	b := Builder{Mapper: testMapper()}
	if _, err := b.Create(); err == nil {
		t.Fatal("expected error for missing rootfs")
	}
}

func TestBuilderCreateRequiresMapper(t *testing.T) {
	b := Builder{Rootfs: t.TempDir(), Cgroup: &cgroupfs.Cgroup{}}
	if _, err := b.Create(); err == nil {
		t.Fatal("expected error for missing mapper")
	}
}

func TestBuilderCreateRequiresCgroup(t *testing.T) {
	b := Builder{Rootfs: t.TempDir(), Mapper: testMapper()}
	if _, err := b.Create(); err == nil {
		t.Fatal("expected error for missing cgroup")
	}
}

func TestBuilderCreateRejectsMapperMissingUID0(t *testing.T) {
	mapper := &usermap.Direct{
		UIDs: usermap.Policy[usermap.UIDType]{Ranges: []usermap.IDMap[usermap.UIDType]{
			{ContainerID: 5000, HostID: 100000, Size: 2},
		}},
		GIDs: usermap.Policy[usermap.GIDType]{Ranges: []usermap.IDMap[usermap.GIDType]{
			{ContainerID: 0, HostID: 100000, Size: 1},
		}},
	}
	b := Builder{Rootfs: t.TempDir(), Mapper: mapper, Cgroup: &cgroupfs.Cgroup{}}
	if _, err := b.Create(); err == nil {
		t.Fatal("expected error for a multi-id uid policy that excludes uid 0")
	}
}

func TestBuilderCreateEnsuresDirectories(t *testing.T) {
	mountRoot := t.TempDir()
	cgPath := filepath.Join(mountRoot, "test-container")
	cg, err := cgroupfs.New(mountRoot, cgPath)
	if err != nil {
		t.Fatalf("cgroupfs.New: %v", err)
	}

	rootfs := filepath.Join(t.TempDir(), "rootfs")
	b := Builder{Rootfs: rootfs, Cgroup: cg, Mapper: testMapper()}

	c, err := b.Create()
	if err != nil {
		t.Skipf("cgroupfs.Create requires a real cgroup-v2 mount: %v", err)
	}
	if c.Rootfs() != rootfs {
		t.Errorf("Rootfs() = %q, want %q", c.Rootfs(), rootfs)
	}
	if fi, err := os.Stat(rootfs); err != nil || !fi.IsDir() {
		t.Errorf("rootfs directory %q not created: %v", rootfs, err)
	}
	if fi, err := os.Stat(cgPath); err != nil || !fi.IsDir() {
		t.Errorf("cgroup directory %q not created: %v", cgPath, err)
	}
}
