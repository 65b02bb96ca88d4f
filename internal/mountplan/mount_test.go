//go:build linux

package mountplan

import (
	"strings"
	"testing"
)

func TestResolveTarget(t *testing.T) {
	tests := []struct {
		rootfs, target, want string
	}{
		{"/var/lib/nsbox/abc", "/", "/var/lib/nsbox/abc"},
		{"/var/lib/nsbox/abc", "/sys", "/var/lib/nsbox/abc/sys"},
		{"/var/lib/nsbox/abc", "/dev/pts", "/var/lib/nsbox/abc/dev/pts"},
	}
	for _, tt := range tests {
		if got := resolveTarget(tt.rootfs, tt.target); got != tt.want {
			t.Errorf("resolveTarget(%q, %q) = %q, want %q", tt.rootfs, tt.target, got, tt.want)
		}
	}
}

func TestOverlayDataFormat(t *testing.T) {
	o := Overlay{
		LowerDirs: []string{"/layers/base", "/layers/app"},
		UpperDir:  "/state/upper",
		WorkDir:   "/state/work",
	}
	want := "lowerdir=/layers/base:/layers/app,upperdir=/state/upper,workdir=/state/work"
	if got := o.data(); got != want {
		t.Errorf("data() = %q, want %q", got, want)
	}
}

func TestOverlayApplyRejectsNonUTF8(t *testing.T) {
	o := Overlay{
		LowerDirs: []string{string([]byte{0xff, 0xfe})},
		UpperDir:  "/state/upper",
		WorkDir:   "/state/work",
	}
	err := o.Apply(t.TempDir())
	if err == nil {
		t.Fatal("expected error for non-UTF8 lowerdir")
	}
	if !strings.Contains(err.Error(), "UTF-8") {
		t.Errorf("error = %v, want mention of UTF-8", err)
	}
}

func TestStdMountsOrderAndCoverage(t *testing.T) {
	want := []string{"/sys", "/proc", "/dev", "/dev/pts", "/dev/shm", "/dev/mqueue", "/sys/fs/cgroup"}
	ms := stdMounts()
	if len(ms) != len(want) {
		t.Fatalf("stdMounts() has %d entries, want %d", len(ms), len(want))
	}
	for i, m := range ms {
		if m.target != want[i] {
			t.Errorf("stdMounts()[%d].target = %q, want %q", i, m.target, want[i])
		}
	}
}

func TestStdMountsCgroupIsLast(t *testing.T) {
	ms := stdMounts()
	last := ms[len(ms)-1]
	if last.target != "/sys/fs/cgroup" || last.fstype != "cgroup2" {
		t.Errorf("last std mount = %+v, want cgroup2 on /sys/fs/cgroup", last)
	}
}
