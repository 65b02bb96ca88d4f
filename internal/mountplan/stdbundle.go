//go:build linux

package mountplan

import (
	"fmt"
	"os"

	mobymount "github.com/moby/sys/mount"
	"golang.org/x/sys/unix"
)

type stdMount struct {
	target string
	fstype string
	flags  uintptr
	data   string
}

// StdBundle applies the fixed sequence of standard pseudo-filesystems from
// the fixed bundle every container needs: sysfs, proc, tmpfs on /dev, devpts, tmpfs on
// /dev/shm, mqueue, cgroup2 on /sys/fs/cgroup — in that order.
type StdBundle struct{}

var _ Mount = StdBundle{}

func stdMounts() []stdMount {
	return []stdMount{
		{"/sys", "sysfs", unix.MS_NOEXEC | unix.MS_NOSUID | unix.MS_NODEV | unix.MS_RDONLY, ""},
		{"/proc", "proc", unix.MS_NOEXEC | unix.MS_NOSUID | unix.MS_NODEV, ""},
		{"/dev", "tmpfs", unix.MS_NOSUID | unix.MS_STRICTATIME, "mode=755,size=65536k"},
		{"/dev/pts", "devpts", unix.MS_NOSUID | unix.MS_NOEXEC, "newinstance,ptmxmode=0666,mode=0620"},
		{"/dev/shm", "tmpfs", unix.MS_NOEXEC | unix.MS_NOSUID | unix.MS_NODEV, "mode=1777,size=65536k"},
		{"/dev/mqueue", "mqueue", unix.MS_NOEXEC | unix.MS_NOSUID | unix.MS_NODEV, ""},
		{"/sys/fs/cgroup", "cgroup2", unix.MS_NOEXEC | unix.MS_NOSUID | unix.MS_NODEV | unix.MS_RELATIME, ""},
	}
}

func (StdBundle) Apply(rootfs string) error {
	for _, m := range stdMounts() {
		target := resolveTarget(rootfs, m.target)
		if err := os.MkdirAll(target, 0o755); err != nil {
			return fmt.Errorf("mountplan: mkdir %q: %w", target, err)
		}
		if err := unix.Mount(m.fstype, target, m.fstype, m.flags, m.data); err != nil {
			return fmt.Errorf("mountplan: mount %s on %q: %w", m.fstype, target, err)
		}
	}
	return nil
}

// SelfBindRootfs detaches the process's mount-propagation view from the
// host and gives it a stable self-bind of rootfs to pivot onto — step 1 of
// SetupMountNamespace: remount / recursively as MS_SLAVE then
// MS_PRIVATE, then bind-remount rootfs onto itself with MS_BIND|MS_REC.
func SelfBindRootfs(rootfs string) error {
	if err := mobymount.Mount("", "/", "", "rslave"); err != nil {
		return fmt.Errorf("mountplan: remount / rslave: %w", err)
	}
	if err := mobymount.Mount("", "/", "", "rprivate"); err != nil {
		return fmt.Errorf("mountplan: remount / rprivate: %w", err)
	}
	if err := mobymount.Mount(rootfs, rootfs, "bind", "rbind"); err != nil {
		return fmt.Errorf("mountplan: self-bind rootfs %q: %w", rootfs, err)
	}
	return nil
}
