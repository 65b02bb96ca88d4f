//go:build linux

package mountplan

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// SetupMountNamespace builds a private mount namespace inside a process
// that already holds CLONE_NEWNS (and usually CLONE_NEWUSER): make mount
// propagation private, self-bind rootfs, apply every plan mount in order,
// then pivot_root onto rootfs and detach the old root.
//
// Must run after the mount namespace is unshared and before the target
// binary is exec'd.
func SetupMountNamespace(rootfs string, plan []Mount) error {
	if err := SelfBindRootfs(rootfs); err != nil {
		return err
	}

	for _, m := range plan {
		if err := m.Apply(rootfs); err != nil {
			return err
		}
	}

	return pivotInto(rootfs)
}

// pivotInto performs the pivot_root dance: open the new root as an
// O_PATH|O_DIRECTORY fd, call pivot_root(new, new) which stacks the old
// root on top of the new root at the same path, remount the now-stacked
// root MS_SLAVE|MS_REC so the detach below doesn't propagate, lazily
// unmount the old root, then fchdir into the new root fd so the process's
// cwd is well-defined inside the container.
func pivotInto(rootfs string) error {
	fd, err := unix.Open(rootfs, unix.O_DIRECTORY|unix.O_PATH, 0)
	if err != nil {
		return fmt.Errorf("mountplan: open new root %q: %w", rootfs, err)
	}
	defer unix.Close(fd)

	if err := unix.PivotRoot(rootfs, rootfs); err != nil {
		return fmt.Errorf("mountplan: pivot_root(%q, %q): %w", rootfs, rootfs, err)
	}

	if err := unix.Mount("", "/", "", unix.MS_SLAVE|unix.MS_REC, ""); err != nil {
		return fmt.Errorf("mountplan: remount / slave after pivot: %w", err)
	}

	if err := unix.Unmount("/", unix.MNT_DETACH); err != nil {
		return fmt.Errorf("mountplan: detach old root: %w", err)
	}

	if err := unix.Fchdir(fd); err != nil {
		return fmt.Errorf("mountplan: fchdir new root: %w", err)
	}

	if err := os.Chdir("/"); err != nil {
		return fmt.Errorf("mountplan: chdir /: %w", err)
	}

	return nil
}
