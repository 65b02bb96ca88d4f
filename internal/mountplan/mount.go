//go:build linux

package mountplan

import "path/filepath"

// Mount is "apply yourself to this rootfs path" — the polymorphic mount
// operation to apply once the rootfs is known. Each built-in variant's
// target is relative to the rootfs root; Apply resolves it and creates the
// target directory before mounting.
type Mount interface {
	Apply(rootfs string) error
}

// resolveTarget joins rootfs and a mount's relative target, the way every
// built-in Mount variant does before calling mount(2).
func resolveTarget(rootfs, target string) string {
	return filepath.Join(rootfs, target)
}
