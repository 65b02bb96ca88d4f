//go:build linux

package mountplan

import (
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	mobymount "github.com/moby/sys/mount"
)

// Overlay composes the kernel's overlay data string from lowerdirs (joined
// in the given order; the kernel stacks the first one on top), an upperdir (writable layer) and a workdir (scratch
// space the kernel requires for atomic operations).
type Overlay struct {
	Target    string // relative to rootfs, e.g. "/"
	LowerDirs []string
	UpperDir  string
	WorkDir   string
}

var _ Mount = Overlay{}

func (o Overlay) Apply(rootfs string) error {
	for _, p := range o.LowerDirs {
		if !utf8.ValidString(p) {
			return fmt.Errorf("mountplan: overlay lowerdir %q is not valid UTF-8", p)
		}
	}
	if !utf8.ValidString(o.UpperDir) || !utf8.ValidString(o.WorkDir) {
		return fmt.Errorf("mountplan: overlay upperdir/workdir is not valid UTF-8")
	}

	target := resolveTarget(rootfs, o.Target)
	if err := os.MkdirAll(target, 0o755); err != nil {
		return fmt.Errorf("mountplan: mkdir overlay target %q: %w", target, err)
	}

	if err := mobymount.Mount("overlay", target, "overlay", o.data()); err != nil {
		return fmt.Errorf("mountplan: mount overlay on %q: %w", target, err)
	}
	return nil
}

func (o Overlay) data() string {
	return fmt.Sprintf("lowerdir=%s,upperdir=%s,workdir=%s", strings.Join(o.LowerDirs, ":"), o.UpperDir, o.WorkDir)
}
