//go:build linux

package cgroupfs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/moby/sys/mountinfo"
	"github.com/opencontainers/cgroups"
	"golang.org/x/sys/unix"

	"github.com/ehrlich-b/nsbox/internal/xlog"
)

// DefaultMountRoot is where the unified cgroup-v2 hierarchy is assumed
// mounted.
const DefaultMountRoot = "/sys/fs/cgroup"

// Cgroup is a (mountRoot, path) pair: path is always under mountRoot. It is
// a thin handle — all the interesting state lives on disk under path.
type Cgroup struct {
	mountRoot string
	path      string
}

// New validates the precondition that path sits under mountRoot on the
// cgroup-v2 mount and returns a handle. It
// does not touch disk beyond the mountinfo lookup.
func New(mountRoot, path string) (*Cgroup, error) {
	if !filepath.IsAbs(mountRoot) {
		return nil, fmt.Errorf("cgroupfs: mount root %q is not absolute", mountRoot)
	}
	if !filepath.IsAbs(path) {
		return nil, fmt.Errorf("cgroupfs: path %q is not absolute", path)
	}
	if _, err := filepath.Rel(mountRoot, path); err != nil {
		return nil, fmt.Errorf("cgroupfs: %q is not under mount root %q: %w", path, mountRoot, err)
	}
	if !strings.HasPrefix(path, mountRoot) {
		return nil, fmt.Errorf("cgroupfs: %q is not under mount root %q", path, mountRoot)
	}
	mounted, err := mountinfo.Mounted(mountRoot)
	if err != nil {
		return nil, fmt.Errorf("cgroupfs: checking mount of %q: %w", mountRoot, err)
	}
	if !mounted {
		return nil, fmt.Errorf("cgroupfs: %q is not a mount point (cgroup-v2 unified hierarchy required)", mountRoot)
	}
	return &Cgroup{mountRoot: mountRoot, path: path}, nil
}

// Path returns the absolute path of this cgroup's directory.
func (c *Cgroup) Path() string { return c.path }

// MountRoot returns the cgroup-v2 mount root this handle is rooted under.
func (c *Cgroup) MountRoot() string { return c.mountRoot }

// Create is an idempotent mkdir -p.
func (c *Cgroup) Create() error {
	if err := os.MkdirAll(c.path, 0o755); err != nil {
		return fmt.Errorf("cgroupfs: create %q: %w", c.path, err)
	}
	xlog.Log.Debug("cgroup created", "path", c.path)
	return nil
}

// Remove is rmdir — it fails if the directory still has children or
// member processes, by design: the caller must have already moved
// processes out and removed any child cgroups.
func (c *Cgroup) Remove() error {
	if err := unix.Rmdir(c.path); err != nil {
		return fmt.Errorf("cgroupfs: rmdir %q: %w", c.path, err)
	}
	xlog.Log.Debug("cgroup removed", "path", c.path)
	return nil
}

// Child returns a node rooted at the same mount with path extended by name.
// name must be relative — an absolute name is a misuse error.
func (c *Cgroup) Child(name string) (*Cgroup, error) {
	if filepath.IsAbs(name) {
		return nil, fmt.Errorf("cgroupfs: child name %q must be relative", name)
	}
	return &Cgroup{mountRoot: c.mountRoot, path: filepath.Join(c.path, name)}, nil
}

// Parent returns a node one level up, or nil if that would escape the
// mount root.
func (c *Cgroup) Parent() *Cgroup {
	parent := filepath.Dir(c.path)
	if !strings.HasPrefix(parent, c.mountRoot) || parent == filepath.Dir(c.mountRoot) {
		return nil
	}
	return &Cgroup{mountRoot: c.mountRoot, path: parent}
}

// Current returns the handle for the caller's own cgroup, parsed from
// /proc/self/cgroup. Uses opencontainers/cgroups' ParseCgroupFile, which
// returns a map keyed by controller list — the cgroup-v2 unified-hierarchy
// line has an empty controller key.
func Current() (*Cgroup, error) {
	paths, err := cgroups.ParseCgroupFile("/proc/self/cgroup")
	if err != nil {
		return nil, fmt.Errorf("cgroupfs: parse /proc/self/cgroup: %w", err)
	}
	rel, ok := paths[""]
	if !ok {
		return nil, fmt.Errorf("cgroupfs: no cgroup-v2 unified-hierarchy entry in /proc/self/cgroup")
	}
	return New(DefaultMountRoot, filepath.Join(DefaultMountRoot, rel))
}

// AddProcess writes pid to cgroup.procs — open write-only, must not
// create and must not truncate (it's a kernel control file, not a regular
// file with content semantics).
func (c *Cgroup) AddProcess(pid int) error {
	f, err := os.OpenFile(filepath.Join(c.path, "cgroup.procs"), os.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("cgroupfs: open cgroup.procs: %w", err)
	}
	defer f.Close()
	if _, err := fmt.Fprintf(f, "%d", pid); err != nil {
		return fmt.Errorf("cgroupfs: write cgroup.procs: %w", err)
	}
	return nil
}

// Open opens the cgroup directory as O_PATH|O_DIRECTORY. The returned fd
// confers placement authority for CLONE_INTO_CGROUP only — it is not a
// general-purpose handle on the directory's contents.
func (c *Cgroup) Open() (int, error) {
	fd, err := unix.Open(c.path, unix.O_PATH|unix.O_DIRECTORY, 0)
	if err != nil {
		return -1, fmt.Errorf("cgroupfs: open %q as O_PATH: %w", c.path, err)
	}
	return fd, nil
}

// Kill writes "1" to cgroup.kill, recursively SIGKILLing every task in the
// subtree.
func (c *Cgroup) Kill() error {
	err := os.WriteFile(filepath.Join(c.path, "cgroup.kill"), []byte("1"), 0)
	if err != nil {
		return fmt.Errorf("cgroupfs: write cgroup.kill: %w", err)
	}
	xlog.Log.Debug("cgroup killed", "path", c.path)
	return nil
}

func (c *Cgroup) readList(name string) ([]string, error) {
	data, err := os.ReadFile(filepath.Join(c.path, name))
	if err != nil {
		return nil, fmt.Errorf("cgroupfs: read %s: %w", name, err)
	}
	return strings.Fields(string(data)), nil
}

// Controllers reads the whitespace-separated list from cgroup.controllers.
func (c *Cgroup) Controllers() ([]string, error) { return c.readList("cgroup.controllers") }

// SubtreeControllers reads the whitespace-separated list from
// cgroup.subtree_control.
func (c *Cgroup) SubtreeControllers() ([]string, error) { return c.readList("cgroup.subtree_control") }

// AddSubtreeControllers writes " +name1 +name2 ..." to cgroup.subtree_control
// — the leading space and per-controller "+" are significant to the kernel
// parser.
func (c *Cgroup) AddSubtreeControllers(names []string) error {
	if len(names) == 0 {
		return nil
	}
	var b strings.Builder
	for _, n := range names {
		b.WriteByte(' ')
		b.WriteByte('+')
		b.WriteString(n)
	}
	f, err := os.OpenFile(filepath.Join(c.path, "cgroup.subtree_control"), os.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("cgroupfs: open cgroup.subtree_control: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(b.String()); err != nil {
		return fmt.Errorf("cgroupfs: write cgroup.subtree_control: %w", err)
	}
	return nil
}
