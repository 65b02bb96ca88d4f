//go:build linux

package launch

import "os"

// ProcessOptions configures one start_init or start_exec call: the
// command to run, the credentials to switch to inside the container, and
// the stdio/cgroup-leaf overrides available to both launch paths.
type ProcessOptions struct {
	// Argv is the command and its arguments. Argv[0] is passed to execve
	// as is; no $PATH search is made, so it must be a path to the binary.
	Argv []string
	// Env is passed as envp; nil means an empty environment, not the
	// caller's — the core reads no environment variables of its own.
	Env []string
	// WorkDir is chdir'd into after pivot_root/setns; empty defaults to "/".
	WorkDir string
	// UID / GID are the in-container credentials set just before exec.
	UID int
	GID int
	// Stdin/Stdout/Stderr are dup2'd onto 0/1/2; nil means /dev/null.
	Stdin, Stdout, Stderr *os.File
	// Cgroup, when non-empty, is a relative leaf name under the
	// container's cgroup that this process is placed into instead of the
	// container cgroup directly. Must be relative and non-empty to count.
	Cgroup string
}

func (o ProcessOptions) workDir() string {
	if o.WorkDir == "" {
		return "/"
	}
	return o.WorkDir
}

func (o ProcessOptions) argv() []string {
	if o.Argv == nil {
		return []string{}
	}
	return o.Argv
}
