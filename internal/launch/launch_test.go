//go:build linux

package launch

import (
	"testing"

	"github.com/ehrlich-b/nsbox/internal/usermap"
)

func identityMapper() usermap.UserMapper {
	return &usermap.Direct{
		UIDs: usermap.Policy[usermap.UIDType]{Ranges: []usermap.IDMap[usermap.UIDType]{
			{ContainerID: 0, HostID: 100000, Size: 1},
		}},
		GIDs: usermap.Policy[usermap.GIDType]{Ranges: []usermap.IDMap[usermap.GIDType]{
			{ContainerID: 0, HostID: 100000, Size: 1},
		}},
	}
}

func TestProcessOptionsDefaults(t *testing.T) {
	var o ProcessOptions
	if o.workDir() != "/" {
		t.Errorf("workDir() = %q, want /", o.workDir())
	}
	if len(o.argv()) != 0 {
		t.Errorf("argv() = %v, want empty", o.argv())
	}
}

func TestProcessOptionsOverrides(t *testing.T) {
	o := ProcessOptions{WorkDir: "/srv/app", Argv: []string{"/bin/sh", "-c", "true"}}
	if o.workDir() != "/srv/app" {
		t.Errorf("workDir() = %q, want /srv/app", o.workDir())
	}
	if len(o.argv()) != 3 {
		t.Errorf("argv() = %v, want 3 elements", o.argv())
	}
}

func TestNulTerminatedOrErrRejectsEmbeddedNul(t *testing.T) {
	if err := nulTerminatedOrErr("argv", []string{"/bin/sh", "bad\x00arg"}); err == nil {
		t.Fatal("expected error for embedded NUL")
	}
}

func TestNulTerminatedOrErrAllowsCleanStrings(t *testing.T) {
	if err := nulTerminatedOrErr("argv", []string{"/bin/sh", "-c", "echo hi"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestInitLaunchRejectsAlreadyRunning(t *testing.T) {
	spec := InitSpec{Mapper: identityMapper(), AlreadyUp: true}
	_, err := InitLaunch(spec, ProcessOptions{Argv: []string{"/bin/true"}})
	if err == nil {
		t.Fatal("expected error when init already running")
	}
}

func TestInitLaunchRejectsUnmappedUID(t *testing.T) {
	spec := InitSpec{Mapper: identityMapper()}
	_, err := InitLaunch(spec, ProcessOptions{Argv: []string{"/bin/true"}, UID: 9999, GID: 0})
	if err == nil {
		t.Fatal("expected error for unmapped uid")
	}
}

func TestExecLaunchRejectsNoInitPid(t *testing.T) {
	spec := ExecSpec{Mapper: identityMapper()}
	_, err := ExecLaunch(spec, ProcessOptions{Argv: []string{"/bin/true"}})
	if err == nil {
		t.Fatal("expected error when no init pid")
	}
}

func TestNewLeafNameIsUniqueAndPrefixed(t *testing.T) {
	a := NewLeafName("exec")
	b := NewLeafName("exec")
	if a == b {
		t.Error("NewLeafName should generate unique names")
	}
	if len(a) <= len("exec-") {
		t.Errorf("NewLeafName(%q) too short: %q", "exec", a)
	}
}

func TestExecLaunchRejectsUnmappedUID(t *testing.T) {
	pid := 1
	spec := ExecSpec{InitPid: &pid, Mapper: identityMapper()}
	_, err := ExecLaunch(spec, ProcessOptions{Argv: []string{"/bin/true"}, UID: 9999, GID: 0})
	if err == nil {
		t.Fatal("expected error for unmapped uid")
	}
}
