//go:build linux

package rootop

import (
	"errors"
	"os"
	"testing"

	"github.com/ehrlich-b/nsbox/internal/usermap"
)

func identityMapper() usermap.UserMapper {
	return &usermap.Direct{
		UIDs: usermap.Policy[usermap.UIDType]{Ranges: []usermap.IDMap[usermap.UIDType]{
			{ContainerID: 0, HostID: os.Getuid(), Size: 1},
		}},
		GIDs: usermap.Policy[usermap.GIDType]{Ranges: []usermap.IDMap[usermap.GIDType]{
			{ContainerID: 0, HostID: os.Getgid(), Size: 1},
		}},
	}
}

func requireUserNamespaces(t *testing.T) {
	t.Helper()
	if _, err := os.Stat("/proc/self/ns/user"); err != nil {
		t.Skip("user namespaces unavailable in this environment")
	}
}

func TestRunSuccess(t *testing.T) {
	requireUserNamespaces(t)

	ran := false
	err := Run(identityMapper(), func() error {
		ran = true
		return nil
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !ran {
		t.Error("closure did not run")
	}
}

func TestRunPropagatesChildError(t *testing.T) {
	requireUserNamespaces(t)

	wantMsg := "unpack: disk full"
	err := Run(identityMapper(), func() error {
		return errors.New(wantMsg)
	})
	if err == nil {
		t.Fatal("expected error from failing closure")
	}
	if err.Error() != wantMsg {
		t.Errorf("error = %q, want %q", err.Error(), wantMsg)
	}
}
