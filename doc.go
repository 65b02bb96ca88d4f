// Package nsbox is a rootless Linux container runtime library: it builds
// isolated execution environments on a single host from read-only root
// filesystem layers, a cgroup-v2 node, a user/group mapping policy and an
// ordered list of mount specifications, then launches an init process
// inside the result and can attach further exec processes to it.
//
// The state machine lives in internal/launch, internal/mountplan,
// internal/usermap, internal/cgroupfs and internal/ipc; this package
// bundles them behind Container and Builder.
package nsbox
