//go:build linux

package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// containerSpec is the on-disk description of a container: parse once,
// validate, build.
type containerSpec struct {
	Rootfs    string            `yaml:"rootfs"`
	StatePath string            `yaml:"state_path"`
	CgroupDir string            `yaml:"cgroup_dir"`
	Hostname  string            `yaml:"hostname"`
	Overlay   *overlaySpec      `yaml:"overlay,omitempty"`
	Memory    *memoryLimitSpec  `yaml:"memory,omitempty"`
	Network   *networkSpec      `yaml:"network,omitempty"`
	Mapping   *mappingSpec      `yaml:"mapping,omitempty"`
	Init      commandSpec       `yaml:"init"`
	Env       map[string]string `yaml:"env,omitempty"`
}

type overlaySpec struct {
	LowerDirs []string `yaml:"lower_dirs"`
	UpperDir  string   `yaml:"upper_dir"`
	WorkDir   string   `yaml:"work_dir"`
}

type memoryLimitSpec struct {
	MaxBytes     uint64 `yaml:"max_bytes"`
	MinBytes     uint64 `yaml:"min_bytes,omitempty"`
	SwapMaxBytes uint64 `yaml:"swap_max_bytes,omitempty"`
}

type networkSpec struct {
	Helper     string `yaml:"helper"`
	Iface      string `yaml:"iface,omitempty"`
	Nameserver string `yaml:"nameserver,omitempty"`
}

type mappingSpec struct {
	UID int `yaml:"uid"`
	GID int `yaml:"gid"`
}

type commandSpec struct {
	Argv []string `yaml:"argv"`
	UID  int      `yaml:"uid"`
	GID  int      `yaml:"gid"`
}

func loadContainerSpec(path string) (*containerSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var spec containerSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if spec.Rootfs == "" {
		return nil, fmt.Errorf("%s: rootfs is required", path)
	}
	if spec.CgroupDir == "" {
		return nil, fmt.Errorf("%s: cgroup_dir is required", path)
	}
	if len(spec.Init.Argv) == 0 {
		return nil, fmt.Errorf("%s: init.argv is required", path)
	}
	return &spec, nil
}
