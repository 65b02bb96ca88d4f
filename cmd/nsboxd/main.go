//go:build linux

package main

import (
	"fmt"
	"os"

	"github.com/ehrlich-b/nsbox"
	"github.com/ehrlich-b/nsbox/internal/cgroupfs"
	"github.com/ehrlich-b/nsbox/internal/mountplan"
	"github.com/ehrlich-b/nsbox/internal/netplan"
	"github.com/ehrlich-b/nsbox/internal/usermap"
	"github.com/ehrlich-b/nsbox/internal/xlog"
	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "nsboxd",
		Short: "run a container described by a YAML spec",
	}

	var logLevel string
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "debug|info|warn|error")

	runCmd := &cobra.Command{
		Use:   "run SPEC.yaml",
		Short: "build a container from SPEC.yaml and run its init to completion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := xlog.Init(logLevel, ""); err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			return runInit(args[0])
		},
	}
	root.AddCommand(runCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runInit(specPath string) error {
	spec, err := loadContainerSpec(specPath)
	if err != nil {
		return err
	}

	cg, err := cgroupfs.New(cgroupfs.DefaultMountRoot, spec.CgroupDir)
	if err != nil {
		return fmt.Errorf("cgroup: %w", err)
	}

	mapper, err := buildMapper(spec)
	if err != nil {
		return fmt.Errorf("user mapper: %w", err)
	}

	mounts := buildMounts(spec)

	var netPlan netplan.Plan
	if spec.Network != nil {
		netPlan = &netplan.UserModeNetwork{
			HelperPath: spec.Network.Helper,
			Iface:      spec.Network.Iface,
			Nameserver: spec.Network.Nameserver,
		}
	}

	builder := nsbox.Builder{
		Rootfs:    spec.Rootfs,
		StatePath: spec.StatePath,
		Cgroup:    cg,
		Mapper:    mapper,
		Mounts:    mounts,
		Network:   netPlan,
		Hostname:  spec.Hostname,
	}

	container, err := builder.Create()
	if err != nil {
		return fmt.Errorf("create container: %w", err)
	}
	defer container.Close()

	if spec.Memory != nil {
		if spec.Memory.MaxBytes > 0 {
			if err := cg.SetMemoryMax(spec.Memory.MaxBytes); err != nil {
				return fmt.Errorf("set memory.max: %w", err)
			}
		}
		if spec.Memory.MinBytes > 0 {
			if err := cg.SetMemoryMin(spec.Memory.MinBytes); err != nil {
				return fmt.Errorf("set memory.min: %w", err)
			}
		}
		if spec.Memory.SwapMaxBytes > 0 {
			if err := cg.SetSwapMax(spec.Memory.SwapMaxBytes); err != nil {
				return fmt.Errorf("set memory.swap.max: %w", err)
			}
		}
	}

	proc, err := container.StartInit(nsbox.ProcessOptions{
		Argv:   spec.Init.Argv,
		Env:    flattenEnv(spec.Env),
		UID:    spec.Init.UID,
		GID:    spec.Init.GID,
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	})
	if err != nil {
		return fmt.Errorf("start init: %w", err)
	}

	xlog.Log.Info("nsboxd: init started", "pid", proc.Pid())

	if err := proc.Wait(); err != nil {
		return fmt.Errorf("init: %w", err)
	}
	return nil
}

func buildMapper(spec *containerSpec) (usermap.UserMapper, error) {
	if spec.Mapping != nil {
		return usermap.Recommend(spec.Mapping.UID, spec.Mapping.GID)
	}
	return usermap.Recommend(os.Getuid(), os.Getgid())
}

func buildMounts(spec *containerSpec) []mountplan.Mount {
	var mounts []mountplan.Mount
	if spec.Overlay != nil {
		mounts = append(mounts, mountplan.Overlay{
			Target:    "/",
			LowerDirs: spec.Overlay.LowerDirs,
			UpperDir:  spec.Overlay.UpperDir,
			WorkDir:   spec.Overlay.WorkDir,
		})
	}
	mounts = append(mounts, mountplan.StdBundle{})
	return mounts
}

func flattenEnv(env map[string]string) []string {
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	return out
}
