//go:build linux

package cgroupfs

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// CPUStat bundles cpu.stat's fields, all in microseconds.
type CPUStat struct {
	UsageUsec  uint64
	UserUsec   uint64
	SystemUsec uint64
}

// CPUStatSnapshot reads and parses cpu.stat.
func (c *Cgroup) CPUStatSnapshot() (CPUStat, error) {
	data, err := os.ReadFile(filepath.Join(c.path, "cpu.stat"))
	if err != nil {
		return CPUStat{}, fmt.Errorf("cgroupfs: read cpu.stat: %w", err)
	}
	var st CPUStat
	for _, line := range strings.Split(string(data), "\n") {
		fields := strings.Fields(line)
		if len(fields) != 2 {
			continue
		}
		v, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			continue
		}
		switch fields[0] {
		case "usage_usec":
			st.UsageUsec = v
		case "user_usec":
			st.UserUsec = v
		case "system_usec":
			st.SystemUsec = v
		}
	}
	return st, nil
}

// SetCPUMax writes cpu.max as "<quota_us> <period_us>". quotaUsec < 0 means
// "max" (no quota).
func (c *Cgroup) SetCPUMax(quotaUsec int64, periodUsec uint64) error {
	quota := "max"
	if quotaUsec >= 0 {
		quota = strconv.FormatInt(quotaUsec, 10)
	}
	return c.writeValue("cpu.max", fmt.Sprintf("%s %d", quota, periodUsec))
}

// SetPidsMax writes pids.max. max < 0 means "max" (no limit).
func (c *Cgroup) SetPidsMax(max int64) error {
	if max < 0 {
		return c.writeValue("pids.max", "max")
	}
	return c.writeValue("pids.max", strconv.FormatInt(max, 10))
}
