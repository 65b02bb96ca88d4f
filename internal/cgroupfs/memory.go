//go:build linux

package cgroupfs

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// MemoryEvents is the parsed key/value block from memory.events. Unknown
// keys are ignored rather than rejected — the kernel has added fields to
// this file across versions and callers should not break on a newer one.
type MemoryEvents struct {
	Low         uint64
	High        uint64
	Max         uint64
	OOM         uint64
	OOMKill     uint64
	OOMGroupKill uint64
}

func (c *Cgroup) readUint(name string) (uint64, error) {
	data, err := os.ReadFile(filepath.Join(c.path, name))
	if err != nil {
		return 0, fmt.Errorf("cgroupfs: read %s: %w", name, err)
	}
	v, err := strconv.ParseUint(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("cgroupfs: parse %s: %w", name, err)
	}
	return v, nil
}

func (c *Cgroup) writeValue(name, value string) error {
	f, err := os.OpenFile(filepath.Join(c.path, name), os.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("cgroupfs: open %s: %w", name, err)
	}
	defer f.Close()
	if _, err := f.WriteString(value); err != nil {
		return fmt.Errorf("cgroupfs: write %s: %w", name, err)
	}
	return nil
}

// MemoryCurrent reads memory.current in bytes.
func (c *Cgroup) MemoryCurrent() (uint64, error) { return c.readUint("memory.current") }

// MemoryPeak reads memory.peak in bytes.
func (c *Cgroup) MemoryPeak() (uint64, error) { return c.readUint("memory.peak") }

// SetMemoryMax writes memory.max.
func (c *Cgroup) SetMemoryMax(bytes uint64) error {
	return c.writeValue("memory.max", strconv.FormatUint(bytes, 10))
}

// SetMemoryMin writes memory.min.
func (c *Cgroup) SetMemoryMin(bytes uint64) error {
	return c.writeValue("memory.min", strconv.FormatUint(bytes, 10))
}

// SetSwapMax writes memory.swap.max.
func (c *Cgroup) SetSwapMax(bytes uint64) error {
	return c.writeValue("memory.swap.max", strconv.FormatUint(bytes, 10))
}

// MemoryEventsSnapshot parses the memory.events key/value block.
func (c *Cgroup) MemoryEventsSnapshot() (MemoryEvents, error) {
	data, err := os.ReadFile(filepath.Join(c.path, "memory.events"))
	if err != nil {
		return MemoryEvents{}, fmt.Errorf("cgroupfs: read memory.events: %w", err)
	}
	var ev MemoryEvents
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
		case "low":
			ev.Low = v
		case "high":
			ev.High = v
		case "max":
			ev.Max = v
		case "oom":
			ev.OOM = v
		case "oom_kill":
			ev.OOMKill = v
		case "oom_group_kill":
			ev.OOMGroupKill = v
		default:
			// unknown key — ignored, not a failure
		}
	}
	return ev, nil
}
