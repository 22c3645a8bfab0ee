package sources

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/process"
)

// cpuSampleWindow is how long CPUPercent blocks to measure utilization.
const cpuSampleWindow = 100 * time.Millisecond

// Host is the process/resource usage interface backed by gopsutil. It works
// the same on every platform gopsutil supports.
type Host struct {
	pid int32
}

// NewHost returns a usage source that reports on the current process.
func NewHost() *Host {
	return &Host{pid: int32(os.Getpid())}
}

// CPUPercent samples total CPU utilization over a short window.
func (h *Host) CPUPercent(ctx context.Context) (float64, error) {
	values, err := cpu.PercentWithContext(ctx, cpuSampleWindow, false)
	if err != nil {
		return 0, fmt.Errorf("cpu percent: %w", err)
	}
	if len(values) == 0 {
		return 0, fmt.Errorf("cpu percent: no samples")
	}
	return values[0], nil
}

func (h *Host) Memory(ctx context.Context) (MemoryRecord, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return MemoryRecord{}, fmt.Errorf("virtual memory: %w", err)
	}
	return MemoryRecord{
		Total:     vm.Total,
		Available: vm.Available,
		Used:      vm.Used,
		Percent:   vm.UsedPercent,
	}, nil
}

// Load returns the 1/5/15 minute load averages. Windows has no kernel load
// average, so it is reported as unavailable there.
func (h *Host) Load(ctx context.Context) (LoadRecord, error) {
	if runtime.GOOS == "windows" {
		return LoadRecord{}, fmt.Errorf("load average on %s: %w", runtime.GOOS, ErrUnavailable)
	}
	avg, err := load.AvgWithContext(ctx)
	if err != nil {
		return LoadRecord{}, fmt.Errorf("load average: %w", err)
	}
	return LoadRecord{Load1: avg.Load1, Load5: avg.Load5, Load15: avg.Load15}, nil
}

func (h *Host) HostStats(ctx context.Context) (HostStatsRecord, error) {
	info, err := host.InfoWithContext(ctx)
	if err != nil {
		return HostStatsRecord{}, fmt.Errorf("host info: %w", err)
	}
	return HostStatsRecord{UptimeSeconds: info.Uptime, ProcessCount: info.Procs}, nil
}

// Process reports this process's own footprint. The handle is opened per
// call so nothing is held between collection cycles.
func (h *Host) Process(ctx context.Context) (ProcessRecord, error) {
	proc, err := process.NewProcessWithContext(ctx, h.pid)
	if err != nil {
		return ProcessRecord{}, fmt.Errorf("open process %d: %w", h.pid, err)
	}
	rec := ProcessRecord{PID: h.pid}
	memInfo, err := proc.MemoryInfoWithContext(ctx)
	if err != nil {
		return ProcessRecord{}, fmt.Errorf("process memory: %w", err)
	}
	rec.RSSBytes = memInfo.RSS
	if pct, err := proc.CPUPercentWithContext(ctx); err == nil {
		rec.CPUPercent = pct
	}
	if threads, err := proc.NumThreadsWithContext(ctx); err == nil {
		rec.Threads = threads
	}
	return rec, nil
}
