package collector

import (
	"context"
	"log/slog"
	"time"

	"github.com/nozo-moto/connwatch/pkg/types"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// SystemCollector describes the host for the report header. Probe failures
// only leave their fields empty.
type SystemCollector struct {
	cpuInterval time.Duration
}

func NewSystemCollector() *SystemCollector {
	return &SystemCollector{cpuInterval: 200 * time.Millisecond}
}

func (sc *SystemCollector) Snapshot(ctx context.Context) types.HostSnapshot {
	var snap types.HostSnapshot

	if info, err := host.InfoWithContext(ctx); err != nil {
		slog.Warn("Failed to get host info", "error", err)
	} else {
		snap.Hostname = info.Hostname
		snap.OS = info.OS
		if info.Platform != "" {
			snap.OS = info.Platform + " " + info.PlatformVersion
		}
	}

	if pct, err := cpu.PercentWithContext(ctx, sc.cpuInterval, false); err != nil || len(pct) == 0 {
		slog.Warn("Failed to get CPU usage", "error", err)
	} else {
		snap.CPUPercent = pct[0]
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err != nil {
		slog.Warn("Failed to get memory info", "error", err)
	} else {
		snap.MemoryPercent = vm.UsedPercent
	}

	return snap
}
