package manager

import (
	"fmt"
	"strings"

	"github.com/samber/lo"

	"sysdash/internal/models"
	"sysdash/internal/sources"
)

// sharedVRAMThresholdMB is the OS-reported size at or below which an adapter
// is treated as using shared system memory.
const sharedVRAMThresholdMB = 100

// matchGPUStat returns the first record whose non-empty name is contained in
// the OS adapter name. Matching is case-sensitive.
func matchGPUStat(adapterName string, records []sources.GPUStatRecord) (sources.GPUStatRecord, bool) {
	return lo.Find(records, func(r sources.GPUStatRecord) bool {
		return r.Name != "" && strings.Contains(adapterName, r.Name)
	})
}

// reconcileGPUs merges OS-enumerated adapters with the monitoring tool and
// driver library records. Adapters come out in OS order; richer records that
// match nothing are dropped.
func reconcileGPUs(adapters []sources.DisplayAdapterRecord, tool, driver []sources.GPUStatRecord) []models.GPUInfo {
	gpus := make([]models.GPUInfo, 0, len(adapters))
	for i, a := range adapters {
		gpu := models.GPUInfo{
			Index:          i,
			Name:           models.OrNA(a.Name),
			VRAMOSMB:       adapterRAMToMB(a.AdapterRAM),
			Driver:         models.OrNA(a.DriverVersion),
			Resolution:     formatResolution(a.HorizontalRes, a.VerticalRes, a.RefreshRate),
			VideoProcessor: models.OrNA(a.VideoProcessor),
		}
		if rec, ok := matchGPUStat(a.Name, tool); ok {
			gpu.VRAMToolMB = rec.MemoryTotalMB
			gpu.LoadPercent = rec.LoadPercent
			gpu.TemperatureC = rec.TemperatureC
		}
		if rec, ok := matchGPUStat(a.Name, driver); ok {
			gpu.VRAMDriverMB = rec.MemoryTotalMB
			if gpu.LoadPercent == nil {
				gpu.LoadPercent = rec.LoadPercent
			}
			if gpu.TemperatureC == nil {
				gpu.TemperatureC = rec.TemperatureC
			}
		}
		gpu.VRAM = vramLabel(gpu)
		gpus = append(gpus, gpu)
	}
	return gpus
}

// vramLabel picks the most trustworthy VRAM figure for display: tool, then
// driver, then OS. A small OS figure means the adapter borrows system memory.
func vramLabel(gpu models.GPUInfo) string {
	if mb := lo.CoalesceOrEmpty(gpu.VRAMToolMB, gpu.VRAMDriverMB); mb != nil {
		return fmt.Sprintf("%d MB", *mb)
	}
	if gpu.VRAMOSMB == nil {
		return models.NotAvailable
	}
	if *gpu.VRAMOSMB > sharedVRAMThresholdMB {
		return fmt.Sprintf("%d MB", *gpu.VRAMOSMB)
	}
	return "Shared"
}

func formatResolution(h, v, refresh int) string {
	if h <= 0 || v <= 0 {
		return models.NotAvailable
	}
	if refresh > 0 {
		return fmt.Sprintf("%dx%d @ %dHz", h, v, refresh)
	}
	return fmt.Sprintf("%dx%d", h, v)
}
