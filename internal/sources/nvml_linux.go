//go:build linux && cgo

package sources

import (
	"context"
	"fmt"
	"sync"

	"github.com/NVIDIA/go-nvml/pkg/nvml"
)

// nvmlMu serializes Init/Shutdown; NVML reference-counts initialization per process.
var nvmlMu sync.Mutex

// NVML is the vendor driver library source. The library is loaded and
// released within each call.
type NVML struct{}

func NewNVML() *NVML { return &NVML{} }

func (n *NVML) Name() string { return "nvml" }

func (n *NVML) GPUStats(ctx context.Context) ([]GPUStatRecord, error) {
	nvmlMu.Lock()
	defer nvmlMu.Unlock()

	if ret := nvml.Init(); ret != nvml.SUCCESS {
		return nil, fmt.Errorf("nvml init: %s: %w", nvml.ErrorString(ret), ErrUnavailable)
	}
	defer nvml.Shutdown()

	count, ret := nvml.DeviceGetCount()
	if ret != nvml.SUCCESS {
		return nil, fmt.Errorf("nvml device count: %s", nvml.ErrorString(ret))
	}

	records := make([]GPUStatRecord, 0, count)
	for i := 0; i < count; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		device, ret := nvml.DeviceGetHandleByIndex(i)
		if ret != nvml.SUCCESS {
			continue
		}
		name, ret := device.GetName()
		if ret != nvml.SUCCESS || name == "" {
			continue
		}
		rec := GPUStatRecord{Name: name}
		if memory, ret := device.GetMemoryInfo(); ret == nvml.SUCCESS {
			mb := memory.Total / (1024 * 1024)
			rec.MemoryTotalMB = &mb
		}
		if util, ret := device.GetUtilizationRates(); ret == nvml.SUCCESS {
			load := float64(util.Gpu)
			rec.LoadPercent = &load
		}
		if temp, ret := device.GetTemperature(nvml.TEMPERATURE_GPU); ret == nvml.SUCCESS {
			t := float64(temp)
			rec.TemperatureC = &t
		}
		records = append(records, rec)
	}
	return records, nil
}
