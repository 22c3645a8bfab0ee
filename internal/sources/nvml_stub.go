//go:build !(linux && cgo)

package sources

import (
	"context"
	"fmt"
	"runtime"
)

// NVML is unavailable without cgo on Linux; the stub keeps the builder wiring
// identical on every platform.
type NVML struct{}

func NewNVML() *NVML { return &NVML{} }

func (n *NVML) Name() string { return "nvml" }

func (n *NVML) GPUStats(ctx context.Context) ([]GPUStatRecord, error) {
	return nil, fmt.Errorf("nvml on %s: %w", runtime.GOOS, ErrUnavailable)
}
