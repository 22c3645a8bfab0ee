// Package sources talks to the host's hardware and OS interfaces. Every
// adapter returns raw, unnormalized records for one facet; unit conversion and
// cross-source reconciliation happen in the snapshot builder.
package sources

import "errors"

// ErrUnavailable marks a data source that cannot be reached at all on this
// host (missing tool, missing library, unsupported platform).
var ErrUnavailable = errors.New("source unavailable")

type OSRecord struct {
	Name           string
	Build          string
	DisplayVersion string
	Architecture   string
	HostName       string
}

type HardwareRecord struct {
	SystemFamily string
	Manufacturer string
	Model        string
	ServiceTag   string
	BIOSVersion  string
	BoardMaker   string
	BoardModel   string
}

// CPURecord counts and clocks are zero when the platform did not report them.
type CPURecord struct {
	Name              string
	Manufacturer      string
	Cores             int
	LogicalProcessors int
	MaxClockMHz       float64
	CurrentClockMHz   float64
}

// MemoryRecord is host memory usage in bytes.
type MemoryRecord struct {
	Total     uint64
	Available uint64
	Used      uint64
	Percent   float64
}

type MemoryModuleRecord struct {
	Bank          string
	Manufacturer  string
	PartNumber    string
	CapacityBytes uint64
	SpeedMHz      uint32
	Type          string
}

// BatteryRecord capacities are in mWh; nil pointers mean not reported.
type BatteryRecord struct {
	Name               string
	Status             *int
	DesignCapacity     *int64
	FullChargeCapacity *int64
	ChargePercent      *int
}

// DisplayAdapterRecord is one adapter as enumerated by the OS. AdapterRAM is
// the value exactly as reported, which on Windows is a 32-bit field that
// overflows for adapters with 2 GiB or more.
type DisplayAdapterRecord struct {
	Name           string
	DriverVersion  string
	VideoProcessor string
	AdapterRAM     *int64
	HorizontalRes  int
	VerticalRes    int
	RefreshRate    int
}

// GPUStatRecord is one device as reported by a vendor tool or library.
type GPUStatRecord struct {
	Name          string
	MemoryTotalMB *uint64
	LoadPercent   *float64
	TemperatureC  *float64
}

type DiskRecord struct {
	Model         string
	InterfaceType string
	SizeBytes     *uint64
	Firmware      string
	Serial        string
}

type VolumeRecord struct {
	DeviceID   string
	TotalBytes uint64
	FreeBytes  uint64
	FileSystem string
}

// NetworkRecord DHCPEnabled is nil when the platform cannot tell.
type NetworkRecord struct {
	Description string
	MAC         string
	IPs         []string
	Gateways    []string
	DNSServers  []string
	DHCPEnabled *bool
}

type LoadRecord struct {
	Load1  float64
	Load5  float64
	Load15 float64
}

type HostStatsRecord struct {
	UptimeSeconds uint64
	ProcessCount  uint64
}

type ProcessRecord struct {
	PID        int32
	RSSBytes   uint64
	CPUPercent float64
	Threads    int32
}
