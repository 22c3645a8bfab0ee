// Package models holds the telemetry snapshot served by the dashboard API.
package models

import (
	"strings"
	"time"
)

// NotAvailable is the placeholder for string fields a source could not provide.
const NotAvailable = "N/A"

// Snapshot is one complete collection cycle. It is never mutated after the
// builder hands it to the cache; the next cycle replaces it wholesale.
type Snapshot struct {
	Timestamp time.Time        `json:"timestamp"`
	OS        OSInfo           `json:"os"`
	Hardware  HardwareInfo     `json:"hw"`
	CPU       CPUInfo          `json:"cpu"`
	RAM       RAMInfo          `json:"ram"`
	Battery   *BatteryInfo     `json:"battery"`
	GPUs      []GPUInfo        `json:"gpus"`
	Disks     DiskInfo         `json:"disks"`
	Network   []NetworkAdapter `json:"network"`
	Agent     AgentInfo        `json:"agent"`
}

// OSInfo describes the running operating system.
type OSInfo struct {
	Name           string  `json:"name"`
	Build          string  `json:"build"`
	DisplayVersion string  `json:"display_version"`
	Arch           string  `json:"arch"`
	HostName       string  `json:"host_name"`
	UptimeSeconds  *uint64 `json:"uptime_seconds"`
	ProcessCount   *uint64 `json:"process_count"`
}

// HardwareInfo is the system/board/BIOS identity block.
type HardwareInfo struct {
	SystemFamily string `json:"system_family"`
	Manufacturer string `json:"manufacturer"`
	Model        string `json:"model"`
	ServiceTag   string `json:"service_tag"`
	BIOSVersion  string `json:"bios_version"`
	BoardMaker   string `json:"board_maker"`
	BoardModel   string `json:"board_model"`
	NodeName     string `json:"node_name"`
}

type CPUInfo struct {
	Name              string       `json:"name"`
	Manufacturer      string       `json:"manufacturer"`
	Cores             *int         `json:"cores"`
	LogicalProcessors *int         `json:"logical_processors"`
	MaxClockMHz       *float64     `json:"max_clock_mhz"`
	CurrentClockMHz   *float64     `json:"current_clock_mhz"`
	Percent           *float64     `json:"percent"`
	LoadAvg           *LoadAverage `json:"load_avg"`
}

type LoadAverage struct {
	Load1  float64 `json:"load1"`
	Load5  float64 `json:"load5"`
	Load15 float64 `json:"load15"`
}

// RAMInfo capacities are GiB rounded to two decimals.
type RAMInfo struct {
	TotalGB     *float64       `json:"total_gb"`
	AvailableGB *float64       `json:"available_gb"`
	UsedGB      *float64       `json:"used_gb"`
	Percent     *float64       `json:"percent"`
	Modules     []MemoryModule `json:"modules"`
}

type MemoryModule struct {
	Bank         string   `json:"bank"`
	Manufacturer string   `json:"manufacturer"`
	PartNumber   string   `json:"part_number"`
	CapacityGB   *float64 `json:"capacity_gb"`
	SpeedMHz     *uint32  `json:"speed_mhz"`
	Type         string   `json:"type"`
}

// BatteryInfo capacities are in mWh as reported by the platform.
type BatteryInfo struct {
	Name               string   `json:"name"`
	Status             *int     `json:"status"`
	DesignCapacity     *int64   `json:"design_capacity"`
	FullChargeCapacity *int64   `json:"full_charge_capacity"`
	WearPercent        *float64 `json:"wear_percent"`
	ChargePercent      *int     `json:"charge_percent"`
}

// GPUInfo carries VRAM as seen by each source separately so they can be compared.
type GPUInfo struct {
	Index          int      `json:"index"`
	Name           string   `json:"name"`
	VRAMOSMB       *uint64  `json:"vram_os_mb"`
	VRAMToolMB     *uint64  `json:"vram_tool_mb"`
	VRAMDriverMB   *uint64  `json:"vram_driver_mb"`
	VRAM           string   `json:"vram"`
	Driver         string   `json:"driver"`
	Resolution     string   `json:"resolution"`
	LoadPercent    *float64 `json:"load"`
	TemperatureC   *float64 `json:"temp"`
	VideoProcessor string   `json:"video_processor"`
}

type DiskInfo struct {
	Physical []PhysicalDisk `json:"physical"`
	Volumes  []Volume       `json:"volumes"`
}

type PhysicalDisk struct {
	Model     string   `json:"model"`
	Interface string   `json:"interface"`
	SizeGB    *float64 `json:"size_gb"`
	Firmware  string   `json:"firmware"`
	Serial    string   `json:"serial"`
}

type Volume struct {
	DeviceID   string   `json:"device_id"`
	TotalGB    *float64 `json:"total_gb"`
	FreeGB     *float64 `json:"free_gb"`
	FileSystem string   `json:"filesystem"`
}

type NetworkAdapter struct {
	Description string   `json:"description"`
	MAC         string   `json:"mac"`
	IPs         []string `json:"ips"`
	Gateways    []string `json:"gateways"`
	DNSServers  []string `json:"dns_servers"`
	DHCPEnabled *bool    `json:"dhcp_enabled"`
}

// AgentInfo is the resource usage of the sysdash process itself.
type AgentInfo struct {
	PID        int32    `json:"pid"`
	RSSMB      *float64 `json:"rss_mb"`
	CPUPercent *float64 `json:"cpu_percent"`
	Threads    *int32   `json:"threads"`
}

// OrNA returns s trimmed, or NotAvailable when nothing is left.
func OrNA(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return NotAvailable
	}
	return s
}

// NewEmptySnapshot returns a snapshot with every field at its unknown value.
func NewEmptySnapshot(ts time.Time) *Snapshot {
	return &Snapshot{
		Timestamp: ts.UTC(),
		OS: OSInfo{
			Name:           NotAvailable,
			Build:          NotAvailable,
			DisplayVersion: NotAvailable,
			Arch:           NotAvailable,
			HostName:       NotAvailable,
		},
		Hardware: HardwareInfo{
			SystemFamily: NotAvailable,
			Manufacturer: NotAvailable,
			Model:        NotAvailable,
			ServiceTag:   NotAvailable,
			BIOSVersion:  NotAvailable,
			BoardMaker:   NotAvailable,
			BoardModel:   NotAvailable,
			NodeName:     NotAvailable,
		},
		CPU: CPUInfo{
			Name:         NotAvailable,
			Manufacturer: NotAvailable,
		},
		RAM:     RAMInfo{Modules: []MemoryModule{}},
		GPUs:    []GPUInfo{},
		Disks:   DiskInfo{Physical: []PhysicalDisk{}, Volumes: []Volume{}},
		Network: []NetworkAdapter{},
	}
}
