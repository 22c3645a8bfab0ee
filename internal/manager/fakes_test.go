package manager

import (
	"context"
	"sync/atomic"

	"sysdash/internal/sources"
)

// fakePlatform serves canned records. A facet listed in errs fails with that
// error; a facet named in panics panics.
type fakePlatform struct {
	os       sources.OSRecord
	hw       sources.HardwareRecord
	cpu      sources.CPURecord
	modules  []sources.MemoryModuleRecord
	battery  *sources.BatteryRecord
	adapters []sources.DisplayAdapterRecord
	disks    []sources.DiskRecord
	volumes  []sources.VolumeRecord
	network  []sources.NetworkRecord

	errs   map[string]error
	panics map[string]bool
}

func (f *fakePlatform) fail(facet string) error {
	if f.panics[facet] {
		panic("boom in " + facet)
	}
	return f.errs[facet]
}

func (f *fakePlatform) OS(context.Context) (sources.OSRecord, error) {
	return f.os, f.fail("os")
}

func (f *fakePlatform) Hardware(context.Context) (sources.HardwareRecord, error) {
	return f.hw, f.fail("hardware")
}

func (f *fakePlatform) CPU(context.Context) (sources.CPURecord, error) {
	return f.cpu, f.fail("cpu")
}

func (f *fakePlatform) MemoryModules(context.Context) ([]sources.MemoryModuleRecord, error) {
	return f.modules, f.fail("modules")
}

func (f *fakePlatform) Battery(context.Context) (*sources.BatteryRecord, error) {
	return f.battery, f.fail("battery")
}

func (f *fakePlatform) DisplayAdapters(context.Context) ([]sources.DisplayAdapterRecord, error) {
	return f.adapters, f.fail("adapters")
}

func (f *fakePlatform) PhysicalDisks(context.Context) ([]sources.DiskRecord, error) {
	return f.disks, f.fail("disks")
}

func (f *fakePlatform) Volumes(context.Context) ([]sources.VolumeRecord, error) {
	return f.volumes, f.fail("volumes")
}

func (f *fakePlatform) NetworkAdapters(context.Context) ([]sources.NetworkRecord, error) {
	return f.network, f.fail("network")
}

type fakeUsage struct {
	cpuPercent float64
	memory     sources.MemoryRecord
	load       sources.LoadRecord
	host       sources.HostStatsRecord
	process    sources.ProcessRecord
	errs       map[string]error
}

func (f *fakeUsage) CPUPercent(context.Context) (float64, error) {
	return f.cpuPercent, f.errs["cpu_percent"]
}

func (f *fakeUsage) Memory(context.Context) (sources.MemoryRecord, error) {
	return f.memory, f.errs["memory"]
}

func (f *fakeUsage) Load(context.Context) (sources.LoadRecord, error) {
	return f.load, f.errs["load"]
}

func (f *fakeUsage) HostStats(context.Context) (sources.HostStatsRecord, error) {
	return f.host, f.errs["host"]
}

func (f *fakeUsage) Process(context.Context) (sources.ProcessRecord, error) {
	return f.process, f.errs["process"]
}

type fakeGPUSource struct {
	name    string
	records []sources.GPUStatRecord
	err     error
	calls   atomic.Int32
}

func (f *fakeGPUSource) Name() string { return f.name }

func (f *fakeGPUSource) GPUStats(context.Context) ([]sources.GPUStatRecord, error) {
	f.calls.Add(1)
	return f.records, f.err
}

func healthyPlatform() *fakePlatform {
	return &fakePlatform{
		os: sources.OSRecord{
			Name: "Microsoft Windows 11 Pro", Build: "22631", DisplayVersion: "23H2",
			Architecture: "64-bit", HostName: "DESKTOP-01",
		},
		hw: sources.HardwareRecord{
			SystemFamily: "ThinkPad X1", Manufacturer: "LENOVO", Model: "21CB",
			ServiceTag: "PF3ABCDE", BIOSVersion: "N3AET75W", BoardMaker: "LENOVO", BoardModel: "21CBCTO1WW",
		},
		cpu: sources.CPURecord{
			Name: "12th Gen Intel(R) Core(TM) i7-1260P", Manufacturer: "GenuineIntel",
			Cores: 12, LogicalProcessors: 16, MaxClockMHz: 2100, CurrentClockMHz: 1800,
		},
		modules: []sources.MemoryModuleRecord{
			{Bank: "BANK 0", Manufacturer: "Samsung", PartNumber: "M425R1GB4BB0-CQKOL", CapacityBytes: 16 * bytesPerGB, SpeedMHz: 4800, Type: "DDR5"},
		},
		battery: &sources.BatteryRecord{
			Name: "5B10W13930", Status: ptr(2), DesignCapacity: ptr(int64(50000)),
			FullChargeCapacity: ptr(int64(45000)), ChargePercent: ptr(87),
		},
		adapters: []sources.DisplayAdapterRecord{
			{Name: "NVIDIA GeForce RTX 3080", DriverVersion: "31.0.15.3623", AdapterRAM: ptr(int64(-2147483648)),
				HorizontalRes: 2560, VerticalRes: 1440, RefreshRate: 144},
			{Name: "Intel(R) Iris(R) Xe Graphics", AdapterRAM: ptr(int64(64 * bytesPerMB))},
		},
		disks: []sources.DiskRecord{
			{Model: "Samsung SSD 980 PRO 1TB", InterfaceType: "SCSI", SizeBytes: ptr(uint64(1000202273280)), Firmware: "5B2QGXA7", Serial: "S5GXNX0T123456"},
		},
		volumes: []sources.VolumeRecord{
			{DeviceID: "C:", TotalBytes: 999 * bytesPerGB, FreeBytes: 400 * bytesPerGB, FileSystem: "NTFS"},
		},
		network: []sources.NetworkRecord{
			{Description: "Intel(R) Wi-Fi 6E AX211 160MHz", MAC: "AA:BB:CC:DD:EE:FF",
				IPs: []string{"192.168.1.20", "fe80::1"}, Gateways: []string{"192.168.1.1"},
				DNSServers: []string{"192.168.1.1"}, DHCPEnabled: ptr(true)},
		},
	}
}

func healthyUsage() *fakeUsage {
	return &fakeUsage{
		cpuPercent: 12.34,
		memory: sources.MemoryRecord{
			Total: 32 * bytesPerGB, Available: 20 * bytesPerGB, Used: 12 * bytesPerGB, Percent: 37.5,
		},
		load:    sources.LoadRecord{Load1: 0.51, Load5: 0.42, Load15: 0.333},
		host:    sources.HostStatsRecord{UptimeSeconds: 3600, ProcessCount: 312},
		process: sources.ProcessRecord{PID: 4242, RSSBytes: 24 * bytesPerMB, CPUPercent: 0.25, Threads: 14},
	}
}
