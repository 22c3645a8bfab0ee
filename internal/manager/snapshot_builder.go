package manager

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/samber/lo"

	"sysdash/internal/models"
	"sysdash/internal/sources"
)

// Platform is the OS management interface: inventory and configuration.
type Platform interface {
	OS(ctx context.Context) (sources.OSRecord, error)
	Hardware(ctx context.Context) (sources.HardwareRecord, error)
	CPU(ctx context.Context) (sources.CPURecord, error)
	MemoryModules(ctx context.Context) ([]sources.MemoryModuleRecord, error)
	Battery(ctx context.Context) (*sources.BatteryRecord, error)
	DisplayAdapters(ctx context.Context) ([]sources.DisplayAdapterRecord, error)
	PhysicalDisks(ctx context.Context) ([]sources.DiskRecord, error)
	Volumes(ctx context.Context) ([]sources.VolumeRecord, error)
	NetworkAdapters(ctx context.Context) ([]sources.NetworkRecord, error)
}

// Usage is the process/resource usage interface: live utilization figures.
type Usage interface {
	CPUPercent(ctx context.Context) (float64, error)
	Memory(ctx context.Context) (sources.MemoryRecord, error)
	Load(ctx context.Context) (sources.LoadRecord, error)
	HostStats(ctx context.Context) (sources.HostStatsRecord, error)
	Process(ctx context.Context) (sources.ProcessRecord, error)
}

// GPUStatsSource is a vendor GPU interface: a monitoring tool or a driver
// library.
type GPUStatsSource interface {
	Name() string
	GPUStats(ctx context.Context) ([]sources.GPUStatRecord, error)
}

// Sources are the adapters a SnapshotBuilder draws from. The GPU sources are
// optional.
type Sources struct {
	Platform       Platform
	Usage          Usage
	MonitoringTool GPUStatsSource
	DriverLibrary  GPUStatsSource
}

// SnapshotBuilder assembles one snapshot per call from every source. A
// failing source only blanks the facet it serves.
type SnapshotBuilder struct {
	src      Sources
	logf     func(string)
	now      func() time.Time
	hostname func() (string, error)

	mu          sync.Mutex
	unavailable map[string]bool
	lastErr     map[string]string
}

// NewSnapshotBuilder returns a builder over src. logf receives one line per
// noteworthy source failure; nil discards them.
func NewSnapshotBuilder(src Sources, logf func(string)) *SnapshotBuilder {
	if logf == nil {
		logf = func(string) {}
	}
	return &SnapshotBuilder{
		src:         src,
		logf:        logf,
		now:         time.Now,
		hostname:    os.Hostname,
		unavailable: make(map[string]bool),
		lastErr:     make(map[string]string),
	}
}

// Build collects a full snapshot. Source failures become sentinel values in
// the result; the only error returned is ctx's.
func (b *SnapshotBuilder) Build(ctx context.Context) (*models.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := models.NewEmptySnapshot(b.now())

	b.fillOS(ctx, s)
	b.fillHardware(ctx, s)
	b.fillCPU(ctx, s)
	b.fillRAM(ctx, s)
	b.fillBattery(ctx, s)
	b.fillGPUs(ctx, s)
	b.fillDisks(ctx, s)
	b.fillNetwork(ctx, s)
	b.fillAgent(ctx, s)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s, nil
}

// fetch runs one facet query, recovering a panic into an error, and reports
// the outcome. ok is false when the facet must fall back to its sentinel.
func fetch[T any](ctx context.Context, b *SnapshotBuilder, facet string, fn func(context.Context) (T, error)) (value T, ok bool) {
	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		value, err = fn(ctx)
	}()
	b.report(facet, err)
	if err != nil {
		var zero T
		return zero, false
	}
	return value, true
}

// report logs unavailable sources once, and other failures only when the
// message changes, so a persistently broken source does not flood the log.
func (b *SnapshotBuilder) report(facet string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err == nil {
		if prev, had := b.lastErr[facet]; had {
			delete(b.lastErr, facet)
			b.logf(fmt.Sprintf("Telemetry: %s recovered (last error: %s)", facet, prev))
		}
		return
	}
	if errors.Is(err, sources.ErrUnavailable) {
		if !b.unavailable[facet] {
			b.unavailable[facet] = true
			b.logf(fmt.Sprintf("Telemetry: %s unavailable on this host: %v", facet, err))
		}
		return
	}
	msg := err.Error()
	if b.lastErr[facet] == msg {
		return
	}
	b.lastErr[facet] = msg
	b.logf(fmt.Sprintf("Telemetry: %s failed: %s", facet, msg))
}

func (b *SnapshotBuilder) fillOS(ctx context.Context, s *models.Snapshot) {
	if rec, ok := fetch(ctx, b, "os", b.src.Platform.OS); ok {
		s.OS.Name = models.OrNA(rec.Name)
		s.OS.Build = models.OrNA(rec.Build)
		s.OS.DisplayVersion = models.OrNA(rec.DisplayVersion)
		s.OS.Arch = models.OrNA(rec.Architecture)
		s.OS.HostName = models.OrNA(rec.HostName)
	}
	if rec, ok := fetch(ctx, b, "host stats", b.src.Usage.HostStats); ok {
		s.OS.UptimeSeconds = positive(rec.UptimeSeconds)
		s.OS.ProcessCount = positive(rec.ProcessCount)
	}
}

func (b *SnapshotBuilder) fillHardware(ctx context.Context, s *models.Snapshot) {
	if rec, ok := fetch(ctx, b, "hardware", b.src.Platform.Hardware); ok {
		s.Hardware.SystemFamily = models.OrNA(rec.SystemFamily)
		s.Hardware.Manufacturer = models.OrNA(rec.Manufacturer)
		s.Hardware.Model = models.OrNA(rec.Model)
		s.Hardware.ServiceTag = models.OrNA(rec.ServiceTag)
		s.Hardware.BIOSVersion = models.OrNA(rec.BIOSVersion)
		s.Hardware.BoardMaker = models.OrNA(rec.BoardMaker)
		s.Hardware.BoardModel = models.OrNA(rec.BoardModel)
	}
	if name, err := b.hostname(); err == nil {
		s.Hardware.NodeName = models.OrNA(name)
	}
}

func (b *SnapshotBuilder) fillCPU(ctx context.Context, s *models.Snapshot) {
	if rec, ok := fetch(ctx, b, "cpu", b.src.Platform.CPU); ok {
		s.CPU.Name = models.OrNA(rec.Name)
		s.CPU.Manufacturer = models.OrNA(rec.Manufacturer)
		s.CPU.Cores = positive(rec.Cores)
		s.CPU.LogicalProcessors = positive(rec.LogicalProcessors)
		s.CPU.MaxClockMHz = positive(rec.MaxClockMHz)
		s.CPU.CurrentClockMHz = positive(rec.CurrentClockMHz)
	}
	if pct, ok := fetch(ctx, b, "cpu usage", b.src.Usage.CPUPercent); ok {
		s.CPU.Percent = ptr(roundTo(pct, 1))
	}
	if rec, ok := fetch(ctx, b, "load average", b.src.Usage.Load); ok {
		s.CPU.LoadAvg = &models.LoadAverage{
			Load1:  roundTo(rec.Load1, 2),
			Load5:  roundTo(rec.Load5, 2),
			Load15: roundTo(rec.Load15, 2),
		}
	}
}

func (b *SnapshotBuilder) fillRAM(ctx context.Context, s *models.Snapshot) {
	if rec, ok := fetch(ctx, b, "memory", b.src.Usage.Memory); ok && rec.Total > 0 {
		s.RAM.TotalGB = bytesToGBPtr(rec.Total)
		s.RAM.AvailableGB = bytesToGBPtr(rec.Available)
		s.RAM.UsedGB = bytesToGBPtr(rec.Used)
		s.RAM.Percent = ptr(roundTo(rec.Percent, 1))
	}
	if mods, ok := fetch(ctx, b, "memory modules", b.src.Platform.MemoryModules); ok {
		s.RAM.Modules = lo.Map(mods, func(m sources.MemoryModuleRecord, _ int) models.MemoryModule {
			mod := models.MemoryModule{
				Bank:         models.OrNA(m.Bank),
				Manufacturer: models.OrNA(m.Manufacturer),
				PartNumber:   models.OrNA(m.PartNumber),
				SpeedMHz:     positive(m.SpeedMHz),
				Type:         models.OrNA(m.Type),
			}
			if m.CapacityBytes > 0 {
				mod.CapacityGB = bytesToGBPtr(m.CapacityBytes)
			}
			return mod
		})
	}
}

func (b *SnapshotBuilder) fillBattery(ctx context.Context, s *models.Snapshot) {
	rec, ok := fetch(ctx, b, "battery", b.src.Platform.Battery)
	if !ok || rec == nil {
		return
	}
	s.Battery = &models.BatteryInfo{
		Name:               models.OrNA(rec.Name),
		Status:             rec.Status,
		DesignCapacity:     rec.DesignCapacity,
		FullChargeCapacity: rec.FullChargeCapacity,
		WearPercent:        wearPercent(rec.DesignCapacity, rec.FullChargeCapacity),
		ChargePercent:      rec.ChargePercent,
	}
}

func (b *SnapshotBuilder) fillGPUs(ctx context.Context, s *models.Snapshot) {
	adapters, ok := fetch(ctx, b, "display adapters", b.src.Platform.DisplayAdapters)
	if !ok || len(adapters) == 0 {
		return
	}
	tool := b.gpuStats(ctx, "GPU monitoring tool", b.src.MonitoringTool)
	driver := b.gpuStats(ctx, "GPU driver library", b.src.DriverLibrary)
	s.GPUs = reconcileGPUs(adapters, tool, driver)
}

func (b *SnapshotBuilder) gpuStats(ctx context.Context, kind string, src GPUStatsSource) []sources.GPUStatRecord {
	if src == nil {
		return nil
	}
	records, _ := fetch(ctx, b, fmt.Sprintf("%s (%s)", kind, src.Name()), src.GPUStats)
	return records
}

func (b *SnapshotBuilder) fillDisks(ctx context.Context, s *models.Snapshot) {
	if disks, ok := fetch(ctx, b, "physical disks", b.src.Platform.PhysicalDisks); ok {
		s.Disks.Physical = lo.Map(disks, func(d sources.DiskRecord, _ int) models.PhysicalDisk {
			disk := models.PhysicalDisk{
				Model:     models.OrNA(d.Model),
				Interface: models.OrNA(d.InterfaceType),
				Firmware:  models.OrNA(d.Firmware),
				Serial:    models.OrNA(d.Serial),
			}
			if d.SizeBytes != nil {
				disk.SizeGB = bytesToGBPtr(*d.SizeBytes)
			}
			return disk
		})
	}
	if vols, ok := fetch(ctx, b, "volumes", b.src.Platform.Volumes); ok {
		s.Disks.Volumes = lo.Map(vols, func(v sources.VolumeRecord, _ int) models.Volume {
			return models.Volume{
				DeviceID:   models.OrNA(v.DeviceID),
				TotalGB:    bytesToGBPtr(v.TotalBytes),
				FreeGB:     bytesToGBPtr(v.FreeBytes),
				FileSystem: models.OrNA(v.FileSystem),
			}
		})
	}
}

func (b *SnapshotBuilder) fillNetwork(ctx context.Context, s *models.Snapshot) {
	adapters, ok := fetch(ctx, b, "network adapters", b.src.Platform.NetworkAdapters)
	if !ok {
		return
	}
	s.Network = lo.Map(adapters, func(a sources.NetworkRecord, _ int) models.NetworkAdapter {
		return models.NetworkAdapter{
			Description: models.OrNA(a.Description),
			MAC:         models.OrNA(a.MAC),
			IPs:         nonNil(a.IPs),
			Gateways:    nonNil(a.Gateways),
			DNSServers:  nonNil(a.DNSServers),
			DHCPEnabled: a.DHCPEnabled,
		}
	})
}

func (b *SnapshotBuilder) fillAgent(ctx context.Context, s *models.Snapshot) {
	s.Agent.PID = int32(os.Getpid())
	rec, ok := fetch(ctx, b, "agent process", b.src.Usage.Process)
	if !ok {
		return
	}
	s.Agent.PID = rec.PID
	s.Agent.RSSMB = ptr(bytesToMB(rec.RSSBytes))
	s.Agent.CPUPercent = ptr(roundTo(rec.CPUPercent, 1))
	s.Agent.Threads = positive(rec.Threads)
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
