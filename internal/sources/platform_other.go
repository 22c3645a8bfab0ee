//go:build !windows

package sources

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jaypipes/ghw"
	"github.com/samber/lo"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/host"
	psnet "github.com/shirou/gopsutil/v4/net"

	"sysdash/internal/utils"
)

// Platform is the OS management interface for Linux and other Unix hosts:
// ghw for hardware inventory, gopsutil for OS/volume/interface data, and
// sysfs for the few values neither exposes.
type Platform struct {
	resolvConf string
}

func NewPlatform() *Platform {
	return &Platform{resolvConf: "/etc/resolv.conf"}
}

func (p *Platform) OS(ctx context.Context) (OSRecord, error) {
	info, err := host.InfoWithContext(ctx)
	if err != nil {
		return OSRecord{}, fmt.Errorf("host info: %w", err)
	}
	name := strings.TrimSpace(info.Platform + " " + info.PlatformVersion)
	if name == "" {
		name = info.OS
	}
	return OSRecord{
		Name:           name,
		Build:          info.KernelVersion,
		DisplayVersion: info.PlatformVersion,
		Architecture:   info.KernelArch,
		HostName:       info.Hostname,
	}, nil
}

// Hardware merges DMI product, BIOS and baseboard data. It only fails when
// all three are unreadable.
func (p *Platform) Hardware(ctx context.Context) (HardwareRecord, error) {
	var rec HardwareRecord
	var errs []error

	if product, err := ghw.Product(ghw.WithDisableWarnings()); err == nil {
		rec.SystemFamily = unknownToEmpty(product.Family)
		rec.Manufacturer = unknownToEmpty(product.Vendor)
		rec.Model = unknownToEmpty(product.Name)
		rec.ServiceTag = unknownToEmpty(product.SerialNumber)
	} else {
		errs = append(errs, fmt.Errorf("product: %w", err))
	}
	if bios, err := ghw.BIOS(ghw.WithDisableWarnings()); err == nil {
		rec.BIOSVersion = unknownToEmpty(bios.Version)
	} else {
		errs = append(errs, fmt.Errorf("bios: %w", err))
	}
	if board, err := ghw.Baseboard(ghw.WithDisableWarnings()); err == nil {
		rec.BoardMaker = unknownToEmpty(board.Vendor)
		rec.BoardModel = unknownToEmpty(board.Product)
	} else {
		errs = append(errs, fmt.Errorf("baseboard: %w", err))
	}

	if len(errs) == 3 {
		return HardwareRecord{}, errors.Join(errs...)
	}
	return rec, nil
}

func (p *Platform) CPU(ctx context.Context) (CPURecord, error) {
	infos, err := cpu.InfoWithContext(ctx)
	if err != nil {
		return CPURecord{}, fmt.Errorf("cpu info: %w", err)
	}
	if len(infos) == 0 {
		return CPURecord{}, errors.New("cpu info: no processors reported")
	}
	rec := CPURecord{
		Name:         strings.TrimSpace(infos[0].ModelName),
		Manufacturer: strings.TrimSpace(infos[0].VendorID),
		MaxClockMHz:  infos[0].Mhz,
	}
	if n, err := cpu.CountsWithContext(ctx, false); err == nil {
		rec.Cores = n
	}
	if n, err := cpu.CountsWithContext(ctx, true); err == nil {
		rec.LogicalProcessors = n
	}
	cpufreq := sysPath("devices", "system", "cpu", "cpu0", "cpufreq")
	if khz, ok := readSysfsInt64(filepath.Join(cpufreq, "cpuinfo_max_freq")); ok && khz > 0 {
		rec.MaxClockMHz = float64(khz) / 1000
	}
	if khz, ok := readSysfsInt64(filepath.Join(cpufreq, "scaling_cur_freq")); ok && khz > 0 {
		rec.CurrentClockMHz = float64(khz) / 1000
	}
	return rec, nil
}

// MemoryModules lists DIMMs from SMBIOS. Speed, type and part number are not
// exposed there and stay empty.
func (p *Platform) MemoryModules(ctx context.Context) ([]MemoryModuleRecord, error) {
	info, err := ghw.Memory(ghw.WithDisableWarnings())
	if err != nil {
		return nil, fmt.Errorf("memory modules: %w", err)
	}
	modules := make([]MemoryModuleRecord, 0, len(info.Modules))
	for _, m := range info.Modules {
		if m == nil {
			continue
		}
		bank := unknownToEmpty(m.Label)
		if bank == "" {
			bank = unknownToEmpty(m.Location)
		}
		rec := MemoryModuleRecord{
			Bank:         bank,
			Manufacturer: unknownToEmpty(m.Vendor),
		}
		if m.SizeBytes > 0 {
			rec.CapacityBytes = uint64(m.SizeBytes)
		}
		modules = append(modules, rec)
	}
	return modules, nil
}

// Battery returns the first power supply of type Battery, or nil when the
// host has none.
func (p *Platform) Battery(ctx context.Context) (*BatteryRecord, error) {
	base := sysPath("class", "power_supply")
	entries, err := os.ReadDir(base)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("power supplies: %w", err)
	}
	for _, entry := range entries {
		dir := filepath.Join(base, entry.Name())
		if readSysfsString(filepath.Join(dir, "type")) != "Battery" {
			continue
		}
		return readBattery(dir, entry.Name()), nil
	}
	return nil, nil
}

func readBattery(dir, fallbackName string) *BatteryRecord {
	rec := &BatteryRecord{Name: readSysfsString(filepath.Join(dir, "model_name"))}
	if rec.Name == "" {
		rec.Name = fallbackName
	}
	if code, ok := batteryStatusCode(readSysfsString(filepath.Join(dir, "status"))); ok {
		rec.Status = &code
	}
	if pct, ok := readSysfsInt64(filepath.Join(dir, "capacity")); ok {
		v := int(pct)
		rec.ChargePercent = &v
	}

	// energy_* is in µWh; charge_* is in µAh and needs the design voltage (µV).
	if design, ok := readSysfsInt64(filepath.Join(dir, "energy_full_design")); ok {
		v := design / 1000
		rec.DesignCapacity = &v
		if full, ok := readSysfsInt64(filepath.Join(dir, "energy_full")); ok {
			f := full / 1000
			rec.FullChargeCapacity = &f
		}
		return rec
	}
	voltage, ok := readSysfsInt64(filepath.Join(dir, "voltage_min_design"))
	if !ok || voltage <= 0 {
		return rec
	}
	if design, ok := readSysfsInt64(filepath.Join(dir, "charge_full_design")); ok {
		v := design * voltage / 1_000_000_000
		rec.DesignCapacity = &v
	}
	if full, ok := readSysfsInt64(filepath.Join(dir, "charge_full")); ok {
		f := full * voltage / 1_000_000_000
		rec.FullChargeCapacity = &f
	}
	return rec
}

// batteryStatusCode maps sysfs status strings onto Win32_Battery.BatteryStatus
// codes so the dashboard reads one vocabulary.
func batteryStatusCode(status string) (int, bool) {
	switch status {
	case "Discharging":
		return 1, true
	case "Not charging":
		return 2, true
	case "Full":
		return 3, true
	case "Charging":
		return 6, true
	default:
		return 0, false
	}
}

func (p *Platform) DisplayAdapters(ctx context.Context) ([]DisplayAdapterRecord, error) {
	info, err := ghw.GPU(ghw.WithDisableWarnings())
	if err != nil {
		return nil, fmt.Errorf("graphics cards: %w", err)
	}
	adapters := make([]DisplayAdapterRecord, 0, len(info.GraphicsCards))
	for _, card := range info.GraphicsCards {
		if card == nil {
			continue
		}
		var rec DisplayAdapterRecord
		if dev := card.DeviceInfo; dev != nil {
			var vendor, product string
			if dev.Vendor != nil {
				vendor = pciVendorName(dev.Vendor.ID)
				if vendor == "" {
					vendor = dev.Vendor.Name
				}
			}
			if dev.Product != nil {
				product = dev.Product.Name
			}
			rec.Name = adapterDisplayName(vendor, product)
			rec.VideoProcessor = product
			rec.DriverVersion = driverVersion(dev.Driver)
		}
		devicePath := sysPath("bus", "pci", "devices", card.Address)
		if vram, ok := readSysfsInt64(filepath.Join(devicePath, "mem_info_vram_total")); ok {
			rec.AdapterRAM = &vram
		}
		rec.HorizontalRes, rec.VerticalRes = connectedMode(card.Address)
		adapters = append(adapters, rec)
	}
	return adapters, nil
}

// adapterDisplayName turns pci.ids naming ("GA102 [GeForce RTX 3080]") into
// the marketing name vendor tools report ("NVIDIA GeForce RTX 3080").
func adapterDisplayName(vendor, product string) string {
	name := strings.TrimSpace(product)
	if open := strings.Index(name, "["); open >= 0 {
		if end := strings.Index(name[open:], "]"); end > 1 {
			name = strings.TrimSpace(name[open+1 : open+end])
		}
	}
	vendor = strings.TrimSpace(vendor)
	if vendor != "" && !strings.HasPrefix(strings.ToLower(name), strings.ToLower(vendor)) {
		name = strings.TrimSpace(vendor + " " + name)
	}
	return name
}

func driverVersion(driver string) string {
	driver = strings.TrimSpace(driver)
	if driver == "" {
		return ""
	}
	if v := readSysfsString(sysPath("module", driver, "version")); v != "" {
		return driver + " " + v
	}
	return driver
}

// connectedMode returns the preferred mode of the first connected DRM
// connector belonging to the PCI device at address.
func connectedMode(address string) (int, int) {
	drm := sysPath("class", "drm")
	entries, err := os.ReadDir(drm)
	if err != nil {
		return 0, 0
	}
	var cardName string
	for _, entry := range entries {
		if !isCardDevice(entry.Name()) {
			continue
		}
		target, err := filepath.EvalSymlinks(filepath.Join(drm, entry.Name(), "device"))
		if err == nil && filepath.Base(target) == address {
			cardName = entry.Name()
			break
		}
	}
	if cardName == "" {
		return 0, 0
	}
	for _, entry := range entries {
		if !strings.HasPrefix(entry.Name(), cardName+"-") {
			continue
		}
		connector := filepath.Join(drm, entry.Name())
		if readSysfsString(filepath.Join(connector, "status")) != "connected" {
			continue
		}
		var w, h int
		if _, err := fmt.Sscanf(readFirstLine(filepath.Join(connector, "modes")), "%dx%d", &w, &h); err == nil {
			return w, h
		}
	}
	return 0, 0
}

func (p *Platform) PhysicalDisks(ctx context.Context) ([]DiskRecord, error) {
	info, err := ghw.Block(ghw.WithDisableWarnings())
	if err != nil {
		return nil, fmt.Errorf("block devices: %w", err)
	}
	disks := make([]DiskRecord, 0, len(info.Disks))
	for _, d := range info.Disks {
		if d == nil || isVirtualBlockDevice(d.Name) {
			continue
		}
		rec := DiskRecord{
			Model:         unknownToEmpty(d.Model),
			InterfaceType: unknownToEmpty(d.StorageController.String()),
			Serial:        unknownToEmpty(d.SerialNumber),
		}
		if d.SizeBytes > 0 {
			size := d.SizeBytes
			rec.SizeBytes = &size
		}
		rec.Firmware = readSysfsString(sysPath("block", d.Name, "device", "firmware_rev"))
		if rec.Firmware == "" {
			rec.Firmware = readSysfsString(sysPath("block", d.Name, "device", "rev"))
		}
		disks = append(disks, rec)
	}
	return disks, nil
}

func isVirtualBlockDevice(name string) bool {
	for _, prefix := range []string{"loop", "ram", "zram", "dm-", "md"} {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

func (p *Platform) Volumes(ctx context.Context) ([]VolumeRecord, error) {
	parts, err := disk.PartitionsWithContext(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("partitions: %w", err)
	}
	seen := make(map[string]bool, len(parts))
	volumes := make([]VolumeRecord, 0, len(parts))
	for _, part := range parts {
		if seen[part.Device] {
			continue
		}
		usage, err := disk.UsageWithContext(ctx, part.Mountpoint)
		if err != nil {
			continue
		}
		seen[part.Device] = true
		volumes = append(volumes, VolumeRecord{
			DeviceID:   part.Device,
			TotalBytes: usage.Total,
			FreeBytes:  usage.Free,
			FileSystem: part.Fstype,
		})
	}
	return volumes, nil
}

// NetworkAdapters lists interfaces that are up and carry an address. The
// gateway comes from the default route; DNS servers are host-wide on Unix and
// repeated on every adapter. DHCP state is not knowable here.
func (p *Platform) NetworkAdapters(ctx context.Context) ([]NetworkRecord, error) {
	ifaces, err := psnet.InterfacesWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("interfaces: %w", err)
	}
	route, routeErr := utils.DefaultRoute()
	dns := p.dnsServers()

	adapters := make([]NetworkRecord, 0, len(ifaces))
	for _, iface := range ifaces {
		if lo.Contains(iface.Flags, "loopback") || !lo.Contains(iface.Flags, "up") {
			continue
		}
		ips := lo.FilterMap(iface.Addrs, func(addr psnet.InterfaceAddr, _ int) (string, bool) {
			ip := stripPrefixLength(addr.Addr)
			return ip, ip != ""
		})
		if len(ips) == 0 {
			continue
		}
		rec := NetworkRecord{
			Description: iface.Name,
			MAC:         iface.HardwareAddr,
			IPs:         ips,
			DNSServers:  dns,
		}
		if routeErr == nil && route.Interface == iface.Name && route.Gateway != nil {
			rec.Gateways = []string{route.Gateway.String()}
		}
		adapters = append(adapters, rec)
	}
	return adapters, nil
}

func (p *Platform) dnsServers() []string {
	f, err := os.Open(p.resolvConf)
	if err != nil {
		return nil
	}
	defer f.Close()
	return parseResolvConf(f)
}

func stripPrefixLength(addr string) string {
	if idx := strings.IndexByte(addr, '/'); idx >= 0 {
		return addr[:idx]
	}
	return addr
}
