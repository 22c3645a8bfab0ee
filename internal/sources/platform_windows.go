//go:build windows

package sources

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	wmi "github.com/StackExchange/wmi"
	"golang.org/x/sys/windows/registry"
)

// wmiQueryTimeout bounds a single WMI query so a wedged provider only delays
// the facet it serves.
const wmiQueryTimeout = 10 * time.Second

var runWMIQuery = func(query string, dst interface{}) error { return wmi.Query(query, dst) }

const currentVersionKey = `SOFTWARE\Microsoft\Windows NT\CurrentVersion`

type win32OperatingSystem struct {
	Caption        string
	BuildNumber    string
	OSArchitecture string
	CSName         string
}

type win32ComputerSystem struct {
	Manufacturer string
	Model        string
	SystemFamily *string
}

// win32ComputerSystemLegacy is used on builds that predate SystemFamily.
type win32ComputerSystemLegacy struct {
	Manufacturer string
	Model        string
}

type win32BIOS struct {
	SerialNumber      string
	SMBIOSBIOSVersion string
}

type win32BaseBoard struct {
	Manufacturer string
	Product      string
}

type win32Processor struct {
	Name                      string
	Manufacturer              string
	NumberOfCores             *uint32
	NumberOfLogicalProcessors *uint32
	MaxClockSpeed             *uint32
	CurrentClockSpeed         *uint32
}

type win32PhysicalMemory struct {
	BankLabel        string
	Manufacturer     string
	PartNumber       string
	Capacity         *uint64
	Speed            *uint32
	SMBIOSMemoryType *uint32
}

type win32Battery struct {
	Name                     string
	BatteryStatus            *uint16
	EstimatedChargeRemaining *uint16
	DesignCapacity           *uint32
	FullChargeCapacity       *uint32
}

// win32VideoController.AdapterRAM is declared signed: WMI hands the uint32
// property back as a VT_I4, so cards with 2 GiB or more come through negative.
type win32VideoController struct {
	Name                        string
	DriverVersion               string
	VideoProcessor              string
	AdapterRAM                  *int32
	CurrentHorizontalResolution *uint32
	CurrentVerticalResolution   *uint32
	CurrentRefreshRate          *uint32
}

type win32DiskDrive struct {
	Model            string
	InterfaceType    string
	Size             *uint64
	FirmwareRevision string
	SerialNumber     string
}

type win32LogicalDisk struct {
	DeviceID   string
	FileSystem string
	Size       *uint64
	FreeSpace  *uint64
}

type win32NetworkAdapterConfiguration struct {
	Description          string
	MACAddress           string
	IPAddress            []string
	DefaultIPGateway     []string
	DNSServerSearchOrder []string
	DHCPEnabled          bool
}

// Platform is the OS management interface on Windows, backed by WMI and
// the registry.
type Platform struct{}

func NewPlatform() *Platform { return &Platform{} }

// wmiRow is a row struct whose field names are the selected properties of
// the WMI class it names.
type wmiRow interface {
	wmiClass() string
}

func (win32OperatingSystem) wmiClass() string { return "Win32_OperatingSystem" }
func (win32ComputerSystem) wmiClass() string { return "Win32_ComputerSystem" }
func (win32ComputerSystemLegacy) wmiClass() string { return "Win32_ComputerSystem" }
func (win32BIOS) wmiClass() string { return "Win32_BIOS" }
func (win32BaseBoard) wmiClass() string { return "Win32_BaseBoard" }
func (win32Processor) wmiClass() string { return "Win32_Processor" }
func (win32PhysicalMemory) wmiClass() string { return "Win32_PhysicalMemory" }
func (win32Battery) wmiClass() string { return "Win32_Battery" }
func (win32VideoController) wmiClass() string { return "Win32_VideoController" }
func (win32DiskDrive) wmiClass() string { return "Win32_DiskDrive" }
func (win32LogicalDisk) wmiClass() string { return "Win32_LogicalDisk" }
func (win32NetworkAdapterConfiguration) wmiClass() string { return "Win32_NetworkAdapterConfiguration" }

// wmiQuery builds the WQL for T: its fields, its class, an optional WHERE.
func wmiQuery[T wmiRow](where string) string {
	var zero T
	return wmi.CreateQuery(&[]T{}, where, zero.wmiClass())
}

type wmiResult[T any] struct {
	rows []T
	err  error
}

// queryWMI runs the query for T, giving up after wmiQueryTimeout or when ctx
// ends. wmi.Query cannot be cancelled; an abandoned query finishes in the
// background into its own slice.
func queryWMI[T wmiRow](ctx context.Context, where string) ([]T, error) {
	q := wmiQuery[T](where)
	ctx, cancel := context.WithTimeout(ctx, wmiQueryTimeout)
	defer cancel()

	done := make(chan wmiResult[T], 1)
	go func() {
		var rows []T
		err := runWMIQuery(q, &rows)
		done <- wmiResult[T]{rows: rows, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			return nil, fmt.Errorf("wmi %q: %w", q, res.err)
		}
		return res.rows, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("wmi %q: %w", q, ctx.Err())
	}
}

func (p *Platform) OS(ctx context.Context) (OSRecord, error) {
	rows, err := queryWMI[win32OperatingSystem](ctx, "")
	if err != nil {
		return OSRecord{}, err
	}
	if len(rows) == 0 {
		return OSRecord{}, errors.New("Win32_OperatingSystem returned no rows")
	}
	os := rows[0]
	return OSRecord{
		Name:           os.Caption,
		Build:          os.BuildNumber,
		DisplayVersion: displayVersion(),
		Architecture:   os.OSArchitecture,
		HostName:       os.CSName,
	}, nil
}

// displayVersion reads the feature-update label (e.g. "23H2"), which WMI
// does not expose.
func displayVersion() string {
	k, err := registry.OpenKey(registry.LOCAL_MACHINE, currentVersionKey, registry.QUERY_VALUE)
	if err != nil {
		return ""
	}
	defer k.Close()
	v, _, err := k.GetStringValue("DisplayVersion")
	if err != nil {
		return ""
	}
	return v
}

func (p *Platform) Hardware(ctx context.Context) (HardwareRecord, error) {
	var rec HardwareRecord
	var errs []error

	systems, err := queryWMI[win32ComputerSystem](ctx, "")
	if err == nil && len(systems) > 0 {
		rec.Manufacturer = systems[0].Manufacturer
		rec.Model = systems[0].Model
		if systems[0].SystemFamily != nil {
			rec.SystemFamily = *systems[0].SystemFamily
		}
	} else {
		legacy, lerr := queryWMI[win32ComputerSystemLegacy](ctx, "")
		if lerr == nil && len(legacy) > 0 {
			rec.Manufacturer = legacy[0].Manufacturer
			rec.Model = legacy[0].Model
		} else {
			errs = append(errs, fmt.Errorf("computer system: %w", errOrEmpty(errors.Join(err, lerr))))
		}
	}

	bios, err := queryWMI[win32BIOS](ctx, "")
	if err == nil && len(bios) > 0 {
		rec.ServiceTag = bios[0].SerialNumber
		rec.BIOSVersion = bios[0].SMBIOSBIOSVersion
	} else {
		errs = append(errs, fmt.Errorf("bios: %w", errOrEmpty(err)))
	}

	boards, err := queryWMI[win32BaseBoard](ctx, "")
	if err == nil && len(boards) > 0 {
		rec.BoardMaker = boards[0].Manufacturer
		rec.BoardModel = boards[0].Product
	} else {
		errs = append(errs, fmt.Errorf("baseboard: %w", errOrEmpty(err)))
	}

	if len(errs) == 3 {
		return HardwareRecord{}, errors.Join(errs...)
	}
	return rec, nil
}

func errOrEmpty(err error) error {
	if err != nil {
		return err
	}
	return errors.New("no rows")
}

func (p *Platform) CPU(ctx context.Context) (CPURecord, error) {
	rows, err := queryWMI[win32Processor](ctx, "")
	if err != nil {
		return CPURecord{}, err
	}
	if len(rows) == 0 {
		return CPURecord{}, errors.New("Win32_Processor returned no rows")
	}
	cpu := rows[0]
	rec := CPURecord{
		Name:         strings.TrimSpace(cpu.Name),
		Manufacturer: cpu.Manufacturer,
	}
	// Multi-socket hosts report one row per package; counts are summed.
	for _, row := range rows {
		if row.NumberOfCores != nil {
			rec.Cores += int(*row.NumberOfCores)
		}
		if row.NumberOfLogicalProcessors != nil {
			rec.LogicalProcessors += int(*row.NumberOfLogicalProcessors)
		}
	}
	if cpu.MaxClockSpeed != nil {
		rec.MaxClockMHz = float64(*cpu.MaxClockSpeed)
	}
	if cpu.CurrentClockSpeed != nil {
		rec.CurrentClockMHz = float64(*cpu.CurrentClockSpeed)
	}
	return rec, nil
}

func (p *Platform) MemoryModules(ctx context.Context) ([]MemoryModuleRecord, error) {
	rows, err := queryWMI[win32PhysicalMemory](ctx, "")
	if err != nil {
		return nil, err
	}
	modules := make([]MemoryModuleRecord, 0, len(rows))
	for _, row := range rows {
		rec := MemoryModuleRecord{
			Bank:         row.BankLabel,
			Manufacturer: row.Manufacturer,
			PartNumber:   strings.TrimSpace(row.PartNumber),
		}
		if row.Capacity != nil {
			rec.CapacityBytes = *row.Capacity
		}
		if row.Speed != nil {
			rec.SpeedMHz = *row.Speed
		}
		if row.SMBIOSMemoryType != nil {
			rec.Type = smbiosMemoryType(*row.SMBIOSMemoryType)
		}
		modules = append(modules, rec)
	}
	return modules, nil
}

// smbiosMemoryType names the SMBIOS type 17 "Memory Type" codes seen on
// desktop and laptop hardware.
func smbiosMemoryType(code uint32) string {
	switch code {
	case 20:
		return "DDR"
	case 21:
		return "DDR2"
	case 24:
		return "DDR3"
	case 26:
		return "DDR4"
	case 27:
		return "LPDDR"
	case 28:
		return "LPDDR2"
	case 29:
		return "LPDDR3"
	case 30:
		return "LPDDR4"
	case 34:
		return "DDR5"
	case 35:
		return "LPDDR5"
	default:
		return ""
	}
}

func (p *Platform) Battery(ctx context.Context) (*BatteryRecord, error) {
	rows, err := queryWMI[win32Battery](ctx, "")
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	b := rows[0]
	rec := &BatteryRecord{Name: b.Name}
	if b.BatteryStatus != nil {
		v := int(*b.BatteryStatus)
		rec.Status = &v
	}
	if b.EstimatedChargeRemaining != nil {
		v := int(*b.EstimatedChargeRemaining)
		rec.ChargePercent = &v
	}
	if b.DesignCapacity != nil {
		v := int64(*b.DesignCapacity)
		rec.DesignCapacity = &v
	}
	if b.FullChargeCapacity != nil {
		v := int64(*b.FullChargeCapacity)
		rec.FullChargeCapacity = &v
	}
	return rec, nil
}

func (p *Platform) DisplayAdapters(ctx context.Context) ([]DisplayAdapterRecord, error) {
	rows, err := queryWMI[win32VideoController](ctx, "")
	if err != nil {
		return nil, err
	}
	adapters := make([]DisplayAdapterRecord, 0, len(rows))
	for _, row := range rows {
		rec := DisplayAdapterRecord{
			Name:           row.Name,
			DriverVersion:  row.DriverVersion,
			VideoProcessor: row.VideoProcessor,
		}
		if row.AdapterRAM != nil {
			v := int64(*row.AdapterRAM)
			rec.AdapterRAM = &v
		}
		if row.CurrentHorizontalResolution != nil {
			rec.HorizontalRes = int(*row.CurrentHorizontalResolution)
		}
		if row.CurrentVerticalResolution != nil {
			rec.VerticalRes = int(*row.CurrentVerticalResolution)
		}
		if row.CurrentRefreshRate != nil {
			rec.RefreshRate = int(*row.CurrentRefreshRate)
		}
		adapters = append(adapters, rec)
	}
	return adapters, nil
}

func (p *Platform) PhysicalDisks(ctx context.Context) ([]DiskRecord, error) {
	rows, err := queryWMI[win32DiskDrive](ctx, "")
	if err != nil {
		return nil, err
	}
	disks := make([]DiskRecord, 0, len(rows))
	for _, row := range rows {
		disks = append(disks, DiskRecord{
			Model:         row.Model,
			InterfaceType: row.InterfaceType,
			SizeBytes:     row.Size,
			Firmware:      row.FirmwareRevision,
			Serial:        strings.TrimSpace(row.SerialNumber),
		})
	}
	return disks, nil
}

// Volumes lists local fixed disks (DriveType 3).
func (p *Platform) Volumes(ctx context.Context) ([]VolumeRecord, error) {
	rows, err := queryWMI[win32LogicalDisk](ctx, "WHERE DriveType = 3")
	if err != nil {
		return nil, err
	}
	volumes := make([]VolumeRecord, 0, len(rows))
	for _, row := range rows {
		rec := VolumeRecord{DeviceID: row.DeviceID, FileSystem: row.FileSystem}
		if row.Size != nil {
			rec.TotalBytes = *row.Size
		}
		if row.FreeSpace != nil {
			rec.FreeBytes = *row.FreeSpace
		}
		volumes = append(volumes, rec)
	}
	return volumes, nil
}

func (p *Platform) NetworkAdapters(ctx context.Context) ([]NetworkRecord, error) {
	rows, err := queryWMI[win32NetworkAdapterConfiguration](ctx, "WHERE IPEnabled = TRUE")
	if err != nil {
		return nil, err
	}
	adapters := make([]NetworkRecord, 0, len(rows))
	for _, row := range rows {
		dhcp := row.DHCPEnabled
		adapters = append(adapters, NetworkRecord{
			Description: row.Description,
			MAC:         row.MACAddress,
			IPs:         row.IPAddress,
			Gateways:    row.DefaultIPGateway,
			DNSServers:  row.DNSServerSearchOrder,
			DHCPEnabled: &dhcp,
		})
	}
	return adapters, nil
}
