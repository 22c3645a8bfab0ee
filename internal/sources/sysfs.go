//go:build !windows

package sources

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// sysfsRoot is swapped in tests.
var sysfsRoot = "/sys"

func sysPath(elem ...string) string {
	return filepath.Join(append([]string{sysfsRoot}, elem...)...)
}

// readSysfsString reads a single-line sysfs file and returns its trimmed
// content. Returns "" on any error.
func readSysfsString(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// readSysfsInt64 reads a 64-bit integer from a sysfs file.
func readSysfsInt64(path string) (int64, bool) {
	value := readSysfsString(path)
	if value == "" {
		return 0, false
	}
	result, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, false
	}
	return result, true
}

// readFirstLine returns the first non-empty line of a sysfs file.
func readFirstLine(path string) string {
	for _, line := range strings.Split(readSysfsString(path), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}

// isCardDevice returns true for DRM card device names (card0, card1, ...)
// but not connectors (card0-DP-1) or render nodes (renderD128).
func isCardDevice(name string) bool {
	if !strings.HasPrefix(name, "card") {
		return false
	}
	suffix := name[4:]
	if len(suffix) == 0 {
		return false
	}
	for _, character := range suffix {
		if character < '0' || character > '9' {
			return false
		}
	}
	return true
}

// pciVendorName maps a PCI vendor ID to the short name vendor tools use.
func pciVendorName(vendorID string) string {
	switch strings.ToLower(strings.TrimPrefix(vendorID, "0x")) {
	case "1002":
		return "AMD"
	case "10de":
		return "NVIDIA"
	case "8086":
		return "Intel"
	default:
		return ""
	}
}

// unknownToEmpty folds the "unknown" placeholder ghw uses into "".
func unknownToEmpty(s string) string {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "unknown") {
		return ""
	}
	return s
}
