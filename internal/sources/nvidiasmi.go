package sources

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// DefaultNvidiaSMIPath is resolved through PATH.
const DefaultNvidiaSMIPath = "nvidia-smi"

const nvidiaSMITimeout = 10 * time.Second

var nvidiaSMIArgs = []string{
	"--query-gpu=name,memory.total,utilization.gpu,temperature.gpu",
	"--format=csv,noheader,nounits",
}

// NvidiaSMI is the vendor monitoring tool source. It shells out to nvidia-smi
// once per cycle and parses its CSV output.
type NvidiaSMI struct {
	path string
	run  func(ctx context.Context, path string, args ...string) ([]byte, error)
}

// NewNvidiaSMI returns a monitoring tool source. An empty path selects
// DefaultNvidiaSMIPath.
func NewNvidiaSMI(path string) *NvidiaSMI {
	if strings.TrimSpace(path) == "" {
		path = DefaultNvidiaSMIPath
	}
	return &NvidiaSMI{path: path, run: runTool}
}

func (n *NvidiaSMI) Name() string { return "nvidia-smi" }

// GPUStats returns one record per GPU in the order nvidia-smi lists them.
func (n *NvidiaSMI) GPUStats(ctx context.Context) ([]GPUStatRecord, error) {
	resolved, err := exec.LookPath(n.path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", n.path, ErrUnavailable)
	}
	ctx, cancel := context.WithTimeout(ctx, nvidiaSMITimeout)
	defer cancel()
	out, err := n.run(ctx, resolved, nvidiaSMIArgs...)
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", resolved, err)
	}
	return parseNvidiaSMI(bytes.NewReader(out))
}

func runTool(ctx context.Context, path string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, path, args...)
	hideToolWindow(cmd)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%w: %s", err, msg)
		}
		return nil, err
	}
	return out, nil
}

// parseNvidiaSMI reads "name, memory.total, utilization.gpu, temperature.gpu"
// rows. Values nvidia-smi cannot report ("[N/A]", "[Not Supported]") become nil.
func parseNvidiaSMI(r io.Reader) ([]GPUStatRecord, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	var records []GPUStatRecord
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse nvidia-smi output: %w", err)
		}
		if len(row) < 4 {
			continue
		}
		name := strings.TrimSpace(row[0])
		if name == "" {
			continue
		}
		rec := GPUStatRecord{Name: name}
		if v, ok := parseSMIFloat(row[1]); ok && v >= 0 {
			mb := uint64(v)
			rec.MemoryTotalMB = &mb
		}
		if v, ok := parseSMIFloat(row[2]); ok {
			rec.LoadPercent = &v
		}
		if v, ok := parseSMIFloat(row[3]); ok {
			rec.TemperatureC = &v
		}
		records = append(records, rec)
	}
	return records, nil
}

func parseSMIFloat(field string) (float64, bool) {
	field = strings.TrimSpace(field)
	if field == "" || strings.HasPrefix(field, "[") {
		return 0, false
	}
	v, err := strconv.ParseFloat(field, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
