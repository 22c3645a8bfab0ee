package sources

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNvidiaSMI(t *testing.T) {
	out := "NVIDIA GeForce RTX 3080, 10240, 12, 45\n" +
		"NVIDIA GeForce GTX 1050 Ti, 4096, [N/A], [Not Supported]\n"

	records, err := parseNvidiaSMI(strings.NewReader(out))
	require.NoError(t, err)
	require.Len(t, records, 2)

	first := records[0]
	assert.Equal(t, "NVIDIA GeForce RTX 3080", first.Name)
	require.NotNil(t, first.MemoryTotalMB)
	assert.Equal(t, uint64(10240), *first.MemoryTotalMB)
	require.NotNil(t, first.LoadPercent)
	assert.Equal(t, 12.0, *first.LoadPercent)
	require.NotNil(t, first.TemperatureC)
	assert.Equal(t, 45.0, *first.TemperatureC)

	second := records[1]
	assert.Equal(t, "NVIDIA GeForce GTX 1050 Ti", second.Name)
	require.NotNil(t, second.MemoryTotalMB)
	assert.Nil(t, second.LoadPercent)
	assert.Nil(t, second.TemperatureC)
}

func TestParseNvidiaSMISkipsShortAndBlankRows(t *testing.T) {
	out := "\n , 1, 2, 3\nonly-two, 5\nTesla T4, 15360, 0, 31\n"
	records, err := parseNvidiaSMI(strings.NewReader(out))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Tesla T4", records[0].Name)
}

func TestParseNvidiaSMIEmpty(t *testing.T) {
	records, err := parseNvidiaSMI(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestNvidiaSMIMissingToolIsUnavailable(t *testing.T) {
	n := NewNvidiaSMI(filepath.Join(t.TempDir(), "no-such-nvidia-smi"))
	n.run = func(context.Context, string, ...string) ([]byte, error) {
		t.Fatal("tool must not run when it cannot be resolved")
		return nil, nil
	}
	_, err := n.GPUStats(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestNewNvidiaSMIDefaultsPath(t *testing.T) {
	assert.Equal(t, DefaultNvidiaSMIPath, NewNvidiaSMI("  ").path)
	assert.Equal(t, "/opt/bin/nvidia-smi", NewNvidiaSMI("/opt/bin/nvidia-smi").path)
}
