package manager

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sysdash/internal/models"
)

func TestCacheNotReadyUntilReplace(t *testing.T) {
	var c Cache
	s, ok := c.Read()
	assert.False(t, ok)
	assert.Nil(t, s)
	assert.False(t, c.Ready())

	c.Replace(nil)
	assert.False(t, c.Ready(), "nil replace must not mark ready")

	first := models.NewEmptySnapshot(time.Unix(100, 0))
	c.Replace(first)
	s, ok = c.Read()
	require.True(t, ok)
	assert.Same(t, first, s)

	second := models.NewEmptySnapshot(time.Unix(200, 0))
	c.Replace(second)
	s, ok = c.Read()
	require.True(t, ok)
	assert.Same(t, second, s)
}

// Each snapshot written carries the same marker in two fields; a reader must
// never see them disagree.
func TestCacheConcurrentReadsSeeWholeSnapshots(t *testing.T) {
	var c Cache
	const writes = 500

	var wg sync.WaitGroup
	stop := make(chan struct{})
	errs := make(chan string, 8)

	for r := 0; r < 8; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				s, ok := c.Read()
				if !ok {
					continue
				}
				if s.OS.Name != s.CPU.Name {
					select {
					case errs <- s.OS.Name + " != " + s.CPU.Name:
					default:
					}
					return
				}
			}
		}()
	}

	for i := 0; i < writes; i++ {
		s := models.NewEmptySnapshot(time.Unix(int64(i), 0))
		marker := time.Unix(int64(i), 0).UTC().Format(time.RFC3339)
		s.OS.Name = marker
		s.CPU.Name = marker
		c.Replace(s)
	}
	close(stop)
	wg.Wait()
	close(errs)

	for msg := range errs {
		t.Fatalf("mixed snapshot observed: %s", msg)
	}
	s, ok := c.Read()
	require.True(t, ok)
	assert.Equal(t, time.Unix(writes-1, 0).UTC(), s.Timestamp)
}
