package manager

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/samber/lo"

	"sysdash/internal/models"
)

// OnSnapshot registers fn to receive every snapshot the collector stores.
// Callbacks run on the collector goroutine and must not block.
func (m *Manager) OnSnapshot(fn func(*models.Snapshot)) {
	if m == nil || fn == nil {
		return
	}
	m.subscribersMu.Lock()
	m.subscribers = append(m.subscribers, fn)
	m.subscribersMu.Unlock()
}

// StartTelemetryMonitor launches the collector loop. Each cycle builds a
// snapshot, stores it and then waits the poll interval, so cycles never
// overlap. Calling it again while running is a no-op.
func (m *Manager) StartTelemetryMonitor() {
	if m == nil {
		return
	}
	m.telemetryMu.Lock()
	if m.telemetryStop != nil {
		m.telemetryMu.Unlock()
		return
	}
	stop := make(chan struct{})
	m.telemetryStop = stop
	m.telemetryMu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	m.telemetryWG.Add(1)
	go func() {
		defer m.telemetryWG.Done()
		defer cancel()
		go func() {
			select {
			case <-stop:
				cancel()
			case <-ctx.Done():
			}
		}()

		timer := time.NewTimer(0)
		defer timer.Stop()
		for {
			select {
			case <-timer.C:
				m.refreshTelemetry(ctx)
				timer.Reset(m.interval)
			case <-stop:
				return
			}
		}
	}()
	m.safeLog(fmt.Sprintf("Telemetry collector started (interval %s)", m.interval))
}

// StopTelemetryMonitor cancels any in-flight collection and waits for the
// loop to exit.
func (m *Manager) StopTelemetryMonitor() {
	if m == nil {
		return
	}
	m.telemetryMu.Lock()
	stop := m.telemetryStop
	m.telemetryStop = nil
	m.telemetryMu.Unlock()
	if stop != nil {
		close(stop)
	}
	m.telemetryWG.Wait()
}

// refreshTelemetry runs one cycle. Any failure, including a panic, leaves the
// previous snapshot in place.
func (m *Manager) refreshTelemetry(ctx context.Context) {
	started := time.Now()
	defer func() {
		if r := recover(); r != nil {
			m.safeLog(fmt.Sprintf("Telemetry cycle panicked, keeping previous snapshot: %v\n%s", r, debug.Stack()))
		}
	}()

	snapshot, err := m.builder.Build(ctx)
	if err != nil {
		if ctx.Err() == nil {
			m.safeLog(fmt.Sprintf("Telemetry cycle failed, keeping previous snapshot: %v", err))
		}
		return
	}
	m.Cache.Replace(snapshot)
	m.noteFirstSnapshot(snapshot, time.Since(started))
	m.notify(snapshot)
}

func (m *Manager) notify(s *models.Snapshot) {
	m.subscribersMu.RLock()
	subs := append([]func(*models.Snapshot){}, m.subscribers...)
	m.subscribersMu.RUnlock()
	for _, fn := range subs {
		func() {
			defer func() {
				if r := recover(); r != nil {
					m.safeLog(fmt.Sprintf("Snapshot subscriber panicked: %v", r))
				}
			}()
			fn(s)
		}()
	}
}

func (m *Manager) noteFirstSnapshot(s *models.Snapshot, took time.Duration) {
	m.telemetryMu.Lock()
	first := m.firstSnapshotAt.IsZero()
	if first {
		m.firstSnapshotAt = time.Now()
	}
	m.telemetryMu.Unlock()
	if first {
		m.safeLog(fmt.Sprintf("First snapshot ready in %s: %s", took.Round(time.Millisecond), summarize(s)))
	}
}

// summarize renders a one-line description of what a snapshot found.
func summarize(s *models.Snapshot) string {
	ram := models.NotAvailable
	if s.RAM.TotalGB != nil {
		ram = humanize.IBytes(uint64(*s.RAM.TotalGB * bytesPerGB))
	}
	storage := lo.SumBy(s.Disks.Volumes, func(v models.Volume) float64 {
		return lo.FromPtr(v.TotalGB)
	})
	return fmt.Sprintf("%s on %s, %s RAM, %d GPU(s), %s across %d volume(s), %d network adapter(s)",
		s.CPU.Name,
		s.OS.Name,
		ram,
		len(s.GPUs),
		humanize.IBytes(uint64(storage*bytesPerGB)),
		len(s.Disks.Volumes),
		len(s.Network),
	)
}
