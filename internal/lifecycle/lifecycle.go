// Package lifecycle runs the periodic passes over the counter registry:
// rate sampling and mark-based reclamation.
package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ajitpratap0/uvb/internal/metrics"
	"github.com/ajitpratap0/uvb/internal/registry"
)

// Manager schedules sampling and reclamation against a single store.
type Manager struct {
	store           *registry.Store
	logger          *slog.Logger
	sampleInterval  time.Duration
	reclaimInterval time.Duration
}

// NewManager creates a lifecycle manager. The reclaim interval must be
// strictly longer than the sample interval.
func NewManager(st *registry.Store, sampleInterval, reclaimInterval time.Duration, logger *slog.Logger) (*Manager, error) {
	if sampleInterval <= 0 {
		return nil, fmt.Errorf("lifecycle: sample interval must be positive, got %s", sampleInterval)
	}
	if reclaimInterval <= sampleInterval {
		return nil, fmt.Errorf("lifecycle: reclaim interval (%s) must be longer than sample interval (%s)", reclaimInterval, sampleInterval)
	}
	return &Manager{
		store:           st,
		logger:          logger,
		sampleInterval:  sampleInterval,
		reclaimInterval: reclaimInterval,
	}, nil
}

// Run drives both passes from one goroutine until ctx is cancelled, so a
// sampling pass never overlaps a reclamation pass.
func (m *Manager) Run(ctx context.Context) error {
	sampleTicker := time.NewTicker(m.sampleInterval)
	defer sampleTicker.Stop()
	reclaimTicker := time.NewTicker(m.reclaimInterval)
	defer reclaimTicker.Stop()

	m.logger.Info("lifecycle started",
		"sample_interval", m.sampleInterval,
		"reclaim_interval", m.reclaimInterval)

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("lifecycle stopped")
			return nil
		case <-sampleTicker.C:
			m.SampleRates(ctx)
		case <-reclaimTicker.C:
			m.Reclaim(ctx)
		}
	}
}

// SampleRates recomputes every counter's rate from its count delta since the
// previous pass.
func (m *Manager) SampleRates(_ context.Context) int {
	n := m.store.SampleRates()
	metrics.Inc(metrics.SamplePasses)
	m.logger.Debug("sampled counter rates", "counters", n)
	return n
}

// Reclaim evicts every counter that was neither registered nor incremented
// since the previous pass.
func (m *Manager) Reclaim(_ context.Context) registry.ReclaimResult {
	res := m.store.Reclaim()

	metrics.Inc(metrics.ReclaimPasses)
	metrics.ReclaimedTotal.Add(float64(len(res.Evicted)))
	metrics.LiveCounters.Set(float64(res.Surviving))

	for _, name := range res.Evicted {
		m.logger.Debug("reclaimed idle counter", "name", name)
	}
	if len(res.Evicted) > 0 {
		m.logger.Info("reclamation pass", "evicted", len(res.Evicted), "surviving", res.Surviving)
	}

	return res
}
