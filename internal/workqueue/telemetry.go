// Copyright (C) 2025 MediaVault HQ
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package workqueue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/mediavaulthq/mediavault/internal/logctx"
)

var (
	itemsClaimed metric.Int64Counter
	runDuration  metric.Float64Histogram
)

func init() {
	meter := otel.Meter("github.com/mediavaulthq/mediavault/internal/workqueue")

	var err error
	itemsClaimed, err = meter.Int64Counter(
		"mediavault.workqueue.items.claimed",
		metric.WithDescription("Number of work items claimed by this worker"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create items.claimed counter: %w", err))
	}

	runDuration, err = meter.Float64Histogram(
		"mediavault.workqueue.run.duration",
		metric.WithDescription("Wall time of one claimed ingestion run in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create run.duration histogram: %w", err))
	}
}

// DepthDB is the query surface the depth monitor needs.
type DepthDB interface {
	WorkDepth(ctx context.Context) (int64, error)
}

// DepthMonitor polls the unclaimed queue depth and publishes it as an
// observable gauge. The gauge callback reads a cached value so metric
// collection never touches the database.
type DepthMonitor struct {
	db           DepthDB
	pollInterval time.Duration

	mu        sync.RWMutex
	lastDepth int64
}

// NewDepthMonitor registers the depth gauge and returns a monitor that
// polls db every pollInterval once started.
func NewDepthMonitor(db DepthDB, pollInterval time.Duration) (*DepthMonitor, error) {
	if pollInterval <= 0 {
		pollInterval = time.Minute
	}
	m := &DepthMonitor{db: db, pollInterval: pollInterval}

	meter := otel.Meter("github.com/mediavaulthq/mediavault/internal/workqueue")
	_, err := meter.Int64ObservableGauge(
		"mediavault.workqueue.depth",
		metric.WithDescription("Number of unclaimed work items in the queue"),
		metric.WithInt64Callback(m.observe),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create queue depth gauge: %w", err)
	}
	return m, nil
}

func (m *DepthMonitor) observe(_ context.Context, observer metric.Int64Observer) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	observer.Observe(m.lastDepth)
	return nil
}

// Start polls the queue depth until ctx is cancelled.
func (m *DepthMonitor) Start(ctx context.Context) error {
	ll := logctx.FromContext(ctx)
	if err := m.update(ctx); err != nil {
		ll.Warn("Initial queue depth poll failed", "error", err.Error())
	}

	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := m.update(ctx); err != nil {
				ll.Warn("Queue depth poll failed", "error", err.Error())
			}
		}
	}
}

func (m *DepthMonitor) update(ctx context.Context) error {
	depth, err := m.db.WorkDepth(ctx)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.lastDepth = depth
	m.mu.Unlock()
	return nil
}
