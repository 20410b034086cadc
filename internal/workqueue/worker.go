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
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	"github.com/mediavaulthq/mediavault/internal/idgen"
	"github.com/mediavaulthq/mediavault/internal/logctx"
	"github.com/mediavaulthq/mediavault/mvdb"
)

// Engine runs one ingestion. Terminal request state is the engine's
// responsibility; an error from Run means the engine itself broke, not
// that the request failed.
type Engine interface {
	Run(ctx context.Context, requestID uuid.UUID) error
}

// Queue is the claim surface of the database work queue.
type Queue interface {
	ClaimWork(ctx context.Context, workerID string, staleAfter time.Duration) (mvdb.WorkItem, error)
	TouchWork(ctx context.Context, id int64) error
	CompleteWork(ctx context.Context, id int64) error
}

const (
	defaultPollInterval   = 5 * time.Second
	defaultHeartbeatEvery = 30 * time.Second
	defaultStaleAfter     = 5 * time.Minute
)

// Worker drains the queue with a fixed-size goroutine pool. Each
// goroutine claims, heartbeats and completes items independently; the
// database serializes claims.
type Worker struct {
	Queue  Queue
	Engine Engine

	// Concurrency is the goroutine pool size, default 1.
	Concurrency int
	// PollInterval is the idle sleep when the queue is empty.
	PollInterval time.Duration
	// HeartbeatEvery is the heartbeat period on claimed items.
	HeartbeatEvery time.Duration
	// StaleAfter is how long a silent heartbeat makes an item claimable
	// by someone else.
	StaleAfter time.Duration
}

// Run blocks draining the queue until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	concurrency := w.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	host, _ := os.Hostname()
	base := fmt.Sprintf("%s-%s", host, idgen.NewULID())

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < concurrency; i++ {
		workerID := fmt.Sprintf("%s-%d", base, i)
		g.Go(func() error {
			return w.loop(ctx, workerID)
		})
	}
	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (w *Worker) loop(ctx context.Context, workerID string) error {
	ll := logctx.FromContext(ctx).With("worker", workerID)
	poll := w.PollInterval
	if poll <= 0 {
		poll = defaultPollInterval
	}
	stale := w.StaleAfter
	if stale <= 0 {
		stale = defaultStaleAfter
	}

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		item, err := w.Queue.ClaimWork(ctx, workerID, stale)
		switch {
		case errors.Is(err, mvdb.ErrNoWork):
			if !sleep(ctx, poll) {
				return ctx.Err()
			}
			continue
		case err != nil:
			ll.Error("Claiming work failed", "error", err.Error())
			if !sleep(ctx, poll) {
				return ctx.Err()
			}
			continue
		}
		w.process(logctx.WithLogger(ctx, ll), item)
	}
}

// process runs one claimed item. On success the item is deleted; on an
// engine error it stays claimed, goes silent and is reclaimed by
// another worker once StaleAfter passes, so a transient database error
// cannot orphan an enqueued request.
func (w *Worker) process(ctx context.Context, item mvdb.WorkItem) {
	ctx = logctx.WithAttrs(ctx, "request_id", item.RequestID.String())
	ll := logctx.FromContext(ctx)
	ll.Info("Claimed work item", "item_id", item.ID)
	itemsClaimed.Add(ctx, 1)

	heartbeatCtx, stopHeartbeat := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.heartbeat(heartbeatCtx, item.ID)
	}()

	start := time.Now()
	runErr := w.Engine.Run(ctx, item.RequestID)

	stopHeartbeat()
	<-done

	outcome := "ok"
	if runErr != nil {
		outcome = "error"
	}
	runDuration.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(attribute.String("outcome", outcome)))

	if runErr != nil {
		ll.Error("Ingestion run failed, leaving item for reclaim", "error", runErr.Error())
		return
	}
	if err := w.Queue.CompleteWork(ctx, item.ID); err != nil {
		ll.Error("Completing work item failed", "error", err.Error())
	}
}

func (w *Worker) heartbeat(ctx context.Context, itemID int64) {
	every := w.HeartbeatEvery
	if every <= 0 {
		every = defaultHeartbeatEvery
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.Queue.TouchWork(ctx, itemID); err != nil {
				logctx.FromContext(ctx).Warn("Heartbeat failed",
					"item_id", itemID, "error", err.Error())
			}
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
