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
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediavaulthq/mediavault/mvdb"
)

type fakeQueue struct {
	mu        sync.Mutex
	items     []mvdb.WorkItem
	touched   map[int64]int
	completed []int64
}

func (q *fakeQueue) ClaimWork(ctx context.Context, workerID string, staleAfter time.Duration) (mvdb.WorkItem, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return mvdb.WorkItem{}, mvdb.ErrNoWork
	}
	item := q.items[0]
	q.items = q.items[1:]
	item.ClaimedBy = workerID
	return item, nil
}

func (q *fakeQueue) TouchWork(ctx context.Context, id int64) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.touched == nil {
		q.touched = map[int64]int{}
	}
	q.touched[id]++
	return nil
}

func (q *fakeQueue) CompleteWork(ctx context.Context, id int64) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.completed = append(q.completed, id)
	return nil
}

type fakeEngine struct {
	mu    sync.Mutex
	ran   []uuid.UUID
	block time.Duration
	err   error
}

func (e *fakeEngine) Run(ctx context.Context, requestID uuid.UUID) error {
	if e.block > 0 {
		time.Sleep(e.block)
	}
	e.mu.Lock()
	e.ran = append(e.ran, requestID)
	e.mu.Unlock()
	return e.err
}

func TestWorkerDrainsQueue(t *testing.T) {
	reqA, reqB := uuid.New(), uuid.New()
	queue := &fakeQueue{items: []mvdb.WorkItem{
		{ID: 1, RequestID: reqA},
		{ID: 2, RequestID: reqB},
	}}
	engine := &fakeEngine{}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Worker{
		Queue:        queue,
		Engine:       engine,
		PollInterval: 10 * time.Millisecond,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()

	require.Eventually(t, func() bool {
		queue.mu.Lock()
		defer queue.mu.Unlock()
		return len(queue.completed) == 2
	}, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-errCh)

	assert.ElementsMatch(t, []uuid.UUID{reqA, reqB}, engine.ran)
	assert.ElementsMatch(t, []int64{1, 2}, queue.completed)
}

func TestWorkerKeepsFailedRunClaimed(t *testing.T) {
	queue := &fakeQueue{items: []mvdb.WorkItem{{ID: 7, RequestID: uuid.New()}}}
	engine := &fakeEngine{err: assert.AnError}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Worker{Queue: queue, Engine: engine, PollInterval: 10 * time.Millisecond}

	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()

	// The engine broke before the request could reach a terminal state;
	// the item must stay claimed so the stale-heartbeat reclaim can
	// retry it, not be deleted while the request is still ENQUEUED.
	require.Eventually(t, func() bool {
		engine.mu.Lock()
		defer engine.mu.Unlock()
		return len(engine.ran) == 1
	}, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-errCh)

	queue.mu.Lock()
	defer queue.mu.Unlock()
	assert.Empty(t, queue.completed)
}

type fakeDepthDB struct {
	mu    sync.Mutex
	depth int64
	err   error
}

func (d *fakeDepthDB) WorkDepth(ctx context.Context) (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.depth, d.err
}

func TestDepthMonitorCachesLatestDepth(t *testing.T) {
	db := &fakeDepthDB{depth: 4}
	m, err := NewDepthMonitor(db, time.Minute)
	require.NoError(t, err)

	require.NoError(t, m.update(context.Background()))
	m.mu.RLock()
	assert.EqualValues(t, 4, m.lastDepth)
	m.mu.RUnlock()

	db.mu.Lock()
	db.depth = 9
	db.mu.Unlock()
	require.NoError(t, m.update(context.Background()))
	m.mu.RLock()
	assert.EqualValues(t, 9, m.lastDepth)
	m.mu.RUnlock()

	db.mu.Lock()
	db.err = assert.AnError
	db.mu.Unlock()
	require.Error(t, m.update(context.Background()))
	m.mu.RLock()
	assert.EqualValues(t, 9, m.lastDepth, "a failed poll keeps the last good value")
	m.mu.RUnlock()
}

func TestWorkerHeartbeatsWhileRunning(t *testing.T) {
	queue := &fakeQueue{items: []mvdb.WorkItem{{ID: 3, RequestID: uuid.New()}}}
	engine := &fakeEngine{block: 200 * time.Millisecond}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w := &Worker{
		Queue:          queue,
		Engine:         engine,
		PollInterval:   10 * time.Millisecond,
		HeartbeatEvery: 20 * time.Millisecond,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()

	require.Eventually(t, func() bool {
		queue.mu.Lock()
		defer queue.mu.Unlock()
		return len(queue.completed) == 1
	}, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-errCh)

	queue.mu.Lock()
	defer queue.mu.Unlock()
	assert.Greater(t, queue.touched[3], 1)
}

func TestDedupeKeyStableAndDistinct(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	assert.Equal(t, DedupeKey(a), DedupeKey(a))
	assert.NotEqual(t, DedupeKey(a), DedupeKey(b))
}

func TestStagingKey(t *testing.T) {
	id := uuid.MustParse("7f9c24e5-2f33-4a21-9f2b-111111111111")
	assert.Equal(t,
		"uploads/7f9c24e5-2f33-4a21-9f2b-111111111111/holiday.mp4",
		StagingKey(id, "holiday.mp4"))
}
