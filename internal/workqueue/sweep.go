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
	"time"

	"github.com/mediavaulthq/mediavault/internal/logctx"
	"github.com/mediavaulthq/mediavault/mvdb"
)

// DefaultStuckAfter is how long a request may sit in PROCESSING before
// the sweep presumes its worker died.
const DefaultStuckAfter = 6 * time.Hour

// Sweeper requeues requests abandoned mid-run. A worker that dies
// leaves its request in PROCESSING forever; the sweep is the
// reconciliation pass that puts such requests back on the queue, where
// the next run opens a fresh report.
type Sweeper struct {
	DB *mvdb.Store
}

// Sweep requeues every request stuck in PROCESSING for longer than
// olderThan and returns how many it touched. Requests whose queue item
// still exists (a slow but live run, heartbeat intact) are left alone
// by the dedupe key.
func (s *Sweeper) Sweep(ctx context.Context, olderThan time.Duration) (int, error) {
	if olderThan <= 0 {
		olderThan = DefaultStuckAfter
	}
	cutoff := time.Now().UTC().Add(-olderThan)

	stuck, err := s.DB.ListStuckProcessing(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("list stuck requests: %w", err)
	}

	ll := logctx.FromContext(ctx)
	requeued := 0
	for _, req := range stuck {
		var inserted bool
		err := s.DB.ExecTx(ctx, func(q *mvdb.Queries) error {
			var err error
			inserted, err = q.AddWork(ctx, mvdb.AddWorkParams{
				RequestID: req.ID,
				DedupeKey: DedupeKey(req.ID),
			})
			if err != nil || !inserted {
				return err
			}
			if err := q.SetRequestMessage(ctx, req.ID, "requeued after worker stall"); err != nil {
				return err
			}
			return q.SetRequestStatus(ctx, req.ID, mvdb.StatusEnqueued)
		})
		if err != nil {
			return requeued, fmt.Errorf("requeue %s: %w", req.ID, err)
		}
		if inserted {
			ll.Info("Requeued stuck request",
				"request_id", req.ID.String(),
				"stuck_since", req.UpdatedAt.Format(time.RFC3339))
			requeued++
		}
	}
	return requeued, nil
}
