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

package mvdb

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ErrNoWork is returned by ClaimWork when the queue has nothing claimable.
var ErrNoWork = errors.New("mvdb: no work available")

const workItemColumns = `id, request_id, dedupe_key, coalesce(claimed_by, ''),
	claimed_at, heartbeat, created_at`

func scanWorkItem(row interface{ Scan(...any) error }) (WorkItem, error) {
	var w WorkItem
	err := row.Scan(&w.ID, &w.RequestID, &w.DedupeKey, &w.ClaimedBy,
		&w.ClaimedAt, &w.Heartbeat, &w.CreatedAt)
	return w, err
}

// AddWorkParams identifies the queued run and its dedupe key.
type AddWorkParams struct {
	RequestID uuid.UUID
	DedupeKey int64
}

// AddWork enqueues one ingestion run. A live item with the same dedupe
// key suppresses the insert; inserted reports whether a row was created.
func (q *Queries) AddWork(ctx context.Context, arg AddWorkParams) (inserted bool, err error) {
	tag, err := q.db.Exec(ctx, `
		INSERT INTO work_queue (request_id, dedupe_key)
		VALUES ($1, $2)
		ON CONFLICT (dedupe_key) DO NOTHING`,
		arg.RequestID, arg.DedupeKey)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ClaimWork atomically claims the oldest unclaimed item for workerID.
// Items whose heartbeat went silent for longer than staleAfter are
// claimable again (their worker is presumed dead).
func (q *Queries) ClaimWork(ctx context.Context, workerID string, staleAfter time.Duration) (WorkItem, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE work_queue
		SET claimed_by = $1, claimed_at = now(), heartbeat = now()
		WHERE id = (
			SELECT id FROM work_queue
			WHERE claimed_at IS NULL
			   OR heartbeat < now() - $2::interval
			ORDER BY id
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING `+workItemColumns,
		workerID, staleAfter)
	w, err := scanWorkItem(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return WorkItem{}, ErrNoWork
	}
	return w, err
}

// TouchWork refreshes the heartbeat on a claimed item.
func (q *Queries) TouchWork(ctx context.Context, id int64) error {
	_, err := q.db.Exec(ctx, `
		UPDATE work_queue SET heartbeat = now() WHERE id = $1`, id)
	return err
}

// CompleteWork removes a finished item regardless of run outcome; the
// outcome lives on the request and its report.
func (q *Queries) CompleteWork(ctx context.Context, id int64) error {
	_, err := q.db.Exec(ctx, `DELETE FROM work_queue WHERE id = $1`, id)
	return err
}

// WorkDepth returns the number of unclaimed items.
func (q *Queries) WorkDepth(ctx context.Context) (int64, error) {
	var depth int64
	err := q.db.QueryRow(ctx, `
		SELECT count(*) FROM work_queue WHERE claimed_at IS NULL`).Scan(&depth)
	return depth, err
}
