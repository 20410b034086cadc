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
	"time"

	"github.com/google/uuid"
)

const requestColumns = `id, collection_id, url, kind, status, message, owner,
	hidden, content_warning, tags, created_at, updated_at`

func scanRequest(row interface{ Scan(...any) error }) (Request, error) {
	var r Request
	err := row.Scan(&r.ID, &r.CollectionID, &r.URL, &r.Kind, &r.Status,
		&r.Message, &r.Owner, &r.Hidden, &r.ContentWarning, &r.Tags,
		&r.CreatedAt, &r.UpdatedAt)
	return r, err
}

// CreateRequestParams holds the caller-supplied request fields.
type CreateRequestParams struct {
	CollectionID   uuid.UUID
	URL            string
	Kind           RequestKind
	Owner          string
	Message        string
	ContentWarning string
	Tags           []string
}

// CreateRequest inserts a request in status CREATED.
func (q *Queries) CreateRequest(ctx context.Context, arg CreateRequestParams) (Request, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO requests (id, collection_id, url, kind, status, message, owner, content_warning, tags)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+requestColumns,
		uuid.New(), arg.CollectionID, arg.URL, arg.Kind, StatusCreated,
		arg.Message, arg.Owner, arg.ContentWarning, arg.Tags)
	return scanRequest(row)
}

// GetRequest loads one request by id.
func (q *Queries) GetRequest(ctx context.Context, id uuid.UUID) (Request, error) {
	row := q.db.QueryRow(ctx, `SELECT `+requestColumns+` FROM requests WHERE id = $1`, id)
	return scanRequest(row)
}

// ListRequestsByCollection returns the collection's requests, newest first.
func (q *Queries) ListRequestsByCollection(ctx context.Context, collectionID uuid.UUID) ([]Request, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+requestColumns+` FROM requests
		WHERE collection_id = $1 ORDER BY updated_at DESC`, collectionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Request
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// SetRequestStatus transitions the request's lifecycle status.
func (q *Queries) SetRequestStatus(ctx context.Context, id uuid.UUID, status RequestStatus) error {
	_, err := q.db.Exec(ctx, `
		UPDATE requests SET status = $2, updated_at = now() WHERE id = $1`, id, status)
	return err
}

// SetRequestMessage records a free-text note on the request.
func (q *Queries) SetRequestMessage(ctx context.Context, id uuid.UUID, message string) error {
	_, err := q.db.Exec(ctx, `
		UPDATE requests SET message = $2, updated_at = now() WHERE id = $1`, id, message)
	return err
}

// SetRequestHidden toggles the search-surface hide flag.
func (q *Queries) SetRequestHidden(ctx context.Context, id uuid.UUID, hidden bool) error {
	_, err := q.db.Exec(ctx, `
		UPDATE requests SET hidden = $2, updated_at = now() WHERE id = $1`, id, hidden)
	return err
}

// ListStuckProcessing returns requests that have sat in PROCESSING since
// before cutoff. Used by the reconciliation sweep: a worker that died
// mid-run leaves its request in PROCESSING forever otherwise.
func (q *Queries) ListStuckProcessing(ctx context.Context, cutoff time.Time) ([]Request, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+requestColumns+` FROM requests
		WHERE status = $1 AND updated_at < $2
		ORDER BY updated_at`, StatusProcessing, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Request
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
