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

	"github.com/google/uuid"
)

const reportColumns = `id, request_id, owner, in_error, error_message,
	archive_key, created_at, updated_at`

func scanReport(row interface{ Scan(...any) error }) (Report, error) {
	var r Report
	err := row.Scan(&r.ID, &r.RequestID, &r.Owner, &r.InError,
		&r.ErrorMessage, &r.ArchiveKey, &r.CreatedAt, &r.UpdatedAt)
	return r, err
}

// CreateReport inserts a fresh execution record for a request.
func (q *Queries) CreateReport(ctx context.Context, requestID uuid.UUID, owner string) (Report, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO reports (id, request_id, owner)
		VALUES ($1, $2, $3)
		RETURNING `+reportColumns,
		uuid.New(), requestID, owner)
	return scanReport(row)
}

// GetReport loads one report by id.
func (q *Queries) GetReport(ctx context.Context, id uuid.UUID) (Report, error) {
	row := q.db.QueryRow(ctx, `SELECT `+reportColumns+` FROM reports WHERE id = $1`, id)
	return scanReport(row)
}

// ListReportsByRequest returns the request's reports, oldest first, so
// history reads in execution order.
func (q *Queries) ListReportsByRequest(ctx context.Context, requestID uuid.UUID) ([]Report, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+reportColumns+` FROM reports
		WHERE request_id = $1 ORDER BY created_at`, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Report
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// AppendReportError sets the error flag and appends trace text to the
// report's error message. The message is cumulative, never overwritten.
func (q *Queries) AppendReportError(ctx context.Context, id uuid.UUID, trace string) error {
	_, err := q.db.Exec(ctx, `
		UPDATE reports
		SET in_error = TRUE,
		    error_message = error_message || E'\n' || $2,
		    updated_at = now()
		WHERE id = $1`, id, trace)
	return err
}

// SetReportArchiveKey records the blob key of the report's zip bundle.
func (q *Queries) SetReportArchiveKey(ctx context.Context, id uuid.UUID, key string) error {
	_, err := q.db.Exec(ctx, `
		UPDATE reports SET archive_key = $2, updated_at = now() WHERE id = $1`, id, key)
	return err
}
