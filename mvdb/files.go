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

const fileColumns = `id, report_id, owner, name, sha256, md5, mime_type,
	is_target, metadata, exif, description, blob_key, created_at, updated_at`

func scanFile(row interface{ Scan(...any) error }) (File, error) {
	var f File
	err := row.Scan(&f.ID, &f.ReportID, &f.Owner, &f.Name, &f.Sha256,
		&f.Md5, &f.MimeType, &f.IsTarget, &f.Metadata, &f.Exif,
		&f.Description, &f.BlobKey, &f.CreatedAt, &f.UpdatedAt)
	return f, err
}

// CreateFileParams holds a fully identified file. Digests are required:
// a File row never exists without them.
type CreateFileParams struct {
	ReportID    uuid.UUID
	Owner       string
	Name        string
	Sha256      string
	Md5         string
	MimeType    string
	IsTarget    bool
	Metadata    map[string]any
	Exif        map[string]any
	Description string
}

// CreateFile inserts one ingested file record. The blob key is attached
// separately once the binary has been stored.
func (q *Queries) CreateFile(ctx context.Context, arg CreateFileParams) (File, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO files (id, report_id, owner, name, sha256, md5, mime_type, is_target, metadata, exif, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING `+fileColumns,
		uuid.New(), arg.ReportID, arg.Owner, arg.Name, arg.Sha256, arg.Md5,
		arg.MimeType, arg.IsTarget, arg.Metadata, arg.Exif, arg.Description)
	return scanFile(row)
}

// GetFile loads one file by id.
func (q *Queries) GetFile(ctx context.Context, id uuid.UUID) (File, error) {
	row := q.db.QueryRow(ctx, `SELECT `+fileColumns+` FROM files WHERE id = $1`, id)
	return scanFile(row)
}

// SetFileBlobKey records where the file's binary content was stored.
func (q *Queries) SetFileBlobKey(ctx context.Context, id uuid.UUID, key string) error {
	_, err := q.db.Exec(ctx, `
		UPDATE files SET blob_key = $2, updated_at = now() WHERE id = $1`, id, key)
	return err
}

// ListFilesByReport returns the report's files ordered by display name.
func (q *Queries) ListFilesByReport(ctx context.Context, reportID uuid.UUID) ([]File, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+fileColumns+` FROM files
		WHERE report_id = $1 ORDER BY name`, reportID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
