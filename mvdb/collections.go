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

	"github.com/mediavaulthq/mediavault/internal/idgen"
)

const collectionColumns = `id, name, description, owner, status, tags,
	search_index, indexed, created_at, updated_at`

func scanCollection(row interface{ Scan(...any) error }) (Collection, error) {
	var c Collection
	err := row.Scan(&c.ID, &c.Name, &c.Description, &c.Owner, &c.Status,
		&c.Tags, &c.SearchIndex, &c.Indexed, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

// CreateCollectionParams holds the caller-supplied collection fields.
type CreateCollectionParams struct {
	Name        string
	Description string
	Owner       string
	Tags        []string
}

// CreateCollection inserts an open collection with a fresh search-index
// namespace suffix.
func (q *Queries) CreateCollection(ctx context.Context, arg CreateCollectionParams) (Collection, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO collections (id, name, description, owner, status, tags, search_index)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+collectionColumns,
		uuid.New(), arg.Name, arg.Description, arg.Owner, CollectionOpen,
		arg.Tags, idgen.NewIndexSuffix())
	return scanCollection(row)
}

// GetCollection loads one collection by id.
func (q *Queries) GetCollection(ctx context.Context, id uuid.UUID) (Collection, error) {
	row := q.db.QueryRow(ctx, `SELECT `+collectionColumns+` FROM collections WHERE id = $1`, id)
	return scanCollection(row)
}

// SetCollectionStatus moves the collection between open/closed/archived.
func (q *Queries) SetCollectionStatus(ctx context.Context, id uuid.UUID, status CollectionStatus) error {
	_, err := q.db.Exec(ctx, `
		UPDATE collections SET status = $2, updated_at = now() WHERE id = $1`, id, status)
	return err
}

// MarkCollectionIndexed records that the collection's search index has
// received at least one publication.
func (q *Queries) MarkCollectionIndexed(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, `
		UPDATE collections SET indexed = TRUE, updated_at = now() WHERE id = $1`, id)
	return err
}

// DeleteCollectionRows removes the collection row; requests, reports and
// files follow through ON DELETE CASCADE. External cleanup (blobs, the
// search index) is the cascade procedure's job, see Cascade.
func (q *Queries) DeleteCollectionRows(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, `DELETE FROM collections WHERE id = $1`, id)
	return err
}
