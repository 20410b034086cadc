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

// GetCredential loads the named credential bag, e.g. "telegram".
func (q *Queries) GetCredential(ctx context.Context, name string) (Credential, error) {
	var c Credential
	row := q.db.QueryRow(ctx, `
		SELECT id, name, credential FROM credentials WHERE name = $1`, name)
	err := row.Scan(&c.ID, &c.Name, &c.Credential)
	return c, err
}

// UpsertCredential stores or replaces the named credential bag.
func (q *Queries) UpsertCredential(ctx context.Context, name string, credential map[string]any) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO credentials (id, name, credential)
		VALUES ($1, $2, $3)
		ON CONFLICT (name) DO UPDATE SET credential = EXCLUDED.credential`,
		uuid.New(), name, credential)
	return err
}
