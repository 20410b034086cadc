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
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store provides all functions to execute db queries and transactions.
type Store struct {
	*Queries
	connPool *pgxpool.Pool
}

// NewStore creates a new Store over a connection pool.
func NewStore(connPool *pgxpool.Pool) *Store {
	return &Store{
		connPool: connPool,
		Queries:  New(connPool),
	}
}

// Pool exposes the underlying pool for callers that need raw access.
func (store *Store) Pool() *pgxpool.Pool {
	return store.connPool
}

// Close closes the connection pool.
func (store *Store) Close() {
	if store.connPool != nil {
		store.connPool.Close()
	}
}

// ExecTx runs fn inside a transaction, rolling back on error.
func (store *Store) ExecTx(ctx context.Context, fn func(*Queries) error) (err error) {
	tx, err := store.connPool.Begin(ctx)
	if err != nil {
		return err
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			if err == nil {
				err = rbErr
			}
		}
	}()

	if err = fn(New(tx)); err != nil {
		return fmt.Errorf("tx: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}
