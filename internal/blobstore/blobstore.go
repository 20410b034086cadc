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

// Package blobstore stores ingested file content and report archives,
// addressed by key. The production implementation is S3; a filesystem
// implementation backs tests and single-node deployments.
package blobstore

import (
	"context"
	"io"
)

// Client is the narrow surface the pipeline needs from blob storage.
type Client interface {
	// Put streams body into the store under key.
	Put(ctx context.Context, key string, body io.Reader) error

	// Get returns a reader over the object. The caller closes it.
	// notFound is true when the key does not exist.
	Get(ctx context.Context, key string) (body io.ReadCloser, notFound bool, err error)

	// Delete removes the object. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// List returns the keys under prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)
}

// PutFile uploads a local file under key.
func PutFile(ctx context.Context, c Client, key, path string) error {
	f, err := openLocal(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	return c.Put(ctx, key, f)
}
