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

package blobstore

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileClientLifecycle(t *testing.T) {
	ctx := context.Background()
	c := NewFile(t.TempDir())

	require.NoError(t, c.Put(ctx, "owner/req/file1", strings.NewReader("hello")))

	body, notFound, err := c.Get(ctx, "owner/req/file1")
	require.NoError(t, err)
	require.False(t, notFound)
	data, err := io.ReadAll(body)
	require.NoError(t, err)
	require.NoError(t, body.Close())
	assert.Equal(t, "hello", string(data))

	require.NoError(t, c.Delete(ctx, "owner/req/file1"))
	_, notFound, err = c.Get(ctx, "owner/req/file1")
	require.NoError(t, err)
	assert.True(t, notFound)

	// Deleting a missing key is not an error.
	require.NoError(t, c.Delete(ctx, "owner/req/file1"))
}

func TestPutFile(t *testing.T) {
	ctx := context.Background()
	c := NewFile(t.TempDir())

	src := filepath.Join(t.TempDir(), "payload.bin")
	require.NoError(t, os.WriteFile(src, []byte("payload"), 0o644))

	require.NoError(t, PutFile(ctx, c, "a/b/c", src))
	body, notFound, err := c.Get(ctx, "a/b/c")
	require.NoError(t, err)
	require.False(t, notFound)
	defer func() { _ = body.Close() }()
	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
}

func TestFileClientList(t *testing.T) {
	ctx := context.Background()
	c := NewFile(t.TempDir())

	require.NoError(t, c.Put(ctx, "uploads/r1/b.bin", strings.NewReader("b")))
	require.NoError(t, c.Put(ctx, "uploads/r1/a.bin", strings.NewReader("a")))
	require.NoError(t, c.Put(ctx, "uploads/r2/c.bin", strings.NewReader("c")))

	keys, err := c.List(ctx, "uploads/r1/")
	require.NoError(t, err)
	assert.Equal(t, []string{"uploads/r1/a.bin", "uploads/r1/b.bin"}, keys)

	keys, err = c.List(ctx, "nothing/")
	require.NoError(t, err)
	assert.Empty(t, keys)
}
