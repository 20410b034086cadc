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

package fileident

import (
	"bytes"
	"crypto/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentifyKnownContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hello.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello world"), 0o644))

	id, err := Identify(path)
	require.NoError(t, err)

	assert.Equal(t, "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9", id.Sha256)
	assert.Equal(t, "5eb63bbbe01eeed093cb22bb8f5acdc3", id.Md5)
	assert.Equal(t, "text/plain", id.MimeType)
	assert.Equal(t, int64(11), id.Size)
}

func TestIdentifySniffsBinaryTypes(t *testing.T) {
	// Minimal PNG header is enough for the sniffer.
	png := append([]byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a}, make([]byte, 64)...)
	path := filepath.Join(t.TempDir(), "pic")
	require.NoError(t, os.WriteFile(path, png, 0o644))

	id, err := Identify(path)
	require.NoError(t, err)
	assert.Equal(t, "image/png", id.MimeType)
}

func TestIdentifyReaderLargerThanSniffWindow(t *testing.T) {
	payload := make([]byte, sniffLimit*3+17)
	_, err := rand.Read(payload)
	require.NoError(t, err)

	id, err := IdentifyReader(bytes.NewReader(payload))
	require.NoError(t, err)
	assert.Equal(t, int64(len(payload)), id.Size)
	assert.Len(t, id.Sha256, 64)
	assert.Len(t, id.Md5, 32)
}

func TestIdentifyMissingFile(t *testing.T) {
	_, err := Identify(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
}
