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

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, "s3", cfg.Blob.Driver)
	require.Equal(t, "yt-dlp", cfg.Backends.YtdlpPath)
	require.Equal(t, "gallery-dl", cfg.Backends.GallerydlPath)
	require.Equal(t, 2, cfg.Worker.Concurrency)
	require.Equal(t, 6*time.Hour, cfg.Worker.StuckAfter)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("MEDIAVAULT_BLOB_DRIVER", "file")
	t.Setenv("MEDIAVAULT_BLOB_DIR", "/var/lib/mediavault/blobs")
	t.Setenv("MEDIAVAULT_WORKER_CONCURRENCY", "8")
	t.Setenv("MEDIAVAULT_WORKER_POLL_INTERVAL", "2s")
	t.Setenv("MEDIAVAULT_SEARCH_ADDRESSES", "http://es1:9200,http://es2:9200")
	t.Setenv("MEDIAVAULT_BACKENDS_SESSION_DIR", "/srv/sessions")

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, "file", cfg.Blob.Driver)
	require.Equal(t, "/var/lib/mediavault/blobs", cfg.Blob.Dir)
	require.Equal(t, 8, cfg.Worker.Concurrency)
	require.Equal(t, 2*time.Second, cfg.Worker.PollInterval)
	require.Equal(t, []string{"http://es1:9200", "http://es2:9200"}, cfg.Search.Addresses)
	require.Equal(t, "/srv/sessions", cfg.Backends.SessionDir)
}

func TestLoadS3EnvVars(t *testing.T) {
	t.Setenv("MEDIAVAULT_BLOB_S3_BUCKET", "vault-content")
	t.Setenv("MEDIAVAULT_BLOB_S3_ENDPOINT", "http://minio:9000")
	t.Setenv("MEDIAVAULT_BLOB_S3_USE_PATH_STYLE", "true")

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, "vault-content", cfg.Blob.S3.Bucket)
	require.Equal(t, "http://minio:9000", cfg.Blob.S3.Endpoint)
	require.True(t, cfg.Blob.S3.UsePathStyle)
}
