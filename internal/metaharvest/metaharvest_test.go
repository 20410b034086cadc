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

package metaharvest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsSidecar(t *testing.T) {
	assert.True(t, IsSidecar("abc.info.json"))
	assert.True(t, IsSidecar("abc.description"))
	assert.False(t, IsSidecar("abc.mp4"))
	assert.False(t, IsSidecar("abc.jsonl.gz"))
}

func TestExifSkipsSidecarsAndSnapshots(t *testing.T) {
	h := &Harvester{}
	r := h.Exif(context.Background(), "/tmp/x/post.json")
	assert.False(t, r.Available())
	assert.Equal(t, "sidecar file", r.Reason)

	r = h.Exif(context.Background(), "/tmp/x/webpage_screenshot.png")
	assert.False(t, r.Available())
}

func TestExifUnavailableWhenToolMissing(t *testing.T) {
	h := &Harvester{ExiftoolPath: "/does/not/exist/exiftool"}
	r := h.Exif(context.Background(), "/tmp/x/video.mp4")
	assert.False(t, r.Available())
	assert.Contains(t, r.Reason, "exiftool")
}

func TestExifParsesFakeToolOutput(t *testing.T) {
	// A stand-in tool that ignores its arguments and emits one record.
	dir := t.TempDir()
	tool := filepath.Join(dir, "exiftool")
	script := "#!/bin/sh\necho '[{\"Make\": \"ACME\", \"EXIF:ImageWidth\": 640}]'\n"
	require.NoError(t, os.WriteFile(tool, []byte(script), 0o755))

	h := &Harvester{ExiftoolPath: tool}
	r := h.Exif(context.Background(), filepath.Join(dir, "photo.jpg"))
	require.True(t, r.Available())
	assert.Equal(t, "ACME", r.Data["Make"])
}

func TestSidecarPrefersPostJSON(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "post.json"), []byte(`{"uploader":"alice"}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "abc.info.json"), []byte(`{"title":"other"}`), 0o644))

	r := Sidecar(dir, "abc.mp4")
	require.True(t, r.Available())
	assert.Equal(t, "alice", r.Data["uploader"])
}

func TestSidecarFuzzyMatchesBasename(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "abc.info.json"), []byte(`{"title":"clip"}`), 0o644))

	r := Sidecar(dir, "abc.mp4")
	require.True(t, r.Available())
	assert.Equal(t, "clip", r.Data["title"])
}

func TestSidecarSkipsUnparsableThenMatchesNext(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "abc.bad.json"), []byte(`{broken`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "abc.info.json"), []byte(`{"title":"clip"}`), 0o644))

	r := Sidecar(dir, "abc.mp4")
	require.True(t, r.Available())
}

func TestSidecarUnavailableCases(t *testing.T) {
	dir := t.TempDir()
	assert.False(t, Sidecar(dir, "").Available())
	assert.False(t, Sidecar(dir, "webpage_screenshot.png").Available())
	assert.False(t, Sidecar(dir, "abc.info.json").Available())
	assert.False(t, Sidecar(dir, "abc.mp4").Available())
}
