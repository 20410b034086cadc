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

// Package metaharvest extracts best-effort structured metadata for
// ingested files: EXIF-like data through external tooling, and the
// backend-written JSON sidecars that describe a download.
//
// Harvesting is never fatal. Every operation returns a Result that is
// either Extracted or Unavailable with a reason; callers log the reason
// and continue with an empty bag.
package metaharvest

import (
	"context"
	"encoding/json"
	"os/exec"
	"path/filepath"
	"strings"
)

// Result is the outcome of one harvest attempt.
type Result struct {
	Data   map[string]any
	Reason string
}

// Extracted wraps a successful harvest.
func Extracted(data map[string]any) Result {
	return Result{Data: data}
}

// Unavailable marks a harvest that produced nothing, with the reason.
func Unavailable(reason string) Result {
	return Result{Reason: reason}
}

// Available reports whether the harvest produced data.
func (r Result) Available() bool {
	return len(r.Data) > 0
}

// IsSidecar reports whether name is a metadata sidecar produced by a
// backend rather than payload content.
func IsSidecar(name string) bool {
	return strings.HasSuffix(name, ".json") || strings.HasSuffix(name, ".description")
}

// Harvester shells out to exiftool. The binary is treated as a black box;
// any failure degrades to an Unavailable result.
type Harvester struct {
	// ExiftoolPath overrides the binary looked up on PATH.
	ExiftoolPath string
}

func (h *Harvester) exiftool() string {
	if h.ExiftoolPath != "" {
		return h.ExiftoolPath
	}
	return "exiftool"
}

// Exif returns the EXIF-like metadata bag for the file at path. Sidecars
// and the page snapshot are skipped outright.
func (h *Harvester) Exif(ctx context.Context, path string) Result {
	name := filepath.Base(path)
	if IsSidecar(name) {
		return Unavailable("sidecar file")
	}
	if strings.Contains(name, "webpage_screenshot") {
		return Unavailable("page snapshot")
	}

	out, err := exec.CommandContext(ctx, h.exiftool(), "-j", "-n", path).Output()
	if err != nil {
		return Unavailable("exiftool: " + err.Error())
	}

	// exiftool -j emits a one-element array per file.
	var records []map[string]any
	if err := json.Unmarshal(out, &records); err != nil {
		return Unavailable("parse exiftool output: " + err.Error())
	}
	if len(records) == 0 {
		return Unavailable("exiftool returned no records")
	}
	return Extracted(records[0])
}
