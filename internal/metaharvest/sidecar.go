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
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
)

// postSidecarName is the well-known sidecar the messaging backend writes
// at the workspace root. When present it describes every file of the
// post, so it wins over fuzzy matching.
const postSidecarName = "post.json"

// Sidecar locates and parses the structured-metadata sidecar for one
// downloaded file. name is the file's workspace-relative display name.
//
// Resolution order: post.json at the workspace root, else the first
// parsable JSON file sharing the file's basename without extension.
// Sidecars, snapshots and files with no match resolve to Unavailable.
func Sidecar(dir, name string) Result {
	if name == "" {
		return Unavailable("empty name")
	}
	if strings.Contains(name, "webpage_screenshot") {
		return Unavailable("page snapshot")
	}
	if IsSidecar(name) {
		return Unavailable("sidecar file")
	}

	if r := parseSidecar(filepath.Join(dir, postSidecarName)); r.Available() {
		return r
	}

	base := name
	if ext := filepath.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	matches, err := filepath.Glob(filepath.Join(dir, base+"*.json"))
	if err != nil {
		return Unavailable("glob: " + err.Error())
	}
	for _, m := range matches {
		if r := parseSidecar(m); r.Available() {
			return r
		}
	}
	return Unavailable("no sidecar found")
}

func parseSidecar(path string) Result {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Unavailable("read sidecar: " + err.Error())
	}
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return Unavailable("parse sidecar: " + err.Error())
	}
	return Extracted(data)
}
