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

package backend

import (
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// probeTTL bounds how long a probe verdict is reused. Probes run against
// the live site, so verdicts go stale when a URL comes back online.
const probeTTL = 10 * time.Minute

// YtDlp wraps the general-purpose media extractor.
type YtDlp struct {
	// ToolPath overrides the binary looked up on PATH.
	ToolPath string

	probes *ttlcache.Cache[string, bool]
}

// NewYtDlp returns the generic media backend.
func NewYtDlp(toolPath string) *YtDlp {
	return &YtDlp{
		ToolPath: toolPath,
		probes:   ttlcache.New(ttlcache.WithTTL[string, bool](probeTTL)),
	}
}

func (b *YtDlp) Name() string { return "ytdlp" }

func (b *YtDlp) tool() string {
	if b.ToolPath != "" {
		return b.ToolPath
	}
	return "yt-dlp"
}

// Probe asks the extractor to resolve url without downloading anything.
func (b *YtDlp) Probe(ctx context.Context, url string) bool {
	if item := b.probes.Get(url); item != nil {
		return item.Value()
	}
	err := exec.CommandContext(ctx, b.tool(),
		"--simulate",
		"--skip-download",
		"--no-playlist",
		"--quiet",
		url,
	).Run()
	ok := err == nil
	b.probes.Set(url, ok, ttlcache.DefaultTTL)
	return ok
}

// Fetch downloads the single best-quality rendition plus its description,
// info-JSON and thumbnail sidecars. Playlist expansion is disabled: a
// URL that happens to sit in a playlist yields only its own item.
func (b *YtDlp) Fetch(ctx context.Context, url, dir string) error {
	out, err := exec.CommandContext(ctx, b.tool(),
		"--format", "best",
		"--write-description",
		"--write-info-json",
		"--write-thumbnail",
		"--no-playlist",
		"--no-overwrites",
		"--output", dir+"/%(id)s-%(autonumber)s.%(ext)s",
		url,
	).CombinedOutput()
	if err != nil {
		return fmt.Errorf("yt-dlp %s: %w: %s", url, err, truncate(out))
	}
	return nil
}

// truncate keeps tool output in error messages readable.
func truncate(out []byte) string {
	const max = 2048
	if len(out) > max {
		out = out[len(out)-max:]
	}
	return string(out)
}
