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

	"github.com/jellydator/ttlcache/v3"
)

// GalleryDl wraps the batch-image/post extractor.
type GalleryDl struct {
	ToolPath string

	probes *ttlcache.Cache[string, bool]
}

// NewGalleryDl returns the gallery backend.
func NewGalleryDl(toolPath string) *GalleryDl {
	return &GalleryDl{
		ToolPath: toolPath,
		probes:   ttlcache.New(ttlcache.WithTTL[string, bool](probeTTL)),
	}
}

func (b *GalleryDl) Name() string { return "gallerydl" }

func (b *GalleryDl) tool() string {
	if b.ToolPath != "" {
		return b.ToolPath
	}
	return "gallery-dl"
}

// Probe checks whether any extractor claims the URL, without downloading.
func (b *GalleryDl) Probe(ctx context.Context, url string) bool {
	if item := b.probes.Get(url); item != nil {
		return item.Value()
	}
	err := exec.CommandContext(ctx, b.tool(),
		"--simulate",
		"--quiet",
		url,
	).Run()
	ok := err == nil
	b.probes.Set(url, ok, ttlcache.DefaultTTL)
	return ok
}

// Fetch downloads the gallery flat into dir: no nested directories and
// one JSON metadata sidecar next to each image, so sidecar association
// can match on basename at the workspace root.
func (b *GalleryDl) Fetch(ctx context.Context, url, dir string) error {
	out, err := exec.CommandContext(ctx, b.tool(),
		"--directory", dir,
		"--filename", "{id}-{num}.{extension}",
		"--write-metadata",
		"--option", "directory=[]",
		url,
	).CombinedOutput()
	if err != nil {
		return fmt.Errorf("gallery-dl %s: %w: %s", url, err, truncate(out))
	}
	return nil
}
