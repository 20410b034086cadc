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

package ingest

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/mediavaulthq/mediavault/internal/blobstore"
	"github.com/mediavaulthq/mediavault/internal/fileident"
	"github.com/mediavaulthq/mediavault/internal/logctx"
	"github.com/mediavaulthq/mediavault/internal/metaharvest"
	"github.com/mediavaulthq/mediavault/internal/snapshot"
	"github.com/mediavaulthq/mediavault/mvdb"
)

// Harvester extracts best-effort embedded metadata from a local file.
type Harvester interface {
	Exif(ctx context.Context, path string) metaharvest.Result
}

// ingestFiles walks the workspace and persists one File per regular
// file found, streaming each binary into blob storage as it goes.
func (r *Runner) ingestFiles(ctx context.Context, req mvdb.Request, rep mvdb.Report, workspace string) error {
	ll := logctx.FromContext(ctx)
	count := 0
	err := filepath.WalkDir(workspace, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(workspace, path)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)
		if err := r.ingestOne(ctx, req, rep, workspace, path, name); err != nil {
			return fmt.Errorf("ingest %s: %w", name, err)
		}
		count++
		return nil
	})
	if err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("backend produced no files for %s", req.URL)
	}
	ll.Info("Ingested files", "count", count)
	return nil
}

func (r *Runner) ingestOne(ctx context.Context, req mvdb.Request, rep mvdb.Report, workspace, path, name string) error {
	ident, err := fileident.Identify(path)
	if err != nil {
		return err
	}

	meta := r.harvestSidecar(workspace, name)
	exif := r.harvestExif(ctx, name, path)

	f, err := r.DB.CreateFile(ctx, mvdb.CreateFileParams{
		ReportID:    rep.ID,
		Owner:       req.Owner,
		Name:        name,
		Sha256:      ident.Sha256,
		Md5:         ident.Md5,
		MimeType:    ident.MimeType,
		IsTarget:    isTarget(req.Kind, name, ident.MimeType),
		Metadata:    meta.Data,
		Exif:        exif.Data,
		Description: readDescription(workspace, name),
	})
	if err != nil {
		return err
	}

	key := fmt.Sprintf("%s/%s/%s", req.Owner, req.ID, f.ID)
	if err := blobstore.PutFile(ctx, r.Blobs, key, path); err != nil {
		return err
	}
	if err := r.DB.SetFileBlobKey(ctx, f.ID, key); err != nil {
		return err
	}
	filesIngested.Add(ctx, 1)
	return nil
}

// harvestSidecar attaches backend-written JSON metadata to payload
// files. Sidecars themselves and the page snapshot carry none.
func (r *Runner) harvestSidecar(workspace, name string) metaharvest.Result {
	if metaharvest.IsSidecar(name) || strings.Contains(name, snapshot.FileName) {
		return metaharvest.Unavailable("not a payload file")
	}
	return metaharvest.Sidecar(workspace, name)
}

func (r *Runner) harvestExif(ctx context.Context, name, path string) metaharvest.Result {
	if r.Harvester == nil {
		return metaharvest.Unavailable("no harvester configured")
	}
	if metaharvest.IsSidecar(name) || strings.Contains(name, snapshot.FileName) {
		return metaharvest.Unavailable("not a payload file")
	}
	return r.Harvester.Exif(ctx, path)
}

// isTarget classifies the primary payload for a request kind. Thumbnails
// and the page snapshot are never targets, whatever their mime type.
func isTarget(kind mvdb.RequestKind, name, mimeType string) bool {
	if strings.Contains(name, "thumbnail") || strings.Contains(name, snapshot.FileName) {
		return false
	}
	switch kind {
	case mvdb.KindVideo:
		return strings.HasPrefix(mimeType, "video/")
	case mvdb.KindGallery:
		return strings.HasPrefix(mimeType, "image/")
	default:
		// Uploads and messaging posts accept either payload class.
		return strings.HasPrefix(mimeType, "video/") || strings.HasPrefix(mimeType, "image/")
	}
}

// readDescription returns the contents of the file's ".description"
// sibling, as written by the video extractor.
func readDescription(workspace, name string) string {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	if base == "" || metaharvest.IsSidecar(name) {
		return ""
	}
	raw, err := os.ReadFile(filepath.Join(workspace, filepath.FromSlash(base)+".description"))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(raw))
}

func writeFile(dst string, body io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	f, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, body); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", dst, err)
	}
	return f.Close()
}
