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

// Package archiver packages a report's ingested files and their metadata
// sidecars into one retrievable zip bundle. Archives are a convenience
// artifact: failing to build one never fails the ingestion that owns it.
package archiver

import (
	"archive/zip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/mediavaulthq/mediavault/internal/blobstore"
	"github.com/mediavaulthq/mediavault/mvdb"
)

// Store is the database surface the builder needs.
type Store interface {
	GetReport(ctx context.Context, id uuid.UUID) (mvdb.Report, error)
	ListFilesByReport(ctx context.Context, reportID uuid.UUID) ([]mvdb.File, error)
	SetReportArchiveKey(ctx context.Context, id uuid.UUID, key string) error
	ListRequestsByCollection(ctx context.Context, collectionID uuid.UUID) ([]mvdb.Request, error)
	ListReportsByRequest(ctx context.Context, requestID uuid.UUID) ([]mvdb.Report, error)
}

// Builder assembles report archives into blob storage.
type Builder struct {
	DB    Store
	Blobs blobstore.Client
}

// ArchiveKey is where a report's bundle lives in blob storage.
func ArchiveKey(rep mvdb.Report) string {
	return fmt.Sprintf("%s/%s/%s.archive.zip", rep.Owner, rep.RequestID, rep.ID)
}

// Build writes the report's zip bundle and records its blob key,
// replacing any archive from an earlier build. The bundle holds every
// file with stored content under its display name, plus
// "<name>-exif.json" and "<name>-metadata.json" siblings for files that
// actually carry those bags.
func (b *Builder) Build(ctx context.Context, reportID uuid.UUID) error {
	rep, err := b.DB.GetReport(ctx, reportID)
	if err != nil {
		return fmt.Errorf("load report %s: %w", reportID, err)
	}
	files, err := b.DB.ListFilesByReport(ctx, reportID)
	if err != nil {
		return fmt.Errorf("list files for %s: %w", reportID, err)
	}

	tmp, err := os.CreateTemp("", "archive-*.zip")
	if err != nil {
		return err
	}
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
	}()

	zw := zip.NewWriter(tmp)
	for _, f := range files {
		if f.BlobKey == "" {
			continue
		}
		if err := b.addContent(ctx, zw, f); err != nil {
			return err
		}
		if len(f.Exif) > 0 {
			if err := addJSON(zw, f.Name+"-exif.json", f.Exif); err != nil {
				return err
			}
		}
		if len(f.Metadata) > 0 {
			if err := addJSON(zw, f.Name+"-metadata.json", f.Metadata); err != nil {
				return err
			}
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalize archive: %w", err)
	}

	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return err
	}
	key := ArchiveKey(rep)
	if err := b.Blobs.Put(ctx, key, tmp); err != nil {
		return fmt.Errorf("store archive: %w", err)
	}
	return b.DB.SetReportArchiveKey(ctx, reportID, key)
}

func (b *Builder) addContent(ctx context.Context, zw *zip.Writer, f mvdb.File) error {
	body, notFound, err := b.Blobs.Get(ctx, f.BlobKey)
	if err != nil {
		return fmt.Errorf("read blob %s: %w", f.BlobKey, err)
	}
	if notFound {
		return fmt.Errorf("blob %s for file %s is missing", f.BlobKey, f.ID)
	}
	defer func() { _ = body.Close() }()

	w, err := zw.Create(f.Name)
	if err != nil {
		return err
	}
	if _, err := io.Copy(w, body); err != nil {
		return fmt.Errorf("archive %s: %w", f.Name, err)
	}
	return nil
}

func addJSON(zw *zip.Writer, name string, data map[string]any) error {
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	w, err := zw.Create(name)
	if err != nil {
		return err
	}
	_, err = w.Write(raw)
	return err
}

// WriteCollection streams an on-the-fly bundle of every report archive
// in the collection into w. Nothing is persisted; reports without an
// archive are skipped.
func (b *Builder) WriteCollection(ctx context.Context, w io.Writer, collectionID uuid.UUID) error {
	requests, err := b.DB.ListRequestsByCollection(ctx, collectionID)
	if err != nil {
		return fmt.Errorf("list requests for %s: %w", collectionID, err)
	}

	zw := zip.NewWriter(w)
	for _, req := range requests {
		reports, err := b.DB.ListReportsByRequest(ctx, req.ID)
		if err != nil {
			return err
		}
		for _, rep := range reports {
			if rep.ArchiveKey == "" {
				continue
			}
			body, notFound, err := b.Blobs.Get(ctx, rep.ArchiveKey)
			if err != nil {
				return fmt.Errorf("read archive %s: %w", rep.ArchiveKey, err)
			}
			if notFound {
				continue
			}
			entry, err := zw.Create(filepath.Join(req.ID.String(), rep.ID.String()+".zip"))
			if err != nil {
				_ = body.Close()
				return err
			}
			_, err = io.Copy(entry, body)
			_ = body.Close()
			if err != nil {
				return err
			}
		}
	}
	return zw.Close()
}
