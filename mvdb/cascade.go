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

package mvdb

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"

	"github.com/mediavaulthq/mediavault/internal/blobstore"
	"github.com/mediavaulthq/mediavault/internal/logctx"
)

// IndexDeleter removes a collection's search-index namespace.
type IndexDeleter interface {
	DeleteIndex(ctx context.Context, searchIndex string) error
}

// CascadeDeleteCollection is the explicit cascade for collection
// deletion: drop the search-index namespace, delete stored blobs and
// archives, then delete the rows (requests/reports/files follow by FK).
//
// External cleanup is best effort: failures are logged and collected but
// do not stop the pass, so a flaky index or blob store cannot leave the
// rows behind. The combined error reports everything that was skipped.
func (store *Store) CascadeDeleteCollection(ctx context.Context, id uuid.UUID, blobs blobstore.Client, index IndexDeleter) error {
	log := logctx.FromContext(ctx)

	col, err := store.GetCollection(ctx, id)
	if err != nil {
		return fmt.Errorf("load collection %s: %w", id, err)
	}

	var errs *multierror.Error

	if index != nil {
		if err := index.DeleteIndex(ctx, col.SearchIndex); err != nil {
			log.Warn("failed to delete search index namespace",
				slog.String("search_index", col.SearchIndex), slog.Any("error", err))
			errs = multierror.Append(errs, err)
		}
	}

	requests, err := store.ListRequestsByCollection(ctx, id)
	if err != nil {
		return fmt.Errorf("list requests for %s: %w", id, err)
	}
	for _, req := range requests {
		reports, err := store.ListReportsByRequest(ctx, req.ID)
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		for _, rep := range reports {
			if err := store.deleteReportBlobs(ctx, rep, blobs); err != nil {
				log.Warn("failed to delete stored content for report",
					slog.String("report_id", rep.ID.String()), slog.Any("error", err))
				errs = multierror.Append(errs, err)
			}
		}
	}

	if err := store.DeleteCollectionRows(ctx, id); err != nil {
		return multierror.Append(errs, fmt.Errorf("delete collection rows: %w", err)).ErrorOrNil()
	}
	return errs.ErrorOrNil()
}

// ArchiveCollection frees storage for a closed collection: stored blobs
// and report archives are deleted while every row is retained, then the
// collection is marked ARCHIVED.
func (store *Store) ArchiveCollection(ctx context.Context, id uuid.UUID, blobs blobstore.Client) error {
	var errs *multierror.Error

	requests, err := store.ListRequestsByCollection(ctx, id)
	if err != nil {
		return fmt.Errorf("list requests for %s: %w", id, err)
	}
	for _, req := range requests {
		reports, err := store.ListReportsByRequest(ctx, req.ID)
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		for _, rep := range reports {
			if err := store.deleteReportBlobs(ctx, rep, blobs); err != nil {
				errs = multierror.Append(errs, err)
			}
		}
	}

	if err := store.SetCollectionStatus(ctx, id, CollectionArchived); err != nil {
		errs = multierror.Append(errs, err)
	}
	return errs.ErrorOrNil()
}

func (store *Store) deleteReportBlobs(ctx context.Context, rep Report, blobs blobstore.Client) error {
	var errs *multierror.Error

	files, err := store.ListFilesByReport(ctx, rep.ID)
	if err != nil {
		return err
	}
	for _, f := range files {
		if f.BlobKey == "" {
			continue
		}
		if err := blobs.Delete(ctx, f.BlobKey); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	if rep.ArchiveKey != "" {
		if err := blobs.Delete(ctx, rep.ArchiveKey); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	return errs.ErrorOrNil()
}
