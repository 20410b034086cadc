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

// Package ingest drives one acquisition request from claimed to
// terminal: fetch through a backend, ingest the produced files, then
// archive, index and notify.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/mediavaulthq/mediavault/internal/backend"
	"github.com/mediavaulthq/mediavault/internal/blobstore"
	"github.com/mediavaulthq/mediavault/internal/logctx"
	"github.com/mediavaulthq/mediavault/internal/notify"
	"github.com/mediavaulthq/mediavault/internal/snapshot"
	"github.com/mediavaulthq/mediavault/internal/workqueue"
	"github.com/mediavaulthq/mediavault/mvdb"
)

// Store is the database surface the engine needs.
type Store interface {
	GetRequest(ctx context.Context, id uuid.UUID) (mvdb.Request, error)
	SetRequestStatus(ctx context.Context, id uuid.UUID, status mvdb.RequestStatus) error
	CreateReport(ctx context.Context, requestID uuid.UUID, owner string) (mvdb.Report, error)
	AppendReportError(ctx context.Context, id uuid.UUID, trace string) error
	CreateFile(ctx context.Context, arg mvdb.CreateFileParams) (mvdb.File, error)
	SetFileBlobKey(ctx context.Context, id uuid.UUID, key string) error
}

// Archiver builds a report's zip bundle.
type Archiver interface {
	Build(ctx context.Context, reportID uuid.UUID) error
}

// Publisher pushes a request's files into the search index.
type Publisher interface {
	Publish(ctx context.Context, requestID uuid.UUID) error
}

// Runner executes ingestion runs. Optional collaborators (Snapshot,
// Archiver, Indexer, Notifier) may be nil and are skipped.
type Runner struct {
	DB    Store
	Blobs blobstore.Client

	Video     backend.Backend
	Gallery   backend.Backend
	Messaging backend.Backend

	Snapshot  snapshot.Capturer
	Harvester Harvester
	Archiver  Archiver
	Indexer   Publisher
	Notifier  notify.Notifier
}

// Run drives requestID to a terminal state. The returned error reports
// engine breakage only (unknown request, database down); a failed
// acquisition is recorded on the request and its report, and Run
// returns nil for it.
func (r *Runner) Run(ctx context.Context, requestID uuid.UUID) error {
	req, err := r.DB.GetRequest(ctx, requestID)
	if err != nil {
		return fmt.Errorf("load request %s: %w", requestID, err)
	}
	ll := logctx.FromContext(ctx).With("request_id", req.ID.String(), "kind", string(req.Kind))
	ctx = logctx.WithLogger(ctx, ll)

	if req.Status == mvdb.StatusCancelled {
		ll.Info("Skipping cancelled request")
		return nil
	}

	if err := r.DB.SetRequestStatus(ctx, req.ID, mvdb.StatusProcessing); err != nil {
		return err
	}
	// The report exists before any extraction is attempted, so a crash
	// during fetch still leaves an inspectable record.
	rep, err := r.DB.CreateReport(ctx, req.ID, req.Owner)
	if err != nil {
		return err
	}

	workspace, err := os.MkdirTemp("", "mediavault-run-")
	if err != nil {
		return r.fail(ctx, req, rep, fmt.Errorf("create workspace: %w", err))
	}
	defer func() {
		if rmErr := os.RemoveAll(workspace); rmErr != nil {
			ll.Warn("Removing workspace failed", "dir", workspace, "error", rmErr.Error())
		}
	}()

	if err := r.execute(ctx, req, rep, workspace); err != nil {
		return r.fail(ctx, req, rep, err)
	}

	if err := r.DB.SetRequestStatus(ctx, req.ID, mvdb.StatusSucceeded); err != nil {
		return err
	}

	// The archive is a convenience artifact; its failure never demotes
	// a succeeded request.
	if r.Archiver != nil {
		if err := r.Archiver.Build(ctx, rep.ID); err != nil {
			ll.Error("Archive build failed", "report_id", rep.ID.String(), "error", err.Error())
		}
	}

	// A broken index publish does demote the request: search is part of
	// the product, an unfindable ingest is not a success.
	if r.Indexer != nil {
		if err := r.Indexer.Publish(ctx, req.ID); err != nil {
			return r.fail(ctx, req, rep, fmt.Errorf("publish search documents: %w", err))
		}
	}

	if req.IsUpload() {
		if err := workqueue.CleanupStagedUpload(ctx, r.Blobs, req.ID); err != nil {
			ll.Warn("Cleaning staged upload failed", "error", err.Error())
		}
	}

	ll.Info("Request succeeded", "report_id", rep.ID.String())
	runsCompleted.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "succeeded")))
	r.notify(ctx, req, "Your files have been successfully downloaded", notify.SeverityInfo)
	return nil
}

// fail records err on the report, marks the request FAILED and sends
// the failure notification. Files ingested before the failure point are
// kept.
func (r *Runner) fail(ctx context.Context, req mvdb.Request, rep mvdb.Report, cause error) error {
	ll := logctx.FromContext(ctx)
	ll.Error("Request failed", "report_id", rep.ID.String(), "error", cause.Error())

	if err := r.DB.AppendReportError(ctx, rep.ID, cause.Error()); err != nil {
		return errors.Join(cause, err)
	}
	if err := r.DB.SetRequestStatus(ctx, req.ID, mvdb.StatusFailed); err != nil {
		return errors.Join(cause, err)
	}
	// Staged upload content is dead weight either way once the run is
	// terminal.
	if req.IsUpload() {
		if err := workqueue.CleanupStagedUpload(ctx, r.Blobs, req.ID); err != nil {
			ll.Warn("Cleaning staged upload failed", "error", err.Error())
		}
	}
	runsCompleted.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "failed")))
	r.notify(ctx, req, "Your request has failed", notify.SeverityError)
	return nil
}

func (r *Runner) notify(ctx context.Context, req mvdb.Request, message string, severity notify.Severity) {
	if r.Notifier == nil {
		return
	}
	deepLink := fmt.Sprintf("/collections/%s#%s", req.CollectionID, req.ID)
	if err := r.Notifier.Notify(ctx, req.Owner, message, severity, deepLink); err != nil {
		logctx.FromContext(ctx).Warn("Notification failed", "error", err.Error())
	}
}

// execute performs steps 3 to 6: acquire content into the workspace and
// ingest every produced file.
func (r *Runner) execute(ctx context.Context, req mvdb.Request, rep mvdb.Report, workspace string) error {
	if req.IsUpload() {
		if err := r.stageUpload(ctx, req, workspace); err != nil {
			return err
		}
	} else {
		be, err := r.resolveBackend(req)
		if err != nil {
			return err
		}
		logctx.FromContext(ctx).Info("Fetching", "backend", be.Name(), "url", req.URL)
		if err := be.Fetch(ctx, req.URL, workspace); err != nil {
			return err
		}
		r.captureSnapshot(ctx, req.URL, workspace)
	}

	return r.ingestFiles(ctx, req, rep, workspace)
}

// resolveBackend picks the backend for one claimed request. Post
// references go to the messaging backend regardless of kind.
func (r *Runner) resolveBackend(req mvdb.Request) (backend.Backend, error) {
	if _, ok := backend.MatchPost(req.URL); ok {
		if r.Messaging == nil {
			return nil, errors.New("no messaging backend configured")
		}
		return r.Messaging, nil
	}
	switch req.Kind {
	case mvdb.KindVideo:
		return r.Video, nil
	case mvdb.KindGallery:
		return r.Gallery, nil
	default:
		return nil, fmt.Errorf("no backend for kind %s", req.Kind)
	}
}

// captureSnapshot is best effort; the page image is a supplementary
// artifact.
func (r *Runner) captureSnapshot(ctx context.Context, url, workspace string) {
	if r.Snapshot == nil {
		return
	}
	if err := r.Snapshot.Capture(ctx, url, workspace); err != nil {
		logctx.FromContext(ctx).Warn("Page snapshot failed", "url", url, "error", err.Error())
	}
}

// stageUpload copies the request's staged blobs into the workspace so
// uploads flow through the same ingestion path as fetched content.
func (r *Runner) stageUpload(ctx context.Context, req mvdb.Request, workspace string) error {
	prefix := workqueue.StagingPrefix(req.ID)
	keys, err := r.Blobs.List(ctx, prefix)
	if err != nil {
		return fmt.Errorf("list staged upload: %w", err)
	}
	if len(keys) == 0 {
		return fmt.Errorf("upload request %s has no staged content", req.ID)
	}
	for _, key := range keys {
		if err := r.copyStaged(ctx, key, filepath.Join(workspace, filepath.Base(key))); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) copyStaged(ctx context.Context, key, dst string) error {
	body, notFound, err := r.Blobs.Get(ctx, key)
	if err != nil {
		return err
	}
	if notFound {
		return fmt.Errorf("staged blob %s is missing", key)
	}
	defer func() { _ = body.Close() }()
	return writeFile(dst, body)
}
