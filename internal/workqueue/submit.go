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

package workqueue

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/mediavaulthq/mediavault/internal/backend"
	"github.com/mediavaulthq/mediavault/internal/blobstore"
	"github.com/mediavaulthq/mediavault/internal/logctx"
	"github.com/mediavaulthq/mediavault/mvdb"
)

// Submitter turns user submissions into enqueued requests.
type Submitter struct {
	DB      *mvdb.Store
	Blobs   blobstore.Client
	Video   backend.Backend
	Gallery backend.Backend
}

// SubmitParams is one submitted URL.
type SubmitParams struct {
	CollectionID   uuid.UUID
	Owner          string
	URL            string
	Kind           mvdb.RequestKind
	ContentWarning string
	Tags           []string
}

// Submit fans a submitted URL out into one request per acquisition kind
// and enqueues each. The request row and its queue item commit in the
// same transaction, so a worker can never claim an uncommitted request.
func (s *Submitter) Submit(ctx context.Context, arg SubmitParams) ([]mvdb.Request, error) {
	var (
		kinds    []mvdb.RequestKind
		fallback bool
	)
	if _, ok := backend.MatchPost(arg.URL); ok {
		// Post references run on the messaging backend regardless of
		// the submitted kind; no fan-out.
		kinds = []mvdb.RequestKind{arg.Kind}
	} else {
		kinds, fallback = backend.Select(ctx, arg.URL, arg.Kind, s.Video, s.Gallery)
	}

	requests := make([]mvdb.Request, 0, len(kinds))
	for _, kind := range kinds {
		message := ""
		if fallback {
			message = fmt.Sprintf("could not classify the URL, attempting as %s", strings.ToLower(string(kind)))
		}
		req, err := s.enqueueOne(ctx, arg, kind, message)
		if err != nil {
			return requests, err
		}
		requests = append(requests, req)
	}
	return requests, nil
}

func (s *Submitter) enqueueOne(ctx context.Context, arg SubmitParams, kind mvdb.RequestKind, message string) (mvdb.Request, error) {
	var req mvdb.Request
	err := s.DB.ExecTx(ctx, func(q *mvdb.Queries) error {
		var err error
		req, err = q.CreateRequest(ctx, mvdb.CreateRequestParams{
			CollectionID:   arg.CollectionID,
			URL:            arg.URL,
			Kind:           kind,
			Owner:          arg.Owner,
			Message:        message,
			ContentWarning: arg.ContentWarning,
			Tags:           arg.Tags,
		})
		if err != nil {
			return err
		}
		inserted, err := q.AddWork(ctx, mvdb.AddWorkParams{
			RequestID: req.ID,
			DedupeKey: DedupeKey(req.ID),
		})
		if err != nil {
			return err
		}
		if !inserted {
			return errors.New("queue item for new request already exists")
		}
		return q.SetRequestStatus(ctx, req.ID, mvdb.StatusEnqueued)
	})
	if err != nil {
		return mvdb.Request{}, fmt.Errorf("enqueue %s as %s: %w", arg.URL, kind, err)
	}
	req.Status = mvdb.StatusEnqueued
	logctx.FromContext(ctx).Info("Enqueued request",
		"request_id", req.ID.String(), "kind", string(kind))
	return req, nil
}

// UploadParams is one user-uploaded file.
type UploadParams struct {
	CollectionID   uuid.UUID
	Owner          string
	FileName       string
	Content        io.Reader
	ContentWarning string
	Tags           []string
}

// SubmitUpload stages an uploaded file in blob storage and enqueues an
// upload request for it. The request commits before the blob is staged
// and is only enqueued once staging succeeded, so a claimed upload
// always finds its content.
func (s *Submitter) SubmitUpload(ctx context.Context, arg UploadParams) (mvdb.Request, error) {
	if arg.FileName == "" {
		return mvdb.Request{}, errors.New("upload needs a file name")
	}

	req, err := s.DB.CreateRequest(ctx, mvdb.CreateRequestParams{
		CollectionID:   arg.CollectionID,
		URL:            mvdb.UploadSentinelURL,
		Kind:           mvdb.KindUpload,
		Owner:          arg.Owner,
		ContentWarning: arg.ContentWarning,
		Tags:           arg.Tags,
	})
	if err != nil {
		return mvdb.Request{}, err
	}

	key := StagingKey(req.ID, arg.FileName)
	if err := s.Blobs.Put(ctx, key, arg.Content); err != nil {
		return mvdb.Request{}, fmt.Errorf("stage upload for %s: %w", req.ID, err)
	}

	err = s.DB.ExecTx(ctx, func(q *mvdb.Queries) error {
		if _, err := q.AddWork(ctx, mvdb.AddWorkParams{
			RequestID: req.ID,
			DedupeKey: DedupeKey(req.ID),
		}); err != nil {
			return err
		}
		return q.SetRequestStatus(ctx, req.ID, mvdb.StatusEnqueued)
	})
	if err != nil {
		return mvdb.Request{}, fmt.Errorf("enqueue upload %s: %w", req.ID, err)
	}
	req.Status = mvdb.StatusEnqueued
	return req, nil
}

// CleanupStagedUpload removes an upload's staged blobs once the run has
// ingested them.
func CleanupStagedUpload(ctx context.Context, blobs blobstore.Client, requestID uuid.UUID) error {
	keys, err := blobs.List(ctx, StagingPrefix(requestID))
	if err != nil {
		return err
	}
	for _, key := range keys {
		if err := blobs.Delete(ctx, key); err != nil {
			return err
		}
	}
	return nil
}
