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
	"time"

	"github.com/google/uuid"
)

// RequestStatus is the acquisition lifecycle. CANCELLED is terminal and
// only ever set by operator intervention, never by the pipeline.
type RequestStatus string

const (
	StatusCreated    RequestStatus = "CREATED"
	StatusEnqueued   RequestStatus = "ENQUEUED"
	StatusProcessing RequestStatus = "PROCESSING"
	StatusSucceeded  RequestStatus = "SUCCEEDED"
	StatusFailed     RequestStatus = "FAILED"
	StatusCancelled  RequestStatus = "CANCELLED"
)

// RequestKind is the declared (or resolved) acquisition type.
type RequestKind string

const (
	KindAutomatic RequestKind = "AUTOMATIC"
	KindVideo     RequestKind = "VIDEO"
	KindGallery   RequestKind = "GALLERY"
	KindUpload    RequestKind = "UPLOAD"
)

// UploadSentinelURL marks a request whose content came from an uploaded
// file rather than a fetched URL.
const UploadSentinelURL = "http://dummy.url.local"

// CollectionStatus is the collection lifecycle.
type CollectionStatus string

const (
	CollectionOpen     CollectionStatus = "OPEN"
	CollectionClosed   CollectionStatus = "CLOSED"
	CollectionArchived CollectionStatus = "ARCHIVED"
)

// Collection groups requests and namespaces their search index.
type Collection struct {
	ID          uuid.UUID
	Name        string
	Description string
	Owner       string
	Status      CollectionStatus
	Tags        []string
	// SearchIndex is the random suffix of the collection's index
	// namespace; the full index name is "c." + SearchIndex.
	SearchIndex string
	Indexed     bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Request is one acquisition attempt.
type Request struct {
	ID             uuid.UUID
	CollectionID   uuid.UUID
	URL            string
	Kind           RequestKind
	Status         RequestStatus
	Message        string
	Owner          string
	Hidden         bool
	ContentWarning string
	Tags           []string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// IsUpload reports whether the request's content was uploaded.
func (r Request) IsUpload() bool {
	return r.URL == UploadSentinelURL
}

// Report is one execution record of a request. Reports are append-only
// history: a re-run creates a new Report, never mutates an old one.
type Report struct {
	ID           uuid.UUID
	RequestID    uuid.UUID
	Owner        string
	InError      bool
	ErrorMessage string
	// ArchiveKey references the report's zip bundle in blob storage;
	// empty until the archive is built.
	ArchiveKey string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// File is one ingested content unit under a report. A File without
// digests is transient and must not be indexed or archived.
type File struct {
	ID       uuid.UUID
	ReportID uuid.UUID
	Owner    string
	// Name is the workspace-relative display name.
	Name        string
	Sha256      string
	Md5         string
	MimeType    string
	IsTarget    bool
	Metadata    map[string]any
	Exif        map[string]any
	Description string
	// BlobKey references the binary content in blob storage.
	BlobKey   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Credential is a named credential bag for an external platform.
type Credential struct {
	ID         uuid.UUID
	Name       string
	Credential map[string]any
}

// WorkItem is one queued ingestion run.
type WorkItem struct {
	ID        int64
	RequestID uuid.UUID
	DedupeKey int64
	ClaimedBy string
	ClaimedAt *time.Time
	Heartbeat *time.Time
	CreatedAt time.Time
}
