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

// Package workqueue schedules ingestion runs through the database work
// queue and runs the worker loop that drains it.
package workqueue

import (
	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
)

// DedupeKey derives the queue dedupe key for a request. One request has
// at most one live queue item: resubmitting the same URL creates a new
// request (and a new key), while a requeue of an in-flight request is
// suppressed.
func DedupeKey(requestID uuid.UUID) int64 {
	return int64(xxhash.Sum64(requestID[:]))
}

// StagingPrefix is where an upload request's staged content lives in
// blob storage until the run ingests it.
func StagingPrefix(requestID uuid.UUID) string {
	return "uploads/" + requestID.String() + "/"
}

// StagingKey addresses one staged upload file.
func StagingKey(requestID uuid.UUID, name string) string {
	return StagingPrefix(requestID) + name
}
