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
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

var (
	runsCompleted metric.Int64Counter
	filesIngested metric.Int64Counter
)

func init() {
	meter := otel.Meter("github.com/mediavaulthq/mediavault/internal/ingest")

	var err error
	runsCompleted, err = meter.Int64Counter(
		"mediavault.ingest.runs",
		metric.WithDescription("Number of ingestion runs reaching a terminal state, by outcome"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create runs counter: %w", err))
	}

	filesIngested, err = meter.Int64Counter(
		"mediavault.ingest.files.ingested",
		metric.WithDescription("Number of files persisted and uploaded to blob storage"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create files.ingested counter: %w", err))
	}
}
