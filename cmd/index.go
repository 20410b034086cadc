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

package cmd

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func init() {
	var (
		requestID    string
		collectionID string
	)

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Republish search documents for a request or a whole collection",
		Long: `Rebuild and upsert the search documents for one request, or for every
request in a collection. Publishing is idempotent, documents are keyed
by file id.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx, stop := signalContext()
			defer stop()

			if (requestID == "") == (collectionID == "") {
				return fmt.Errorf("exactly one of --request or --collection is required")
			}

			s, err := buildServices(ctx)
			if err != nil {
				return err
			}
			defer s.close()

			if requestID != "" {
				id, err := uuid.Parse(requestID)
				if err != nil {
					return fmt.Errorf("parse request id: %w", err)
				}
				if err := s.indexer.Publish(ctx, id); err != nil {
					return err
				}
				slog.Info("Reindexed request", slog.String("request_id", id.String()))
				return nil
			}

			id, err := uuid.Parse(collectionID)
			if err != nil {
				return fmt.Errorf("parse collection id: %w", err)
			}
			requests, err := s.store.ListRequestsByCollection(ctx, id)
			if err != nil {
				return err
			}
			for _, req := range requests {
				if err := s.indexer.Publish(ctx, req.ID); err != nil {
					return fmt.Errorf("reindex request %s: %w", req.ID, err)
				}
			}
			slog.Info("Reindexed collection",
				slog.String("collection_id", id.String()),
				slog.Int("requests", len(requests)))
			return nil
		},
	}

	cmd.Flags().StringVar(&requestID, "request", "", "request id to reindex")
	cmd.Flags().StringVar(&collectionID, "collection", "", "collection id to reindex")

	rootCmd.AddCommand(cmd)
}
