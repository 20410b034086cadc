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
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete-collection COLLECTION_ID",
		Short: "Delete a collection, its stored content and its search index",
		Long: `Remove the collection's search-index namespace, delete its stored
blobs and report archives, then delete the database rows. This cannot
be undone, pass --yes to confirm.`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			if !yes {
				return fmt.Errorf("refusing to delete without --yes")
			}
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("parse collection id: %w", err)
			}

			s, err := buildServices(ctx)
			if err != nil {
				return err
			}
			defer s.close()

			if err := s.store.CascadeDeleteCollection(ctx, id, s.blobs, s.indexer); err != nil {
				return err
			}
			slog.Info("Collection deleted", slog.String("collection_id", id.String()))
			return nil
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the deletion")
	rootCmd.AddCommand(cmd)
}
