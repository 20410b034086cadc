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

	"github.com/mediavaulthq/mediavault/cmd/dbopen"
	"github.com/mediavaulthq/mediavault/mvdb"
)

func init() {
	cmd := &cobra.Command{
		Use:   "collections",
		Short: "Manage collections",
	}
	cmd.AddCommand(newCollectionsCreateCmd())
	cmd.AddCommand(newCollectionsCloseCmd())
	cmd.AddCommand(newCollectionsArchiveCmd())
	rootCmd.AddCommand(cmd)
}

func newCollectionsCreateCmd() *cobra.Command {
	var (
		name        string
		description string
		owner       string
		tags        []string
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an open collection",
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx, stop := signalContext()
			defer stop()

			store, err := dbopen.Store(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			col, err := store.CreateCollection(ctx, mvdb.CreateCollectionParams{
				Name:        name,
				Description: description,
				Owner:       owner,
				Tags:        tags,
			})
			if err != nil {
				return err
			}
			slog.Info("Collection created",
				slog.String("collection_id", col.ID.String()),
				slog.String("search_index", col.SearchIndex))
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "collection name")
	cmd.Flags().StringVar(&description, "description", "", "collection description")
	cmd.Flags().StringVar(&owner, "owner", "", "collection owner")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "tag to attach, repeatable")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("owner")
	return cmd
}

func newCollectionsCloseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "close COLLECTION_ID",
		Short: "Close a collection to new submissions",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("parse collection id: %w", err)
			}
			store, err := dbopen.Store(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.SetCollectionStatus(ctx, id, mvdb.CollectionClosed); err != nil {
				return err
			}
			slog.Info("Collection closed", slog.String("collection_id", id.String()))
			return nil
		},
	}
}

func newCollectionsArchiveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "archive COLLECTION_ID",
		Short: "Free a collection's storage while keeping its records",
		Long: `Delete the collection's stored content and report archives from blob
storage and mark the collection ARCHIVED. Database rows and search
documents are retained.`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("parse collection id: %w", err)
			}
			s, err := buildServices(ctx)
			if err != nil {
				return err
			}
			defer s.close()

			if err := s.store.ArchiveCollection(ctx, id, s.blobs); err != nil {
				return err
			}
			slog.Info("Collection archived", slog.String("collection_id", id.String()))
			return nil
		},
	}
}
