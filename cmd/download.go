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
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func init() {
	var (
		reportID     string
		collectionID string
		fileID       string
		out          string
	)

	cmd := &cobra.Command{
		Use:   "download",
		Short: "Download a file, a report archive or a whole collection bundle",
		Long: `Write a single ingested file, a report's archive, or a zip bundling
every archive in a collection, to a local file.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx, stop := signalContext()
			defer stop()

			selected := 0
			for _, v := range []string{reportID, collectionID, fileID} {
				if v != "" {
					selected++
				}
			}
			if selected != 1 {
				return fmt.Errorf("exactly one of --report, --collection or --file is required")
			}

			s, err := buildServices(ctx)
			if err != nil {
				return err
			}
			defer s.close()

			f, err := os.Create(out)
			if err != nil {
				return err
			}
			defer f.Close()

			if collectionID != "" {
				id, err := uuid.Parse(collectionID)
				if err != nil {
					return fmt.Errorf("parse collection id: %w", err)
				}
				if err := s.archiver().WriteCollection(ctx, f, id); err != nil {
					return err
				}
				slog.Info("Collection bundle written", slog.String("path", out))
				return nil
			}

			var key string
			if fileID != "" {
				id, err := uuid.Parse(fileID)
				if err != nil {
					return fmt.Errorf("parse file id: %w", err)
				}
				file, err := s.store.GetFile(ctx, id)
				if err != nil {
					return err
				}
				if file.BlobKey == "" {
					return fmt.Errorf("file %s has no stored content", id)
				}
				key = file.BlobKey
			} else {
				id, err := uuid.Parse(reportID)
				if err != nil {
					return fmt.Errorf("parse report id: %w", err)
				}
				rep, err := s.store.GetReport(ctx, id)
				if err != nil {
					return err
				}
				if rep.ArchiveKey == "" {
					return fmt.Errorf("report %s has no archive", id)
				}
				key = rep.ArchiveKey
			}

			rc, notFound, err := s.blobs.Get(ctx, key)
			if err != nil {
				return err
			}
			if notFound {
				return fmt.Errorf("blob %s is missing from storage", key)
			}
			defer rc.Close()
			if _, err := io.Copy(f, rc); err != nil {
				return err
			}
			slog.Info("Download written", slog.String("path", out))
			return nil
		},
	}

	cmd.Flags().StringVar(&reportID, "report", "", "report id to download")
	cmd.Flags().StringVar(&collectionID, "collection", "", "collection id to bundle")
	cmd.Flags().StringVar(&fileID, "file", "", "file id to download")
	cmd.Flags().StringVar(&out, "out", "", "output file path")
	_ = cmd.MarkFlagRequired("out")

	rootCmd.AddCommand(cmd)
}
