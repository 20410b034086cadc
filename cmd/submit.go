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
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/mediavaulthq/mediavault/internal/workqueue"
	"github.com/mediavaulthq/mediavault/mvdb"
)

func init() {
	var (
		collection     string
		owner          string
		kind           string
		contentWarning string
		tags           []string
		uploadPath     string
	)

	cmd := &cobra.Command{
		Use:   "submit [URL]...",
		Short: "Submit URLs or a local file for acquisition",
		Long: `Enqueue one request per URL into the given collection. With --upload,
stage a local file instead of fetching a URL.`,
		RunE: func(_ *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			collectionID, err := uuid.Parse(collection)
			if err != nil {
				return fmt.Errorf("parse collection id: %w", err)
			}
			reqKind, err := parseKind(kind)
			if err != nil {
				return err
			}

			s, err := buildServices(ctx)
			if err != nil {
				return err
			}
			defer s.close()
			sub := s.submitter()

			if uploadPath != "" {
				if len(args) > 0 {
					return fmt.Errorf("--upload cannot be combined with URLs")
				}
				f, err := os.Open(uploadPath)
				if err != nil {
					return err
				}
				defer f.Close()
				req, err := sub.SubmitUpload(ctx, workqueue.UploadParams{
					CollectionID:   collectionID,
					Owner:          owner,
					FileName:       filepath.Base(uploadPath),
					Content:        f,
					ContentWarning: contentWarning,
					Tags:           tags,
				})
				if err != nil {
					return err
				}
				slog.Info("Upload enqueued", slog.String("request_id", req.ID.String()))
				return nil
			}

			if len(args) == 0 {
				return fmt.Errorf("at least one URL or --upload is required")
			}
			for _, url := range args {
				requests, err := sub.Submit(ctx, workqueue.SubmitParams{
					CollectionID:   collectionID,
					Owner:          owner,
					URL:            url,
					Kind:           reqKind,
					ContentWarning: contentWarning,
					Tags:           tags,
				})
				if err != nil {
					return err
				}
				for _, req := range requests {
					slog.Info("Request enqueued",
						slog.String("request_id", req.ID.String()),
						slog.String("kind", string(req.Kind)),
						slog.String("url", url))
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&collection, "collection", "", "collection id to submit into")
	cmd.Flags().StringVar(&owner, "owner", "", "owner recorded on the requests")
	cmd.Flags().StringVar(&kind, "kind", "automatic", "acquisition kind: automatic, video or gallery")
	cmd.Flags().StringVar(&contentWarning, "content-warning", "", "content warning label")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "tag to attach, repeatable")
	cmd.Flags().StringVar(&uploadPath, "upload", "", "path to a local file to upload")
	_ = cmd.MarkFlagRequired("collection")
	_ = cmd.MarkFlagRequired("owner")

	rootCmd.AddCommand(cmd)
}

func parseKind(s string) (mvdb.RequestKind, error) {
	switch strings.ToUpper(s) {
	case string(mvdb.KindAutomatic):
		return mvdb.KindAutomatic, nil
	case string(mvdb.KindVideo):
		return mvdb.KindVideo, nil
	case string(mvdb.KindGallery):
		return mvdb.KindGallery, nil
	default:
		return "", fmt.Errorf("unknown kind %q", s)
	}
}
