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
	var unhide bool

	cmd := &cobra.Command{
		Use:   "hide REQUEST_ID",
		Short: "Hide a request's content from search results",
		Long: `Mark a request hidden and republish its documents so the query-time
filter excludes them; --unhide reverses it. Rows and blobs are
untouched either way.`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("parse request id: %w", err)
			}
			s, err := buildServices(ctx)
			if err != nil {
				return err
			}
			defer s.close()

			if err := s.store.SetRequestHidden(ctx, id, !unhide); err != nil {
				return err
			}
			if err := s.indexer.Publish(ctx, id); err != nil {
				return fmt.Errorf("republish request %s: %w", id, err)
			}
			slog.Info("Request visibility updated",
				slog.String("request_id", id.String()), slog.Bool("hidden", !unhide))
			return nil
		},
	}

	cmd.Flags().BoolVar(&unhide, "unhide", false, "make the request visible again")
	rootCmd.AddCommand(cmd)
}
