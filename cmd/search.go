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

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func init() {
	var (
		collections []string
		size        int
	)

	cmd := &cobra.Command{
		Use:   "search QUERY",
		Short: "Search indexed content across collections",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			s, err := buildServices(ctx)
			if err != nil {
				return err
			}
			defer s.close()

			namespaces := make([]string, 0, len(collections))
			for _, raw := range collections {
				id, err := uuid.Parse(raw)
				if err != nil {
					return fmt.Errorf("parse collection id %q: %w", raw, err)
				}
				col, err := s.store.GetCollection(ctx, id)
				if err != nil {
					return err
				}
				namespaces = append(namespaces, col.SearchIndex)
			}

			hits, err := s.indexer.Search(ctx, namespaces, args[0], size)
			if err != nil {
				return err
			}
			out := c.OutOrStdout()
			for _, hit := range hits {
				fmt.Fprintf(out, "%s\t%.2f\t%s\t%s\n",
					hit.ID, hit.Score, hit.Source.MimeType, hit.Source.WebpageURL)
			}
			fmt.Fprintf(out, "%d hits\n", len(hits))
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&collections, "collection", nil, "collection id to search, repeatable")
	cmd.Flags().IntVar(&size, "size", 50, "maximum number of hits")
	_ = cmd.MarkFlagRequired("collection")

	rootCmd.AddCommand(cmd)
}
