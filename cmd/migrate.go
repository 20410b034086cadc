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
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/mediavaulthq/mediavault/cmd/dbopen"
	"github.com/mediavaulthq/mediavault/mvdb/migrations"
)

func init() {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database schema migrations",
		RunE: func(_ *cobra.Command, _ []string) error {
			url, err := dbopen.DatabaseURL()
			if err != nil {
				return err
			}
			if err := migrations.RunMigrations(url); err != nil {
				return err
			}
			slog.Info("Database schema is up to date")
			return nil
		},
	}
	rootCmd.AddCommand(cmd)
}
