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
	"github.com/mediavaulthq/mediavault/internal/workqueue"
)

func init() {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Requeue requests abandoned by dead workers",
		Long:  `Find requests stuck in PROCESSING beyond the configured threshold and put them back on the work queue. Intended to run periodically, e.g. from cron.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx, stop := signalContext()
			defer stop()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, err := dbopen.Store(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			sweeper := &workqueue.Sweeper{DB: store}
			requeued, err := sweeper.Sweep(ctx, cfg.Worker.StuckAfter)
			if err != nil {
				return err
			}
			slog.Info("Sweep finished", slog.Int("requeued", requeued))
			return nil
		},
	}
	rootCmd.AddCommand(cmd)
}
