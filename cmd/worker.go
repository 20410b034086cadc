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
	"context"
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/mediavaulthq/mediavault/internal/workqueue"
)

func init() {
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Run the ingestion worker",
		Long:  `Claim enqueued requests from the work queue and run them to a terminal state. Runs until interrupted.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx, stop := signalContext()
			defer stop()

			s, err := buildServices(ctx)
			if err != nil {
				return err
			}
			defer s.close()

			w := &workqueue.Worker{
				Queue:          s.store.Queries,
				Engine:         s.runner(),
				Concurrency:    s.cfg.Worker.Concurrency,
				PollInterval:   s.cfg.Worker.PollInterval,
				HeartbeatEvery: s.cfg.Worker.HeartbeatEvery,
				StaleAfter:     s.cfg.Worker.StaleAfter,
			}

			monitor, err := workqueue.NewDepthMonitor(s.store.Queries, s.cfg.Worker.PollInterval)
			if err != nil {
				return err
			}
			go func() {
				if err := monitor.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
					slog.Warn("Queue depth monitor stopped", slog.Any("error", err))
				}
			}()

			slog.Info("Worker starting", slog.Int("concurrency", s.cfg.Worker.Concurrency))
			return w.Run(ctx)
		},
	}
	rootCmd.AddCommand(cmd)
}
