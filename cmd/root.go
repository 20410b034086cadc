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
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	slogmulti "github.com/samber/slog-multi"
	"github.com/spf13/cobra"

	"github.com/mediavaulthq/mediavault/config"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "mediavault",
	Short: "Acquire, ingest and index online media",
	Long:  `Fetch media from URLs, uploads and messaging-platform posts, ingest the files into blob storage and publish them to per-collection search indexes.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	setupLogging()
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

// setupLogging fans log records out to stderr and, when
// MEDIAVAULT_LOG_FILE is set, to a JSON file for collection.
func setupLogging() {
	level := slog.LevelInfo
	if os.Getenv("MEDIAVAULT_DEBUG") != "" {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	handlers := []slog.Handler{slog.NewTextHandler(os.Stderr, opts)}
	if path := os.Getenv("MEDIAVAULT_LOG_FILE"); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			slog.Error("Cannot open log file, logging to stderr only",
				slog.String("path", path), slog.Any("error", err))
		} else {
			handlers = append(handlers, slog.NewJSONHandler(f, opts))
		}
	}
	slog.SetDefault(slog.New(slogmulti.Fanout(handlers...)))
}

// signalContext returns a context cancelled by SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func loadConfig() (*config.Config, error) {
	return config.Load()
}
