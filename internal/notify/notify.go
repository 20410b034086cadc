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

// Package notify delivers the single terminal-state notification each
// ingestion run owes its requester. Delivery transport lives outside
// this system; the shipped implementation records the notification in
// the log.
package notify

import (
	"context"
	"log/slog"

	"github.com/mediavaulthq/mediavault/internal/logctx"
)

// Severity of a notification.
type Severity string

const (
	SeverityInfo  Severity = "info"
	SeverityError Severity = "error"
)

// Notifier sends one user-facing message with a deep link back to the
// relevant collection view.
type Notifier interface {
	Notify(ctx context.Context, user, message string, severity Severity, deepLink string) error
}

// LogNotifier writes notifications to the structured log.
type LogNotifier struct{}

func (LogNotifier) Notify(ctx context.Context, user, message string, severity Severity, deepLink string) error {
	log := logctx.FromContext(ctx)
	attrs := []any{
		slog.String("user", user),
		slog.String("severity", string(severity)),
		slog.String("link", deepLink),
	}
	if severity == SeverityError {
		log.Warn(message, attrs...)
	} else {
		log.Info(message, attrs...)
	}
	return nil
}
