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

// Package dbopen connects commands to the mediavault database from
// environment configuration.
package dbopen

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/mediavaulthq/mediavault/mvdb"
)

var ErrDatabaseNotConfigured = errors.New("database connection configuration is unavailable")

// DatabaseURL constructs a PostgreSQL URL from environment variables
// named MVDB_HOST, MVDB_PORT, MVDB_USER, MVDB_PASSWORD, MVDB_DBNAME and
// optionally MVDB_SSLMODE. MVDB_URL, when set, wins outright.
//
// It requires at minimum HOST and DBNAME, and defaults PORT to 5432.
func DatabaseURL() (string, error) {
	const prefix = "MVDB_"

	if urlStr := os.Getenv(prefix + "URL"); urlStr != "" {
		return urlStr, nil
	}

	host := os.Getenv(prefix + "HOST")
	dbname := os.Getenv(prefix + "DBNAME")

	var missing []string
	if host == "" {
		missing = append(missing, prefix+"HOST")
	}
	if dbname == "" {
		missing = append(missing, prefix+"DBNAME")
	}
	if len(missing) > 0 {
		return "", fmt.Errorf(
			"missing required environment variable(s): %s",
			strings.Join(missing, ", "),
		)
	}

	port := os.Getenv(prefix + "PORT")
	if port == "" {
		port = "5432"
	}
	user := os.Getenv(prefix + "USER")
	pass := os.Getenv(prefix + "PASSWORD")
	sslmode := os.Getenv(prefix + "SSLMODE")

	u := &url.URL{
		Scheme: "postgresql",
		Host:   host + ":" + port,
		Path:   dbname,
	}
	if user != "" {
		if pass != "" {
			u.User = url.UserPassword(user, pass)
		} else {
			u.User = url.User(user)
		}
	}
	q := u.Query()
	if sslmode != "" {
		q.Set("sslmode", sslmode)
	}
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// Store opens a connection pool from the environment and wraps it in
// the query store.
func Store(ctx context.Context) (*mvdb.Store, error) {
	connectionString, err := DatabaseURL()
	if err != nil {
		return nil, errors.Join(ErrDatabaseNotConfigured, err)
	}
	pool, err := mvdb.NewConnectionPool(ctx, connectionString)
	if err != nil {
		return nil, fmt.Errorf("connect to mvdb: %w", err)
	}
	return mvdb.NewStore(pool), nil
}
