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

// Package backend drives the pluggable extraction tools that turn a URL
// into files in a scratch workspace. The tools themselves (yt-dlp,
// gallery-dl, the messaging exporter) are black boxes behind the Backend
// contract; probing, file layout and sidecar conventions are decided
// here.
package backend

import "context"

// Backend is the capability contract every extractor implements.
type Backend interface {
	// Name identifies the backend in logs and request messages.
	Name() string

	// Probe is a cheap feasibility check: can this backend plausibly
	// handle url? It must not download payload content and has no side
	// effects. A false probe is a hint, not a verdict.
	Probe(ctx context.Context, url string) bool

	// Fetch retrieves url, writing zero or more files into dir. It
	// returns an error only on total failure.
	Fetch(ctx context.Context, url, dir string) error
}
