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

// Package idgen provides the small identifier helpers used across the
// pipeline: time-ordered ULIDs for scratch and blob names, and short
// random suffixes for search-index namespaces.
package idgen

import (
	crand "crypto/rand"
	"math/big"

	"github.com/oklog/ulid/v2"
)

const indexAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// NewULID returns a lexically sortable unique id. Used for scratch
// workspace names and blob keys where creation order is useful.
func NewULID() string {
	return ulid.Make().String()
}

// NewIndexSuffix returns a 16-character lowercase alphanumeric id used to
// name a collection's search-index namespace. Not security sensitive.
func NewIndexSuffix() string {
	b := make([]byte, 16)
	max := big.NewInt(int64(len(indexAlphabet)))
	for i := range b {
		n, err := crand.Int(crand.Reader, max)
		if err != nil {
			// crypto/rand only fails when the platform entropy source is
			// broken; fall back to a fixed character rather than panic.
			b[i] = 'a'
			continue
		}
		b[i] = indexAlphabet[n.Int64()]
	}
	return string(b)
}
