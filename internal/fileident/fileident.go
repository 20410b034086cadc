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

// Package fileident computes the identity of an ingested file: a strong
// and a legacy digest plus a sniffed mime type. A File record is not
// considered ingested until these fields are populated, so this sits on
// the hot path of every ingestion.
package fileident

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// sniffLimit bounds how much of the stream the mime detector sees.
// 3072 bytes covers every signature mimetype knows about.
const sniffLimit = 3072

// Identity describes one file's content.
type Identity struct {
	Sha256   string
	Md5      string
	MimeType string
	Size     int64
}

// Identify streams the file at path once, computing both digests and the
// mime type in a single pass.
func Identify(path string) (Identity, error) {
	f, err := os.Open(path)
	if err != nil {
		return Identity{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()
	return IdentifyReader(f)
}

// IdentifyReader consumes r to EOF and returns the content identity.
func IdentifyReader(r io.Reader) (Identity, error) {
	mimetype.SetLimit(sniffLimit)

	strong := sha256.New()
	legacy := md5.New()

	head := make([]byte, sniffLimit)
	n, err := io.ReadFull(r, head)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return Identity{}, fmt.Errorf("read head: %w", err)
	}
	head = head[:n]

	mt := mimetype.Detect(head)

	w := io.MultiWriter(strong, legacy)
	if _, err := w.Write(head); err != nil {
		return Identity{}, err
	}
	rest, err := io.Copy(w, r)
	if err != nil {
		return Identity{}, fmt.Errorf("digest stream: %w", err)
	}

	// mimetype appends parameters for text types ("text/plain;
	// charset=utf-8"); File records store the bare media type.
	mime, _, _ := strings.Cut(mt.String(), ";")

	return Identity{
		Sha256:   hex.EncodeToString(strong.Sum(nil)),
		Md5:      hex.EncodeToString(legacy.Sum(nil)),
		MimeType: strings.TrimSpace(mime),
		Size:     int64(n) + rest,
	}, nil
}
