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

// Package snapshot captures a full-page rendering of a source URL through
// an external headless-browser service. The snapshot is a supplementary
// artifact: a failed capture never fails an ingestion.
package snapshot

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// FileName is the workspace name of the captured page image. Files with
// this marker are excluded from target classification, metadata
// harvesting, and thumbnail resolution.
const FileName = "webpage_screenshot.png"

// archiveEntry is the member name inside the service's response bundle.
const archiveEntry = "screenshot.png"

// Capturer captures a page snapshot for url into dir.
type Capturer interface {
	Capture(ctx context.Context, url, dir string) error
}

// Client talks to the capture service's HTTP API: POST {base}/capture
// with a JSON body, receiving a zip bundle holding the rendered page.
type Client struct {
	base string
	http *http.Client
}

// NewClient returns a Capturer for the service at base.
func NewClient(base string) *Client {
	return &Client{
		base: base,
		http: &http.Client{Timeout: 2 * time.Minute},
	}
}

// Capture renders url and writes the page image into dir under FileName.
func (c *Client) Capture(ctx context.Context, url, dir string) error {
	payload, err := json.Marshal(map[string]string{"url": url})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/capture", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("capture %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("capture %s: service returned %s", url, resp.Status)
	}

	bundle, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("capture %s: read bundle: %w", url, err)
	}
	return extract(bundle, filepath.Join(dir, FileName))
}

// extract pulls the screenshot entry out of the response bundle.
func extract(bundle []byte, dst string) error {
	zr, err := zip.NewReader(bytes.NewReader(bundle), int64(len(bundle)))
	if err != nil {
		return fmt.Errorf("open capture bundle: %w", err)
	}
	entry, err := zr.Open(archiveEntry)
	if err != nil {
		return fmt.Errorf("capture bundle has no %s: %w", archiveEntry, err)
	}
	defer func() { _ = entry.Close() }()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, entry); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
