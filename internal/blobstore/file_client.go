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

package blobstore

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// fileClient stores objects under a base directory. It exists for tests
// and for deployments without object storage.
type fileClient struct {
	base string
}

// NewFile returns a Client rooted at base.
func NewFile(base string) Client {
	return &fileClient{base: base}
}

func (c *fileClient) path(key string) string {
	return filepath.Join(c.base, filepath.FromSlash(key))
}

func (c *fileClient) Put(ctx context.Context, key string, body io.Reader) error {
	dst := c.path(key)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	f, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	if _, err := io.Copy(f, body); err != nil {
		_ = f.Close()
		return fmt.Errorf("put %s: %w", key, err)
	}
	return f.Close()
}

func (c *fileClient) Get(ctx context.Context, key string) (io.ReadCloser, bool, error) {
	f, err := os.Open(c.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, true, nil
		}
		return nil, false, fmt.Errorf("get %s: %w", key, err)
	}
	return f, false, nil
}

func (c *fileClient) Delete(ctx context.Context, key string) error {
	err := os.Remove(c.path(key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func (c *fileClient) List(ctx context.Context, prefix string) ([]string, error) {
	all, err := c.Keys()
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list %s: %w", prefix, err)
	}
	var keys []string
	for _, k := range all {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Keys lists every stored key, in walk order. Test helper.
func (c *fileClient) Keys() ([]string, error) {
	var keys []string
	err := filepath.WalkDir(c.base, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, rerr := filepath.Rel(c.base, path)
		if rerr != nil {
			return rerr
		}
		keys = append(keys, filepath.ToSlash(rel))
		return nil
	})
	return keys, err
}
