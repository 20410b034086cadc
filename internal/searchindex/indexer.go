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

// Package searchindex publishes ingested files into per-collection
// Elasticsearch indexes and serves filtered full-text queries over them.
package searchindex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	elasticsearch "github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/google/uuid"

	"github.com/mediavaulthq/mediavault/internal/logctx"
	"github.com/mediavaulthq/mediavault/internal/metaharvest"
	"github.com/mediavaulthq/mediavault/mvdb"
)

// indexPrefix namespaces every collection index we own.
const indexPrefix = "c."

// Store is the database surface the indexer needs.
type Store interface {
	GetRequest(ctx context.Context, id uuid.UUID) (mvdb.Request, error)
	GetCollection(ctx context.Context, id uuid.UUID) (mvdb.Collection, error)
	ListReportsByRequest(ctx context.Context, requestID uuid.UUID) ([]mvdb.Report, error)
	ListFilesByReport(ctx context.Context, reportID uuid.UUID) ([]mvdb.File, error)
	MarkCollectionIndexed(ctx context.Context, id uuid.UUID) error
}

// Config selects the Elasticsearch cluster.
type Config struct {
	Addresses []string
	Username  string
	Password  string
	APIKey    string
}

// Indexer owns index lifecycle and document publishing.
type Indexer struct {
	es *elasticsearch.Client
	db Store

	mu      sync.Mutex
	created map[string]bool
}

// New connects to the cluster and returns an Indexer backed by db.
func New(cfg Config, db Store) (*Indexer, error) {
	if len(cfg.Addresses) == 0 {
		cfg.Addresses = []string{"http://localhost:9200"}
	}
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
		APIKey:    cfg.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}
	return &Indexer{es: client, db: db, created: map[string]bool{}}, nil
}

// indexMapping keeps identity and filter fields exact-match while post
// text stays analyzable.
const indexMapping = `{
  "mappings": {
    "properties": {
      "content_id":             {"type": "keyword"},
      "request_id":             {"type": "keyword"},
      "collection_id":          {"type": "keyword"},
      "collection_name":        {"type": "keyword"},
      "collection_description": {"type": "text"},
      "owner":                  {"type": "keyword"},
      "tags":                   {"type": "keyword"},
      "origin":                 {"type": "keyword"},
      "platform":               {"type": "keyword"},
      "webpage_url":            {"type": "keyword"},
      "type":                   {"type": "keyword"},
      "status":                 {"type": "keyword"},
      "is_hidden":              {"type": "boolean"},
      "content_warning":        {"type": "text"},
      "mimetype":               {"type": "keyword"},
      "md5":                    {"type": "keyword"},
      "sha256":                 {"type": "keyword"},
      "thumbnail_content_id":   {"type": "keyword"},
      "exif":                   {"type": "text"},
      "created_at":             {"type": "date"},
      "stats": {
        "properties": {
          "view_count":    {"type": "long"},
          "like_count":    {"type": "long"},
          "comment_count": {"type": "long"}
        }
      },
      "post": {
        "properties": {
          "uploader":     {"type": "keyword"},
          "uploader_url": {"type": "keyword"},
          "uploader_id":  {"type": "keyword"},
          "title":        {"type": "text"},
          "description":  {"type": "text"},
          "upload_date":  {"type": "date"}
        }
      }
    }
  }
}`

// EnsureIndex creates the collection index with its mapping if it does
// not exist yet. Safe to call on every publish.
func (ix *Indexer) EnsureIndex(ctx context.Context, searchIndex string) error {
	name := indexPrefix + searchIndex

	ix.mu.Lock()
	done := ix.created[name]
	ix.mu.Unlock()
	if done {
		return nil
	}

	res, err := ix.es.Indices.Exists([]string{name}, ix.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("check index %s: %w", name, err)
	}
	drain(res)
	switch res.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		create, err := ix.es.Indices.Create(name,
			ix.es.Indices.Create.WithContext(ctx),
			ix.es.Indices.Create.WithBody(strings.NewReader(indexMapping)),
		)
		if err != nil {
			return fmt.Errorf("create index %s: %w", name, err)
		}
		defer drain(create)
		// A concurrent worker may have won the race.
		if create.IsError() && create.StatusCode != http.StatusBadRequest {
			return fmt.Errorf("create index %s: %s", name, create.Status())
		}
	default:
		return fmt.Errorf("check index %s: %s", name, res.Status())
	}

	ix.mu.Lock()
	ix.created[name] = true
	ix.mu.Unlock()
	return nil
}

// Publish upserts one document per non-sidecar file of every report
// under the request, then marks the owning collection indexed.
// Document ids are File ids, so Publish is idempotent.
func (ix *Indexer) Publish(ctx context.Context, requestID uuid.UUID) error {
	req, err := ix.db.GetRequest(ctx, requestID)
	if err != nil {
		return fmt.Errorf("load request %s: %w", requestID, err)
	}
	col, err := ix.db.GetCollection(ctx, req.CollectionID)
	if err != nil {
		return fmt.Errorf("load collection %s: %w", req.CollectionID, err)
	}
	if err := ix.EnsureIndex(ctx, col.SearchIndex); err != nil {
		return err
	}

	ll := logctx.FromContext(ctx).With("request_id", requestID.String())
	name := indexPrefix + col.SearchIndex

	reports, err := ix.db.ListReportsByRequest(ctx, requestID)
	if err != nil {
		return err
	}
	published := 0
	for _, rep := range reports {
		files, err := ix.db.ListFilesByReport(ctx, rep.ID)
		if err != nil {
			return err
		}
		for _, f := range files {
			if metaharvest.IsSidecar(f.Name) {
				continue
			}
			doc := buildDocument(req, col, f, files)
			if err := ix.upsert(ctx, name, f.ID.String(), doc); err != nil {
				return err
			}
			published++
		}
	}
	ll.Info("Published search documents", "index", name, "documents", published)

	return ix.db.MarkCollectionIndexed(ctx, col.ID)
}

func (ix *Indexer) upsert(ctx context.Context, index, docID string, doc Document) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	res, err := ix.es.Index(index, bytes.NewReader(body),
		ix.es.Index.WithContext(ctx),
		ix.es.Index.WithDocumentID(docID),
	)
	if err != nil {
		return fmt.Errorf("index document %s: %w", docID, err)
	}
	defer drain(res)
	if res.IsError() {
		return fmt.Errorf("index document %s: %s", docID, res.Status())
	}
	return nil
}

// DeleteIndex drops a collection's index namespace. Missing indexes are
// fine, deletion must be idempotent for the collection cascade.
func (ix *Indexer) DeleteIndex(ctx context.Context, searchIndex string) error {
	name := indexPrefix + searchIndex
	res, err := ix.es.Indices.Delete([]string{name},
		ix.es.Indices.Delete.WithContext(ctx),
		ix.es.Indices.Delete.WithIgnoreUnavailable(true),
	)
	if err != nil {
		return fmt.Errorf("delete index %s: %w", name, err)
	}
	defer drain(res)
	if res.IsError() {
		return fmt.Errorf("delete index %s: %s", name, res.Status())
	}
	ix.mu.Lock()
	delete(ix.created, name)
	ix.mu.Unlock()
	return nil
}

// Hit is one search result.
type Hit struct {
	ID     string
	Score  float64
	Source Document
}

// Search runs a full-text query across the given collection namespaces.
// Hidden documents are filtered here rather than at publish time, so
// hiding a request needs no re-publish.
func (ix *Indexer) Search(ctx context.Context, searchIndexes []string, query string, size int) ([]Hit, error) {
	if len(searchIndexes) == 0 {
		return nil, nil
	}
	if size <= 0 {
		size = 50
	}
	names := make([]string, len(searchIndexes))
	for i, s := range searchIndexes {
		names[i] = indexPrefix + s
	}

	q := map[string]any{
		"size": size,
		"query": map[string]any{
			"bool": map[string]any{
				"must": map[string]any{
					"query_string": map[string]any{"query": query},
				},
				"must_not": map[string]any{
					"term": map[string]any{"is_hidden": true},
				},
			},
		},
	}
	body, err := json.Marshal(q)
	if err != nil {
		return nil, err
	}

	res, err := ix.es.Search(
		ix.es.Search.WithContext(ctx),
		ix.es.Search.WithIndex(names...),
		ix.es.Search.WithBody(bytes.NewReader(body)),
		ix.es.Search.WithIgnoreUnavailable(true),
	)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	defer drain(res)
	if res.IsError() {
		return nil, fmt.Errorf("search: %s", res.Status())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				ID     string   `json:"_id"`
				Score  float64  `json:"_score"`
				Source Document `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	hits := make([]Hit, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		hits = append(hits, Hit{ID: h.ID, Score: h.Score, Source: h.Source})
	}
	return hits, nil
}

// drain discards and closes a response body so the transport's
// connection can be reused.
func drain(res *esapi.Response) {
	if res == nil || res.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, res.Body)
	_ = res.Body.Close()
}
