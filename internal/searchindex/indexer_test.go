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

package searchindex

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediavaulthq/mediavault/mvdb"
)

type fakeDB struct {
	request    mvdb.Request
	collection mvdb.Collection
	reports    []mvdb.Report
	files      map[uuid.UUID][]mvdb.File

	indexedCollections []uuid.UUID
}

func (f *fakeDB) GetRequest(_ context.Context, _ uuid.UUID) (mvdb.Request, error) {
	return f.request, nil
}

func (f *fakeDB) GetCollection(_ context.Context, _ uuid.UUID) (mvdb.Collection, error) {
	return f.collection, nil
}

func (f *fakeDB) ListReportsByRequest(_ context.Context, _ uuid.UUID) ([]mvdb.Report, error) {
	return f.reports, nil
}

func (f *fakeDB) ListFilesByReport(_ context.Context, reportID uuid.UUID) ([]mvdb.File, error) {
	return f.files[reportID], nil
}

func (f *fakeDB) MarkCollectionIndexed(_ context.Context, id uuid.UUID) error {
	f.indexedCollections = append(f.indexedCollections, id)
	return nil
}

// fakeES records every document upsert and index create against an
// in-memory cluster.
type fakeES struct {
	mu      sync.Mutex
	creates []string
	docs    map[string]map[string]json.RawMessage // index -> docID -> body

	searchResponse string
	lastSearchBody string
	lastSearchPath string
}

func (f *fakeES) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")

		path := strings.TrimPrefix(r.URL.Path, "/")
		switch {
		case r.Method == http.MethodHead:
			if f.docs[path] == nil {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.WriteHeader(http.StatusOK)
		case r.Method == http.MethodPut && !strings.Contains(path, "/"):
			f.creates = append(f.creates, path)
			if f.docs == nil {
				f.docs = map[string]map[string]json.RawMessage{}
			}
			f.docs[path] = map[string]json.RawMessage{}
			io.WriteString(w, `{"acknowledged":true}`)
		case r.Method == http.MethodPut && strings.Contains(path, "/_doc/"):
			parts := strings.SplitN(path, "/_doc/", 2)
			body, _ := io.ReadAll(r.Body)
			if f.docs == nil {
				f.docs = map[string]map[string]json.RawMessage{}
			}
			if f.docs[parts[0]] == nil {
				f.docs[parts[0]] = map[string]json.RawMessage{}
			}
			f.docs[parts[0]][parts[1]] = body
			io.WriteString(w, `{"result":"created"}`)
		case r.Method == http.MethodDelete:
			delete(f.docs, path)
			io.WriteString(w, `{"acknowledged":true}`)
		case strings.HasSuffix(path, "/_search"):
			f.lastSearchPath = path
			body, _ := io.ReadAll(r.Body)
			f.lastSearchBody = string(body)
			io.WriteString(w, f.searchResponse)
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	})
}

func newTestIndexer(t *testing.T, es *fakeES, db Store) *Indexer {
	t.Helper()
	srv := httptest.NewServer(es.handler())
	t.Cleanup(srv.Close)
	ix, err := New(Config{Addresses: []string{srv.URL}}, db)
	require.NoError(t, err)
	return ix
}

func TestPublishIsIdempotent(t *testing.T) {
	reqID := uuid.New()
	repID := uuid.New()
	colID := uuid.New()
	video := mvdb.File{ID: uuid.New(), ReportID: repID, Name: "clip.mp4",
		MimeType: "video/mp4", IsTarget: true, Sha256: "aa", Md5: "bb"}
	sidecar := mvdb.File{ID: uuid.New(), ReportID: repID, Name: "clip.info.json",
		MimeType: "application/json"}

	db := &fakeDB{
		request:    mvdb.Request{ID: reqID, CollectionID: colID, URL: "https://example.com/watch?v=1", Kind: mvdb.KindVideo},
		collection: mvdb.Collection{ID: colID, SearchIndex: "abc123"},
		reports:    []mvdb.Report{{ID: repID, RequestID: reqID}},
		files:      map[uuid.UUID][]mvdb.File{repID: {video, sidecar}},
	}
	es := &fakeES{}
	ix := newTestIndexer(t, es, db)

	ctx := context.Background()
	require.NoError(t, ix.Publish(ctx, reqID))
	require.NoError(t, ix.Publish(ctx, reqID))

	assert.Equal(t, []string{"c.abc123"}, es.creates, "index created once")
	docs := es.docs["c.abc123"]
	require.Len(t, docs, 1, "sidecars are not indexed, re-publish does not grow the set")
	_, ok := docs[video.ID.String()]
	assert.True(t, ok, "document keyed by file id")
	assert.Equal(t, []uuid.UUID{colID, colID}, db.indexedCollections)
}

func TestDeleteIndexForgetsCreatedCache(t *testing.T) {
	colID := uuid.New()
	db := &fakeDB{collection: mvdb.Collection{ID: colID, SearchIndex: "gone1"}}
	es := &fakeES{}
	ix := newTestIndexer(t, es, db)

	ctx := context.Background()
	require.NoError(t, ix.EnsureIndex(ctx, "gone1"))
	require.NoError(t, ix.DeleteIndex(ctx, "gone1"))
	require.NoError(t, ix.EnsureIndex(ctx, "gone1"))

	assert.Equal(t, []string{"c.gone1", "c.gone1"}, es.creates, "recreated after delete")
}

func TestSearchFiltersHiddenAndNamespaces(t *testing.T) {
	es := &fakeES{searchResponse: `{"hits":{"hits":[
		{"_id":"doc-1","_score":1.5,"_source":{"content_id":"doc-1","mimetype":"video/mp4"}}
	]}}`}
	ix := newTestIndexer(t, es, &fakeDB{})

	hits, err := ix.Search(context.Background(), []string{"aaa", "bbb"}, "cats", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "doc-1", hits[0].ID)
	assert.Equal(t, "video/mp4", hits[0].Source.MimeType)

	assert.Contains(t, es.lastSearchPath, "c.aaa")
	assert.Contains(t, es.lastSearchPath, "c.bbb")
	assert.Contains(t, es.lastSearchBody, `"query_string":{"query":"cats"}`)
	assert.Contains(t, es.lastSearchBody, `"must_not"`)
	assert.Contains(t, es.lastSearchBody, `"is_hidden":true`)
}

func TestSearchNoNamespaces(t *testing.T) {
	ix := newTestIndexer(t, &fakeES{}, &fakeDB{})
	hits, err := ix.Search(context.Background(), nil, "anything", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}
