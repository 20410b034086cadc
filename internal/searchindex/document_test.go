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
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediavaulthq/mediavault/mvdb"
)

func TestFlattenExifFiltersNamespacesAndSorts(t *testing.T) {
	got := flattenExif(map[string]any{
		"File:FileSize":        "12 kB",
		"EXIF:Make":            "Canon",
		"ICC_Profile:Gamma":    2.2,
		"Composite:ImageSize":  "640x480",
		"MakerNotes:LensModel": "secret",
		"JFIF:ResolutionUnit":  "inches",
	})
	assert.Equal(t, "EXIF_Make: Canon\nFile_FileSize: 12 kB", got)
}

func TestFlattenExifEmpty(t *testing.T) {
	assert.Empty(t, flattenExif(nil))
	assert.Empty(t, flattenExif(map[string]any{"Photoshop:Quality": 9}))
}

func TestLookupCountFallbackOrder(t *testing.T) {
	meta := map[string]any{"like_count": float64(42), "fav_count": float64(7)}
	assert.Equal(t, int64(42), lookupCount(meta, likeCountKeys))

	// Earlier candidate wins even when later ones are present.
	meta["reactions"] = float64(3)
	assert.Equal(t, int64(3), lookupCount(meta, likeCountKeys))

	assert.Equal(t, int64(-1), lookupCount(map[string]any{}, viewCountKeys))
	assert.Equal(t, int64(1200), lookupCount(map[string]any{"views": "1200"}, viewCountKeys))
}

func TestLookupStringSkipsEmptyCandidates(t *testing.T) {
	meta := map[string]any{"message": "", "description": "a post"}
	assert.Equal(t, "a post", lookupString(meta, descriptionKeys, ""))
	assert.Equal(t, "fallback", lookupString(map[string]any{"title": "none"}, titleKeys, "fallback"))
}

func TestLookupDate(t *testing.T) {
	epoch := time.Unix(0, 0).UTC()
	assert.Equal(t, epoch, lookupDate(nil, uploadDateKeys))
	assert.Equal(t, epoch, lookupDate(map[string]any{"date": "not a date"}, uploadDateKeys))

	got := lookupDate(map[string]any{"date": "20240131"}, uploadDateKeys)
	assert.Equal(t, 2024, got.Year())
	assert.Equal(t, time.January, got.Month())

	unix := lookupDate(map[string]any{"edit_date": float64(1700000000)}, uploadDateKeys)
	assert.Equal(t, 2023, unix.Year())
}

func newFile(name, mime string) mvdb.File {
	return mvdb.File{ID: uuid.New(), Name: name, MimeType: mime}
}

func TestThumbnailForPrefersNameMatch(t *testing.T) {
	video := newFile("abc.mp4", "video/mp4")
	matching := newFile("abc.jpg", "image/jpeg")
	other := newFile("zzz.png", "image/png")
	siblings := []mvdb.File{other, video, matching}

	assert.Equal(t, matching.ID.String(), thumbnailFor(video.Name, siblings))
}

func TestThumbnailForExcludesSnapshot(t *testing.T) {
	video := newFile("clip.mp4", "video/mp4")
	shot := newFile("webpage_screenshot.png", "image/png")
	fallback := newFile("other.webp", "image/webp")

	assert.Equal(t, fallback.ID.String(), thumbnailFor(video.Name, []mvdb.File{video, shot, fallback}))
	assert.Empty(t, thumbnailFor(video.Name, []mvdb.File{video, shot}))
}

func TestBuildDocumentVideo(t *testing.T) {
	req := mvdb.Request{
		ID:        uuid.New(),
		URL:       "https://example.com/watch?v=abc",
		Kind:      mvdb.KindVideo,
		Status:    mvdb.StatusSucceeded,
		Owner:     "alice",
		Tags:      []string{"case-7"},
		CreatedAt: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	col := mvdb.Collection{ID: uuid.New(), Name: "evidence", Description: "march sweep"}
	f := mvdb.File{
		ID:       uuid.New(),
		Name:     "abc.mp4",
		MimeType: "video/mp4",
		Sha256:   "deadbeef",
		Metadata: map[string]any{
			"title":         "a video",
			"uploader":      "bob",
			"views":         float64(10),
			"extractor_key": "Youtube",
			"date":          "2024-01-31",
		},
	}

	doc := buildDocument(req, col, f, []mvdb.File{f})
	assert.Equal(t, f.ID.String(), doc.ContentID)
	assert.Equal(t, "video", doc.Type)
	assert.Equal(t, "SUCCEEDED", doc.Status)
	assert.Equal(t, "Youtube", doc.Platform)
	require.NotNil(t, doc.Stats)
	assert.Equal(t, int64(10), doc.Stats.ViewCount)
	assert.Equal(t, int64(-1), doc.Stats.LikeCount)
	require.NotNil(t, doc.Post)
	assert.Equal(t, "a video", doc.Post.Title)
	assert.Equal(t, "bob", doc.Post.Uploader)
	assert.Equal(t, 2024, doc.Post.UploadDate.Year())
}

func TestBuildDocumentPlatformFallsBackToHost(t *testing.T) {
	req := mvdb.Request{ID: uuid.New(), URL: "https://videos.example.org/v/1", Kind: mvdb.KindVideo}
	doc := buildDocument(req, mvdb.Collection{}, mvdb.File{ID: uuid.New(), Name: "v.mp4"}, nil)
	assert.Equal(t, "videos.example.org", doc.Platform)
}

func TestBuildDocumentUploadSpecialCase(t *testing.T) {
	req := mvdb.Request{
		ID:     uuid.New(),
		URL:    mvdb.UploadSentinelURL,
		Kind:   mvdb.KindUpload,
		Status: mvdb.StatusSucceeded,
	}
	f := mvdb.File{
		ID:       uuid.New(),
		Name:     "holiday.mp4",
		MimeType: "video/mp4",
		Metadata: map[string]any{"description": "from the user"},
	}

	doc := buildDocument(req, mvdb.Collection{}, f, []mvdb.File{f})
	assert.Equal(t, "User upload", doc.Origin)
	assert.Equal(t, "mediavault", doc.Platform)
	assert.Nil(t, doc.Stats)
	require.NotNil(t, doc.Post)
	assert.Equal(t, "holiday.mp4", doc.Post.Title)
	assert.Equal(t, "from the user", doc.Post.Description)
}

func TestBuildDocumentHiddenFlag(t *testing.T) {
	req := mvdb.Request{ID: uuid.New(), URL: "https://example.com/x", Kind: mvdb.KindGallery, Hidden: true}
	doc := buildDocument(req, mvdb.Collection{}, mvdb.File{ID: uuid.New(), Name: "x.jpg"}, nil)
	assert.True(t, doc.IsHidden)
}
