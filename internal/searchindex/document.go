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
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/mediavaulthq/mediavault/internal/snapshot"
	"github.com/mediavaulthq/mediavault/mvdb"
)

// Document is one indexed file. Document ids are File ids, so
// re-publishing a request overwrites in place.
type Document struct {
	ContentID             string    `json:"content_id"`
	RequestID             string    `json:"request_id"`
	CollectionID          string    `json:"collection_id"`
	CollectionName        string    `json:"collection_name"`
	CollectionDescription string    `json:"collection_description"`
	Owner                 string    `json:"owner"`
	Tags                  []string  `json:"tags"`
	Origin                string    `json:"origin"`
	Platform              string    `json:"platform"`
	WebpageURL            string    `json:"webpage_url,omitempty"`
	Type                  string    `json:"type"`
	Status                string    `json:"status"`
	IsHidden              bool      `json:"is_hidden"`
	ContentWarning        string    `json:"content_warning,omitempty"`
	MimeType              string    `json:"mimetype"`
	Md5                   string    `json:"md5"`
	Sha256                string    `json:"sha256"`
	ThumbnailContentID    string    `json:"thumbnail_content_id,omitempty"`
	Exif                  string    `json:"exif,omitempty"`
	CreatedAt             time.Time `json:"created_at"`
	Stats                 *Stats    `json:"stats,omitempty"`
	Post                  *Post     `json:"post,omitempty"`
}

// Stats holds engagement counters. Absent counters index as -1 so
// range queries can tell "unknown" from zero.
type Stats struct {
	ViewCount    int64 `json:"view_count"`
	LikeCount    int64 `json:"like_count"`
	CommentCount int64 `json:"comment_count"`
}

// Post holds authorship fields resolved from backend metadata.
type Post struct {
	Uploader    string    `json:"uploader"`
	UploaderURL string    `json:"uploader_url"`
	UploaderID  string    `json:"uploader_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	UploadDate  time.Time `json:"upload_date"`
}

// Each backend speaks its own metadata vocabulary. These candidate-key
// tables resolve one logical field across all of them: first key with a
// non-empty value wins. Adding a backend is a data change here.
var (
	viewCountKeys    = []string{"views", "view_count"}
	likeCountKeys    = []string{"reactions", "like_count", "fav_count", "favourites_count", "favorite_count"}
	commentCountKeys = []string{"replies", "comment_count", "replies_count", "reply_count"}
	uploaderKeys     = []string{"uploader"}
	uploaderURLKeys  = []string{"uploader_url"}
	uploaderIDKeys   = []string{"uploader_id"}
	titleKeys        = []string{"title"}
	descriptionKeys  = []string{"message", "fulltitle", "description", "content", "tag_string"}
	uploadDateKeys   = []string{"date", "edit_date", "created_at"}
	webpageURLKeys   = []string{"webpage_url"}
	platformKeys     = []string{"extractor_key", "platform"}
)

// exifIgnore lists metadata namespaces too volatile or noisy to index.
var exifIgnore = map[string]bool{
	"ICC_Profile": true,
	"Composite":   true,
	"Photoshop":   true,
	"JFIF":        true,
	"MakerNotes":  true,
	"APP14":       true,
}

var thumbnailMimeTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

const uploadOriginLabel = "User upload"

// buildDocument renders the search document for one file of one report.
// siblings are all files under the same report, used for thumbnail
// resolution.
func buildDocument(req mvdb.Request, col mvdb.Collection, f mvdb.File, siblings []mvdb.File) Document {
	doc := Document{
		ContentID:             f.ID.String(),
		RequestID:             req.ID.String(),
		CollectionID:          col.ID.String(),
		CollectionName:        col.Name,
		CollectionDescription: col.Description,
		Owner:                 req.Owner,
		Tags:                  req.Tags,
		Origin:                req.URL,
		Type:                  strings.ToLower(string(req.Kind)),
		Status:                string(req.Status),
		IsHidden:              req.Hidden,
		ContentWarning:        req.ContentWarning,
		MimeType:              f.MimeType,
		Md5:                   f.Md5,
		Sha256:                f.Sha256,
		ThumbnailContentID:    thumbnailFor(f.Name, siblings),
		Exif:                  flattenExif(f.Exif),
		CreatedAt:             req.CreatedAt,
	}

	if req.IsUpload() {
		doc.Origin = uploadOriginLabel
		doc.Platform = "mediavault"
		doc.Post = &Post{
			Title:       f.Name,
			Description: lookupString(f.Metadata, []string{"description"}, f.Description),
			UploadDate:  req.CreatedAt,
		}
		return doc
	}

	doc.Platform = lookupString(f.Metadata, platformKeys, hostOf(req.URL))
	doc.WebpageURL = lookupString(f.Metadata, webpageURLKeys, "")
	doc.Stats = &Stats{
		ViewCount:    lookupCount(f.Metadata, viewCountKeys),
		LikeCount:    lookupCount(f.Metadata, likeCountKeys),
		CommentCount: lookupCount(f.Metadata, commentCountKeys),
	}
	doc.Post = &Post{
		Uploader:    lookupString(f.Metadata, uploaderKeys, ""),
		UploaderURL: lookupString(f.Metadata, uploaderURLKeys, ""),
		UploaderID:  lookupString(f.Metadata, uploaderIDKeys, "-1"),
		Title:       lookupString(f.Metadata, titleKeys, f.Name),
		Description: lookupString(f.Metadata, descriptionKeys, ""),
		UploadDate:  lookupDate(f.Metadata, uploadDateKeys),
	}
	return doc
}

// thumbnailFor picks the thumbnail file id for content name: prefer an
// image whose name shares content's basename, else the first image that
// is not the page snapshot. Empty when the report has no usable image.
func thumbnailFor(name string, siblings []mvdb.File) string {
	base := strings.ToLower(trimExt(name))
	if base != "" {
		for _, s := range siblings {
			if thumbnailMimeTypes[s.MimeType] && strings.Contains(strings.ToLower(s.Name), base) {
				return s.ID.String()
			}
		}
	}
	for _, s := range siblings {
		if thumbnailMimeTypes[s.MimeType] && s.Name != snapshot.FileName {
			return s.ID.String()
		}
	}
	return ""
}

func trimExt(name string) string {
	if i := strings.LastIndex(name, "."); i > 0 {
		return name[:i]
	}
	return name
}

// flattenExif renders the exif bag as sorted "key: value" lines for
// full-text search, dropping ignored namespaces. Namespace separators
// in keys become underscores.
func flattenExif(exif map[string]any) string {
	if len(exif) == 0 {
		return ""
	}
	lines := make([]string, 0, len(exif))
	for k, v := range exif {
		ns := k
		if i := strings.Index(k, ":"); i >= 0 {
			ns = k[:i]
		}
		if exifIgnore[ns] {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: %v", strings.ReplaceAll(k, ":", "_"), v))
	}
	sort.Strings(lines)
	return strings.Join(lines, "\n")
}

func lookupString(meta map[string]any, keys []string, def string) string {
	for _, k := range keys {
		v, ok := meta[k]
		if !ok {
			continue
		}
		s := strings.TrimSpace(fmt.Sprintf("%v", v))
		if s == "" || s == "none" || s == "<nil>" {
			continue
		}
		return s
	}
	return def
}

func lookupCount(meta map[string]any, keys []string) int64 {
	for _, k := range keys {
		v, ok := meta[k]
		if !ok {
			continue
		}
		switch n := v.(type) {
		case float64:
			return int64(n)
		case int:
			return int64(n)
		case int64:
			return n
		case string:
			if parsed, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64); err == nil {
				return parsed
			}
		}
	}
	return -1
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"20060102",
}

// lookupDate resolves a post date, falling back to the Unix epoch when
// nothing parses. Numeric values are taken as Unix seconds.
func lookupDate(meta map[string]any, keys []string) time.Time {
	for _, k := range keys {
		v, ok := meta[k]
		if !ok {
			continue
		}
		switch d := v.(type) {
		case float64:
			if d > 0 {
				return time.Unix(int64(d), 0).UTC()
			}
		case string:
			for _, layout := range dateLayouts {
				if t, err := time.Parse(layout, strings.TrimSpace(d)); err == nil {
					return t.UTC()
				}
			}
		}
	}
	return time.Unix(0, 0).UTC()
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Host
}
