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

package backend

import (
	"context"
	"regexp"
	"strconv"

	"github.com/mediavaulthq/mediavault/mvdb"
)

// postURLPattern recognizes messaging-platform post references. A match
// short-circuits backend selection entirely.
var postURLPattern = regexp.MustCompile(`(?i)^https://t\.me/(.+?)/([0-9]+)`)

// PostRef is a parsed messaging-platform post reference.
type PostRef struct {
	Channel string
	PostID  int
}

// MatchPost parses url as a messaging-platform post reference.
func MatchPost(url string) (PostRef, bool) {
	m := postURLPattern.FindStringSubmatch(url)
	if m == nil {
		return PostRef{}, false
	}
	id, err := strconv.Atoi(m[2])
	if err != nil {
		return PostRef{}, false
	}
	return PostRef{Channel: m[1], PostID: id}, true
}

// Select decides which acquisition kinds must run for url. The messaging
// case is decided earlier by MatchPost and never reaches here through the
// normal enqueue path.
//
// An explicit kind is taken at face value. AUTOMATIC probes both
// candidate backends and unions the positive probes; when neither claims
// the URL both are attempted anyway. Probing is a hint, and a failed
// fetch on both leaves two inspectable failed reports instead of a
// silent misclassification.
// fallback reports that neither probe claimed the URL and both kinds
// were scheduled anyway, so callers can annotate the siblings.
func Select(ctx context.Context, url string, kind mvdb.RequestKind, video, gallery Backend) (kinds []mvdb.RequestKind, fallback bool) {
	switch kind {
	case mvdb.KindVideo:
		return []mvdb.RequestKind{mvdb.KindVideo}, false
	case mvdb.KindGallery:
		return []mvdb.RequestKind{mvdb.KindGallery}, false
	case mvdb.KindUpload:
		return []mvdb.RequestKind{mvdb.KindUpload}, false
	}

	if video.Probe(ctx, url) {
		kinds = append(kinds, mvdb.KindVideo)
	}
	if gallery.Probe(ctx, url) {
		kinds = append(kinds, mvdb.KindGallery)
	}
	if len(kinds) == 0 {
		return []mvdb.RequestKind{mvdb.KindVideo, mvdb.KindGallery}, true
	}
	return kinds, false
}
