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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediavaulthq/mediavault/mvdb"
)

type stubBackend struct {
	name    string
	probeOK bool
	probed  int
}

func (s *stubBackend) Name() string { return s.name }

func (s *stubBackend) Probe(ctx context.Context, url string) bool {
	s.probed++
	return s.probeOK
}

func (s *stubBackend) Fetch(ctx context.Context, url, dir string) error { return nil }

func TestSelect(t *testing.T) {
	tests := []struct {
		name         string
		kind         mvdb.RequestKind
		videoOK      bool
		galleryOK    bool
		want         []mvdb.RequestKind
		wantFallback bool
	}{
		{"automatic video only", mvdb.KindAutomatic, true, false, []mvdb.RequestKind{mvdb.KindVideo}, false},
		{"automatic gallery only", mvdb.KindAutomatic, false, true, []mvdb.RequestKind{mvdb.KindGallery}, false},
		{"automatic both probe", mvdb.KindAutomatic, true, true, []mvdb.RequestKind{mvdb.KindVideo, mvdb.KindGallery}, false},
		{"automatic neither probes falls back to both", mvdb.KindAutomatic, false, false, []mvdb.RequestKind{mvdb.KindVideo, mvdb.KindGallery}, true},
		{"explicit video", mvdb.KindVideo, false, false, []mvdb.RequestKind{mvdb.KindVideo}, false},
		{"explicit gallery", mvdb.KindGallery, false, false, []mvdb.RequestKind{mvdb.KindGallery}, false},
		{"upload", mvdb.KindUpload, false, false, []mvdb.RequestKind{mvdb.KindUpload}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			video := &stubBackend{name: "ytdlp", probeOK: tt.videoOK}
			gallery := &stubBackend{name: "gallerydl", probeOK: tt.galleryOK}
			got, fallback := Select(context.Background(), "https://example.com/x", tt.kind, video, gallery)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantFallback, fallback)
		})
	}
}

func TestSelectExplicitKindSkipsProbing(t *testing.T) {
	video := &stubBackend{name: "ytdlp"}
	gallery := &stubBackend{name: "gallerydl"}
	_, _ = Select(context.Background(), "https://example.com/x", mvdb.KindVideo, video, gallery)
	assert.Zero(t, video.probed)
	assert.Zero(t, gallery.probed)
}

func TestMatchPost(t *testing.T) {
	ref, ok := MatchPost("https://t.me/somechannel/4217")
	require.True(t, ok)
	assert.Equal(t, "somechannel", ref.Channel)
	assert.Equal(t, 4217, ref.PostID)

	// Case-insensitive scheme and host.
	_, ok = MatchPost("HTTPS://T.ME/chan/1")
	assert.True(t, ok)

	for _, url := range []string{
		"https://example.com/watch?v=abc",
		"https://t.me/justachannel",
		"https://t.me/chan/notanumber",
		"t.me/chan/12",
	} {
		_, ok := MatchPost(url)
		assert.False(t, ok, url)
	}
}
