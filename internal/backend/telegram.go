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
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mediavaulthq/mediavault/internal/logctx"
	"github.com/mediavaulthq/mediavault/internal/sessionpool"
	"github.com/mediavaulthq/mediavault/mvdb"
)

// groupSpan is the platform cap on items per post group. Sibling items
// of a grouped post live within this many ids of the target.
const groupSpan = 10

// credentialName is the credentials row the backend reads.
const credentialName = "telegram"

// CredentialSource loads named platform credentials. *mvdb.Queries
// satisfies it.
type CredentialSource interface {
	GetCredential(ctx context.Context, name string) (mvdb.Credential, error)
}

// Telegram fetches messaging-platform posts through an exported session
// leased from the session pool. The platform client is an external tool
// driven over two subcommands:
//
//	<tool> post     --session S --channel C --id N   → post JSON on stdout
//	<tool> download --session S --channel C --id N --dir D
//
// Credentials (api_id, api_hash, bot_token) come from the credentials
// table and are passed to the tool via its environment.
type Telegram struct {
	Pool  *sessionpool.Pool
	Creds CredentialSource

	ToolPath    string
	FfmpegPath  string
	FfprobePath string
}

func (b *Telegram) Name() string { return "telegram" }

func (b *Telegram) tool() string {
	if b.ToolPath != "" {
		return b.ToolPath
	}
	return "tgexport"
}

// Probe only checks the URL shape; hitting the platform would spend a
// session lease on a feasibility question.
func (b *Telegram) Probe(ctx context.Context, url string) bool {
	_, ok := MatchPost(url)
	return ok
}

// Fetch downloads the referenced post and, for grouped posts, its
// sibling items, writes the normalized post.json sidecar, and leaves a
// synthesized thumbnail next to every downloaded video. The session
// lease is released on every path out.
func (b *Telegram) Fetch(ctx context.Context, url, dir string) error {
	ref, ok := MatchPost(url)
	if !ok {
		return fmt.Errorf("not a messaging post URL: %s", url)
	}

	env, err := b.credentialEnv(ctx)
	if err != nil {
		return err
	}

	lease, err := b.Pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire session: %w", err)
	}
	defer b.Pool.Release(lease)

	post, err := b.post(ctx, lease, env, ref.Channel, ref.PostID)
	if err != nil {
		return fmt.Errorf("fetch post %s/%d: %w", ref.Channel, ref.PostID, err)
	}

	// The sidecar annotates provenance on top of the raw post record.
	post["uploader"] = ref.Channel
	post["platform"] = "Telegram"
	post["webpage_url"] = url
	if err := writePostSidecar(dir, post); err != nil {
		return err
	}

	for _, id := range b.groupMembers(ctx, lease, env, ref, post) {
		if err := b.download(ctx, lease, env, ref.Channel, id, dir); err != nil {
			return fmt.Errorf("download %s/%d: %w", ref.Channel, id, err)
		}
	}

	b.makeVideoThumbnails(ctx, dir)
	return nil
}

// groupMembers resolves which post ids carry the media to download: the
// target alone, or every sibling sharing its group id within the
// platform's group cap. Sibling lookups are best effort, a missing id
// in the neighborhood is normal.
func (b *Telegram) groupMembers(ctx context.Context, lease *sessionpool.Lease, env []string, ref PostRef, post map[string]any) []int {
	groupID := jsonInt(post["grouped_id"])
	if groupID == 0 {
		return []int{ref.PostID}
	}
	var ids []int
	for id := max(0, ref.PostID-groupSpan); id < ref.PostID+groupSpan; id++ {
		if id == ref.PostID {
			ids = append(ids, id)
			continue
		}
		sibling, err := b.post(ctx, lease, env, ref.Channel, id)
		if err != nil {
			continue
		}
		if jsonInt(sibling["grouped_id"]) == groupID {
			ids = append(ids, id)
		}
	}
	return ids
}

func (b *Telegram) credentialEnv(ctx context.Context) ([]string, error) {
	cred, err := b.Creds.GetCredential(ctx, credentialName)
	if err != nil {
		return nil, fmt.Errorf("no credentials found for %s: %w", credentialName, err)
	}
	env := os.Environ()
	for _, key := range []string{"api_id", "api_hash", "bot_token"} {
		v, ok := cred.Credential[key]
		if !ok {
			return nil, fmt.Errorf("credentials [%s] missing %s", credentialName, key)
		}
		env = append(env, "TG_"+strings.ToUpper(key)+"="+fmt.Sprint(v))
	}
	return env, nil
}

func (b *Telegram) post(ctx context.Context, lease *sessionpool.Lease, env []string, channel string, id int) (map[string]any, error) {
	cmd := exec.CommandContext(ctx, b.tool(), "post",
		"--session", lease.SessionPath,
		"--channel", channel,
		"--id", strconv.Itoa(id),
	)
	cmd.Env = env
	out, err := cmd.Output()
	if err != nil {
		return nil, err
	}
	var post map[string]any
	if err := json.Unmarshal(out, &post); err != nil {
		return nil, fmt.Errorf("parse post record: %w", err)
	}
	return post, nil
}

func (b *Telegram) download(ctx context.Context, lease *sessionpool.Lease, env []string, channel string, id int, dir string) error {
	cmd := exec.CommandContext(ctx, b.tool(), "download",
		"--session", lease.SessionPath,
		"--channel", channel,
		"--id", strconv.Itoa(id),
		"--dir", dir,
	)
	cmd.Env = env
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, truncate(out))
	}
	return nil
}

func writePostSidecar(dir string, post map[string]any) error {
	raw, err := json.MarshalIndent(post, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "post.json"), raw, 0o644)
}

// jsonInt reads an integer out of a decoded JSON value.
func jsonInt(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case json.Number:
		i, _ := n.Int64()
		return int(i)
	default:
		return 0
	}
}

// makeVideoThumbnails samples the middle frame of every downloaded video
// into <name>.thumbnail.jpg. Thumbnails are a convenience artifact;
// failures are logged and skipped.
func (b *Telegram) makeVideoThumbnails(ctx context.Context, dir string) {
	log := logctx.FromContext(ctx)
	videos, err := filepath.Glob(filepath.Join(dir, "*.mp4"))
	if err != nil {
		return
	}
	for _, video := range videos {
		if err := b.thumbnail(ctx, video); err != nil {
			log.Warn("failed to synthesize video thumbnail",
				slog.String("video", filepath.Base(video)), slog.Any("error", err))
		}
	}
}

func (b *Telegram) thumbnail(ctx context.Context, video string) error {
	ffprobe := b.FfprobePath
	if ffprobe == "" {
		ffprobe = "ffprobe"
	}
	out, err := exec.CommandContext(ctx, ffprobe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "csv=p=0",
		video,
	).Output()
	if err != nil {
		return fmt.Errorf("probe duration: %w", err)
	}
	duration, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", strings.TrimSpace(string(out)), err)
	}

	ffmpeg := b.FfmpegPath
	if ffmpeg == "" {
		ffmpeg = "ffmpeg"
	}
	root := strings.TrimSuffix(video, filepath.Ext(video))
	midpoint := strconv.FormatFloat(duration/2, 'f', 3, 64)
	if err := exec.CommandContext(ctx, ffmpeg,
		"-ss", midpoint,
		"-i", video,
		"-frames:v", "1",
		"-y",
		root+".thumbnail.jpg",
	).Run(); err != nil {
		return fmt.Errorf("extract frame: %w", err)
	}
	return nil
}
