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

package config

import (
	"reflect"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/mediavaulthq/mediavault/internal/blobstore"
)

// Config aggregates configuration for the application.
// Each field is owned by its respective package.
type Config struct {
	Blob     BlobConfig     `mapstructure:"blob"`
	Search   SearchConfig   `mapstructure:"search"`
	Backends BackendsConfig `mapstructure:"backends"`
	Snapshot SnapshotConfig `mapstructure:"snapshot"`
	Worker   WorkerConfig   `mapstructure:"worker"`
}

// BlobConfig selects the blob storage driver.
type BlobConfig struct {
	// Driver is "s3" or "file".
	Driver string `mapstructure:"driver"`
	// Dir is the base directory for the file driver.
	Dir string             `mapstructure:"dir"`
	S3  blobstore.S3Config `mapstructure:"s3"`
}

// SearchConfig selects the Elasticsearch cluster.
type SearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	APIKey    string   `mapstructure:"api_key"`
}

// BackendsConfig locates the external acquisition tools.
type BackendsConfig struct {
	YtdlpPath     string `mapstructure:"ytdlp_path"`
	GallerydlPath string `mapstructure:"gallerydl_path"`
	MessagingTool string `mapstructure:"messaging_tool"`
	FfmpegPath    string `mapstructure:"ffmpeg_path"`
	FfprobePath   string `mapstructure:"ffprobe_path"`
	ExiftoolPath  string `mapstructure:"exiftool_path"`
	// SessionDir is the shared messaging session pool directory.
	SessionDir string `mapstructure:"session_dir"`
}

// SnapshotConfig locates the page-snapshot rendering service. Empty URL
// disables snapshots.
type SnapshotConfig struct {
	URL string `mapstructure:"url"`
}

// WorkerConfig tunes the queue worker and the reconciliation sweep.
type WorkerConfig struct {
	Concurrency    int           `mapstructure:"concurrency"`
	PollInterval   time.Duration `mapstructure:"poll_interval"`
	HeartbeatEvery time.Duration `mapstructure:"heartbeat_every"`
	StaleAfter     time.Duration `mapstructure:"stale_after"`
	StuckAfter     time.Duration `mapstructure:"stuck_after"`
}

// Load reads configuration from files and environment variables.
// Environment variables use the prefix "MEDIAVAULT" and the dot
// character in keys is replaced by an underscore. For example,
// "worker.concurrency" becomes "MEDIAVAULT_WORKER_CONCURRENCY".
func Load() (*Config, error) {
	cfg := &Config{
		Blob: BlobConfig{Driver: "s3"},
		Backends: BackendsConfig{
			YtdlpPath:     "yt-dlp",
			GallerydlPath: "gallery-dl",
			FfmpegPath:    "ffmpeg",
			FfprobePath:   "ffprobe",
			ExiftoolPath:  "exiftool",
		},
		Worker: WorkerConfig{
			Concurrency:    2,
			PollInterval:   5 * time.Second,
			HeartbeatEvery: 30 * time.Second,
			StaleAfter:     5 * time.Minute,
			StuckAfter:     6 * time.Hour,
		},
	}

	v := viper.New()
	v.SetConfigName("config")
	v.AddConfigPath(".")
	v.SetEnvPrefix("MEDIAVAULT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvs(v, cfg)
	_ = v.ReadInConfig()

	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	if a := v.GetString("search.addresses"); a != "" {
		cfg.Search.Addresses = strings.Split(a, ",")
	}
	return cfg, nil
}

// bindEnvs registers all keys within cfg so that viper will look up
// corresponding environment variables when unmarshalling.
func bindEnvs(v *viper.Viper, cfg any, parts ...string) {
	val := reflect.ValueOf(cfg)
	typ := reflect.TypeOf(cfg)
	if typ.Kind() == reflect.Ptr {
		val = val.Elem()
		typ = typ.Elem()
	}
	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		tag := f.Tag.Get("mapstructure")
		if tag == "" {
			tag = strings.ToLower(f.Name)
		}
		key := append(parts, tag)
		if f.Type.Kind() == reflect.Struct {
			bindEnvs(v, val.Field(i).Interface(), key...)
			continue
		}
		_ = v.BindEnv(strings.Join(key, "."))
	}
}
