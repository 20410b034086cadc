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

package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/mediavaulthq/mediavault/cmd/dbopen"
	"github.com/mediavaulthq/mediavault/config"
	"github.com/mediavaulthq/mediavault/internal/archiver"
	"github.com/mediavaulthq/mediavault/internal/backend"
	"github.com/mediavaulthq/mediavault/internal/blobstore"
	"github.com/mediavaulthq/mediavault/internal/ingest"
	"github.com/mediavaulthq/mediavault/internal/metaharvest"
	"github.com/mediavaulthq/mediavault/internal/notify"
	"github.com/mediavaulthq/mediavault/internal/searchindex"
	"github.com/mediavaulthq/mediavault/internal/sessionpool"
	"github.com/mediavaulthq/mediavault/internal/snapshot"
	"github.com/mediavaulthq/mediavault/internal/workqueue"
	"github.com/mediavaulthq/mediavault/mvdb"
)

// services wires the pipeline's collaborators from configuration. Each
// command builds only what it needs through the accessors.
type services struct {
	cfg   *config.Config
	store *mvdb.Store
	blobs blobstore.Client

	video     backend.Backend
	gallery   backend.Backend
	messaging backend.Backend

	indexer *searchindex.Indexer
}

func buildServices(ctx context.Context) (*services, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	store, err := dbopen.Store(ctx)
	if err != nil {
		return nil, err
	}

	blobs, err := openBlobstore(ctx, cfg)
	if err != nil {
		store.Close()
		return nil, err
	}

	s := &services{
		cfg:     cfg,
		store:   store,
		blobs:   blobs,
		video:   backend.NewYtDlp(cfg.Backends.YtdlpPath),
		gallery: backend.NewGalleryDl(cfg.Backends.GallerydlPath),
	}

	if cfg.Backends.SessionDir != "" {
		pool, err := sessionpool.New(cfg.Backends.SessionDir)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("open session pool: %w", err)
		}
		s.messaging = &backend.Telegram{
			Pool:        pool,
			Creds:       store.Queries,
			ToolPath:    cfg.Backends.MessagingTool,
			FfmpegPath:  cfg.Backends.FfmpegPath,
			FfprobePath: cfg.Backends.FfprobePath,
		}
	}

	s.indexer, err = searchindex.New(searchindex.Config{
		Addresses: cfg.Search.Addresses,
		Username:  cfg.Search.Username,
		Password:  cfg.Search.Password,
		APIKey:    cfg.Search.APIKey,
	}, store.Queries)
	if err != nil {
		store.Close()
		return nil, err
	}

	return s, nil
}

func openBlobstore(ctx context.Context, cfg *config.Config) (blobstore.Client, error) {
	switch cfg.Blob.Driver {
	case "file":
		if cfg.Blob.Dir == "" {
			return nil, errors.New("blob.dir is required for the file driver")
		}
		return blobstore.NewFile(cfg.Blob.Dir), nil
	case "s3", "":
		return blobstore.NewS3(ctx, cfg.Blob.S3)
	default:
		return nil, fmt.Errorf("unknown blob driver %q", cfg.Blob.Driver)
	}
}

func (s *services) close() {
	s.store.Close()
}

func (s *services) archiver() *archiver.Builder {
	return &archiver.Builder{DB: s.store.Queries, Blobs: s.blobs}
}

func (s *services) runner() *ingest.Runner {
	var capturer snapshot.Capturer
	if s.cfg.Snapshot.URL != "" {
		capturer = snapshot.NewClient(s.cfg.Snapshot.URL)
	}
	return &ingest.Runner{
		DB:        s.store.Queries,
		Blobs:     s.blobs,
		Video:     s.video,
		Gallery:   s.gallery,
		Messaging: s.messaging,
		Snapshot:  capturer,
		Harvester: &metaharvest.Harvester{ExiftoolPath: s.cfg.Backends.ExiftoolPath},
		Archiver:  s.archiver(),
		Indexer:   s.indexer,
		Notifier:  notify.LogNotifier{},
	}
}

func (s *services) submitter() *workqueue.Submitter {
	return &workqueue.Submitter{
		DB:      s.store,
		Blobs:   s.blobs,
		Video:   s.video,
		Gallery: s.gallery,
	}
}
