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

// Package sessionpool leases named, reusable authenticated sessions for a
// rate-limited external platform across worker processes that share only
// a filesystem.
//
// A session is a "<name>.session" file in the pool directory. A lease is
// the presence of a companion "<name>.lock" file carrying the acquisition
// timestamp. Locks older than the staleness threshold are treated as
// abandoned by a crashed worker and reaped on the next Acquire. This is
// deliberately not a distributed lock: two workers racing scan-then-lock
// can in theory both win the same name, which only degrades throughput on
// that session because the platform rejects concurrent use.
package sessionpool

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/mediavaulthq/mediavault/internal/idgen"
	"github.com/mediavaulthq/mediavault/internal/logctx"
)

const (
	sessionSuffix = ".session"
	lockSuffix    = ".lock"

	// DefaultStaleAfter is how old a lock must be before any process may
	// reclaim it without an explicit Release.
	DefaultStaleAfter = 12 * time.Hour
)

// Clock abstracts time for the staleness reaper so tests do not sleep.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Lease is exclusive ownership of one named session until released.
type Lease struct {
	Name string
	// SessionPath is the session file handed to the platform tooling.
	SessionPath string

	lockPath string
}

// Pool hands out leases over the sessions found in Dir.
type Pool struct {
	dir        string
	staleAfter time.Duration
	clock      Clock
}

// Option configures a Pool.
type Option func(*Pool)

// WithClock injects a clock; used by tests to exercise the reaper.
func WithClock(c Clock) Option {
	return func(p *Pool) { p.clock = c }
}

// WithStaleAfter overrides the lock staleness threshold.
func WithStaleAfter(d time.Duration) Option {
	return func(p *Pool) { p.staleAfter = d }
}

// New returns a pool over dir, creating it if needed.
func New(dir string, opts ...Option) (*Pool, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}
	p := &Pool{
		dir:        dir,
		staleAfter: DefaultStaleAfter,
		clock:      realClock{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Acquire reaps stale locks, then returns a lease on the first unlocked
// known session, minting a fresh uniquely-named session when every known
// one is held. The context is consulted between filesystem operations.
func (p *Pool) Acquire(ctx context.Context) (*Lease, error) {
	p.reapStale(ctx)

	names, err := p.sessionNames()
	if err != nil {
		return nil, err
	}
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		lease, ok := p.tryLock(name)
		if ok {
			return lease, nil
		}
	}

	// Every known session is held; mint a fresh one. The platform tooling
	// authenticates it on first use.
	name := "sess-" + strings.ToLower(idgen.NewULID())
	sessionPath := filepath.Join(p.dir, name+sessionSuffix)
	if err := os.WriteFile(sessionPath, nil, 0o600); err != nil {
		return nil, fmt.Errorf("mint session %s: %w", name, err)
	}
	lease, ok := p.tryLock(name)
	if !ok {
		return nil, fmt.Errorf("freshly minted session %s already locked", name)
	}
	return lease, nil
}

// Release removes the lock marker, making the session immediately
// acquirable again. Safe to call on an already-released lease.
func (p *Pool) Release(lease *Lease) {
	if lease == nil {
		return
	}
	if err := os.Remove(lease.lockPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to release session lease",
			slog.String("session", lease.Name), slog.Any("error", err))
	}
}

// sessionNames lists known session names in stable order.
func (p *Pool) sessionNames() ([]string, error) {
	entries, err := os.ReadDir(p.dir)
	if err != nil {
		return nil, fmt.Errorf("scan session dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), sessionSuffix) {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), sessionSuffix))
	}
	sort.Strings(names)
	return names, nil
}

// tryLock attempts to create the lock marker for name. O_EXCL makes the
// create itself the test, so two scanners cannot both create the file.
func (p *Pool) tryLock(name string) (*Lease, bool) {
	lockPath := filepath.Join(p.dir, name+lockSuffix)
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, false
	}
	_, werr := f.WriteString(p.clock.Now().UTC().Format(time.RFC3339))
	cerr := f.Close()
	if werr != nil || cerr != nil {
		_ = os.Remove(lockPath)
		return nil, false
	}
	return &Lease{
		Name:        name,
		SessionPath: filepath.Join(p.dir, name+sessionSuffix),
		lockPath:    lockPath,
	}, true
}

// reapStale deletes lock markers older than the staleness threshold.
// A missing or unparsable timestamp counts as stale.
func (p *Pool) reapStale(ctx context.Context) {
	log := logctx.FromContext(ctx)
	entries, err := os.ReadDir(p.dir)
	if err != nil {
		log.Warn("failed to scan session dir for stale locks", slog.Any("error", err))
		return
	}
	cutoff := p.clock.Now().Add(-p.staleAfter)
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), lockSuffix) {
			continue
		}
		lockPath := filepath.Join(p.dir, e.Name())
		raw, err := os.ReadFile(lockPath)
		stale := true
		if err == nil {
			if ts, perr := time.Parse(time.RFC3339, strings.TrimSpace(string(raw))); perr == nil {
				stale = ts.Before(cutoff)
			}
		}
		if !stale {
			continue
		}
		if err := os.Remove(lockPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			log.Warn("failed to reap stale session lock",
				slog.String("lock", e.Name()), slog.Any("error", err))
			continue
		}
		log.Info("reaped stale session lock", slog.String("lock", e.Name()))
	}
}
