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

package sessionpool

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestPool(t *testing.T, clock Clock) *Pool {
	t.Helper()
	p, err := New(t.TempDir(), WithClock(clock))
	require.NoError(t, err)
	return p
}

func seedSession(t *testing.T, p *Pool, name string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(p.dir, name+sessionSuffix), nil, 0o600))
}

func TestAcquirePrefersKnownUnlockedSession(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	p := newTestPool(t, clock)
	seedSession(t, p, "alpha")
	seedSession(t, p, "beta")

	lease, err := p.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "alpha", lease.Name)
	assert.FileExists(t, filepath.Join(p.dir, "alpha.lock"))
}

func TestAcquireNeverReturnsLockedSession(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	p := newTestPool(t, clock)
	seedSession(t, p, "alpha")
	seedSession(t, p, "beta")

	first, err := p.Acquire(context.Background())
	require.NoError(t, err)
	second, err := p.Acquire(context.Background())
	require.NoError(t, err)

	assert.NotEqual(t, first.Name, second.Name)
}

func TestAcquireMintsWhenAllHeld(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	p := newTestPool(t, clock)
	seedSession(t, p, "alpha")

	_, err := p.Acquire(context.Background())
	require.NoError(t, err)
	minted, err := p.Acquire(context.Background())
	require.NoError(t, err)

	assert.Contains(t, minted.Name, "sess-")
	assert.FileExists(t, minted.SessionPath)
}

func TestReleaseMakesSessionAcquirableAgain(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	p := newTestPool(t, clock)
	seedSession(t, p, "alpha")

	lease, err := p.Acquire(context.Background())
	require.NoError(t, err)
	p.Release(lease)

	again, err := p.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "alpha", again.Name)
}

func TestStaleLeaseIsReclaimableWithoutRelease(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	p := newTestPool(t, clock)
	seedSession(t, p, "alpha")

	_, err := p.Acquire(context.Background())
	require.NoError(t, err)

	// Under threshold: still held, a second caller mints a new session.
	clock.advance(DefaultStaleAfter - time.Minute)
	other, err := p.Acquire(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, "alpha", other.Name)
	p.Release(other)

	// Past threshold: the abandoned lock is reaped and alpha is free.
	clock.advance(2 * time.Minute)
	reclaimed, err := p.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "alpha", reclaimed.Name)
}

func TestReapTreatsUnparsableLockAsStale(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	p := newTestPool(t, clock)
	seedSession(t, p, "alpha")
	require.NoError(t, os.WriteFile(filepath.Join(p.dir, "alpha.lock"), []byte("garbage"), 0o600))

	lease, err := p.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "alpha", lease.Name)
}

func TestReleaseNilAndDoubleReleaseAreSafe(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	p := newTestPool(t, clock)
	seedSession(t, p, "alpha")

	p.Release(nil)
	lease, err := p.Acquire(context.Background())
	require.NoError(t, err)
	p.Release(lease)
	p.Release(lease)
}
