package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/user/spa-platform/internal/adapter/metrics"
	"github.com/user/spa-platform/internal/domain"
)

type directoryEntry struct {
	slug      string
	found     bool
	expiresAt time.Time
}

// TenantDirectory implements domain.TenantDirectory using PostgreSQL as the
// source of truth and an in-memory, time-based cache. The lookup sits on the
// request path for every custom-domain request, so misses (including
// negative ones) are cached.
type TenantDirectory struct {
	db       *sql.DB
	logger   *slog.Logger
	cache    map[string]directoryEntry
	mu       sync.RWMutex
	cacheTTL time.Duration
	metrics  *metrics.SyncMetrics
}

// NewTenantDirectory creates a new instance of the PostgreSQL tenant
// directory.
func NewTenantDirectory(db *sql.DB, logger *slog.Logger, cacheTTL time.Duration, m *metrics.SyncMetrics) *TenantDirectory {
	return &TenantDirectory{
		db:       db,
		logger:   logger.With("component", "tenant_directory"),
		cache:    make(map[string]directoryEntry),
		cacheTTL: cacheTTL,
		metrics:  m,
	}
}

// LookupHost resolves a custom-domain host to its tenant slug. It first
// checks the local cache and falls back to the database if the host is not
// cached or the entry has expired.
func (d *TenantDirectory) LookupHost(ctx context.Context, host string) (string, error) {
	d.mu.RLock()
	entry, found := d.cache[host]
	d.mu.RUnlock()

	if found && time.Now().Before(entry.expiresAt) {
		if d.metrics != nil {
			d.metrics.DirectoryCacheHits.Inc()
		}
		return entrySlug(entry)
	}

	if d.metrics != nil {
		d.metrics.DirectoryCacheMisses.Inc()
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	// Double-check in case another goroutine populated the entry while
	// waiting for the lock.
	entry, found = d.cache[host]
	if found && time.Now().Before(entry.expiresAt) {
		return entrySlug(entry)
	}

	var slug string
	query := `SELECT tenant_slug FROM tenant_domains WHERE host = $1 AND verified_at IS NOT NULL`
	err := d.db.QueryRowContext(ctx, query, host).Scan(&slug)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		d.cache[host] = directoryEntry{found: false, expiresAt: time.Now().Add(d.cacheTTL)}
		return "", domain.ErrHostNotFound
	case err != nil:
		d.logger.Error("failed to look up host in database", "host", host, "error", err)
		// Don't cache errors, let the next request retry from the DB.
		return "", fmt.Errorf("lookup host %q: %w", host, err)
	}

	d.cache[host] = directoryEntry{slug: slug, found: true, expiresAt: time.Now().Add(d.cacheTTL)}
	return slug, nil
}

func entrySlug(entry directoryEntry) (string, error) {
	if !entry.found {
		return "", domain.ErrHostNotFound
	}
	return entry.slug, nil
}
