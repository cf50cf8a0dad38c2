package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/delver-ai/delver/internal/search"
)

// QueryCache stores search results in a SQLite database, keyed by provider
// and query. Entries older than the TTL read as misses and are purged lazily.
type QueryCache struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

const queryCacheSchema = `
CREATE TABLE IF NOT EXISTS search_cache (
	provider   TEXT NOT NULL,
	query      TEXT NOT NULL,
	results    TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	PRIMARY KEY (provider, query)
);
`

// NewQueryCache opens (or creates) the cache database at path.
// A TTL of zero keeps entries forever.
func NewQueryCache(path string, ttl time.Duration) (*QueryCache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("query cache: open %s: %w", path, err)
	}
	if _, err := db.Exec(queryCacheSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("query cache: init schema: %w", err)
	}

	return &QueryCache{
		db:  db,
		ttl: ttl,
		now: time.Now,
	}, nil
}

// Get returns the cached results for (provider, query), reporting a miss for
// absent or expired entries.
func (c *QueryCache) Get(ctx context.Context, provider, query string) ([]search.Result, bool, error) {
	var (
		raw       string
		createdAt int64
	)
	row := c.db.QueryRowContext(ctx,
		`SELECT results, created_at FROM search_cache WHERE provider = ? AND query = ?`,
		provider, query)
	if err := row.Scan(&raw, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("query cache: read: %w", err)
	}

	if c.ttl > 0 && c.now().Sub(time.Unix(createdAt, 0)) > c.ttl {
		_, _ = c.db.ExecContext(ctx,
			`DELETE FROM search_cache WHERE provider = ? AND query = ?`,
			provider, query)
		return nil, false, nil
	}

	var results []search.Result
	if err := json.Unmarshal([]byte(raw), &results); err != nil {
		return nil, false, fmt.Errorf("query cache: decode entry: %w", err)
	}
	return results, true, nil
}

// Put stores the results for (provider, query), replacing any existing entry.
func (c *QueryCache) Put(ctx context.Context, provider, query string, results []search.Result) error {
	raw, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("query cache: encode entry: %w", err)
	}
	_, err = c.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO search_cache (provider, query, results, created_at) VALUES (?, ?, ?, ?)`,
		provider, query, string(raw), c.now().Unix())
	if err != nil {
		return fmt.Errorf("query cache: write: %w", err)
	}
	return nil
}

// Purge removes all expired entries. Intended for periodic maintenance.
func (c *QueryCache) Purge(ctx context.Context) (int64, error) {
	if c.ttl <= 0 {
		return 0, nil
	}
	cutoff := c.now().Add(-c.ttl).Unix()
	res, err := c.db.ExecContext(ctx, `DELETE FROM search_cache WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("query cache: purge: %w", err)
	}
	return res.RowsAffected()
}

// Close closes the underlying database.
func (c *QueryCache) Close() error {
	return c.db.Close()
}

var _ search.QueryCache = (*QueryCache)(nil)
