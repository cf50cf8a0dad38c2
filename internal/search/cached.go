package search

import (
	"context"
	"log/slog"

	"github.com/delver-ai/delver/internal/events"
)

// QueryCache stores results keyed by provider and query. Implementations own
// expiry; a stale entry is reported as a miss.
type QueryCache interface {
	Get(ctx context.Context, provider, query string) ([]Result, bool, error)
	Put(ctx context.Context, provider, query string, results []Result) error
}

// CachedSearcher wraps a Searcher with a per-query result cache and publishes
// search events on the bus.
type CachedSearcher struct {
	Provider string
	Inner    Searcher
	Cache    QueryCache
	Bus      *events.Bus
}

// Search consults the cache first and falls through to the inner searcher on
// a miss. Cache failures are logged, never fatal: a broken cache degrades to
// uncached search.
func (c *CachedSearcher) Search(ctx context.Context, query string) ([]Result, error) {
	if c.Cache != nil {
		results, ok, err := c.Cache.Get(ctx, c.Provider, query)
		if err != nil {
			slog.Warn("query cache read failed", "query", query, "error", err)
		} else if ok {
			c.publish(events.SearchQueryPayload{
				Provider: c.Provider,
				Query:    query,
				Results:  len(results),
				Cached:   true,
			})
			return results, nil
		}
	}

	results, err := c.Inner.Search(ctx, query)
	if err != nil {
		return nil, err
	}

	if c.Cache != nil {
		if err := c.Cache.Put(ctx, c.Provider, query, results); err != nil {
			slog.Warn("query cache write failed", "query", query, "error", err)
		}
	}

	c.publish(events.SearchQueryPayload{
		Provider: c.Provider,
		Query:    query,
		Results:  len(results),
	})
	return results, nil
}

func (c *CachedSearcher) publish(p events.SearchQueryPayload) {
	if c.Bus == nil {
		return
	}
	evt := events.NewTypedEvent(events.SourceSearch, p)
	if p.Cached {
		evt.Type = events.EventSearchCacheHit
	}
	c.Bus.Publish(evt)
}

var _ Searcher = (*CachedSearcher)(nil)
