package search

import (
	"context"
	"errors"
	"testing"
)

type fakeCache struct {
	entries map[string][]Result
	getErr  error
}

func (f *fakeCache) key(provider, query string) string { return provider + "|" + query }

func (f *fakeCache) Get(_ context.Context, provider, query string) ([]Result, bool, error) {
	if f.getErr != nil {
		return nil, false, f.getErr
	}
	r, ok := f.entries[f.key(provider, query)]
	return r, ok, nil
}

func (f *fakeCache) Put(_ context.Context, provider, query string, results []Result) error {
	if f.entries == nil {
		f.entries = map[string][]Result{}
	}
	f.entries[f.key(provider, query)] = results
	return nil
}

func TestCachedSearcher_MissThenHit(t *testing.T) {
	stub := &stubSearcher{results: map[string][]Result{
		"q": {{Title: "fresh", URL: "https://x"}},
	}}
	cache := &fakeCache{}
	cs := &CachedSearcher{Provider: "searxng", Inner: stub, Cache: cache}

	first, err := cs.Search(context.Background(), "q")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(first) != 1 || first[0].Title != "fresh" {
		t.Fatalf("unexpected results: %#v", first)
	}
	if len(stub.calls) != 1 {
		t.Fatalf("expected one upstream call, got %d", len(stub.calls))
	}

	second, err := cs.Search(context.Background(), "q")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(second) != 1 || second[0].Title != "fresh" {
		t.Fatalf("unexpected cached results: %#v", second)
	}
	if len(stub.calls) != 1 {
		t.Errorf("second search must be served from cache, upstream calls: %d", len(stub.calls))
	}
}

func TestCachedSearcher_CacheFailureDegradesToUncached(t *testing.T) {
	stub := &stubSearcher{results: map[string][]Result{
		"q": {{Title: "fresh"}},
	}}
	cs := &CachedSearcher{
		Provider: "searxng",
		Inner:    stub,
		Cache:    &fakeCache{getErr: errors.New("disk broke")},
	}

	results, err := cs.Search(context.Background(), "q")
	if err != nil {
		t.Fatalf("cache failure must not fail the search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected upstream results, got %#v", results)
	}
}

func TestCachedSearcher_UpstreamErrorNotCached(t *testing.T) {
	stub := &stubSearcher{errs: map[string]error{"q": errors.New("down")}}
	cache := &fakeCache{}
	cs := &CachedSearcher{Provider: "searxng", Inner: stub, Cache: cache}

	if _, err := cs.Search(context.Background(), "q"); err == nil {
		t.Fatal("expected upstream error")
	}
	if len(cache.entries) != 0 {
		t.Errorf("errors must not populate the cache, got %#v", cache.entries)
	}
}
