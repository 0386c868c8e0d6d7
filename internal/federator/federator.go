// Package federator combines the local result cache with live
// search-engine scrapes (spec §4.4).
package federator

import (
	"context"
	"log"

	"sniffdognode/internal/engine"
	"sniffdognode/internal/searchresult"
)

// Federator answers a search query from the local cache union fresh
// engine scrapes, persisting the scraped results back into the cache.
type Federator struct {
	store     resultStore
	engines   []engine.Engine
	threshold int
	logger    *log.Logger
}

// resultStore is the subset of *searchstore.Store the federator needs,
// kept narrow so tests can supply an in-memory fake.
type resultStore interface {
	Search(query string) ([]searchresult.Result, error)
	SyncFrom(results []searchresult.Result) error
}

// New builds a Federator over store, falling back to engines only when
// the local cache yields threshold or fewer hits (spec §4.4 step 2,
// config key `minimum_search_results_threshold`). A nil logger defaults
// to log.Default().
func New(store resultStore, engines []engine.Engine, threshold int, logger *log.Logger) *Federator {
	if logger == nil {
		logger = log.Default()
	}
	return &Federator{store: store, engines: engines, threshold: threshold, logger: logger}
}

// Search returns locally cached matches for query, falling back to the
// union of the cache and freshly scraped engine results only when the
// cache alone doesn't clear the configured threshold (spec §4.4).
// Results newly discovered from an engine are persisted into the local
// cache before being returned. Per-engine failures are logged and
// otherwise swallowed (spec §4.4: one engine's failure must not fail
// the whole federated search).
func (f *Federator) Search(ctx context.Context, query string) ([]searchresult.Result, error) {
	cached, err := f.store.Search(query)
	if err != nil {
		return nil, err
	}

	if len(cached) > f.threshold {
		return cached, nil
	}

	seen := make(map[searchresult.Hash]struct{}, len(cached))
	out := make([]searchresult.Result, 0, len(cached))
	for _, r := range cached {
		seen[r.Hash] = struct{}{}
		out = append(out, r)
	}

	for _, eng := range f.engines {
		results, err := eng.Search(ctx, query)
		if err != nil {
			f.logger.Printf("federator: engine %s: %v", eng.Name(), err)
			continue
		}
		for _, r := range results {
			if _, dup := seen[r.Hash]; dup {
				continue
			}
			seen[r.Hash] = struct{}{}
			out = append(out, r)
		}
	}

	if err := f.store.SyncFrom(out); err != nil {
		f.logger.Printf("federator: persisting search results: %v", err)
	}

	return out, nil
}
