package sqlstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/goliatone/go-flowsteps/core"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
)

const baselineCacheKeyPrefix = "go-flowsteps::baseline::v1"

// CachedBaselineStore serves baseline reads from cache. Change detection
// reads the same baseline on every execution, so reads dominate writes.
type CachedBaselineStore struct {
	base  core.BaselineStore
	cache repositorycache.CacheService
}

func NewCachedBaselineStore(
	base core.BaselineStore,
	cacheService repositorycache.CacheService,
) (*CachedBaselineStore, error) {
	if base == nil {
		return nil, fmt.Errorf("sqlstore: base baseline store is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: baseline cache service is required")
	}
	return &CachedBaselineStore{base: base, cache: cacheService}, nil
}

// BaselineCacheKey returns the deterministic cache key for baseline reads:
// go-flowsteps::baseline::v1::<baseline_id> with the id URL-path escaped.
func BaselineCacheKey(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", core.ValidationError("baseline id is required")
	}
	return baselineCacheKeyPrefix + "::" + url.PathEscape(id), nil
}

func (s *CachedBaselineStore) Create(ctx context.Context, in core.CreateBaselineInput) (core.BaselineSnapshot, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.BaselineSnapshot{}, fmt.Errorf("sqlstore: cached baseline store is not configured")
	}
	return s.base.Create(ctx, in)
}

func (s *CachedBaselineStore) Get(ctx context.Context, id string) (core.BaselineSnapshot, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.BaselineSnapshot{}, fmt.Errorf("sqlstore: cached baseline store is not configured")
	}
	cacheKey, err := BaselineCacheKey(id)
	if err != nil {
		return core.BaselineSnapshot{}, err
	}

	snapshot, err := repositorycache.GetOrFetch(ctx, s.cache, cacheKey, func(ctx context.Context) (core.BaselineSnapshot, error) {
		fetched, fetchErr := s.base.Get(ctx, id)
		if fetchErr != nil {
			return core.BaselineSnapshot{}, fetchErr
		}
		return cloneBaselineSnapshot(fetched), nil
	})
	if err != nil {
		return core.BaselineSnapshot{}, err
	}
	return cloneBaselineSnapshot(snapshot), nil
}

// ListByWorkflow always hits the base store. Listings are admin-surface
// reads and staleness there is worse than the extra query.
func (s *CachedBaselineStore) ListByWorkflow(ctx context.Context, workflowID string) ([]core.BaselineSnapshot, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return nil, fmt.Errorf("sqlstore: cached baseline store is not configured")
	}
	return s.base.ListByWorkflow(ctx, workflowID)
}

func (s *CachedBaselineStore) Update(ctx context.Context, in core.UpdateBaselineInput) (core.BaselineSnapshot, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.BaselineSnapshot{}, fmt.Errorf("sqlstore: cached baseline store is not configured")
	}
	updated, err := s.base.Update(ctx, in)
	if err != nil {
		return core.BaselineSnapshot{}, err
	}
	cacheKey, err := BaselineCacheKey(updated.ID)
	if err != nil {
		return updated, nil
	}
	if err := s.cache.Delete(ctx, cacheKey); err != nil {
		return core.BaselineSnapshot{}, err
	}
	return updated, nil
}

func (s *CachedBaselineStore) Delete(ctx context.Context, id string) error {
	if s == nil || s.base == nil || s.cache == nil {
		return fmt.Errorf("sqlstore: cached baseline store is not configured")
	}
	if err := s.base.Delete(ctx, id); err != nil {
		return err
	}
	cacheKey, err := BaselineCacheKey(id)
	if err != nil {
		return err
	}
	return s.cache.Delete(ctx, cacheKey)
}

func cloneBaselineSnapshot(snapshot core.BaselineSnapshot) core.BaselineSnapshot {
	cloned := snapshot
	cloned.Data = cloneDataRows(snapshot.Data)
	return cloned
}

var _ core.BaselineStore = (*CachedBaselineStore)(nil)
