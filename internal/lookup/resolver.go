package lookup

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"quotedesk/backend/internal/cache"
	"quotedesk/backend/internal/domain"
	"quotedesk/backend/internal/metrics"
	"quotedesk/backend/internal/store"
)

// Resolver finds products for a free-text or SKU query. The priceList is
// carried so cached results stay scoped to the list they were priced for.
type Resolver interface {
	Search(ctx context.Context, query string, priceList string) ([]domain.Product, error)
}

// ProductSearcher is the slice of the repository the store-backed resolver
// needs.
type ProductSearcher interface {
	SearchProducts(ctx context.Context, query string, limit int) ([]domain.Product, error)
	GetProductBySKU(ctx context.Context, sku string) (*domain.Product, error)
}

const defaultSearchLimit = 20

// StoreResolver resolves queries against the repository.
type StoreResolver struct {
	repo  ProductSearcher
	limit int
}

func NewStoreResolver(repo ProductSearcher) *StoreResolver {
	return &StoreResolver{repo: repo, limit: defaultSearchLimit}
}

func (r *StoreResolver) Search(ctx context.Context, query string, _ string) ([]domain.Product, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	metrics.ProductSearches.Inc()
	// An exact SKU match wins outright; anything else falls back to the
	// fuzzy search.
	product, err := r.repo.GetProductBySKU(ctx, query)
	switch {
	case err == nil:
		return []domain.Product{*product}, nil
	case !errors.Is(err, store.ErrNotFound):
		return nil, err
	}
	return r.repo.SearchProducts(ctx, query, r.limit)
}

// CachedResolver decorates a resolver with a short-lived result cache keyed
// by query and price list.
type CachedResolver struct {
	inner Resolver
	cache cache.ProductSearchCache
	ttl   time.Duration
}

func NewCachedResolver(inner Resolver, searchCache cache.ProductSearchCache, ttl time.Duration) *CachedResolver {
	if ttl <= 0 {
		ttl = 20 * time.Second
	}
	return &CachedResolver{inner: inner, cache: searchCache, ttl: ttl}
}

func (r *CachedResolver) Search(ctx context.Context, query string, priceList string) ([]domain.Product, error) {
	key := cacheKey(query, priceList)
	if cached, found, err := r.cache.Get(ctx, key); err == nil && found {
		metrics.SearchCacheHits.Inc()
		return cached, nil
	}

	products, err := r.inner.Search(ctx, query, priceList)
	if err != nil {
		return nil, err
	}
	// A failed cache write only costs the next caller a repeat search.
	_ = r.cache.Set(ctx, key, products, r.ttl)
	return products, nil
}

func cacheKey(query string, priceList string) string {
	if priceList == "" {
		priceList = domain.PriceListMRP
	}
	return fmt.Sprintf("product-search:%s:%s", priceList, strings.ToLower(strings.TrimSpace(query)))
}
