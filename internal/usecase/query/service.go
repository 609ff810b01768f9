// Package query dispatches generic query requests to the alert store:
// find, sample, count, batch cone search, and catalog metadata lookups.
package query

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/nova-cloud/alertdex/internal/domain"
	domquery "github.com/nova-cloud/alertdex/internal/domain/query"
	"github.com/nova-cloud/alertdex/internal/metrics"
)

// MaxSampleSize bounds how many documents a sample request may ask for.
const MaxSampleSize = 1000

// Service routes query requests to the store. Stateless; one instance serves
// all requests concurrently.
type Service struct {
	store Store
}

// New creates a query dispatcher.
func New(store Store) *Service {
	return &Service{store: store}
}

// Find runs a filtered find against the named catalog collection.
func (s *Service) Find(
	ctx context.Context, catalog string, filter, projection bson.D, kw domquery.Kwargs,
) ([]bson.M, error) {
	metrics.QueriesTotal.WithLabelValues("find").Inc()
	docs, err := s.store.Find(ctx, catalog, filter, domquery.Build(projection, kw))
	if err != nil {
		return nil, fmt.Errorf("find documents: %w", err)
	}
	return docs, nil
}

// Sample returns up to size unfiltered documents from the catalog collection.
// Sizes above MaxSampleSize or below zero are rejected before any storage call.
func (s *Service) Sample(ctx context.Context, catalog string, size int64) ([]bson.M, error) {
	if size > MaxSampleSize || size < 0 {
		return nil, fmt.Errorf("%w: sample size must be between 0 and %d", domain.ErrBadRequest, MaxSampleSize)
	}
	metrics.QueriesTotal.WithLabelValues("sample").Inc()
	opts := domquery.Build(nil, domquery.Kwargs{Limit: &size})
	docs, err := s.store.Find(ctx, catalog, nil, opts)
	if err != nil {
		return nil, fmt.Errorf("sample collection: %w", err)
	}
	return docs, nil
}

// Count counts documents in the catalog collection matching the filter.
func (s *Service) Count(ctx context.Context, catalog string, filter bson.D) (int64, error) {
	metrics.QueriesTotal.WithLabelValues("count_documents").Inc()
	n, err := s.store.CountDocuments(ctx, catalog, filter)
	if err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return n, nil
}

// ConeSearch compiles one geospatial filter per target and issues one
// independent find per target. The result maps target names to their
// result sets; execution order across targets carries no guarantee.
func (s *Service) ConeSearch(
	ctx context.Context,
	catalog string,
	base, projection bson.D,
	radius float64,
	unit domquery.Unit,
	targets []domquery.ConeSearchTarget,
	kw domquery.Kwargs,
) (map[string][]bson.M, error) {
	metrics.QueriesTotal.WithLabelValues("cone_search").Inc()
	opts := domquery.Build(projection, kw)

	out := make(map[string][]bson.M, len(targets))
	for _, target := range targets {
		filter := domquery.ConeSearchFilter(base, target.RA, target.Dec, radius, unit)
		docs, err := s.store.Find(ctx, catalog, filter, opts)
		if err != nil {
			return nil, fmt.Errorf("cone search %s: %w", target.Name, err)
		}
		out[target.Name] = docs
	}
	return out, nil
}

// CatalogNames lists catalog collection names in alphabetical order,
// excluding internal system collections.
func (s *Service) CatalogNames(ctx context.Context) ([]string, error) {
	metrics.QueriesTotal.WithLabelValues("info").Inc()
	names, err := s.store.ListCollectionNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("catalog names: %w", err)
	}
	out := make([]string, 0, len(names))
	for _, name := range names {
		if !strings.HasPrefix(name, "system.") {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out, nil
}

// CatalogInfo returns collection statistics for each named catalog.
func (s *Service) CatalogInfo(ctx context.Context, catalogs []string) ([]bson.M, error) {
	metrics.QueriesTotal.WithLabelValues("info").Inc()
	out := make([]bson.M, 0, len(catalogs))
	for _, c := range catalogs {
		stats, err := s.store.RunCommand(ctx, bson.D{{Key: "collstats", Value: c}})
		if err != nil {
			return nil, fmt.Errorf("catalog info %s: %w", c, err)
		}
		out = append(out, stats)
	}
	return out, nil
}

// IndexInfo returns the index descriptors for each named catalog.
func (s *Service) IndexInfo(ctx context.Context, catalogs []string) ([][]bson.M, error) {
	metrics.QueriesTotal.WithLabelValues("info").Inc()
	out := make([][]bson.M, 0, len(catalogs))
	for _, c := range catalogs {
		descriptors, err := s.store.ListIndexes(ctx, c)
		if err != nil {
			return nil, fmt.Errorf("index info %s: %w", c, err)
		}
		out = append(out, descriptors)
	}
	return out, nil
}

// DBInfo returns statistics for the whole database.
func (s *Service) DBInfo(ctx context.Context) (bson.M, error) {
	metrics.QueriesTotal.WithLabelValues("info").Inc()
	stats, err := s.store.RunCommand(ctx, bson.D{{Key: "dbstats", Value: 1}})
	if err != nil {
		return nil, fmt.Errorf("db info: %w", err)
	}
	return stats, nil
}
