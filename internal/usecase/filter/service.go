// Package filter validates user-submitted classification pipelines against
// the live alert store and persists accepted ones with version history.
package filter

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/nova-cloud/alertdex/internal/domain"
	"github.com/nova-cloud/alertdex/internal/domain/catalog"
	domfilter "github.com/nova-cloud/alertdex/internal/domain/filter"
	domquery "github.com/nova-cloud/alertdex/internal/domain/query"
	"github.com/nova-cloud/alertdex/internal/metrics"
)

// Service validates and stores filter pipelines. Stateless.
type Service struct {
	store Store
}

// New creates a filter service.
func New(store Store) *Service {
	return &Service{store: store}
}

// validated is proof that a user pipeline passed its dry run under a given
// catalog and permission set. Only validate constructs it, so persistence
// cannot be reached with an unvalidated pipeline.
type validated struct {
	catalog     string
	permissions []int64
	pipeline    mongo.Pipeline
}

// validate wraps the user pipeline in the mandatory prefix and executes the
// combination against the primary collection. The dry run reads production
// data and must not write; its results are discarded. Any execution error
// rejects the pipeline with the storage error text preserved.
func (s *Service) validate(
	ctx context.Context, cat string, permissions []int64, user mongo.Pipeline,
) (validated, error) {
	combined := append(domfilter.MandatoryPrefix(cat, permissions), user...)
	if _, err := s.store.Aggregate(ctx, catalog.Name(cat, catalog.Primary), combined); err != nil {
		metrics.FilterSubmissionsTotal.WithLabelValues("rejected").Inc()
		return validated{}, fmt.Errorf("%w: filter test failed: %w", domain.ErrValidationRejected, err)
	}
	return validated{catalog: cat, permissions: permissions, pipeline: user}, nil
}

// Submit validates a new filter and inserts its definition with the submitted
// pipeline as the first version. The filter id must not be taken yet.
// A write failure after successful validation is reported as
// domain.ErrPersistence so the caller can safely retry the same submission.
func (s *Service) Submit(
	ctx context.Context, id int32, cat string, permissions []int64, pipeline mongo.Pipeline,
) error {
	taken, err := s.store.CountDocuments(ctx, catalog.FiltersCollection,
		bson.D{{Key: "filter_id", Value: id}})
	if err != nil {
		return fmt.Errorf("check filter id: %w", err)
	}
	if taken > 0 {
		return fmt.Errorf("%w: filter id %d already exists", domain.ErrBadRequest, id)
	}

	v, err := s.validate(ctx, cat, permissions, pipeline)
	if err != nil {
		return err
	}

	version := domfilter.NewVersion(v.pipeline)
	def := domfilter.Definition{
		FilterID:          id,
		Catalog:           v.catalog,
		Permissions:       v.permissions,
		Active:            true,
		ActiveFID:         version.FID,
		Versions:          []domfilter.Version{version},
		Autosave:          false,
		UpdateAnnotations: true,
		CreatedAt:         version.CreatedAt,
		LastModified:      version.CreatedAt,
	}
	if err := s.store.InsertOne(ctx, catalog.FiltersCollection, def); err != nil {
		metrics.FilterSubmissionsTotal.WithLabelValues("persistence_failed").Inc()
		return fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}
	metrics.FilterSubmissionsTotal.WithLabelValues("accepted").Inc()
	return nil
}

// AddVersion re-validates a new pipeline under the stored catalog and
// permission scopes and appends it as a fresh version. Prior versions are
// never altered; identical pipelines deliberately create new versions so the
// audit history stays complete.
func (s *Service) AddVersion(ctx context.Context, id int32, pipeline mongo.Pipeline) error {
	var def domfilter.Definition
	err := s.store.FindOne(ctx, catalog.FiltersCollection,
		bson.D{{Key: "filter_id", Value: id}}, domquery.Options{}, &def)
	if err != nil {
		return fmt.Errorf("load filter %d: %w", id, err)
	}

	v, err := s.validate(ctx, def.Catalog, def.Permissions, pipeline)
	if err != nil {
		return err
	}

	version := domfilter.NewVersion(v.pipeline)
	matched, err := s.store.UpdateOne(ctx, catalog.FiltersCollection,
		bson.D{{Key: "filter_id", Value: id}},
		bson.D{
			{Key: "$push", Value: bson.D{{Key: "fv", Value: version}}},
			{Key: "$set", Value: bson.D{
				{Key: "active_fid", Value: version.FID},
				{Key: "last_modified", Value: version.CreatedAt},
			}},
		})
	if err != nil {
		metrics.FilterSubmissionsTotal.WithLabelValues("persistence_failed").Inc()
		return fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}
	if matched == 0 {
		return fmt.Errorf("%w: filter %d", domain.ErrNotFound, id)
	}
	metrics.FilterSubmissionsTotal.WithLabelValues("accepted").Inc()
	return nil
}
