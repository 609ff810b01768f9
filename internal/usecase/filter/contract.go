package filter

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	domquery "github.com/nova-cloud/alertdex/internal/domain/query"
)

// Store defines the storage contract for filter validation and persistence.
type Store interface {
	// Aggregate dry-runs a pipeline; results are discarded by this usecase.
	Aggregate(ctx context.Context, collection string, pipeline mongo.Pipeline) ([]bson.M, error)
	// FindOne decodes the first matching document into out, returning
	// domain.ErrNotFound when nothing matches.
	FindOne(ctx context.Context, collection string, filter bson.D, opts domquery.Options, out any) error
	CountDocuments(ctx context.Context, collection string, filter bson.D) (int64, error)
	InsertOne(ctx context.Context, collection string, doc any) error
	UpdateOne(ctx context.Context, collection string, filter, update bson.D) (int64, error)
}
