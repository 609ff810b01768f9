package query

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"

	domquery "github.com/nova-cloud/alertdex/internal/domain/query"
)

// Store defines the storage contract for query dispatch.
type Store interface {
	Find(ctx context.Context, collection string, filter bson.D, opts domquery.Options) ([]bson.M, error)
	CountDocuments(ctx context.Context, collection string, filter bson.D) (int64, error)
	ListCollectionNames(ctx context.Context) ([]string, error)
	ListIndexes(ctx context.Context, collection string) ([]bson.M, error)
	RunCommand(ctx context.Context, cmd bson.D) (bson.M, error)
}
