package alert

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"

	domquery "github.com/nova-cloud/alertdex/internal/domain/query"
)

// Store defines the storage contract for object retrieval.
type Store interface {
	Find(ctx context.Context, collection string, filter bson.D, opts domquery.Options) ([]bson.M, error)
	FindOne(ctx context.Context, collection string, filter bson.D, opts domquery.Options, out any) error
}
