// Package mongo implements the storage collaborator on top of the official
// MongoDB driver. It is the only package that talks to the driver; everything
// above it works against the usecase contracts.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/nova-cloud/alertdex/internal/domain"
	"github.com/nova-cloud/alertdex/internal/domain/query"
)

// Config holds connection settings for the store.
type Config struct {
	URI      string
	Database string
}

// Store wraps a mongo database handle.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewStore connects to MongoDB. Call WaitForReady before serving traffic.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}
	return &Store{client: client, db: client.Database(cfg.Database)}, nil
}

// WaitForReady pings the deployment until it responds or the timeout expires.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := s.client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("ping mongodb: %w", err)
	}
	return nil
}

// Ping checks connectivity for health reporting.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// Close disconnects the client.
func (s *Store) Close() {
	_ = s.client.Disconnect(context.Background())
}

// Find runs a find with the built query options and collects all documents.
func (s *Store) Find(ctx context.Context, collection string, filter bson.D, opts query.Options) ([]bson.M, error) {
	cursor, err := s.db.Collection(collection).Find(ctx, orEmpty(filter), findOptions(opts))
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", collection, err)
	}
	var docs []bson.M
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("collect %s: %w", collection, err)
	}
	return docs, nil
}

// FindOne runs a find-one and decodes the result into out.
// Returns domain.ErrNotFound when no document matches.
func (s *Store) FindOne(ctx context.Context, collection string, filter bson.D, opts query.Options, out any) error {
	err := s.db.Collection(collection).FindOne(ctx, orEmpty(filter), findOneOptions(opts)).Decode(out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("%w: no document in %s", domain.ErrNotFound, collection)
	}
	if err != nil {
		return fmt.Errorf("find one %s: %w", collection, err)
	}
	return nil
}

// Aggregate runs a pipeline and collects all documents; results may be
// discarded by the caller when only execution success matters.
func (s *Store) Aggregate(ctx context.Context, collection string, pipeline mongo.Pipeline) ([]bson.M, error) {
	cursor, err := s.db.Collection(collection).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate %s: %w", collection, err)
	}
	var docs []bson.M
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("collect %s: %w", collection, err)
	}
	return docs, nil
}

// CountDocuments counts documents matching the filter.
func (s *Store) CountDocuments(ctx context.Context, collection string, filter bson.D) (int64, error) {
	n, err := s.db.Collection(collection).CountDocuments(ctx, orEmpty(filter))
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", collection, err)
	}
	return n, nil
}

// ListCollectionNames lists all collection names in the database.
func (s *Store) ListCollectionNames(ctx context.Context) ([]string, error) {
	names, err := s.db.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	return names, nil
}

// ListIndexes returns the index descriptors of a collection.
func (s *Store) ListIndexes(ctx context.Context, collection string) ([]bson.M, error) {
	cursor, err := s.db.Collection(collection).Indexes().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list indexes %s: %w", collection, err)
	}
	var descriptors []bson.M
	if err := cursor.All(ctx, &descriptors); err != nil {
		return nil, fmt.Errorf("collect indexes %s: %w", collection, err)
	}
	return descriptors, nil
}

// RunCommand runs a database command and returns its reply document.
func (s *Store) RunCommand(ctx context.Context, cmd bson.D) (bson.M, error) {
	var reply bson.M
	if err := s.db.RunCommand(ctx, cmd).Decode(&reply); err != nil {
		return nil, fmt.Errorf("run command: %w", err)
	}
	return reply, nil
}

// InsertOne inserts a single document.
func (s *Store) InsertOne(ctx context.Context, collection string, doc any) error {
	if _, err := s.db.Collection(collection).InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert %s: %w", collection, err)
	}
	return nil
}

// UpdateOne applies an update to the first matching document and reports how
// many documents matched.
func (s *Store) UpdateOne(ctx context.Context, collection string, filter, update bson.D) (int64, error) {
	res, err := s.db.Collection(collection).UpdateOne(ctx, filter, update)
	if err != nil {
		return 0, fmt.Errorf("update %s: %w", collection, err)
	}
	return res.MatchedCount, nil
}

// orEmpty substitutes an empty document for a nil filter; the driver rejects
// nil filters.
func orEmpty(filter bson.D) bson.D {
	if filter == nil {
		return bson.D{}
	}
	return filter
}

func findOptions(o query.Options) *options.FindOptions {
	fo := options.Find()
	if o.Limit != nil {
		fo.SetLimit(*o.Limit)
	}
	if o.Skip != nil {
		fo.SetSkip(*o.Skip)
	}
	if o.Sort != nil {
		fo.SetSort(o.Sort)
	}
	if o.MaxTime != nil {
		fo.SetMaxTime(*o.MaxTime)
	}
	if o.Projection != nil {
		fo.SetProjection(o.Projection)
	}
	return fo
}

func findOneOptions(o query.Options) *options.FindOneOptions {
	fo := options.FindOne()
	if o.Skip != nil {
		fo.SetSkip(*o.Skip)
	}
	if o.Sort != nil {
		fo.SetSort(o.Sort)
	}
	if o.MaxTime != nil {
		fo.SetMaxTime(*o.MaxTime)
	}
	if o.Projection != nil {
		fo.SetProjection(o.Projection)
	}
	return fo
}
