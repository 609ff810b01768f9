// Package filter holds the persisted filter model and the permission-scoped
// pipeline prefix every user-submitted pipeline is wrapped in.
package filter

import (
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/nova-cloud/alertdex/internal/domain/catalog"
)

// HistoryWindowDays bounds how far back prv_candidates may reach relative to
// the current candidate (in Julian days). Never caller-overridable.
const HistoryWindowDays = 365

// Version is one immutable revision of a filter's pipeline. Created exactly
// once at submission time.
type Version struct {
	FID       string         `bson:"fid"`
	Pipeline  mongo.Pipeline `bson:"pipeline"`
	CreatedAt time.Time      `bson:"created_at"`
}

// Definition is the persisted record for a user-submitted filter. Versions is
// append-only, ordered by creation time; ActiveFID tracks the most recently
// added version.
type Definition struct {
	FilterID          int32     `bson:"filter_id"`
	Catalog           string    `bson:"catalog"`
	Permissions       []int64   `bson:"permissions"`
	Active            bool      `bson:"active"`
	ActiveFID         string    `bson:"active_fid"`
	Versions          []Version `bson:"fv"`
	Autosave          bool      `bson:"autosave"`
	UpdateAnnotations bool      `bson:"update_annotations"`
	CreatedAt         time.Time `bson:"created_at"`
	LastModified      time.Time `bson:"last_modified"`
}

// NewVersion wraps a pipeline as a fresh version with a unique id and the
// current timestamp.
func NewVersion(pipeline mongo.Pipeline) Version {
	return Version{
		FID:       uuid.NewString(),
		Pipeline:  pipeline,
		CreatedAt: time.Now().UTC(),
	}
}

// MandatoryPrefix builds the pipeline stages every user pipeline is wrapped
// in, in fixed order:
//  1. strip image blobs and publisher metadata from the alert,
//  2. join the auxiliary record for the same object,
//  3. republish the alert fields plus cross_matches and a permission- and
//     time-windowed prv_candidates derived from the joined record.
//
// The permission allow-list and the history window are invariants of every
// compiled pipeline regardless of what the user's own stages do next.
func MandatoryPrefix(cat string, permissions []int64) mongo.Pipeline {
	return mongo.Pipeline{
		bson.D{{Key: "$project", Value: bson.D{
			{Key: "cutoutScience", Value: 0},
			{Key: "cutoutDifference", Value: 0},
			{Key: "cutoutTemplate", Value: 0},
			{Key: "publisher", Value: 0},
			{Key: "schemavsn", Value: 0},
		}}},
		bson.D{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: catalog.Name(cat, catalog.Auxiliary)},
			{Key: "localField", Value: "objectId"},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: "aux"},
		}}},
		bson.D{{Key: "$project", Value: bson.D{
			{Key: "objectId", Value: 1},
			{Key: "candid", Value: 1},
			{Key: "candidate", Value: 1},
			{Key: "classifications", Value: 1},
			{Key: "coordinates", Value: 1},
			{Key: "cross_matches", Value: bson.D{
				{Key: "$arrayElemAt", Value: bson.A{"$aux.cross_matches", 0}},
			}},
			{Key: "prv_candidates", Value: bson.D{
				{Key: "$filter", Value: bson.D{
					{Key: "input", Value: bson.D{
						{Key: "$arrayElemAt", Value: bson.A{"$aux.prv_candidates", 0}},
					}},
					{Key: "as", Value: "x"},
					{Key: "cond", Value: bson.D{
						{Key: "$and", Value: bson.A{
							bson.D{{Key: "$in", Value: bson.A{"$$x.programid", permissions}}},
							bson.D{{Key: "$lt", Value: bson.A{
								bson.D{{Key: "$subtract", Value: bson.A{"$candidate.jd", "$$x.jd"}}},
								HistoryWindowDays,
							}}},
						}},
					}},
				}},
			}},
		}}},
	}
}
