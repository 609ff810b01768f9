// Package query holds the pure builders that turn request parameters into
// concrete query specifications: find options and cone-search filters.
package query

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
)

// Kwargs are the optional knobs a caller may attach to a query.
// Nil fields mean "not requested" and must stay unset in the built options.
type Kwargs struct {
	Limit     *int64
	Skip      *int64
	Sort      bson.D
	MaxTimeMS *int64
}

// Options is the built query-execution configuration. Immutable once built;
// created per request and discarded after use.
type Options struct {
	Limit      *int64
	Skip       *int64
	Sort       bson.D
	MaxTime    *time.Duration
	Projection bson.D
}

// Build copies each present kwarg into the options and leaves absent fields
// unset. max_time_ms is converted from milliseconds to a duration. A malformed
// sort document is passed through uninterpreted and surfaces as a store error.
func Build(projection bson.D, kw Kwargs) Options {
	var opts Options
	if kw.Limit != nil {
		opts.Limit = kw.Limit
	}
	if kw.Skip != nil {
		opts.Skip = kw.Skip
	}
	if kw.Sort != nil {
		opts.Sort = kw.Sort
	}
	if kw.MaxTimeMS != nil {
		d := time.Duration(*kw.MaxTimeMS) * time.Millisecond
		opts.MaxTime = &d
	}
	if projection != nil {
		opts.Projection = projection
	}
	return opts
}
