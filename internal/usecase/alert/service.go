// Package alert assembles the full view of one object: its alert history,
// the cutout of its brightest alert, and the auxiliary prv_candidates and
// cross_matches records.
package alert

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/nova-cloud/alertdex/internal/domain"
	"github.com/nova-cloud/alertdex/internal/domain/catalog"
	domquery "github.com/nova-cloud/alertdex/internal/domain/query"
)

// Service retrieves objects from the alert store.
type Service struct {
	store Store
}

// New creates an alert service.
func New(store Store) *Service {
	return &Service{store: store}
}

// GetObject returns one object's assembled record: the science cutout of its
// brightest alert, all of its alerts without image blobs sorted by jd, and
// the auxiliary history and crossmatch entries. A missing auxiliary record
// yields empty history rather than an error.
func (s *Service) GetObject(ctx context.Context, cat, objectID string) (bson.M, error) {
	primary := catalog.Name(cat, catalog.Primary)
	byObject := bson.D{{Key: "objectId", Value: objectID}}

	// Brightest alert carries the cutout shown to the caller.
	var brightest bson.M
	err := s.store.FindOne(ctx, primary, byObject, domquery.Options{
		Sort:       bson.D{{Key: "candidate.magpsf", Value: 1}},
		Projection: bson.D{{Key: "_id", Value: 0}},
	}, &brightest)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("%w: object %s", domain.ErrNotFound, objectID)
	}
	if err != nil {
		return nil, fmt.Errorf("find brightest alert: %w", err)
	}

	alerts, err := s.store.Find(ctx, primary, byObject, domquery.Options{
		Sort: bson.D{{Key: "candidate.jd", Value: 1}},
		Projection: bson.D{
			{Key: "_id", Value: 0},
			{Key: "cutoutScience", Value: 0},
			{Key: "cutoutTemplate", Value: 0},
			{Key: "cutoutDifference", Value: 0},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("find alerts: %w", err)
	}

	data := bson.M{
		"objectId":       objectID,
		"alerts":         alerts,
		"prv_candidates": bson.A{},
		"cross_matches":  bson.M{},
	}
	if cutout, ok := brightest["cutoutScience"]; ok {
		data["cutoutScience"] = cutout
	} else {
		data["cutoutScience"] = ""
	}

	var aux bson.M
	err = s.store.FindOne(ctx, catalog.Name(cat, catalog.Auxiliary),
		bson.D{{Key: "_id", Value: objectID}}, domquery.Options{}, &aux)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		// No history yet for this object.
	case err != nil:
		return nil, fmt.Errorf("find aux entry: %w", err)
	default:
		if prv, ok := aux["prv_candidates"]; ok {
			data["prv_candidates"] = prv
		}
		if cm, ok := aux["cross_matches"]; ok {
			data["cross_matches"] = cm
		}
	}

	return data, nil
}
