package services

import (
	"context"
	"math"

	"civictrack-be/models"
	"civictrack-be/store"
)

// GeoIndex answers "issues within R meters of a point" over the record store.
type GeoIndex struct {
	store store.IssueRepository
	opts  Options
}

func NewGeoIndex(s store.IssueRepository, opts Options) *GeoIndex {
	return &GeoIndex{store: s, opts: opts.withDefaults()}
}

// ValidCoordinates reports whether lat/lng lie within their WGS84 ranges.
func ValidCoordinates(lat, lng float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lng) {
		return false
	}
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

// Radius applies the default when radius is nil and clamps it to the maximum.
func (g *GeoIndex) Radius(radius *float64) (float64, error) {
	if radius == nil {
		return g.opts.DefaultRadius, nil
	}
	r := *radius
	if math.IsNaN(r) || r <= 0 {
		return 0, models.ErrInvalidRadius
	}
	return math.Min(r, g.opts.MaxRadius), nil
}

// FindNear returns one page of matching issues ordered nearest first, each
// annotated with its distance in meters, plus the total match count.
func (g *GeoIndex) FindNear(ctx context.Context, lat, lng float64, radius *float64, filter models.IssueFilter, page models.Page) ([]*models.Issue, int64, error) {
	if !ValidCoordinates(lat, lng) {
		return nil, 0, models.ErrInvalidCoordinates
	}
	r, err := g.Radius(radius)
	if err != nil {
		return nil, 0, err
	}

	near := models.NearQuery{Latitude: lat, Longitude: lng, RadiusMeters: r}

	total, err := g.store.CountNear(ctx, near, filter)
	if err != nil {
		return nil, 0, err
	}
	issues, err := g.store.FindNear(ctx, near, filter, page)
	if err != nil {
		return nil, 0, err
	}
	return issues, total, nil
}
