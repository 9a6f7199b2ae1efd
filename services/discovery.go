package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"civictrack-be/metrics"
	"civictrack-be/models"
	"civictrack-be/store"
)

// SearchRequest combines attribute filters with an optional proximity
// constraint. Latitude and Longitude must be given together.
type SearchRequest struct {
	Filter    models.IssueFilter
	Latitude  *float64
	Longitude *float64
	Radius    *float64
	Page      int
	Limit     int
	// DefaultLimit overrides the configured page size when Limit is unset.
	DefaultLimit int
}

// DiscoveryService answers filtered, paginated and proximity issue queries.
type DiscoveryService struct {
	issues store.IssueRepository
	geo    *GeoIndex
	opts   Options
}

func NewDiscoveryService(issues store.IssueRepository, geo *GeoIndex, opts Options) *DiscoveryService {
	return &DiscoveryService{issues: issues, geo: geo, opts: opts.withDefaults()}
}

// clampPage normalises 1-based paging: page >= 1, 1 <= limit <= max.
func clampPage(page, limit, defaultLimit, maxLimit int) models.Page {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return models.Page{Number: page, Limit: limit}
}

// Search returns one page of issues plus pagination metadata computed from
// the same predicate. The count and the fetch are separate reads, so under
// concurrent writes totals may drift by the few records written in between.
func (d *DiscoveryService) Search(ctx context.Context, req SearchRequest) (*models.IssuePage, error) {
	defaultLimit := req.DefaultLimit
	if defaultLimit <= 0 {
		defaultLimit = d.opts.DefaultLimit
	}
	page := clampPage(req.Page, req.Limit, defaultLimit, d.opts.MaxLimit)

	if (req.Latitude == nil) != (req.Longitude == nil) {
		return nil, fmt.Errorf("%w: latitude and longitude must be provided together", models.ErrInvalidCoordinates)
	}
	if req.Filter.Category != "" && !req.Filter.Category.Valid() {
		return nil, models.NewValidationError("category", "must be one of: Road, Water, Cleanliness, Lighting, Safety")
	}
	if req.Filter.Status != "" && !req.Filter.Status.Valid() {
		return nil, models.NewValidationError("status", "must be one of: Reported, In Progress, Resolved")
	}

	ctx, cancel := context.WithTimeout(ctx, d.opts.SearchTimeout)
	defer cancel()

	mode := "filter"
	if req.Latitude != nil {
		mode = "near"
	}
	start := time.Now()
	defer func() {
		metrics.SearchDuration.WithLabelValues(mode).Observe(time.Since(start).Seconds())
	}()

	var (
		issues []*models.Issue
		total  int64
		err    error
	)
	if req.Latitude != nil {
		issues, total, err = d.geo.FindNear(ctx, *req.Latitude, *req.Longitude, req.Radius, req.Filter, page)
	} else {
		total, err = d.issues.CountIssues(ctx, req.Filter)
		if err == nil {
			issues, err = d.issues.FindIssues(ctx, req.Filter, page)
		}
	}
	if err != nil {
		return nil, timeoutOr(ctx, err)
	}
	if ctx.Err() != nil {
		return nil, timeoutOr(ctx, ctx.Err())
	}
	if issues == nil {
		issues = []*models.Issue{}
	}

	return &models.IssuePage{
		Issues:     issues,
		Pagination: models.NewPagination(page, total),
	}, nil
}

// timeoutOr maps an expired deadline to models.ErrTimeout.
func timeoutOr(ctx context.Context, err error) error {
	if errors.Is(err, models.ErrTimeout) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", models.ErrTimeout, err)
	}
	return err
}
