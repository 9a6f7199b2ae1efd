package services

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"civictrack-be/geocode"
	"civictrack-be/metrics"
	"civictrack-be/models"
	"civictrack-be/store"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// IssueService orchestrates issue creation, reads, votes and deletion over
// the record store and the image and geocoding collaborators.
type IssueService struct {
	store    store.Store
	images   ImageStore
	geocoder Geocoder
	opts     Options
}

func NewIssueService(s store.Store, images ImageStore, geocoder Geocoder, opts Options) *IssueService {
	return &IssueService{store: s, images: images, geocoder: geocoder, opts: opts.withDefaults()}
}

// Create validates the draft, stores its images, resolves a fallback address
// and persists the issue. Any failure after an image was stored deletes the
// images already written.
func (s *IssueService) Create(ctx context.Context, draft models.IssueDraft) (*models.Issue, error) {
	draft.Normalize()
	if err := draft.Validate(s.opts.MaxImageSize); err != nil {
		return nil, err
	}

	urls, err := s.storeImages(ctx, draft.Images)
	if err != nil {
		return nil, err
	}

	lat, lng := *draft.Latitude, *draft.Longitude
	address := draft.Address
	if address == "" {
		address = s.resolveAddress(ctx, lat, lng)
	}

	now := s.opts.Now().UTC()
	issue := &models.Issue{
		ID:               primitive.NewObjectID(),
		Title:            draft.Title,
		Description:      draft.Description,
		Category:         draft.Category,
		Location:         models.NewPoint(lng, lat),
		Address:          address,
		Images:           urls,
		User:             draft.OwnerID,
		IsAnonymous:      draft.IsAnonymous,
		Status:           models.StatusReported,
		Priority:         models.PriorityMedium,
		LastStatusUpdate: now,
		IsVisible:        true,
		UpvotedBy:        []string{},
		SpamVotedBy:      []string{},
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.store.CreateIssue(ctx, issue); err != nil {
		s.deleteImages(ctx, urls)
		return nil, err
	}

	if issue.User != "" {
		s.bestEffort("owner_issue_counter", issue.ID, s.store.IncrementUserCounter(ctx, issue.User, models.CounterIssuesReported, 1))
	}

	entry := &models.ActivityLog{
		IssueID:   issue.ID,
		Status:    models.StatusReported,
		Note:      models.CreationNote,
		Timestamp: now,
	}
	if issue.User != "" {
		owner := issue.User
		entry.UpdatedBy = &owner
	}
	s.bestEffort("activity_append", issue.ID, s.store.AppendActivity(ctx, entry))

	metrics.IssuesCreated.WithLabelValues(string(issue.Category)).Inc()
	return issue, nil
}

func (s *IssueService) storeImages(ctx context.Context, images []models.ImageUpload) ([]string, error) {
	urls := make([]string, 0, len(images))
	for i, img := range images {
		name := img.Filename
		if name == "" {
			name = fmt.Sprintf("image-%d", i)
		}
		url, err := s.images.Store(ctx, filepath.Base(name), img.Data)
		if err != nil {
			s.deleteImages(ctx, urls)
			return nil, fmt.Errorf("%w: %v", models.ErrUploadFailed, err)
		}
		urls = append(urls, url)
	}
	return urls, nil
}

func (s *IssueService) deleteImages(ctx context.Context, urls []string) {
	for _, url := range urls {
		if err := s.images.Delete(ctx, url); err != nil {
			metrics.BestEffortFailures.WithLabelValues("image_delete").Inc()
			s.opts.Logger.Warn().Err(err).Str("url", url).Msg("failed to delete image")
		}
	}
}

func (s *IssueService) resolveAddress(ctx context.Context, lat, lng float64) string {
	if s.geocoder == nil {
		return geocode.Placeholder(lat, lng)
	}
	address, err := s.geocoder.Resolve(ctx, lat, lng)
	if err != nil || strings.TrimSpace(address) == "" {
		if err != nil {
			metrics.BestEffortFailures.WithLabelValues("geocode").Inc()
			s.opts.Logger.Warn().Err(err).Float64("lat", lat).Float64("lng", lng).Msg("reverse geocoding failed")
		}
		return geocode.Placeholder(lat, lng)
	}
	if len([]rune(address)) > models.MaxAddressLength {
		address = string([]rune(address)[:models.MaxAddressLength])
	}
	return address
}

func (s *IssueService) bestEffort(op string, issueID primitive.ObjectID, err error) {
	if err == nil {
		return
	}
	metrics.BestEffortFailures.WithLabelValues(op).Inc()
	s.opts.Logger.Error().Err(err).Str("issue_id", issueID.Hex()).Str("operation", op).Msg("best-effort update failed")
}

// Get returns an issue and counts the view. Visibility only governs
// discovery, so hidden issues stay addressable by id.
func (s *IssueService) Get(ctx context.Context, id primitive.ObjectID) (*models.Issue, error) {
	issue, err := s.store.FindIssue(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.store.IncrementViews(ctx, id); err != nil {
		s.bestEffort("view_increment", id, err)
	} else {
		issue.Views++
	}
	return issue, nil
}

// ToggleUpvote flips the principal's upvote.
func (s *IssueService) ToggleUpvote(ctx context.Context, id primitive.ObjectID, principalID string) (models.VoteResult, error) {
	if principalID == "" {
		return models.VoteResult{}, models.ErrForbidden
	}
	return s.store.ToggleUpvote(ctx, id, principalID)
}

// Delete removes an issue with its history. Only the owner or an admin may
// delete; anonymous issues are admin-only.
func (s *IssueService) Delete(ctx context.Context, id primitive.ObjectID, caller models.Principal) error {
	issue, err := s.store.FindIssue(ctx, id)
	if err != nil {
		return err
	}
	if !caller.IsAdmin && (issue.User == "" || issue.User != caller.ID) {
		return models.ErrForbidden
	}

	deleted, err := s.store.DeleteIssue(ctx, id)
	if err != nil {
		return err
	}

	s.deleteImages(ctx, deleted.Images)
	if deleted.User != "" {
		s.bestEffort("owner_issue_counter", id, s.store.IncrementUserCounter(ctx, deleted.User, models.CounterIssuesReported, -1))
	}
	return nil
}

// Activity lists an issue's history, oldest first.
func (s *IssueService) Activity(ctx context.Context, id primitive.ObjectID) ([]*models.ActivityLog, error) {
	if _, err := s.store.FindIssue(ctx, id); err != nil {
		return nil, err
	}
	return s.store.ListActivity(ctx, id)
}

// Dashboard summarises issues and the moderation backlog.
func (s *IssueService) Dashboard(ctx context.Context) (*models.DashboardStats, error) {
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, err
	}
	for _, status := range models.IssueStatuses {
		if _, ok := stats.ByStatus[status]; !ok {
			stats.ByStatus[status] = 0
		}
	}
	for _, category := range models.IssueCategories {
		if _, ok := stats.ByCategory[category]; !ok {
			stats.ByCategory[category] = 0
		}
	}
	return stats, nil
}
