package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"civictrack-be/metrics"
	"civictrack-be/models"
	"civictrack-be/store"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ModerationStore is the subset of the store the moderation engine needs.
type ModerationStore interface {
	FindIssue(ctx context.Context, id primitive.ObjectID) (*models.Issue, error)
	AddSpamVote(ctx context.Context, id primitive.ObjectID, principalID string, threshold int) (*models.Issue, bool, error)
	SetVisibility(ctx context.Context, id primitive.ObjectID, visible bool) (*models.Issue, error)
	store.SpamReportRepository
	IncrementUserCounter(ctx context.Context, userID, field string, delta int) error
}

// SpamResult is the outcome of an accepted spam report.
type SpamResult struct {
	Accepted  bool `json:"accepted"`
	SpamVotes int  `json:"spamVotes"`
	Hidden    bool `json:"hidden"`
}

// ModerationService turns spam reports into auto-moderation decisions.
type ModerationService struct {
	store ModerationStore
	opts  Options
}

func NewModerationService(s ModerationStore, opts Options) *ModerationService {
	return &ModerationService{store: s, opts: opts.withDefaults()}
}

func (m *ModerationService) Threshold() int {
	return m.opts.SpamThreshold
}

// ReportSpam records one principal's spam flag. The vote that reaches the
// threshold hides the issue in the same store write; the owner's spamReports
// counter is then bumped once, best-effort.
func (m *ModerationService) ReportSpam(ctx context.Context, issueID primitive.ObjectID, reporterID string, reason models.SpamReason, description string) (*SpamResult, error) {
	description = strings.TrimSpace(description)

	verr := &models.ValidationError{}
	if reporterID == "" {
		verr.Add("reportedBy", "is required")
	}
	if !reason.Valid() {
		verr.Add("reason", "must be one of: Inappropriate Content, Fake Report, Duplicate, Spam, Other")
	}
	if utf8.RuneCountInString(description) > models.MaxSpamDescriptionLength {
		verr.Add("description", fmt.Sprintf("cannot exceed %d characters", models.MaxSpamDescriptionLength))
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	if _, err := m.store.FindIssue(ctx, issueID); err != nil {
		return nil, err
	}

	now := m.opts.Now().UTC()
	report := &models.SpamReport{
		IssueID:     issueID,
		ReportedBy:  reporterID,
		Reason:      reason,
		Description: description,
		Status:      models.ReviewPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := m.store.CreateSpamReport(ctx, report); err != nil {
		return nil, err
	}

	issue, crossed, err := m.store.AddSpamVote(ctx, issueID, reporterID, m.opts.SpamThreshold)
	if err != nil {
		// Keep reports and votes in step: a report without its vote would
		// block this principal forever without counting.
		if delErr := m.store.DeleteSpamReport(ctx, report.ID); delErr != nil && !errors.Is(delErr, models.ErrNotFound) {
			m.opts.Logger.Error().Err(delErr).
				Str("report_id", report.ID.Hex()).
				Msg("failed to roll back spam report")
		}
		return nil, err
	}
	metrics.SpamReports.WithLabelValues(string(reason)).Inc()

	result := &SpamResult{Accepted: true, SpamVotes: issue.SpamVotes, Hidden: !issue.IsVisible}
	if !crossed {
		return result, nil
	}

	metrics.SpamThresholdCrossings.Inc()
	m.opts.Logger.Info().
		Str("issue_id", issueID.Hex()).
		Int("spam_votes", issue.SpamVotes).
		Msg("issue hidden after reaching spam threshold")

	if issue.User != "" {
		if err := m.store.IncrementUserCounter(ctx, issue.User, models.CounterSpamReports, 1); err != nil {
			metrics.BestEffortFailures.WithLabelValues("owner_spam_counter").Inc()
			m.opts.Logger.Error().Err(err).
				Str("issue_id", issueID.Hex()).
				Msg("failed to increment owner spam counter")
		}
	}
	return result, nil
}

// SetVisibility is the admin override; it may re-show an auto-hidden issue.
func (m *ModerationService) SetVisibility(ctx context.Context, issueID primitive.ObjectID, visible bool) (*models.Issue, error) {
	return m.store.SetVisibility(ctx, issueID, visible)
}

type ReviewRequest struct {
	ReportID    primitive.ObjectID
	Status      models.ReviewStatus
	ReviewerID  string
	ActionTaken string
}

// ReviewSpamReport changes only the report's review state.
func (m *ModerationService) ReviewSpamReport(ctx context.Context, req ReviewRequest) (*models.SpamReport, error) {
	req.ActionTaken = strings.TrimSpace(req.ActionTaken)

	verr := &models.ValidationError{}
	if !req.Status.Valid() || req.Status == models.ReviewPending {
		verr.Add("status", "must be one of: Reviewed, Action Taken, Dismissed")
	}
	if utf8.RuneCountInString(req.ActionTaken) > models.MaxActionTakenLength {
		verr.Add("actionTaken", fmt.Sprintf("cannot exceed %d characters", models.MaxActionTakenLength))
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	return m.store.ReviewSpamReport(ctx, req.ReportID, models.SpamReview{
		Status:      req.Status,
		ReviewerID:  req.ReviewerID,
		ActionTaken: req.ActionTaken,
		At:          m.opts.Now().UTC(),
	})
}

// ListSpamReports pages through reports, newest first. An empty status lists all.
func (m *ModerationService) ListSpamReports(ctx context.Context, status models.ReviewStatus, page, limit int) ([]*models.SpamReport, models.Pagination, error) {
	if status != "" && !status.Valid() {
		return nil, models.Pagination{}, models.NewValidationError("status", "must be one of: Pending, Reviewed, Action Taken, Dismissed")
	}
	p := clampPage(page, limit, AdminPageLimit, m.opts.MaxLimit)

	reports, total, err := m.store.ListSpamReports(ctx, status, p)
	if err != nil {
		return nil, models.Pagination{}, err
	}
	return reports, models.NewPagination(p, total), nil
}
