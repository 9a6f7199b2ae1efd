package services

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"civictrack-be/metrics"
	"civictrack-be/models"
	"civictrack-be/store"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// allowedTransitions is the forward-only lifecycle. Resolved is terminal.
var allowedTransitions = map[models.IssueStatus][]models.IssueStatus{
	models.StatusReported:   {models.StatusInProgress, models.StatusResolved},
	models.StatusInProgress: {models.StatusResolved},
}

// ValidateTransition returns *models.InvalidTransitionError when from -> to is
// not a lifecycle edge. Same-status requests are rejected.
func ValidateTransition(from, to models.IssueStatus) error {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return nil
		}
	}
	return &models.InvalidTransitionError{From: from, To: to}
}

type TransitionRequest struct {
	IssueID             primitive.ObjectID
	To                  models.IssueStatus
	ActorID             string
	Note                string
	Priority            *models.Priority
	EstimatedResolution *time.Time
	AdminNotes          *string
}

func (r TransitionRequest) validate() error {
	verr := &models.ValidationError{}
	if !r.To.Valid() {
		verr.Add("status", "must be one of: Reported, In Progress, Resolved")
	}
	if r.Priority != nil && !r.Priority.Valid() {
		verr.Add("priority", "must be one of: Low, Medium, High, Critical")
	}
	if utf8.RuneCountInString(r.Note) > models.MaxNoteLength {
		verr.Add("note", fmt.Sprintf("cannot exceed %d characters", models.MaxNoteLength))
	}
	if r.AdminNotes != nil && utf8.RuneCountInString(*r.AdminNotes) > models.MaxAdminNotesLength {
		verr.Add("adminNotes", fmt.Sprintf("cannot exceed %d characters", models.MaxAdminNotesLength))
	}
	return verr.OrNil()
}

// LifecycleService applies status transitions and records their history.
type LifecycleService struct {
	issues   store.IssueRepository
	activity store.ActivityRepository
	opts     Options
}

func NewLifecycleService(issues store.IssueRepository, activity store.ActivityRepository, opts Options) *LifecycleService {
	return &LifecycleService{issues: issues, activity: activity, opts: opts.withDefaults()}
}

// Transition moves an issue to req.To. The status write is a compare-and-set
// on the status that was validated, so two racing transitions cannot both
// apply from the same state. The loser gets the transition error computed
// against the state that won, or ErrStatusConflict when that state would
// have allowed the request.
func (l *LifecycleService) Transition(ctx context.Context, req TransitionRequest) (*models.Issue, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	current, err := l.issues.FindIssue(ctx, req.IssueID)
	if err != nil {
		return nil, err
	}
	if err := ValidateTransition(current.Status, req.To); err != nil {
		return nil, err
	}

	change := models.StatusChange{
		To:                      req.To,
		At:                      l.opts.Now().UTC(),
		Priority:                req.Priority,
		EstimatedResolutionTime: req.EstimatedResolution,
		AdminNotes:              req.AdminNotes,
	}
	updated, err := l.issues.UpdateStatus(ctx, req.IssueID, current.Status, change)
	if errors.Is(err, models.ErrStatusConflict) {
		return nil, l.conflict(ctx, req)
	}
	if err != nil {
		return nil, err
	}

	l.record(ctx, current.Status, updated, req, change.At)
	metrics.StatusTransitions.WithLabelValues(string(current.Status), string(req.To)).Inc()
	return updated, nil
}

func (l *LifecycleService) conflict(ctx context.Context, req TransitionRequest) error {
	latest, err := l.issues.FindIssue(ctx, req.IssueID)
	if err != nil {
		return err
	}
	if err := ValidateTransition(latest.Status, req.To); err != nil {
		return err
	}
	return fmt.Errorf("transition %s: %w", req.IssueID.Hex(), models.ErrStatusConflict)
}

// record appends the activity entry for an applied transition. The issue is
// already updated, so failures are logged and never surfaced.
func (l *LifecycleService) record(ctx context.Context, from models.IssueStatus, issue *models.Issue, req TransitionRequest, at time.Time) {
	prev := from
	actor := req.ActorID
	entry := &models.ActivityLog{
		IssueID:        issue.ID,
		Status:         issue.Status,
		PreviousStatus: &prev,
		Note:           req.Note,
		UpdatedBy:      &actor,
		Timestamp:      at,
	}
	if req.Priority != nil {
		entry.Metadata.Priority = *req.Priority
	}
	if req.EstimatedResolution != nil {
		eta := *req.EstimatedResolution
		entry.Metadata.EstimatedResolutionTime = &eta
	}
	if req.AdminNotes != nil {
		entry.Metadata.AdminNotes = *req.AdminNotes
	}

	if err := l.activity.AppendActivity(ctx, entry); err != nil {
		metrics.BestEffortFailures.WithLabelValues("activity_append").Inc()
		l.opts.Logger.Error().Err(err).
			Str("issue_id", issue.ID.Hex()).
			Str("status", string(issue.Status)).
			Msg("failed to append activity log")
	}
}
