// Package store persists issues, their activity history, spam reports and
// users. Every single-issue mutation is one atomic conditional update.
package store

import (
	"context"

	"civictrack-be/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type IssueRepository interface {
	CreateIssue(ctx context.Context, issue *models.Issue) error
	FindIssue(ctx context.Context, id primitive.ObjectID) (*models.Issue, error)
	IncrementViews(ctx context.Context, id primitive.ObjectID) error
	// ToggleUpvote adds principalID to the upvote set when absent and removes
	// it when present, keeping upvotes equal to the set size.
	ToggleUpvote(ctx context.Context, id primitive.ObjectID, principalID string) (models.VoteResult, error)
	// AddSpamVote adds principalID to the spam set and returns the updated
	// issue. The vote that brings spamVotes to threshold also hides the issue
	// in the same write and reports crossed. ErrDuplicateSpamReport when
	// already a member.
	AddSpamVote(ctx context.Context, id primitive.ObjectID, principalID string, threshold int) (issue *models.Issue, crossed bool, err error)
	SetVisibility(ctx context.Context, id primitive.ObjectID, visible bool) (*models.Issue, error)
	// UpdateStatus applies change only while the stored status still equals
	// from. ErrStatusConflict when it moved underneath the caller.
	UpdateStatus(ctx context.Context, id primitive.ObjectID, from models.IssueStatus, change models.StatusChange) (*models.Issue, error)
	// DeleteIssue removes the issue with its activity log and spam reports.
	DeleteIssue(ctx context.Context, id primitive.ObjectID) (*models.Issue, error)

	FindIssues(ctx context.Context, filter models.IssueFilter, page models.Page) ([]*models.Issue, error)
	CountIssues(ctx context.Context, filter models.IssueFilter) (int64, error)
	FindNear(ctx context.Context, near models.NearQuery, filter models.IssueFilter, page models.Page) ([]*models.Issue, error)
	CountNear(ctx context.Context, near models.NearQuery, filter models.IssueFilter) (int64, error)
}

type ActivityRepository interface {
	AppendActivity(ctx context.Context, entry *models.ActivityLog) error
	// ListActivity returns entries oldest first.
	ListActivity(ctx context.Context, issueID primitive.ObjectID) ([]*models.ActivityLog, error)
}

type SpamReportRepository interface {
	CreateSpamReport(ctx context.Context, report *models.SpamReport) error
	DeleteSpamReport(ctx context.Context, id primitive.ObjectID) error
	ReviewSpamReport(ctx context.Context, id primitive.ObjectID, review models.SpamReview) (*models.SpamReport, error)
	ListSpamReports(ctx context.Context, status models.ReviewStatus, page models.Page) ([]*models.SpamReport, int64, error)
	// ListSpamReportsByReporter returns the reporter's reports newest first.
	ListSpamReportsByReporter(ctx context.Context, reporterID string) ([]*models.SpamReport, error)
}

type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	FindUserByID(ctx context.Context, id string) (*models.User, error)
	// IncrementUserCounter is a no-op for ids that match no user.
	IncrementUserCounter(ctx context.Context, userID, field string, delta int) error
	SetUserBan(ctx context.Context, id string, ban models.UserBan) (*models.User, error)
	// ListUsers returns users newest first.
	ListUsers(ctx context.Context, filter models.UserFilter, page models.Page) ([]*models.User, int64, error)
}

type Store interface {
	IssueRepository
	ActivityRepository
	SpamReportRepository
	UserRepository
	Stats(ctx context.Context) (*models.DashboardStats, error)
	Analytics(ctx context.Context) (*models.Analytics, error)
}
