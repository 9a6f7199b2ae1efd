package services

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"civictrack-be/models"
	"civictrack-be/store"
)

// UserService serves a citizen's own dashboard and the admin user
// management screens.
type UserService struct {
	store     store.Store
	discovery *DiscoveryService
	opts      Options
}

func NewUserService(s store.Store, discovery *DiscoveryService, opts Options) *UserService {
	return &UserService{store: s, discovery: discovery, opts: opts.withDefaults()}
}

// Stats counts the caller's visible reports by outcome. Pending covers every
// status that is not yet Resolved.
func (u *UserService) Stats(ctx context.Context, userID string) (*models.UserStats, error) {
	user, err := u.store.FindUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	visible := true
	count := func(status models.IssueStatus) (int64, error) {
		return u.store.CountIssues(ctx, models.IssueFilter{Owner: userID, Status: status, Visible: &visible})
	}

	stats := &models.UserStats{SpamReports: user.SpamReports}
	if stats.TotalIssues, err = count(""); err != nil {
		return nil, err
	}
	if stats.ResolvedIssues, err = count(models.StatusResolved); err != nil {
		return nil, err
	}
	stats.PendingIssues = stats.TotalIssues - stats.ResolvedIssues
	return stats, nil
}

// Issues pages through the caller's own visible issues.
func (u *UserService) Issues(ctx context.Context, userID string, req SearchRequest) (*models.IssuePage, error) {
	visible := true
	req.Filter.Owner = userID
	req.Filter.Visible = &visible
	req.Latitude, req.Longitude, req.Radius = nil, nil, nil
	return u.discovery.Search(ctx, req)
}

// SpamReports lists the reports the caller has filed.
func (u *UserService) SpamReports(ctx context.Context, userID string) ([]*models.SpamReport, error) {
	return u.store.ListSpamReportsByReporter(ctx, userID)
}

// List pages through all users for the admin view.
func (u *UserService) List(ctx context.Context, filter models.UserFilter, page, limit int) ([]*models.User, models.Pagination, error) {
	p := clampPage(page, limit, AdminPageLimit, u.opts.MaxLimit)
	users, total, err := u.store.ListUsers(ctx, filter, p)
	if err != nil {
		return nil, models.Pagination{}, err
	}
	return users, models.NewPagination(p, total), nil
}

// Ban blocks a user from every authenticated route. Admins cannot ban
// themselves or other admins.
func (u *UserService) Ban(ctx context.Context, admin models.Principal, userID, reason string) (*models.User, error) {
	reason = strings.TrimSpace(reason)

	verr := &models.ValidationError{}
	if reason == "" {
		verr.Add("reason", "is required")
	}
	if utf8.RuneCountInString(reason) > models.MaxBanReasonLength {
		verr.Add("reason", fmt.Sprintf("cannot exceed %d characters", models.MaxBanReasonLength))
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	target, err := u.store.FindUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if target.IsAdmin() || target.ID.Hex() == admin.ID {
		return nil, models.ErrForbidden
	}

	user, err := u.store.SetUserBan(ctx, userID, models.UserBan{
		Banned: true,
		Reason: reason,
		By:     admin.ID,
		At:     u.opts.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}
	u.opts.Logger.Info().
		Str("user_id", userID).
		Str("admin_id", admin.ID).
		Msg("user banned")
	return user, nil
}

func (u *UserService) Unban(ctx context.Context, admin models.Principal, userID string) (*models.User, error) {
	user, err := u.store.SetUserBan(ctx, userID, models.UserBan{})
	if err != nil {
		return nil, err
	}
	u.opts.Logger.Info().
		Str("user_id", userID).
		Str("admin_id", admin.ID).
		Msg("user unbanned")
	return user, nil
}

func (u *UserService) Analytics(ctx context.Context) (*models.Analytics, error) {
	return u.store.Analytics(ctx)
}
