package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"civictrack-be/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// scanCheckEvery bounds how many records a scan visits between context checks.
const scanCheckEvery = 256

// MemoryStore is an in-process Store. A single mutex serialises every
// mutation so each one is atomic with respect to the others.
type MemoryStore struct {
	mu       sync.RWMutex
	issues   map[primitive.ObjectID]*models.Issue
	activity map[primitive.ObjectID][]*models.ActivityLog
	reports  map[primitive.ObjectID]*models.SpamReport
	users    map[primitive.ObjectID]*models.User
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		issues:   map[primitive.ObjectID]*models.Issue{},
		activity: map[primitive.ObjectID][]*models.ActivityLog{},
		reports:  map[primitive.ObjectID]*models.SpamReport{},
		users:    map[primitive.ObjectID]*models.User{},
		now:      time.Now,
	}
}

func (s *MemoryStore) CreateIssue(ctx context.Context, issue *models.Issue) error {
	if err := ctx.Err(); err != nil {
		return mapError(err)
	}
	if issue.ID.IsZero() {
		issue.ID = primitive.NewObjectID()
	}
	if issue.Images == nil {
		issue.Images = []string{}
	}
	if issue.UpvotedBy == nil {
		issue.UpvotedBy = []string{}
	}
	if issue.SpamVotedBy == nil {
		issue.SpamVotedBy = []string{}
	}
	issue.Distance = nil

	s.mu.Lock()
	defer s.mu.Unlock()
	s.issues[issue.ID] = issue.Clone()
	return nil
}

func (s *MemoryStore) FindIssue(ctx context.Context, id primitive.ObjectID) (*models.Issue, error) {
	if err := ctx.Err(); err != nil {
		return nil, mapError(err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	issue, ok := s.issues[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return issue.Clone(), nil
}

func (s *MemoryStore) IncrementViews(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.mutate(ctx, id, func(issue *models.Issue) error {
		issue.Views++
		return nil
	})
	return err
}

// mutate runs fn on the stored issue under the write lock. The stored record
// is only replaced when fn succeeds.
func (s *MemoryStore) mutate(ctx context.Context, id primitive.ObjectID, fn func(*models.Issue) error) (*models.Issue, error) {
	if err := ctx.Err(); err != nil {
		return nil, mapError(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.issues[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	working := stored.Clone()
	if err := fn(working); err != nil {
		return nil, err
	}
	s.issues[id] = working
	return working.Clone(), nil
}

func (s *MemoryStore) ToggleUpvote(ctx context.Context, id primitive.ObjectID, principalID string) (models.VoteResult, error) {
	var result models.VoteResult
	_, err := s.mutate(ctx, id, func(issue *models.Issue) error {
		if idx := indexOf(issue.UpvotedBy, principalID); idx >= 0 {
			issue.UpvotedBy = append(issue.UpvotedBy[:idx], issue.UpvotedBy[idx+1:]...)
			issue.Upvotes--
		} else {
			issue.UpvotedBy = append(issue.UpvotedBy, principalID)
			issue.Upvotes++
			result.Added = true
		}
		issue.UpdatedAt = s.now()
		result.Upvotes = issue.Upvotes
		return nil
	})
	if err != nil {
		return models.VoteResult{}, err
	}
	return result, nil
}

func (s *MemoryStore) AddSpamVote(ctx context.Context, id primitive.ObjectID, principalID string, threshold int) (*models.Issue, bool, error) {
	crossed := false
	issue, err := s.mutate(ctx, id, func(issue *models.Issue) error {
		if issue.HasSpamVote(principalID) {
			return models.ErrDuplicateSpamReport
		}
		issue.SpamVotedBy = append(issue.SpamVotedBy, principalID)
		issue.SpamVotes++
		if issue.SpamVotes == threshold {
			issue.IsVisible = false
			crossed = true
		}
		issue.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return issue, crossed, nil
}

func (s *MemoryStore) SetVisibility(ctx context.Context, id primitive.ObjectID, visible bool) (*models.Issue, error) {
	return s.mutate(ctx, id, func(issue *models.Issue) error {
		issue.IsVisible = visible
		issue.UpdatedAt = s.now()
		return nil
	})
}

func (s *MemoryStore) UpdateStatus(ctx context.Context, id primitive.ObjectID, from models.IssueStatus, change models.StatusChange) (*models.Issue, error) {
	return s.mutate(ctx, id, func(issue *models.Issue) error {
		if issue.Status != from {
			return models.ErrStatusConflict
		}
		issue.Status = change.To
		issue.LastStatusUpdate = change.At
		issue.UpdatedAt = change.At
		if change.To == models.StatusResolved {
			at := change.At
			issue.ActualResolutionTime = &at
		}
		if change.Priority != nil {
			issue.Priority = *change.Priority
		}
		if change.EstimatedResolutionTime != nil {
			eta := *change.EstimatedResolutionTime
			issue.EstimatedResolutionTime = &eta
		}
		if change.AdminNotes != nil {
			issue.AdminNotes = *change.AdminNotes
		}
		return nil
	})
}

func (s *MemoryStore) DeleteIssue(ctx context.Context, id primitive.ObjectID) (*models.Issue, error) {
	if err := ctx.Err(); err != nil {
		return nil, mapError(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	issue, ok := s.issues[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	delete(s.activity, id)
	for rid, r := range s.reports {
		if r.IssueID == id {
			delete(s.reports, rid)
		}
	}
	delete(s.issues, id)
	return issue.Clone(), nil
}

// scan collects clones of every issue matching filter.
func (s *MemoryStore) scan(ctx context.Context, filter models.IssueFilter, keep func(*models.Issue) bool) ([]*models.Issue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []*models.Issue{}
	visited := 0
	for _, issue := range s.issues {
		visited++
		if visited%scanCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if !matches(issue, filter) {
			continue
		}
		if keep != nil && !keep(issue) {
			continue
		}
		out = append(out, issue.Clone())
	}
	return out, ctx.Err()
}

func paginate[T any](items []T, page models.Page) []T {
	skip := page.Skip()
	if skip >= int64(len(items)) {
		return []T{}
	}
	end := skip + int64(page.Limit)
	if page.Limit <= 0 || end > int64(len(items)) {
		end = int64(len(items))
	}
	return items[skip:end]
}

func (s *MemoryStore) FindIssues(ctx context.Context, filter models.IssueFilter, page models.Page) ([]*models.Issue, error) {
	if err := ctx.Err(); err != nil {
		return nil, mapError(err)
	}
	issues, err := s.scan(ctx, filter, nil)
	if err != nil {
		return nil, mapError(err)
	}
	sort.Slice(issues, func(i, j int) bool {
		if !issues[i].CreatedAt.Equal(issues[j].CreatedAt) {
			return issues[i].CreatedAt.After(issues[j].CreatedAt)
		}
		return issues[i].ID.Hex() > issues[j].ID.Hex()
	})
	return paginate(issues, page), nil
}

func (s *MemoryStore) CountIssues(ctx context.Context, filter models.IssueFilter) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, mapError(err)
	}
	issues, err := s.scan(ctx, filter, nil)
	if err != nil {
		return 0, mapError(err)
	}
	return int64(len(issues)), nil
}

func (s *MemoryStore) near(ctx context.Context, near models.NearQuery, filter models.IssueFilter) ([]*models.Issue, error) {
	if err := ctx.Err(); err != nil {
		return nil, mapError(err)
	}
	issues, err := s.scan(ctx, filter, func(issue *models.Issue) bool {
		d := haversine(near.Latitude, near.Longitude, issue.Location.Latitude(), issue.Location.Longitude())
		return d <= near.RadiusMeters
	})
	if err != nil {
		return nil, mapError(err)
	}
	for _, issue := range issues {
		d := haversine(near.Latitude, near.Longitude, issue.Location.Latitude(), issue.Location.Longitude())
		issue.Distance = &d
	}
	sort.Slice(issues, func(i, j int) bool {
		if *issues[i].Distance != *issues[j].Distance {
			return *issues[i].Distance < *issues[j].Distance
		}
		return issues[i].ID.Hex() < issues[j].ID.Hex()
	})
	return issues, nil
}

func (s *MemoryStore) FindNear(ctx context.Context, near models.NearQuery, filter models.IssueFilter, page models.Page) ([]*models.Issue, error) {
	issues, err := s.near(ctx, near, filter)
	if err != nil {
		return nil, err
	}
	return paginate(issues, page), nil
}

func (s *MemoryStore) CountNear(ctx context.Context, near models.NearQuery, filter models.IssueFilter) (int64, error) {
	issues, err := s.near(ctx, near, filter)
	if err != nil {
		return 0, err
	}
	return int64(len(issues)), nil
}

func (s *MemoryStore) AppendActivity(ctx context.Context, entry *models.ActivityLog) error {
	if err := ctx.Err(); err != nil {
		return mapError(err)
	}
	if entry.ID.IsZero() {
		entry.ID = primitive.NewObjectID()
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *entry
	s.activity[entry.IssueID] = append(s.activity[entry.IssueID], &copied)
	return nil
}

func (s *MemoryStore) ListActivity(ctx context.Context, issueID primitive.ObjectID) ([]*models.ActivityLog, error) {
	if err := ctx.Err(); err != nil {
		return nil, mapError(err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]*models.ActivityLog, 0, len(s.activity[issueID]))
	for _, e := range s.activity[issueID] {
		copied := *e
		entries = append(entries, &copied)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.Before(entries[j].Timestamp)
	})
	return entries, nil
}

func (s *MemoryStore) CreateSpamReport(ctx context.Context, report *models.SpamReport) error {
	if err := ctx.Err(); err != nil {
		return mapError(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.reports {
		if r.IssueID == report.IssueID && r.ReportedBy == report.ReportedBy {
			return models.ErrDuplicateSpamReport
		}
	}
	if report.ID.IsZero() {
		report.ID = primitive.NewObjectID()
	}
	copied := *report
	s.reports[report.ID] = &copied
	return nil
}

func (s *MemoryStore) DeleteSpamReport(ctx context.Context, id primitive.ObjectID) error {
	if err := ctx.Err(); err != nil {
		return mapError(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.reports[id]; !ok {
		return models.ErrNotFound
	}
	delete(s.reports, id)
	return nil
}

func (s *MemoryStore) ReviewSpamReport(ctx context.Context, id primitive.ObjectID, review models.SpamReview) (*models.SpamReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, mapError(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	report, ok := s.reports[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	at := review.At
	report.Status = review.Status
	report.ReviewedBy = review.ReviewerID
	report.ReviewedAt = &at
	report.UpdatedAt = at
	if review.ActionTaken != "" {
		report.ActionTaken = review.ActionTaken
	}
	copied := *report
	return &copied, nil
}

func (s *MemoryStore) ListSpamReports(ctx context.Context, status models.ReviewStatus, page models.Page) ([]*models.SpamReport, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, mapError(err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	reports := []*models.SpamReport{}
	for _, r := range s.reports {
		if status != "" && r.Status != status {
			continue
		}
		copied := *r
		reports = append(reports, &copied)
	}
	sort.Slice(reports, func(i, j int) bool {
		if !reports[i].CreatedAt.Equal(reports[j].CreatedAt) {
			return reports[i].CreatedAt.After(reports[j].CreatedAt)
		}
		return reports[i].ID.Hex() > reports[j].ID.Hex()
	})
	return paginate(reports, page), int64(len(reports)), nil
}

func (s *MemoryStore) CreateUser(ctx context.Context, user *models.User) error {
	if err := ctx.Err(); err != nil {
		return mapError(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, user.Email) {
			return models.ErrDuplicateEmail
		}
	}
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	copied := *user
	s.users[user.ID] = &copied
	return nil
}

func (s *MemoryStore) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, mapError(err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			copied := *u
			return &copied, nil
		}
	}
	return nil, models.ErrNotFound
}

func (s *MemoryStore) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, mapError(err)
	}
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, models.ErrNotFound
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[oid]
	if !ok {
		return nil, models.ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (s *MemoryStore) IncrementUserCounter(ctx context.Context, userID, field string, delta int) error {
	if err := ctx.Err(); err != nil {
		return mapError(err)
	}
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[oid]
	if !ok {
		return nil
	}
	switch field {
	case models.CounterIssuesReported:
		u.IssuesReported += delta
	case models.CounterSpamReports:
		u.SpamReports += delta
	}
	return nil
}

func (s *MemoryStore) SetUserBan(ctx context.Context, id string, ban models.UserBan) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, mapError(err)
	}
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, models.ErrNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[oid]
	if !ok {
		return nil, models.ErrNotFound
	}
	if ban.Banned {
		at := ban.At
		u.IsBanned = true
		u.BanReason = ban.Reason
		u.BannedAt = &at
		u.BannedBy = ban.By
		u.UpdatedAt = at
	} else {
		u.IsBanned = false
		u.BanReason = ""
		u.BannedAt = nil
		u.BannedBy = ""
		u.UpdatedAt = s.now().UTC()
	}
	copied := *u
	copied.Password = ""
	return &copied, nil
}

func (s *MemoryStore) ListUsers(ctx context.Context, filter models.UserFilter, page models.Page) ([]*models.User, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, mapError(err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := []*models.User{}
	for _, u := range s.users {
		if !matchesUser(u, filter) {
			continue
		}
		copied := *u
		copied.Password = ""
		users = append(users, &copied)
	}
	sort.Slice(users, func(i, j int) bool {
		if !users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].CreatedAt.After(users[j].CreatedAt)
		}
		return users[i].ID.Hex() > users[j].ID.Hex()
	})
	return paginate(users, page), int64(len(users)), nil
}

func (s *MemoryStore) ListSpamReportsByReporter(ctx context.Context, reporterID string) ([]*models.SpamReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, mapError(err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	reports := []*models.SpamReport{}
	for _, r := range s.reports {
		if r.ReportedBy != reporterID {
			continue
		}
		copied := *r
		reports = append(reports, &copied)
	}
	sort.Slice(reports, func(i, j int) bool {
		if !reports[i].CreatedAt.Equal(reports[j].CreatedAt) {
			return reports[i].CreatedAt.After(reports[j].CreatedAt)
		}
		return reports[i].ID.Hex() > reports[j].ID.Hex()
	})
	return reports, nil
}

func (s *MemoryStore) Stats(ctx context.Context) (*models.DashboardStats, error) {
	if err := ctx.Err(); err != nil {
		return nil, mapError(err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &models.DashboardStats{
		ByStatus:   map[models.IssueStatus]int64{},
		ByCategory: map[models.IssueCategory]int64{},
		TotalUsers: int64(len(s.users)),
	}
	for _, u := range s.users {
		if u.IsBanned {
			stats.BannedUsers++
		}
	}
	for _, issue := range s.issues {
		stats.TotalIssues++
		if !issue.IsVisible {
			stats.HiddenIssues++
		}
		stats.ByStatus[issue.Status]++
		stats.ByCategory[issue.Category]++
	}
	for _, r := range s.reports {
		if r.Status == models.ReviewPending {
			stats.PendingSpamReports++
		}
	}
	return stats, nil
}

func (s *MemoryStore) Analytics(ctx context.Context) (*models.Analytics, error) {
	if err := ctx.Err(); err != nil {
		return nil, mapError(err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := &models.Analytics{
		ByStatus:      map[models.IssueStatus]int64{},
		ByCategory:    map[models.IssueCategory]int64{},
		MonthlyTrends: []models.MonthlyCount{},
		TopReporters:  []models.ReporterCount{},
	}
	months := map[[2]int]int64{}
	owners := map[string]int64{}
	var resolvedTotal time.Duration
	for _, issue := range s.issues {
		out.ByStatus[issue.Status]++
		out.ByCategory[issue.Category]++
		created := issue.CreatedAt.UTC()
		months[[2]int{created.Year(), int(created.Month())}]++
		if issue.User != "" {
			owners[issue.User]++
		}
		if issue.Status == models.StatusResolved && issue.ActualResolutionTime != nil {
			resolvedTotal += issue.ActualResolutionTime.Sub(issue.CreatedAt)
			out.Resolution.Resolved++
		}
	}

	for k, n := range months {
		out.MonthlyTrends = append(out.MonthlyTrends, models.MonthlyCount{Year: k[0], Month: k[1], Count: n})
	}
	sort.Slice(out.MonthlyTrends, func(i, j int) bool {
		a, b := out.MonthlyTrends[i], out.MonthlyTrends[j]
		if a.Year != b.Year {
			return a.Year < b.Year
		}
		return a.Month < b.Month
	})
	if n := len(out.MonthlyTrends); n > models.MaxTrendMonths {
		out.MonthlyTrends = out.MonthlyTrends[n-models.MaxTrendMonths:]
	}

	for id, n := range owners {
		rc := models.ReporterCount{UserID: id, Count: n}
		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			if u, ok := s.users[oid]; ok {
				rc.Name = u.Name
			}
		}
		out.TopReporters = append(out.TopReporters, rc)
	}
	sort.Slice(out.TopReporters, func(i, j int) bool {
		a, b := out.TopReporters[i], out.TopReporters[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.UserID < b.UserID
	})
	if len(out.TopReporters) > models.MaxTopReporters {
		out.TopReporters = out.TopReporters[:models.MaxTopReporters]
	}

	if out.Resolution.Resolved > 0 {
		out.Resolution.AverageHours = resolvedTotal.Hours() / float64(out.Resolution.Resolved)
	}
	return out, nil
}

func indexOf(set []string, v string) int {
	for i, s := range set {
		if s == v {
			return i
		}
	}
	return -1
}

var _ Store = (*MemoryStore)(nil)
