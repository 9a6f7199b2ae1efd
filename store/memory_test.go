package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"civictrack-be/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newIssue(lng, lat float64, createdAt time.Time) *models.Issue {
	return &models.Issue{
		Title:       "Pothole on main road",
		Description: "Deep pothole near the junction",
		Category:    models.CategoryRoad,
		Location:    models.NewPoint(lng, lat),
		Status:      models.StatusReported,
		Priority:    models.PriorityMedium,
		IsVisible:   true,
		User:        "owner-1",
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	issue := newIssue(72.5714, 23.0225, time.Now())
	require.NoError(t, s.CreateIssue(ctx, issue))

	got, err := s.FindIssue(ctx, issue.ID)
	require.NoError(t, err)
	got.Title = "mutated"
	got.UpvotedBy = append(got.UpvotedBy, "x")

	again, err := s.FindIssue(ctx, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, "Pothole on main road", again.Title)
	assert.Empty(t, again.UpvotedBy)
}

func TestMemoryStoreToggleUpvote(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	issue := newIssue(72.5714, 23.0225, time.Now())
	require.NoError(t, s.CreateIssue(ctx, issue))

	res, err := s.ToggleUpvote(ctx, issue.ID, "p1")
	require.NoError(t, err)
	assert.Equal(t, models.VoteResult{Added: true, Upvotes: 1}, res)

	res, err = s.ToggleUpvote(ctx, issue.ID, "p1")
	require.NoError(t, err)
	assert.Equal(t, models.VoteResult{Added: false, Upvotes: 0}, res)

	_, err = s.ToggleUpvote(ctx, primitive.NewObjectID(), "p1")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestMemoryStoreConcurrentToggles(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	issue := newIssue(72.5714, 23.0225, time.Now())
	require.NoError(t, s.CreateIssue(ctx, issue))

	principals := []string{"a", "b", "c", "d", "e"}
	const rounds = 7

	var wg sync.WaitGroup
	for _, p := range principals {
		wg.Add(1)
		go func(p string) {
			defer wg.Done()
			for i := 0; i < rounds; i++ {
				_, err := s.ToggleUpvote(ctx, issue.ID, p)
				assert.NoError(t, err)
			}
		}(p)
	}
	wg.Wait()

	got, err := s.FindIssue(ctx, issue.ID)
	require.NoError(t, err)
	// An odd number of toggles leaves every principal in the set exactly once.
	assert.Equal(t, len(principals), got.Upvotes)
	assert.ElementsMatch(t, principals, got.UpvotedBy)
}

func TestMemoryStoreAddSpamVote(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	issue := newIssue(72.5714, 23.0225, time.Now())
	require.NoError(t, s.CreateIssue(ctx, issue))

	got, crossed, err := s.AddSpamVote(ctx, issue.ID, "p1", 3)
	require.NoError(t, err)
	assert.Equal(t, 1, got.SpamVotes)
	assert.False(t, crossed)

	_, _, err = s.AddSpamVote(ctx, issue.ID, "p1", 3)
	assert.ErrorIs(t, err, models.ErrDuplicateSpamReport)

	got, err = s.FindIssue(ctx, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.SpamVotes)
	assert.Len(t, got.SpamVotedBy, 1)
}

func TestMemoryStoreAddSpamVoteHidesAtThreshold(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	issue := newIssue(72.5714, 23.0225, time.Now())
	require.NoError(t, s.CreateIssue(ctx, issue))

	var crossings int
	for _, p := range []string{"p1", "p2", "p3", "p4"} {
		got, crossed, err := s.AddSpamVote(ctx, issue.ID, p, 3)
		require.NoError(t, err)
		if crossed {
			crossings++
			assert.Equal(t, 3, got.SpamVotes)
		}
		assert.Equal(t, got.SpamVotes < 3, got.IsVisible, "votes=%d", got.SpamVotes)
	}
	assert.Equal(t, 1, crossings)

	// An admin override is not undone by later votes above the threshold.
	_, err := s.SetVisibility(ctx, issue.ID, true)
	require.NoError(t, err)
	got, crossed, err := s.AddSpamVote(ctx, issue.ID, "p5", 3)
	require.NoError(t, err)
	assert.False(t, crossed)
	assert.True(t, got.IsVisible)
}

func TestMemoryStoreUpdateStatusCompareAndSet(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	issue := newIssue(72.5714, 23.0225, time.Now())
	require.NoError(t, s.CreateIssue(ctx, issue))

	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	got, err := s.UpdateStatus(ctx, issue.ID, models.StatusReported, models.StatusChange{To: models.StatusResolved, At: at})
	require.NoError(t, err)
	assert.Equal(t, models.StatusResolved, got.Status)
	require.NotNil(t, got.ActualResolutionTime)
	assert.True(t, got.ActualResolutionTime.Equal(at))

	_, err = s.UpdateStatus(ctx, issue.ID, models.StatusReported, models.StatusChange{To: models.StatusInProgress, At: at})
	assert.ErrorIs(t, err, models.ErrStatusConflict)
}

func TestMemoryStoreDeleteCascades(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	issue := newIssue(72.5714, 23.0225, time.Now())
	other := newIssue(72.5714, 23.0225, time.Now())
	require.NoError(t, s.CreateIssue(ctx, issue))
	require.NoError(t, s.CreateIssue(ctx, other))

	require.NoError(t, s.AppendActivity(ctx, &models.ActivityLog{IssueID: issue.ID, Status: models.StatusReported}))
	require.NoError(t, s.CreateSpamReport(ctx, &models.SpamReport{IssueID: issue.ID, ReportedBy: "p1", Status: models.ReviewPending}))
	require.NoError(t, s.CreateSpamReport(ctx, &models.SpamReport{IssueID: other.ID, ReportedBy: "p1", Status: models.ReviewPending}))

	_, err := s.DeleteIssue(ctx, issue.ID)
	require.NoError(t, err)

	_, err = s.FindIssue(ctx, issue.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)

	entries, err := s.ListActivity(ctx, issue.ID)
	require.NoError(t, err)
	assert.Empty(t, entries)

	reports, total, err := s.ListSpamReports(ctx, "", models.Page{Number: 1, Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, other.ID, reports[0].IssueID)

	_, err = s.DeleteIssue(ctx, issue.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestMemoryStoreFindNearOrdersByDistance(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	now := time.Now()

	far := newIssue(72.60, 23.0225, now)
	near := newIssue(72.5720, 23.0225, now)
	mid := newIssue(72.58, 23.0225, now)
	outside := newIssue(73.50, 23.0225, now)
	for _, issue := range []*models.Issue{far, near, mid, outside} {
		require.NoError(t, s.CreateIssue(ctx, issue))
	}

	q := models.NearQuery{Latitude: 23.0225, Longitude: 72.5714, RadiusMeters: 5000}
	got, err := s.FindNear(ctx, q, models.IssueFilter{}, models.Page{Number: 1, Limit: 10})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []primitive.ObjectID{near.ID, mid.ID, far.ID}, []primitive.ObjectID{got[0].ID, got[1].ID, got[2].ID})
	for i := 1; i < len(got); i++ {
		assert.LessOrEqual(t, *got[i-1].Distance, *got[i].Distance)
	}

	total, err := s.CountNear(ctx, q, models.IssueFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
}

func TestMemoryStoreFindIssuesNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	var ids []primitive.ObjectID
	for i := 0; i < 5; i++ {
		issue := newIssue(72.5714, 23.0225, base.Add(time.Duration(i)*time.Hour))
		require.NoError(t, s.CreateIssue(ctx, issue))
		ids = append(ids, issue.ID)
	}

	page1, err := s.FindIssues(ctx, models.IssueFilter{}, models.Page{Number: 1, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page1, 2)
	assert.Equal(t, ids[4], page1[0].ID)
	assert.Equal(t, ids[3], page1[1].ID)

	page3, err := s.FindIssues(ctx, models.IssueFilter{}, models.Page{Number: 3, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page3, 1)
	assert.Equal(t, ids[0], page3[0].ID)

	empty, err := s.FindIssues(ctx, models.IssueFilter{}, models.Page{Number: 9, Limit: 2})
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestMemoryStoreExpiredContext(t *testing.T) {
	s := NewMemoryStore()
	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	_, err := s.FindIssues(ctx, models.IssueFilter{}, models.Page{Number: 1, Limit: 10})
	assert.ErrorIs(t, err, models.ErrTimeout)
}

func TestMemoryStoreUserCounters(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	user := &models.User{Name: "Asha", Email: "asha@example.com"}
	require.NoError(t, s.CreateUser(ctx, user))
	assert.ErrorIs(t, s.CreateUser(ctx, &models.User{Email: "ASHA@example.com"}), models.ErrDuplicateEmail)

	require.NoError(t, s.IncrementUserCounter(ctx, user.ID.Hex(), models.CounterIssuesReported, 1))
	require.NoError(t, s.IncrementUserCounter(ctx, user.ID.Hex(), models.CounterSpamReports, 1))
	require.NoError(t, s.IncrementUserCounter(ctx, "not-an-object-id", models.CounterSpamReports, 1))

	got, err := s.FindUserByID(ctx, user.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, 1, got.IssuesReported)
	assert.Equal(t, 1, got.SpamReports)
}

func TestMemoryStoreUserBans(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	older := &models.User{Name: "Asha", Email: "asha@example.com", Password: "hash", CreatedAt: base}
	newer := &models.User{Name: "Ravi", Email: "ravi@example.com", CreatedAt: base.Add(time.Hour)}
	require.NoError(t, s.CreateUser(ctx, older))
	require.NoError(t, s.CreateUser(ctx, newer))

	banned, err := s.SetUserBan(ctx, older.ID.Hex(), models.UserBan{Banned: true, Reason: "Spam", By: "admin-1", At: base})
	require.NoError(t, err)
	assert.True(t, banned.IsBanned)
	assert.Empty(t, banned.Password)
	require.NotNil(t, banned.BannedAt)

	users, total, err := s.ListUsers(ctx, models.UserFilter{}, models.Page{Number: 1, Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Equal(t, newer.ID, users[0].ID)

	yes := true
	users, total, err = s.ListUsers(ctx, models.UserFilter{Banned: &yes, Search: "ASHA"}, models.Page{Number: 1, Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, older.ID, users[0].ID)

	lifted, err := s.SetUserBan(ctx, older.ID.Hex(), models.UserBan{})
	require.NoError(t, err)
	assert.False(t, lifted.IsBanned)
	assert.Empty(t, lifted.BanReason)
	assert.Nil(t, lifted.BannedAt)

	_, err = s.SetUserBan(ctx, primitive.NewObjectID().Hex(), models.UserBan{Banned: true})
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestMemoryStoreAnalytics(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	reporter := &models.User{Name: "Asha", Email: "asha@example.com"}
	require.NoError(t, s.CreateUser(ctx, reporter))

	start := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	for m := 0; m < 14; m++ {
		issue := newIssue(72.57, 23.02, start.AddDate(0, m, 0))
		issue.User = reporter.ID.Hex()
		if m == 13 {
			resolvedAt := issue.CreatedAt.Add(48 * time.Hour)
			issue.Status = models.StatusResolved
			issue.ActualResolutionTime = &resolvedAt
		}
		require.NoError(t, s.CreateIssue(ctx, issue))
	}
	anonymous := newIssue(72.57, 23.02, start)
	anonymous.User = ""
	require.NoError(t, s.CreateIssue(ctx, anonymous))

	got, err := s.Analytics(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 15, got.ByCategory[models.CategoryRoad])
	assert.EqualValues(t, 1, got.ByStatus[models.StatusResolved])

	require.Len(t, got.MonthlyTrends, models.MaxTrendMonths)
	assert.Equal(t, models.MonthlyCount{Year: 2025, Month: 3, Count: 1}, got.MonthlyTrends[0])
	assert.Equal(t, models.MonthlyCount{Year: 2026, Month: 2, Count: 1}, got.MonthlyTrends[11])

	require.Len(t, got.TopReporters, 1)
	assert.Equal(t, "Asha", got.TopReporters[0].Name)
	assert.EqualValues(t, 14, got.TopReporters[0].Count)

	assert.EqualValues(t, 1, got.Resolution.Resolved)
	assert.InDelta(t, 48.0, got.Resolution.AverageHours, 0.001)
}

func TestMemoryStoreSpamReportsByReporter(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	for i, who := range []string{"p1", "p2", "p1"} {
		require.NoError(t, s.CreateSpamReport(ctx, &models.SpamReport{
			IssueID:    primitive.NewObjectID(),
			ReportedBy: who,
			Reason:     models.ReasonSpam,
			Status:     models.ReviewPending,
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
		}))
	}

	reports, err := s.ListSpamReportsByReporter(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.True(t, reports[0].CreatedAt.After(reports[1].CreatedAt))
}
