package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"civictrack-be/models"
	"civictrack-be/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestSpamThresholdHidesOnce(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	svc := NewModerationService(s, testOptions())

	owner := seedUser(t, s, "owner@example.com")
	issue := seedIssue(t, s, 72.5714, 23.0225, withOwner(owner.ID.Hex()))

	for i, reporter := range []string{"r1", "r2"} {
		res, err := svc.ReportSpam(ctx, issue.ID, reporter, models.ReasonSpam, "")
		require.NoError(t, err)
		assert.Equal(t, i+1, res.SpamVotes)
		assert.False(t, res.Hidden)
	}
	got, err := s.FindIssue(ctx, issue.ID)
	require.NoError(t, err)
	assert.True(t, got.IsVisible, "still visible one vote below the threshold")

	res, err := svc.ReportSpam(ctx, issue.ID, "r3", models.ReasonFakeReport, "not a real pothole")
	require.NoError(t, err)
	assert.Equal(t, 3, res.SpamVotes)
	assert.True(t, res.Hidden)

	res, err = svc.ReportSpam(ctx, issue.ID, "r4", models.ReasonOther, "")
	require.NoError(t, err)
	assert.Equal(t, 4, res.SpamVotes)
	assert.True(t, res.Hidden)

	got, err = s.FindIssue(ctx, issue.ID)
	require.NoError(t, err)
	assert.False(t, got.IsVisible)
	assert.Equal(t, 4, got.SpamVotes)
	assert.Len(t, got.SpamVotedBy, 4)

	user, err := s.FindUserByID(ctx, owner.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, 1, user.SpamReports)
}

func TestAdminOverrideIsNotReverted(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	svc := NewModerationService(s, testOptions())
	issue := seedIssue(t, s, 72.5714, 23.0225)

	for _, reporter := range []string{"r1", "r2", "r3"} {
		_, err := svc.ReportSpam(ctx, issue.ID, reporter, models.ReasonSpam, "")
		require.NoError(t, err)
	}

	shown, err := svc.SetVisibility(ctx, issue.ID, true)
	require.NoError(t, err)
	assert.True(t, shown.IsVisible)

	// A later report is above, not across, the threshold.
	res, err := svc.ReportSpam(ctx, issue.ID, "r4", models.ReasonSpam, "")
	require.NoError(t, err)
	assert.False(t, res.Hidden)

	got, err := s.FindIssue(ctx, issue.ID)
	require.NoError(t, err)
	assert.True(t, got.IsVisible)
}

// failingWritesStore fails every write other than the vote itself.
type failingWritesStore struct {
	*store.MemoryStore
}

func (f failingWritesStore) SetVisibility(context.Context, primitive.ObjectID, bool) (*models.Issue, error) {
	return nil, errors.New("transient write error")
}

func (f failingWritesStore) IncrementUserCounter(context.Context, string, string, int) error {
	return errors.New("transient write error")
}

func TestThresholdHideSurvivesFailingSideWrites(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	svc := NewModerationService(failingWritesStore{s}, testOptions())
	owner := seedUser(t, s, "owner@example.com")
	issue := seedIssue(t, s, 72.5714, 23.0225, withOwner(owner.ID.Hex()))

	var last *SpamResult
	for _, reporter := range []string{"r1", "r2", "r3", "r4"} {
		res, err := svc.ReportSpam(ctx, issue.ID, reporter, models.ReasonSpam, "")
		require.NoError(t, err, reporter)
		last = res
	}
	assert.True(t, last.Hidden)

	got, err := s.FindIssue(ctx, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, got.SpamVotes)
	assert.False(t, got.IsVisible, "issue above threshold still visible")
}

func TestDuplicateSpamReport(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	svc := NewModerationService(s, testOptions())
	issue := seedIssue(t, s, 72.5714, 23.0225)

	_, err := svc.ReportSpam(ctx, issue.ID, "r1", models.ReasonSpam, "")
	require.NoError(t, err)

	_, err = svc.ReportSpam(ctx, issue.ID, "r1", models.ReasonDuplicate, "again")
	assert.ErrorIs(t, err, models.ErrDuplicateSpamReport)

	got, err := s.FindIssue(ctx, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.SpamVotes)

	_, total, err := s.ListSpamReports(ctx, "", models.Page{Number: 1, Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
}

func TestReportSpamValidation(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	svc := NewModerationService(s, testOptions())
	issue := seedIssue(t, s, 72.5714, 23.0225)

	_, err := svc.ReportSpam(ctx, issue.ID, "r1", "Boring", strings.Repeat("x", models.MaxSpamDescriptionLength+1))
	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.True(t, verr.Has("reason"))
	assert.True(t, verr.Has("description"))

	_, err = svc.ReportSpam(ctx, primitive.NewObjectID(), "r1", models.ReasonSpam, "")
	assert.ErrorIs(t, err, models.ErrNotFound)

	got, err := s.FindIssue(ctx, issue.ID)
	require.NoError(t, err)
	assert.Zero(t, got.SpamVotes)
}

func TestConcurrentSpamReportsCrossOnce(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	svc := NewModerationService(s, testOptions())

	owner := seedUser(t, s, "owner@example.com")
	issue := seedIssue(t, s, 72.5714, 23.0225, withOwner(owner.ID.Hex()))

	const reporters = 10
	var wg sync.WaitGroup
	for i := 0; i < reporters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.ReportSpam(ctx, issue.ID, fmt.Sprintf("reporter-%d", i), models.ReasonSpam, "")
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	got, err := s.FindIssue(ctx, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, reporters, got.SpamVotes)
	assert.Len(t, got.SpamVotedBy, reporters)
	assert.False(t, got.IsVisible)

	user, err := s.FindUserByID(ctx, owner.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, 1, user.SpamReports)
}

func TestReviewSpamReport(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	svc := NewModerationService(s, testOptions())
	issue := seedIssue(t, s, 72.5714, 23.0225)

	_, err := svc.ReportSpam(ctx, issue.ID, "r1", models.ReasonSpam, "")
	require.NoError(t, err)

	reports, meta, err := svc.ListSpamReports(ctx, models.ReviewPending, 1, 0)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.EqualValues(t, 1, meta.TotalItems)

	_, err = svc.ReviewSpamReport(ctx, ReviewRequest{ReportID: reports[0].ID, Status: models.ReviewPending})
	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)

	reviewed, err := svc.ReviewSpamReport(ctx, ReviewRequest{
		ReportID:    reports[0].ID,
		Status:      models.ReviewDismissed,
		ReviewerID:  "admin-1",
		ActionTaken: "Legitimate report",
	})
	require.NoError(t, err)
	assert.Equal(t, models.ReviewDismissed, reviewed.Status)
	assert.Equal(t, "admin-1", reviewed.ReviewedBy)
	require.NotNil(t, reviewed.ReviewedAt)

	got, err := s.FindIssue(ctx, issue.ID)
	require.NoError(t, err)
	assert.True(t, got.IsVisible, "review does not touch visibility")

	_, err = svc.ReviewSpamReport(ctx, ReviewRequest{ReportID: primitive.NewObjectID(), Status: models.ReviewReviewed})
	assert.ErrorIs(t, err, models.ErrNotFound)
}
