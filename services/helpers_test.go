package services

import (
	"context"
	"testing"
	"time"

	"civictrack-be/models"
	"civictrack-be/store"

	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC)

func testOptions() Options {
	return Options{Now: func() time.Time { return fixedNow }}
}

type issueOpt func(*models.Issue)

func withCategory(c models.IssueCategory) issueOpt {
	return func(i *models.Issue) { i.Category = c }
}

func withStatus(s models.IssueStatus) issueOpt {
	return func(i *models.Issue) { i.Status = s }
}

func withOwner(id string) issueOpt {
	return func(i *models.Issue) { i.User = id; i.IsAnonymous = id == "" }
}

func withCreatedAt(t time.Time) issueOpt {
	return func(i *models.Issue) { i.CreatedAt = t; i.UpdatedAt = t }
}

func withTitle(title string) issueOpt {
	return func(i *models.Issue) { i.Title = title }
}

func seedIssue(t *testing.T, s store.IssueRepository, lng, lat float64, opts ...issueOpt) *models.Issue {
	t.Helper()
	issue := &models.Issue{
		Title:            "Pothole on main road",
		Description:      "Deep pothole near the junction",
		Category:         models.CategoryRoad,
		Location:         models.NewPoint(lng, lat),
		Status:           models.StatusReported,
		Priority:         models.PriorityMedium,
		IsVisible:        true,
		IsAnonymous:      true,
		LastStatusUpdate: fixedNow,
		CreatedAt:        fixedNow,
		UpdatedAt:        fixedNow,
	}
	for _, opt := range opts {
		opt(issue)
	}
	require.NoError(t, s.CreateIssue(context.Background(), issue))
	return issue
}

func seedUser(t *testing.T, s store.UserRepository, email string) *models.User {
	t.Helper()
	user := &models.User{Name: "Citizen", Email: email, Role: models.RoleUser}
	require.NoError(t, s.CreateUser(context.Background(), user))
	return user
}

func ptr[T any](v T) *T { return &v }
