package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"civictrack-be/geocode"
	"civictrack-be/mocks"
	"civictrack-be/models"
	"civictrack-be/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/mock/gomock"
)

var (
	pngBytes  = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")
	jpegBytes = []byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00\x01\x01\x00\x00\x01\x00\x01\x00\x00")
)

func validDraft(owner string) models.IssueDraft {
	return models.IssueDraft{
		Title:       "  Pothole on main road ",
		Description: "Deep pothole near the junction",
		Category:    models.CategoryRoad,
		Latitude:    ptr(23.0225),
		Longitude:   ptr(72.5714),
		OwnerID:     owner,
		IsAnonymous: owner == "",
	}
}

func TestCreateIssue(t *testing.T) {
	ctrl := gomock.NewController(t)
	images := mocks.NewMockImageStore(ctrl)
	geocoder := mocks.NewMockGeocoder(ctrl)

	s := store.NewMemoryStore()
	owner := seedUser(t, s, "owner@example.com")
	svc := NewIssueService(s, images, geocoder, testOptions())

	draft := validDraft(owner.ID.Hex())
	draft.Images = []models.ImageUpload{{Filename: "a.png", Data: pngBytes}, {Filename: "b.jpg", Data: jpegBytes}}

	images.EXPECT().Store(gomock.Any(), "a.png", pngBytes).Return("/media/a", nil)
	images.EXPECT().Store(gomock.Any(), "b.jpg", jpegBytes).Return("/media/b", nil)
	geocoder.EXPECT().Resolve(gomock.Any(), 23.0225, 72.5714).Return("MG Road, Ahmedabad", nil)

	issue, err := svc.Create(context.Background(), draft)
	require.NoError(t, err)
	assert.Equal(t, "Pothole on main road", issue.Title)
	assert.Equal(t, models.StatusReported, issue.Status)
	assert.Equal(t, models.PriorityMedium, issue.Priority)
	assert.True(t, issue.IsVisible)
	assert.Equal(t, []float64{72.5714, 23.0225}, issue.Location.Coordinates)
	assert.Equal(t, "MG Road, Ahmedabad", issue.Address)
	assert.Equal(t, []string{"/media/a", "/media/b"}, issue.Images)

	user, err := s.FindUserByID(context.Background(), owner.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, 1, user.IssuesReported)

	entries, err := s.ListActivity(context.Background(), issue.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, models.CreationNote, entries[0].Note)
	assert.Nil(t, entries[0].PreviousStatus)
}

func TestCreateIssueGeocoderFallback(t *testing.T) {
	ctrl := gomock.NewController(t)
	geocoder := mocks.NewMockGeocoder(ctrl)
	svc := NewIssueService(store.NewMemoryStore(), mocks.NewMockImageStore(ctrl), geocoder, testOptions())

	geocoder.EXPECT().Resolve(gomock.Any(), gomock.Any(), gomock.Any()).Return("", errors.New("geocoder down"))

	issue, err := svc.Create(context.Background(), validDraft(""))
	require.NoError(t, err)
	assert.Equal(t, geocode.Placeholder(23.0225, 72.5714), issue.Address)
	assert.True(t, issue.IsAnonymous)
	assert.Empty(t, issue.User)
}

func TestCreateIssueKeepsGivenAddress(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := NewIssueService(store.NewMemoryStore(), mocks.NewMockImageStore(ctrl), mocks.NewMockGeocoder(ctrl), testOptions())

	draft := validDraft("")
	draft.Address = "Near the bus stop"
	issue, err := svc.Create(context.Background(), draft)
	require.NoError(t, err)
	assert.Equal(t, "Near the bus stop", issue.Address)
}

func TestCreateIssueUploadFailureUnwinds(t *testing.T) {
	ctrl := gomock.NewController(t)
	images := mocks.NewMockImageStore(ctrl)
	s := store.NewMemoryStore()
	svc := NewIssueService(s, images, mocks.NewMockGeocoder(ctrl), testOptions())

	draft := validDraft("")
	draft.Images = []models.ImageUpload{
		{Filename: "a.png", Data: pngBytes},
		{Filename: "b.png", Data: pngBytes},
		{Filename: "c.png", Data: pngBytes},
	}

	gomock.InOrder(
		images.EXPECT().Store(gomock.Any(), "a.png", gomock.Any()).Return("/media/a", nil),
		images.EXPECT().Store(gomock.Any(), "b.png", gomock.Any()).Return("/media/b", nil),
		images.EXPECT().Store(gomock.Any(), "c.png", gomock.Any()).Return("", errors.New("bucket unavailable")),
	)
	images.EXPECT().Delete(gomock.Any(), "/media/a").Return(nil)
	images.EXPECT().Delete(gomock.Any(), "/media/b").Return(nil)

	_, err := svc.Create(context.Background(), draft)
	assert.ErrorIs(t, err, models.ErrUploadFailed)

	n, err := s.CountIssues(context.Background(), models.IssueFilter{})
	require.NoError(t, err)
	assert.Zero(t, n)
}

type failingCreateStore struct {
	*store.MemoryStore
}

func (failingCreateStore) CreateIssue(context.Context, *models.Issue) error {
	return errors.New("insert failed")
}

func TestCreateIssueInsertFailureUnwindsImages(t *testing.T) {
	ctrl := gomock.NewController(t)
	images := mocks.NewMockImageStore(ctrl)
	svc := NewIssueService(failingCreateStore{store.NewMemoryStore()}, images, mocks.NewMockGeocoder(ctrl), testOptions())

	draft := validDraft("")
	draft.Address = "Somewhere"
	draft.Images = []models.ImageUpload{{Filename: "a.png", Data: pngBytes}}

	images.EXPECT().Store(gomock.Any(), "a.png", gomock.Any()).Return("/media/a", nil)
	images.EXPECT().Delete(gomock.Any(), "/media/a").Return(nil)

	_, err := svc.Create(context.Background(), draft)
	assert.Error(t, err)
}

func TestCreateIssueValidation(t *testing.T) {
	ctrl := gomock.NewController(t)
	s := store.NewMemoryStore()
	// No collaborator calls are expected: validation happens before any side effect.
	svc := NewIssueService(s, mocks.NewMockImageStore(ctrl), mocks.NewMockGeocoder(ctrl), testOptions())

	draft := models.IssueDraft{
		Title:       "Hole",
		Description: "short",
		Category:    "Parks",
		Latitude:    ptr(95.0),
		Address:     strings.Repeat("a", models.MaxAddressLength+1),
		OwnerID:     "u1",
		IsAnonymous: true,
		Images: []models.ImageUpload{
			{Filename: "a.gif", Data: []byte("GIF89a....")},
			{Filename: "b.png", Data: pngBytes},
			{Filename: "c.png", Data: pngBytes},
			{Filename: "d.png", Data: pngBytes},
			{Filename: "e.png", Data: pngBytes},
			{Filename: "f.png", Data: pngBytes},
		},
	}

	_, err := svc.Create(context.Background(), draft)
	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)
	for _, field := range []string{"title", "description", "category", "latitude", "longitude", "address", "user", "images", "images[0]"} {
		assert.True(t, verr.Has(field), field)
	}

	n, err := s.CountIssues(context.Background(), models.IssueFilter{})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestGetIssueCountsViews(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	svc := NewIssueService(s, nil, nil, testOptions())
	issue := seedIssue(t, s, 72.5714, 23.0225)

	got, err := svc.Get(ctx, issue.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, got.Views)

	got, err = svc.Get(ctx, issue.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, got.Views)

	_, err = svc.Get(ctx, primitive.NewObjectID())
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestToggleUpvoteIsSelfInverse(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	svc := NewIssueService(s, nil, nil, testOptions())
	issue := seedIssue(t, s, 72.5714, 23.0225)

	_, err := svc.ToggleUpvote(ctx, issue.ID, "p1")
	require.NoError(t, err)
	before, err := s.FindIssue(ctx, issue.ID)
	require.NoError(t, err)

	first, err := svc.ToggleUpvote(ctx, issue.ID, "p2")
	require.NoError(t, err)
	assert.True(t, first.Added)
	assert.Equal(t, 2, first.Upvotes)

	second, err := svc.ToggleUpvote(ctx, issue.ID, "p2")
	require.NoError(t, err)
	assert.False(t, second.Added)

	after, err := s.FindIssue(ctx, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, before.Upvotes, after.Upvotes)
	assert.Equal(t, before.UpvotedBy, after.UpvotedBy)

	_, err = svc.ToggleUpvote(ctx, issue.ID, "")
	assert.ErrorIs(t, err, models.ErrForbidden)
}

func TestDeleteIssue(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	images := mocks.NewMockImageStore(ctrl)
	s := store.NewMemoryStore()
	svc := NewIssueService(s, images, nil, testOptions())

	owner := seedUser(t, s, "owner@example.com")
	require.NoError(t, s.IncrementUserCounter(ctx, owner.ID.Hex(), models.CounterIssuesReported, 1))
	issue := seedIssue(t, s, 72.5714, 23.0225, withOwner(owner.ID.Hex()), func(i *models.Issue) {
		i.Images = []string{"/media/a"}
	})

	err := svc.Delete(ctx, issue.ID, models.Principal{ID: "someone-else"})
	assert.ErrorIs(t, err, models.ErrForbidden)

	images.EXPECT().Delete(gomock.Any(), "/media/a").Return(errors.New("already gone"))
	require.NoError(t, svc.Delete(ctx, issue.ID, models.Principal{ID: owner.ID.Hex()}))

	_, err = s.FindIssue(ctx, issue.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)

	user, err := s.FindUserByID(ctx, owner.ID.Hex())
	require.NoError(t, err)
	assert.Zero(t, user.IssuesReported)

	anon := seedIssue(t, s, 72.5714, 23.0225)
	assert.ErrorIs(t, svc.Delete(ctx, anon.ID, models.Principal{ID: owner.ID.Hex()}), models.ErrForbidden)
	assert.NoError(t, svc.Delete(ctx, anon.ID, models.Principal{ID: "admin", IsAdmin: true}))
}

func TestActivityRequiresIssue(t *testing.T) {
	svc := NewIssueService(store.NewMemoryStore(), nil, nil, testOptions())
	_, err := svc.Activity(context.Background(), primitive.NewObjectID())
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestDashboardFillsEveryBucket(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	svc := NewIssueService(s, nil, nil, testOptions())
	seedIssue(t, s, 72.5714, 23.0225)

	stats, err := svc.Dashboard(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.TotalIssues)
	assert.Len(t, stats.ByStatus, len(models.IssueStatuses))
	assert.Len(t, stats.ByCategory, len(models.IssueCategories))
	assert.EqualValues(t, 1, stats.ByCategory[models.CategoryRoad])
}
