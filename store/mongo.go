package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"civictrack-be/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	IssuesCollection      = "issues"
	ActivityCollection    = "activitylogs"
	SpamReportsCollection = "spamreports"
	UsersCollection       = "users"

	toggleAttempts = 3
)

// MongoStore implements Store on a MongoDB database with a 2dsphere index on
// issues.location.
type MongoStore struct {
	issues   *mongo.Collection
	activity *mongo.Collection
	reports  *mongo.Collection
	users    *mongo.Collection
	now      func() time.Time
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		issues:   db.Collection(IssuesCollection),
		activity: db.Collection(ActivityCollection),
		reports:  db.Collection(SpamReportsCollection),
		users:    db.Collection(UsersCollection),
		now:      time.Now,
	}
}

// EnsureIndexes creates every index the queries rely on. Failures are
// collected so one bad index does not hide the others.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	type indexSpec struct {
		col   *mongo.Collection
		name  string
		model mongo.IndexModel
	}
	specs := []indexSpec{
		{s.issues, "location_2dsphere", mongo.IndexModel{Keys: bson.D{{Key: "location", Value: "2dsphere"}}}},
		{s.issues, "category,status", mongo.IndexModel{Keys: bson.D{{Key: "category", Value: 1}, {Key: "status", Value: 1}}}},
		{s.issues, "isVisible,createdAt", mongo.IndexModel{Keys: bson.D{{Key: "isVisible", Value: 1}, {Key: "createdAt", Value: -1}}}},
		{s.issues, "user,createdAt", mongo.IndexModel{Keys: bson.D{{Key: "user", Value: 1}, {Key: "createdAt", Value: -1}}}},
		{s.reports, "issueId,reportedBy", mongo.IndexModel{
			Keys:    bson.D{{Key: "issueId", Value: 1}, {Key: "reportedBy", Value: 1}},
			Options: options.Index().SetUnique(true),
		}},
		{s.reports, "status", mongo.IndexModel{Keys: bson.D{{Key: "status", Value: 1}}}},
		{s.activity, "issueId,timestamp", mongo.IndexModel{Keys: bson.D{{Key: "issueId", Value: 1}, {Key: "timestamp", Value: 1}}}},
		{s.users, "email", mongo.IndexModel{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		}},
	}

	var errs []string
	for _, sp := range specs {
		if _, err := sp.col.Indexes().CreateOne(ctx, sp.model); err != nil {
			errs = append(errs, sp.col.Name()+"."+sp.name+": "+err.Error())
		}
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// mapError converts driver errors into the models taxonomy.
func mapError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return models.ErrNotFound
	case errors.Is(err, context.DeadlineExceeded), mongo.IsTimeout(err):
		return fmt.Errorf("%w: %v", models.ErrTimeout, err)
	}
	return err
}

func (s *MongoStore) CreateIssue(ctx context.Context, issue *models.Issue) error {
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

	if _, err := s.issues.InsertOne(ctx, issue); err != nil {
		return mapError(err)
	}
	return nil
}

func (s *MongoStore) FindIssue(ctx context.Context, id primitive.ObjectID) (*models.Issue, error) {
	var issue models.Issue
	if err := s.issues.FindOne(ctx, bson.M{"_id": id}).Decode(&issue); err != nil {
		return nil, mapError(err)
	}
	return &issue, nil
}

func (s *MongoStore) IncrementViews(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.issues.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$inc": bson.M{"views": 1}})
	if err != nil {
		return mapError(err)
	}
	if res.MatchedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (s *MongoStore) findOneAndUpdate(ctx context.Context, filter bson.M, update any) (*models.Issue, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var issue models.Issue
	if err := s.issues.FindOneAndUpdate(ctx, filter, update, opts).Decode(&issue); err != nil {
		return nil, mapError(err)
	}
	return &issue, nil
}

func (s *MongoStore) ToggleUpvote(ctx context.Context, id primitive.ObjectID, principalID string) (models.VoteResult, error) {
	for attempt := 0; attempt < toggleAttempts; attempt++ {
		now := s.now()

		issue, err := s.findOneAndUpdate(ctx,
			bson.M{"_id": id, "upvotedBy": bson.M{"$ne": principalID}},
			bson.M{
				"$addToSet": bson.M{"upvotedBy": principalID},
				"$inc":      bson.M{"upvotes": 1},
				"$set":      bson.M{"updatedAt": now},
			})
		if err == nil {
			return models.VoteResult{Added: true, Upvotes: issue.Upvotes}, nil
		}
		if !errors.Is(err, models.ErrNotFound) {
			return models.VoteResult{}, err
		}

		issue, err = s.findOneAndUpdate(ctx,
			bson.M{"_id": id, "upvotedBy": principalID},
			bson.M{
				"$pull": bson.M{"upvotedBy": principalID},
				"$inc":  bson.M{"upvotes": -1},
				"$set":  bson.M{"updatedAt": now},
			})
		if err == nil {
			return models.VoteResult{Added: false, Upvotes: issue.Upvotes}, nil
		}
		if !errors.Is(err, models.ErrNotFound) {
			return models.VoteResult{}, err
		}

		// Neither predicate matched: either the issue is gone or a concurrent
		// toggle by the same principal flipped membership between the two calls.
		if _, err := s.FindIssue(ctx, id); err != nil {
			return models.VoteResult{}, err
		}
	}
	return models.VoteResult{}, fmt.Errorf("toggle upvote on %s: too much contention", id.Hex())
}

func (s *MongoStore) AddSpamVote(ctx context.Context, id primitive.ObjectID, principalID string, threshold int) (*models.Issue, bool, error) {
	// Pipeline update: the second stage sees the incremented count, so the
	// vote that lands exactly on the threshold hides the issue in the same write.
	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"spamVotedBy": bson.M{"$concatArrays": bson.A{
				bson.M{"$ifNull": bson.A{"$spamVotedBy", bson.A{}}},
				bson.A{bson.M{"$literal": principalID}},
			}},
			"spamVotes": bson.M{"$add": bson.A{bson.M{"$ifNull": bson.A{"$spamVotes", 0}}, 1}},
			"updatedAt": s.now(),
		}}},
		{{Key: "$set", Value: bson.M{
			"isVisible": bson.M{"$cond": bson.A{
				bson.M{"$eq": bson.A{"$spamVotes", threshold}},
				false,
				"$isVisible",
			}},
		}}},
	}
	issue, err := s.findOneAndUpdate(ctx, bson.M{"_id": id, "spamVotedBy": bson.M{"$ne": principalID}}, pipeline)
	if err == nil {
		return issue, issue.SpamVotes == threshold, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, false, err
	}
	if _, err := s.FindIssue(ctx, id); err != nil {
		return nil, false, err
	}
	return nil, false, models.ErrDuplicateSpamReport
}

func (s *MongoStore) SetVisibility(ctx context.Context, id primitive.ObjectID, visible bool) (*models.Issue, error) {
	return s.findOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"isVisible": visible, "updatedAt": s.now()}})
}

func (s *MongoStore) UpdateStatus(ctx context.Context, id primitive.ObjectID, from models.IssueStatus, change models.StatusChange) (*models.Issue, error) {
	set := bson.M{
		"status":           change.To,
		"lastStatusUpdate": change.At,
		"updatedAt":        change.At,
	}
	if change.To == models.StatusResolved {
		set["actualResolutionTime"] = change.At
	}
	if change.Priority != nil {
		set["priority"] = *change.Priority
	}
	if change.EstimatedResolutionTime != nil {
		set["estimatedResolutionTime"] = *change.EstimatedResolutionTime
	}
	if change.AdminNotes != nil {
		set["adminNotes"] = *change.AdminNotes
	}

	issue, err := s.findOneAndUpdate(ctx, bson.M{"_id": id, "status": from}, bson.M{"$set": set})
	if err == nil {
		return issue, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}
	if _, err := s.FindIssue(ctx, id); err != nil {
		return nil, err
	}
	return nil, models.ErrStatusConflict
}

func (s *MongoStore) DeleteIssue(ctx context.Context, id primitive.ObjectID) (*models.Issue, error) {
	if _, err := s.FindIssue(ctx, id); err != nil {
		return nil, err
	}
	if _, err := s.activity.DeleteMany(ctx, bson.M{"issueId": id}); err != nil {
		return nil, fmt.Errorf("delete activity for %s: %w", id.Hex(), mapError(err))
	}
	if _, err := s.reports.DeleteMany(ctx, bson.M{"issueId": id}); err != nil {
		return nil, fmt.Errorf("delete spam reports for %s: %w", id.Hex(), mapError(err))
	}

	var issue models.Issue
	if err := s.issues.FindOneAndDelete(ctx, bson.M{"_id": id}).Decode(&issue); err != nil {
		return nil, mapError(err)
	}
	return &issue, nil
}

func (s *MongoStore) FindIssues(ctx context.Context, filter models.IssueFilter, page models.Page) ([]*models.Issue, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(page.Skip()).
		SetLimit(int64(page.Limit))

	cursor, err := s.issues.Find(ctx, matchFilter(filter), opts)
	if err != nil {
		return nil, mapError(err)
	}
	defer cursor.Close(ctx)

	issues := make([]*models.Issue, 0, page.Limit)
	if err := cursor.All(ctx, &issues); err != nil {
		return nil, mapError(err)
	}
	return issues, nil
}

func (s *MongoStore) CountIssues(ctx context.Context, filter models.IssueFilter) (int64, error) {
	n, err := s.issues.CountDocuments(ctx, matchFilter(filter))
	return n, mapError(err)
}

// geoNearStage builds the $geoNear stage. It must be the first stage of the
// pipeline and carries the secondary predicate as its query.
func geoNearStage(near models.NearQuery, filter models.IssueFilter) bson.D {
	return bson.D{{Key: "$geoNear", Value: bson.M{
		"near": bson.M{
			"type":        "Point",
			"coordinates": []float64{near.Longitude, near.Latitude},
		},
		"distanceField": "distance",
		"maxDistance":   near.RadiusMeters,
		"spherical":     true,
		"query":         matchFilter(filter),
	}}}
}

func (s *MongoStore) FindNear(ctx context.Context, near models.NearQuery, filter models.IssueFilter, page models.Page) ([]*models.Issue, error) {
	pipeline := mongo.Pipeline{
		geoNearStage(near, filter),
		{{Key: "$sort", Value: bson.D{{Key: "distance", Value: 1}, {Key: "_id", Value: 1}}}},
		{{Key: "$skip", Value: page.Skip()}},
		{{Key: "$limit", Value: int64(page.Limit)}},
	}

	cursor, err := s.issues.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, mapError(err)
	}
	defer cursor.Close(ctx)

	issues := make([]*models.Issue, 0, page.Limit)
	if err := cursor.All(ctx, &issues); err != nil {
		return nil, mapError(err)
	}
	return issues, nil
}

func (s *MongoStore) CountNear(ctx context.Context, near models.NearQuery, filter models.IssueFilter) (int64, error) {
	pipeline := mongo.Pipeline{
		geoNearStage(near, filter),
		{{Key: "$count", Value: "total"}},
	}

	cursor, err := s.issues.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, mapError(err)
	}
	defer cursor.Close(ctx)

	var result []struct {
		Total int64 `bson:"total"`
	}
	if err := cursor.All(ctx, &result); err != nil {
		return 0, mapError(err)
	}
	if len(result) == 0 {
		return 0, nil
	}
	return result[0].Total, nil
}

func (s *MongoStore) AppendActivity(ctx context.Context, entry *models.ActivityLog) error {
	if entry.ID.IsZero() {
		entry.ID = primitive.NewObjectID()
	}
	_, err := s.activity.InsertOne(ctx, entry)
	return mapError(err)
}

func (s *MongoStore) ListActivity(ctx context.Context, issueID primitive.ObjectID) ([]*models.ActivityLog, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}, {Key: "_id", Value: 1}})

	cursor, err := s.activity.Find(ctx, bson.M{"issueId": issueID}, opts)
	if err != nil {
		return nil, mapError(err)
	}
	defer cursor.Close(ctx)

	entries := []*models.ActivityLog{}
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, mapError(err)
	}
	return entries, nil
}

func (s *MongoStore) CreateSpamReport(ctx context.Context, report *models.SpamReport) error {
	if report.ID.IsZero() {
		report.ID = primitive.NewObjectID()
	}
	if _, err := s.reports.InsertOne(ctx, report); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return models.ErrDuplicateSpamReport
		}
		return mapError(err)
	}
	return nil
}

func (s *MongoStore) DeleteSpamReport(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.reports.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return mapError(err)
	}
	if res.DeletedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (s *MongoStore) ReviewSpamReport(ctx context.Context, id primitive.ObjectID, review models.SpamReview) (*models.SpamReport, error) {
	set := bson.M{
		"status":     review.Status,
		"reviewedBy": review.ReviewerID,
		"reviewedAt": review.At,
		"updatedAt":  review.At,
	}
	if review.ActionTaken != "" {
		set["actionTaken"] = review.ActionTaken
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var report models.SpamReport
	if err := s.reports.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&report); err != nil {
		return nil, mapError(err)
	}
	return &report, nil
}

func (s *MongoStore) ListSpamReports(ctx context.Context, status models.ReviewStatus, page models.Page) ([]*models.SpamReport, int64, error) {
	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}

	total, err := s.reports.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, mapError(err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(page.Skip()).
		SetLimit(int64(page.Limit))
	cursor, err := s.reports.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, mapError(err)
	}
	defer cursor.Close(ctx)

	reports := []*models.SpamReport{}
	if err := cursor.All(ctx, &reports); err != nil {
		return nil, 0, mapError(err)
	}
	return reports, total, nil
}

func (s *MongoStore) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	if _, err := s.users.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return models.ErrDuplicateEmail
		}
		return mapError(err)
	}
	return nil
}

func (s *MongoStore) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.users.FindOne(ctx, bson.M{"email": email}).Decode(&user); err != nil {
		return nil, mapError(err)
	}
	return &user, nil
}

func (s *MongoStore) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, models.ErrNotFound
	}
	var user models.User
	if err := s.users.FindOne(ctx, bson.M{"_id": oid}).Decode(&user); err != nil {
		return nil, mapError(err)
	}
	return &user, nil
}

func (s *MongoStore) IncrementUserCounter(ctx context.Context, userID, field string, delta int) error {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil
	}
	_, err = s.users.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$inc": bson.M{field: delta}})
	return mapError(err)
}

func (s *MongoStore) SetUserBan(ctx context.Context, id string, ban models.UserBan) (*models.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, models.ErrNotFound
	}

	var update bson.M
	if ban.Banned {
		update = bson.M{"$set": bson.M{
			"isBanned":  true,
			"banReason": ban.Reason,
			"bannedAt":  ban.At,
			"bannedBy":  ban.By,
			"updatedAt": ban.At,
		}}
	} else {
		update = bson.M{
			"$set":   bson.M{"isBanned": false, "updatedAt": s.now().UTC()},
			"$unset": bson.M{"banReason": "", "bannedAt": "", "bannedBy": ""},
		}
	}

	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{"password": 0})
	var user models.User
	if err := s.users.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update, opts).Decode(&user); err != nil {
		return nil, mapError(err)
	}
	return &user, nil
}

func (s *MongoStore) ListUsers(ctx context.Context, filter models.UserFilter, page models.Page) ([]*models.User, int64, error) {
	match := userMatch(filter)

	total, err := s.users.CountDocuments(ctx, match)
	if err != nil {
		return nil, 0, mapError(err)
	}

	opts := options.Find().
		SetProjection(bson.M{"password": 0}).
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(page.Skip()).
		SetLimit(int64(page.Limit))
	cursor, err := s.users.Find(ctx, match, opts)
	if err != nil {
		return nil, 0, mapError(err)
	}
	defer cursor.Close(ctx)

	users := []*models.User{}
	if err := cursor.All(ctx, &users); err != nil {
		return nil, 0, mapError(err)
	}
	return users, total, nil
}

func (s *MongoStore) ListSpamReportsByReporter(ctx context.Context, reporterID string) ([]*models.SpamReport, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	cursor, err := s.reports.Find(ctx, bson.M{"reportedBy": reporterID}, opts)
	if err != nil {
		return nil, mapError(err)
	}
	defer cursor.Close(ctx)

	reports := []*models.SpamReport{}
	if err := cursor.All(ctx, &reports); err != nil {
		return nil, mapError(err)
	}
	return reports, nil
}

func (s *MongoStore) Stats(ctx context.Context) (*models.DashboardStats, error) {
	stats := &models.DashboardStats{
		ByStatus:   map[models.IssueStatus]int64{},
		ByCategory: map[models.IssueCategory]int64{},
	}

	var err error
	if stats.TotalIssues, err = s.issues.CountDocuments(ctx, bson.M{}); err != nil {
		return nil, mapError(err)
	}
	if stats.HiddenIssues, err = s.issues.CountDocuments(ctx, bson.M{"isVisible": false}); err != nil {
		return nil, mapError(err)
	}
	if stats.PendingSpamReports, err = s.reports.CountDocuments(ctx, bson.M{"status": models.ReviewPending}); err != nil {
		return nil, mapError(err)
	}
	if stats.TotalUsers, err = s.users.CountDocuments(ctx, bson.M{}); err != nil {
		return nil, mapError(err)
	}
	if stats.BannedUsers, err = s.users.CountDocuments(ctx, bson.M{"isBanned": true}); err != nil {
		return nil, mapError(err)
	}

	for field, assign := range map[string]func(string, int64){
		"$status":   func(k string, n int64) { stats.ByStatus[models.IssueStatus(k)] = n },
		"$category": func(k string, n int64) { stats.ByCategory[models.IssueCategory(k)] = n },
	} {
		groups, err := s.groupCount(ctx, field)
		if err != nil {
			return nil, err
		}
		for _, g := range groups {
			assign(g.Key, g.Count)
		}
	}
	return stats, nil
}

type groupCount struct {
	Key   string `bson:"_id"`
	Count int64  `bson:"count"`
}

func (s *MongoStore) groupCount(ctx context.Context, field string) ([]groupCount, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{"_id": field, "count": bson.M{"$sum": 1}}}},
	}
	cursor, err := s.issues.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, mapError(err)
	}
	defer cursor.Close(ctx)

	var groups []groupCount
	if err := cursor.All(ctx, &groups); err != nil {
		return nil, mapError(err)
	}
	return groups, nil
}

// Analytics aggregates the admin reporting view. Reporter names are looked up
// separately because issues reference users by hex id.
func (s *MongoStore) Analytics(ctx context.Context) (*models.Analytics, error) {
	out := &models.Analytics{
		ByStatus:      map[models.IssueStatus]int64{},
		ByCategory:    map[models.IssueCategory]int64{},
		MonthlyTrends: []models.MonthlyCount{},
		TopReporters:  []models.ReporterCount{},
	}

	statuses, err := s.groupCount(ctx, "$status")
	if err != nil {
		return nil, err
	}
	for _, g := range statuses {
		out.ByStatus[models.IssueStatus(g.Key)] = g.Count
	}
	categories, err := s.groupCount(ctx, "$category")
	if err != nil {
		return nil, err
	}
	for _, g := range categories {
		out.ByCategory[models.IssueCategory(g.Key)] = g.Count
	}

	trends := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id":   bson.M{"year": bson.M{"$year": "$createdAt"}, "month": bson.M{"$month": "$createdAt"}},
			"count": bson.M{"$sum": 1},
		}}},
		{{Key: "$project", Value: bson.M{"_id": 0, "year": "$_id.year", "month": "$_id.month", "count": 1}}},
		{{Key: "$sort", Value: bson.D{{Key: "year", Value: -1}, {Key: "month", Value: -1}}}},
		{{Key: "$limit", Value: models.MaxTrendMonths}},
	}
	if err := s.aggregate(ctx, trends, &out.MonthlyTrends); err != nil {
		return nil, err
	}
	for i, j := 0, len(out.MonthlyTrends)-1; i < j; i, j = i+1, j-1 {
		out.MonthlyTrends[i], out.MonthlyTrends[j] = out.MonthlyTrends[j], out.MonthlyTrends[i]
	}

	reporters := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"user": bson.M{"$nin": bson.A{nil, ""}}}}},
		{{Key: "$group", Value: bson.M{"_id": "$user", "count": bson.M{"$sum": 1}}}},
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}}},
		{{Key: "$limit", Value: models.MaxTopReporters}},
	}
	if err := s.aggregate(ctx, reporters, &out.TopReporters); err != nil {
		return nil, err
	}
	for i := range out.TopReporters {
		if user, err := s.FindUserByID(ctx, out.TopReporters[i].UserID); err == nil {
			out.TopReporters[i].Name = user.Name
		}
	}

	resolution := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"status":               models.StatusResolved,
			"actualResolutionTime": bson.M{"$exists": true},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":   nil,
			"avgMs": bson.M{"$avg": bson.M{"$subtract": bson.A{"$actualResolutionTime", "$createdAt"}}},
			"count": bson.M{"$sum": 1},
		}}},
	}
	var res []struct {
		AvgMs float64 `bson:"avgMs"`
		Count int64   `bson:"count"`
	}
	if err := s.aggregate(ctx, resolution, &res); err != nil {
		return nil, err
	}
	if len(res) > 0 {
		out.Resolution = models.ResolutionStats{
			AverageHours: res[0].AvgMs / float64(time.Hour/time.Millisecond),
			Resolved:     res[0].Count,
		}
	}
	return out, nil
}

func (s *MongoStore) aggregate(ctx context.Context, pipeline mongo.Pipeline, results any) error {
	cursor, err := s.issues.Aggregate(ctx, pipeline)
	if err != nil {
		return mapError(err)
	}
	defer cursor.Close(ctx)
	return mapError(cursor.All(ctx, results))
}

var _ Store = (*MongoStore)(nil)
