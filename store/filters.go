package store

import (
	"regexp"
	"strings"

	"civictrack-be/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// matchFilter translates an IssueFilter into a Mongo predicate. The same
// document is used for the find, the count and the $geoNear query stage.
func matchFilter(f models.IssueFilter) bson.M {
	filter := bson.M{}

	if f.Visible != nil {
		filter["isVisible"] = *f.Visible
	}
	if f.Category != "" {
		filter["category"] = f.Category
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.Owner != "" {
		filter["user"] = f.Owner
	}
	if search := strings.TrimSpace(f.Search); search != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(search), Options: "i"}
		filter["$or"] = []bson.M{
			{"title": pattern},
			{"description": pattern},
			{"address": pattern},
		}
	}

	return filter
}

// matches is the in-memory equivalent of matchFilter.
func matches(issue *models.Issue, f models.IssueFilter) bool {
	if f.Visible != nil && issue.IsVisible != *f.Visible {
		return false
	}
	if f.Category != "" && issue.Category != f.Category {
		return false
	}
	if f.Status != "" && issue.Status != f.Status {
		return false
	}
	if f.Owner != "" && issue.User != f.Owner {
		return false
	}
	if search := strings.ToLower(strings.TrimSpace(f.Search)); search != "" {
		return strings.Contains(strings.ToLower(issue.Title), search) ||
			strings.Contains(strings.ToLower(issue.Description), search) ||
			strings.Contains(strings.ToLower(issue.Address), search)
	}
	return true
}

func userMatch(f models.UserFilter) bson.M {
	filter := bson.M{}
	if f.Banned != nil {
		filter["isBanned"] = *f.Banned
	}
	if search := strings.TrimSpace(f.Search); search != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(search), Options: "i"}
		filter["$or"] = []bson.M{
			{"name": pattern},
			{"email": pattern},
		}
	}
	return filter
}

func matchesUser(u *models.User, f models.UserFilter) bool {
	if f.Banned != nil && u.IsBanned != *f.Banned {
		return false
	}
	if search := strings.ToLower(strings.TrimSpace(f.Search)); search != "" {
		return strings.Contains(strings.ToLower(u.Name), search) ||
			strings.Contains(strings.ToLower(u.Email), search)
	}
	return true
}
