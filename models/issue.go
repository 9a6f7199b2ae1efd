package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// IssueCategory enum
type IssueCategory string

const (
	CategoryRoad        IssueCategory = "Road"
	CategoryWater       IssueCategory = "Water"
	CategoryCleanliness IssueCategory = "Cleanliness"
	CategoryLighting    IssueCategory = "Lighting"
	CategorySafety      IssueCategory = "Safety"
)

// IssueCategories lists every accepted category in display order.
var IssueCategories = []IssueCategory{
	CategoryRoad, CategoryWater, CategoryCleanliness, CategoryLighting, CategorySafety,
}

func (c IssueCategory) Valid() bool {
	for _, known := range IssueCategories {
		if c == known {
			return true
		}
	}
	return false
}

// IssueStatus enum
type IssueStatus string

const (
	StatusReported   IssueStatus = "Reported"
	StatusInProgress IssueStatus = "In Progress"
	StatusResolved   IssueStatus = "Resolved"
)

// IssueStatuses lists the lifecycle states in their forward order.
var IssueStatuses = []IssueStatus{StatusReported, StatusInProgress, StatusResolved}

func (s IssueStatus) Valid() bool {
	return s == StatusReported || s == StatusInProgress || s == StatusResolved
}

// Priority enum
type Priority string

const (
	PriorityLow      Priority = "Low"
	PriorityMedium   Priority = "Medium"
	PriorityHigh     Priority = "High"
	PriorityCritical Priority = "Critical"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

const (
	MaxImagesPerIssue   = 5
	MaxAddressLength    = 200
	MaxAdminNotesLength = 500
	MaxNoteLength       = 500
)

// GeoPoint is a GeoJSON point. Coordinates are stored as [longitude, latitude].
type GeoPoint struct {
	Type        string    `bson:"type" json:"type"`
	Coordinates []float64 `bson:"coordinates" json:"coordinates"`
}

func NewPoint(longitude, latitude float64) GeoPoint {
	return GeoPoint{Type: "Point", Coordinates: []float64{longitude, latitude}}
}

func (p GeoPoint) Longitude() float64 {
	if len(p.Coordinates) < 2 {
		return 0
	}
	return p.Coordinates[0]
}

func (p GeoPoint) Latitude() float64 {
	if len(p.Coordinates) < 2 {
		return 0
	}
	return p.Coordinates[1]
}

// Issue represents a civic issue reported by a citizen
type Issue struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title       string             `bson:"title" json:"title"`
	Description string             `bson:"description" json:"description"`
	Category    IssueCategory      `bson:"category" json:"category"`
	Location    GeoPoint           `bson:"location" json:"location"`
	Address     string             `bson:"address,omitempty" json:"address,omitempty"`
	Images      []string           `bson:"images" json:"images"`

	User        string `bson:"user,omitempty" json:"user,omitempty"`
	IsAnonymous bool   `bson:"isAnonymous" json:"isAnonymous"`

	Status                  IssueStatus `bson:"status" json:"status"`
	Priority                Priority    `bson:"priority" json:"priority"`
	LastStatusUpdate        time.Time   `bson:"lastStatusUpdate" json:"lastStatusUpdate"`
	EstimatedResolutionTime *time.Time  `bson:"estimatedResolutionTime,omitempty" json:"estimatedResolutionTime,omitempty"`
	ActualResolutionTime    *time.Time  `bson:"actualResolutionTime,omitempty" json:"actualResolutionTime,omitempty"`
	AdminNotes              string      `bson:"adminNotes,omitempty" json:"adminNotes,omitempty"`

	SpamVotes   int      `bson:"spamVotes" json:"spamVotes"`
	SpamVotedBy []string `bson:"spamVotedBy" json:"-"`
	IsVisible   bool     `bson:"isVisible" json:"isVisible"`

	Upvotes   int      `bson:"upvotes" json:"upvotes"`
	UpvotedBy []string `bson:"upvotedBy" json:"-"`
	Views     int64    `bson:"views" json:"views"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`

	// Distance in meters from the query point; only set by geo queries.
	Distance *float64 `bson:"distance,omitempty" json:"distance,omitempty"`
}

// Clone returns a deep copy so callers never share slices with a store.
func (i *Issue) Clone() *Issue {
	if i == nil {
		return nil
	}
	c := *i
	c.Location.Coordinates = append([]float64(nil), i.Location.Coordinates...)
	c.Images = append([]string{}, i.Images...)
	c.SpamVotedBy = append([]string{}, i.SpamVotedBy...)
	c.UpvotedBy = append([]string{}, i.UpvotedBy...)
	if i.EstimatedResolutionTime != nil {
		t := *i.EstimatedResolutionTime
		c.EstimatedResolutionTime = &t
	}
	if i.ActualResolutionTime != nil {
		t := *i.ActualResolutionTime
		c.ActualResolutionTime = &t
	}
	if i.Distance != nil {
		d := *i.Distance
		c.Distance = &d
	}
	return &c
}

// HasUpvote reports whether principalID is in the upvote set.
func (i *Issue) HasUpvote(principalID string) bool {
	return contains(i.UpvotedBy, principalID)
}

// HasSpamVote reports whether principalID already flagged the issue.
func (i *Issue) HasSpamVote(principalID string) bool {
	return contains(i.SpamVotedBy, principalID)
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

// VoteResult is the outcome of an upvote toggle.
type VoteResult struct {
	Added   bool `json:"added"`
	Upvotes int  `json:"upvotes"`
}

// StatusChange carries the fields written by a lifecycle transition.
type StatusChange struct {
	To                      IssueStatus
	At                      time.Time
	Priority                *Priority
	EstimatedResolutionTime *time.Time
	AdminNotes              *string
}
