package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ActivityMetadata holds the optional fields changed alongside a status update
type ActivityMetadata struct {
	Priority                Priority   `bson:"priority,omitempty" json:"priority,omitempty"`
	EstimatedResolutionTime *time.Time `bson:"estimatedResolutionTime,omitempty" json:"estimatedResolutionTime,omitempty"`
	AdminNotes              string     `bson:"adminNotes,omitempty" json:"adminNotes,omitempty"`
}

// ActivityLog is an append-only audit entry for an issue's status history
type ActivityLog struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	IssueID        primitive.ObjectID `bson:"issueId" json:"issueId"`
	Status         IssueStatus        `bson:"status" json:"status"`
	PreviousStatus *IssueStatus       `bson:"previousStatus" json:"previousStatus"`
	Note           string             `bson:"note,omitempty" json:"note,omitempty"`
	UpdatedBy      *string            `bson:"updatedBy" json:"updatedBy"`
	Timestamp      time.Time          `bson:"timestamp" json:"timestamp"`
	Metadata       ActivityMetadata   `bson:"metadata" json:"metadata"`
}

// CreationNote is recorded on the first activity entry of every issue.
const CreationNote = "Issue reported"
