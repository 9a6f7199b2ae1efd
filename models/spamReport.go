package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SpamReason enum
type SpamReason string

const (
	ReasonInappropriate SpamReason = "Inappropriate Content"
	ReasonFakeReport    SpamReason = "Fake Report"
	ReasonDuplicate     SpamReason = "Duplicate"
	ReasonSpam          SpamReason = "Spam"
	ReasonOther         SpamReason = "Other"
)

func (r SpamReason) Valid() bool {
	switch r {
	case ReasonInappropriate, ReasonFakeReport, ReasonDuplicate, ReasonSpam, ReasonOther:
		return true
	}
	return false
}

// ReviewStatus enum
type ReviewStatus string

const (
	ReviewPending     ReviewStatus = "Pending"
	ReviewReviewed    ReviewStatus = "Reviewed"
	ReviewActionTaken ReviewStatus = "Action Taken"
	ReviewDismissed   ReviewStatus = "Dismissed"
)

func (s ReviewStatus) Valid() bool {
	switch s {
	case ReviewPending, ReviewReviewed, ReviewActionTaken, ReviewDismissed:
		return true
	}
	return false
}

const (
	MaxSpamDescriptionLength = 200
	MaxActionTakenLength     = 300
)

// SpamReport is one principal's flag on an issue. (issueId, reportedBy) is unique.
type SpamReport struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	IssueID     primitive.ObjectID `bson:"issueId" json:"issueId"`
	ReportedBy  string             `bson:"reportedBy" json:"reportedBy"`
	Reason      SpamReason         `bson:"reason" json:"reason"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	Status      ReviewStatus       `bson:"status" json:"status"`
	ReviewedBy  string             `bson:"reviewedBy,omitempty" json:"reviewedBy,omitempty"`
	ReviewedAt  *time.Time         `bson:"reviewedAt,omitempty" json:"reviewedAt,omitempty"`
	ActionTaken string             `bson:"actionTaken,omitempty" json:"actionTaken,omitempty"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// SpamReview is the admin decision applied to a report.
type SpamReview struct {
	Status      ReviewStatus
	ReviewerID  string
	ActionTaken string
	At          time.Time
}
