package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Counter fields kept on the user document.
const (
	CounterIssuesReported = "issuesReported"
	CounterSpamReports    = "spamReports"
)

type User struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name           string             `bson:"name" json:"name"`
	Email          string             `bson:"email" json:"email"`
	Password       string             `bson:"password,omitempty" json:"-"`
	Role           Role               `bson:"role" json:"role"`
	IssuesReported int                `bson:"issuesReported" json:"issuesReported"`
	SpamReports    int                `bson:"spamReports" json:"spamReports"`
	IsBanned       bool               `bson:"isBanned" json:"isBanned"`
	BanReason      string             `bson:"banReason,omitempty" json:"banReason,omitempty"`
	BannedAt       *time.Time         `bson:"bannedAt,omitempty" json:"bannedAt,omitempty"`
	BannedBy       string             `bson:"bannedBy,omitempty" json:"bannedBy,omitempty"`
	CreatedAt      time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time          `bson:"updatedAt" json:"updatedAt"`
}

func (u *User) HashPassword() error {
	hashed, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hashed)
	return nil
}

func (u *User) ComparePassword(candidate string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(candidate))
	return err == nil
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// MaxBanReasonLength caps the reason an admin gives for a ban.
const MaxBanReasonLength = 500

// UserBan sets or lifts a ban. Reason, By and At are ignored when lifting.
type UserBan struct {
	Banned bool
	Reason string
	By     string
	At     time.Time
}

// UserFilter narrows the admin user listing. Zero values mean "no constraint".
type UserFilter struct {
	Search string
	Banned *bool
}

// UserStats summarises one user's own reports.
type UserStats struct {
	TotalIssues    int64 `json:"totalIssues"`
	ResolvedIssues int64 `json:"resolvedIssues"`
	PendingIssues  int64 `json:"pendingIssues"`
	SpamReports    int   `json:"spamReports"`
}

// Principal is the authenticated caller as seen by the services.
type Principal struct {
	ID      string
	IsAdmin bool
}
