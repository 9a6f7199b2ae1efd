package models

// IssueFilter is the secondary predicate shared by plain and proximity reads.
// Zero values mean "no constraint".
type IssueFilter struct {
	Category IssueCategory
	Status   IssueStatus
	Search   string
	Owner    string
	Visible  *bool
}

// Page is a 1-based page request.
type Page struct {
	Number int
	Limit  int
}

// Skip returns the number of records before this page.
func (p Page) Skip() int64 {
	if p.Number < 1 {
		return 0
	}
	return int64(p.Number-1) * int64(p.Limit)
}

// NearQuery is a proximity search. RadiusMeters is already defaulted and clamped.
type NearQuery struct {
	Latitude     float64
	Longitude    float64
	RadiusMeters float64
}

type Pagination struct {
	CurrentPage int   `json:"currentPage"`
	TotalPages  int   `json:"totalPages"`
	TotalItems  int64 `json:"totalItems"`
	HasNextPage bool  `json:"hasNextPage"`
	HasPrevPage bool  `json:"hasPrevPage"`
}

// NewPagination derives page metadata from a total count.
func NewPagination(page Page, total int64) Pagination {
	totalPages := 0
	if page.Limit > 0 {
		totalPages = int((total + int64(page.Limit) - 1) / int64(page.Limit))
	}
	return Pagination{
		CurrentPage: page.Number,
		TotalPages:  totalPages,
		TotalItems:  total,
		HasNextPage: page.Number < totalPages,
		HasPrevPage: page.Number > 1,
	}
}

// IssuePage is one page of a search result.
type IssuePage struct {
	Issues     []*Issue   `json:"issues"`
	Pagination Pagination `json:"pagination"`
}

// DashboardStats summarises the issue and moderation backlog.
type DashboardStats struct {
	TotalIssues        int64                   `json:"totalIssues"`
	HiddenIssues       int64                   `json:"hiddenIssues"`
	PendingSpamReports int64                   `json:"pendingSpamReports"`
	ByStatus           map[IssueStatus]int64   `json:"byStatus"`
	ByCategory         map[IssueCategory]int64 `json:"byCategory"`
	TotalUsers         int64                   `json:"totalUsers"`
	BannedUsers        int64                   `json:"bannedUsers"`
}

// MaxTrendMonths and MaxTopReporters bound the analytics lists.
const (
	MaxTrendMonths  = 12
	MaxTopReporters = 10
)

type MonthlyCount struct {
	Year  int   `bson:"year" json:"year"`
	Month int   `bson:"month" json:"month"`
	Count int64 `bson:"count" json:"count"`
}

type ReporterCount struct {
	UserID string `bson:"_id" json:"userId"`
	Name   string `bson:"-" json:"name"`
	Count  int64  `bson:"count" json:"count"`
}

type ResolutionStats struct {
	AverageHours float64 `json:"avgResolutionHours"`
	Resolved     int64   `json:"resolvedCount"`
}

// Analytics is the admin reporting view. MonthlyTrends holds the most recent
// months oldest first.
type Analytics struct {
	ByStatus      map[IssueStatus]int64   `json:"byStatus"`
	ByCategory    map[IssueCategory]int64 `json:"byCategory"`
	MonthlyTrends []MonthlyCount          `json:"monthlyTrends"`
	TopReporters  []ReporterCount         `json:"topReporters"`
	Resolution    ResolutionStats         `json:"resolution"`
}
