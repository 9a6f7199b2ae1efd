package controllers

import (
	"net/http"

	"civictrack-be/middlewares"
	"civictrack-be/models"
	"civictrack-be/services"

	"github.com/gin-gonic/gin"
)

// AdminController serves the moderation dashboard. Every route sits behind
// AuthMiddleware and RequireAdmin.
type AdminController struct {
	issues     *services.IssueService
	discovery  *services.DiscoveryService
	moderation *services.ModerationService
	users      *services.UserService
	pageLimit  int
}

func NewAdminController(issues *services.IssueService, discovery *services.DiscoveryService, moderation *services.ModerationService, users *services.UserService, pageLimit int) *AdminController {
	if pageLimit <= 0 {
		pageLimit = services.AdminPageLimit
	}
	return &AdminController{issues: issues, discovery: discovery, moderation: moderation, users: users, pageLimit: pageLimit}
}

// GetDashboard returns issue counts by status and category plus the
// moderation backlog.
func (ac *AdminController) GetDashboard(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	stats, err := ac.issues.Dashboard(ctx)
	if err != nil {
		respondError(c, err, "Dashboard")
		return
	}
	c.JSON(http.StatusOK, stats)
}

// GetIssues lists issues including hidden ones unless isVisible is given.
func (ac *AdminController) GetIssues(c *gin.Context) {
	verr := &models.ValidationError{}
	visible := queryBool(c, "isVisible", verr)
	if err := verr.OrNil(); err != nil {
		respondError(c, err, "Issue")
		return
	}

	filter := issueFilter(c)
	filter.Visible = visible

	result, err := ac.discovery.Search(c.Request.Context(), services.SearchRequest{
		Filter:       filter,
		Page:         queryInt(c, "page"),
		Limit:        queryInt(c, "limit"),
		DefaultLimit: ac.pageLimit,
	})
	if err != nil {
		respondError(c, err, "Issue")
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetSpamReports pages through spam reports, optionally by review status.
func (ac *AdminController) GetSpamReports(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	limit := queryInt(c, "limit")
	if limit <= 0 {
		limit = ac.pageLimit
	}
	reports, pagination, err := ac.moderation.ListSpamReports(ctx, models.ReviewStatus(c.Query("status")), queryInt(c, "page"), limit)
	if err != nil {
		respondError(c, err, "Spam report")
		return
	}
	if reports == nil {
		reports = []*models.SpamReport{}
	}
	c.JSON(http.StatusOK, gin.H{"reports": reports, "pagination": pagination})
}

// ReviewSpamReport records the admin's decision on one report.
func (ac *AdminController) ReviewSpamReport(c *gin.Context) {
	id, ok := objectIDParam(c, "reportId", "report")
	if !ok {
		return
	}
	var input struct {
		Status      models.ReviewStatus `json:"status"`
		ActionTaken string              `json:"actionTaken"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	report, err := ac.moderation.ReviewSpamReport(ctx, services.ReviewRequest{
		ReportID:    id,
		Status:      input.Status,
		ReviewerID:  middlewares.GetPrincipal(c).ID,
		ActionTaken: input.ActionTaken,
	})
	if err != nil {
		respondError(c, err, "Spam report")
		return
	}
	c.JSON(http.StatusOK, report)
}

func (ac *AdminController) HideIssue(c *gin.Context) { ac.setVisibility(c, false) }

func (ac *AdminController) ShowIssue(c *gin.Context) { ac.setVisibility(c, true) }

func (ac *AdminController) setVisibility(c *gin.Context, visible bool) {
	id, ok := objectIDParam(c, "issueId", "issue")
	if !ok {
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	issue, err := ac.moderation.SetVisibility(ctx, id, visible)
	if err != nil {
		respondError(c, err, "Issue")
		return
	}
	c.JSON(http.StatusOK, issue)
}

// GetAnalytics returns the reporting breakdowns for the admin dashboard.
func (ac *AdminController) GetAnalytics(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	analytics, err := ac.users.Analytics(ctx)
	if err != nil {
		respondError(c, err, "Analytics")
		return
	}
	c.JSON(http.StatusOK, analytics)
}

// GetUsers pages through accounts, filtered by search and isBanned.
func (ac *AdminController) GetUsers(c *gin.Context) {
	verr := &models.ValidationError{}
	banned := queryBool(c, "isBanned", verr)
	if err := verr.OrNil(); err != nil {
		respondError(c, err, "User")
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	limit := queryInt(c, "limit")
	if limit <= 0 {
		limit = ac.pageLimit
	}
	users, pagination, err := ac.users.List(ctx, models.UserFilter{
		Search: c.Query("search"),
		Banned: banned,
	}, queryInt(c, "page"), limit)
	if err != nil {
		respondError(c, err, "User")
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users, "pagination": pagination})
}

// BanUser blocks an account; the reason is shown to the user on every request.
func (ac *AdminController) BanUser(c *gin.Context) {
	id, ok := objectIDParam(c, "userId", "user")
	if !ok {
		return
	}
	var input struct {
		Reason string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	user, err := ac.users.Ban(ctx, middlewares.GetPrincipal(c), id.Hex(), input.Reason)
	if err != nil {
		respondError(c, err, "User")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User banned successfully", "user": user})
}

func (ac *AdminController) UnbanUser(c *gin.Context) {
	id, ok := objectIDParam(c, "userId", "user")
	if !ok {
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	user, err := ac.users.Unban(ctx, middlewares.GetPrincipal(c), id.Hex())
	if err != nil {
		respondError(c, err, "User")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User unbanned successfully", "user": user})
}
