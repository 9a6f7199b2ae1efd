package routes

import (
	"civictrack-be/middlewares"

	"github.com/gin-gonic/gin"
)

// AdminRoutes sets up the moderation routes. Every route requires an admin.
func AdminRoutes(r *gin.Engine, d Dependencies) {
	admin := r.Group("/api/admin", append(d.requireAuth(), middlewares.RequireAdmin())...)
	{
		admin.GET("/dashboard", d.Admin.GetDashboard)
		admin.GET("/analytics", d.Admin.GetAnalytics)
		admin.GET("/issues", d.Admin.GetIssues)
		admin.PATCH("/issues/:issueId/hide", d.Admin.HideIssue)
		admin.PATCH("/issues/:issueId/show", d.Admin.ShowIssue)
		admin.GET("/spam-reports", d.Admin.GetSpamReports)
		admin.PATCH("/spam-reports/:reportId/review", d.Admin.ReviewSpamReport)
		admin.GET("/users", d.Admin.GetUsers)
		admin.PATCH("/users/:userId/ban", d.Admin.BanUser)
		admin.PATCH("/users/:userId/unban", d.Admin.UnbanUser)
	}
}
