package routes

import (
	"civictrack-be/middlewares"

	"github.com/gin-gonic/gin"
)

// IssueRoutes sets up the issue routes
func IssueRoutes(r *gin.Engine, d Dependencies) {
	issue := r.Group("/api/issues")
	{
		issue.GET("", d.Issues.GetIssues)
		issue.GET("/nearby", d.Issues.GetNearbyIssues)
		issue.GET("/:id/activity", d.Issues.GetIssueActivity)
	}

	optional := issue.Group("", d.optionalAuth()...)
	{
		optional.POST("",
			middlewares.IssueRateLimiter(d.Redis, d.IssueLimitKeyPrefix, d.IssueRateLimit),
			d.Issues.CreateIssue,
		)
		optional.GET("/:id", d.Issues.GetIssue)
	}

	authed := issue.Group("", d.requireAuth()...)
	{
		authed.POST("/:id/upvote", d.Issues.UpvoteIssue)
		authed.POST("/:id/spam", d.Issues.ReportSpam)
		authed.PATCH("/:id/status", middlewares.RequireAdmin(), d.Issues.UpdateIssueStatus)
		authed.DELETE("/:id", d.Issues.DeleteIssue)
	}
}
