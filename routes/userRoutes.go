package routes

import (
	"github.com/gin-gonic/gin"
)

// UserRoutes sets up the signed-in citizen's dashboard routes
func UserRoutes(r *gin.Engine, d Dependencies) {
	user := r.Group("/api/users", d.requireAuth()...)
	{
		user.GET("/stats", d.Users.GetStats)
		user.GET("/issues", d.Users.GetIssues)
		user.GET("/spam-reports", d.Users.GetSpamReports)
	}
}
