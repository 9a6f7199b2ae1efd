package controllers

import (
	"net/http"

	"civictrack-be/middlewares"
	"civictrack-be/models"
	"civictrack-be/services"

	"github.com/gin-gonic/gin"
)

// UserController serves the signed-in citizen's own dashboard.
type UserController struct {
	users *services.UserService
}

func NewUserController(users *services.UserService) *UserController {
	return &UserController{users: users}
}

// GetStats counts the caller's reports by outcome.
func (uc *UserController) GetStats(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	stats, err := uc.users.Stats(ctx, middlewares.GetPrincipal(c).ID)
	if err != nil {
		respondError(c, err, "User")
		return
	}
	c.JSON(http.StatusOK, stats)
}

// GetIssues pages through the caller's own visible issues, filtered by
// status and category.
func (uc *UserController) GetIssues(c *gin.Context) {
	filter := issueFilter(c)
	filter.Search = ""

	result, err := uc.users.Issues(c.Request.Context(), middlewares.GetPrincipal(c).ID, services.SearchRequest{
		Filter: filter,
		Page:   queryInt(c, "page"),
		Limit:  queryInt(c, "limit"),
	})
	if err != nil {
		respondError(c, err, "Issue")
		return
	}
	c.JSON(http.StatusOK, result)
}

func (uc *UserController) GetSpamReports(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	reports, err := uc.users.SpamReports(ctx, middlewares.GetPrincipal(c).ID)
	if err != nil {
		respondError(c, err, "Spam report")
		return
	}
	if reports == nil {
		reports = []*models.SpamReport{}
	}
	c.JSON(http.StatusOK, gin.H{"reports": reports})
}
