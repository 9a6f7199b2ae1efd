package controllers

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"civictrack-be/middlewares"
	"civictrack-be/models"
	"civictrack-be/services"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

// IssueController serves the public and citizen-facing issue endpoints.
type IssueController struct {
	issues       *services.IssueService
	discovery    *services.DiscoveryService
	lifecycle    *services.LifecycleService
	moderation   *services.ModerationService
	maxImageSize int64
}

func NewIssueController(
	issues *services.IssueService,
	discovery *services.DiscoveryService,
	lifecycle *services.LifecycleService,
	moderation *services.ModerationService,
	maxImageSize int64,
) *IssueController {
	if maxImageSize <= 0 {
		maxImageSize = services.DefaultMaxImageSize
	}
	return &IssueController{
		issues:       issues,
		discovery:    discovery,
		lifecycle:    lifecycle,
		moderation:   moderation,
		maxImageSize: maxImageSize,
	}
}

// CreateIssue handles issue reporting. It accepts a multipart form with up
// to five "images" files, or a JSON body without images.
func (ic *IssueController) CreateIssue(c *gin.Context) {
	var draft models.IssueDraft

	multipartRequest := strings.HasPrefix(c.ContentType(), binding.MIMEMultipartPOSTForm)
	if multipartRequest {
		if err := c.ShouldBindWith(&draft, binding.FormMultipart); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		form, err := c.MultipartForm()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		files := form.File["images"]
		if len(files) > models.MaxImagesPerIssue {
			respondError(c, models.NewValidationError("images",
				fmt.Sprintf("maximum %d images allowed per issue", models.MaxImagesPerIssue)), "Issue")
			return
		}
		for _, fh := range files {
			upload, err := ic.readUpload(fh)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read uploaded image"})
				return
			}
			draft.Images = append(draft.Images, upload)
		}
	} else if err := c.ShouldBindJSON(&draft); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	principal := middlewares.GetPrincipal(c)
	if !draft.IsAnonymous {
		if principal.ID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Sign in or report anonymously"})
			return
		}
		draft.OwnerID = principal.ID
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	issue, err := ic.issues.Create(ctx, draft)
	if err != nil {
		respondError(c, err, "Issue")
		return
	}
	c.JSON(http.StatusCreated, issue)
}

// readUpload reads at most one byte past the size limit so oversized files
// fail validation without being buffered whole.
func (ic *IssueController) readUpload(fh *multipart.FileHeader) (models.ImageUpload, error) {
	f, err := fh.Open()
	if err != nil {
		return models.ImageUpload{}, err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, ic.maxImageSize+1))
	if err != nil {
		return models.ImageUpload{}, err
	}
	return models.ImageUpload{Filename: fh.Filename, Data: data}, nil
}

// GetIssues handles the public listing: attribute filters, optional
// proximity and pagination. Hidden issues are never listed here.
func (ic *IssueController) GetIssues(c *gin.Context) {
	ic.search(c, false)
}

// GetNearbyIssues is GetIssues with coordinates required.
func (ic *IssueController) GetNearbyIssues(c *gin.Context) {
	ic.search(c, true)
}

func (ic *IssueController) search(c *gin.Context, requireLocation bool) {
	verr := &models.ValidationError{}
	lat := queryFloat(c, "lat", verr)
	lng := queryFloat(c, "lng", verr)
	radius := radiusQuery(c, verr)
	if err := verr.OrNil(); err != nil {
		respondError(c, err, "Issue")
		return
	}
	if requireLocation && (lat == nil || lng == nil) {
		respondError(c, fmt.Errorf("%w: lat and lng are required", models.ErrInvalidCoordinates), "Issue")
		return
	}

	visible := true
	filter := issueFilter(c)
	filter.Visible = &visible

	result, err := ic.discovery.Search(c.Request.Context(), services.SearchRequest{
		Filter:    filter,
		Latitude:  lat,
		Longitude: lng,
		Radius:    radius,
		Page:      queryInt(c, "page"),
		Limit:     queryInt(c, "limit"),
	})
	if err != nil {
		respondError(c, err, "Issue")
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetIssue handles retrieving a single issue and counts the view.
func (ic *IssueController) GetIssue(c *gin.Context) {
	id, ok := objectIDParam(c, "id", "issue")
	if !ok {
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	issue, err := ic.issues.Get(ctx, id)
	if err != nil {
		respondError(c, err, "Issue")
		return
	}
	principal := middlewares.GetPrincipal(c)
	c.JSON(http.StatusOK, issueView{
		Issue:      issue,
		HasUpvoted: principal.ID != "" && issue.HasUpvote(principal.ID),
	})
}

// issueView exposes the caller's own upvote instead of the voter set.
type issueView struct {
	*models.Issue
	HasUpvoted bool `json:"hasUpvoted"`
}

// GetIssueActivity returns the issue's timeline, oldest first.
func (ic *IssueController) GetIssueActivity(c *gin.Context) {
	id, ok := objectIDParam(c, "id", "issue")
	if !ok {
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	activity, err := ic.issues.Activity(ctx, id)
	if err != nil {
		respondError(c, err, "Issue")
		return
	}
	c.JSON(http.StatusOK, gin.H{"activity": activity})
}

// UpvoteIssue toggles the caller's upvote.
func (ic *IssueController) UpvoteIssue(c *gin.Context) {
	id, ok := objectIDParam(c, "id", "issue")
	if !ok {
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	result, err := ic.issues.ToggleUpvote(ctx, id, middlewares.GetPrincipal(c).ID)
	if err != nil {
		respondError(c, err, "Issue")
		return
	}

	message := "Upvote removed"
	if result.Added {
		message = "Issue upvoted"
	}
	c.JSON(http.StatusOK, gin.H{"message": message, "added": result.Added, "upvotes": result.Upvotes})
}

// ReportSpam records the caller's spam flag on an issue.
func (ic *IssueController) ReportSpam(c *gin.Context) {
	id, ok := objectIDParam(c, "id", "issue")
	if !ok {
		return
	}
	var input struct {
		Reason      models.SpamReason `json:"reason"`
		Description string            `json:"description"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	result, err := ic.moderation.ReportSpam(ctx, id, middlewares.GetPrincipal(c).ID, input.Reason, input.Description)
	if err != nil {
		respondError(c, err, "Issue")
		return
	}
	c.JSON(http.StatusCreated, result)
}

// UpdateIssueStatus moves an issue along its lifecycle. Admin only.
func (ic *IssueController) UpdateIssueStatus(c *gin.Context) {
	id, ok := objectIDParam(c, "id", "issue")
	if !ok {
		return
	}
	var input struct {
		Status                  models.IssueStatus `json:"status"`
		Note                    string             `json:"note"`
		Priority                *models.Priority   `json:"priority"`
		EstimatedResolutionTime *time.Time         `json:"estimatedResolutionTime"`
		AdminNotes              *string            `json:"adminNotes"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	issue, err := ic.lifecycle.Transition(ctx, services.TransitionRequest{
		IssueID:             id,
		To:                  input.Status,
		ActorID:             middlewares.GetPrincipal(c).ID,
		Note:                strings.TrimSpace(input.Note),
		Priority:            input.Priority,
		EstimatedResolution: input.EstimatedResolutionTime,
		AdminNotes:          input.AdminNotes,
	})
	if err != nil {
		respondError(c, err, "Issue")
		return
	}
	c.JSON(http.StatusOK, issue)
}

// DeleteIssue handles deleting an issue. Only the owner or an admin may.
func (ic *IssueController) DeleteIssue(c *gin.Context) {
	id, ok := objectIDParam(c, "id", "issue")
	if !ok {
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := ic.issues.Delete(ctx, id, middlewares.GetPrincipal(c)); err != nil {
		respondError(c, err, "Issue")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Issue deleted successfully"})
}
