package controllers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"civictrack-be/config"
	"civictrack-be/models"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const requestTimeout = 10 * time.Second

func requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), requestTimeout)
}

// respondError writes the HTTP response for a service error. resource names
// the thing that was looked up, for the 404 message.
func respondError(c *gin.Context, err error, resource string) {
	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation failed", "fields": verr.Fields})
	case errors.Is(err, models.ErrInvalidCoordinates), errors.Is(err, models.ErrInvalidRadius):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "Not authorized to perform this action"})
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": resource + " not found"})
	case errors.Is(err, models.ErrInvalidTransition),
		errors.Is(err, models.ErrDuplicateSpamReport),
		errors.Is(err, models.ErrStatusConflict),
		errors.Is(err, models.ErrDuplicateEmail):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrUploadFailed):
		config.Logger.Error().Err(err).Str("path", c.FullPath()).Msg("image upload failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to upload images"})
	case errors.Is(err, models.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "Request timed out"})
	default:
		config.Logger.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
	}
}

// objectIDParam parses a path parameter, answering 400 when it is malformed.
func objectIDParam(c *gin.Context, name, label string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + label + " ID"})
		return primitive.NilObjectID, false
	}
	return id, true
}

// queryInt ignores malformed values; the services clamp whatever arrives.
func queryInt(c *gin.Context, key string) int {
	n, _ := strconv.Atoi(c.Query(key))
	return n
}

func queryFloat(c *gin.Context, key string, verr *models.ValidationError) *float64 {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		verr.Add(key, "must be a number")
		return nil
	}
	return &f
}

func queryBool(c *gin.Context, key string, verr *models.ValidationError) *bool {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		verr.Add(key, "must be true or false")
		return nil
	}
	return &b
}

// issueFilter reads the attribute filters shared by every listing endpoint.
func issueFilter(c *gin.Context) models.IssueFilter {
	return models.IssueFilter{
		Category: models.IssueCategory(c.Query("category")),
		Status:   models.IssueStatus(c.Query("status")),
		Search:   strings.TrimSpace(c.Query("search")),
		Owner:    strings.TrimSpace(c.Query("userId")),
	}
}

// radiusQuery accepts "radius" and the older "distance" parameter.
func radiusQuery(c *gin.Context, verr *models.ValidationError) *float64 {
	if c.Query("radius") != "" {
		return queryFloat(c, "radius", verr)
	}
	return queryFloat(c, "distance", verr)
}
