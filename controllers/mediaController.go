package controllers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"civictrack-be/media"

	"github.com/gin-gonic/gin"
)

// MediaSource opens stored images by id.
type MediaSource interface {
	Open(ctx context.Context, id string) (io.ReadCloser, string, error)
}

type MediaController struct {
	source MediaSource
}

func NewMediaController(source MediaSource) *MediaController {
	return &MediaController{source: source}
}

// ServeImage streams an issue photo.
func (mc *MediaController) ServeImage(c *gin.Context) {
	rc, contentType, err := mc.source.Open(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, media.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Image not found"})
			return
		}
		respondError(c, err, "Image")
		return
	}
	defer rc.Close()

	c.Header("Cache-Control", "public, max-age=86400")
	c.DataFromReader(http.StatusOK, -1, contentType, rc, nil)
}
