package media

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestParseURL(t *testing.T) {
	id := primitive.NewObjectID()

	got, err := parseURL(URLPrefix + id.Hex())
	require.NoError(t, err)
	assert.Equal(t, id, got)

	for _, bad := range []string{"", "/media/", "/media/not-hex", "https://cdn.example.com/" + id.Hex()} {
		_, err := parseURL(bad)
		assert.Error(t, err, bad)
	}
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

	url, err := s.Store(ctx, "pothole.png", png)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, URLPrefix))

	rc, contentType, err := s.Open(ctx, strings.TrimPrefix(url, URLPrefix))
	require.NoError(t, err)
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "image/png", contentType)
	assert.Equal(t, png, body)

	require.NoError(t, s.Delete(ctx, url))
	assert.ErrorIs(t, s.Delete(ctx, url), ErrNotFound)
	_, _, err = s.Open(ctx, strings.TrimPrefix(url, URLPrefix))
	assert.ErrorIs(t, err, ErrNotFound)
}
