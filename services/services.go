// Package services holds the issue lifecycle, moderation and discovery
// rules. Persistence goes through the store interfaces; image storage and
// geocoding are injected collaborators.
package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

//go:generate mockgen -destination=../mocks/collaborators.go -package=mocks civictrack-be/services ImageStore,Geocoder

// ImageStore persists binary image payloads and returns their public URL.
type ImageStore interface {
	Store(ctx context.Context, filename string, data []byte) (string, error)
	Delete(ctx context.Context, url string) error
}

// Geocoder resolves coordinates into a human-readable address.
type Geocoder interface {
	Resolve(ctx context.Context, lat, lng float64) (string, error)
}

const (
	DefaultSpamThreshold = 3
	DefaultSearchRadius  = 5000.0
	MaxSearchRadius      = 50000.0
	DefaultPageLimit     = 10
	AdminPageLimit       = 20
	MaxPageLimit         = 100
	DefaultSearchTimeout = 10 * time.Second
	DefaultMaxImageSize  = 2 << 20
)

// Options tunes the engine. Zero fields take the package defaults.
type Options struct {
	SpamThreshold int
	DefaultRadius float64
	MaxRadius     float64
	DefaultLimit  int
	MaxLimit      int
	SearchTimeout time.Duration
	MaxImageSize  int64
	Now           func() time.Time
	Logger        *zerolog.Logger
}

func (o Options) withDefaults() Options {
	if o.SpamThreshold <= 0 {
		o.SpamThreshold = DefaultSpamThreshold
	}
	if o.DefaultRadius <= 0 {
		o.DefaultRadius = DefaultSearchRadius
	}
	if o.MaxRadius <= 0 {
		o.MaxRadius = MaxSearchRadius
	}
	if o.DefaultLimit <= 0 {
		o.DefaultLimit = DefaultPageLimit
	}
	if o.MaxLimit <= 0 {
		o.MaxLimit = MaxPageLimit
	}
	if o.SearchTimeout <= 0 {
		o.SearchTimeout = DefaultSearchTimeout
	}
	if o.MaxImageSize <= 0 {
		o.MaxImageSize = DefaultMaxImageSize
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Logger == nil {
		nop := zerolog.Nop()
		o.Logger = &nop
	}
	return o
}
