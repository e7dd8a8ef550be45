package geostore

import (
	"context"
	"errors"

	"github.com/gfw-api/story-api/internal/domain"
)

var ErrGeostoreNotFound = errors.New("geostore not found")

// Client resolves an area-of-interest filter into a GeoJSON geometry via
// the geometry-resolution service. Resolve returns nil with no error when
// no area filter was requested so the spatial predicate is omitted
// downstream; a filter that resolves to no geometry is an error, never a
// silent fallback to an unfiltered listing.
type Client interface {
	Resolve(ctx context.Context, filter domain.GeoFilter) (*string, error)
}
