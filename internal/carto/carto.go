package carto

import (
	"context"
	"errors"
	"time"

	"github.com/gfw-api/story-api/internal/domain"
)

// Row is the remote store's row shape: geometry decomposed into lat/lng,
// snake_case text columns and media as JSON-encoded text.
type Row struct {
	Lat       float64    `json:"lat"`
	Lng       float64    `json:"lng"`
	Details   *string    `json:"details"`
	Email     *string    `json:"email"`
	CreatedAt *time.Time `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at"`
	Name      *string    `json:"name"`
	Title     *string    `json:"title"`
	Visible   bool       `json:"visible"`
	Date      *time.Time `json:"date"`
	Location  *string    `json:"location"`
	ID        int        `json:"id"`
	Media     *string    `json:"media"`
	UserID    *string    `json:"user_id"`
	HideUser  bool       `json:"hide_user"`
}

var (
	ErrNotFound = errors.New("story not found in remote store")
	ErrUpstream = errors.New("remote store failure")
)

// Client executes story operations against the remote geospatial store.
// No retries happen at this level; upstream failures propagate tagged
// with ErrUpstream.
type Client interface {
	CreateStory(ctx context.Context, data *domain.StoryData) (*Row, error)
	UpdateStory(ctx context.Context, id int, data *domain.StoryData) (*Row, error)
	GetStoryByID(ctx context.Context, id int) (*Row, error)
	GetStories(ctx context.Context, geometry *string, period *domain.Period) ([]Row, error)
	GetStoriesByUser(ctx context.Context, userID string) ([]Row, error)
	DeleteStoryByID(ctx context.Context, id int) error
}
