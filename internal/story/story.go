package story

import (
	"context"

	"github.com/gfw-api/story-api/internal/domain"
)

// Client orchestrates story reads and writes across the remote store and
// the local cache, and dispatches notifications on creation. A nil story
// with a nil error means not-found; the API layer turns that into a 404.
type Client interface {
	Create(ctx context.Context, data *domain.StoryData) (*domain.Story, error)
	GetByID(ctx context.Context, id int) (*domain.Story, error)
	GetAll(ctx context.Context, filters domain.StoryFilters) ([]domain.Story, error)
	GetByUser(ctx context.Context, userID string) ([]domain.Story, error)
	Update(ctx context.Context, id int, data *domain.StoryData) (*domain.Story, error)
	DeleteByID(ctx context.Context, id int, userID string) (*domain.Story, error)
	DeleteByUser(ctx context.Context, userID string) ([]domain.Story, error)
}
