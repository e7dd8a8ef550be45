package storycache

import (
	"context"
	"errors"
	"time"

	"github.com/gfw-api/story-api/internal/domain"
)

// TTL is how long a cached story stays visible, measured from the story's
// own creation timestamp. Expiry is a store-level mechanism: reads never
// see an expired row and the sweeper removes them physically.
const TTL = 24 * time.Hour

var ErrNotFound = errors.New("story not found in cache")

// Repository is the local read-through/write-through cache keyed by the
// remote store's story id. The cache is a projection of remote rows and
// never an independent source of truth.
type Repository interface {
	Get(ctx context.Context, id int) (*domain.Story, error)
	Upsert(ctx context.Context, story domain.Story) error
	GetAllByOwner(ctx context.Context, userID string) ([]domain.Story, error)
	DeleteByIDAndOwner(ctx context.Context, id int, userID string) (*domain.Story, error)
	DeleteAllByOwner(ctx context.Context, userID string) ([]domain.Story, error)
	Clear(ctx context.Context) error
	DeleteExpired(ctx context.Context) (int64, error)
}
