package sweeper

import (
	"context"
	"testing"
	"time"

	"github.com/gfw-api/story-api/internal/domain"
	"github.com/gfw-api/story-api/internal/repositories/storycache"
	"github.com/gfw-api/story-api/pkg/logger"
	"github.com/stretchr/testify/require"
)

type fakeCache struct {
	sweeps chan struct{}
}

func (f *fakeCache) Get(context.Context, int) (*domain.Story, error) {
	return nil, storycache.ErrNotFound
}

func (f *fakeCache) Upsert(context.Context, domain.Story) error { return nil }

func (f *fakeCache) GetAllByOwner(context.Context, string) ([]domain.Story, error) {
	return nil, nil
}

func (f *fakeCache) DeleteByIDAndOwner(context.Context, int, string) (*domain.Story, error) {
	return nil, storycache.ErrNotFound
}

func (f *fakeCache) DeleteAllByOwner(context.Context, string) ([]domain.Story, error) {
	return nil, nil
}

func (f *fakeCache) Clear(context.Context) error { return nil }

func (f *fakeCache) DeleteExpired(context.Context) (int64, error) {
	f.sweeps <- struct{}{}
	return 1, nil
}

func TestScheduleSweepsAndStopsOnCancel(t *testing.T) {
	cache := &fakeCache{sweeps: make(chan struct{}, 64)}
	sweeper := New(Opts{
		Cache:  cache,
		Logger: logger.New(logger.Opts{}),
	})
	sweeper.interval = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, sweeper.Schedule(ctx))

	select {
	case <-cache.sweeps:
	case <-time.After(2 * time.Second):
		t.Fatal("expected an expiry sweep")
	}

	cancel()

	// Drain in-flight sweeps, then require a quiet period long enough that
	// a still-running scheduler would have fired many times over.
	deadline := time.After(2 * time.Second)
	for {
		select {
		case <-cache.sweeps:
		case <-time.After(300 * time.Millisecond):
			return
		case <-deadline:
			t.Fatal("sweeps kept firing after cancel")
		}
	}
}
