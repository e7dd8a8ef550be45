package storyimpl

import (
	"context"
	"errors"
	"fmt"

	"github.com/gfw-api/story-api/internal/carto"
	"github.com/gfw-api/story-api/internal/domain"
	"github.com/gfw-api/story-api/internal/geostore"
	"github.com/gfw-api/story-api/internal/identity"
	"github.com/gfw-api/story-api/internal/mail"
	"github.com/gfw-api/story-api/internal/repositories/storycache"
	"github.com/gfw-api/story-api/internal/story"
	"github.com/gfw-api/story-api/pkg/config"
	pkgerrors "github.com/gfw-api/story-api/pkg/errors"
	"github.com/gfw-api/story-api/pkg/logger"
	"go.uber.org/fx"
)

type Opts struct {
	fx.In

	Carto    carto.Client
	Cache    storycache.Repository
	Geostore geostore.Client
	Identity identity.Client
	Mail     mail.Client
	Logger   logger.Logger
	Config   *config.Config
}

type StoryImpl struct {
	Carto    carto.Client
	Cache    storycache.Repository
	Geostore geostore.Client
	Identity identity.Client
	Mail     mail.Client
	Logger   logger.Logger
	Config   *config.Config
}

func New(opts Opts) *StoryImpl {
	return &StoryImpl{
		Carto:    opts.Carto,
		Cache:    opts.Cache,
		Geostore: opts.Geostore,
		Identity: opts.Identity,
		Mail:     opts.Mail,
		Logger:   opts.Logger.WithComponent("StoryService"),
		Config:   opts.Config,
	}
}

var _ story.Client = (*StoryImpl)(nil)

// applyIdentity stamps ownership onto the payload and force-clears the
// author's name and email when they asked to be hidden, before anything
// is persisted.
func applyIdentity(data *domain.StoryData) {
	if data.LoggedUser == nil {
		return
	}
	userID := data.LoggedUser.ID
	data.UserID = &userID
	if data.HideUser {
		data.Name = nil
		data.Email = nil
	}
}

func (s *StoryImpl) Create(ctx context.Context, data *domain.StoryData) (*domain.Story, error) {
	if data.Lat == nil || data.Lng == nil {
		return nil, fmt.Errorf("%w: lat and lng are required", pkgerrors.ErrInvalidInput)
	}

	if data.LoggedUser != nil && data.HideUser {
		s.Logger.Info("Hide user requested, removing name and email")
	}
	applyIdentity(data)

	row, err := s.Carto.CreateStory(ctx, data)
	if err != nil {
		return nil, err
	}

	created, err := carto.ToStory(row)
	if err != nil {
		return nil, err
	}

	s.Logger.Debug("Saving new story in cache", "id", created.ID)
	if err := s.Cache.Upsert(ctx, created); err != nil {
		return nil, err
	}

	// Notifications are decided after the transactional result and can
	// never affect the response.
	loggedUser := data.LoggedUser
	go s.notifyCreated(context.WithoutCancel(ctx), &created, loggedUser)

	return &created, nil
}

// notifyCreated sends the author a localized confirmation when an identity
// is present and always notifies the operational recipient list. Failures
// are logged and swallowed.
func (s *StoryImpl) notifyCreated(ctx context.Context, created *domain.Story, loggedUser *domain.LoggedUser) {
	if loggedUser != nil {
		language := s.lookupLanguage(ctx, loggedUser.ID)
		template := fmt.Sprintf("%s-%s", s.Config.Mail.StoryTemplate, language)

		name := ""
		if created.Name != nil {
			name = *created.Name
		}

		err := s.Mail.SendMail(ctx, template, map[string]any{
			"name":      name,
			"story_url": s.Config.Mail.MyStoriesUrl,
		}, []mail.Recipient{{Address: loggedUser.Email}})
		if err != nil {
			s.Logger.Error("Failed to send confirmation mail", "error", err)
		}
	}

	recipients := s.Config.WriRecipientList()
	if len(recipients) == 0 {
		s.Logger.Warn("No operational mail recipients configured")
		return
	}
	addresses := make([]mail.Recipient, 0, len(recipients))
	for _, r := range recipients {
		addresses = append(addresses, mail.Recipient{Address: r})
	}

	err := s.Mail.SendMail(ctx, s.Config.Mail.WriTemplate, map[string]any{
		"story_url": fmt.Sprintf("%s%d", s.Config.Mail.StoryDetailUrl, created.ID),
	}, addresses)
	if err != nil {
		s.Logger.Error("Failed to send operational mail", "error", err)
	}
}

// lookupLanguage asks the identity service for the author's language
// preference. Best-effort: any failure falls back to english.
func (s *StoryImpl) lookupLanguage(ctx context.Context, userID string) string {
	user, err := s.Identity.GetUserByID(ctx, userID)
	if err != nil {
		s.Logger.Error("Failed to obtain user for mail localization", "user_id", userID, "error", err)
		return "en"
	}
	if user.Language == "" {
		return "en"
	}
	return normalizeLanguage(user.Language)
}

func (s *StoryImpl) GetByID(ctx context.Context, id int) (*domain.Story, error) {
	s.Logger.Debug("Searching story in cache", "id", id)

	cached, err := s.Cache.Get(ctx, id)
	if err == nil {
		s.Logger.Debug("Found in cache, returning", "id", id)
		return cached, nil
	}
	if !errors.Is(err, storycache.ErrNotFound) {
		return nil, err
	}

	s.Logger.Debug("Not in cache, obtaining from remote store", "id", id)
	row, err := s.Carto.GetStoryByID(ctx, id)
	if err != nil {
		if errors.Is(err, carto.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	fetched, err := carto.ToStory(row)
	if err != nil {
		return nil, err
	}
	if err := s.Cache.Upsert(ctx, fetched); err != nil {
		return nil, err
	}

	return &fetched, nil
}

// GetAll lists visible stories for the resolved filters and then replaces
// the whole cache with the result set. Best-effort consistency: concurrent
// writers may interleave with the clear and repopulate.
func (s *StoryImpl) GetAll(ctx context.Context, filters domain.StoryFilters) ([]domain.Story, error) {
	geometry, err := s.Geostore.Resolve(ctx, filters.Geo)
	if err != nil {
		if errors.Is(err, geostore.ErrGeostoreNotFound) {
			return nil, fmt.Errorf("%w: geostore did not resolve", pkgerrors.ErrNotFound)
		}
		return nil, err
	}

	rows, err := s.Carto.GetStories(ctx, geometry, filters.Period)
	if err != nil {
		return nil, err
	}

	stories, err := carto.ToStories(rows)
	if err != nil {
		return nil, err
	}

	s.Logger.Debug("Replacing cache with listing result", "count", len(stories))
	if err := s.Cache.Clear(ctx); err != nil {
		return nil, err
	}
	for i := range stories {
		if err := s.Cache.Upsert(ctx, stories[i]); err != nil {
			return nil, err
		}
	}

	return stories, nil
}

func (s *StoryImpl) GetByUser(ctx context.Context, userID string) ([]domain.Story, error) {
	rows, err := s.Carto.GetStoriesByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return carto.ToStories(rows)
}

func (s *StoryImpl) Update(ctx context.Context, id int, data *domain.StoryData) (*domain.Story, error) {
	if data.LoggedUser == nil {
		return nil, fmt.Errorf("%w: update requires an authenticated user", pkgerrors.ErrUnauthorized)
	}
	if data.Lat == nil || data.Lng == nil {
		return nil, fmt.Errorf("%w: lat and lng are required", pkgerrors.ErrInvalidInput)
	}
	if data.HideUser {
		s.Logger.Info("Hide user requested, removing name and email")
	}
	applyIdentity(data)

	row, err := s.Carto.UpdateStory(ctx, id, data)
	if err != nil {
		if errors.Is(err, carto.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	updated, err := carto.ToStory(row)
	if err != nil {
		return nil, err
	}

	// Never patch the cache in place: drop any prior entry and rewrite it
	// from the updated remote row.
	if _, err := s.Cache.DeleteByIDAndOwner(ctx, id, *data.UserID); err != nil && !errors.Is(err, storycache.ErrNotFound) {
		return nil, err
	}
	if err := s.Cache.Upsert(ctx, updated); err != nil {
		return nil, err
	}

	return &updated, nil
}

// DeleteByID removes the caller's cached story and issues the remote
// delete. The remote delete is not owner-conditioned; the ownership check
// lives in the cache lookup.
func (s *StoryImpl) DeleteByID(ctx context.Context, id int, userID string) (*domain.Story, error) {
	removed, err := s.Cache.DeleteByIDAndOwner(ctx, id, userID)
	if err != nil && !errors.Is(err, storycache.ErrNotFound) {
		return nil, err
	}

	if err := s.Carto.DeleteStoryByID(ctx, id); err != nil {
		return nil, err
	}

	if removed == nil {
		return nil, nil
	}
	return removed, nil
}

// DeleteByUser removes every cached story the user owns, one remote delete
// then one cache delete per record. The loop aborts on the first remote
// failure: earlier deletions stand, and the failed record stays cached so
// a retry still finds it.
func (s *StoryImpl) DeleteByUser(ctx context.Context, userID string) ([]domain.Story, error) {
	if _, err := s.Identity.GetUserByID(ctx, userID); err != nil {
		if errors.Is(err, identity.ErrUserNotFound) {
			return nil, fmt.Errorf("%w: user %s", pkgerrors.ErrNotFound, userID)
		}
		return nil, err
	}

	owned, err := s.Cache.GetAllByOwner(ctx, userID)
	if err != nil {
		return nil, err
	}

	deleted := make([]domain.Story, 0, len(owned))
	for i := range owned {
		if err := s.Carto.DeleteStoryByID(ctx, owned[i].ID); err != nil {
			return nil, fmt.Errorf("failed to delete story %d remotely: %w", owned[i].ID, err)
		}
		if _, err := s.Cache.DeleteByIDAndOwner(ctx, owned[i].ID, userID); err != nil && !errors.Is(err, storycache.ErrNotFound) {
			return nil, err
		}
		deleted = append(deleted, owned[i])
	}

	return deleted, nil
}
