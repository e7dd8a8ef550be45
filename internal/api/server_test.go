package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gfw-api/story-api/internal/domain"
	"github.com/gfw-api/story-api/internal/ratelimit"
	"github.com/gfw-api/story-api/internal/serializer"
	"github.com/gfw-api/story-api/pkg/config"
	"github.com/gfw-api/story-api/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

type fakeStory struct {
	created     *domain.StoryData
	createdResp *domain.Story
	story       *domain.Story
	stories     []domain.Story
	filters     domain.StoryFilters
	updated     *domain.StoryData
	updatedResp *domain.Story
	removed     *domain.Story
	removedID   int
	removedUser string
	deletedUser string
	deleted     []domain.Story
	err         error
}

func (f *fakeStory) Create(_ context.Context, data *domain.StoryData) (*domain.Story, error) {
	f.created = data
	return f.createdResp, f.err
}

func (f *fakeStory) GetByID(context.Context, int) (*domain.Story, error) {
	return f.story, f.err
}

func (f *fakeStory) GetAll(_ context.Context, filters domain.StoryFilters) ([]domain.Story, error) {
	f.filters = filters
	return f.stories, f.err
}

func (f *fakeStory) GetByUser(context.Context, string) ([]domain.Story, error) {
	return f.stories, f.err
}

func (f *fakeStory) Update(_ context.Context, _ int, data *domain.StoryData) (*domain.Story, error) {
	f.updated = data
	return f.updatedResp, f.err
}

func (f *fakeStory) DeleteByID(_ context.Context, id int, userID string) (*domain.Story, error) {
	f.removedID = id
	f.removedUser = userID
	return f.removed, f.err
}

func (f *fakeStory) DeleteByUser(_ context.Context, userID string) ([]domain.Story, error) {
	f.deletedUser = userID
	return f.deleted, f.err
}

func newTestServer(story *fakeStory) http.Handler {
	cfg := &config.Config{}
	server := New(Opts{
		Config:  cfg,
		Logger:  logger.New(logger.Opts{}),
		Story:   story,
		Limiter: ratelimit.NewInMemoryLimiter(100, time.Second, 100),
	})
	return server.Handler()
}

func identityHeader(t *testing.T, user domain.LoggedUser) string {
	t.Helper()
	raw, err := json.Marshal(user)
	require.NoError(t, err)
	return string(raw)
}

func decodeErrors(t *testing.T, rec *httptest.ResponseRecorder) serializer.ErrorDocument {
	t.Helper()
	var doc serializer.ErrorDocument
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	return doc
}

func TestHealthz(t *testing.T) {
	handler := newTestServer(&fakeStory{})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestGetStoriesPassesFilters(t *testing.T) {
	story := &fakeStory{stories: []domain.Story{{ID: 1, Title: strPtr("a")}}}
	handler := newTestServer(story)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
		"/api/v1/story?iso=BRA&id1=2&period=2020-01-01,2020-12-31&fields=title,lat", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "BRA", story.filters.Geo.Iso)
	assert.Equal(t, "2", story.filters.Geo.ID1)
	require.NotNil(t, story.filters.Period)
	assert.Equal(t, []string{"title", "lat"}, story.filters.Fields)

	var doc serializer.ListDocument
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	require.Len(t, doc.Data, 1)
	assert.Equal(t, "1", doc.Data[0].ID)
	assert.Contains(t, doc.Data[0].Attributes, "title")
	assert.NotContains(t, doc.Data[0].Attributes, "visible")
}

func TestGetStoriesBadPeriodIsBadRequest(t *testing.T) {
	handler := newTestServer(&fakeStory{})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/story?period=2020-01-01", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetStoryByIDNotFound(t *testing.T) {
	handler := newTestServer(&fakeStory{})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/story/234", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	doc := decodeErrors(t, rec)
	require.Len(t, doc.Errors, 1)
	assert.Equal(t, "Story not found", doc.Errors[0].Detail)
}

func TestGetStoryByIDBadID(t *testing.T) {
	handler := newTestServer(&fakeStory{})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/story/abc", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateStoryRequiresCoordinates(t *testing.T) {
	handler := newTestServer(&fakeStory{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/story",
		strings.NewReader(`{"title":"no point"}`))
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateStoryStampsGatewayIdentityOverBody(t *testing.T) {
	story := &fakeStory{createdResp: &domain.Story{ID: 300, Title: strPtr("story title")}}
	handler := newTestServer(story)

	body := `{"title":"story title","lat":20.12345,"lng":-48.23456,"loggedUser":{"id":"spoofed"}}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/story", strings.NewReader(body))
	req.Header.Set("x-logged-user", identityHeader(t, domain.LoggedUser{ID: "user-1", Email: "jane@example.com"}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, story.created)
	require.NotNil(t, story.created.LoggedUser)
	assert.Equal(t, "user-1", story.created.LoggedUser.ID)
}

func TestUpdateStoryRequiresIdentity(t *testing.T) {
	handler := newTestServer(&fakeStory{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/api/v1/story/5", strings.NewReader(`{}`))
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUpdateStoryRequiresCoordinates(t *testing.T) {
	handler := newTestServer(&fakeStory{})

	req := httptest.NewRequest(http.MethodPut, "/api/v1/story/5", strings.NewReader(`{"title":"x"}`))
	req.Header.Set("x-logged-user", identityHeader(t, domain.LoggedUser{ID: "user-1"}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateStoryNotOwnedIsNotFound(t *testing.T) {
	handler := newTestServer(&fakeStory{})

	req := httptest.NewRequest(http.MethodPut, "/api/v1/story/5",
		strings.NewReader(`{"title":"x","lat":1.5,"lng":-2.5}`))
	req.Header.Set("x-logged-user", identityHeader(t, domain.LoggedUser{ID: "user-1"}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteStoryUsesGatewayIdentity(t *testing.T) {
	story := &fakeStory{removed: &domain.Story{ID: 5, UserID: strPtr("user-1")}}
	handler := newTestServer(story)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/story/5", nil)
	req.Header.Set("x-logged-user", identityHeader(t, domain.LoggedUser{ID: "user-1"}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, story.removedID)
	assert.Equal(t, "user-1", story.removedUser)
}

func TestDeleteStoriesByUserForbiddenForStrangers(t *testing.T) {
	handler := newTestServer(&fakeStory{})

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/story/by-user/other-user", nil)
	req.Header.Set("x-logged-user", identityHeader(t, domain.LoggedUser{ID: "user-1", Role: "USER"}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestDeleteStoriesByUserAllowedForAdmin(t *testing.T) {
	story := &fakeStory{deleted: []domain.Story{{ID: 1}}}
	handler := newTestServer(story)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/story/by-user/other-user", nil)
	req.Header.Set("x-logged-user", identityHeader(t, domain.LoggedUser{ID: "admin-1", Role: domain.RoleAdmin}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "other-user", story.deletedUser)
}

func TestDeleteStoriesByUserAllowedForSelf(t *testing.T) {
	story := &fakeStory{}
	handler := newTestServer(story)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/story/by-user/user-1", nil)
	req.Header.Set("x-logged-user", identityHeader(t, domain.LoggedUser{ID: "user-1", Role: "USER"}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-1", story.deletedUser)
}

func TestIdentityFromQueryParameter(t *testing.T) {
	story := &fakeStory{removed: &domain.Story{ID: 9, UserID: strPtr("user-1")}}
	handler := newTestServer(story)

	claim := identityHeader(t, domain.LoggedUser{ID: "user-1"})
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/story/9?loggedUser="+url.QueryEscape(claim), nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-1", story.removedUser)
}

func TestMalformedIdentityClaimIsAnonymous(t *testing.T) {
	handler := newTestServer(&fakeStory{})

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/story/9", nil)
	req.Header.Set("x-logged-user", "{not json")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRateLimitOnMutatingRoutes(t *testing.T) {
	story := &fakeStory{removed: &domain.Story{ID: 1, UserID: strPtr("user-1")}}
	cfg := &config.Config{}
	server := New(Opts{
		Config:  cfg,
		Logger:  logger.New(logger.Opts{}),
		Story:   story,
		Limiter: ratelimit.NewInMemoryLimiter(1, time.Hour, 1),
	})
	handler := server.Handler()

	claim := identityHeader(t, domain.LoggedUser{ID: "user-1"})

	first := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/story/1", nil)
	req.Header.Set("x-logged-user", claim)
	handler.ServeHTTP(first, req)
	require.Equal(t, http.StatusOK, first.Code)

	second := httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodDelete, "/api/v1/story/1", nil)
	req.Header.Set("x-logged-user", claim)
	handler.ServeHTTP(second, req)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}
