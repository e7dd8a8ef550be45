package cartoimpl

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gfw-api/story-api/internal/carto"
	"github.com/gfw-api/story-api/internal/domain"
	"github.com/gfw-api/story-api/pkg/config"
	"github.com/gfw-api/story-api/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*CartoImpl, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := &config.Config{}
	cfg.CartoDB.ApiUrl = server.URL
	cfg.CartoDB.ApiKey = "test-key"
	cfg.CartoDB.Table = "story_test"

	client := New(Opts{
		Config: cfg,
		Logger: logger.New(logger.Opts{}),
	})
	return client, server
}

func TestGetStoryByIDSingleRow(t *testing.T) {
	var gotQuery, gotKey string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotQuery = r.FormValue("q")
		gotKey = r.FormValue("api_key")
		w.Write([]byte(`{"rows":[{"id":234,"lat":20.1,"lng":-48.2,"title":"story title","visible":true,"hide_user":false}]}`))
	})

	row, err := client.GetStoryByID(context.Background(), 234)
	require.NoError(t, err)

	assert.Equal(t, 234, row.ID)
	assert.Equal(t, 20.1, row.Lat)
	require.NotNil(t, row.Title)
	assert.Equal(t, "story title", *row.Title)
	assert.Contains(t, gotQuery, "WHERE cartodb_id = 234")
	assert.Equal(t, "test-key", gotKey)
}

func TestGetStoryByIDEmptyResultIsNotFound(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"rows":[]}`))
	})

	_, err := client.GetStoryByID(context.Background(), 1)
	assert.ErrorIs(t, err, carto.ErrNotFound)
}

func TestGetStoryByIDMultipleRowsIsNotFound(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"rows":[{"id":1},{"id":2}]}`))
	})

	_, err := client.GetStoryByID(context.Background(), 1)
	assert.ErrorIs(t, err, carto.ErrNotFound)
}

func TestExecuteUpstreamStatusError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.GetStories(context.Background(), nil, nil)
	assert.ErrorIs(t, err, carto.ErrUpstream)
}

func TestExecuteUpstreamBodyError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":["syntax error at or near \"FROM\""]}`))
	})

	_, err := client.GetStories(context.Background(), nil, nil)
	require.ErrorIs(t, err, carto.ErrUpstream)
	assert.Contains(t, err.Error(), "syntax error")
}

func TestCreateStorySendsInsertAndReturnsEcho(t *testing.T) {
	var gotQuery string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotQuery = r.FormValue("q")
		w.Write([]byte(`{"rows":[{"id":300,"lat":20.12345,"lng":-48.23456,"title":"story title","visible":false,"hide_user":false}]}`))
	})

	row, err := client.CreateStory(context.Background(), &domain.StoryData{
		Title: strPtr("story title"),
		Lat:   f64Ptr(20.12345),
		Lng:   f64Ptr(-48.23456),
	})
	require.NoError(t, err)

	assert.Equal(t, 300, row.ID)
	assert.False(t, row.Visible)
	assert.Contains(t, gotQuery, "INSERT INTO story_test")
	assert.Contains(t, gotQuery, "'story title'")
}

func TestUpdateStoryNoRowIsNotFound(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"rows":[]}`))
	})

	_, err := client.UpdateStory(context.Background(), 42, &domain.StoryData{
		UserID: strPtr("someone-else"),
		Lat:    f64Ptr(1),
		Lng:    f64Ptr(2),
	})
	assert.ErrorIs(t, err, carto.ErrNotFound)
}

func TestDeleteStoryByID(t *testing.T) {
	var gotQuery string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotQuery = r.FormValue("q")
		w.Write([]byte(`{"rows":[]}`))
	})

	require.NoError(t, client.DeleteStoryByID(context.Background(), 7))
	assert.Equal(t, "DELETE FROM story_test WHERE cartodb_id = 7", gotQuery)
}
