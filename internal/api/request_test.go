package api

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFields(t *testing.T) {
	req := httptest.NewRequest("GET", "/api/v1/story?fields=title,%20lat%20,,lng", nil)
	assert.Equal(t, []string{"title", "lat", "lng"}, parseFields(req))

	req = httptest.NewRequest("GET", "/api/v1/story", nil)
	assert.Nil(t, parseFields(req))
}

func TestParsePeriod(t *testing.T) {
	period, err := parsePeriod("2020-01-01,2020-12-31")
	require.NoError(t, err)
	require.NotNil(t, period)
	assert.Equal(t, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), period.Begin)
	assert.Equal(t, time.Date(2020, 12, 31, 0, 0, 0, 0, time.UTC), period.End)
}

func TestParsePeriodAcceptsRFC3339(t *testing.T) {
	period, err := parsePeriod("2020-01-01T12:00:00Z,2020-01-02T12:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, 12, period.Begin.Hour())
}

func TestParsePeriodEmpty(t *testing.T) {
	period, err := parsePeriod("")
	require.NoError(t, err)
	assert.Nil(t, period)
}

func TestParsePeriodRejectsSingleDate(t *testing.T) {
	_, err := parsePeriod("2020-01-01")
	assert.Error(t, err)
}

func TestParsePeriodRejectsInvertedRange(t *testing.T) {
	_, err := parsePeriod("2020-12-31,2020-01-01")
	assert.Error(t, err)
}

func TestParseFiltersRejectsHalfSpecifiedAreas(t *testing.T) {
	req := httptest.NewRequest("GET", "/api/v1/story?use=logging", nil)
	_, err := parseFilters(req)
	assert.Error(t, err)

	req = httptest.NewRequest("GET", "/api/v1/story?id1=2", nil)
	_, err = parseFilters(req)
	assert.Error(t, err)

	req = httptest.NewRequest("GET", "/api/v1/story?use=logging&useid=5&iso=BRA&id1=2", nil)
	filters, err := parseFilters(req)
	require.NoError(t, err)
	assert.Equal(t, "logging", filters.Geo.Use)
	assert.Equal(t, "BRA", filters.Geo.Iso)
}

func TestParseStoryID(t *testing.T) {
	req := httptest.NewRequest("GET", "/api/v1/story/234", nil)
	req.SetPathValue("id", "234")

	id, err := parseStoryID(req)
	require.NoError(t, err)
	assert.Equal(t, 234, id)

	req.SetPathValue("id", "abc")
	_, err = parseStoryID(req)
	assert.Error(t, err)
}
