package cartoimpl

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gfw-api/story-api/internal/carto"
	"github.com/gfw-api/story-api/internal/domain"
	"github.com/gfw-api/story-api/pkg/config"
	"github.com/gfw-api/story-api/pkg/logger"
	"go.uber.org/fx"
)

type Opts struct {
	fx.In

	Config *config.Config
	Logger logger.Logger
}

type CartoImpl struct {
	httpClient *http.Client
	apiUrl     string
	apiKey     string
	table      string
	Logger     logger.Logger
}

func New(opts Opts) *CartoImpl {
	return &CartoImpl{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		apiUrl:     opts.Config.CartoApiUrl(),
		apiKey:     opts.Config.CartoDB.ApiKey,
		table:      opts.Config.CartoDB.Table,
		Logger:     opts.Logger.WithComponent("CartoClient"),
	}
}

var _ carto.Client = (*CartoImpl)(nil)

type sqlResponse struct {
	Rows  []carto.Row `json:"rows"`
	Error []string    `json:"error"`
}

// execute posts a fully rendered query to the SQL endpoint and decodes the
// row set. Retries are deliberately not done here.
func (c *CartoImpl) execute(ctx context.Context, query string) ([]carto.Row, error) {
	form := url.Values{}
	form.Set("q", query)
	form.Set("api_key", c.apiKey)
	form.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiUrl, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to build sql request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	c.Logger.Debug("Executing remote query", "query", query)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", carto.ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", carto.ErrUpstream, err)
	}

	if resp.StatusCode != http.StatusOK {
		c.Logger.Error("Remote store returned an error", "status", resp.StatusCode, "body", string(body))
		return nil, fmt.Errorf("%w: status %d", carto.ErrUpstream, resp.StatusCode)
	}

	var decoded sqlResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("%w: malformed response: %v", carto.ErrUpstream, err)
	}
	if len(decoded.Error) > 0 {
		return nil, fmt.Errorf("%w: %s", carto.ErrUpstream, strings.Join(decoded.Error, "; "))
	}

	return decoded.Rows, nil
}

func encodeMedia(media []domain.Media) (*string, error) {
	if media == nil {
		return nil, nil
	}
	raw, err := json.Marshal(media)
	if err != nil {
		return nil, fmt.Errorf("failed to encode media: %w", err)
	}
	encoded := string(raw)
	return &encoded, nil
}

func (c *CartoImpl) CreateStory(ctx context.Context, data *domain.StoryData) (*carto.Row, error) {
	mediaJSON, err := encodeMedia(data.Media)
	if err != nil {
		return nil, err
	}

	rows, err := c.execute(ctx, insertQuery(c.table, data, mediaJSON))
	if err != nil {
		return nil, err
	}
	if len(rows) != 1 {
		return nil, fmt.Errorf("%w: insert returned %d rows", carto.ErrUpstream, len(rows))
	}
	return &rows[0], nil
}

func (c *CartoImpl) UpdateStory(ctx context.Context, id int, data *domain.StoryData) (*carto.Row, error) {
	mediaJSON, err := encodeMedia(data.Media)
	if err != nil {
		return nil, err
	}

	rows, err := c.execute(ctx, updateQuery(c.table, id, data, mediaJSON))
	if err != nil {
		return nil, err
	}
	if len(rows) != 1 {
		return nil, carto.ErrNotFound
	}
	return &rows[0], nil
}

// GetStoryByID treats anything but an exact single-row result as not found.
func (c *CartoImpl) GetStoryByID(ctx context.Context, id int) (*carto.Row, error) {
	rows, err := c.execute(ctx, selectByIDQuery(c.table, id))
	if err != nil {
		return nil, err
	}
	if len(rows) != 1 {
		return nil, carto.ErrNotFound
	}
	return &rows[0], nil
}

func (c *CartoImpl) GetStories(ctx context.Context, geometry *string, period *domain.Period) ([]carto.Row, error) {
	return c.execute(ctx, selectFilteredQuery(c.table, geometry, period))
}

func (c *CartoImpl) GetStoriesByUser(ctx context.Context, userID string) ([]carto.Row, error) {
	return c.execute(ctx, selectByUserQuery(c.table, userID))
}

func (c *CartoImpl) DeleteStoryByID(ctx context.Context, id int) error {
	_, err := c.execute(ctx, deleteQuery(c.table, id))
	return err
}
