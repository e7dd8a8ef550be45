package geostoreimpl

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/gfw-api/story-api/internal/domain"
	"github.com/gfw-api/story-api/internal/geostore"
	"github.com/gfw-api/story-api/pkg/config"
	"github.com/gfw-api/story-api/pkg/errors"
	"github.com/gfw-api/story-api/pkg/logger"
	"go.uber.org/fx"
)

type Opts struct {
	fx.In

	Config *config.Config
	Logger logger.Logger
}

type GeostoreImpl struct {
	httpClient *http.Client
	baseUrl    string
	Logger     logger.Logger
}

func New(opts Opts) *GeostoreImpl {
	return &GeostoreImpl{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseUrl:    opts.Config.Geostore.Url,
		Logger:     opts.Logger.WithComponent("GeostoreClient"),
	}
}

var _ geostore.Client = (*GeostoreImpl)(nil)

// geostoreDocument is the JSON:API shaped payload of the resolution
// service. Only the geometry of the first feature matters here.
type geostoreDocument struct {
	Data struct {
		ID         string `json:"id"`
		Attributes struct {
			GeoJSON struct {
				Features []struct {
					Geometry json.RawMessage `json:"geometry"`
				} `json:"features"`
			} `json:"geojson"`
		} `json:"attributes"`
	} `json:"data"`
}

// path maps the filter variants to resolution endpoints, checked in the
// same precedence order the listing endpoint documents.
func path(filter domain.GeoFilter) string {
	switch {
	case filter.Iso != "" && filter.ID1 != "":
		return fmt.Sprintf("/geostore/admin/%s/%s", url.PathEscape(filter.Iso), url.PathEscape(filter.ID1))
	case filter.Iso != "":
		return fmt.Sprintf("/geostore/admin/%s", url.PathEscape(filter.Iso))
	case filter.WdpaID != "":
		return fmt.Sprintf("/geostore/wdpa/%s", url.PathEscape(filter.WdpaID))
	case filter.Use != "" && filter.UseID != "":
		return fmt.Sprintf("/geostore/use/%s/%s", url.PathEscape(filter.Use), url.PathEscape(filter.UseID))
	default:
		return fmt.Sprintf("/geostore/%s", url.PathEscape(filter.Geostore))
	}
}

func (g *GeostoreImpl) Resolve(ctx context.Context, filter domain.GeoFilter) (*string, error) {
	if filter.Empty() {
		return nil, nil
	}

	endpoint := g.baseUrl + path(filter)
	g.Logger.Debug("Resolving geostore filter", "endpoint", endpoint)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build geostore request: %w", err)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: geostore request: %v", errors.ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, geostore.ErrGeostoreNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: geostore status %d", errors.ErrUpstream, resp.StatusCode)
	}

	var doc geostoreDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: malformed geostore response: %v", errors.ErrUpstream, err)
	}

	features := doc.Data.Attributes.GeoJSON.Features
	if len(features) == 0 || len(features[0].Geometry) == 0 {
		return nil, geostore.ErrGeostoreNotFound
	}

	geometry := string(features[0].Geometry)
	return &geometry, nil
}
