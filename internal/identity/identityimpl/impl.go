package identityimpl

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/gfw-api/story-api/internal/identity"
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

type IdentityImpl struct {
	httpClient *http.Client
	gatewayUrl string
	Logger     logger.Logger
}

func New(opts Opts) *IdentityImpl {
	return &IdentityImpl{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		gatewayUrl: opts.Config.Gateway.Url,
		Logger:     opts.Logger.WithComponent("IdentityClient"),
	}
}

var _ identity.Client = (*IdentityImpl)(nil)

// userDocument is the JSON:API user payload returned by the gateway.
type userDocument struct {
	Data struct {
		ID         string `json:"id"`
		Attributes struct {
			Name     string `json:"name"`
			Email    string `json:"email"`
			Role     string `json:"role"`
			Language string `json:"language"`
		} `json:"attributes"`
	} `json:"data"`
}

func (c *IdentityImpl) GetUserByID(ctx context.Context, id string) (*identity.User, error) {
	endpoint := fmt.Sprintf("%s/auth/user/%s", c.gatewayUrl, url.PathEscape(id))
	c.Logger.Debug("Obtaining user", "endpoint", endpoint)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build user request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: user request: %v", errors.ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, identity.ErrUserNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: identity service status %d", errors.ErrUpstream, resp.StatusCode)
	}

	var doc userDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: malformed user response: %v", errors.ErrUpstream, err)
	}
	if doc.Data.ID == "" {
		return nil, identity.ErrUserNotFound
	}

	return &identity.User{
		ID:       doc.Data.ID,
		Name:     doc.Data.Attributes.Name,
		Email:    doc.Data.Attributes.Email,
		Role:     doc.Data.Attributes.Role,
		Language: doc.Data.Attributes.Language,
	}, nil
}
