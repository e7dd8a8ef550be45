package domain

import "time"

// Media is a single story attachment. Order is caller supplied and kept
// as-is for display ordering.
type Media struct {
	Url        string `json:"url,omitempty"`
	EmbedUrl   string `json:"embedUrl,omitempty"`
	PreviewUrl string `json:"previewUrl,omitempty"`
	MimeType   string `json:"mimeType,omitempty"`
	Order      int    `json:"order"`
}

// Story is the canonical record shape. The id is assigned by the remote
// store and keys both the remote row and the cache entry. Nullable remote
// columns are pointers so the null/empty distinction survives round trips.
type Story struct {
	ID            int
	Name          *string
	Title         *string
	Details       *string
	Location      *string
	Email         *string
	Date          *time.Time
	CreatedAt     *time.Time
	UpdatedAt     *time.Time
	Visible       bool
	Lat           float64
	Lng           float64
	Media         []Media
	UserID        *string
	HideUser      bool
	PopulatedUser bool
}

// LoggedUser is the identity claim injected by the API gateway.
type LoggedUser struct {
	ID    string `json:"id"`
	Role  string `json:"role"`
	Email string `json:"email"`
}

const (
	RoleAdmin        = "ADMIN"
	RoleMicroservice = "MICROSERVICE"
)

// StoryData is the mutable payload for create and update operations.
type StoryData struct {
	Name       *string     `json:"name"`
	Title      *string     `json:"title"`
	Details    *string     `json:"details"`
	Location   *string     `json:"location"`
	Email      *string     `json:"email"`
	Date       *time.Time  `json:"date"`
	Visible    bool        `json:"visible"`
	Lat        *float64    `json:"lat"`
	Lng        *float64    `json:"lng"`
	Media      []Media     `json:"media"`
	HideUser   bool        `json:"hideUser"`
	UserID     *string     `json:"-"`
	LoggedUser *LoggedUser `json:"loggedUser"`
}

// Period is an inclusive event-date range filter.
type Period struct {
	Begin time.Time
	End   time.Time
}

// GeoFilter selects the area of interest for a filtered listing. At most
// one of the variants is honored, checked in field order.
type GeoFilter struct {
	Iso      string
	ID1      string
	WdpaID   string
	Use      string
	UseID    string
	Geostore string
}

// Empty reports whether no area filter was requested.
func (g GeoFilter) Empty() bool {
	return g.Iso == "" && g.WdpaID == "" && g.Use == "" && g.Geostore == ""
}

// StoryFilters carries every supported listing restriction.
type StoryFilters struct {
	Geo    GeoFilter
	Period *Period
	Fields []string
}
