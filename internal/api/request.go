package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gfw-api/story-api/internal/domain"
)

const dateLayout = "2006-01-02"

func parseFields(r *http.Request) []string {
	raw := r.URL.Query().Get("fields")
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	fields := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			fields = append(fields, trimmed)
		}
	}
	return fields
}

// parsePeriod reads the comma-separated begin,end date pair.
func parsePeriod(raw string) (*domain.Period, error) {
	if raw == "" {
		return nil, nil
	}
	parts := strings.SplitN(raw, ",", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("period must be begin,end")
	}

	begin, err := parseDate(strings.TrimSpace(parts[0]))
	if err != nil {
		return nil, fmt.Errorf("invalid period begin: %w", err)
	}
	end, err := parseDate(strings.TrimSpace(parts[1]))
	if err != nil {
		return nil, fmt.Errorf("invalid period end: %w", err)
	}
	if end.Before(begin) {
		return nil, fmt.Errorf("period end before begin")
	}

	return &domain.Period{Begin: begin, End: end}, nil
}

func parseDate(raw string) (time.Time, error) {
	if t, err := time.Parse(dateLayout, raw); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, raw)
}

func parseFilters(r *http.Request) (domain.StoryFilters, error) {
	q := r.URL.Query()

	period, err := parsePeriod(q.Get("period"))
	if err != nil {
		return domain.StoryFilters{}, err
	}

	// Half-specified area filters never resolve to a geostore path, so
	// they fail here instead of producing a bogus resolution request.
	if q.Get("use") != "" && q.Get("useid") == "" {
		return domain.StoryFilters{}, fmt.Errorf("use filter requires useid")
	}
	if q.Get("id1") != "" && q.Get("iso") == "" {
		return domain.StoryFilters{}, fmt.Errorf("id1 filter requires iso")
	}

	return domain.StoryFilters{
		Geo: domain.GeoFilter{
			Iso:      q.Get("iso"),
			ID1:      q.Get("id1"),
			WdpaID:   q.Get("wdpaid"),
			Use:      q.Get("use"),
			UseID:    q.Get("useid"),
			Geostore: q.Get("geostore"),
		},
		Period: period,
		Fields: parseFields(r),
	}, nil
}

func parseStoryID(r *http.Request) (int, error) {
	raw := r.PathValue("id")
	id, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid story id %q", raw)
	}
	return id, nil
}
