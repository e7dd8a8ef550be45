package carto

import (
	"encoding/json"
	"fmt"

	"github.com/gfw-api/story-api/internal/domain"
)

// ToStory converts a remote row into the canonical shape. A nil row maps
// to the zero Story for callers passing through a possibly-missing row.
// Malformed media JSON is fatal to the operation and propagates.
func ToStory(row *Row) (domain.Story, error) {
	if row == nil {
		return domain.Story{}, nil
	}

	story := domain.Story{
		ID:        row.ID,
		Name:      row.Name,
		Title:     row.Title,
		Details:   row.Details,
		Location:  row.Location,
		Email:     row.Email,
		Date:      row.Date,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
		Visible:   row.Visible,
		Lat:       row.Lat,
		Lng:       row.Lng,
		HideUser:  row.HideUser,
	}

	if row.Media != nil {
		var media []domain.Media
		if err := json.Unmarshal([]byte(*row.Media), &media); err != nil {
			return domain.Story{}, fmt.Errorf("failed to parse media column for story %d: %w", row.ID, err)
		}
		story.Media = media
	}

	// The owner only travels with the record when the author did not ask
	// to be hidden.
	if !row.HideUser {
		story.UserID = row.UserID
	}

	return story, nil
}

// ToStories converts a result set, dropping nothing.
func ToStories(rows []Row) ([]domain.Story, error) {
	stories := make([]domain.Story, 0, len(rows))
	for i := range rows {
		story, err := ToStory(&rows[i])
		if err != nil {
			return nil, err
		}
		stories = append(stories, story)
	}
	return stories, nil
}

// FromStory rebuilds the remote row shape from a canonical story.
func FromStory(story domain.Story) (Row, error) {
	row := Row{
		ID:        story.ID,
		Lat:       story.Lat,
		Lng:       story.Lng,
		Name:      story.Name,
		Title:     story.Title,
		Details:   story.Details,
		Location:  story.Location,
		Email:     story.Email,
		Date:      story.Date,
		CreatedAt: story.CreatedAt,
		UpdatedAt: story.UpdatedAt,
		Visible:   story.Visible,
		UserID:    story.UserID,
		HideUser:  story.HideUser,
	}

	if story.Media != nil {
		raw, err := json.Marshal(story.Media)
		if err != nil {
			return Row{}, fmt.Errorf("failed to encode media for story %d: %w", story.ID, err)
		}
		encoded := string(raw)
		row.Media = &encoded
	}

	return row, nil
}
