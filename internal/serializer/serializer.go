// Package serializer renders stories as JSON:API resource documents and
// errors as structured error bodies. Redaction of owner-identifying fields
// happens here, at the single boundary every read and write path funnels
// through.
package serializer

import (
	"strconv"
	"time"

	"github.com/gfw-api/story-api/internal/domain"
)

type Resource struct {
	Type       string         `json:"type"`
	ID         string         `json:"id"`
	Attributes map[string]any `json:"attributes"`
}

type Document struct {
	Data *Resource `json:"data"`
}

type ListDocument struct {
	Data []Resource `json:"data"`
}

type ErrorObject struct {
	Status int    `json:"status"`
	Detail string `json:"detail"`
}

type ErrorDocument struct {
	Errors []ErrorObject `json:"errors"`
}

func timeAttr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

func textAttr(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

// attributes builds the full attribute map with the redaction rule applied:
// a hidden author never leaks userId, name or email, whichever code path
// produced the record. The populatedUser bookkeeping flag never serializes.
func attributes(story *domain.Story) map[string]any {
	attrs := map[string]any{
		"name":      textAttr(story.Name),
		"title":     textAttr(story.Title),
		"createdAt": timeAttr(story.CreatedAt),
		"updatedAt": timeAttr(story.UpdatedAt),
		"visible":   story.Visible,
		"details":   textAttr(story.Details),
		"date":      timeAttr(story.Date),
		"email":     textAttr(story.Email),
		"location":  textAttr(story.Location),
		"lat":       story.Lat,
		"lng":       story.Lng,
		"hideUser":  story.HideUser,
	}

	if story.Media != nil {
		attrs["media"] = story.Media
	} else {
		attrs["media"] = nil
	}

	if story.HideUser {
		delete(attrs, "name")
		delete(attrs, "email")
	} else if story.UserID != nil {
		attrs["userId"] = *story.UserID
	}

	return attrs
}

// restrict applies a sparse fieldset; an empty allowlist keeps everything.
func restrict(attrs map[string]any, fields []string) map[string]any {
	if len(fields) == 0 {
		return attrs
	}
	allowed := make(map[string]bool, len(fields))
	for _, f := range fields {
		allowed[f] = true
	}
	for key := range attrs {
		if !allowed[key] {
			delete(attrs, key)
		}
	}
	return attrs
}

func resource(story *domain.Story, fields []string) Resource {
	return Resource{
		Type:       "story",
		ID:         strconv.Itoa(story.ID),
		Attributes: restrict(attributes(story), fields),
	}
}

func SerializeStory(story *domain.Story, fields []string) Document {
	if story == nil {
		return Document{}
	}
	res := resource(story, fields)
	return Document{Data: &res}
}

func SerializeStories(stories []domain.Story, fields []string) ListDocument {
	out := make([]Resource, 0, len(stories))
	for i := range stories {
		out = append(out, resource(&stories[i], fields))
	}
	return ListDocument{Data: out}
}

func SerializeError(status int, detail string) ErrorDocument {
	return ErrorDocument{Errors: []ErrorObject{{Status: status, Detail: detail}}}
}
