package api

import (
	"encoding/json"
	"net/http"

	"github.com/gfw-api/story-api/internal/domain"
	"github.com/gfw-api/story-api/internal/serializer"
)

func (s *Server) handleGetStories(w http.ResponseWriter, r *http.Request) {
	s.logger.Info("Obtaining stories")

	filters, err := parseFilters(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	stories, err := s.story.GetAll(r.Context(), filters)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, serializer.SerializeStories(stories, filters.Fields))
}

func (s *Server) handleGetStoriesByUser(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("user_id")
	s.logger.Info("Obtaining stories for user", "user_id", userID)

	stories, err := s.story.GetByUser(r.Context(), userID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, serializer.SerializeStories(stories, parseFields(r)))
}

func (s *Server) handleGetStoryByID(w http.ResponseWriter, r *http.Request) {
	id, err := parseStoryID(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Info("Obtaining story by id", "id", id)

	found, err := s.story.GetByID(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if found == nil {
		s.writeError(w, http.StatusNotFound, "Story not found")
		return
	}
	s.writeJSON(w, http.StatusOK, serializer.SerializeStory(found, parseFields(r)))
}

// decodeStoryData reads the request payload and stamps the gateway
// identity over whatever the body carried.
func (s *Server) decodeStoryData(r *http.Request) (*domain.StoryData, error) {
	var data domain.StoryData
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		return nil, err
	}
	if user := identityFrom(r.Context()); user != nil {
		data.LoggedUser = user
	}
	return &data, nil
}

func (s *Server) handleCreateStory(w http.ResponseWriter, r *http.Request) {
	s.logger.Info("Creating story")

	data, err := s.decodeStoryData(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if data.Lat == nil || data.Lng == nil {
		s.writeError(w, http.StatusBadRequest, "lat and lng are required")
		return
	}

	created, err := s.story.Create(r.Context(), data)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, serializer.SerializeStory(created, nil))
}

func (s *Server) handleUpdateStory(w http.ResponseWriter, r *http.Request) {
	id, err := parseStoryID(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Info("Updating story by id", "id", id)

	data, err := s.decodeStoryData(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if data.Lat == nil || data.Lng == nil {
		s.writeError(w, http.StatusBadRequest, "lat and lng are required")
		return
	}

	updated, err := s.story.Update(r.Context(), id, data)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if updated == nil {
		s.writeError(w, http.StatusNotFound, "Story not found")
		return
	}
	s.writeJSON(w, http.StatusOK, serializer.SerializeStory(updated, nil))
}

func (s *Server) handleDeleteStory(w http.ResponseWriter, r *http.Request) {
	id, err := parseStoryID(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	user := identityFrom(r.Context())
	s.logger.Info("Deleting story by id", "id", id, "user_id", user.ID)

	removed, err := s.story.DeleteByID(r.Context(), id, user.ID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if removed == nil {
		s.writeError(w, http.StatusNotFound, "Story not found")
		return
	}
	s.writeJSON(w, http.StatusOK, serializer.SerializeStory(removed, nil))
}

// handleDeleteStoriesByUser is restricted to the user themselves, admins
// and trusted service identities.
func (s *Server) handleDeleteStoriesByUser(w http.ResponseWriter, r *http.Request) {
	targetID := r.PathValue("user_id")
	user := identityFrom(r.Context())

	allowed := user.ID == targetID ||
		user.Role == domain.RoleAdmin ||
		user.Role == domain.RoleMicroservice
	if !allowed {
		s.writeError(w, http.StatusForbidden, "Forbidden")
		return
	}

	s.logger.Info("Deleting stories by user id", "user_id", targetID)

	deleted, err := s.story.DeleteByUser(r.Context(), targetID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, serializer.SerializeStories(deleted, nil))
}
