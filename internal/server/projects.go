package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rommeltorquator/project-management-app/internal/models"
	"github.com/rommeltorquator/project-management-app/internal/storage/sqlite"
)

const projectNotFound = "Project not found"

type createProjectRequest struct {
	Title       string  `json:"title" binding:"required"`
	Description *string `json:"description"`
	StartDate   *string `json:"start_date"`
	EndDate     *string `json:"end_date"`
	Priority    *string `json:"priority" binding:"omitempty,oneof=High Medium Low"`
}

// updateProjectRequest carries only the fields the caller chose to send.
// An empty object is a valid no-op update.
type updateProjectRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	StartDate   *string `json:"start_date"`
	EndDate     *string `json:"end_date"`
	Priority    *string `json:"priority" binding:"omitempty,oneof=High Medium Low"`
}

// handleCreateProject creates a project owned by the caller. Creation
// needs no ownership resolution: the identity becomes the owner.
func (s *Server) handleCreateProject(c *gin.Context) {
	id, ok := s.identity(c)
	if !ok {
		return
	}

	var req createProjectRequest
	if !s.bindJSON(c, &req) {
		return
	}

	p := models.Project{
		OwnerID: id.UserID,
		Title:   req.Title,
	}
	if req.Description != nil {
		p.Description = *req.Description
	}
	if req.Priority != nil {
		p.Priority = *req.Priority
	}

	var ferrs []fieldError
	p.StartDate = s.optionalDate(req.StartDate, "start_date", &ferrs)
	p.EndDate = s.optionalDate(req.EndDate, "end_date", &ferrs)
	if len(ferrs) > 0 {
		s.respondValidationFailed(c, ferrs)
		return
	}

	project, err := s.store.CreateProject(c.Request.Context(), p)
	if err != nil {
		s.respondError(c, err, projectNotFound)
		return
	}
	c.JSON(http.StatusCreated, project)
}

// handleListProjects returns every project owned by the caller.
func (s *Server) handleListProjects(c *gin.Context) {
	id, ok := s.identity(c)
	if !ok {
		return
	}

	projects, err := s.store.ListProjects(c.Request.Context(), id.UserID)
	if err != nil {
		s.respondError(c, err, projectNotFound)
		return
	}
	if projects == nil {
		projects = []models.Project{}
	}
	c.JSON(http.StatusOK, projects)
}

// handleGetProject fetches one owned project. A project that exists but
// belongs to someone else answers exactly like one that does not exist.
func (s *Server) handleGetProject(c *gin.Context) {
	id, ok := s.identity(c)
	if !ok {
		return
	}
	projectID, ok := parseID(c, "id")
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"message": projectNotFound})
		return
	}

	project, err := s.store.ProjectByID(c.Request.Context(), projectID, id.UserID)
	if err != nil {
		s.respondError(c, err, projectNotFound)
		return
	}
	c.JSON(http.StatusOK, project)
}

// handleUpdateProject applies a partial update to an owned project.
func (s *Server) handleUpdateProject(c *gin.Context) {
	id, ok := s.identity(c)
	if !ok {
		return
	}
	projectID, ok := parseID(c, "id")
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"message": projectNotFound})
		return
	}

	var req updateProjectRequest
	if !s.bindJSON(c, &req) {
		return
	}

	upd := sqlite.ProjectUpdate{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
	}

	var ferrs []fieldError
	upd.StartDate = s.optionalDate(req.StartDate, "start_date", &ferrs)
	upd.EndDate = s.optionalDate(req.EndDate, "end_date", &ferrs)
	if len(ferrs) > 0 {
		s.respondValidationFailed(c, ferrs)
		return
	}

	project, err := s.store.UpdateProject(c.Request.Context(), projectID, id.UserID, upd)
	if err != nil {
		s.respondError(c, err, projectNotFound)
		return
	}
	c.JSON(http.StatusOK, project)
}

// handleDeleteProject removes an owned project. Tasks under it are left
// in place; see the storage docs for the orphan behavior.
func (s *Server) handleDeleteProject(c *gin.Context) {
	id, ok := s.identity(c)
	if !ok {
		return
	}
	projectID, ok := parseID(c, "id")
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"message": projectNotFound})
		return
	}

	if err := s.store.DeleteProject(c.Request.Context(), projectID, id.UserID); err != nil {
		s.respondError(c, err, projectNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Project deleted successfully"})
}

// optionalDate parses an optional date string, collecting a field error
// on bad input.
func (s *Server) optionalDate(raw *string, path string, ferrs *[]fieldError) *time.Time {
	if raw == nil || *raw == "" {
		return nil
	}
	t, err := parseDate(*raw)
	if err != nil {
		*ferrs = append(*ferrs, fieldError{Path: path, Message: "Invalid date"})
		return nil
	}
	return &t
}
