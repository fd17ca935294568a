package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rommeltorquator/project-management-app/internal/auth"
	"github.com/rommeltorquator/project-management-app/internal/models"
	"github.com/rommeltorquator/project-management-app/internal/storage/sqlite"
)

const (
	taskNotFound       = "Task not found"
	unauthorizedAccess = "Unauthorized access"
)

type createTaskRequest struct {
	Project     int64   `json:"project" binding:"required"`
	Title       string  `json:"title" binding:"required"`
	Description *string `json:"description"`
	DueDate     *string `json:"due_date"`
	Status      *string `json:"status" binding:"omitempty,oneof='To Do' 'In Progress' 'Completed'"`
}

type updateTaskRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	DueDate     *string `json:"due_date"`
	Status      *string `json:"status" binding:"omitempty,oneof='To Do' 'In Progress' 'Completed'"`
}

// resolveTask loads a task and decides whether the caller may touch it.
// Absent task: 404. Task whose parent project is owned by someone else:
// 403. The existence of the task id is revealed in the second case,
// unlike the project policy; this mirrors the per-resource contract.
func (s *Server) resolveTask(c *gin.Context, id auth.Identity) (models.Task, bool) {
	taskID, ok := parseID(c, "id")
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"message": taskNotFound})
		return models.Task{}, false
	}

	task, ownerID, err := s.store.TaskByID(c.Request.Context(), taskID)
	if err != nil {
		s.respondError(c, err, taskNotFound)
		return models.Task{}, false
	}
	if ownerID != id.UserID {
		c.JSON(http.StatusForbidden, gin.H{"message": unauthorizedAccess})
		return models.Task{}, false
	}
	return task, true
}

// handleCreateTask creates a task under a project the caller owns. The
// parent is resolved before anything is written, so a rejected request
// never leaves an orphan task behind.
func (s *Server) handleCreateTask(c *gin.Context) {
	id, ok := s.identity(c)
	if !ok {
		return
	}

	var req createTaskRequest
	if !s.bindJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()

	if _, err := s.store.ProjectByID(ctx, req.Project, id.UserID); err != nil {
		s.respondError(c, err, projectNotFound)
		return
	}

	t := models.Task{
		ProjectID: req.Project,
		Title:     req.Title,
	}
	if req.Description != nil {
		t.Description = *req.Description
	}
	if req.Status != nil {
		t.Status = *req.Status
	}

	var ferrs []fieldError
	t.DueDate = s.optionalDate(req.DueDate, "due_date", &ferrs)
	if len(ferrs) > 0 {
		s.respondValidationFailed(c, ferrs)
		return
	}

	task, err := s.store.CreateTask(ctx, t)
	if err != nil {
		s.respondError(c, err, taskNotFound)
		return
	}
	c.JSON(http.StatusCreated, task)
}

// handleListTasks returns the tasks of an owned project. The parent is
// resolved with project semantics: absent and unowned are both 404.
func (s *Server) handleListTasks(c *gin.Context) {
	id, ok := s.identity(c)
	if !ok {
		return
	}
	projectID, ok := parseID(c, "projectId")
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"message": projectNotFound})
		return
	}

	ctx := c.Request.Context()

	if _, err := s.store.ProjectByID(ctx, projectID, id.UserID); err != nil {
		s.respondError(c, err, projectNotFound)
		return
	}

	tasks, err := s.store.TasksByProject(ctx, projectID)
	if err != nil {
		s.respondError(c, err, taskNotFound)
		return
	}
	if tasks == nil {
		tasks = []models.Task{}
	}
	c.JSON(http.StatusOK, tasks)
}

// handleGetTask fetches a single task after walking the ownership chain.
func (s *Server) handleGetTask(c *gin.Context) {
	id, ok := s.identity(c)
	if !ok {
		return
	}
	task, ok := s.resolveTask(c, id)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, task)
}

// handleUpdateTask applies a partial update to an authorized task.
func (s *Server) handleUpdateTask(c *gin.Context) {
	id, ok := s.identity(c)
	if !ok {
		return
	}
	task, ok := s.resolveTask(c, id)
	if !ok {
		return
	}

	var req updateTaskRequest
	if !s.bindJSON(c, &req) {
		return
	}

	upd := sqlite.TaskUpdate{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
	}

	var ferrs []fieldError
	upd.DueDate = s.optionalDate(req.DueDate, "due_date", &ferrs)
	if len(ferrs) > 0 {
		s.respondValidationFailed(c, ferrs)
		return
	}

	updated, err := s.store.UpdateTask(c.Request.Context(), task.ID, upd)
	if err != nil {
		// The task was authorized a moment ago; losing it here is a race
		// with a concurrent delete.
		if errors.Is(err, sqlite.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": taskNotFound})
			return
		}
		s.respondError(c, err, taskNotFound)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// handleDeleteTask removes an authorized task.
func (s *Server) handleDeleteTask(c *gin.Context) {
	id, ok := s.identity(c)
	if !ok {
		return
	}
	task, ok := s.resolveTask(c, id)
	if !ok {
		return
	}

	if err := s.store.DeleteTask(c.Request.Context(), task.ID); err != nil {
		s.respondError(c, err, taskNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Task deleted successfully"})
}
