package server

import (
	"errors"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/rommeltorquator/project-management-app/internal/auth"
	"github.com/rommeltorquator/project-management-app/internal/observability"
	"github.com/rommeltorquator/project-management-app/internal/storage/sqlite"
)

// Server provides the HTTP handlers for the tracker backend.
type Server struct {
	engine *gin.Engine
	store  *sqlite.Store
	tokens *auth.TokenService
	hasher *auth.PasswordHasher
	logger *slog.Logger
}

// New constructs the HTTP server with routes and middleware configured.
func New(store *sqlite.Store, tokens *auth.TokenService, hasher *auth.PasswordHasher, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	registerTagNameFunc()

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(observability.Middleware())

	srv := &Server{
		engine: router,
		store:  store,
		tokens: tokens,
		hasher: hasher,
		logger: logger,
	}

	srv.registerRoutes()
	return srv
}

// Engine exposes the underlying Gin engine.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// registerRoutes wires the API handlers together. Everything under
// /api/projects and /api/tasks runs behind the authentication gate;
// register and login do not.
func (s *Server) registerRoutes() {
	s.engine.GET("/healthz", s.handleHealth)
	s.engine.GET("/metrics", observability.Handler())

	api := s.engine.Group("/api")
	{
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/register", s.handleRegister)
			authGroup.POST("/login", s.handleLogin)
		}

		gate := auth.Middleware(s.tokens, s.logger)

		projects := api.Group("/projects", gate)
		{
			projects.POST("", s.handleCreateProject)
			projects.GET("", s.handleListProjects)
			projects.GET(":id", s.handleGetProject)
			projects.PUT(":id", s.handleUpdateProject)
			projects.DELETE(":id", s.handleDeleteProject)
		}

		tasks := api.Group("/tasks", gate)
		{
			tasks.POST("", s.handleCreateTask)
			tasks.GET("/project/:projectId", s.handleListTasks)
			tasks.GET(":id", s.handleGetTask)
			tasks.PUT(":id", s.handleUpdateTask)
			tasks.DELETE(":id", s.handleDeleteTask)
		}
	}
}

// handleHealth provides a basic readiness endpoint.
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// identity pulls the authenticated identity attached by the gate. A
// missing identity on a gated route is a wiring bug, answered as 401
// rather than letting the handler run unauthenticated.
func (s *Server) identity(c *gin.Context) (auth.Identity, bool) {
	id, ok := auth.IdentityFromContext(c.Request.Context())
	if !ok {
		s.logger.Error("handler reached without identity", slog.String("path", c.FullPath()))
		c.JSON(http.StatusUnauthorized, gin.H{"message": "No token, authorization denied"})
	}
	return id, ok
}

// parseID converts a path parameter to int64. A malformed id can never
// match a stored resource, so it yields the not-found outcome.
func parseID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// fieldError is one entry of a validation failure response.
type fieldError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// bindJSON decodes and validates a request body. On failure it writes the
// 400 "Validation Failed" response and returns false.
func (s *Server) bindJSON(c *gin.Context, req any) bool {
	err := c.ShouldBindJSON(req)
	if err == nil {
		return true
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		out := make([]fieldError, 0, len(verrs))
		for _, fe := range verrs {
			out = append(out, fieldError{Path: fe.Field(), Message: messageForTag(fe)})
		}
		s.respondValidationFailed(c, out)
		return false
	}

	s.respondValidationFailed(c, []fieldError{{Path: "body", Message: "Invalid request body"}})
	return false
}

func (s *Server) respondValidationFailed(c *gin.Context, errs []fieldError) {
	c.JSON(http.StatusBadRequest, gin.H{"message": "Validation Failed", "errors": errs})
}

// messageForTag renders a field-level validation message.
func messageForTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "email":
		return "Invalid email address"
	case "min":
		return fe.Field() + " must be at least " + fe.Param() + " characters long"
	case "oneof":
		return fe.Field() + " must be one of: " + fe.Param()
	default:
		return fe.Field() + " is invalid"
	}
}

// parseDate accepts RFC 3339 timestamps or plain dates.
func parseDate(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", raw)
}

// respondError translates the storage/auth error taxonomy into a client
// response. notFoundMsg names the resource for the 404 case; anything
// outside the taxonomy is an internal fault that logs in full and
// answers with a bare "Server Error".
func (s *Server) respondError(c *gin.Context, err error, notFoundMsg string) {
	switch {
	case errors.Is(err, sqlite.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": notFoundMsg})
	case errors.Is(err, sqlite.ErrDuplicateEmail):
		c.JSON(http.StatusBadRequest, gin.H{"message": "User already exists"})
	case errors.Is(err, auth.ErrInvalidCredentials):
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid Credentials"})
	default:
		s.logger.Error("request failed",
			slog.String("path", c.FullPath()),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server Error"})
	}
}

// registerTagNameFunc makes validator report json field names instead of
// Go struct field names, so validation errors line up with the payload.
func registerTagNameFunc() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}
