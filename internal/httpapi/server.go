// Package httpapi exposes the metadata layer over HTTP.
//
// The surface is a thin translation layer: handlers decode the request,
// delegate to a service, and map the service error class to a status code.
// No business rule lives here.
package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/filedock/filedock/internal/apperr"
	"github.com/filedock/filedock/internal/auth"
	"github.com/filedock/filedock/internal/file"
	"github.com/filedock/filedock/internal/folder"
	"github.com/filedock/filedock/internal/model"
	"github.com/filedock/filedock/internal/session"
	"github.com/filedock/filedock/internal/user"
)

const principalContextKey = "filedock_principal"

var (
	errMissingSessions = errors.New("session store dependency required")
	errMissingAuth     = errors.New("auth service dependency required")
	errMissingUsers    = errors.New("user service dependency required")
	errMissingFolders  = errors.New("folder service dependency required")
	errMissingFiles    = errors.New("file service dependency required")
)

// Dependencies collects the services the HTTP surface fronts.
type Dependencies struct {
	Sessions *session.Store
	Auth     *auth.Service
	Users    *user.Service
	Folders  *folder.Service
	Files    *file.Service
	Logger   *zap.Logger
}

// NewHandler builds the routing table.
func NewHandler(deps Dependencies) (http.Handler, error) {
	if deps.Sessions == nil {
		return nil, errMissingSessions
	}
	if deps.Auth == nil {
		return nil, errMissingAuth
	}
	if deps.Users == nil {
		return nil, errMissingUsers
	}
	if deps.Folders == nil {
		return nil, errMissingFolders
	}
	if deps.Files == nil {
		return nil, errMissingFiles
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))

	h := &handler{
		sessions: deps.Sessions,
		auth:     deps.Auth,
		users:    deps.Users,
		folders:  deps.Folders,
		files:    deps.Files,
		logger:   logger,
	}

	router.GET("/healthz", h.handleHealth)
	router.POST("/auth/login", h.handleLogin)
	router.POST("/auth/logout", h.handleLogout)
	router.POST("/auth/change-password", h.handleChangePassword)
	router.POST("/auth/seed-admin", h.handleSeedAdmin)

	protected := router.Group("/")
	protected.Use(h.authorize)
	protected.GET("/users", h.handleListUsers)
	protected.POST("/users", h.handleCreateUser)
	protected.PUT("/users/:username", h.handleUpdateUser)
	protected.DELETE("/users/:username", h.handleDeleteUser)
	protected.GET("/folders", h.handleListFolders)
	protected.POST("/folders", h.handleCreateFolder)
	protected.DELETE("/folders/:folderId", h.handleDeleteFolder)
	protected.POST("/folders/assignments", h.handleAssignFolders)
	protected.DELETE("/folders/assignments", h.handleUnassignFolders)
	protected.GET("/files", h.handleListFiles)
	protected.POST("/files/upload-url", h.handleUploadURL)
	protected.POST("/files/download-url", h.handleDownloadURL)
	protected.GET("/files/:folderId/:fileName/versions", h.handleListVersions)

	return router, nil
}

type handler struct {
	sessions *session.Store
	auth     *auth.Service
	users    *user.Service
	folders  *folder.Service
	files    *file.Service
	logger   *zap.Logger
}

// bearerToken extracts the token from the Authorization header. Empty when
// the header is missing or not a bearer scheme.
func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

// authorize validates the bearer token and attaches the principal. Role and
// folder-level checks stay with the services; the middleware only answers
// "who is calling".
func (h *handler) authorize(c *gin.Context) {
	principal, err := h.sessions.Validate(c.Request.Context(), bearerToken(c))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.Set(principalContextKey, principal)
	c.Next()
}

func (h *handler) principal(c *gin.Context) model.Principal {
	value, _ := c.Get(principalContextKey)
	principal, _ := value.(model.Principal)
	return principal
}

// writeError maps a service error class to an HTTP status.
func (h *handler) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, apperr.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, apperr.ErrUnauthenticated):
		status = http.StatusUnauthorized
	case errors.Is(err, apperr.ErrUnauthorized):
		status = http.StatusForbidden
	case errors.Is(err, apperr.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, apperr.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, apperr.ErrCapacity):
		status = http.StatusRequestEntityTooLarge
	case errors.Is(err, apperr.ErrStorageUnavailable):
		status = http.StatusServiceUnavailable
	}

	if status == http.StatusInternalServerError || status == http.StatusServiceUnavailable {
		h.logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err))
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func (h *handler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
