package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	userapp "userhub/internal/application"
	"userhub/internal/domain/repository"
	"userhub/internal/infrastructure/directory"
	"userhub/pkg/response"
	"userhub/pkg/validation"
)

// DirectoryLookup resolves users in the upstream directory. Satisfied
// by directory.Client.
type DirectoryLookup interface {
	GetUser(ctx context.Context, userID string) (*directory.UserProfile, error)
}

type UserHandler struct {
	Svc       *userapp.UserService
	Directory DirectoryLookup
	Logger    *logrus.Logger
}

func NewUserHandler(svc *userapp.UserService, dir DirectoryLookup, logger *logrus.Logger) *UserHandler {
	return &UserHandler{Svc: svc, Directory: dir, Logger: logger}
}

type createUserRequest struct {
	Name  string `json:"name" binding:"required,max=200"`
	Email string `json:"email" binding:"required,email"`
}

// upstreamStatus maps a tagged upstream failure to an outward status.
// Kinds are kept distinct so "does not exist" and "could not determine"
// do not collapse into the same response.
func upstreamStatus(err error) (int, string, bool) {
	var ue *directory.UpstreamError
	if !errors.As(err, &ue) {
		return 0, "", false
	}
	switch ue.Kind {
	case directory.KindNotFound:
		return http.StatusNotFound, "user not found", true
	case directory.KindTransient:
		return http.StatusServiceUnavailable, "upstream directory unavailable", true
	default:
		return http.StatusBadGateway, "upstream directory error", true
	}
}

func (h *UserHandler) Create(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}

	u, err := h.Svc.CreateUser(c.Request.Context(), userapp.CreateUserInput{Name: req.Name, Email: req.Email})
	if err != nil {
		var pc *userapp.PartialCreateError
		switch {
		case errors.Is(err, repository.ErrDuplicateKey):
			response.Error[any](c, http.StatusConflict, "email already registered", nil)
		case errors.As(err, &pc):
			// The user exists; the creation event did not go out.
			response.Error[any](c, http.StatusInternalServerError, "user created but event publication failed", map[string]any{"user_id": pc.UserID})
		default:
			h.Logger.WithError(err).Error("create user failed")
			response.Error[any](c, http.StatusInternalServerError, "failed to create user", nil)
		}
		return
	}

	response.Success(c, http.StatusCreated, gin.H{
		"id":         u.ID,
		"email":      u.Email,
		"name":       u.Name,
		"created_at": u.CreatedAt,
		"updated_at": u.UpdatedAt,
	}, "user created", nil)
}

// Get proxies a lookup to the upstream user directory.
func (h *UserHandler) Get(c *gin.Context) {
	userID := c.Param("userId")

	profile, err := h.Directory.GetUser(c.Request.Context(), userID)
	if err != nil {
		if status, msg, ok := upstreamStatus(err); ok {
			response.Error[any](c, status, msg, nil)
			return
		}
		h.Logger.WithError(err).WithField("user_id", userID).Error("directory lookup failed")
		response.Error[any](c, http.StatusInternalServerError, "directory lookup failed", nil)
		return
	}

	response.Success(c, http.StatusOK, profile, "user", nil)
}

func (h *UserHandler) Search(c *gin.Context) {
	q := c.Query("q")
	if len(q) < 2 {
		response.Error[any](c, http.StatusBadRequest, "q must be at least 2 characters", nil)
		return
	}
	size := 10
	results, err := h.Svc.SearchUsers(c.Request.Context(), q, size)
	if err != nil {
		h.Logger.WithError(err).Error("user search failed")
		response.Error[any](c, http.StatusInternalServerError, "search failed", nil)
		return
	}
	response.Success(c, http.StatusOK, results, "search results", map[string]any{"count": len(results)})
}
