package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	userapp "userhub/internal/application"
	"userhub/pkg/response"
)

type AvatarHandler struct {
	Svc       *userapp.AvatarService
	Directory DirectoryLookup
	Logger    *logrus.Logger
}

func NewAvatarHandler(svc *userapp.AvatarService, dir DirectoryLookup, logger *logrus.Logger) *AvatarHandler {
	return &AvatarHandler{Svc: svc, Directory: dir, Logger: logger}
}

// Get resolves the user's avatar source in the upstream directory, then
// serves the image from the cache, fetching and persisting it first
// when this is the first request for the user.
func (h *AvatarHandler) Get(c *gin.Context) {
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
	if profile.AvatarURL == "" {
		response.Error[any](c, http.StatusNotFound, "avatar not found", nil)
		return
	}

	encoded, err := h.Svc.FetchAvatar(c.Request.Context(), userID, profile.AvatarURL)
	if err != nil {
		if status, msg, ok := upstreamStatus(err); ok {
			if status == http.StatusNotFound {
				msg = "avatar not found"
			}
			response.Error[any](c, status, msg, nil)
			return
		}
		if errors.Is(err, userapp.ErrStorageCorrupted) {
			h.Logger.WithField("user_id", userID).Error("avatar storage corrupted")
			response.Error[any](c, http.StatusInternalServerError, "avatar storage corrupted", nil)
			return
		}
		h.Logger.WithError(err).WithField("user_id", userID).Error("avatar fetch failed")
		response.Error[any](c, http.StatusInternalServerError, "failed to fetch avatar", nil)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"avatar": encoded}, "avatar", nil)
}

// Delete removes the cached avatar. Always succeeds: deleting an
// avatar that was never cached leaves the same end state.
func (h *AvatarHandler) Delete(c *gin.Context) {
	userID := c.Param("userId")

	if err := h.Svc.DeleteAvatar(c.Request.Context(), userID); err != nil {
		h.Logger.WithError(err).WithField("user_id", userID).Error("avatar delete failed")
		response.Error[any](c, http.StatusInternalServerError, "failed to delete avatar", nil)
		return
	}

	response.Success[any](c, http.StatusOK, gin.H{"deleted": true}, "avatar deleted successfully", nil)
}
