package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// UpdateProfileRequest changes the caller's display fields.
type UpdateProfileRequest struct {
	Name  *string `json:"name" binding:"omitempty,max=120"`
	Image *string `json:"image" binding:"omitempty,max=2048"`
}

// UpdateMe handles PUT /api/users/me
// The response carries a fresh token so session claims reflect the change.
func (h *Handler) UpdateMe(c *gin.Context) {
	var req UpdateProfileRequest
	if !h.bindJSON(c, &req) {
		return
	}

	user, token, err := h.auth.UpdateProfile(c.Request.Context(), currentUserID(c), req.Name, req.Image)
	if err != nil {
		h.fail(c, err)
		return
	}

	h.setSessionCookie(c, token)
	c.JSON(http.StatusOK, gin.H{
		"user":  user.Summary(),
		"token": token,
	})
}
