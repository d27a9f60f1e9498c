package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/storymap/backend/internal/middleware"
	"github.com/emilythestrangee/storymap/backend/internal/models"
)

type UserHandler struct {
	svc UserService
}

func NewUserHandler(svc UserService) *UserHandler {
	return &UserHandler{svc: svc}
}

// GetUsers lists all users (admin only)
func (h *UserHandler) GetUsers(c *gin.Context) {
	users, err := h.svc.List(c.Request.Context(), middleware.ActorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

// GetUser returns a user's public view
func (h *UserHandler) GetUser(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	user, err := h.svc.Get(c.Request.Context(), middleware.ActorFrom(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// UpdateUser changes a user's role or active flag (admin only)
func (h *UserHandler) UpdateUser(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var input models.UpdateUserRequest
	if !bindJSON(c, &input, "Invalid request body") {
		return
	}
	user, err := h.svc.Update(c.Request.Context(), middleware.ActorFrom(c), id, input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) DeleteUser(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), middleware.ActorFrom(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User deleted successfully"})
}

func (h *UserHandler) GetProfile(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	profile, err := h.svc.GetProfile(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// UpdateMyProfile edits the caller's profile
func (h *UserHandler) UpdateMyProfile(c *gin.Context) {
	var input models.UpdateProfileRequest
	if !bindJSON(c, &input, "Invalid request body") {
		return
	}
	profile, err := h.svc.UpdateProfile(c.Request.Context(), middleware.ActorFrom(c), input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// UploadAvatar stores an image and sets it as the caller's avatar
func (h *UserHandler) UploadAvatar(c *gin.Context) {
	file, closeFile, ok := formImage(c, "avatar")
	if !ok {
		return
	}
	defer closeFile()

	profile, err := h.svc.SetAvatar(c.Request.Context(), middleware.ActorFrom(c), file)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}
