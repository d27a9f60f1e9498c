package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/storymap/backend/internal/middleware"
	"github.com/emilythestrangee/storymap/backend/internal/models"
)

type CommentHandler struct {
	svc CommentService
}

func NewCommentHandler(svc CommentService) *CommentHandler {
	return &CommentHandler{svc: svc}
}

// GetComments returns all comments for a story, oldest first
func (h *CommentHandler) GetComments(c *gin.Context) {
	storyID, ok := paramID(c, "id")
	if !ok {
		return
	}
	comments, err := h.svc.ListForStory(c.Request.Context(), middleware.ActorFrom(c), storyID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, comments)
}

// CreateComment creates a new comment on a story
func (h *CommentHandler) CreateComment(c *gin.Context) {
	storyID, ok := paramID(c, "id")
	if !ok {
		return
	}
	var input models.CommentRequest
	if !bindJSON(c, &input, "Comment body is required") {
		return
	}

	comment, err := h.svc.Create(c.Request.Context(), middleware.ActorFrom(c), storyID, input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

// UpdateComment updates a comment (owner or admin)
func (h *CommentHandler) UpdateComment(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var input models.CommentRequest
	if !bindJSON(c, &input, "Comment body is required") {
		return
	}

	comment, err := h.svc.Update(c.Request.Context(), middleware.ActorFrom(c), id, input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, comment)
}

// DeleteComment deletes a comment (owner or admin)
func (h *CommentHandler) DeleteComment(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), middleware.ActorFrom(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Comment deleted successfully"})
}
