package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/storymap/backend/internal/middleware"
	"github.com/emilythestrangee/storymap/backend/internal/models"
)

type VoteHandler struct {
	svc VoteService
}

func NewVoteHandler(svc VoteService) *VoteHandler {
	return &VoteHandler{svc: svc}
}

// voteInput binds {"action": "like"|"dislike"}.
func voteInput(c *gin.Context) (models.VoteAction, bool) {
	var input models.VoteRequest
	if err := c.ShouldBindJSON(&input); err != nil || !input.Action.Valid() {
		badRequest(c, `Action must be "like" or "dislike"`)
		return "", false
	}
	return input.Action, true
}

// LikeStory toggles or switches the caller's vote on a story
func (h *VoteHandler) LikeStory(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	action, ok := voteInput(c)
	if !ok {
		return
	}
	res, err := h.svc.ToggleStory(c.Request.Context(), middleware.ActorFrom(c), id, action)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *VoteHandler) StoryLikeStatus(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	res, err := h.svc.StoryStatus(c.Request.Context(), middleware.ActorFrom(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// LikeComment keeps one vote per user: the same action retracts it, the other switches it.
func (h *VoteHandler) LikeComment(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	action, ok := voteInput(c)
	if !ok {
		return
	}
	res, err := h.svc.ToggleComment(c.Request.Context(), middleware.ActorFrom(c), id, action)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *VoteHandler) CommentLikeStatus(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	res, err := h.svc.CommentStatus(c.Request.Context(), middleware.ActorFrom(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
