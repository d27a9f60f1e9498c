package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/storymap/backend/internal/middleware"
	"github.com/emilythestrangee/storymap/backend/internal/models"
)

type StoryHandler struct {
	svc StoryService
}

func NewStoryHandler(svc StoryService) *StoryHandler {
	return &StoryHandler{svc: svc}
}

// storyFilter reads ?category=&author=&limit=&offset=.
func storyFilter(c *gin.Context) (models.StoryFilter, bool) {
	f := models.StoryFilter{CategorySlug: c.Query("category")}
	for name, dst := range map[string]*int{"limit": &f.Limit, "offset": &f.Offset} {
		if v := c.Query(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				badRequest(c, "Invalid "+name)
				return f, false
			}
			*dst = n
		}
	}
	if v := c.Query("author"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			badRequest(c, "Invalid author")
			return f, false
		}
		f.AuthorID = uint(n)
	}
	return f, true
}

// GetStories returns published stories, newest first
func (h *StoryHandler) GetStories(c *gin.Context) {
	f, ok := storyFilter(c)
	if !ok {
		return
	}
	stories, err := h.svc.List(c.Request.Context(), f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stories)
}

// GetUserStories returns a user's stories; drafts are included for the author and admins
func (h *StoryHandler) GetUserStories(c *gin.Context) {
	userID, ok := paramID(c, "id")
	if !ok {
		return
	}
	f, ok := storyFilter(c)
	if !ok {
		return
	}
	stories, err := h.svc.ListByAuthor(c.Request.Context(), middleware.ActorFrom(c), userID, f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stories)
}

// GetStory returns a single story by ID
func (h *StoryHandler) GetStory(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	story, err := h.svc.Get(c.Request.Context(), middleware.ActorFrom(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, story)
}

// CreateStory creates a new story (PROTECTED - requires authentication)
func (h *StoryHandler) CreateStory(c *gin.Context) {
	var input models.CreateStoryRequest
	if !bindJSON(c, &input, "Title is required") {
		return
	}

	story, err := h.svc.Create(c.Request.Context(), middleware.ActorFrom(c), input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, story)
}

// UpdateStory updates an existing story (PROTECTED - requires ownership or admin)
func (h *StoryHandler) UpdateStory(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var input models.UpdateStoryRequest
	if !bindJSON(c, &input, "Invalid request body") {
		return
	}

	story, err := h.svc.Update(c.Request.Context(), middleware.ActorFrom(c), id, input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, story)
}

// DeleteStory deletes a story (PROTECTED - requires ownership or admin)
func (h *StoryHandler) DeleteStory(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), middleware.ActorFrom(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Story deleted successfully"})
}

// UploadPhoto appends an uploaded image to the story's photos
func (h *StoryHandler) UploadPhoto(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	file, closeFile, ok := formImage(c, "photo")
	if !ok {
		return
	}
	defer closeFile()

	story, err := h.svc.AddPhoto(c.Request.Context(), middleware.ActorFrom(c), id, file)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, story)
}
