package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/emilythestrangee/storymap/backend/internal/apperr"
	"github.com/emilythestrangee/storymap/backend/internal/authz"
	"github.com/emilythestrangee/storymap/backend/internal/models"
	"github.com/emilythestrangee/storymap/backend/internal/storage"
)

type AuthService interface {
	Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error)
	Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error)
	CreateFirstAdmin(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error)
	Me(ctx context.Context, userID uint) (*models.User, error)
}

type StoryService interface {
	List(ctx context.Context, f models.StoryFilter) ([]models.Story, error)
	ListByAuthor(ctx context.Context, actor authz.Actor, authorID uint, f models.StoryFilter) ([]models.Story, error)
	Get(ctx context.Context, actor authz.Actor, id uint) (*models.Story, error)
	Create(ctx context.Context, actor authz.Actor, req models.CreateStoryRequest) (*models.Story, error)
	Update(ctx context.Context, actor authz.Actor, id uint, req models.UpdateStoryRequest) (*models.Story, error)
	Delete(ctx context.Context, actor authz.Actor, id uint) error
	AddPhoto(ctx context.Context, actor authz.Actor, id uint, file storage.File) (*models.Story, error)
}

type CommentService interface {
	ListForStory(ctx context.Context, actor authz.Actor, storyID uint) ([]models.Comment, error)
	Create(ctx context.Context, actor authz.Actor, storyID uint, req models.CommentRequest) (*models.Comment, error)
	Update(ctx context.Context, actor authz.Actor, id uint, req models.CommentRequest) (*models.Comment, error)
	Delete(ctx context.Context, actor authz.Actor, id uint) error
}

type CategoryService interface {
	List(ctx context.Context) ([]models.Category, error)
	Get(ctx context.Context, id uint) (*models.Category, error)
	Create(ctx context.Context, actor authz.Actor, req models.CategoryRequest) (*models.Category, error)
	Update(ctx context.Context, actor authz.Actor, id uint, req models.CategoryRequest) (*models.Category, error)
	Delete(ctx context.Context, actor authz.Actor, id uint) error
}

type UserService interface {
	List(ctx context.Context, actor authz.Actor) ([]models.User, error)
	Get(ctx context.Context, actor authz.Actor, id uint) (*models.User, error)
	Update(ctx context.Context, actor authz.Actor, id uint, req models.UpdateUserRequest) (*models.User, error)
	Delete(ctx context.Context, actor authz.Actor, id uint) error
	GetProfile(ctx context.Context, userID uint) (*models.Profile, error)
	UpdateProfile(ctx context.Context, actor authz.Actor, req models.UpdateProfileRequest) (*models.Profile, error)
	SetAvatar(ctx context.Context, actor authz.Actor, file storage.File) (*models.Profile, error)
}

type VoteService interface {
	ToggleStory(ctx context.Context, actor authz.Actor, storyID uint, action models.VoteAction) (*models.VoteResult, error)
	ToggleComment(ctx context.Context, actor authz.Actor, commentID uint, action models.VoteAction) (*models.VoteResult, error)
	StoryStatus(ctx context.Context, actor authz.Actor, storyID uint) (*models.VoteResult, error)
	CommentStatus(ctx context.Context, actor authz.Actor, commentID uint) (*models.VoteResult, error)
}

// Services bundles the domain services the handlers delegate to.
type Services struct {
	Auth     AuthService
	Stories  StoryService
	Comments CommentService
	Category CategoryService
	Users    UserService
	Votes    VoteService
}

// Handler combines all handler types
type Handler struct {
	Auth     *AuthHandler
	Story    *StoryHandler
	Comment  *CommentHandler
	Category *CategoryHandler
	User     *UserHandler
	Vote     *VoteHandler
}

// NewHandler creates a unified handler with all sub-handlers
func NewHandler(s Services) *Handler {
	return &Handler{
		Auth:     NewAuthHandler(s.Auth),
		Story:    NewStoryHandler(s.Stories),
		Comment:  NewCommentHandler(s.Comments),
		Category: NewCategoryHandler(s.Category),
		User:     NewUserHandler(s.Users),
		Vote:     NewVoteHandler(s.Votes),
	}
}

// respondError writes {"error": msg} with the status of err's kind.
// Internal errors are logged and answered with a generic message.
func respondError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	if kind == apperr.KindInternal {
		if errors.Is(err, storage.ErrUnavailable) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "File uploads are not available"})
			return
		}
		_ = c.Error(err)
		zap.L().Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
	}
	c.JSON(kind.Status(), gin.H{"error": apperr.Message(err)})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

// bindJSON decodes the body into obj. A missing required field is answered
// with missing; anything else, such as malformed JSON or a wrong type, is
// reported as an invalid body.
func bindJSON(c *gin.Context, obj any, missing string) bool {
	err := c.ShouldBindJSON(obj)
	if err == nil {
		return true
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		badRequest(c, missing)
	} else {
		badRequest(c, "Invalid request body")
	}
	return false
}

// paramID parses a positive numeric path parameter, answering 400 otherwise.
func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		badRequest(c, "Invalid "+name)
		return 0, false
	}
	return uint(id), true
}

// formImage reads a multipart image upload from field.
func formImage(c *gin.Context, field string) (storage.File, func(), bool) {
	fh, err := c.FormFile(field)
	if err != nil {
		badRequest(c, "Missing file field \""+field+"\"")
		return storage.File{}, nil, false
	}
	f, err := fh.Open()
	if err != nil {
		badRequest(c, "Unreadable upload")
		return storage.File{}, nil, false
	}
	file := storage.File{
		Name:        fh.Filename,
		Size:        fh.Size,
		ContentType: fh.Header.Get("Content-Type"),
		Body:        f,
	}
	return file, func() { _ = f.Close() }, true
}
