package handlers

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emilythestrangee/storymap/backend/internal/apperr"
	"github.com/emilythestrangee/storymap/backend/internal/authz"
	"github.com/emilythestrangee/storymap/backend/internal/models"
	"github.com/emilythestrangee/storymap/backend/internal/storage"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeVotes struct {
	calls  []models.VoteAction
	userID uint
	err    error
}

func (f *fakeVotes) ToggleStory(_ context.Context, actor authz.Actor, _ uint, a models.VoteAction) (*models.VoteResult, error) {
	f.calls = append(f.calls, a)
	f.userID = actor.UserID
	if f.err != nil {
		return nil, f.err
	}
	return &models.VoteResult{Likes: 1, UserAction: &a}, nil
}

func (f *fakeVotes) ToggleComment(ctx context.Context, actor authz.Actor, id uint, a models.VoteAction) (*models.VoteResult, error) {
	return f.ToggleStory(ctx, actor, id, a)
}

func (f *fakeVotes) StoryStatus(_ context.Context, actor authz.Actor, _ uint) (*models.VoteResult, error) {
	f.userID = actor.UserID
	if f.err != nil {
		return nil, f.err
	}
	return &models.VoteResult{Likes: 2, Dislikes: 1}, nil
}

func (f *fakeVotes) CommentStatus(ctx context.Context, actor authz.Actor, id uint) (*models.VoteResult, error) {
	return f.StoryStatus(ctx, actor, id)
}

type fakeStories struct {
	StoryService
	err     error
	deleted uint
	upload  storage.File
}

func (f *fakeStories) Delete(_ context.Context, _ authz.Actor, id uint) error {
	if f.err != nil {
		return f.err
	}
	f.deleted = id
	return nil
}

func (f *fakeStories) AddPhoto(_ context.Context, _ authz.Actor, id uint, file storage.File) (*models.Story, error) {
	f.upload = file
	return &models.Story{ID: id, Photos: []string{"http://minio/x.png"}}, nil
}

// withActor stands in for the auth middleware.
func withActor(a authz.Actor) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("actor", a)
		c.Next()
	}
}

func send(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestLikeStory(t *testing.T) {
	votes := &fakeVotes{}
	h := NewVoteHandler(votes)
	r := gin.New()
	r.POST("/stories/:id/like", withActor(authz.Actor{UserID: 4, Role: models.RoleUser}), h.LikeStory)

	w := send(r, http.MethodPost, "/stories/1/like", `{"action":"like"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"likes":1,"dislikes":0,"userAction":"like"}`, w.Body.String())
	assert.Equal(t, uint(4), votes.userID)

	tests := []struct {
		name string
		path string
		body string
	}{
		{"bad action", "/stories/1/like", `{"action":"love"}`},
		{"missing action", "/stories/1/like", `{}`},
		{"bad id", "/stories/abc/like", `{"action":"like"}`},
		{"zero id", "/stories/0/like", `{"action":"like"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := send(r, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
	assert.Len(t, votes.calls, 1)
}

func TestLikeStatus_NullUserAction(t *testing.T) {
	h := NewVoteHandler(&fakeVotes{})
	r := gin.New()
	r.GET("/comments/:id/like-status", h.CommentLikeStatus)

	w := send(r, http.MethodGet, "/comments/3/like-status", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"likes":2,"dislikes":1,"userAction":null}`, w.Body.String())
}

func TestRespondError_StatusMapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
		msg    string
	}{
		{apperr.NotFound("Story not found"), http.StatusNotFound, "Story not found"},
		{apperr.Conflict("Email already registered"), http.StatusConflict, "Email already registered"},
		{apperr.Forbidden("You can only modify your own stories"), http.StatusForbidden, "You can only modify your own stories"},
		{apperr.Unauthorized("Invalid credentials"), http.StatusUnauthorized, "Invalid credentials"},
		{apperr.Validation("Title must be between 1 and 200 characters"), http.StatusBadRequest, "Title must be between 1 and 200 characters"},
		{errors.New("dial tcp: refused"), http.StatusInternalServerError, "Internal server error"},
		{storage.ErrUnavailable, http.StatusServiceUnavailable, "File uploads are not available"},
	}

	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			stories := &fakeStories{err: tt.err}
			h := NewStoryHandler(stories)
			r := gin.New()
			r.DELETE("/stories/:id", h.DeleteStory)

			w := send(r, http.MethodDelete, "/stories/9", "")
			assert.Equal(t, tt.status, w.Code)
			assert.JSONEq(t, `{"error":"`+tt.msg+`"}`, w.Body.String())
		})
	}
}

func TestDeleteStory(t *testing.T) {
	stories := &fakeStories{}
	h := NewStoryHandler(stories)
	r := gin.New()
	r.DELETE("/stories/:id", h.DeleteStory)

	w := send(r, http.MethodDelete, "/stories/9", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, uint(9), stories.deleted)
}

func TestStoryFilter(t *testing.T) {
	var got models.StoryFilter
	r := gin.New()
	r.GET("/", func(c *gin.Context) {
		f, ok := storyFilter(c)
		if ok {
			got = f
			c.Status(http.StatusOK)
		}
	})

	w := send(r, http.MethodGet, "/?category=hiking&author=3&limit=5&offset=10", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.StoryFilter{CategorySlug: "hiking", AuthorID: 3, Limit: 5, Offset: 10}, got)

	assert.Equal(t, http.StatusBadRequest, send(r, http.MethodGet, "/?limit=-1", "").Code)
	assert.Equal(t, http.StatusBadRequest, send(r, http.MethodGet, "/?author=x", "").Code)
}

func TestUploadPhoto(t *testing.T) {
	stories := &fakeStories{}
	h := NewStoryHandler(stories)
	r := gin.New()
	r.POST("/stories/:id/photos", h.UploadPhoto)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	hdr := textproto.MIMEHeader{}
	hdr.Set("Content-Disposition", `form-data; name="photo"; filename="pier.png"`)
	hdr.Set("Content-Type", "image/png")
	part, err := mw.CreatePart(hdr)
	require.NoError(t, err)
	_, err = part.Write([]byte("\x89PNG fake"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/stories/5/photos", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "pier.png", stories.upload.Name)
	assert.Equal(t, "image/png", stories.upload.ContentType)
	assert.Equal(t, int64(9), stories.upload.Size)

	w = send(r, http.MethodPost, "/stories/5/photos", "{}")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

type fakeComments struct {
	CommentService
}

func TestBindErrors(t *testing.T) {
	r := gin.New()
	stories := NewStoryHandler(&fakeStories{})
	comments := NewCommentHandler(&fakeComments{})
	r.POST("/stories", stories.CreateStory)
	r.PUT("/stories/:id", stories.UpdateStory)
	r.POST("/stories/:id/comments", comments.CreateComment)
	r.PUT("/comments/:id", comments.UpdateComment)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   string
	}{
		{"story missing title", http.MethodPost, "/stories", `{"body":"x"}`, `{"error":"Title is required"}`},
		{"story malformed", http.MethodPost, "/stories", `{bad`, `{"error":"Invalid request body"}`},
		{"story wrong type", http.MethodPost, "/stories", `{"title":5}`, `{"error":"Invalid request body"}`},
		{"story update wrong type", http.MethodPut, "/stories/3", `{"latitude":"north"}`, `{"error":"Invalid request body"}`},
		{"comment missing body", http.MethodPost, "/stories/3/comments", `{}`, `{"error":"Comment body is required"}`},
		{"comment malformed", http.MethodPost, "/stories/3/comments", `{"body":`, `{"error":"Invalid request body"}`},
		{"comment update wrong type", http.MethodPut, "/comments/8", `{"body":["a"]}`, `{"error":"Invalid request body"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := send(r, tt.method, tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.JSONEq(t, tt.want, w.Body.String())
		})
	}
}
