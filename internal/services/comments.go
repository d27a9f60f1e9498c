package services

import (
	"context"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/emilythestrangee/storymap/backend/internal/apperr"
	"github.com/emilythestrangee/storymap/backend/internal/authz"
	"github.com/emilythestrangee/storymap/backend/internal/models"
)

type CommentService struct {
	db *gorm.DB
}

func NewCommentService(db *gorm.DB) *CommentService {
	return &CommentService{db: db}
}

// ListForStory returns a visible story's comments, oldest first.
func (s *CommentService) ListForStory(ctx context.Context, actor authz.Actor, storyID uint) ([]models.Comment, error) {
	db := s.db.WithContext(ctx)
	if err := visibleStory(db, actor, storyID); err != nil {
		return nil, err
	}

	comments := []models.Comment{}
	err := db.Where("story_id = ?", storyID).
		Preload("Author", authorColumns).
		Order("created_at asc").
		Find(&comments).Error
	if err != nil {
		return nil, err
	}
	return comments, nil
}

func (s *CommentService) Create(ctx context.Context, actor authz.Actor, storyID uint, req models.CommentRequest) (*models.Comment, error) {
	if !actor.Authenticated() {
		return nil, apperr.Unauthorized("User not authenticated")
	}
	body, err := commentBody(req.Body)
	if err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	if err := visibleStory(db, actor, storyID); err != nil {
		return nil, err
	}

	comment := models.Comment{Body: body, StoryID: storyID, AuthorID: actor.UserID}
	if err := db.Create(&comment).Error; err != nil {
		return nil, err
	}
	return s.get(ctx, comment.ID)
}

func (s *CommentService) Update(ctx context.Context, actor authz.Actor, id uint, req models.CommentRequest) (*models.Comment, error) {
	body, err := commentBody(req.Body)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		comment, err := lockComment(tx, actor, id)
		if err != nil {
			return err
		}
		return tx.Model(comment).Update("body", body).Error
	})
	if err != nil {
		return nil, err
	}
	return s.get(ctx, id)
}

// Delete soft-deletes the comment.
func (s *CommentService) Delete(ctx context.Context, actor authz.Actor, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		comment, err := lockComment(tx, actor, id)
		if err != nil {
			return err
		}
		return tx.Delete(comment).Error
	})
}

func (s *CommentService) get(ctx context.Context, id uint) (*models.Comment, error) {
	var comment models.Comment
	err := s.db.WithContext(ctx).Preload("Author", authorColumns).Take(&comment, id).Error
	if err != nil {
		return nil, notFoundOr(err, "Comment")
	}
	return &comment, nil
}

func lockComment(tx *gorm.DB, actor authz.Actor, id uint) (*models.Comment, error) {
	var comment models.Comment
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Take(&comment, id).Error; err != nil {
		return nil, notFoundOr(err, "Comment")
	}
	if !authz.CanModify(actor, comment.AuthorID) {
		return nil, apperr.Forbidden("You can only modify your own comments")
	}
	return &comment, nil
}

// visibleStory fails with NotFound for missing, deleted, or unpublished stories the actor cannot see.
func visibleStory(db *gorm.DB, actor authz.Actor, storyID uint) error {
	var story models.Story
	if err := db.Select("id", "author_id", "published").Take(&story, storyID).Error; err != nil {
		return notFoundOr(err, "Story")
	}
	if !story.Published && !authz.CanModify(actor, story.AuthorID) {
		return apperr.NotFound("Story not found")
	}
	return nil
}

func commentBody(body string) (string, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return "", apperr.Validation("Comment body is required")
	}
	if len(body) > 5000 {
		return "", apperr.Validation("Comment body must be at most 5000 characters")
	}
	return body, nil
}
