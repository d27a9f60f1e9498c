package services

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/emilythestrangee/storymap/backend/internal/apperr"
	"github.com/emilythestrangee/storymap/backend/internal/authz"
	"github.com/emilythestrangee/storymap/backend/internal/models"
	"github.com/emilythestrangee/storymap/backend/internal/storage"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// authorColumns limits preloaded authors to their public fields.
func authorColumns(db *gorm.DB) *gorm.DB {
	return db.Select("id", "username", "role")
}

type StoryService struct {
	db       *gorm.DB
	uploader storage.Uploader
}

func NewStoryService(db *gorm.DB, uploader storage.Uploader) *StoryService {
	return &StoryService{db: db, uploader: uploader}
}

// List returns published stories, newest first.
func (s *StoryService) List(ctx context.Context, f models.StoryFilter) ([]models.Story, error) {
	return s.list(ctx, f, true)
}

// ListByAuthor includes unpublished stories when the actor may modify them.
func (s *StoryService) ListByAuthor(ctx context.Context, actor authz.Actor, authorID uint, f models.StoryFilter) ([]models.Story, error) {
	f.AuthorID = authorID
	return s.list(ctx, f, !authz.CanModify(actor, authorID))
}

func (s *StoryService) list(ctx context.Context, f models.StoryFilter, publishedOnly bool) ([]models.Story, error) {
	q := s.db.WithContext(ctx).Model(&models.Story{})
	if publishedOnly {
		q = q.Where("stories.published = ?", true)
	}
	if f.AuthorID != 0 {
		q = q.Where("stories.author_id = ?", f.AuthorID)
	}
	if f.CategorySlug != "" {
		q = q.Joins("JOIN story_categories sc ON sc.story_id = stories.id").
			Joins("JOIN categories c ON c.id = sc.category_id").
			Where("c.slug = ?", f.CategorySlug)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}

	stories := []models.Story{}
	err := q.Preload("Author", authorColumns).
		Preload("Categories").
		Order("stories.created_at desc").
		Limit(limit).
		Offset(offset).
		Find(&stories).Error
	if err != nil {
		return nil, fmt.Errorf("list stories: %w", err)
	}
	return stories, nil
}

// Get returns a story with author, categories and comment count. Unpublished
// stories are NotFound unless the actor may modify them.
func (s *StoryService) Get(ctx context.Context, actor authz.Actor, id uint) (*models.Story, error) {
	db := s.db.WithContext(ctx)

	var story models.Story
	err := db.Preload("Author", authorColumns).Preload("Categories").Take(&story, id).Error
	if err != nil {
		return nil, notFoundOr(err, "Story")
	}
	if !story.Published && !authz.CanModify(actor, story.AuthorID) {
		return nil, apperr.NotFound("Story not found")
	}

	if err := db.Model(&models.Comment{}).Where("story_id = ?", id).Count(&story.CommentCount).Error; err != nil {
		return nil, err
	}
	return &story, nil
}

func (s *StoryService) Create(ctx context.Context, actor authz.Actor, req models.CreateStoryRequest) (*models.Story, error) {
	if !actor.Authenticated() {
		return nil, apperr.Unauthorized("User not authenticated")
	}

	story := models.Story{
		Title:        strings.TrimSpace(req.Title),
		Body:         req.Body,
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
		LocationName: strings.TrimSpace(req.LocationName),
		Photos:       []string{},
		Published:    true,
		AuthorID:     actor.UserID,
	}
	if req.Published != nil {
		story.Published = *req.Published
	}
	if err := validateStory(&story); err != nil {
		return nil, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cats, err := findCategories(tx, req.CategoryIDs)
		if err != nil {
			return err
		}
		story.Categories = cats
		// gorm skips false on create because the column has a default
		if err := tx.Omit("Categories.*").Create(&story).Error; err != nil {
			return err
		}
		if !story.Published {
			return tx.Model(&story).Update("published", false).Error
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, actor, story.ID)
}

func (s *StoryService) Update(ctx context.Context, actor authz.Actor, id uint, req models.UpdateStoryRequest) (*models.Story, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		story, err := s.lockForWrite(tx, actor, id)
		if err != nil {
			return err
		}

		if req.Title != nil {
			story.Title = strings.TrimSpace(*req.Title)
		}
		if req.Body != nil {
			story.Body = *req.Body
		}
		if req.ClearLocation {
			if req.Latitude != nil || req.Longitude != nil || req.LocationName != nil {
				return apperr.Validation("Location cannot be set and cleared in the same update")
			}
			story.Latitude, story.Longitude, story.LocationName = nil, nil, ""
		}
		if req.Latitude != nil || req.Longitude != nil {
			story.Latitude, story.Longitude = req.Latitude, req.Longitude
		}
		if req.LocationName != nil {
			story.LocationName = strings.TrimSpace(*req.LocationName)
		}
		if req.Published != nil {
			story.Published = *req.Published
		}
		if err := validateStory(story); err != nil {
			return err
		}

		if err := tx.Omit(clause.Associations).Save(story).Error; err != nil {
			return err
		}

		if req.CategoryIDs != nil {
			cats, err := findCategories(tx, *req.CategoryIDs)
			if err != nil {
				return err
			}
			if err := tx.Model(story).Association("Categories").Replace(cats); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, actor, id)
}

// Delete soft-deletes the story and its comments.
func (s *StoryService) Delete(ctx context.Context, actor authz.Actor, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		story, err := s.lockForWrite(tx, actor, id)
		if err != nil {
			return err
		}
		if err := tx.Where("story_id = ?", story.ID).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		return tx.Delete(story).Error
	})
}

// AddPhoto uploads an image and appends its reference to the story's photos.
func (s *StoryService) AddPhoto(ctx context.Context, actor authz.Actor, id uint, file storage.File) (*models.Story, error) {
	var story models.Story
	if err := s.db.WithContext(ctx).Select("id", "author_id").Take(&story, id).Error; err != nil {
		return nil, notFoundOr(err, "Story")
	}
	if !authz.CanModify(actor, story.AuthorID) {
		return nil, apperr.Forbidden("You can only edit your own stories")
	}

	ref, err := s.uploader.Upload(ctx, fmt.Sprintf("stories/%d", id), file)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Model(&models.Story{}).
		Where("id = ?", id).
		Update("photos", gorm.Expr("array_append(COALESCE(photos, '{}'), ?)", ref)).Error
	if err != nil {
		return nil, fmt.Errorf("append photo: %w", err)
	}
	return s.Get(ctx, actor, id)
}

// lockForWrite loads the story FOR UPDATE and checks ownership before any write.
func (s *StoryService) lockForWrite(tx *gorm.DB, actor authz.Actor, id uint) (*models.Story, error) {
	var story models.Story
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Take(&story, id).Error; err != nil {
		return nil, notFoundOr(err, "Story")
	}
	if !authz.CanModify(actor, story.AuthorID) {
		return nil, apperr.Forbidden("You can only modify your own stories")
	}
	return &story, nil
}

func findCategories(tx *gorm.DB, ids []uint) ([]models.Category, error) {
	cats := []models.Category{}
	if len(ids) == 0 {
		return cats, nil
	}
	unique := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		unique[id] = struct{}{}
	}
	if err := tx.Where("id IN ?", ids).Find(&cats).Error; err != nil {
		return nil, err
	}
	if len(cats) != len(unique) {
		return nil, apperr.NotFound("Category not found")
	}
	return cats, nil
}

func validateStory(s *models.Story) error {
	if s.Title == "" || len(s.Title) > 200 {
		return apperr.Validation("Title must be between 1 and 200 characters")
	}
	if len(s.LocationName) > 255 {
		return apperr.Validation("Location name must be at most 255 characters")
	}
	return validateLocation(s.Latitude, s.Longitude)
}

// validateLocation requires both coordinates or neither, within WGS84 bounds.
func validateLocation(lat, lng *float64) error {
	if (lat == nil) != (lng == nil) {
		return apperr.Validation("Latitude and longitude must be provided together")
	}
	if lat == nil {
		return nil
	}
	if *lat < -90 || *lat > 90 {
		return apperr.Validation("Latitude must be between -90 and 90")
	}
	if *lng < -180 || *lng > 180 {
		return apperr.Validation("Longitude must be between -180 and 180")
	}
	return nil
}
