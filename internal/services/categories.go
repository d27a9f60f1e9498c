package services

import (
	"context"
	"strings"

	"github.com/gosimple/slug"
	"gorm.io/gorm"

	"github.com/emilythestrangee/storymap/backend/internal/apperr"
	"github.com/emilythestrangee/storymap/backend/internal/authz"
	"github.com/emilythestrangee/storymap/backend/internal/models"
)

type CategoryService struct {
	db *gorm.DB
}

func NewCategoryService(db *gorm.DB) *CategoryService {
	return &CategoryService{db: db}
}

func (s *CategoryService) List(ctx context.Context) ([]models.Category, error) {
	categories := []models.Category{}
	if err := s.db.WithContext(ctx).Order("name asc").Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

func (s *CategoryService) Get(ctx context.Context, id uint) (*models.Category, error) {
	var c models.Category
	if err := s.db.WithContext(ctx).Take(&c, id).Error; err != nil {
		return nil, notFoundOr(err, "Category")
	}
	return &c, nil
}

func (s *CategoryService) Create(ctx context.Context, actor authz.Actor, req models.CategoryRequest) (*models.Category, error) {
	if !authz.IsAdmin(actor.Role) {
		return nil, apperr.Forbidden("Only administrators can manage categories")
	}
	c := models.Category{Description: req.Description, Icon: req.Icon}
	if err := setName(&c, req.Name); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Create(&c).Error; err != nil {
		return nil, conflictFor(err)
	}
	return &c, nil
}

func (s *CategoryService) Update(ctx context.Context, actor authz.Actor, id uint, req models.CategoryRequest) (*models.Category, error) {
	if !authz.IsAdmin(actor.Role) {
		return nil, apperr.Forbidden("Only administrators can manage categories")
	}
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := setName(c, req.Name); err != nil {
		return nil, err
	}
	c.Description = req.Description
	c.Icon = req.Icon

	if err := s.db.WithContext(ctx).Save(c).Error; err != nil {
		return nil, conflictFor(err)
	}
	return c, nil
}

// Delete removes the category and its story associations.
func (s *CategoryService) Delete(ctx context.Context, actor authz.Actor, id uint) error {
	if !authz.IsAdmin(actor.Role) {
		return apperr.Forbidden("Only administrators can manage categories")
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var c models.Category
		if err := tx.Take(&c, id).Error; err != nil {
			return notFoundOr(err, "Category")
		}
		if err := tx.Exec("DELETE FROM story_categories WHERE category_id = ?", c.ID).Error; err != nil {
			return err
		}
		return tx.Delete(&c).Error
	})
}

func setName(c *models.Category, name string) error {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > 100 {
		return apperr.Validation("Category name must be between 1 and 100 characters")
	}
	c.Name = name
	c.Slug = slug.Make(name)
	if c.Slug == "" {
		return apperr.Validation("Category name must contain letters or digits")
	}
	return nil
}
