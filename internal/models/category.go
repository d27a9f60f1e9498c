package models

import "time"

type Category struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:100;uniqueIndex:idx_categories_name;not null" json:"name"`
	Slug        string    `gorm:"size:120;uniqueIndex:idx_categories_slug;not null" json:"slug"`
	Description string    `json:"description"`
	Icon        string    `gorm:"size:100" json:"icon"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type CategoryRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}
