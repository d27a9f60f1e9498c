package models

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

type Story struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	Title        string         `gorm:"size:200;not null" json:"title"`
	Body         string         `gorm:"type:text" json:"body"`
	Latitude     *float64       `json:"latitude"`
	Longitude    *float64       `json:"longitude"`
	LocationName string         `gorm:"size:255" json:"location_name"`
	Photos       pq.StringArray `gorm:"type:text[]" json:"photos"`
	Likes        int            `gorm:"not null;default:0" json:"likes"`
	Dislikes     int            `gorm:"not null;default:0" json:"dislikes"`
	Published    bool           `gorm:"not null;default:true;index" json:"published"`
	AuthorID     uint           `gorm:"not null;index" json:"author_id"`
	Author       User           `gorm:"foreignKey:AuthorID" json:"author"`
	Categories   []Category     `gorm:"many2many:story_categories;" json:"categories"`
	CommentCount int64          `gorm:"-" json:"comment_count"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

type CreateStoryRequest struct {
	Title        string   `json:"title" binding:"required"`
	Body         string   `json:"body"`
	Latitude     *float64 `json:"latitude"`
	Longitude    *float64 `json:"longitude"`
	LocationName string   `json:"location_name"`
	Published    *bool    `json:"published"`
	CategoryIDs  []uint   `json:"category_ids"`
}

// UpdateStoryRequest is a partial update; nil fields are left untouched.
type UpdateStoryRequest struct {
	Title        *string  `json:"title"`
	Body         *string  `json:"body"`
	Latitude     *float64 `json:"latitude"`
	Longitude    *float64 `json:"longitude"`
	LocationName *string  `json:"location_name"`
	Published    *bool    `json:"published"`
	CategoryIDs  *[]uint  `json:"category_ids"`
	// ClearLocation drops coordinates and location name; JSON null cannot.
	ClearLocation bool `json:"clear_location"`
}

// StoryFilter narrows story listings.
type StoryFilter struct {
	CategorySlug string
	AuthorID     uint
	Limit        int
	Offset       int
}
