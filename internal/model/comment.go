package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Comment is a remark left on a recipe. Replies point at a top-level comment
// through ParentID; replies to replies are attached to the same top-level comment.
type Comment struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time  `json:"created_at"`
	RecipeID  uuid.UUID  `gorm:"type:uuid;not null;index" json:"recipe_id"`
	ParentID  *uuid.UUID `gorm:"type:uuid;index" json:"parent_id,omitempty"`
	Author    string     `gorm:"size:100;not null" json:"author"`
	Body      string     `gorm:"type:text;not null" json:"body"`
	Replies   []Comment  `gorm:"-" json:"replies,omitempty"`
}

func (Comment) TableName() string {
	return "recipe_comments"
}

func (c *Comment) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
