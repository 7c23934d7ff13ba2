package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Note is a free-form internal memo, optionally pinned to another record
// (lead, project, student) via RelatedType/RelatedID.
type Note struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	TenantID    *uuid.UUID     `gorm:"type:uuid;index" json:"tenant_id"`
	CreatedByID uuid.UUID      `gorm:"type:uuid;not null;index" json:"created_by_id"`
	CreatedBy   *User          `gorm:"foreignKey:CreatedByID" json:"created_by,omitempty"`
	Title       string         `gorm:"type:varchar(255);not null" json:"title"`
	Body        string         `gorm:"type:text" json:"body"`
	RelatedType string         `gorm:"type:varchar(50);index" json:"related_type"` // leads, projects, students
	RelatedID   *uuid.UUID     `gorm:"type:uuid;index" json:"related_id"`
	IsPinned    bool           `gorm:"default:false" json:"is_pinned"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}
