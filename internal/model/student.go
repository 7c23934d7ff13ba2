package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Student enrollment status enum constants
const (
	StudentStatusEnrolled  = "ENROLLED"
	StudentStatusPaused    = "PAUSED"
	StudentStatusGraduated = "GRADUATED"
	StudentStatusDropped   = "DROPPED"
)

// Student represents an enrolled trainee record managed by the admin app
type Student struct {
	ID           uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	TenantID     *uuid.UUID     `gorm:"type:uuid;index" json:"tenant_id"`
	CreatedByID  uuid.UUID      `gorm:"type:uuid;not null;index" json:"created_by_id"`
	FullName     string         `gorm:"type:varchar(255);not null" json:"full_name"`
	Email        string         `gorm:"type:varchar(255)" json:"email"`
	Phone        string         `gorm:"type:varchar(50)" json:"phone"`
	DateOfBirth  *time.Time     `json:"date_of_birth"`
	GuardianName string         `gorm:"type:varchar(255)" json:"guardian_name"`
	Course       string         `gorm:"type:varchar(255)" json:"course"`
	Status       string         `gorm:"type:varchar(20);not null;default:ENROLLED;index" json:"status"`
	EnrolledAt   *time.Time     `json:"enrolled_at"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}
