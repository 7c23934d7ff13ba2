package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Lead status enum constants
const (
	LeadStatusNew       = "NEW"
	LeadStatusContacted = "CONTACTED"
	LeadStatusQualified = "QUALIFIED"
	LeadStatusWon       = "WON"
	LeadStatusLost      = "LOST"
)

// Lead represents a sales prospect tracked through the pipeline
type Lead struct {
	ID             uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	TenantID       *uuid.UUID      `gorm:"type:uuid;index" json:"tenant_id"`
	CreatedByID    uuid.UUID       `gorm:"type:uuid;not null;index" json:"created_by_id"`
	AssignedToID   *uuid.UUID      `gorm:"type:uuid;index" json:"assigned_to_id"`
	AssignedTo     *User           `gorm:"foreignKey:AssignedToID" json:"assigned_to,omitempty"`
	Name           string          `gorm:"type:varchar(255);not null" json:"name"`
	CompanyName    string          `gorm:"type:varchar(255)" json:"company_name"`
	Phone          string          `gorm:"type:varchar(50)" json:"phone"`
	Email          string          `gorm:"type:varchar(255)" json:"email"`
	Source         string          `gorm:"type:varchar(100)" json:"source"`
	Status         string          `gorm:"type:varchar(20);not null;default:NEW;index" json:"status"`
	EstimatedValue decimal.Decimal `gorm:"type:numeric(14,2);default:0" json:"estimated_value"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	DeletedAt      gorm.DeletedAt  `gorm:"index" json:"-"`
}
