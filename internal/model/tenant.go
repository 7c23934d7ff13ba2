package model

import (
	"time"

	"github.com/google/uuid"
)

// Tenant represents one customer organisation. Tenant scoping of roles and
// records only participates in lookups when the deployment enables the
// multi-tenancy flag; with the flag off these rows are ignored entirely.
type Tenant struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	Slug      string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"slug"`
	IsActive  bool      `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
