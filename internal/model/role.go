package model

import (
	"time"

	"github.com/google/uuid"
)

// Role status constants
const (
	RoleStatusActive   = "active"
	RoleStatusInactive = "inactive"
)

// Data-access scope constants. They bound which records a principal may act
// on within a module; interpretation of own/team/all belongs to each CRUD
// module, not the permission engine.
const (
	DataAccessNone = "none"
	DataAccessOwn  = "own"
	DataAccessTeam = "team"
	DataAccessAll  = "all"
)

// Role represents a named permission group. When multi-tenancy is enabled a
// role may be scoped to one tenant; a nil TenantID means the role is global.
type Role struct {
	ID          uuid.UUID    `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	TenantID    *uuid.UUID   `gorm:"type:uuid;index" json:"tenant_id"`
	Code        string       `gorm:"type:varchar(50);uniqueIndex;not null" json:"code"`
	Name        string       `gorm:"type:varchar(100);not null" json:"name"`
	Description string       `gorm:"type:text" json:"description"`
	Priority    int          `gorm:"default:0" json:"priority"`      // higher wins on scope conflicts
	IsSystem    bool         `gorm:"default:false" json:"is_system"` // system roles reject destructive edits
	Status      string       `gorm:"type:varchar(20);not null;default:active" json:"status"`
	Permissions []Permission `gorm:"many2many:role_permissions;" json:"permissions"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// Permission is a catalog entry seeded at deployment, never user-editable.
// Code format is "<module>:<action>", "<module>:*" or "admin:*".
type Permission struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Code        string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"code"`
	Module      string    `gorm:"type:varchar(50);not null;index" json:"module"`
	Action      string    `gorm:"type:varchar(50);not null" json:"action"`
	Resource    string    `gorm:"type:varchar(100)" json:"resource"`
	Name        string    `gorm:"type:varchar(255);not null" json:"name"`
	IsDangerous bool      `gorm:"default:false" json:"is_dangerous"`
	RequiresMfa bool      `gorm:"default:false" json:"requires_mfa"`
}

// ModuleGrant is a role's access decision and data scope for one functional
// module. One row per role × module, replaced wholesale on every grant edit.
// Invariant: DataAccess is "none" whenever HasAccess is false.
type ModuleGrant struct {
	ID         uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	RoleID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_module_grants_role_module" json:"role_id"`
	ModuleID   string    `gorm:"type:varchar(50);not null;uniqueIndex:idx_module_grants_role_module" json:"module_id"`
	HasAccess  bool      `gorm:"not null;default:false" json:"has_access"`
	DataAccess string    `gorm:"type:varchar(10);not null;default:none" json:"data_access"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// FieldGrant is a role's visibility/editability decision for one field
// within one module. Invariant: IsEditable implies IsVisible; writers
// self-heal a violating payload instead of rejecting it.
type FieldGrant struct {
	ID         uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	RoleID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_field_grants_role_module_field" json:"role_id"`
	ModuleID   string    `gorm:"type:varchar(50);not null;uniqueIndex:idx_field_grants_role_module_field" json:"module_id"`
	FieldID    string    `gorm:"type:varchar(50);not null;uniqueIndex:idx_field_grants_role_module_field" json:"field_id"`
	IsVisible  bool      `gorm:"not null;default:false" json:"is_visible"`
	IsEditable bool      `gorm:"not null;default:false" json:"is_editable"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// FieldAccess is the resolver's per-field answer. Never Editable without
// Visible.
type FieldAccess struct {
	Visible  bool `json:"visible"`
	Editable bool `json:"editable"`
}
