package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	ActionLogin           = "LOGIN"
	ActionCreateUser      = "CREATE_USER"
	ActionUpdateUser      = "UPDATE_USER"
	ActionDeleteUser      = "DELETE_USER"
	ActionCreateRole      = "CREATE_ROLE"
	ActionUpdateRole      = "UPDATE_ROLE"
	ActionDeleteRole      = "DELETE_ROLE"
	ActionApplyRoleGrants = "APPLY_ROLE_GRANTS"
	ActionCreateNote      = "CREATE_NOTE"
	ActionUpdateNote      = "UPDATE_NOTE"
	ActionDeleteNote      = "DELETE_NOTE"
	ActionCreateLead      = "CREATE_LEAD"
	ActionUpdateLead      = "UPDATE_LEAD"
	ActionDeleteLead      = "DELETE_LEAD"
	ActionAssignLead      = "ASSIGN_LEAD"
	ActionCreateProject   = "CREATE_PROJECT"
	ActionUpdateProject   = "UPDATE_PROJECT"
	ActionDeleteProject   = "DELETE_PROJECT"
	ActionCreateStudent   = "CREATE_STUDENT"
	ActionUpdateStudent   = "UPDATE_STUDENT"
	ActionDeleteStudent   = "DELETE_STUDENT"
)

// AuditLog tracks Who, What, and When for critical system changes
type AuditLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID     *uuid.UUID `gorm:"type:uuid;index" json:"user_id"` // Nullable gracefully if automated bot
	User       *User      `gorm:"foreignKey:UserID" json:"user"`
	Action     string     `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string     `gorm:"type:varchar(50);index" json:"entity_id"`        // Reference string (uuid/code)
	EntityName string     `gorm:"type:varchar(255)" json:"entity_name,omitempty"` // Human readable name
	Details    string     `gorm:"type:jsonb" json:"details"`                      // Serialized JSON payload of the action
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}
