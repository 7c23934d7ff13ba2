package repository

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ScopeFilter narrows list queries to the caller's resolved data-access
// scope. Services translate the resolver's own/team/all answer into one of
// these; "none" never reaches the repository (the service forbids first).
type ScopeFilter struct {
	CreatedByID *uuid.UUID // set for "own": only records created by this user
	TenantID    *uuid.UUID // set for "team" under multi-tenancy: records of the caller's tenant
}

func (f ScopeFilter) apply(q *gorm.DB) *gorm.DB {
	if f.CreatedByID != nil {
		q = q.Where("created_by_id = ?", *f.CreatedByID)
	}
	if f.TenantID != nil {
		q = q.Where("tenant_id = ?", *f.TenantID)
	}
	return q
}
