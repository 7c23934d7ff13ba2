package service

import "github.com/google/uuid"

// Principal is the authenticated actor on whose behalf a permission question
// is asked. It is resolved from the JWT at request time and never persisted.
type Principal struct {
	UserID   uuid.UUID
	TenantID *uuid.UUID
	RoleID   *uuid.UUID
	RoleCode string
}
