package repository

import (
	"context"
	"errors"

	"backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GrantRepository is the persistence adapter for the four grant relations:
// module grants, field grants, the legacy flat role_permissions table and
// the permissions catalog. No business rules live here — normalization and
// projection belong to the grant service.
type GrantRepository interface {
	// Write side, expected to run inside a TransactionManager transaction.
	ReplaceModuleGrant(ctx context.Context, grant *model.ModuleGrant) error
	ReplaceFieldGrants(ctx context.Context, roleID uuid.UUID, moduleID string, grants []model.FieldGrant) error
	DeleteLegacyGrants(ctx context.Context, roleID uuid.UUID) error
	InsertLegacyGrants(ctx context.Context, roleID uuid.UUID, permissionIDs []uuid.UUID) error

	// Read side, committed state only.
	GetModuleGrant(ctx context.Context, roleID uuid.UUID, moduleID string) (*model.ModuleGrant, error)
	ListModuleGrants(ctx context.Context, roleID uuid.UUID) ([]model.ModuleGrant, error)
	GetFieldGrant(ctx context.Context, roleID uuid.UUID, moduleID, fieldID string) (*model.FieldGrant, error)
	ListFieldGrants(ctx context.Context, roleID uuid.UUID, moduleID string) ([]model.FieldGrant, error)
	FlatPermissionCodes(ctx context.Context, roleID uuid.UUID) ([]string, error)
	ListPermissions(ctx context.Context) ([]model.Permission, error)
	FindOrCreatePermission(ctx context.Context, perm *model.Permission) error
}

type grantRepository struct {
	db *gorm.DB
}

func NewGrantRepository(db *gorm.DB) GrantRepository {
	return &grantRepository{db: db}
}

// ReplaceModuleGrant upserts the single row for (role, module). The unique
// index on (role_id, module_id) backs the conflict target.
func (r *grantRepository) ReplaceModuleGrant(ctx context.Context, grant *model.ModuleGrant) error {
	return GetDB(ctx, r.db).Exec(`
		INSERT INTO module_grants (id, role_id, module_id, has_access, data_access, created_at, updated_at)
		VALUES (gen_random_uuid(), ?, ?, ?, ?, NOW(), NOW())
		ON CONFLICT (role_id, module_id)
		DO UPDATE SET has_access = EXCLUDED.has_access, data_access = EXCLUDED.data_access, updated_at = NOW()
	`, grant.RoleID, grant.ModuleID, grant.HasAccess, grant.DataAccess).Error
}

// ReplaceFieldGrants swaps the full field-grant set for (role, module).
func (r *grantRepository) ReplaceFieldGrants(ctx context.Context, roleID uuid.UUID, moduleID string, grants []model.FieldGrant) error {
	db := GetDB(ctx, r.db)
	if err := db.Exec(`DELETE FROM field_grants WHERE role_id = ? AND module_id = ?`, roleID, moduleID).Error; err != nil {
		return err
	}
	for _, g := range grants {
		err := db.Exec(`
			INSERT INTO field_grants (id, role_id, module_id, field_id, is_visible, is_editable, created_at, updated_at)
			VALUES (gen_random_uuid(), ?, ?, ?, ?, ?, NOW(), NOW())
		`, roleID, moduleID, g.FieldID, g.IsVisible, g.IsEditable).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *grantRepository) DeleteLegacyGrants(ctx context.Context, roleID uuid.UUID) error {
	return GetDB(ctx, r.db).Exec(`DELETE FROM role_permissions WHERE role_id = ?`, roleID).Error
}

func (r *grantRepository) InsertLegacyGrants(ctx context.Context, roleID uuid.UUID, permissionIDs []uuid.UUID) error {
	db := GetDB(ctx, r.db)
	for _, pid := range permissionIDs {
		if err := db.Exec(`INSERT INTO role_permissions (role_id, permission_id) VALUES (?, ?)`, roleID, pid).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *grantRepository) GetModuleGrant(ctx context.Context, roleID uuid.UUID, moduleID string) (*model.ModuleGrant, error) {
	var grant model.ModuleGrant
	err := GetDB(ctx, r.db).
		Where("role_id = ? AND module_id = ?", roleID, moduleID).
		First(&grant).Error
	if err != nil {
		return nil, err
	}
	return &grant, nil
}

func (r *grantRepository) ListModuleGrants(ctx context.Context, roleID uuid.UUID) ([]model.ModuleGrant, error) {
	var grants []model.ModuleGrant
	err := GetDB(ctx, r.db).
		Where("role_id = ?", roleID).
		Order("module_id asc").
		Find(&grants).Error
	if err != nil {
		return nil, err
	}
	return grants, nil
}

func (r *grantRepository) GetFieldGrant(ctx context.Context, roleID uuid.UUID, moduleID, fieldID string) (*model.FieldGrant, error) {
	var grant model.FieldGrant
	err := GetDB(ctx, r.db).
		Where("role_id = ? AND module_id = ? AND field_id = ?", roleID, moduleID, fieldID).
		First(&grant).Error
	if err != nil {
		return nil, err
	}
	return &grant, nil
}

func (r *grantRepository) ListFieldGrants(ctx context.Context, roleID uuid.UUID, moduleID string) ([]model.FieldGrant, error) {
	var grants []model.FieldGrant
	err := GetDB(ctx, r.db).
		Where("role_id = ? AND module_id = ?", roleID, moduleID).
		Order("field_id asc").
		Find(&grants).Error
	if err != nil {
		return nil, err
	}
	return grants, nil
}

// FlatPermissionCodes returns the legacy flat projection for a role as
// permission code strings, the set hasPermission matches against.
func (r *grantRepository) FlatPermissionCodes(ctx context.Context, roleID uuid.UUID) ([]string, error) {
	var codes []string
	err := GetDB(ctx, r.db).Raw(`
		SELECT p.code FROM permissions p
		INNER JOIN role_permissions rp ON rp.permission_id = p.id
		WHERE rp.role_id = ?
	`, roleID).Pluck("code", &codes).Error
	if err != nil {
		return nil, err
	}
	return codes, nil
}

func (r *grantRepository) ListPermissions(ctx context.Context) ([]model.Permission, error) {
	var perms []model.Permission
	if err := GetDB(ctx, r.db).Order("module asc, code asc").Find(&perms).Error; err != nil {
		return nil, err
	}
	return perms, nil
}

func (r *grantRepository) FindOrCreatePermission(ctx context.Context, perm *model.Permission) error {
	return GetDB(ctx, r.db).
		Where("code = ?", perm.Code).
		FirstOrCreate(perm).Error
}

// IsNotFound reports whether err is gorm's missing-row error. Read paths
// treat absence as default-deny, never as a failure.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
