package service

import (
	"context"
	"testing"

	"backend/internal/model"
	"backend/internal/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newMockGorm wraps a sqlmock connection with GORM for unit testing.
func newMockGorm(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDB.Close() })

	gormDB, err := gorm.Open(
		postgres.New(postgres.Config{
			Conn:                 mockDB,
			PreferSimpleProtocol: true,
		}),
		&gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		},
	)
	require.NoError(t, err)

	return gormDB, mock
}

func newMockResolver(t *testing.T, multiTenant bool) (PermissionResolver, sqlmock.Sqlmock) {
	t.Helper()
	gormDB, mock := newMockGorm(t)
	resolver := NewPermissionResolver(
		repository.NewRoleRepository(gormDB),
		repository.NewGrantRepository(gormDB),
		multiTenant,
	)
	return resolver, mock
}

func activeRoleRows(roleID uuid.UUID, tenantID *uuid.UUID) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"id", "tenant_id", "code", "name", "status"})
	if tenantID != nil {
		return rows.AddRow(roleID, *tenantID, "staff", "Staff", model.RoleStatusActive)
	}
	return rows.AddRow(roleID, nil, "staff", "Staff", model.RoleStatusActive)
}

func TestMatchFlatCode(t *testing.T) {
	tests := []struct {
		name  string
		codes []string
		check string
		want  bool
	}{
		{"exact match", []string{"leads:read"}, "leads:read", true},
		{"module wildcard", []string{"leads:*"}, "leads:delete", true},
		{"admin wildcard grants everything", []string{"admin:*"}, "students:update", true},
		{"no match denies", []string{"leads:read"}, "leads:delete", false},
		{"wildcard scoped to its module", []string{"leads:*"}, "users:read", false},
		{"empty set denies", nil, "leads:read", false},
		{"exact beats missing wildcard", []string{"notes:create"}, "notes:create", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set := make(map[string]bool, len(tt.codes))
			for _, c := range tt.codes {
				set[c] = true
			}
			assert.Equal(t, tt.want, matchFlatCode(set, tt.check))
		})
	}
}

func TestHasPermissionWithoutRoleDenies(t *testing.T) {
	resolver, mock := newMockResolver(t, false)

	ok, err := resolver.HasPermission(context.Background(), Principal{UserID: uuid.New()}, "leads:read")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHasPermissionMissingRoleRowDenies(t *testing.T) {
	resolver, mock := newMockResolver(t, false)
	roleID := uuid.New()

	mock.ExpectQuery(`SELECT \* FROM "roles"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "tenant_id", "code", "name", "status"}))

	ok, err := resolver.HasPermission(context.Background(), Principal{UserID: uuid.New(), RoleID: &roleID}, "leads:read")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHasPermissionInactiveRoleDenies(t *testing.T) {
	resolver, mock := newMockResolver(t, false)
	roleID := uuid.New()

	mock.ExpectQuery(`SELECT \* FROM "roles"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "tenant_id", "code", "name", "status"}).
			AddRow(roleID, nil, "staff", "Staff", model.RoleStatusInactive))

	ok, err := resolver.HasPermission(context.Background(), Principal{UserID: uuid.New(), RoleID: &roleID}, "leads:read")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHasPermissionWildcardFromStore(t *testing.T) {
	resolver, mock := newMockResolver(t, false)
	roleID := uuid.New()

	mock.ExpectQuery(`SELECT \* FROM "roles"`).WillReturnRows(activeRoleRows(roleID, nil))
	mock.ExpectQuery(`SELECT p.code FROM permissions p`).
		WillReturnRows(sqlmock.NewRows([]string{"code"}).AddRow("leads:*"))

	p := Principal{UserID: uuid.New(), RoleID: &roleID}

	ok, err := resolver.HasPermission(context.Background(), p, "leads:delete")
	require.NoError(t, err)
	assert.True(t, ok)

	// Codes are cached now; the role lookup still happens, the flat set does not.
	mock.ExpectQuery(`SELECT \* FROM "roles"`).WillReturnRows(activeRoleRows(roleID, nil))

	ok, err = resolver.HasPermission(context.Background(), p, "users:read")
	require.NoError(t, err)
	assert.False(t, ok, "module wildcard must not leak across modules")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHasPermissionTenantIsolation(t *testing.T) {
	resolver, mock := newMockResolver(t, true)
	roleID := uuid.New()
	roleTenant := uuid.New()
	otherTenant := uuid.New()

	// Principal from another tenant: denied before any grant lookup.
	mock.ExpectQuery(`SELECT \* FROM "roles"`).WillReturnRows(activeRoleRows(roleID, &roleTenant))

	ok, err := resolver.HasPermission(context.Background(), Principal{UserID: uuid.New(), RoleID: &roleID, TenantID: &otherTenant}, "leads:read")
	require.NoError(t, err)
	assert.False(t, ok)

	// Principal without any tenant is denied too.
	mock.ExpectQuery(`SELECT \* FROM "roles"`).WillReturnRows(activeRoleRows(roleID, &roleTenant))

	ok, err = resolver.HasPermission(context.Background(), Principal{UserID: uuid.New(), RoleID: &roleID}, "leads:read")
	require.NoError(t, err)
	assert.False(t, ok)

	// Matching tenant proceeds to the flat grant check.
	mock.ExpectQuery(`SELECT \* FROM "roles"`).WillReturnRows(activeRoleRows(roleID, &roleTenant))
	mock.ExpectQuery(`SELECT p.code FROM permissions p`).
		WillReturnRows(sqlmock.NewRows([]string{"code"}).AddRow("leads:read"))

	ok, err = resolver.HasPermission(context.Background(), Principal{UserID: uuid.New(), RoleID: &roleID, TenantID: &roleTenant}, "leads:read")
	require.NoError(t, err)
	assert.True(t, ok)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDataAccessForMissingGrantDenies(t *testing.T) {
	resolver, mock := newMockResolver(t, false)
	roleID := uuid.New()

	mock.ExpectQuery(`SELECT \* FROM "roles"`).WillReturnRows(activeRoleRows(roleID, nil))
	mock.ExpectQuery(`SELECT \* FROM "module_grants"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "role_id", "module_id", "has_access", "data_access"}))

	scope, err := resolver.DataAccessFor(context.Background(), Principal{UserID: uuid.New(), RoleID: &roleID}, "leads")
	require.NoError(t, err)
	assert.Equal(t, model.DataAccessNone, scope)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDataAccessForRevokedAccessReadsAsNone(t *testing.T) {
	resolver, mock := newMockResolver(t, false)
	roleID := uuid.New()

	mock.ExpectQuery(`SELECT \* FROM "roles"`).WillReturnRows(activeRoleRows(roleID, nil))
	mock.ExpectQuery(`SELECT \* FROM "module_grants"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "role_id", "module_id", "has_access", "data_access"}).
			AddRow(uuid.New(), roleID, "leads", false, model.DataAccessTeam))

	scope, err := resolver.DataAccessFor(context.Background(), Principal{UserID: uuid.New(), RoleID: &roleID}, "leads")
	require.NoError(t, err)
	assert.Equal(t, model.DataAccessNone, scope, "stored scope is irrelevant once has_access is false")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFieldVisibilityMissingRowDenies(t *testing.T) {
	resolver, mock := newMockResolver(t, false)
	roleID := uuid.New()

	mock.ExpectQuery(`SELECT \* FROM "roles"`).WillReturnRows(activeRoleRows(roleID, nil))
	mock.ExpectQuery(`SELECT \* FROM "field_grants"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "role_id", "module_id", "field_id", "is_visible", "is_editable"}))

	access, err := resolver.FieldVisibility(context.Background(), Principal{UserID: uuid.New(), RoleID: &roleID}, "students", "phone")
	require.NoError(t, err)
	assert.False(t, access.Visible)
	assert.False(t, access.Editable)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFieldVisibilityNeverEditableWithoutVisible(t *testing.T) {
	resolver, mock := newMockResolver(t, false)
	roleID := uuid.New()

	// A row that somehow carries the contradiction must read as not editable.
	mock.ExpectQuery(`SELECT \* FROM "roles"`).WillReturnRows(activeRoleRows(roleID, nil))
	mock.ExpectQuery(`SELECT \* FROM "field_grants"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "role_id", "module_id", "field_id", "is_visible", "is_editable"}).
			AddRow(uuid.New(), roleID, "students", "phone", false, true))

	access, err := resolver.FieldVisibility(context.Background(), Principal{UserID: uuid.New(), RoleID: &roleID}, "students", "phone")
	require.NoError(t, err)
	assert.False(t, access.Visible)
	assert.False(t, access.Editable)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFlatCodesCacheInvalidation(t *testing.T) {
	resolver, mock := newMockResolver(t, false)
	roleID := uuid.New()
	p := Principal{UserID: uuid.New(), RoleID: &roleID}

	mock.ExpectQuery(`SELECT \* FROM "roles"`).WillReturnRows(activeRoleRows(roleID, nil))
	mock.ExpectQuery(`SELECT p.code FROM permissions p`).
		WillReturnRows(sqlmock.NewRows([]string{"code"}).AddRow("notes:read"))

	codes, err := resolver.FlatCodes(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, []string{"notes:read"}, codes)

	// Second call: role lookup only, flat set served from cache.
	mock.ExpectQuery(`SELECT \* FROM "roles"`).WillReturnRows(activeRoleRows(roleID, nil))

	codes, err = resolver.FlatCodes(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, []string{"notes:read"}, codes)

	// After invalidation the store is consulted again.
	resolver.InvalidateRole(roleID)

	mock.ExpectQuery(`SELECT \* FROM "roles"`).WillReturnRows(activeRoleRows(roleID, nil))
	mock.ExpectQuery(`SELECT p.code FROM permissions p`).
		WillReturnRows(sqlmock.NewRows([]string{"code"}).AddRow("notes:read").AddRow("notes:create"))

	codes, err = resolver.FlatCodes(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, []string{"notes:read", "notes:create"}, codes)

	assert.NoError(t, mock.ExpectationsWereMet())
}
