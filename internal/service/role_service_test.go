package service

import (
	"context"
	"testing"

	"backend/internal/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockRoleService(t *testing.T) (RoleService, sqlmock.Sqlmock) {
	t.Helper()
	gormDB, mock := newMockGorm(t)
	roleRepo := repository.NewRoleRepository(gormDB)
	grantRepo := repository.NewGrantRepository(gormDB)
	txManager := repository.NewTransactionManager(gormDB)
	grantService := NewGrantService(roleRepo, grantRepo, txManager, nil, nil, nil)
	return NewRoleService(roleRepo, grantRepo, grantService), mock
}

func TestSeedDefaultsLeavesExistingRoleGrantsAlone(t *testing.T) {
	svc, mock := newMockRoleService(t)

	// The full permission catalog already exists.
	for _, p := range defaultPermissionCatalog() {
		mock.ExpectQuery(`SELECT \* FROM "permissions"`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "code", "module", "action"}).
				AddRow(uuid.New(), p.Code, p.Module, p.Action))
	}

	// Every default role already exists. Seeding must stop at the lookup:
	// administrators may have edited these roles' grant trees, and a
	// restart must not replace them with the defaults. No transaction may
	// open, so any write attempt fails the expectation set below.
	for range defaultRoles() {
		mock.ExpectQuery(`SELECT \* FROM "roles"`).WillReturnRows(activeRoleRows(uuid.New(), nil))
	}

	err := svc.SeedDefaults(context.Background())
	require.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}
