package service

import (
	"context"
	"testing"

	"backend/internal/model"
	"backend/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubResolver answers DataAccessFor with a fixed scope; everything else denies.
type stubResolver struct {
	scope string
}

func (s *stubResolver) HasPermission(context.Context, Principal, string) (bool, error) {
	return false, nil
}

func (s *stubResolver) DataAccessFor(context.Context, Principal, string) (string, error) {
	return s.scope, nil
}

func (s *stubResolver) FieldVisibility(context.Context, Principal, string, string) (model.FieldAccess, error) {
	return model.FieldAccess{}, nil
}

func (s *stubResolver) FlatCodes(context.Context, Principal) ([]string, error) {
	return nil, nil
}

func (s *stubResolver) InvalidateRole(uuid.UUID) {}

func TestResolveScope(t *testing.T) {
	userID := uuid.New()
	tenantID := uuid.New()

	tests := []struct {
		name        string
		scope       string
		principal   Principal
		multiTenant bool
		wantErr     error
		wantOwner   bool
		wantTenant  bool
	}{
		{
			name:      "none forbids the call",
			scope:     model.DataAccessNone,
			principal: Principal{UserID: userID},
			wantErr:   ErrForbidden,
		},
		{
			name:      "own narrows to the caller",
			scope:     model.DataAccessOwn,
			principal: Principal{UserID: userID},
			wantOwner: true,
		},
		{
			name:        "team narrows to the tenant when multi-tenant",
			scope:       model.DataAccessTeam,
			principal:   Principal{UserID: userID, TenantID: &tenantID},
			multiTenant: true,
			wantTenant:  true,
		},
		{
			name:        "team is unfiltered in single-tenant mode",
			scope:       model.DataAccessTeam,
			principal:   Principal{UserID: userID, TenantID: &tenantID},
			multiTenant: false,
		},
		{
			name:        "team without a tenant is unfiltered",
			scope:       model.DataAccessTeam,
			principal:   Principal{UserID: userID},
			multiTenant: true,
		},
		{
			name:      "all is unfiltered",
			scope:     model.DataAccessAll,
			principal: Principal{UserID: userID},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scope, err := resolveScope(context.Background(), &stubResolver{scope: tt.scope}, tt.principal, "leads", tt.multiTenant)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)

			if tt.wantOwner {
				require.NotNil(t, scope.CreatedByID)
				assert.Equal(t, userID, *scope.CreatedByID)
			} else {
				assert.Nil(t, scope.CreatedByID)
			}
			if tt.wantTenant {
				require.NotNil(t, scope.TenantID)
				assert.Equal(t, tenantID, *scope.TenantID)
			} else {
				assert.Nil(t, scope.TenantID)
			}
		})
	}
}

func TestInScope(t *testing.T) {
	owner := uuid.New()
	stranger := uuid.New()
	tenant := uuid.New()
	otherTenant := uuid.New()

	ownerScope := repository.ScopeFilter{CreatedByID: &owner}
	tenantScope := repository.ScopeFilter{TenantID: &tenant}

	assert.True(t, inScope(repository.ScopeFilter{}, stranger, nil), "empty filter admits everything")

	assert.True(t, inScope(ownerScope, owner, nil))
	assert.False(t, inScope(ownerScope, stranger, nil))

	assert.True(t, inScope(tenantScope, stranger, &tenant))
	assert.False(t, inScope(tenantScope, stranger, &otherTenant))
	assert.False(t, inScope(tenantScope, stranger, nil), "record without a tenant is outside any tenant filter")
}
