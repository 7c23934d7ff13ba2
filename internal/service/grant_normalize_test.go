package service

import (
	"testing"

	"backend/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(b bool) *bool    { return &b }
func strPtr(s string) *string { return &s }

func TestNormalizeModuleGrants(t *testing.T) {
	roleID := uuid.New()
	permID := uuid.New()

	tests := []struct {
		name           string
		input          ModuleGrantInput
		wantHasAccess  bool
		wantDataAccess string
	}{
		{
			name:           "no permissions and no explicit access defaults to denied",
			input:          ModuleGrantInput{ModuleID: "leads"},
			wantHasAccess:  false,
			wantDataAccess: model.DataAccessNone,
		},
		{
			name: "granted permission implies access with team scope",
			input: ModuleGrantInput{
				ModuleID:    "leads",
				Permissions: []PermissionFlagInput{{PermissionID: permID.String(), Granted: true}},
			},
			wantHasAccess:  true,
			wantDataAccess: model.DataAccessTeam,
		},
		{
			name: "ungranted permissions do not imply access",
			input: ModuleGrantInput{
				ModuleID:    "leads",
				Permissions: []PermissionFlagInput{{PermissionID: permID.String(), Granted: false}},
			},
			wantHasAccess:  false,
			wantDataAccess: model.DataAccessNone,
		},
		{
			name: "explicit hasAccess wins over permission inference",
			input: ModuleGrantInput{
				ModuleID:    "leads",
				HasAccess:   boolPtr(true),
				Permissions: []PermissionFlagInput{{PermissionID: permID.String(), Granted: false}},
			},
			wantHasAccess:  true,
			wantDataAccess: model.DataAccessTeam,
		},
		{
			name: "explicit dataAccess is kept",
			input: ModuleGrantInput{
				ModuleID:   "leads",
				HasAccess:  boolPtr(true),
				DataAccess: strPtr(model.DataAccessOwn),
			},
			wantHasAccess:  true,
			wantDataAccess: model.DataAccessOwn,
		},
		{
			name: "invalid dataAccess falls back to computed default",
			input: ModuleGrantInput{
				ModuleID:   "leads",
				HasAccess:  boolPtr(true),
				DataAccess: strPtr("everything"),
			},
			wantHasAccess:  true,
			wantDataAccess: model.DataAccessTeam,
		},
		{
			name: "denied access pins dataAccess to none regardless of input",
			input: ModuleGrantInput{
				ModuleID:   "leads",
				HasAccess:  boolPtr(false),
				DataAccess: strPtr(model.DataAccessAll),
			},
			wantHasAccess:  false,
			wantDataAccess: model.DataAccessNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalizeModuleGrants(roleID, []ModuleGrantInput{tt.input})
			require.Len(t, got, 1)
			assert.Equal(t, roleID, got[0].Module.RoleID)
			assert.Equal(t, tt.wantHasAccess, got[0].Module.HasAccess)
			assert.Equal(t, tt.wantDataAccess, got[0].Module.DataAccess)
		})
	}
}

func TestNormalizeModuleGrantsSkipsEmptyModuleID(t *testing.T) {
	got := normalizeModuleGrants(uuid.New(), []ModuleGrantInput{
		{ModuleID: ""},
		{ModuleID: "notes"},
	})
	require.Len(t, got, 1)
	assert.Equal(t, "notes", got[0].Module.ModuleID)
}

func TestNormalizeModuleGrantsFieldRules(t *testing.T) {
	got := normalizeModuleGrants(uuid.New(), []ModuleGrantInput{
		{
			ModuleID: "students",
			Fields: []FieldFlagInput{
				{FieldID: "phone", IsVisible: true, IsEditable: true},
				{FieldID: "email", IsVisible: false, IsEditable: true}, // contradiction: must self-heal
				{FieldID: "", IsVisible: true, IsEditable: true},       // no field id: skipped
			},
		},
	})
	require.Len(t, got, 1)
	require.Len(t, got[0].Fields, 2)

	phone := got[0].Fields[0]
	assert.Equal(t, "phone", phone.FieldID)
	assert.True(t, phone.IsVisible)
	assert.True(t, phone.IsEditable)

	email := got[0].Fields[1]
	assert.Equal(t, "email", email.FieldID)
	assert.False(t, email.IsVisible)
	assert.False(t, email.IsEditable, "editable must never survive without visible")
}

func TestNormalizeModuleGrantsSkipsUnparseablePermissionIDs(t *testing.T) {
	got := normalizeModuleGrants(uuid.New(), []ModuleGrantInput{
		{
			ModuleID:    "leads",
			Permissions: []PermissionFlagInput{{PermissionID: "not-a-uuid", Granted: true}},
		},
	})
	require.Len(t, got, 1)
	assert.Empty(t, got[0].GrantedPerms)
	assert.False(t, got[0].Module.HasAccess)
}

func TestProjectLegacyGrants(t *testing.T) {
	a := uuid.New()
	b := uuid.New()
	c := uuid.New()

	grants := []normalizedGrant{
		{GrantedPerms: []uuid.UUID{a, b}},
		{GrantedPerms: []uuid.UUID{b}}, // duplicate across modules
	}

	got := projectLegacyGrants(grants, []string{c.String(), a.String(), "garbage"})

	// Union of override and granted ids, deduplicated, garbage dropped.
	assert.ElementsMatch(t, []uuid.UUID{a, b, c}, got)
	assert.Len(t, got, 3)
}

func TestProjectLegacyGrantsExcludesUngranted(t *testing.T) {
	got := projectLegacyGrants([]normalizedGrant{{GrantedPerms: nil}}, nil)
	assert.Empty(t, got)
}
