package role

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/kvstore"
	"github.com/spec-kit/support-desk/internal/permission"
	"github.com/spec-kit/support-desk/pkg/apperrors"
)

func newTestRegistry(t *testing.T) (*Registry, *kvstore.Memory) {
	t.Helper()
	kv := kvstore.NewMemory()
	registry, err := NewRegistry(context.Background(), kv, "test:roles", zap.NewNop())
	require.NoError(t, err)
	return registry, kv
}

func TestBootstrapSeedsOnce(t *testing.T) {
	registry, kv := newTestRegistry(t)
	ctx := context.Background()

	require.NoError(t, registry.Bootstrap(ctx))
	seeded := registry.Count()
	assert.Equal(t, len(systemRoleSeeds()), seeded)

	admin := registry.GetByID(permission.AdminRoleID)
	require.NotNil(t, admin)
	assert.True(t, admin.IsSystem)
	assert.ElementsMatch(t, permission.All(), admin.Permissions)

	// second bootstrap is a no-op even after custom roles were added
	_, err := registry.Create(ctx, Input{Name: "auditor", Permissions: []domain.Permission{permission.ReportsView}})
	require.NoError(t, err)
	require.NoError(t, registry.Bootstrap(ctx))
	assert.Equal(t, seeded+1, registry.Count())

	// the seeded set survives a reload
	reloaded, err := NewRegistry(ctx, kv, "test:roles", zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, seeded+1, reloaded.Count())
	require.NotNil(t, reloaded.GetByID(permission.AdminRoleID))
}

func TestCreateNormalizesPermissions(t *testing.T) {
	registry, _ := newTestRegistry(t)
	ctx := context.Background()

	created, err := registry.Create(ctx, Input{
		Name: "triage",
		Permissions: []domain.Permission{
			permission.TicketsView,
			permission.GeneralDashboardView,
			permission.TicketsView, // duplicate
		},
	})
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.False(t, created.IsSystem)
	assert.Equal(t, []domain.Permission{permission.GeneralDashboardView, permission.TicketsView}, created.Permissions)
}

func TestCreateRejectsUnknownToken(t *testing.T) {
	registry, _ := newTestRegistry(t)

	_, err := registry.Create(context.Background(), Input{
		Name:        "broken",
		Permissions: []domain.Permission{"tickets:teleport"},
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestCreateRequiresName(t *testing.T) {
	registry, _ := newTestRegistry(t)

	_, err := registry.Create(context.Background(), Input{Name: ""})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestUpdateUnknownRole(t *testing.T) {
	registry, _ := newTestRegistry(t)

	updated, err := registry.Update(context.Background(), "nope", Input{Name: "whatever"})
	require.NoError(t, err)
	assert.Nil(t, updated)
}

func TestUpdateSystemRoleProtection(t *testing.T) {
	registry, _ := newTestRegistry(t)
	ctx := context.Background()
	require.NoError(t, registry.Bootstrap(ctx))

	admin := registry.GetByID(permission.AdminRoleID)
	require.NotNil(t, admin)

	t.Run("name change refused", func(t *testing.T) {
		updated, err := registry.Update(ctx, admin.ID, Input{
			Name:        "renamed-admin",
			Description: admin.Description,
			Permissions: admin.Permissions,
		})
		require.NoError(t, err)
		assert.Nil(t, updated)

		unchanged := registry.GetByID(admin.ID)
		require.NotNil(t, unchanged)
		assert.Equal(t, admin.Name, unchanged.Name)
	})

	t.Run("permission change refused", func(t *testing.T) {
		updated, err := registry.Update(ctx, admin.ID, Input{
			Name:        admin.Name,
			Description: admin.Description,
			Permissions: []domain.Permission{permission.TicketsView},
		})
		require.NoError(t, err)
		assert.Nil(t, updated)
	})

	t.Run("description change allowed", func(t *testing.T) {
		updated, err := registry.Update(ctx, admin.ID, Input{
			Name:        admin.Name,
			Description: "full access, do not hand out casually",
			Permissions: admin.Permissions,
		})
		require.NoError(t, err)
		require.NotNil(t, updated)
		assert.Equal(t, "full access, do not hand out casually", updated.Description)
		assert.Equal(t, admin.Name, updated.Name)
	})
}

func TestUpdateCustomRole(t *testing.T) {
	registry, _ := newTestRegistry(t)
	ctx := context.Background()

	created, err := registry.Create(ctx, Input{
		Name:        "triage",
		Permissions: []domain.Permission{permission.TicketsView},
	})
	require.NoError(t, err)

	updated, err := registry.Update(ctx, created.ID, Input{
		Name:        "triage-plus",
		Description: "can also assign",
		Permissions: []domain.Permission{permission.TicketsView, permission.TicketsAssign},
	})
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, "triage-plus", updated.Name)
	assert.True(t, registry.HasPermission(created.ID, permission.TicketsAssign))
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt) || updated.UpdatedAt.Equal(created.UpdatedAt))
}

func TestDeleteSemantics(t *testing.T) {
	registry, _ := newTestRegistry(t)
	ctx := context.Background()
	require.NoError(t, registry.Bootstrap(ctx))
	before := registry.Count()

	t.Run("unknown role", func(t *testing.T) {
		deleted, err := registry.Delete(ctx, "nope")
		require.NoError(t, err)
		assert.False(t, deleted)
		assert.Equal(t, before, registry.Count())
	})

	t.Run("system role refused", func(t *testing.T) {
		deleted, err := registry.Delete(ctx, permission.AdminRoleID)
		require.NoError(t, err)
		assert.False(t, deleted)
		assert.Equal(t, before, registry.Count())
		require.NotNil(t, registry.GetByID(permission.AdminRoleID))
	})

	t.Run("custom role removed", func(t *testing.T) {
		created, err := registry.Create(ctx, Input{Name: "temp"})
		require.NoError(t, err)
		deleted, err := registry.Delete(ctx, created.ID)
		require.NoError(t, err)
		assert.True(t, deleted)
		assert.Nil(t, registry.GetByID(created.ID))
		assert.Equal(t, before, registry.Count())
	})
}

// flakyKV wraps a backing store and fails Save on demand.
type flakyKV struct {
	kvstore.Store
	failSave bool
}

func (f *flakyKV) Save(ctx context.Context, key string, value []byte) error {
	if f.failSave {
		return errors.New("backend down")
	}
	return f.Store.Save(ctx, key, value)
}

func TestDeletePersistFailureIsAnError(t *testing.T) {
	ctx := context.Background()
	kv := &flakyKV{Store: kvstore.NewMemory()}
	registry, err := NewRegistry(ctx, kv, "test:roles", zap.NewNop())
	require.NoError(t, err)
	created, err := registry.Create(ctx, Input{Name: "temp"})
	require.NoError(t, err)

	kv.failSave = true
	deleted, err := registry.Delete(ctx, created.ID)
	require.Error(t, err)
	assert.False(t, deleted)
	// the role is restored, not half-deleted
	require.NotNil(t, registry.GetByID(created.ID))

	kv.failSave = false
	deleted, err = registry.Delete(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, deleted)
}

func TestListSortedByName(t *testing.T) {
	registry, _ := newTestRegistry(t)
	ctx := context.Background()

	for _, name := range []string{"zeta", "alpha", "mid"} {
		_, err := registry.Create(ctx, Input{Name: name})
		require.NoError(t, err)
	}

	listed := registry.List(ctx)
	require.Len(t, listed, 3)
	assert.Equal(t, "alpha", listed[0].Name)
	assert.Equal(t, "mid", listed[1].Name)
	assert.Equal(t, "zeta", listed[2].Name)
}

func TestGetPermissionsUnknownRole(t *testing.T) {
	registry, _ := newTestRegistry(t)
	assert.Nil(t, registry.GetPermissions("nope"))
	assert.False(t, registry.HasPermission("nope", permission.TicketsView))
}

func TestCustomRoleRoundTrip(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewMemory()
	registry, err := NewRegistry(ctx, kv, "test:roles", zap.NewNop())
	require.NoError(t, err)

	created, err := registry.Create(ctx, Input{
		Name:        "billing-audit",
		Description: "read-only billing access",
		Permissions: []domain.Permission{permission.ReportsView, permission.TicketsView},
	})
	require.NoError(t, err)

	reloaded, err := NewRegistry(ctx, kv, "test:roles", zap.NewNop())
	require.NoError(t, err)
	got := reloaded.GetByID(created.ID)
	require.NotNil(t, got)
	assert.Equal(t, created.Name, got.Name)
	assert.Equal(t, created.Permissions, got.Permissions)
}
