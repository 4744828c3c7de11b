package permission

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/support-desk/internal/domain"
)

// stubRoles is a fixed-map role source.
type stubRoles map[string][]domain.Permission

func (s stubRoles) GetPermissions(roleID string) []domain.Permission { return s[roleID] }

func TestAdminSentinelBypassesRoleSource(t *testing.T) {
	// the source knows nothing about the admin role on purpose
	resolver := NewResolver(stubRoles{})

	assert.ElementsMatch(t, All(), resolver.Permissions(AdminRoleID))
	for _, token := range All() {
		assert.True(t, resolver.HasPermission(AdminRoleID, token), string(token))
	}
	assert.True(t, resolver.HasAll(AdminRoleID, TicketsView, RolesDelete, SettingsClearData))

	// even the sentinel does not grant tokens outside the catalog
	assert.False(t, resolver.HasPermission(AdminRoleID, "tickets:teleport"))
}

func TestResolverConsultsRoleSource(t *testing.T) {
	resolver := NewResolver(stubRoles{
		"support-agent": {TicketsView, TicketsEdit},
	})

	assert.True(t, resolver.HasPermission("support-agent", TicketsView))
	assert.False(t, resolver.HasPermission("support-agent", TicketsDelete))
	assert.False(t, resolver.HasPermission("unknown-role", TicketsView))
	assert.Nil(t, resolver.Permissions("unknown-role"))
}

func TestHasAllAndHasAny(t *testing.T) {
	resolver := NewResolver(stubRoles{
		"support-agent": {TicketsView, TicketsEdit},
	})

	assert.True(t, resolver.HasAll("support-agent", TicketsView, TicketsEdit))
	assert.False(t, resolver.HasAll("support-agent", TicketsView, TicketsAssign))
	assert.True(t, resolver.HasAny("support-agent", TicketsAssign, TicketsEdit))
	assert.False(t, resolver.HasAny("support-agent", TicketsAssign, TicketsDelete))

	// vacuous quantifiers
	assert.True(t, resolver.HasAll("support-agent"))
	assert.False(t, resolver.HasAny("support-agent"))
}

func TestCatalogIsClosedAndDeterministic(t *testing.T) {
	all := All()
	require.NotEmpty(t, all)

	seen := make(map[domain.Permission]struct{}, len(all))
	for _, token := range all {
		_, dup := seen[token]
		require.False(t, dup, "duplicate token %s", token)
		seen[token] = struct{}{}
		assert.True(t, Known(token))
	}
	assert.False(t, Known("made:up"))

	// every category token appears in All exactly once
	total := 0
	for _, category := range Categories() {
		total += len(ByCategory(category))
	}
	assert.Equal(t, total, len(all))

	// callers cannot mutate the catalog through returned slices
	mutated := ByCategory(CategoryTickets)
	require.NotEmpty(t, mutated)
	mutated[0] = "tampered"
	assert.NotEqual(t, domain.Permission("tampered"), ByCategory(CategoryTickets)[0])
}
