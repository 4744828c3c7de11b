package role

import (
	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/permission"
)

// systemRoleSeeds returns the built-in role set created once when the
// registry is empty. The administrator carries the full catalog; the
// resolver additionally grants it everything regardless of what is
// stored here.
func systemRoleSeeds() []domain.Role {
	return []domain.Role{
		{
			ID:          permission.AdminRoleID,
			Name:        "Administrator",
			Description: "Full access to every capability.",
			Permissions: permission.All(),
		},
		{
			ID:          "support-manager",
			Name:        "Support Manager",
			Description: "Runs the desk: triage, assignment, reporting.",
			Permissions: []domain.Permission{
				permission.GeneralDashboardView,
				permission.TicketsView,
				permission.TicketsCreate,
				permission.TicketsEdit,
				permission.TicketsAssign,
				permission.TicketsChangeStatus,
				permission.EmployeesView,
				permission.DepartmentsView,
				permission.ReportsView,
				permission.ReportsExport,
				permission.RolesView,
				permission.NotificationsView,
			},
		},
		{
			ID:          "support-agent",
			Name:        "Support Agent",
			Description: "Works assigned tickets and replies to customers.",
			Permissions: []domain.Permission{
				permission.GeneralDashboardView,
				permission.TicketsView,
				permission.TicketsCreate,
				permission.TicketsEdit,
				permission.TicketsChangeStatus,
				permission.NotificationsView,
			},
		},
		{
			ID:          "billing-clerk",
			Name:        "Billing Clerk",
			Description: "Handles billing tickets and exports reports.",
			Permissions: []domain.Permission{
				permission.GeneralDashboardView,
				permission.TicketsView,
				permission.ReportsView,
				permission.ReportsExport,
			},
		},
	}
}
