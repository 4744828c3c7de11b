package permission

import "github.com/spec-kit/support-desk/internal/domain"

// Category groups tokens for presentation; it carries no runtime
// effect beyond bulk toggling in editing UIs.
type Category string

const (
	CategoryGeneral       Category = "general"
	CategoryTickets       Category = "tickets"
	CategoryEmployees     Category = "employees"
	CategoryDepartments   Category = "departments"
	CategoryReports       Category = "reports"
	CategorySettings      Category = "settings"
	CategoryRoles         Category = "roles"
	CategoryNotifications Category = "notifications"
)

const (
	GeneralDashboardView domain.Permission = "general:dashboard-view"

	TicketsView         domain.Permission = "tickets:view"
	TicketsCreate       domain.Permission = "tickets:create"
	TicketsEdit         domain.Permission = "tickets:edit"
	TicketsDelete       domain.Permission = "tickets:delete"
	TicketsAssign       domain.Permission = "tickets:assign"
	TicketsChangeStatus domain.Permission = "tickets:change-status"

	EmployeesView   domain.Permission = "employees:view"
	EmployeesCreate domain.Permission = "employees:create"
	EmployeesEdit   domain.Permission = "employees:edit"
	EmployeesDelete domain.Permission = "employees:delete"

	DepartmentsView   domain.Permission = "departments:view"
	DepartmentsCreate domain.Permission = "departments:create"
	DepartmentsEdit   domain.Permission = "departments:edit"
	DepartmentsDelete domain.Permission = "departments:delete"

	ReportsView   domain.Permission = "reports:view"
	ReportsExport domain.Permission = "reports:export"

	SettingsView      domain.Permission = "settings:view"
	SettingsEdit      domain.Permission = "settings:edit"
	SettingsClearData domain.Permission = "settings:clear-data"

	RolesView   domain.Permission = "roles:view"
	RolesCreate domain.Permission = "roles:create"
	RolesEdit   domain.Permission = "roles:edit"
	RolesDelete domain.Permission = "roles:delete"

	NotificationsView   domain.Permission = "notifications:view"
	NotificationsManage domain.Permission = "notifications:manage"
)

// catalog is the closed enumeration of capability tokens, keyed by
// presentation category. Order inside a category is display order.
var catalog = map[Category][]domain.Permission{
	CategoryGeneral: {GeneralDashboardView},
	CategoryTickets: {
		TicketsView, TicketsCreate, TicketsEdit, TicketsDelete,
		TicketsAssign, TicketsChangeStatus,
	},
	CategoryEmployees:   {EmployeesView, EmployeesCreate, EmployeesEdit, EmployeesDelete},
	CategoryDepartments: {DepartmentsView, DepartmentsCreate, DepartmentsEdit, DepartmentsDelete},
	CategoryReports:     {ReportsView, ReportsExport},
	CategorySettings:    {SettingsView, SettingsEdit, SettingsClearData},
	CategoryRoles:       {RolesView, RolesCreate, RolesEdit, RolesDelete},
	CategoryNotifications: {
		NotificationsView, NotificationsManage,
	},
}

// categoryOrder keeps catalog traversal deterministic.
var categoryOrder = []Category{
	CategoryGeneral, CategoryTickets, CategoryEmployees, CategoryDepartments,
	CategoryReports, CategorySettings, CategoryRoles, CategoryNotifications,
}

// Categories returns the presentation categories in display order.
func Categories() []Category {
	out := make([]Category, len(categoryOrder))
	copy(out, categoryOrder)
	return out
}

// ByCategory returns the tokens of one category.
func ByCategory(c Category) []domain.Permission {
	tokens := catalog[c]
	out := make([]domain.Permission, len(tokens))
	copy(out, tokens)
	return out
}

// All returns every token in the catalog in deterministic order.
func All() []domain.Permission {
	var out []domain.Permission
	for _, c := range categoryOrder {
		out = append(out, catalog[c]...)
	}
	return out
}

// Known reports whether the token is part of the closed catalog.
func Known(p domain.Permission) bool {
	for _, c := range categoryOrder {
		for _, candidate := range catalog[c] {
			if candidate == p {
				return true
			}
		}
	}
	return false
}
