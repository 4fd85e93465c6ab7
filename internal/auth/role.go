// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PermitGate Contributors

package auth

// Role is one of the thirteen closed operational roles. Roles are
// intentionally flat: no role implies another, and guards match exactly.
type Role string

// The closed role enumeration. RoleUnapproved is the state every freshly
// registered account starts in; it never receives a session.
const (
	RoleUnapproved             Role = "UNAPPROVED"
	RoleSystemAdministrator    Role = "SYSTEM_ADMINISTRATOR"
	RoleSecurityAdministrator  Role = "SECURITY_ADMINISTRATOR"
	RolePermitAdministrator    Role = "PERMIT_ADMINISTRATOR"
	RolePermitHolder           Role = "PERMIT_HOLDER"
	RoleRightsHolder           Role = "RIGHTS_HOLDER"
	RoleSkipper                Role = "SKIPPER"
	RoleInspector              Role = "INSPECTOR"
	RoleMonitor                Role = "MONITOR"
	RoleDriver                 Role = "DRIVER"
	RoleFactoryStockController Role = "FACTORY_STOCK_CONTROLLER"
	RoleLocalOutletController  Role = "LOCAL_OUTLET_CONTROLLER"
	RoleExportController       Role = "EXPORT_CONTROLLER"
)

// DefaultLandingRoute is where requests with an unrecognized role are sent.
// Unknown roles always deny; they never reach an operational page.
const DefaultLandingRoute = "/login"

// landingRoutes maps every role to its canonical landing path.
var landingRoutes = map[Role]string{
	RoleUnapproved:             "/register-pending",
	RoleSystemAdministrator:    "/system-admin",
	RoleSecurityAdministrator:  "/security-admin",
	RolePermitAdministrator:    "/permit-admin",
	RolePermitHolder:           "/permit-holder",
	RoleRightsHolder:           "/rights-holder",
	RoleSkipper:                "/skipper",
	RoleInspector:              "/inspector",
	RoleMonitor:                "/monitor",
	RoleDriver:                 "/driver",
	RoleFactoryStockController: "/factory-stock",
	RoleLocalOutletController:  "/local-outlet",
	RoleExportController:       "/export",
}

// Roles returns all values of the closed enumeration.
func Roles() []Role {
	return []Role{
		RoleUnapproved,
		RoleSystemAdministrator,
		RoleSecurityAdministrator,
		RolePermitAdministrator,
		RolePermitHolder,
		RoleRightsHolder,
		RoleSkipper,
		RoleInspector,
		RoleMonitor,
		RoleDriver,
		RoleFactoryStockController,
		RoleLocalOutletController,
		RoleExportController,
	}
}

// IsValid reports whether r is a member of the closed enumeration.
func (r Role) IsValid() bool {
	_, ok := landingRoutes[r]
	return ok
}

// LandingRoute returns the canonical landing path for a role. Stale or
// unrecognized role strings resolve to DefaultLandingRoute rather than
// failing; Guard still denies them.
func LandingRoute(role Role) string {
	if path, ok := landingRoutes[role]; ok {
		return path
	}
	return DefaultLandingRoute
}

// Guard reports whether a request acting as actual may access a page that
// requires the given role. Matching is exact: there is no role hierarchy,
// and an unrecognized actual role is always denied.
func Guard(required, actual Role) bool {
	if !required.IsValid() || !actual.IsValid() {
		return false
	}
	return required == actual
}
