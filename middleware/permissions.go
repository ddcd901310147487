package middleware

import "net/http"

// rolePermissions maps each role to the resources it may touch. super_admin
// matches everything.
var rolePermissions = map[string][]string{
	"admin": {
		"users", "zones", "divisions", "stations", "fitting_batches",
		"qr_codes", "installations", "inspections", "maintenance_records",
		"analysis", "export",
	},
	"manager": {
		"zones", "divisions", "stations", "fitting_batches", "qr_codes",
		"installations", "inspections", "maintenance_records", "analysis",
		"export",
	},
	"inspector": {"qr_codes", "inspections", "maintenance_records"},
	"operator":  {"qr_codes", "installations"},
}

// HasPermission reports whether role may act on resource.
func HasPermission(role, resource string) bool {
	if role == "super_admin" {
		return true
	}
	for _, res := range rolePermissions[role] {
		if res == resource {
			return true
		}
	}
	return false
}

// RequirePermission gates a subtree on the caller's role. Must run after JWT.
func RequirePermission(resource string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := GetClaims(r)
			if claims == nil {
				http.Error(w, "not authenticated", http.StatusUnauthorized)
				return
			}
			if !HasPermission(claims.Role, resource) {
				http.Error(w, "insufficient permissions", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
