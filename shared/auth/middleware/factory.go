package middleware

import (
	"net/http"

	"pulsetrack/shared/auth/rbac"
	"pulsetrack/shared/config"
)

var (
	DefaultPublicPrefixes = []string{"/auth/", "/api-docs/", "/swagger-ui/", "/actuator/health"}
	DefaultAdminPrefixes  = []string{"/api/billing/admin/", "/api/analytics/"}

	DefaultRules = []PathRule{
		{Prefix: "/api/patients", Methods: []string{http.MethodGet, http.MethodHead}, Permission: rbac.PermPatientsRead},
		{Prefix: "/api/patients", Methods: []string{http.MethodPost, http.MethodPut, http.MethodDelete}, Permission: rbac.PermPatientsWrite},
	}
)

type GateConfig struct {
	PublicPrefixes []string
	AdminPrefixes  []string
	// Rules are extra path permissions checked after the admin prefixes.
	Rules      []PathRule
	Authorizer rbac.Authorizer
}

// LoadGateConfig reads PUBLIC_PATH_PREFIXES and ADMIN_PATH_PREFIXES.
func LoadGateConfig() GateConfig {
	return GateConfig{
		PublicPrefixes: config.GetEnvSlice("PUBLIC_PATH_PREFIXES", DefaultPublicPrefixes),
		AdminPrefixes:  config.GetEnvSlice("ADMIN_PATH_PREFIXES", DefaultAdminPrefixes),
		Rules:          DefaultRules,
	}
}
