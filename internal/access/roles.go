package access

import (
	"sort"
	"strings"
)

// Role namespaces. Legacy role names "admin" and "staff" map into the
// internal namespace; everything else is external.
const (
	NamespaceInternal = "internal"
	NamespaceExternal = "external"

	RoleInternalAdmin = "internal.admin"
	RoleInternalStaff = "internal.staff"
)

var internalLegacyNames = map[string]struct{}{
	"admin": {},
	"staff": {},
}

// Canonicalize maps raw role names to the deduplicated, sorted canonical set
// and reports whether any of them is internal. Comparison is
// case-insensitive; already-namespaced names pass through lowercased.
func Canonicalize(names []string) ([]string, bool) {
	set := make(map[string]struct{}, len(names))
	isInternal := false
	for _, name := range names {
		n := strings.ToLower(strings.TrimSpace(name))
		if n == "" {
			continue
		}
		var canonical string
		switch {
		case strings.Contains(n, "."):
			canonical = n
		default:
			if _, ok := internalLegacyNames[n]; ok {
				canonical = NamespaceInternal + "." + n
			} else {
				canonical = NamespaceExternal + "." + n
			}
		}
		if strings.HasPrefix(canonical, NamespaceInternal+".") {
			isInternal = true
		}
		set[canonical] = struct{}{}
	}

	roles := make([]string, 0, len(set))
	for r := range set {
		roles = append(roles, r)
	}
	sort.Strings(roles)
	return roles, isInternal
}

// Static permission grants per canonical role. Kept coarse: the console only
// distinguishes read access from user management.
var rolePermissions = map[string][]string{
	RoleInternalAdmin:    {"admin:console", "users:read", "users:write", "roles:assign"},
	RoleInternalStaff:    {"admin:console", "users:read"},
	"external.organizer": {"events:manage"},
	"external.athlete":   {"events:register"},
	"external.volunteer": {"events:assist"},
}

// PermissionsFor returns the union of permissions granted by the canonical
// roles, sorted and deduplicated.
func PermissionsFor(canonicalRoles []string) []string {
	set := make(map[string]struct{})
	for _, role := range canonicalRoles {
		for _, p := range rolePermissions[role] {
			set[p] = struct{}{}
		}
	}
	perms := make([]string, 0, len(set))
	for p := range set {
		perms = append(perms, p)
	}
	sort.Strings(perms)
	return perms
}
