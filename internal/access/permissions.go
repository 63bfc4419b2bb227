// Package access holds the permission catalogue and the page registry that
// maps each dashboard surface to the permission it requires.
package access

import (
	"sort"
	"strings"
)

const (
	PermOverview      = "Vista General"
	PermAgentRegistry = "Gestión de agentes IA"
	PermAgentChat     = "Agentes IA"
	PermTraining      = "Entrenar"
	PermMonitoring    = "Monitoreo"
	PermHistory       = "Historial de Conversaciones"
	PermQueryAnalysis = "Análisis de Consultas"
	PermUsers         = "Gestión de Usuarios"
	PermConfiguration = "Configuración"
	PermProfile       = "Mi Perfil"
	PermRoles         = "Roles"
)

// AllPermissions is the sorted permission catalogue.
var AllPermissions = sortedCopy([]string{
	PermOverview,
	PermAgentRegistry,
	PermAgentChat,
	PermTraining,
	PermMonitoring,
	PermHistory,
	PermQueryAnalysis,
	PermUsers,
	PermConfiguration,
	PermProfile,
	PermRoles,
})

// DefaultRolePermissions seeds new roles created without an explicit list.
var DefaultRolePermissions = []string{PermOverview, PermProfile}

// RestrictedPermissions may only be granted by a superadministrador.
var RestrictedPermissions = []string{PermConfiguration, PermRoles}

// PermissionSet is an unordered set of permission names.
type PermissionSet map[string]struct{}

// ParsePermissions splits a stored comma-separated list, trimming blanks.
func ParsePermissions(csv string) PermissionSet {
	set := PermissionSet{}
	for _, p := range strings.Split(csv, ",") {
		if p = strings.TrimSpace(p); p != "" {
			set[p] = struct{}{}
		}
	}
	return set
}

func NewPermissionSet(perms ...string) PermissionSet {
	set := make(PermissionSet, len(perms))
	for _, p := range perms {
		if p = strings.TrimSpace(p); p != "" {
			set[p] = struct{}{}
		}
	}
	return set
}

func (s PermissionSet) Has(perm string) bool {
	_, ok := s[perm]
	return ok
}

// Sorted returns the members in lexical order.
func (s PermissionSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// String is the storage form: sorted and comma-joined.
func (s PermissionSet) String() string {
	return strings.Join(s.Sorted(), ",")
}

// IsKnownPermission reports whether perm belongs to the catalogue.
func IsKnownPermission(perm string) bool {
	idx := sort.SearchStrings(AllPermissions, perm)
	return idx < len(AllPermissions) && AllPermissions[idx] == perm
}

func IsRestrictedPermission(perm string) bool {
	for _, p := range RestrictedPermissions {
		if p == perm {
			return true
		}
	}
	return false
}

func sortedCopy(in []string) []string {
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}
