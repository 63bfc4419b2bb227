package access

// Page is one permission-gated dashboard surface.
type Page struct {
	Slug       string `json:"slug"`
	Title      string `json:"title"`
	Path       string `json:"path"`
	Permission string `json:"permission"`
}

// Pages lists the dashboard surfaces in navigation order.
var Pages = []Page{
	{Slug: "overview", Title: "Vista General", Path: "/api/v1/overview", Permission: PermOverview},
	{Slug: "agents", Title: "Gestión de Agentes IA", Path: "/api/v1/agents", Permission: PermAgentRegistry},
	{Slug: "chat", Title: "Agentes IA", Path: "/api/v1/chat", Permission: PermAgentChat},
	{Slug: "training", Title: "Entrenar", Path: "/api/v1/training", Permission: PermTraining},
	{Slug: "monitoring", Title: "Monitoreo", Path: "/api/v1/monitoring", Permission: PermMonitoring},
	{Slug: "history", Title: "Historial de Conversaciones", Path: "/api/v1/history", Permission: PermHistory},
	{Slug: "analytics", Title: "Análisis de Consultas", Path: "/api/v1/analytics", Permission: PermQueryAnalysis},
	{Slug: "users", Title: "Gestión de Usuarios", Path: "/api/v1/users", Permission: PermUsers},
	{Slug: "configuration", Title: "Configuración", Path: "/api/v1/config", Permission: PermConfiguration},
	{Slug: "profile", Title: "Mi Perfil", Path: "/api/v1/profile", Permission: PermProfile},
	{Slug: "roles", Title: "Roles", Path: "/api/v1/roles", Permission: PermRoles},
}

// AccessiblePages returns, in navigation order, the pages granted by perms.
func AccessiblePages(perms PermissionSet) []Page {
	out := make([]Page, 0, len(Pages))
	for _, p := range Pages {
		if perms.Has(p.Permission) {
			out = append(out, p)
		}
	}
	return out
}

// CanAccess reports whether perms grants the page identified by slug.
func CanAccess(perms PermissionSet, slug string) bool {
	for _, p := range Pages {
		if p.Slug == slug {
			return perms.Has(p.Permission)
		}
	}
	return false
}
