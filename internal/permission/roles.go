package permission

// Role names. Each one is a Resource row; an account's granted resources are
// its role set.
const (
	RoleUser          = "user"
	RoleContract      = "contract"
	RolePermission    = "permission"
	RoleCreatePrompt  = "create_prompt"
	RoleReadPrompt    = "read_prompt"
	RoleUpdatePrompt  = "update_prompt"
	RoleDestroyPrompt = "destroy_prompt"
	RoleAdmin         = "admin"
)

// AllRoles lists every seeded resource name.
var AllRoles = []string{
	RoleUser,
	RoleContract,
	RolePermission,
	RoleCreatePrompt,
	RoleReadPrompt,
	RoleUpdatePrompt,
	RoleDestroyPrompt,
	RoleAdmin,
}

// normalize drops empty and repeated names, keeping first-seen order.
func normalize(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}
