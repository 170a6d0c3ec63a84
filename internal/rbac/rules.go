package rbac

// Simple default policy. Expand as needed.
var RolePermissions = map[string][]string{
	"student": {
		"lesson:view",
		"session:view",
		"blocks:view",
		"working:save",
		"response:submit",
		"session:navigate",
	},
	"teacher": {
		"lesson:*",
		"schema:edit",
		"session:*",
		"pacing:edit",
		"blocks:view",
		"blocks:reveal",
		"board:view",
		"working:save",
		"response:submit",
	},
	"admin": {
		"*", // everything
	},
}
