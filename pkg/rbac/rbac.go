package rbac

// Permissions
const (
	PermissionReadHabit   = "habit:read"
	PermissionWriteHabit  = "habit:write"
	PermissionImport      = "habit:import"
	PermissionExport      = "habit:export"
	PermissionManageLists = "list:write"
)

// Roles
const (
	RoleUser = "user"
	// RoleDemo is the shared demo account: everything except import.
	RoleDemo = "demo"
)

var rolePermissions = map[string][]string{
	RoleUser: {
		PermissionReadHabit,
		PermissionWriteHabit,
		PermissionImport,
		PermissionExport,
		PermissionManageLists,
	},
	RoleDemo: {
		PermissionReadHabit,
		PermissionWriteHabit,
		PermissionExport,
		PermissionManageLists,
	},
}

// HasPermission reports whether role grants permission. Unknown roles grant nothing.
func HasPermission(role string, permission string) bool {
	permissions, ok := rolePermissions[role]
	if !ok {
		return false
	}

	for _, p := range permissions {
		if p == permission {
			return true
		}
	}
	return false
}

// CheckPermission is HasPermission returning an error for handlers.
func CheckPermission(role string, permission string) error {
	if !HasPermission(role, permission) {
		return &PermissionDeniedError{
			Role:       role,
			Permission: permission,
		}
	}
	return nil
}

// PermissionDeniedError is returned when a role lacks a permission.
type PermissionDeniedError struct {
	Role       string
	Permission string
}

func (e *PermissionDeniedError) Error() string {
	return "insufficient permissions"
}
