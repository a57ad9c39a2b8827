package rbac

import "slices"

// Permissions
const (
	PermissionManageLeads    = "leads:manage"
	PermissionManageClients  = "clients:manage"
	PermissionManageProjects = "projects:manage"
	PermissionManageInvoices = "invoices:manage"
	PermissionManageFiles    = "files:manage"
	PermissionViewAnalytics  = "analytics:read"
	PermissionReplayOutbox   = "outbox:replay"

	PermissionReadOwnProjects = "own_projects:read"
	PermissionReadOwnInvoices = "own_invoices:read"
	PermissionReadSharedFiles = "shared_files:read"
	PermissionSendMessage     = "messages:send"
)

// Roles
const (
	RoleAdmin  = "admin"
	RoleClient = "client"
)

var rolePermissions = map[string][]string{
	RoleClient: {
		PermissionReadOwnProjects,
		PermissionReadOwnInvoices,
		PermissionReadSharedFiles,
		PermissionSendMessage,
	},
	RoleAdmin: {
		PermissionManageLeads,
		PermissionManageClients,
		PermissionManageProjects,
		PermissionManageInvoices,
		PermissionManageFiles,
		PermissionViewAnalytics,
		PermissionReplayOutbox,
		PermissionSendMessage,
	},
}

// IsValidRole reports whether role is known.
func IsValidRole(role string) bool {
	_, ok := rolePermissions[role]
	return ok
}

// HasPermission reports whether role grants permission.
func HasPermission(role, permission string) bool {
	permissions, ok := rolePermissions[role]
	if !ok {
		return false
	}
	return slices.Contains(permissions, permission)
}

// CheckPermission is HasPermission returning a typed error.
func CheckPermission(userID int, role, permission string) error {
	if !HasPermission(role, permission) {
		return &PermissionDeniedError{
			UserID:     userID,
			Role:       role,
			Permission: permission,
		}
	}
	return nil
}

type PermissionDeniedError struct {
	UserID     int
	Role       string
	Permission string
}

func (e *PermissionDeniedError) Error() string {
	return "insufficient permissions"
}

// CheckClientScope makes sure a client-role user only touches its own records.
// Admins pass for any client id.
func CheckClientScope(role string, tokenClientID, resourceClientID int) error {
	if role == RoleAdmin {
		return nil
	}
	if tokenClientID == 0 || tokenClientID != resourceClientID {
		return &ClientScopeError{
			TokenClientID:    tokenClientID,
			ResourceClientID: resourceClientID,
		}
	}
	return nil
}

type ClientScopeError struct {
	TokenClientID    int
	ResourceClientID int
}

func (e *ClientScopeError) Error() string {
	return "resource belongs to another client"
}
