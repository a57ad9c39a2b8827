package service

import "bizportal/pkg/rbac"

// Actor is the authenticated caller of a service method.
type Actor struct {
	UserID   int
	Role     string
	ClientID int
	Name     string
}

func (a Actor) IsAdmin() bool {
	return a.Role == rbac.RoleAdmin
}

// SenderType maps the actor's role onto a message sender_type.
func (a Actor) SenderType() string {
	if a.IsAdmin() {
		return "admin"
	}
	return "client"
}

// CanSee reports whether the actor may read a record owned by clientID.
func (a Actor) CanSee(clientID int) error {
	return rbac.CheckClientScope(a.Role, a.ClientID, clientID)
}

func derefInt(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
