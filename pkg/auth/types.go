// Package auth resolves the acting principal for Canopy API requests.
//
// The orchestrator treats authentication as a collaborator: by the time
// an invocation runs, the principal is already on the context. This
// package provides the JWT bearer middleware that puts it there,
// fail-closed.
package auth

// Principal is an authenticated actor.
type Principal interface {
	GetID() string
	GetFacilityID() string
	GetRoles() []string
}

// BasePrincipal is the standard Principal implementation built from
// token claims.
type BasePrincipal struct {
	ID         string
	FacilityID string
	Roles      []string
}

func (p *BasePrincipal) GetID() string         { return p.ID }
func (p *BasePrincipal) GetFacilityID() string { return p.FacilityID }
func (p *BasePrincipal) GetRoles() []string    { return p.Roles }
