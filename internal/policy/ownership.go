// Package policy decides whether an authenticated user may act on a resource.
package policy

import (
	"context"
	"errors"
)

// Action names what the caller wants to do with a resource.
type Action string

const (
	ActionView   Action = "view"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// ErrForbidden is returned by Authorize when the caller may not act on the resource.
var ErrForbidden = errors.New("forbidden")

// Ownable is implemented by every model that belongs to a user.
type Ownable interface {
	GetUserID() uint
}

// OwnershipPolicy lets users act only on what they own.
type OwnershipPolicy struct{}

func NewOwnershipPolicy() *OwnershipPolicy {
	return &OwnershipPolicy{}
}

// Can reports whether userID owns resource. Resources that are not Ownable are denied.
func (p *OwnershipPolicy) Can(_ context.Context, userID uint, _ Action, resource any) bool {
	if userID == 0 || resource == nil {
		return false
	}
	ownable, ok := resource.(Ownable)
	if !ok {
		return false
	}
	return ownable.GetUserID() == userID
}

// Authorize is Can expressed as an error.
func (p *OwnershipPolicy) Authorize(ctx context.Context, userID uint, action Action, resource any) error {
	if !p.Can(ctx, userID, action, resource) {
		return ErrForbidden
	}
	return nil
}
