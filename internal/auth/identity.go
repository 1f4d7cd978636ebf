// Package auth resolves callers to identities and decides what they may do.
package auth

import (
	"context"

	"github.com/unclebandit/collabhub-backend/internal/model"
)

// Identity is an authenticated caller. A nil *Identity is anonymous.
type Identity struct {
	AccountID string
	Role      model.Role
}

func (i *Identity) IsAdmin() bool {
	return i != nil && i.Role == model.RoleAdmin
}

// System is used by background processes such as the payment worker.
var System = &Identity{AccountID: "system", Role: model.RoleAdmin}

type ctxKey struct{}

func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the caller bound to ctx, or nil for anonymous requests.
func FromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(ctxKey{}).(*Identity)
	return id
}
