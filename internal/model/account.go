// internal/model/account.go
package model

import "time"

type Role string

const (
	RoleCreator Role = "creator"
	RoleSponsor Role = "sponsor"
	RoleAdmin   Role = "admin"
)

func (r Role) Valid() bool {
	return r == RoleCreator || r == RoleSponsor || r == RoleAdmin
}

// Account is an identity with a role fixed at creation.
type Account struct {
	ID          string    `db:"id" json:"id"`
	Role        Role      `db:"role" json:"role"`
	DisplayName string    `db:"display_name" json:"display_name"`
	Email       string    `db:"email" json:"email"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
