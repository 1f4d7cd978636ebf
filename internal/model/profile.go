// internal/model/profile.go
package model

import "time"

// Profile holds the directory attributes of a creator or sponsor account.
// Contact fields are only exposed to the owner, admins, and unlocked applicants.
type Profile struct {
	AccountID     string     `db:"account_id" json:"account_id"`
	Kind          Role       `db:"kind" json:"kind"`
	DisplayName   string     `db:"display_name" json:"display_name"`
	Bio           string     `db:"bio" json:"bio"`
	Niche         string     `db:"niche" json:"niche"`
	Platforms     []string   `db:"platforms" json:"platforms"`
	FollowerCount int64      `db:"follower_count" json:"follower_count"`
	CompanyName   string     `db:"company_name" json:"company_name,omitempty"`
	Website       string     `db:"website" json:"website,omitempty"`
	ContactEmail  string     `db:"contact_email" json:"contact_email,omitempty"`
	ContactPhone  string     `db:"contact_phone" json:"contact_phone,omitempty"`
	UpdatedAt     *time.Time `db:"updated_at" json:"updated_at,omitempty"`
}

func (p *Profile) Clone() *Profile {
	out := *p
	out.Platforms = append([]string(nil), p.Platforms...)
	if p.UpdatedAt != nil {
		u := *p.UpdatedAt
		out.UpdatedAt = &u
	}
	return &out
}

// Public strips contact details.
func (p *Profile) Public() *Profile {
	out := p.Clone()
	out.ContactEmail = ""
	out.ContactPhone = ""
	return out
}

// ProfileFields are the writable profile attributes.
type ProfileFields struct {
	DisplayName   *string  `json:"display_name,omitempty" yaml:"display_name"`
	Bio           *string  `json:"bio,omitempty" yaml:"bio"`
	Niche         *string  `json:"niche,omitempty" yaml:"niche"`
	Platforms     []string `json:"platforms,omitempty" yaml:"platforms"`
	FollowerCount *int64   `json:"follower_count,omitempty" yaml:"follower_count"`
	CompanyName   *string  `json:"company_name,omitempty" yaml:"company_name"`
	Website       *string  `json:"website,omitempty" yaml:"website"`
	ContactEmail  *string  `json:"contact_email,omitempty" yaml:"contact_email"`
	ContactPhone  *string  `json:"contact_phone,omitempty" yaml:"contact_phone"`
}

func (f ProfileFields) Apply(p *Profile) {
	if f.DisplayName != nil {
		p.DisplayName = *f.DisplayName
	}
	if f.Bio != nil {
		p.Bio = *f.Bio
	}
	if f.Niche != nil {
		p.Niche = *f.Niche
	}
	if f.Platforms != nil {
		p.Platforms = append([]string(nil), f.Platforms...)
	}
	if f.FollowerCount != nil {
		p.FollowerCount = *f.FollowerCount
	}
	if f.CompanyName != nil {
		p.CompanyName = *f.CompanyName
	}
	if f.Website != nil {
		p.Website = *f.Website
	}
	if f.ContactEmail != nil {
		p.ContactEmail = *f.ContactEmail
	}
	if f.ContactPhone != nil {
		p.ContactPhone = *f.ContactPhone
	}
}
