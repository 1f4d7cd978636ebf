// internal/model/application.go
package model

import "time"

type ApplicationStatus string

const (
	ApplicationPending  ApplicationStatus = "pending"
	ApplicationAccepted ApplicationStatus = "accepted"
	ApplicationRejected ApplicationStatus = "rejected"
)

// IsDecision reports whether s is one of the two terminal outcomes a sponsor may pick.
func (s ApplicationStatus) IsDecision() bool {
	return s == ApplicationAccepted || s == ApplicationRejected
}

type Application struct {
	ID                string            `db:"id" json:"id"`
	CampaignID        string            `db:"campaign_id" json:"campaign_id"`
	CreatorID         string            `db:"creator_id" json:"creator_id"`
	Status            ApplicationStatus `db:"status" json:"status"`
	TokensSpent       int64             `db:"tokens_spent" json:"tokens_spent"`
	AppliedAt         time.Time         `db:"applied_at" json:"applied_at"`
	DecidedAt         *time.Time        `db:"decided_at" json:"decided_at,omitempty"`
	ContactUnlockedAt *time.Time        `db:"contact_unlocked_at" json:"contact_unlocked_at,omitempty"`
}

func (a *Application) Clone() *Application {
	out := *a
	if a.DecidedAt != nil {
		d := *a.DecidedAt
		out.DecidedAt = &d
	}
	if a.ContactUnlockedAt != nil {
		u := *a.ContactUnlockedAt
		out.ContactUnlockedAt = &u
	}
	return &out
}

// ContactDetails is what an accepted creator receives after unlocking a campaign owner.
type ContactDetails struct {
	SponsorID    string `json:"sponsor_id"`
	DisplayName  string `json:"display_name"`
	CompanyName  string `json:"company_name,omitempty"`
	ContactEmail string `json:"contact_email,omitempty"`
	ContactPhone string `json:"contact_phone,omitempty"`
	Website      string `json:"website,omitempty"`
}
