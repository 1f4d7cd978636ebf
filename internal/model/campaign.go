// internal/model/campaign.go
package model

import "time"

// CampaignStatus is the canonical campaign lifecycle state. Display labels are
// derived from it by clients, never the other way around.
type CampaignStatus string

const (
	CampaignActive CampaignStatus = "active"
	CampaignPaused CampaignStatus = "paused"
	CampaignClosed CampaignStatus = "closed"
)

func (s CampaignStatus) Valid() bool {
	switch s {
	case CampaignActive, CampaignPaused, CampaignClosed:
		return true
	}
	return false
}

// CanTransitionTo reports whether the state machine allows moving from s to next.
// Closed is terminal; active and paused may swap or close.
func (s CampaignStatus) CanTransitionTo(next CampaignStatus) bool {
	if s == CampaignClosed || !next.Valid() {
		return false
	}
	return true
}

type Campaign struct {
	ID           string         `db:"id" json:"id"`
	OwnerID      string         `db:"owner_id" json:"owner_id"`
	Title        string         `db:"title" json:"title"`
	Description  string         `db:"description" json:"description"`
	Niche        string         `db:"niche" json:"niche"`
	Budget       int64          `db:"budget" json:"budget"`
	Deadline     *time.Time     `db:"deadline" json:"deadline,omitempty"`
	Platforms    []string       `db:"platforms" json:"platforms"`
	Requirements string         `db:"requirements" json:"requirements"`
	Deliverables string         `db:"deliverables" json:"deliverables"`
	TokenCost    int64          `db:"token_cost" json:"token_cost"`
	Status       CampaignStatus `db:"status" json:"status"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    *time.Time     `db:"updated_at" json:"updated_at,omitempty"`
}

// CampaignFields carries the editable attributes of a campaign. Nil pointers
// leave the stored value untouched on edit.
type CampaignFields struct {
	Title        *string    `json:"title,omitempty"`
	Description  *string    `json:"description,omitempty"`
	Niche        *string    `json:"niche,omitempty"`
	Budget       *int64     `json:"budget,omitempty"`
	Deadline     *time.Time `json:"deadline,omitempty"`
	Platforms    []string   `json:"platforms,omitempty"`
	Requirements *string    `json:"requirements,omitempty"`
	Deliverables *string    `json:"deliverables,omitempty"`
	TokenCost    *int64     `json:"token_cost,omitempty"`
}

// Apply copies every set field onto c.
func (f CampaignFields) Apply(c *Campaign) {
	if f.Title != nil {
		c.Title = *f.Title
	}
	if f.Description != nil {
		c.Description = *f.Description
	}
	if f.Niche != nil {
		c.Niche = *f.Niche
	}
	if f.Budget != nil {
		c.Budget = *f.Budget
	}
	if f.Deadline != nil {
		d := *f.Deadline
		c.Deadline = &d
	}
	if f.Platforms != nil {
		c.Platforms = append([]string(nil), f.Platforms...)
	}
	if f.Requirements != nil {
		c.Requirements = *f.Requirements
	}
	if f.Deliverables != nil {
		c.Deliverables = *f.Deliverables
	}
	if f.TokenCost != nil {
		c.TokenCost = *f.TokenCost
	}
}

// Clone returns a deep copy safe to hand out of a store.
func (c *Campaign) Clone() *Campaign {
	out := *c
	out.Platforms = append([]string(nil), c.Platforms...)
	if c.Deadline != nil {
		d := *c.Deadline
		out.Deadline = &d
	}
	if c.UpdatedAt != nil {
		u := *c.UpdatedAt
		out.UpdatedAt = &u
	}
	return &out
}
