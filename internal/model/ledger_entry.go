// internal/model/ledger_entry.go
package model

import "time"

type LedgerReason string

const (
	ReasonPurchased LedgerReason = "purchased"
	ReasonEarned    LedgerReason = "earned"
	ReasonSpent     LedgerReason = "spent"
)

func (r LedgerReason) Valid() bool {
	return r == ReasonPurchased || r == ReasonEarned || r == ReasonSpent
}

// LedgerEntry is an immutable balance movement. Delta is negative for spends.
type LedgerEntry struct {
	ID              string       `db:"id" json:"id"`
	AccountID       string       `db:"account_id" json:"account_id"`
	Delta           int64        `db:"delta" json:"delta"`
	Reason          LedgerReason `db:"reason" json:"reason"`
	RelatedEntityID string       `db:"related_entity_id" json:"related_entity_id,omitempty"`
	IdempotencyKey  string       `db:"idempotency_key" json:"idempotency_key"`
	BalanceAfter    int64        `db:"balance_after" json:"balance_after"`
	CreatedAt       time.Time    `db:"created_at" json:"created_at"`
}

// LedgerReport compares the stored balance with the sum of an account's entries.
type LedgerReport struct {
	AccountID  string `json:"account_id"`
	Balance    int64  `json:"balance"`
	EntrySum   int64  `json:"entry_sum"`
	Entries    int    `json:"entries"`
	Consistent bool   `json:"consistent"`
}
