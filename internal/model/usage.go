package model

import "time"

// GatedAction identifies a rate-capped user action.
type GatedAction string

const (
	GatedActionChat GatedAction = "chat"
	GatedActionPDF  GatedAction = "pdf"
)

// UsageRecord tracks one user's consumption of gated actions in the current
// period. Chat counts reset daily, PDF counts monthly, both keyed off the
// same anchor date. Counters missing from a stored row default to zero.
type UsageRecord struct {
	UserID            string    `db:"user_id" json:"user_id"`
	ChatMessageCount  int       `db:"chat_message_count" json:"chat_message_count"`
	PDFGeneratedCount int       `db:"pdf_generated_count" json:"pdf_generated_count"`
	PeriodAnchor      time.Time `db:"period_anchor" json:"period_anchor"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}
