package dto

// UsageResponseDTO reports the caller's remaining quota per gated
// action. Unlimited is set for premium users; the counts are then the
// full caps and not meaningful.
type UsageResponseDTO struct {
	ChatRemaining int  `json:"chat_remaining"`
	PDFRemaining  int  `json:"pdf_remaining"`
	Unlimited     bool `json:"unlimited"`
}
