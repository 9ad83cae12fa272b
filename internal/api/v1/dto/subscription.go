package dto

import "time"

type CheckoutRequestDTO struct {
	Plan string `json:"plan" validate:"required,oneof=monthly annual"`
}

type CheckoutResponseDTO struct {
	URL string `json:"url"`
}

type PortalResponseDTO struct {
	URL string `json:"url"`
}

type SubscriptionResponseDTO struct {
	PlanID    string    `json:"plan_id"`
	PlanName  string    `json:"plan_name"`
	IsPremium bool      `json:"is_premium"`
	Status    string    `json:"status"`
	EndsAt    time.Time `json:"ends_at"`
}
