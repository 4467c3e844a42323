package models

import (
	"time"

	"github.com/google/uuid"
)

// Account roles.
const (
	RoleBusiness = "business"
	RoleAdmin    = "admin"
)

type Account struct {
	ID                          uuid.UUID  `json:"id"`
	Email                       string     `json:"email"`
	Username                    string     `json:"username"`
	PasswordHash                string     `json:"-"`
	Role                        string     `json:"role"`
	HasAccess                   bool       `json:"has_access"`
	IsOnTrial                   bool       `json:"is_on_trial"`
	TrialStartAt                *time.Time `json:"trial_start_at,omitempty"`
	TrialEndAt                  *time.Time `json:"trial_end_at,omitempty"`
	ReferredByCode              *string    `json:"referred_by_code,omitempty"`
	PayoutAccountID             *string    `json:"payout_account_id,omitempty"`
	PayoutOnboarded             bool       `json:"payout_onboarded"`
	AccruedCommissionCents      int64      `json:"accrued_commission_cents"`
	TotalSettledCommissionCents int64      `json:"total_settled_commission_cents"`
	CreatedAt                   time.Time  `json:"created_at"`
	UpdatedAt                   time.Time  `json:"updated_at"`
}
