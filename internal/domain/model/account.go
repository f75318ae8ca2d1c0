package model

import (
	"time"

	"quiz-payment-engine/internal/domain"
)

// Account carries the purchased entitlement of one user: the consumable
// quiz-attempt balance and the time-bounded membership window. Attempts are
// decremented elsewhere by quiz consumption; they are incremented only by
// ApplyGrant.
type Account struct {
	ID          string // UUID
	Email       string
	DisplayName string

	RemainingAttempts      int
	TotalPurchasedAttempts int

	MembershipLevel     PlanID
	MembershipExpiresAt *time.Time
	TotalPurchasedMs    int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewAccount(id, email, displayName string) (*Account, error) {
	if id == "" || email == "" {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &Account{ID: id, Email: email, DisplayName: displayName, CreatedAt: now, UpdatedAt: now}, nil
}

// ApplyGrant applies exactly one credit of the plan to the account.
// Membership is extended additively from the later of now or the current
// expiry, so stacking purchases never shortens the window.
func (a *Account) ApplyGrant(plan Plan, now time.Time) {
	a.RemainingAttempts += plan.Attempts
	a.TotalPurchasedAttempts += plan.Attempts

	base := now
	if a.MembershipExpiresAt != nil && a.MembershipExpiresAt.After(now) {
		base = *a.MembershipExpiresAt
	}
	expires := base.Add(plan.MembershipDuration())
	a.MembershipExpiresAt = &expires
	a.MembershipLevel = plan.ID
	a.TotalPurchasedMs += plan.MembershipDuration().Milliseconds()
	a.UpdatedAt = now
}
