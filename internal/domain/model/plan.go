package model

import (
	"time"

	"quiz-payment-engine/internal/domain"
)

type PlanID string

const (
	PlanBasic PlanID = "basic"
	PlanPlus  PlanID = "plus"
	PlanPro   PlanID = "pro"
)

// Plan is a purchasable tier with a fixed price, a fixed quiz-attempt
// allotment, and a fixed membership extension.
type Plan struct {
	ID             PlanID
	Name           string
	PriceVND       int64
	Attempts       int
	MembershipDays int
}

func (p Plan) MembershipDuration() time.Duration {
	return time.Duration(p.MembershipDays) * 24 * time.Hour
}

// plans is the fixed catalog. Prices and attempt counts are part of the
// gateway contract; they are not configurable at runtime.
var plans = map[PlanID]Plan{
	PlanBasic: {ID: PlanBasic, Name: "Basic", PriceVND: 29_000, Attempts: 3, MembershipDays: 7},
	PlanPlus:  {ID: PlanPlus, Name: "Plus", PriceVND: 149_000, Attempts: 20, MembershipDays: 30},
	PlanPro:   {ID: PlanPro, Name: "Pro", PriceVND: 1_390_000, Attempts: 200, MembershipDays: 365},
}

// PlanByID resolves a plan id, rejecting anything outside the catalog.
func PlanByID(id PlanID) (Plan, error) {
	p, ok := plans[id]
	if !ok {
		return Plan{}, domain.ErrPlanUnknown
	}
	return p, nil
}

// AllPlans returns the catalog in a stable order.
func AllPlans() []Plan {
	return []Plan{plans[PlanBasic], plans[PlanPlus], plans[PlanPro]}
}
