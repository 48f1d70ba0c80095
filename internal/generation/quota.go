package generation

import (
	"context"
	"fmt"
)

// DefaultDailyLimit is the number of jobs a user may create per day.
const DefaultDailyLimit = 100

type dailyCounter interface {
	CountCreatedToday(ctx context.Context, userID string) (int, error)
}

// AdmitDecision reports today's usage against the limit.
type AdmitDecision struct {
	Allowed   bool `json:"-"`
	Used      int  `json:"used"`
	Limit     int  `json:"limit"`
	Remaining int  `json:"remaining"`
}

// QuotaGuard enforces the per-user daily ceiling. The count is recomputed
// from job creation timestamps on every check.
type QuotaGuard struct {
	counter dailyCounter
	limit   int
}

func NewQuotaGuard(counter dailyCounter, limit int) *QuotaGuard {
	if limit <= 0 {
		limit = DefaultDailyLimit
	}
	return &QuotaGuard{counter: counter, limit: limit}
}

// CheckAndAdmit denies when the user already created limit jobs today.
func (g *QuotaGuard) CheckAndAdmit(ctx context.Context, userID string) (AdmitDecision, error) {
	used, err := g.counter.CountCreatedToday(ctx, userID)
	if err != nil {
		return AdmitDecision{}, fmt.Errorf("count daily jobs: %w", err)
	}
	remaining := g.limit - used
	if remaining < 0 {
		remaining = 0
	}
	return AdmitDecision{
		Allowed:   used < g.limit,
		Used:      used,
		Limit:     g.limit,
		Remaining: remaining,
	}, nil
}
