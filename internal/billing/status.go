package billing

import (
	"math"
	"time"
)

// Derived account statuses. "trial_expired" is never stored — trials expire
// purely by clock passage, so status must be projected fresh on every read.
const (
	StatusNone         = "none"
	StatusTrial        = "trial"
	StatusActive       = "active"
	StatusTrialExpired = "trial_expired"
)

// Project derives the account status from its stored fields and the current
// time. Paid access dominates: hasAccess=true is active regardless of trial
// fields. daysLeft is non-nil only for an in-progress trial and is the
// number of days remaining, rounded up.
func Project(hasAccess, isOnTrial bool, trialEndAt *time.Time, now time.Time) (status string, daysLeft *int) {
	if hasAccess {
		return StatusActive, nil
	}
	if isOnTrial {
		if trialEndAt != nil && trialEndAt.After(now) {
			days := int(math.Ceil(trialEndAt.Sub(now).Hours() / 24))
			return StatusTrial, &days
		}
		return StatusTrialExpired, nil
	}
	return StatusNone, nil
}
