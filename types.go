package ephemeral

import "time"

// ResendResult reports the outcome of a resend request. When the cooldown
// is active, WaitSeconds carries the remaining wait and nothing is issued.
// An unexpired code is re-returned as-is rather than replaced.
type ResendResult struct {
	Issued      bool
	Code        string
	WaitSeconds int
	Unavailable bool
}

// VerificationStatus is the read-only view used to decide whether to show
// a resend affordance.
type VerificationStatus struct {
	HasVerification bool
	ExpiresIn       time.Duration
	CanResend       bool
}

// ResetLookup is the result of checking or consuming a reset token.
// Unavailable distinguishes a store outage from a genuinely invalid
// token; both read as not valid.
type ResetLookup struct {
	Valid       bool
	Email       string
	UserID      string
	Unavailable bool
}

// QuotaDecision reports whether a metered action may proceed, with enough
// detail for a user-facing message. Unavailable marks a fail-open grant
// made while the accounting store was unreachable.
type QuotaDecision struct {
	Allowed     bool
	Count       int64
	Limit       int64
	Unavailable bool
	Suggestion  string
}
