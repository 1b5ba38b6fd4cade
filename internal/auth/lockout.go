package auth

// DefaultLockoutThreshold is the number of consecutive failed logins that deactivates an account.
const DefaultLockoutThreshold = 5

// LockoutPolicy decides when repeated login failures lock an account.
type LockoutPolicy struct {
	Threshold int
}

// NewLockoutPolicy returns a policy locking at threshold failures; non-positive values use the default.
func NewLockoutPolicy(threshold int) LockoutPolicy {
	if threshold <= 0 {
		threshold = DefaultLockoutThreshold
	}
	return LockoutPolicy{Threshold: threshold}
}

// ShouldLock reports whether an account with the given failure count must be deactivated.
func (p LockoutPolicy) ShouldLock(failedAttempts int) bool {
	return failedAttempts >= p.Threshold
}

// Remaining is the number of failures still allowed before the account locks.
func (p LockoutPolicy) Remaining(failedAttempts int) int {
	if left := p.Threshold - failedAttempts; left > 0 {
		return left
	}
	return 0
}
