// Package entitlement implements the subscription policy gating bot
// creation for free-tier accounts.
package entitlement

// FreeTierBotLimit is the number of bots a non-paying account may own.
const FreeTierBotLimit = 1

// ReasonUpgradeRequired is the distinguished denial reason the dashboard
// turns into an upgrade prompt instead of a generic failure.
const ReasonUpgradeRequired = "UPGRADE_REQUIRED"

// Decision is the outcome of an entitlement check.
type Decision struct {
	Allowed bool
	Reason  string
}

// CanCreateBot decides whether an account may create another bot. Paying
// accounts are unrestricted. The check is evaluated at creation time only;
// a later downgrade does not retroactively affect existing bots.
func CanCreateBot(isPro bool, currentBotCount int) Decision {
	if isPro {
		return Decision{Allowed: true}
	}
	if currentBotCount >= FreeTierBotLimit {
		return Decision{Allowed: false, Reason: ReasonUpgradeRequired}
	}
	return Decision{Allowed: true}
}
