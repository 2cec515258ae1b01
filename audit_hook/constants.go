package audithook

// Action constants for audit events.
const (
	// Holder actions
	ActionUnitsPurchased   = "units.purchased"
	ActionUnitsTransferred = "units.transferred"
	ActionLockedReleased   = "locked.released"

	// Vendor actions
	ActionUnitsDelivered   = "units.delivered"
	ActionDeliveryCanceled = "delivery.canceled"

	// Compliance actions
	ActionKYCApproved = "kyc.approved"
	ActionKYCRefused  = "kyc.refused"

	// Custody actions
	ActionCustodyMoved    = "custody.moved"
	ActionCustodyReturned = "custody.returned"

	// Price feed actions
	ActionRateUpdated = "rate.updated"

	// Administration actions
	ActionRequestPending    = "request.pending"
	ActionRequestExecuted   = "request.executed"
	ActionPhaseChanged      = "phase.changed"
	ActionTreasuryWithdrawn = "treasury.withdrawn"
)

// Resource constants for audit events.
const (
	ResourceAccount  = "account"
	ResourcePosition = "position"
	ResourceSale     = "sale"
	ResourceRequest  = "request"
	ResourceCampaign = "campaign"
	ResourceTreasury = "treasury"
)

// Category constants for audit events.
const (
	CategoryIssuance   = "issuance"
	CategoryCompliance = "compliance"
	CategoryCustody    = "custody"
	CategoryGovernance = "governance"
	CategoryPayment    = "payment"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)
