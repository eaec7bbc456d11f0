package audithook

// Action constants for audit events.
const (
	// Room actions
	ActionRoomCreated = "room.created"
	ActionRoomUpdated = "room.updated"
	ActionRoomDeleted = "room.deleted"

	// Occupancy actions
	ActionTenantsReplaced = "tenants.replaced"
	ActionCheckout        = "room.checkout"
	ActionHistoryArchived = "history.archived"

	// Usage record actions
	ActionRecordAppended = "record.appended"
	ActionRecordEdited   = "record.edited"
	ActionRecordDeleted  = "record.deleted"
	ActionRecordPaid     = "record.paid"

	// Account actions
	ActionUserCreated = "user.created"
	ActionUserDeleted = "user.deleted"
	ActionLogin       = "user.login"
)

// Resource constants for audit events.
const (
	ResourceRoom   = "room"
	ResourceRecord = "usage_record"
	ResourceUser   = "user"
)

// Category constants for audit events.
const (
	CategoryProperty = "property"
	CategoryBilling  = "billing"
	CategoryAccess   = "access"
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
