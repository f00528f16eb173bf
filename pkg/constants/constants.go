package constants

//============== ESCROW ==============

const (
	EscrowStatusPending   = "pending"
	EscrowStatusActive    = "active"
	EscrowStatusCompleted = "completed"
	EscrowStatusDisputed  = "disputed"
	EscrowStatusReleased  = "released"
	EscrowStatusRefunded  = "refunded"
	EscrowStatusCancelled = "cancelled"
)

// EscrowStatuses lists every deposit status in display order.
var EscrowStatuses = []string{
	EscrowStatusPending,
	EscrowStatusActive,
	EscrowStatusCompleted,
	EscrowStatusDisputed,
	EscrowStatusReleased,
	EscrowStatusRefunded,
	EscrowStatusCancelled,
}

const (
	MilestoneStatusPending    = "pending"
	MilestoneStatusInProgress = "in_progress"
	MilestoneStatusCompleted  = "completed"
	MilestoneStatusApproved   = "approved"
	MilestoneStatusRejected   = "rejected"
)

const (
	EscrowTransactionDeposit    = "deposit"
	EscrowTransactionRelease    = "release"
	EscrowTransactionRefund     = "refund"
	EscrowTransactionFee        = "fee"
	EscrowTransactionWithdrawal = "withdrawal"

	EscrowTransactionStatusCompleted = "completed"
)

//============== INVOICES ==============

const (
	InvoiceStatusDraft     = "draft"
	InvoiceStatusSent      = "sent"
	InvoiceStatusPaid      = "paid"
	InvoiceStatusOverdue   = "overdue"
	InvoiceStatusCancelled = "cancelled"
)

//============== REALTIME ==============

const (
	EventRecordChanged = "record.changed"

	MessageTypeRecordChanged = "record.changed"
	MessageTypePresence      = "presence.state"
	MessageTypePresenceLeft  = "presence.left"
	MessageTypeSubscribed    = "subscribed"
	MessageTypeUnsubscribed  = "unsubscribed"
	MessageTypePong          = "pong"
	MessageTypeError         = "error"

	RecordTopicPrefix   = "records:"
	PresenceTopicPrefix = "presence:"
)

//============== CACHE KEYS ==============

// List pages are cached per user and resource.
// Format: records:list:<userID>:<resource>:<filter hash>
const (
	CacheKeyRecordList       = "records:list:%s:%s:%s"
	CacheKeyRecordListPrefix = "records:list:%s:%s:"
)
