// Package audit records who did what to which record. Events are append-only.
package audit

import "time"

// EventCategory classifies events for retention and routing.
type EventCategory string

const (
	// CategoryCompliance covers disclosures and removals of personal data.
	CategoryCompliance EventCategory = "compliance"
	// CategorySecurity covers rejected or suspicious access attempts.
	CategorySecurity EventCategory = "security"
	// CategoryOperations covers routine activity.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from services. Request metadata is filled in by Publisher.
type Event struct {
	Category  EventCategory
	Timestamp time.Time
	Action    string
	// Subject is the affected record or payment, e.g. "found/<uuid>".
	Subject   string
	Actor     string
	RequestID string
	Client    string
	ClientIP  string
	Detail    string
}

type AuditEvent string

const (
	EventRecordCreated      AuditEvent = "record_created"
	EventInstantVerified    AuditEvent = "instant_verification_passed"
	EventVerificationDenied AuditEvent = "verification_denied"
	EventClaimStarted       AuditEvent = "claim_started"
	EventClaimVerified      AuditEvent = "claim_verified"
	EventImageAccessed      AuditEvent = "protected_image_accessed"
	EventTokenRejected      AuditEvent = "token_rejected"
	EventRemovalRequested   AuditEvent = "removal_requested"
	EventRecordRemoved      AuditEvent = "record_removed"
	EventPaymentRequested   AuditEvent = "payment_requested"
	EventPaymentFailed      AuditEvent = "payment_failed"
	EventContactDisclosed   AuditEvent = "contact_disclosed"
	EventPremiumActivated   AuditEvent = "premium_activated"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventInstantVerified:  CategoryCompliance,
	EventClaimVerified:    CategoryCompliance,
	EventImageAccessed:    CategoryCompliance,
	EventRecordRemoved:    CategoryCompliance,
	EventContactDisclosed: CategoryCompliance,

	EventVerificationDenied: CategorySecurity,
	EventTokenRejected:      CategorySecurity,
	EventPaymentFailed:      CategorySecurity,

	EventRecordCreated:    CategoryOperations,
	EventClaimStarted:     CategoryOperations,
	EventRemovalRequested: CategoryOperations,
	EventPaymentRequested: CategoryOperations,
	EventPremiumActivated: CategoryOperations,
}

// Category returns the category of e. Unknown events default to operations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}
