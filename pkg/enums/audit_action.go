package enums

import "fmt"

// AuditAction classifies entries in the audit log.
type AuditAction string

const (
	AuditActionCreate       AuditAction = "create"
	AuditActionUpdate       AuditAction = "update"
	AuditActionDelete       AuditAction = "delete"
	AuditActionApprove      AuditAction = "approve"
	AuditActionReject       AuditAction = "reject"
	AuditActionCancel       AuditAction = "cancel"
	AuditActionMarkPaid     AuditAction = "mark_paid"
	AuditActionRecordPickup AuditAction = "record_pickup"
	AuditActionRecordReturn AuditAction = "record_return"
	AuditActionComplete     AuditAction = "complete"
	AuditActionLogin        AuditAction = "login"
)

var validAuditActions = []AuditAction{
	AuditActionCreate,
	AuditActionUpdate,
	AuditActionDelete,
	AuditActionApprove,
	AuditActionReject,
	AuditActionCancel,
	AuditActionMarkPaid,
	AuditActionRecordPickup,
	AuditActionRecordReturn,
	AuditActionComplete,
	AuditActionLogin,
}

// String implements fmt.Stringer.
func (a AuditAction) String() string {
	return string(a)
}

// IsValid reports whether the value is a known AuditAction.
func (a AuditAction) IsValid() bool {
	for _, candidate := range validAuditActions {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAuditAction converts raw input into an AuditAction.
func ParseAuditAction(value string) (AuditAction, error) {
	for _, candidate := range validAuditActions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid audit action %q", value)
}
