package notification

import (
	"errors"
	"fmt"
)

// Issue is a connection problem reported to a family.
type Issue string

const (
	IssueConnectionError   Issue = "connection_error"
	IssuePendingExpiration Issue = "pending_expiration"
	IssueRevoked           Issue = "connection_revoked"
)

// Domain errors
var (
	ErrUnknownIssue    = errors.New("unknown connection issue")
	ErrInvalidFamilyID = errors.New("valid family ID is required")
)

// CategoryAccounts routes the app to the linked accounts screen.
const CategoryAccounts = "accounts"

// FamilyTopic is the FCM topic every device of a family subscribes to.
func FamilyTopic(familyID int64) string {
	return fmt.Sprintf("family-%d", familyID)
}
