package notification

import (
	"context"
	"log"

	"ledgerly/internal/shared/messages"
)

// Service sends connection-issue pushes to families
type Service struct {
	messenger Messenger
	messages  *messages.Messages
}

// NewService creates a new notification service. A nil messenger turns sends into no-ops.
func NewService(messenger Messenger, msgs *messages.Messages) *Service {
	return &Service{messenger: messenger, messages: msgs}
}

// NotifyConnectionIssue tells a family that the connection behind itemID needs attention.
func (s *Service) NotifyConnectionIssue(ctx context.Context, familyID int64, itemID string, issue Issue) error {
	if familyID <= 0 {
		return ErrInvalidFamilyID
	}

	text, err := s.textFor(issue)
	if err != nil {
		return err
	}

	if s.messenger == nil {
		log.Printf("Family %d: push disabled, skipping %s notification for item %s", familyID, issue, itemID)
		return nil
	}

	data := map[string]string{
		"route":  CategoryAccounts,
		"issue":  string(issue),
		"itemId": itemID,
	}
	return s.messenger.SendToTopic(ctx, FamilyTopic(familyID), text.Title, text.Body, data)
}

func (s *Service) textFor(issue Issue) (messages.MessageText, error) {
	switch issue {
	case IssueConnectionError:
		return s.messages.ConnectionError, nil
	case IssuePendingExpiration:
		return s.messages.ConnectionExpiring, nil
	case IssueRevoked:
		return s.messages.ConnectionRevoked, nil
	}
	return messages.MessageText{}, ErrUnknownIssue
}
