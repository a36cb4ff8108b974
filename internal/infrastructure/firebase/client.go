package firebase

import (
	"context"
	"fmt"
	"log"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// topicSender is the slice of the FCM client used here
type topicSender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// Client implements notification.Messenger using Firebase Cloud Messaging topics
type Client struct {
	msgClient topicSender
}

// NewClient initializes a Firebase app and returns an FCM client
func NewClient(ctx context.Context, credentialsFile string) (*Client, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}

	msgClient, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase messaging client: %w", err)
	}

	return &Client{msgClient: msgClient}, nil
}

// SendToTopic sends a push notification to every device subscribed to topic
func (c *Client) SendToTopic(ctx context.Context, topic string, title, body string, data map[string]string) error {
	msg := &messaging.Message{
		Topic: topic,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
		},
	}

	id, err := c.msgClient.Send(ctx, msg)
	if err != nil {
		if messaging.IsInvalidArgument(err) {
			return fmt.Errorf("invalid FCM topic message for %s: %w", topic, err)
		}
		return fmt.Errorf("failed to send FCM message: %w", err)
	}

	log.Printf("FCM topic %s: sent message %s", topic, id)
	return nil
}
