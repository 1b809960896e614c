package sms

import (
	"context"
	"fmt"
	"log"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/google/uuid"

	"homieplanner/internal/domain"
)

// SNSConfig holds configuration for AWS SNS.
type SNSConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

// MessengerConfig holds configuration for creating a messenger.
type MessengerConfig struct {
	Provider string
	SenderID string
	SNS      SNSConfig
}

// NewMessenger creates a messenger from config. Provider "sns" publishes
// SMS through AWS SNS; "noop" or unknown logs and fabricates delivery ids.
func NewMessenger(config MessengerConfig) (domain.Messenger, error) {
	switch config.Provider {
	case "sns":
		awsCfg := aws.Config{
			Region: config.SNS.Region,
			Credentials: aws.NewCredentialsCache(
				credentials.NewStaticCredentialsProvider(
					config.SNS.AccessKeyID,
					config.SNS.SecretAccessKey,
					"",
				),
			),
		}
		return &snsMessenger{
			client:   sns.NewFromConfig(awsCfg),
			senderID: config.SenderID,
		}, nil
	case "noop":
		return &noopMessenger{}, nil
	default:
		log.Printf("[SMS] Unknown SMS provider %q, using noop", config.Provider)
		return &noopMessenger{}, nil
	}
}

type snsMessenger struct {
	client   *sns.Client
	senderID string
}

func (s *snsMessenger) Send(ctx context.Context, to, body string) (string, error) {
	input := &sns.PublishInput{
		PhoneNumber: aws.String(to),
		Message:     aws.String(body),
	}
	if s.senderID != "" {
		input.MessageAttributes = map[string]types.MessageAttributeValue{
			"AWS.SNS.SMS.SenderID": {
				DataType:    aws.String("String"),
				StringValue: aws.String(s.senderID),
			},
		}
	}
	result, err := s.client.Publish(ctx, input)
	if err != nil {
		return "", fmt.Errorf("failed to send SMS via SNS: %w", err)
	}
	id := aws.ToString(result.MessageId)
	log.Printf("[SMS] Message sent via SNS. MessageID: %s", id)
	return id, nil
}

type noopMessenger struct{}

func (n *noopMessenger) Send(ctx context.Context, to, body string) (string, error) {
	log.Println("[SMS] Message would be sent (noop)", "to", to, "body", body)
	return uuid.NewString(), nil
}
