package aws

import (
	"context"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

type SNSAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type SNSClient struct {
	api      SNSAPI
	senderID string
}

func NewSNSClient(cfg awssdk.Config, senderID string) *SNSClient {
	return &SNSClient{api: sns.NewFromConfig(cfg), senderID: senderID}
}

func NewSNSClientWithAPI(api SNSAPI, senderID string) *SNSClient {
	return &SNSClient{api: api, senderID: senderID}
}

// SendSMS publishes a transactional SMS directly to a phone number.
func (s *SNSClient) SendSMS(ctx context.Context, phone, message string) (string, error) {
	attrs := map[string]types.MessageAttributeValue{
		"AWS.SNS.SMS.SMSType": {
			DataType:    awssdk.String("String"),
			StringValue: awssdk.String("Transactional"),
		},
	}
	if s.senderID != "" {
		attrs["AWS.SNS.SMS.SenderID"] = types.MessageAttributeValue{
			DataType:    awssdk.String("String"),
			StringValue: awssdk.String(s.senderID),
		}
	}

	out, err := s.api.Publish(ctx, &sns.PublishInput{
		PhoneNumber:       awssdk.String(phone),
		Message:           awssdk.String(message),
		MessageAttributes: attrs,
	})
	if err != nil {
		return "", err
	}
	return awssdk.ToString(out.MessageId), nil
}
