package aws

import (
	"context"
	"fmt"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// SESAPI is the subset of the SES client used for agent enquiries.
type SESAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type SESClient struct {
	api  SESAPI
	from string
}

// LoadConfig resolves credentials from the default chain for region.
func LoadConfig(ctx context.Context, region string) (awssdk.Config, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return awssdk.Config{}, fmt.Errorf("failed to load aws config: %w", err)
	}
	return cfg, nil
}

func NewSESClient(cfg awssdk.Config, fromEmail string) *SESClient {
	return &SESClient{api: ses.NewFromConfig(cfg), from: fromEmail}
}

func NewSESClientWithAPI(api SESAPI, fromEmail string) *SESClient {
	return &SESClient{api: api, from: fromEmail}
}

// SendText sends a plain-text email and returns the SES message id.
func (s *SESClient) SendText(ctx context.Context, to, replyTo, subject, body string) (string, error) {
	input := &ses.SendEmailInput{
		Source:      awssdk.String(s.from),
		Destination: &types.Destination{ToAddresses: []string{to}},
		Message: &types.Message{
			Subject: &types.Content{Data: awssdk.String(subject), Charset: awssdk.String("UTF-8")},
			Body: &types.Body{
				Text: &types.Content{Data: awssdk.String(body), Charset: awssdk.String("UTF-8")},
			},
		},
	}
	if replyTo != "" {
		input.ReplyToAddresses = []string{replyTo}
	}

	out, err := s.api.SendEmail(ctx, input)
	if err != nil {
		return "", err
	}
	return awssdk.ToString(out.MessageId), nil
}
