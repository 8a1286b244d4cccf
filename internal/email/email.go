// Package email sends transactional mail through AWS SES v2.
package email

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/aws/smithy-go"
)

// Message is one outbound email.
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
	Tags    map[string]string // SES message tags, e.g. list/type
}

// Sender delivers messages. The production implementation is SES; tests and
// dry runs inject fakes.
type Sender interface {
	Send(ctx context.Context, m Message) error
}

// SES sends through the SES v2 API.
type SES struct {
	client *sesv2.Client

	From             string
	ReplyTo          string
	ConfigurationSet string
}

// NewSES builds an SES sender using the default AWS credential chain.
func NewSES(ctx context.Context, from, replyTo, configurationSet string) (*SES, error) {
	if from == "" {
		return nil, fmt.Errorf("sender address is required (SES_FROM)")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &SES{
		client:           sesv2.NewFromConfig(awsCfg),
		From:             from,
		ReplyTo:          replyTo,
		ConfigurationSet: configurationSet,
	}, nil
}

func (s *SES) Send(ctx context.Context, m Message) error {
	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(s.From),
		Destination:      &types.Destination{ToAddresses: []string{m.To}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(m.Subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Html: &types.Content{Data: aws.String(m.HTML), Charset: aws.String("UTF-8")},
					Text: &types.Content{Data: aws.String(m.Text), Charset: aws.String("UTF-8")},
				},
			},
		},
	}
	if s.ReplyTo != "" {
		input.ReplyToAddresses = []string{s.ReplyTo}
	}
	if s.ConfigurationSet != "" {
		input.ConfigurationSetName = aws.String(s.ConfigurationSet)
	}
	for name, value := range m.Tags {
		input.EmailTags = append(input.EmailTags, types.MessageTag{
			Name:  aws.String(name),
			Value: aws.String(value),
		})
	}

	if _, err := s.client.SendEmail(ctx, input); err != nil {
		return fmt.Errorf("ses send to %s: %w", m.To, err)
	}
	return nil
}

// IsThrottling reports whether err is an SES rate-limit rejection. Only this
// error class is worth retrying during delivery.
func IsThrottling(err error) bool {
	var ae smithy.APIError
	if !errors.As(err, &ae) {
		return false
	}
	code := ae.ErrorCode()
	return code == "TooManyRequestsException" ||
		code == "ThrottlingException" ||
		strings.Contains(code, "Throttling")
}
