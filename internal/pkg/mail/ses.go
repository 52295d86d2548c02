package mail

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// ErrSESRegionRequired is returned by NewSES without a region.
var ErrSESRegionRequired = errors.New("mail: ses region is required")

// SESAPI is the subset of the SES client used by SES, kept small so tests can fake it.
type SESAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESConfig configures the SES implementation.
type SESConfig struct {
	// Region is the AWS region of the SES endpoint.
	Region string
	// AccessKey and SecretKey are optional static credentials; the default
	// AWS credential chain is used when empty.
	AccessKey string
	SecretKey string
	// Endpoint overrides the SES endpoint (e.g. localstack).
	Endpoint string
	// From is the default sender when Message.From is empty.
	From string
}

// SES is a Mail implementation backed by Amazon SES.
type SES struct {
	client      SESAPI
	defaultFrom string
}

// NewSES builds an SES sender from the AWS default config chain.
func NewSES(ctx context.Context, cfg SESConfig) (*SES, error) {
	if cfg.Region == "" {
		return nil, ErrSESRegionRequired
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}

	client := ses.NewFromConfig(awsCfg, func(o *ses.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	return NewSESWithClient(client, cfg.From), nil
}

// NewSESWithClient wraps an existing SES client.
func NewSESWithClient(client SESAPI, from string) *SES {
	return &SES{client: client, defaultFrom: from}
}

// Send delivers a message through SES.
func (s *SES) Send(ctx context.Context, msg Message) error {
	from, _, err := envelope(msg, s.defaultFrom)
	if err != nil {
		return err
	}

	body := &types.Body{}
	if msg.TextBody != "" {
		body.Text = &types.Content{Data: aws.String(msg.TextBody), Charset: aws.String("UTF-8")}
	}
	if msg.HTMLBody != "" {
		body.Html = &types.Content{Data: aws.String(msg.HTMLBody), Charset: aws.String("UTF-8")}
	}

	_, err = s.client.SendEmail(ctx, &ses.SendEmailInput{
		Source: aws.String(from),
		Destination: &types.Destination{
			ToAddresses:  msg.To,
			CcAddresses:  msg.Cc,
			BccAddresses: msg.Bcc,
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(msg.Subject), Charset: aws.String("UTF-8")},
			Body:    body,
		},
	})
	return err
}

func (s *SES) Close() error { return nil }
