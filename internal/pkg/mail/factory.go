package mail

import (
	"context"
	"fmt"
	"strings"
)

// Driver names accepted by NewFromDriver.
const (
	DriverSMTP = "smtp"
	DriverSES  = "ses"
)

// FactoryOptions carries the settings of every driver; only the selected one is read.
type FactoryOptions struct {
	SMTP SMTPConfig
	SES  SESConfig
}

// NewFromDriver builds the driver named by driver, SMTP when empty.
func NewFromDriver(ctx context.Context, driver string, opts FactoryOptions) (Mail, error) {
	switch d := strings.ToLower(strings.TrimSpace(driver)); d {
	case "", DriverSMTP:
		return NewSMTP(opts.SMTP)
	case DriverSES:
		return NewSES(ctx, opts.SES)
	default:
		return nil, fmt.Errorf("mail: unknown driver %q", d)
	}
}
