package mail

import (
	"context"
	"errors"
	"io"
)

var (
	// ErrNoRecipients is returned when To, Cc and Bcc are all empty.
	ErrNoRecipients = errors.New("mail: no recipients")
	// ErrNoSender is returned when neither the message nor the driver has a From.
	ErrNoSender = errors.New("mail: no sender")
)

// Message is one outgoing email. From may be left empty to use the driver's
// configured sender.
type Message struct {
	From     string
	To       []string
	Cc       []string
	Bcc      []string
	Subject  string
	TextBody string
	HTMLBody string
}

// Mail is implemented by every driver.
type Mail interface {
	io.Closer
	Send(ctx context.Context, msg Message) error
}

// envelope resolves the sender and the full recipient list of msg.
func envelope(msg Message, defaultFrom string) (from string, rcpt []string, err error) {
	rcpt = make([]string, 0, len(msg.To)+len(msg.Cc)+len(msg.Bcc))
	rcpt = append(append(append(rcpt, msg.To...), msg.Cc...), msg.Bcc...)
	if len(rcpt) == 0 {
		return "", nil, ErrNoRecipients
	}

	from = msg.From
	if from == "" {
		from = defaultFrom
	}
	if from == "" {
		return "", nil, ErrNoSender
	}
	return from, rcpt, nil
}
