package mail

import (
	"context"
	"crypto/rand"
	"crypto/tls"
	"encoding/hex"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"
)

// ErrSMTPHostPortRequired is returned by NewSMTP without a host and port.
var ErrSMTPHostPortRequired = errors.New("mail: smtp host and port are required")

const defaultSMTPTimeout = 10 * time.Second

// SMTPConfig configures the SMTP driver. Authentication is only attempted
// when both Username and Password are set.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	// Timeout bounds a whole send when ctx has no earlier deadline.
	Timeout time.Duration
}

// SMTP delivers over a fresh connection per message, upgrading with
// STARTTLS when the server offers it.
type SMTP struct {
	cfg  SMTPConfig
	addr string
}

func NewSMTP(cfg SMTPConfig) (*SMTP, error) {
	if cfg.Host == "" || cfg.Port <= 0 {
		return nil, ErrSMTPHostPortRequired
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultSMTPTimeout
	}
	return &SMTP{cfg: cfg, addr: net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))}, nil
}

func (s *SMTP) Send(ctx context.Context, msg Message) error {
	from, rcpt, err := envelope(msg, s.cfg.From)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", s.addr)
	if err != nil {
		return err
	}
	if dl, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(dl)
	}

	c, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		_ = conn.Close()
		return err
	}
	defer c.Close()

	if err := s.transmit(c, from, rcpt, compose(from, msg)); err != nil {
		return err
	}
	return c.Quit()
}

func (s *SMTP) transmit(c *smtp.Client, from string, rcpt []string, raw []byte) error {
	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: s.cfg.Host, MinVersion: tls.VersionTLS12}); err != nil {
			return err
		}
	}
	if s.cfg.Username != "" && s.cfg.Password != "" {
		if err := c.Auth(smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)); err != nil {
			return err
		}
	}
	if err := c.Mail(from); err != nil {
		return err
	}
	for _, r := range rcpt {
		if err := c.Rcpt(r); err != nil {
			return fmt.Errorf("rcpt %s: %w", r, err)
		}
	}

	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(raw); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

func (s *SMTP) Close() error { return nil }

// compose renders the RFC 5322 message. Bcc never appears in the headers.
func compose(from string, msg Message) []byte {
	var b strings.Builder
	header := func(k, v string) { b.WriteString(k + ": " + v + "\r\n") }

	header("From", from)
	header("To", strings.Join(msg.To, ", "))
	if len(msg.Cc) > 0 {
		header("Cc", strings.Join(msg.Cc, ", "))
	}
	header("Subject", mime.QEncoding.Encode("utf-8", msg.Subject))
	header("Date", time.Now().UTC().Format(time.RFC1123Z))
	header("MIME-Version", "1.0")

	body, contentType := buildBody(msg)
	header("Content-Type", contentType)
	b.WriteString("\r\n")
	b.WriteString(body)
	return []byte(b.String())
}

// buildBody picks a single part when only one body is set and
// multipart/alternative, text first, when both are.
func buildBody(msg Message) (body, contentType string) {
	switch {
	case msg.HTMLBody == "":
		return msg.TextBody, "text/plain; charset=UTF-8"
	case msg.TextBody == "":
		return msg.HTMLBody, "text/html; charset=UTF-8"
	}

	boundary := newBoundary()
	var b strings.Builder
	for _, part := range [...]struct{ ct, body string }{
		{"text/plain; charset=UTF-8", msg.TextBody},
		{"text/html; charset=UTF-8", msg.HTMLBody},
	} {
		fmt.Fprintf(&b, "--%s\r\nContent-Type: %s\r\n\r\n%s\r\n", boundary, part.ct, part.body)
	}
	fmt.Fprintf(&b, "--%s--\r\n", boundary)
	return b.String(), "multipart/alternative; boundary=" + boundary
}

func newBoundary() string {
	var buf [12]byte
	_, _ = rand.Read(buf[:])
	return "notifyflow-boundary-" + hex.EncodeToString(buf[:])
}
