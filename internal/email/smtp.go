package email

import (
	"context"
	"fmt"
	"mime"
	"net/smtp"
	"strings"
)

// sendFunc matches smtp.SendMail; injected for testability.
type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPRelay is the secondary channel: a local mail relay reached over plain
// SMTP.
type SMTPRelay struct {
	addr     string
	from     string
	fromName string
	send     sendFunc
}

// SMTPRelayOption configures an SMTPRelay.
type SMTPRelayOption func(*SMTPRelay)

// WithSendFunc replaces the SMTP send function for tests.
func WithSendFunc(fn sendFunc) SMTPRelayOption {
	return func(r *SMTPRelay) {
		if fn != nil {
			r.send = fn
		}
	}
}

// NewSMTPRelay builds the secondary channel against host:port.
func NewSMTPRelay(host string, port int, from, fromName string, opts ...SMTPRelayOption) *SMTPRelay {
	r := &SMTPRelay{
		addr:     fmt.Sprintf("%s:%d", host, port),
		from:     from,
		fromName: fromName,
		send:     smtp.SendMail,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *SMTPRelay) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s <%s>\r\n", mime.QEncoding.Encode("utf-8", r.fromName), r.from)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	b.WriteString("MIME-Version: 1.0\r\n")
	if msg.HTMLBody != "" {
		b.WriteString("Content-Type: text/html; charset=utf-8\r\n\r\n")
		b.WriteString(msg.HTMLBody)
	} else {
		b.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
		b.WriteString(msg.TextBody)
	}

	if err := r.send(r.addr, nil, r.from, []string{msg.To}, []byte(b.String())); err != nil {
		return fmt.Errorf("smtp relay send: %w", err)
	}
	return nil
}
