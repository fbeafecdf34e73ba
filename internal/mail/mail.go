// Package mail turns queued notifications into emails.
package mail

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strconv"

	"github.com/domodwyer/mailyak/v3"

	"github.com/iliyamo/event-booking/internal/config"
	"github.com/iliyamo/event-booking/internal/queue"
	"github.com/iliyamo/event-booking/internal/ticket"
)

// Sender delivers notifications over SMTP.  It implements queue.Handler.
type Sender struct {
	addr   string
	auth   smtp.Auth
	from   string
	appURL string
	// send is swapped in tests.
	send func(m *mailyak.MailYak) error
}

func NewSender(cfg config.MailConfig) *Sender {
	var auth smtp.Auth
	if cfg.User != "" {
		auth = smtp.PlainAuth("", cfg.User, cfg.Password, cfg.Host)
	}
	return &Sender{
		addr:   net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		auth:   auth,
		from:   cfg.From,
		appURL: cfg.AppURL,
		send:   func(m *mailyak.MailYak) error { return m.Send() },
	}
}

// Handle renders and sends the email for n.
func (s *Sender) Handle(ctx context.Context, n queue.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m, err := s.Compose(n)
	if err != nil {
		return err
	}
	if err := s.send(m); err != nil {
		return fmt.Errorf("smtp send to %s: %w", n.Email, err)
	}
	slog.Info("email sent", "type", n.Type, "reservation_id", n.ReservationID, "to", n.Email)
	return nil
}

// Compose builds the message without sending it.
func (s *Sender) Compose(n queue.Notification) (*mailyak.MailYak, error) {
	subject, body, err := render(n, s.appURL)
	if err != nil {
		return nil, err
	}
	m := mailyak.New(s.addr, s.auth)
	m.From(s.from)
	m.FromName("Event Booking")
	m.To(n.Email)
	m.Subject(subject)
	m.HTML().Set(body)

	if n.Type == queue.ReservationConfirmed {
		pdf, err := ticket.Render(n.Detail())
		if err != nil {
			return nil, err
		}
		m.AttachWithMimeType(fmt.Sprintf("ticket-%d.pdf", n.ReservationID), bytes.NewReader(pdf), "application/pdf")
	}
	return m, nil
}

type view struct {
	queue.Notification
	Link string
}

func render(n queue.Notification, appURL string) (subject, body string, err error) {
	tpl, ok := templates[n.Type]
	if !ok {
		return "", "", fmt.Errorf("no email template for %q", n.Type)
	}
	v := view{Notification: n, Link: fmt.Sprintf("%s/reservations/%d", appURL, n.ReservationID)}
	if n.Type == queue.EventCanceled {
		v.Link = fmt.Sprintf("%s/events", appURL)
	}

	var buf bytes.Buffer
	if err := tpl.body.Execute(&buf, v); err != nil {
		return "", "", fmt.Errorf("render %s: %w", n.Type, err)
	}
	return fmt.Sprintf(tpl.subject, n.EventTitle), buf.String(), nil
}
