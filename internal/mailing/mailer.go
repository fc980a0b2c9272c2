package mailing

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kynzi/marblesite/internal/util/slogx"
	"github.com/wneessen/go-mail"
	"golang.org/x/sync/errgroup"
)

type Options struct {
	Host           string `toml:"host"`
	Port           int    `toml:"port"`
	Username       string `toml:"username"`
	Password       string `toml:"password"`
	From           string `toml:"from"`
	ContactAddress string `toml:"contact-address"`
	MaxConcurrent  int    `toml:"max-concurrent"`
}

func (o *Options) FillDefaults() {
	if o.Port == 0 {
		o.Port = 587
	}
	if o.MaxConcurrent == 0 {
		o.MaxConcurrent = 4
	}
	if o.ContactAddress == "" {
		o.ContactAddress = o.From
	}
}

// Sender delivers a single message. The SMTP implementation is swapped for
// a fake in tests.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

type smtpSender struct {
	o *Options
}

func (s *smtpSender) Send(ctx context.Context, to, subject, body string) error {
	msg := mail.NewMsg()
	if err := msg.From(s.o.From); err != nil {
		return fmt.Errorf("set sender: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("set recipient: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	client, err := mail.NewClient(s.o.Host,
		mail.WithPort(s.o.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(s.o.Username),
		mail.WithPassword(s.o.Password),
	)
	if err != nil {
		return fmt.Errorf("create smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

type Mailer struct {
	o      Options
	log    *slog.Logger
	db     DB
	sender Sender
}

func NewMailer(log *slog.Logger, db DB, o Options) *Mailer {
	o.FillDefaults()
	m := &Mailer{
		o:   o,
		log: log,
		db:  db,
	}
	m.sender = &smtpSender{o: &m.o}
	return m
}

// AlertBody wraps alert content with the personalized greeting and sign-off
// used for subscriber notifications.
func AlertBody(firstName, content string) string {
	return fmt.Sprintf("Hey %v!\n\n%v\n\nWith deep love and gratitude,\nThe Marble Racers", firstName, content)
}

// AlertAll sends a personalized alert to every subscriber. Deliveries run
// with bounded concurrency; a failed recipient is logged and skipped, it
// never affects the other recipients or the caller.
func (m *Mailer) AlertAll(ctx context.Context, subject, content string) error {
	rcpts, err := m.db.ListEmails(ctx)
	if err != nil {
		return fmt.Errorf("list subscribers: %w", err)
	}
	m.log.Info("sending alert to subscribers",
		slog.String("subject", subject),
		slog.Int("recipients", len(rcpts)),
	)

	var group errgroup.Group
	group.SetLimit(m.o.MaxConcurrent)
	for _, rcpt := range rcpts {
		group.Go(func() error {
			if err := m.sender.Send(ctx, rcpt.Address, subject, AlertBody(rcpt.First, content)); err != nil {
				m.log.Warn("could not deliver alert",
					slog.String("address", rcpt.Address),
					slogx.Err(err),
				)
			}
			return nil
		})
	}
	_ = group.Wait()
	return nil
}

// SendContact relays a contact-form message to the configured contact
// address, without the subscriber greeting.
func (m *Mailer) SendContact(ctx context.Context, replyTo, subject, body string) error {
	full := fmt.Sprintf("From: %v\n\n%v", replyTo, body)
	if err := m.sender.Send(ctx, m.o.ContactAddress, subject, full); err != nil {
		return fmt.Errorf("send contact mail: %w", err)
	}
	return nil
}
