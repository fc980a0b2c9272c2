package mailing

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/kynzi/marblesite/internal/util/slogx"
)

type memDB struct {
	emails []Email
}

func (d *memDB) GetEmailByAddress(_ context.Context, address string) (*Email, error) {
	for _, e := range d.emails {
		if e.Address == address {
			return &e, nil
		}
	}
	return nil, nil
}

func (d *memDB) ListEmails(context.Context) ([]Email, error) {
	return d.emails, nil
}

func (d *memDB) AddEmail(_ context.Context, email Email) (*Email, error) {
	for _, e := range d.emails {
		if e.Address == email.Address {
			return &e, nil
		}
	}
	email.ID = uint(len(d.emails) + 1)
	d.emails = append(d.emails, email)
	return &email, nil
}

type fakeSender struct {
	mu     sync.Mutex
	sent   map[string]string
	broken map[string]bool
}

func (s *fakeSender) Send(_ context.Context, to, _, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.broken[to] {
		return errors.New("mailbox on fire")
	}
	if s.sent == nil {
		s.sent = make(map[string]string)
	}
	s.sent[to] = body
	return nil
}

func TestAlertBody(t *testing.T) {
	body := AlertBody("Kynzi", "Race 9 results are in!")
	if !strings.HasPrefix(body, "Hey Kynzi!\n\n") {
		t.Errorf("greeting missing: %q", body)
	}
	if !strings.Contains(body, "Race 9 results are in!") {
		t.Errorf("content missing: %q", body)
	}
	if !strings.HasSuffix(body, "The Marble Racers") {
		t.Errorf("sign-off missing: %q", body)
	}
}

func TestAlertAllIsolatesFailures(t *testing.T) {
	ctx := context.Background()
	db := &memDB{emails: []Email{
		{First: "Ann", Address: "ann@example.com"},
		{First: "Bob", Address: "bob@example.com"},
		{First: "Cleo", Address: "cleo@example.com"},
	}}
	sender := &fakeSender{broken: map[string]bool{"bob@example.com": true}}
	m := NewMailer(slogx.DiscardLogger(), db, Options{From: "race@example.com"})
	m.sender = sender

	if err := m.AlertAll(ctx, "Results", "Race 1 is done."); err != nil {
		t.Fatalf("alert all: %v", err)
	}
	if len(sender.sent) != 2 {
		t.Fatalf("expected 2 deliveries, got %d", len(sender.sent))
	}
	if _, ok := sender.sent["bob@example.com"]; ok {
		t.Error("broken recipient recorded as delivered")
	}
	if body := sender.sent["ann@example.com"]; !strings.HasPrefix(body, "Hey Ann!") {
		t.Errorf("body not personalized: %q", body)
	}
}

func TestSendContact(t *testing.T) {
	sender := &fakeSender{}
	m := NewMailer(slogx.DiscardLogger(), &memDB{}, Options{
		From:           "race@example.com",
		ContactAddress: "owner@example.com",
	})
	m.sender = sender

	if err := m.SendContact(context.Background(), "fan@example.com", "Hi", "Love the races"); err != nil {
		t.Fatalf("send contact: %v", err)
	}
	body, ok := sender.sent["owner@example.com"]
	if !ok {
		t.Fatal("contact mail not delivered to contact address")
	}
	if strings.HasPrefix(body, "Hey ") {
		t.Errorf("contact mail must not carry the subscriber greeting: %q", body)
	}
	if !strings.Contains(body, "fan@example.com") {
		t.Errorf("reply address missing from body: %q", body)
	}
}
