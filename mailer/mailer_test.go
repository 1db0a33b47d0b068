package mailer

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"gopkg.in/gomail.v2"

	authcore "github.com/raymandgroup/authcore"
)

func newTestMailer(t *testing.T) (*Mailer, *[]*gomail.Message) {
	t.Helper()

	m := New(Config{
		Host:         "smtp.example.com",
		Port:         587,
		Username:     "bot@example.com",
		Password:     "secret",
		OwnerAddress: "owner@example.com",
	})

	var sent []*gomail.Message
	m.send = func(msgs ...*gomail.Message) error {
		sent = append(sent, msgs...)
		return nil
	}
	return m, &sent
}

func messageBody(t *testing.T, msg *gomail.Message) string {
	t.Helper()
	var out strings.Builder
	if _, err := msg.WriteTo(&out); err != nil && err != io.EOF {
		t.Fatalf("render message: %v", err)
	}
	return out.String()
}

func TestSendVerificationEmail(t *testing.T) {
	m, sent := newTestMailer(t)

	err := m.Send(context.Background(), authcore.Notification{
		Recipient:   "user@example.com",
		DisplayName: "Dana",
		Kind:        authcore.NotifyVerifyEmail,
		Code:        "a1b2c3",
		ExpiresIn:   15 * time.Minute,
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(*sent) != 1 {
		t.Fatalf("expected 1 message, got %d", len(*sent))
	}

	msg := (*sent)[0]
	if got := msg.GetHeader("To"); len(got) != 1 || got[0] != "user@example.com" {
		t.Fatalf("unexpected To header: %v", got)
	}
	if got := msg.GetHeader("Subject"); len(got) != 1 || got[0] != "Verify Your Email" {
		t.Fatalf("unexpected Subject header: %v", got)
	}

	body := messageBody(t, msg)
	if !strings.Contains(body, "a1b2c3") {
		t.Fatalf("body missing code: %s", body)
	}
	if !strings.Contains(body, "15 minutes") {
		t.Fatalf("body missing expiry: %s", body)
	}
}

func TestSendContactGoesToOwner(t *testing.T) {
	m, sent := newTestMailer(t)

	err := m.Send(context.Background(), authcore.Notification{
		Recipient:   "visitor@example.com",
		DisplayName: "Visitor",
		Kind:        authcore.NotifyContactOwner,
		Data: map[string]string{
			"email":        "visitor@example.com",
			"phone":        "09120000000",
			"submitted_at": "10 Mar 2026 09:30 UTC",
		},
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	msg := (*sent)[0]
	if got := msg.GetHeader("To"); len(got) != 1 || got[0] != "owner@example.com" {
		t.Fatalf("contact copy must go to the owner, got %v", got)
	}
	body := messageBody(t, msg)
	if !strings.Contains(body, "09120000000") {
		t.Fatalf("body missing phone: %s", body)
	}
}

func TestSendEscapesUserContent(t *testing.T) {
	m, sent := newTestMailer(t)

	err := m.Send(context.Background(), authcore.Notification{
		Recipient:   "visitor@example.com",
		DisplayName: "<script>alert(1)</script>",
		Kind:        authcore.NotifyContactAck,
		Data:        map[string]string{"email": "visitor@example.com", "phone": "1234567890"},
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	body := messageBody(t, (*sent)[0])
	if strings.Contains(body, "<script>") {
		t.Fatalf("display name must be escaped: %s", body)
	}
}

func TestSendCooperationAdminListsFields(t *testing.T) {
	m, sent := newTestMailer(t)

	err := m.Send(context.Background(), authcore.Notification{
		Recipient:   "candidate@example.com",
		DisplayName: "Dr. Candidate",
		Kind:        authcore.NotifyCooperationAdmin,
		Data: map[string]string{
			"full_name":  "Dr. Candidate",
			"email":      "candidate@example.com",
			"university": "Example University",
		},
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	body := messageBody(t, (*sent)[0])
	for _, want := range []string{"Example University", "Research Areas"} {
		if !strings.Contains(body, want) {
			t.Fatalf("body missing %q: %s", want, body)
		}
	}
}

func TestSendUnknownKind(t *testing.T) {
	m, _ := newTestMailer(t)

	err := m.Send(context.Background(), authcore.Notification{
		Recipient: "user@example.com",
		Kind:      "bogus",
	})
	if err == nil {
		t.Fatalf("expected error for unknown kind")
	}
}

func TestSendPropagatesSMTPError(t *testing.T) {
	m, _ := newTestMailer(t)
	m.send = func(...*gomail.Message) error { return errors.New("dial tcp: refused") }

	err := m.Send(context.Background(), authcore.Notification{
		Recipient: "user@example.com",
		Kind:      authcore.NotifyEmailVerified,
	})
	if err == nil || !strings.Contains(err.Error(), "smtp send") {
		t.Fatalf("expected wrapped smtp error, got %v", err)
	}
}

func TestSendHonorsCancelledContext(t *testing.T) {
	m, sent := newTestMailer(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := m.Send(ctx, authcore.Notification{
		Recipient: "user@example.com",
		Kind:      authcore.NotifyEmailVerified,
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(*sent) != 0 {
		t.Fatalf("no message must be sent after cancellation")
	}
}
