// Package mailer delivers lifecycle and form notifications over SMTP.
// It implements the engine's NotificationDispatcher with one HTML
// template per notification kind.
package mailer

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"gopkg.in/gomail.v2"

	authcore "github.com/raymandgroup/authcore"
)

// Config defines a public type used by authcore APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string

	// From is the sender header; falls back to Username when empty.
	From string

	// OwnerAddress receives site-facing copies of contact and
	// cooperation submissions.
	OwnerAddress string
}

// Mailer defines a public type used by authcore APIs.
//
// Mailer instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Mailer struct {
	cfg Config

	// send is a seam for testing message assembly without a live
	// SMTP conversation.
	send func(...*gomail.Message) error
}

// New describes the new operation and its observable behavior.
//
// New may return an error when input validation, dependency calls, or security checks fail.
// New does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func New(cfg Config) *Mailer {
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	dialer := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	return &Mailer{cfg: cfg, send: dialer.DialAndSend}
}

// Send describes the send operation and its observable behavior.
//
// Send may return an error when input validation, dependency calls, or security checks fail.
// Send does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (m *Mailer) Send(ctx context.Context, msg authcore.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	to, subject, body, err := m.render(msg)
	if err != nil {
		return err
	}

	mail := gomail.NewMessage()
	mail.SetHeader("From", m.cfg.From)
	mail.SetHeader("To", to)
	mail.SetHeader("Subject", subject)
	mail.SetBody("text/html", body)

	if err := m.send(mail); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

func (m *Mailer) render(msg authcore.Notification) (to, subject, body string, err error) {
	name := html.EscapeString(msg.DisplayName)
	if name == "" {
		name = "there"
	}

	switch msg.Kind {
	case authcore.NotifyVerifyEmail:
		return msg.Recipient, "Verify Your Email", fmt.Sprintf(`
  <div style="font-family: Arial, sans-serif; text-align: center; padding: 30px;">
    <h2 style="color: #4CAF50;">Welcome!</h2>
    <p>Hi %s,</p>
    <p>Please verify your email using the code below:</p>
    <h1 style="color: #FF5722;">%s</h1>
    <p style="font-size: 14px; color: #555;">This code expires in %s.</p>
  </div>`, name, html.EscapeString(msg.Code), ttlText(msg.ExpiresIn)), nil

	case authcore.NotifyEmailVerified:
		return msg.Recipient, "Email Verified Successfully", fmt.Sprintf(`
  <div style="font-family: Arial, sans-serif; text-align: center; padding: 30px;">
    <h2 style="color: #4CAF50;">Congratulations!</h2>
    <p>Your email <strong>%s</strong> is now verified.</p>
  </div>`, html.EscapeString(msg.Recipient)), nil

	case authcore.NotifyLoginChallenge:
		return msg.Recipient, "Your Login Code", fmt.Sprintf(`
  <div style="font-family: Arial, sans-serif; text-align: center; padding: 30px;">
    <h2 style="color: #2196F3;">Two-Factor Authentication</h2>
    <p>Use this code to log in:</p>
    <h1 style="color: #FF5722;">%s</h1>
    <p>This code expires in %s.</p>
  </div>`, html.EscapeString(msg.Code), ttlText(msg.ExpiresIn)), nil

	case authcore.NotifyPasswordReset:
		action := fmt.Sprintf(`<p>Use this token to reset your password:</p>
    <h3 style="color: #FF5722; word-break: break-all;">%s</h3>`, html.EscapeString(msg.Code))
		if link := msg.Data["reset_link"]; link != "" {
			action = fmt.Sprintf(`<p>Click the button below to reset your password:</p>
    <a href="%s"
      style="background-color:#4CAF50;color:white;padding:10px 20px;text-decoration:none;border-radius:5px;">
      Reset Password
    </a>`, html.EscapeString(link))
		}
		return msg.Recipient, "Reset Your Password", fmt.Sprintf(`
  <div style="font-family: Arial, sans-serif; text-align: center; padding: 30px;">
    <h2 style="color: #F44336;">Password Reset Request</h2>
    %s
    <p style="margin-top:20px;">This will expire in %s.</p>
    <p>If you did not request this, you can safely ignore this email.</p>
  </div>`, action, ttlText(msg.ExpiresIn)), nil

	case authcore.NotifyPasswordChanged:
		return msg.Recipient, "Password Reset Successful", fmt.Sprintf(`
  <div style="font-family: Arial, sans-serif; text-align: center; padding: 30px;">
    <h2 style="color: #4CAF50;">Password Reset Successful</h2>
    <p>Hello %s,</p>
    <p>Your password has been successfully updated.</p>
    <p>If this was not you, please contact support immediately.</p>
  </div>`, name), nil

	case authcore.NotifyContactOwner:
		return m.cfg.OwnerAddress, "New Contact Form Submission", fmt.Sprintf(`
  <div style="font-family: Arial, sans-serif; max-width: 600px; margin: auto; padding: 20px; border: 1px solid #eee; border-radius: 10px;">
    <h2 style="color: #1976D2;">New Contact Request</h2>
    <p>You have received a new message from your website contact form.</p>
    <table style="width: 100%%; border-collapse: collapse;">
      <tr><td style="padding: 8px; font-weight: bold;">Name:</td><td style="padding: 8px;">%s</td></tr>
      <tr style="background-color: #f9f9f9;"><td style="padding: 8px; font-weight: bold;">Email:</td><td style="padding: 8px;">%s</td></tr>
      <tr><td style="padding: 8px; font-weight: bold;">Phone:</td><td style="padding: 8px;">%s</td></tr>
      <tr style="background-color: #f9f9f9;"><td style="padding: 8px; font-weight: bold;">Submitted At:</td><td style="padding: 8px;">%s</td></tr>
    </table>
    <p style="margin-top: 20px;">Please follow up as soon as possible.</p>
  </div>`, name, html.EscapeString(msg.Data["email"]), html.EscapeString(msg.Data["phone"]), html.EscapeString(msg.Data["submitted_at"])), nil

	case authcore.NotifyContactAck:
		return msg.Recipient, "We Received Your Message", fmt.Sprintf(`
  <div style="font-family: Arial, sans-serif; max-width: 600px; margin: auto; padding: 20px; border: 1px solid #ddd; border-radius: 10px;">
    <h2 style="color: #4CAF50;">Thank You, %s!</h2>
    <p>We have received your message and will get back to you soon.</p>
    <h4 style="margin-top: 30px;">Here is what you sent:</h4>
    <ul style="line-height: 1.8;">
      <li><strong>Name:</strong> %s</li>
      <li><strong>Email:</strong> %s</li>
      <li><strong>Phone:</strong> %s</li>
    </ul>
    <p style="margin-top: 30px;">In the meantime, feel free to reply to this email if you have urgent questions.</p>
  </div>`, name, name, html.EscapeString(msg.Data["email"]), html.EscapeString(msg.Data["phone"])), nil

	case authcore.NotifyCooperationAdmin:
		return m.cfg.OwnerAddress, fmt.Sprintf("New Cooperation Request from %s", msg.DisplayName), cooperationBody(msg), nil

	case authcore.NotifyCooperationAck:
		return msg.Recipient, "We Received Your Cooperation Request", fmt.Sprintf(`
  <div style="font-family: Arial, sans-serif; text-align: center; padding: 30px;">
    <h2 style="color: #4CAF50;">Thank You, %s!</h2>
    <p>We have received your cooperation request and will review it shortly.</p>
  </div>`, name), nil
	}

	return "", "", "", fmt.Errorf("unknown notification kind %q", msg.Kind)
}

// cooperationBody lays out every submitted field row by row so the
// reviewing team sees the full application in one message.
func cooperationBody(msg authcore.Notification) string {
	var rows strings.Builder
	for _, field := range []struct{ label, key string }{
		{"Full Name", "full_name"},
		{"Email", "email"},
		{"Phone", "phone"},
		{"Organization", "organization"},
		{"Position", "position"},
		{"Specialty", "specialty"},
		{"Degree", "degree"},
		{"Field of Study", "field"},
		{"University", "university"},
		{"Graduation Year", "year"},
		{"Research Areas", "research_areas"},
		{"Research Experience", "research_experience"},
		{"Additional Info", "additional_info"},
	} {
		value := msg.Data[field.key]
		if value == "" {
			value = "-"
		}
		fmt.Fprintf(&rows, `      <div class="item"><span style="font-weight:bold;color:#555;display:inline-block;min-width:140px;">%s:</span>%s</div>
`, field.label, html.EscapeString(value))
	}

	return fmt.Sprintf(`
  <div style="font-family: Arial, sans-serif; background:#fff; border-radius:12px; padding:24px; max-width:720px; margin:0 auto;">
    <h2 style="margin-top:0; color:#0a3d62; border-bottom:2px solid #eee; padding-bottom:6px;">New Cooperation Request</h2>
    <div style="margin-top:16px;">
%s    </div>
  </div>`, rows.String())
}

func ttlText(ttl time.Duration) string {
	if ttl <= 0 {
		return "a short while"
	}
	if ttl < time.Hour && ttl%time.Minute == 0 {
		return fmt.Sprintf("%d minutes", int(ttl.Minutes()))
	}
	return ttl.String()
}
