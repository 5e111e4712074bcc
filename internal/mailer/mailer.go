// Package mailer delivers transactional email over SMTP. Delivery failures
// are the caller's to log; nothing in here retries.
package mailer

import (
	"context"
	"fmt"

	"github.com/wneessen/go-mail"
)

// Mailer sends the two transactional emails the identity flows produce
type Mailer interface {
	SendVerificationEmail(ctx context.Context, to, link string) error
	SendPasswordResetEmail(ctx context.Context, to, link string) error
}

// SMTPConfig holds SMTP transport settings
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// smtpMailer implements Mailer over an SMTP relay
type smtpMailer struct {
	client *mail.Client
	from   string
}

// NewSMTPMailer creates a new SMTP mailer
func NewSMTPMailer(cfg SMTPConfig) (Mailer, error) {
	client, err := mail.NewClient(cfg.Host,
		mail.WithPort(cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.Username),
		mail.WithPassword(cfg.Password),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create smtp client: %w", err)
	}

	return &smtpMailer{client: client, from: cfg.From}, nil
}

const verificationSubject = "Verify your email"

const resetSubject = "Reset your password"

func verificationBody(link string) string {
	return fmt.Sprintf(`<h3>Welcome to FX Rumble!</h3>
<p>Please click the link below to verify your email:</p>
<a href="%s" target="_blank">Email Verify</a>
<p>If you didn't sign up, you can ignore this email.</p>`, link)
}

func resetBody(link string) string {
	return fmt.Sprintf(`<h3>Welcome to FX Rumble!</h3>
<p>Please click the link below to reset your password:</p>
<a href="%s" target="_blank">Reset Password</a>
<p>If you don't want to reset password, you can ignore this email.</p>`, link)
}

// SendVerificationEmail sends the email-verification link
func (m *smtpMailer) SendVerificationEmail(ctx context.Context, to, link string) error {
	return m.send(ctx, to, verificationSubject, verificationBody(link))
}

// SendPasswordResetEmail sends the password-reset link
func (m *smtpMailer) SendPasswordResetEmail(ctx context.Context, to, link string) error {
	return m.send(ctx, to, resetSubject, resetBody(link))
}

func (m *smtpMailer) send(ctx context.Context, to, subject, html string) error {
	msg := mail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return fmt.Errorf("invalid from address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("invalid recipient address: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, html)

	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
