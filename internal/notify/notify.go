// Package notify sends the registration confirmation email.
package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"time"

	"github.com/wneessen/go-mail"
)

var ErrDisabled = errors.New("email delivery is not configured")

const registrationSubject = "Registration Successful!"

// Notifier delivers the welcome email. A returned error never fails the
// registration itself.
type Notifier interface {
	SendRegistration(ctx context.Context, email, name string) error
}

// Disabled is used when no SMTP credentials are configured.
type Disabled struct{}

func (Disabled) SendRegistration(context.Context, string, string) error {
	return ErrDisabled
}

type SMTPOptions struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Timeout  time.Duration
}

// sender is the part of *mail.Client used here.
type sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// SMTPNotifier sends through one SMTP relay with STARTTLS required.
type SMTPNotifier struct {
	client  sender
	from    string
	timeout time.Duration
}

func NewSMTPNotifier(opts SMTPOptions) (*SMTPNotifier, error) {
	clientOpts := []mail.Option{
		mail.WithPort(opts.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(opts.Username),
		mail.WithPassword(opts.Password),
		mail.WithTLSPortPolicy(mail.TLSMandatory),
	}
	if opts.Timeout > 0 {
		clientOpts = append(clientOpts, mail.WithTimeout(opts.Timeout))
	}

	client, err := mail.NewClient(opts.Host, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("mail client: %w", err)
	}
	return &SMTPNotifier{client: client, from: opts.From, timeout: opts.Timeout}, nil
}

func (n *SMTPNotifier) SendRegistration(ctx context.Context, email, name string) error {
	msg, err := n.registrationMessage(email, name)
	if err != nil {
		return err
	}

	if n.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.timeout)
		defer cancel()
	}
	if err := n.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send registration email: %w", err)
	}
	return nil
}

func (n *SMTPNotifier) registrationMessage(email, name string) (*mail.Msg, error) {
	body, err := renderRegistration(email, name)
	if err != nil {
		return nil, err
	}

	msg := mail.NewMsg()
	if err := msg.From(n.from); err != nil {
		return nil, fmt.Errorf("mail from: %w", err)
	}
	if err := msg.To(email); err != nil {
		return nil, fmt.Errorf("mail to: %w", err)
	}
	msg.Subject(registrationSubject)
	msg.SetBodyString(mail.TypeTextHTML, body)
	return msg, nil
}

var registrationTemplate = template.Must(template.New("registration").Parse(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2 style="color: #4CAF50;">Welcome to Our Platform!</h2>
  <p>Dear {{.Name}},</p>
  <p>Thank you for registering with us. Your account has been successfully created.</p>
  <div style="background-color: #f4f4f4; padding: 20px; border-radius: 5px; margin: 20px 0;">
    <h3>Account Details:</h3>
    <p><strong>Name:</strong> {{.Name}}</p>
    <p><strong>Email:</strong> {{.Email}}</p>
  </div>
  <p>You can now start using our platform and explore all the features.</p>
  <p>Best regards,<br>The Team</p>
</div>
`))

func renderRegistration(email, name string) (string, error) {
	var buf bytes.Buffer
	err := registrationTemplate.Execute(&buf, struct{ Name, Email string }{Name: name, Email: email})
	if err != nil {
		return "", fmt.Errorf("render registration email: %w", err)
	}
	return buf.String(), nil
}
