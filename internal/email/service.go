package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"github.com/wneessen/go-mail"

	"github.com/arcedo/fundflow-api/internal/config"
)

// Service sends transactional email over SMTP
type Service struct {
	cfg config.EmailConfig
}

func NewService(cfg config.EmailConfig) *Service {
	return &Service{cfg: cfg}
}

// SendVerificationEmail sends the email-verification link to the user.
// Designed to be called in a goroutine; the handler does not wait on it.
func (s *Service) SendVerificationEmail(ctx context.Context, toEmail, code string) error {
	verificationLink := fmt.Sprintf("%s/auth/verifyEmail/%s", s.cfg.PublicURL, code)

	body, err := renderVerificationEmail(verificationLink)
	if err != nil {
		return fmt.Errorf("render template: %w", err)
	}

	if err := s.send(ctx, toEmail, "Email Verification", body); err != nil {
		return fmt.Errorf("send email: %w", err)
	}

	return nil
}

func (s *Service) send(ctx context.Context, to, subject, htmlBody string) error {
	msg := mail.NewMsg()
	if err := msg.FromFormat(s.cfg.FromName, s.cfg.SMTPUser); err != nil {
		return fmt.Errorf("setting from address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("setting to address: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, htmlBody)

	client, err := mail.NewClient(s.cfg.SMTPHost,
		mail.WithPort(s.cfg.SMTPPort),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(s.cfg.SMTPUser),
		mail.WithPassword(s.cfg.SMTPPassword),
	)
	if err != nil {
		return fmt.Errorf("creating smtp client: %w", err)
	}

	return client.DialAndSendWithContext(ctx, msg)
}

var verificationTmpl = template.Must(template.New("verification").Parse(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Email Verification</title>
</head>
<body style="font-family: Arial, sans-serif; color: #333;">
    <h2>Verify your email address</h2>
    <p>Please verify your email address by clicking the link below.</p>
    <p>
        <a href="{{.Link}}" style="background-color: #4CAF50; color: white; padding: 10px 20px; text-decoration: none; border-radius: 4px;">
            Verify Email
        </a>
    </p>
    <p>This link expires in one hour. If you did not create a fundflow account, you can ignore this email.</p>
</body>
</html>
`))

func renderVerificationEmail(link string) (string, error) {
	var buf bytes.Buffer
	if err := verificationTmpl.Execute(&buf, struct{ Link string }{Link: link}); err != nil {
		return "", err
	}
	return buf.String(), nil
}
