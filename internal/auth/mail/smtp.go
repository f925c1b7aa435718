package mail

import (
	"bytes"
	"context"
	"fmt"
	"net/smtp"
	"net/url"
	"strings"
	"text/template"
)

// SMTPConfig carries connection details for a plain SMTP relay.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string

	// BaseURL is the frontend origin that hosts the verification and
	// reset pages, e.g. https://app.example.com.
	BaseURL string
}

// SMTPSender delivers mail through a single SMTP relay using PLAIN auth.
type SMTPSender struct {
	cfg  SMTPConfig
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg, send: smtp.SendMail}
}

var verificationTmpl = template.Must(template.New("verification").Parse(
	`Hi {{.Name}},

Welcome aboard. Please confirm your email address by opening the link
below. The link expires in 24 hours.

{{.Link}}

If you did not create this account you can ignore this message.
`))

var passwordResetTmpl = template.Must(template.New("password_reset").Parse(
	`Hi {{.Name}},

We received a request to reset your password. Open the link below to
choose a new one. The link expires in 1 hour.

{{.Link}}

If you did not request this, no action is needed; your password is
unchanged.
`))

var welcomeTmpl = template.Must(template.New("welcome").Parse(
	`Hi {{.Name}},

Your email address is confirmed and your account is ready to use.

Thanks for joining us.
`))

func (s *SMTPSender) SendVerification(ctx context.Context, to, name, secret string) error {
	link := s.link("/verify-email", secret)
	return s.deliver(ctx, to, "Confirm your email address", verificationTmpl, map[string]string{
		"Name": name,
		"Link": link,
	})
}

func (s *SMTPSender) SendPasswordReset(ctx context.Context, to, name, secret string) error {
	link := s.link("/reset-password", secret)
	return s.deliver(ctx, to, "Reset your password", passwordResetTmpl, map[string]string{
		"Name": name,
		"Link": link,
	})
}

func (s *SMTPSender) SendWelcome(ctx context.Context, to, name string) error {
	return s.deliver(ctx, to, "Welcome!", welcomeTmpl, map[string]string{
		"Name": name,
	})
}

func (s *SMTPSender) link(path, secret string) string {
	base := strings.TrimRight(s.cfg.BaseURL, "/")
	return base + path + "/" + url.PathEscape(secret)
}

func (s *SMTPSender) deliver(ctx context.Context, to, subject string, tmpl *template.Template, data any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var body bytes.Buffer
	if err := tmpl.Execute(&body, data); err != nil {
		return fmt.Errorf("mail: render %s: %w", tmpl.Name(), err)
	}

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "From: %s\r\n", s.cfg.From)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	msg.WriteString("\r\n")
	msg.Write(body.Bytes())

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}
	if err := s.send(addr, auth, s.cfg.From, []string{to}, msg.Bytes()); err != nil {
		return fmt.Errorf("mail: send to %s: %w", to, err)
	}
	return nil
}
