package mailer

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	mail "github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"github.com/bgpnc/members-api/pkg/config"
)

const welcomeSubject = "Welcome to Believers Gathering Place!"

var welcomeTemplate = template.Must(template.New("welcome").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333;">
  <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
    <div style="background-color: #212121; color: #9c8040; padding: 20px; text-align: center;">
      <h1>Believers Gathering Place</h1>
      <p style="color: #ffffff;">Welcome to Our Church Family!</p>
    </div>
    <div style="background-color: #f5f5f5; padding: 30px;">
      <h2>Dear {{.FirstName}},</h2>
      <p>We are thrilled to welcome you to Believers Gathering Place!
      Your registration has been successfully received, and we look forward
      to getting to know you better.</p>
      <h3>What's Next?</h3>
      <ul>
        <li>Join us for our Sunday service at 10:00 AM</li>
        <li>Check out our weekly Bible study sessions</li>
        <li>Connect with our ministry groups</li>
      </ul>
      <p>If you have any questions, please reach out to our church office.</p>
    </div>
    <div style="background-color: #1a1a1a; color: #cccccc; padding: 20px; text-align: center; font-size: 14px;">
      <p>Believers Gathering Place, Wendell, NC</p>
    </div>
  </div>
</body>
</html>`))

// Mailer sends transactional email over SMTP. Delivery is best-effort; the
// caller decides whether failures matter.
type Mailer struct {
	client  *mail.Client
	from    string
	name    string
	enabled bool
	logger  *zap.Logger
}

// New builds a Mailer from SMTP configuration. When cfg.Enabled is false the
// mailer logs sends instead of dialing out, which keeps development setups
// working without an SMTP server.
func New(cfg config.SMTPConfig, logger *zap.Logger) (*Mailer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &Mailer{from: cfg.FromAddress, name: cfg.FromName, enabled: cfg.Enabled, logger: logger}
	if !cfg.Enabled {
		return m, nil
	}

	opts := []mail.Option{mail.WithPort(cfg.Port), mail.WithTLSPolicy(mail.TLSOpportunistic)}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	m.client = client
	return m, nil
}

// SendWelcome delivers the welcome notification to a newly registered member.
func (m *Mailer) SendWelcome(ctx context.Context, email, firstName string) error {
	if !m.enabled {
		m.logger.Sugar().Infow("mailer disabled, skipping welcome email", "email", email)
		return nil
	}

	var body bytes.Buffer
	if err := welcomeTemplate.Execute(&body, struct{ FirstName string }{FirstName: firstName}); err != nil {
		return fmt.Errorf("render welcome email: %w", err)
	}

	msg := mail.NewMsg()
	if err := msg.FromFormat(m.name, m.from); err != nil {
		return fmt.Errorf("welcome email from: %w", err)
	}
	if err := msg.To(email); err != nil {
		return fmt.Errorf("welcome email to: %w", err)
	}
	msg.Subject(welcomeSubject)
	msg.SetBodyString(mail.TypeTextHTML, body.String())

	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send welcome email: %w", err)
	}

	m.logger.Sugar().Infow("welcome email sent", "email", email)
	return nil
}
