// Package email delivers the account emails (welcome, password reset).
package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/sanjiv-madhavan/go-natours/models"
)

var templates = template.Must(template.New("email").Parse(`
{{define "welcome"}}<p>Hi {{.FirstName}},</p>
<p>Welcome to Natours, we're glad to have you!</p>
<p><a href="{{.URL}}">Upload your user photo</a> and get started.</p>{{end}}
{{define "passwordReset"}}<p>Hi {{.FirstName}},</p>
<p>Forgot your password? Submit a PATCH request with your new password and passwordConfirm to:</p>
<p><a href="{{.URL}}">{{.URL}}</a></p>
<p>The link is valid for 10 minutes. If you didn't forget your password, please ignore this email!</p>{{end}}
`))

type message struct {
	FirstName string
	URL       string
}

func render(name string, to models.UserSummary, url string) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, message{FirstName: firstName(to.Name), URL: url}); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func firstName(name string) string {
	for i, r := range name {
		if r == ' ' {
			return name[:i]
		}
	}
	return name
}

type SendGridMailer struct {
	client *sendgrid.Client
	from   *mail.Email
	logger *slog.Logger
}

func NewSendGridMailer(logger *slog.Logger, apiKey string, fromAddress string, fromName string) *SendGridMailer {
	return &SendGridMailer{
		client: sendgrid.NewSendClient(apiKey),
		from:   mail.NewEmail(fromName, fromAddress),
		logger: logger,
	}
}

func (m *SendGridMailer) SendWelcome(ctx context.Context, to models.UserSummary, url string) error {
	return m.send(ctx, to, "welcome", "Welcome to the Natours Family!", url)
}

func (m *SendGridMailer) SendPasswordReset(ctx context.Context, to models.UserSummary, url string) error {
	return m.send(ctx, to, "passwordReset", "Your password reset token (valid for only 10 minutes)", url)
}

func (m *SendGridMailer) send(ctx context.Context, to models.UserSummary, templateName string, subject string, url string) error {
	html, err := render(templateName, to, url)
	if err != nil {
		return err
	}
	text := fmt.Sprintf("%s\n%s", subject, url)
	message := mail.NewSingleEmail(m.from, subject, mail.NewEmail(to.Name, to.Email), text, html)
	response, err := m.client.SendWithContext(ctx, message)
	if err != nil {
		m.logger.Error("Error sending email", slog.String("to", to.Email), slog.Any("error", err))
		return err
	}
	if response.StatusCode >= 400 {
		m.logger.Error("SendGrid API Error", slog.Int("status", response.StatusCode), slog.String("body", response.Body))
		return fmt.Errorf("failed to send email, status code: %d", response.StatusCode)
	}
	m.logger.Info("Email sent", slog.String("to", to.Email), slog.String("template", templateName))
	return nil
}

// LogMailer writes emails to the log instead of sending them. Used when no
// SendGrid key is configured.
type LogMailer struct {
	logger *slog.Logger
}

func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) SendWelcome(ctx context.Context, to models.UserSummary, url string) error {
	return m.log(to, "welcome", url)
}

func (m *LogMailer) SendPasswordReset(ctx context.Context, to models.UserSummary, url string) error {
	return m.log(to, "passwordReset", url)
}

func (m *LogMailer) log(to models.UserSummary, templateName string, url string) error {
	body, err := render(templateName, to, url)
	if err != nil {
		return err
	}
	m.logger.Info("Email", slog.String("to", to.Email), slog.String("template", templateName), slog.String("body", body))
	return nil
}
