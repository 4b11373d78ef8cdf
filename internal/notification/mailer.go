package notification

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"mime"
	"net"
	"net/smtp"
	"net/textproto"
	"strconv"
	"time"

	"github.com/khaliloulah1/securelife/internal/domain"
	"github.com/khaliloulah1/securelife/internal/reliability/circuitbreaker"
	"github.com/khaliloulah1/securelife/internal/reliability/retry"
)

//go:embed templates/*.html
var templateFS embed.FS

// SendFunc matches smtp.SendMail
type SendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// MailerConfig holds SMTP delivery settings
type MailerConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

// Mailer renders HTML notifications and delivers them over SMTP
type Mailer struct {
	cfg       MailerConfig
	templates *template.Template
	send      SendFunc
	breaker   *circuitbreaker.CircuitBreaker
	retry     *retry.Config
	logger    *slog.Logger
}

// NewMailer parses the embedded templates. send defaults to smtp.SendMail.
func NewMailer(cfg MailerConfig, send SendFunc, logger *slog.Logger) (*Mailer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if send == nil {
		send = smtp.SendMail
	}
	tmpl, err := template.New("mail").Funcs(template.FuncMap{
		"money": func(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) },
		"date":  func(t time.Time) string { return t.Format("02/01/2006") },
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse mail templates: %w", err)
	}

	breaker := circuitbreaker.New(circuitbreaker.Config{
		Name:             "smtp",
		FailureThreshold: 5,
		SuccessThreshold: 1,
		OpenTimeout:      30 * time.Second,
	})
	breaker.OnStateChange(func(name string, from, to circuitbreaker.State) {
		logger.Warn("circuit state changed",
			slog.String("breaker", name),
			slog.String("from", from.String()),
			slog.String("to", to.String()),
		)
	})

	return &Mailer{
		cfg:       cfg,
		templates: tmpl,
		send:      send,
		breaker:   breaker,
		retry:     retry.DefaultConfig(),
		logger:    logger,
	}, nil
}

// Subject returns the mail subject for an event on a contract kind
func Subject(event Event, kind domain.Kind) string {
	switch event {
	case EventCreated:
		return fmt.Sprintf("Votre contrat %s a été créé", kind)
	case EventUpdated:
		return fmt.Sprintf("Votre contrat %s a été modifié", kind)
	default:
		return "Changement de statut de votre contrat"
	}
}

func templateName(event Event) string {
	switch event {
	case EventCreated:
		return "created.html"
	case EventUpdated:
		return "updated.html"
	default:
		return "status.html"
	}
}

// Render builds the HTML body for an event
func (m *Mailer) Render(event Event, c *domain.Contract) (string, error) {
	var buf bytes.Buffer
	if err := m.templates.ExecuteTemplate(&buf, templateName(event), c); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", templateName(event), err)
	}
	return buf.String(), nil
}

// Send renders and delivers the notification to the contract email
func (m *Mailer) Send(ctx context.Context, event Event, c *domain.Contract) error {
	body, err := m.Render(event, c)
	if err != nil {
		return err
	}
	msg := m.compose(c.Email, Subject(event, c.Kind), body)
	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))

	var auth smtp.Auth
	if m.cfg.User != "" {
		auth = smtp.PlainAuth("", m.cfg.User, m.cfg.Password, m.cfg.Host)
	}

	_, err = retry.Do(ctx, m.retry, m.logger, "smtp_send", func(ctx context.Context) (struct{}, error) {
		err := m.breaker.Execute(func() error {
			return m.send(addr, auth, m.cfg.From, []string{c.Email}, msg)
		})
		if errors.Is(err, circuitbreaker.ErrOpen) || isPermanentSMTP(err) {
			return struct{}{}, retry.Permanent(err)
		}
		return struct{}{}, err
	})
	if err != nil {
		return fmt.Errorf("failed to send %s mail for contract %d: %w", event, c.ID, err)
	}
	m.logger.Info("mail sent",
		slog.String("event", string(event)),
		slog.Int64("contract_id", c.ID),
		slog.String("to", c.Email),
	)
	return nil
}

func (m *Mailer) compose(to, subject, body string) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "From: %s\r\n", m.cfg.From)
	fmt.Fprintf(&buf, "To: %s\r\n", to)
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("UTF-8", subject))
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	buf.WriteString("\r\n")
	buf.WriteString(body)
	return buf.Bytes()
}

// 5xx replies will not succeed on retry
func isPermanentSMTP(err error) bool {
	var tpErr *textproto.Error
	return errors.As(err, &tpErr) && tpErr.Code >= 500
}
