package mail

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/pkg/crypto"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// Transport is a resolved SMTP endpoint with credentials.
type Transport struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Message is one outbound email, possibly with multiple recipients.
type Message struct {
	To      []string
	Subject string
	HTML    string
}

// TestResult reports a transport verification outcome; errors are carried
// in Message so the HTTP layer can map it to a 200/400 without a
// try/catch of its own.
type TestResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Sender delivers email through a tenant's transport or the system
// fallback.
type Sender interface {
	Send(ctx context.Context, tenant *domain.Company, msg Message) error
	TestTransport(transport Transport, recipient string) TestResult
}

// SMTPSender is the net/smtp backed implementation.
type SMTPSender struct {
	fallback Transport
	codec    *crypto.Codec
	logger   *zap.Logger

	// sendMail is swappable in tests.
	sendMail func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPSender builds the sender with the env fallback transport.
func NewSMTPSender(cfg config.MailConfig, codec *crypto.Codec, logger *zap.Logger) *SMTPSender {
	return &SMTPSender{
		fallback: Transport{
			Host:     cfg.Host,
			Port:     cfg.Port,
			Username: cfg.Username,
			Password: cfg.Password,
			From:     cfg.From,
		},
		codec:    codec,
		logger:   logger,
		sendMail: smtp.SendMail,
	}
}

// Send delivers one SMTP send per recipient. A failing recipient is
// logged and skipped; it never aborts the rest of the batch and never
// reaches the HTTP caller. Only transport misconfiguration is returned.
func (s *SMTPSender) Send(ctx context.Context, tenant *domain.Company, msg Message) error {
	transport, err := s.transportFor(tenant)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%d", transport.Host, transport.Port)
	auth := smtp.PlainAuth("", transport.Username, transport.Password, transport.Host)

	for _, recipient := range msg.To {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		body := buildMIME(transport.From, recipient, msg.Subject, msg.HTML)
		if err := s.sendMail(addr, auth, transport.From, []string{recipient}, body); err != nil {
			s.logger.Warn("email send failed",
				zap.String("recipient", recipient),
				zap.String("host", transport.Host),
				zap.Error(err))
			continue
		}
		s.logger.Debug("email sent", zap.String("recipient", recipient))
	}
	return nil
}

// transportFor picks the tenant transport when it is enabled and carries
// a host and user; anything else falls back to the env transport.
func (s *SMTPSender) transportFor(tenant *domain.Company) (Transport, error) {
	if tenant != nil && tenant.Email.Enabled && tenant.Email.Host != "" && tenant.Email.Username != "" {
		password, err := s.codec.DecryptString(tenant.Email.EncryptedPassword)
		if err != nil {
			return Transport{}, apperrors.NewConfigurationError("tenant smtp password cannot be decrypted")
		}
		from := tenant.Email.From
		if from == "" {
			from = tenant.Email.Username
		}
		port := tenant.Email.Port
		if port == 0 {
			port = 587
		}
		return Transport{
			Host:     tenant.Email.Host,
			Port:     port,
			Username: tenant.Email.Username,
			Password: password,
			From:     from,
		}, nil
	}

	t := s.fallback
	if t.Host == "" || t.Username == "" || t.Password == "" {
		return Transport{}, apperrors.NewConfigurationError("no usable smtp transport: tenant config disabled and fallback incomplete")
	}
	return t, nil
}

// TestTransport verifies the SMTP handshake before any send is attempted.
func (s *SMTPSender) TestTransport(transport Transport, recipient string) TestResult {
	if transport.Host == "" || transport.Username == "" || transport.Password == "" {
		return TestResult{Success: false, Message: "host, username and password are required"}
	}

	addr := fmt.Sprintf("%s:%d", transport.Host, transport.Port)
	conn, err := net.DialTimeout("tcp", addr, 10*time.Second)
	if err != nil {
		return TestResult{Success: false, Message: fmt.Sprintf("connection failed: %v", err)}
	}

	client, err := smtp.NewClient(conn, transport.Host)
	if err != nil {
		_ = conn.Close()
		return TestResult{Success: false, Message: fmt.Sprintf("smtp handshake failed: %v", err)}
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(nil); err != nil {
			return TestResult{Success: false, Message: fmt.Sprintf("starttls failed: %v", err)}
		}
	}

	auth := smtp.PlainAuth("", transport.Username, transport.Password, transport.Host)
	if ok, _ := client.Extension("AUTH"); ok {
		if err := client.Auth(auth); err != nil {
			return TestResult{Success: false, Message: fmt.Sprintf("authentication failed: %v", err)}
		}
	}

	return TestResult{Success: true, Message: fmt.Sprintf("smtp transport verified for %s", recipient)}
}

func buildMIME(from, to, subject, html string) []byte {
	var b strings.Builder
	b.WriteString("MIME-version: 1.0;\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\";\r\n")
	b.WriteString(fmt.Sprintf("From: %s\r\n", from))
	b.WriteString(fmt.Sprintf("To: %s\r\n", to))
	b.WriteString(fmt.Sprintf("Subject: %s\r\n\r\n", subject))
	b.WriteString(html)
	return []byte(b.String())
}
