package mail

import (
	"context"
	"errors"
	"net/smtp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/pkg/crypto"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

const testKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

type sentMail struct {
	addr string
	from string
	to   []string
	body []byte
}

func newTestSender(t *testing.T, cfg config.MailConfig) (*SMTPSender, *[]sentMail) {
	t.Helper()
	codec, err := crypto.NewCodec(testKey)
	require.NoError(t, err)

	sender := NewSMTPSender(cfg, codec, zap.NewNop())
	var sent []sentMail
	sender.sendMail = func(addr string, _ smtp.Auth, from string, to []string, body []byte) error {
		sent = append(sent, sentMail{addr: addr, from: from, to: to, body: body})
		return nil
	}
	return sender, &sent
}

func tenantWithEmail(t *testing.T, enabled bool) *domain.Company {
	t.Helper()
	codec, err := crypto.NewCodec(testKey)
	require.NoError(t, err)
	enc, err := codec.EncryptString("tenant-secret")
	require.NoError(t, err)

	return &domain.Company{
		ID:   "c1",
		Name: "Acme",
		Email: domain.EmailConfig{
			Enabled:           enabled,
			Host:              "smtp.acme.test",
			Port:              2525,
			Username:          "mailer@acme.test",
			EncryptedPassword: enc,
			From:              "support@acme.test",
		},
	}
}

func TestSend_UsesTenantTransport(t *testing.T) {
	sender, sent := newTestSender(t, config.MailConfig{})

	err := sender.Send(context.Background(), tenantWithEmail(t, true), Message{
		To:      []string{"a@example.com", "b@example.com"},
		Subject: "Ticket update",
		HTML:    "<p>hi</p>",
	})
	require.NoError(t, err)

	require.Len(t, *sent, 2, "one smtp send per recipient")
	assert.Equal(t, "smtp.acme.test:2525", (*sent)[0].addr)
	assert.Equal(t, "support@acme.test", (*sent)[0].from)
	assert.Equal(t, []string{"a@example.com"}, (*sent)[0].to)
	assert.Equal(t, []string{"b@example.com"}, (*sent)[1].to)
}

func TestSend_DisabledTenantFallsBack(t *testing.T) {
	sender, sent := newTestSender(t, config.MailConfig{
		Host: "smtp.fallback.test", Port: 587,
		Username: "system@fallback.test", Password: "pw", From: "noreply@fallback.test",
	})

	err := sender.Send(context.Background(), tenantWithEmail(t, false), Message{
		To: []string{"a@example.com"}, Subject: "s", HTML: "b",
	})
	require.NoError(t, err)

	require.Len(t, *sent, 1)
	assert.Equal(t, "smtp.fallback.test:587", (*sent)[0].addr)
	assert.Equal(t, "noreply@fallback.test", (*sent)[0].from)
}

func TestSend_NoTransportConfigured(t *testing.T) {
	sender, sent := newTestSender(t, config.MailConfig{From: "noreply@x"})

	err := sender.Send(context.Background(), nil, Message{To: []string{"a@example.com"}})
	require.Error(t, err)

	var de *apperrors.DomainError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "CONFIGURATION_ERROR", de.Code)
	assert.Empty(t, *sent)
}

func TestSend_UndecryptablePasswordIsConfigurationError(t *testing.T) {
	sender, _ := newTestSender(t, config.MailConfig{})
	tenant := tenantWithEmail(t, true)
	tenant.Email.EncryptedPassword = "garbage"

	err := sender.Send(context.Background(), tenant, Message{To: []string{"a@example.com"}})
	require.Error(t, err)

	var de *apperrors.DomainError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "CONFIGURATION_ERROR", de.Code)
}

func TestSend_RecipientFailureDoesNotAbortBatch(t *testing.T) {
	sender, _ := newTestSender(t, config.MailConfig{})

	var attempted []string
	sender.sendMail = func(_ string, _ smtp.Auth, _ string, to []string, _ []byte) error {
		attempted = append(attempted, to[0])
		if to[0] == "bad@example.com" {
			return errors.New("mailbox unavailable")
		}
		return nil
	}

	err := sender.Send(context.Background(), tenantWithEmail(t, true), Message{
		To: []string{"good@example.com", "bad@example.com", "also-good@example.com"},
	})
	require.NoError(t, err, "per-recipient failures are swallowed")
	assert.Equal(t, []string{"good@example.com", "bad@example.com", "also-good@example.com"}, attempted)
}

func TestTestTransport_RejectsIncompleteConfig(t *testing.T) {
	sender, _ := newTestSender(t, config.MailConfig{})

	result := sender.TestTransport(Transport{Host: "smtp.x.test"}, "ops@example.com")
	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "required")
}

func TestBuildMIME(t *testing.T) {
	body := buildMIME("from@x.test", "to@y.test", "Hello", "<p>body</p>")
	s := string(body)
	assert.Contains(t, s, "From: from@x.test")
	assert.Contains(t, s, "To: to@y.test")
	assert.Contains(t, s, "Subject: Hello")
	assert.Contains(t, s, "text/html")
	assert.Contains(t, s, "<p>body</p>")
}
